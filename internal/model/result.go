package model

import "time"

// RiskLevel is the four-bucket overall classification driving the
// recommended next action
type RiskLevel string

const (
	RiskLow        RiskLevel = "low"
	RiskModerate   RiskLevel = "moderate"
	RiskConcerning RiskLevel = "concerning"
	RiskUrgent     RiskLevel = "urgent"
)

// ReviewStatus tracks downstream human triage of a result
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending_review"
	ReviewReviewed ReviewStatus = "reviewed"
)

// DomainScore is the derived per-domain outcome. It is recomputed fresh
// from a session's answers on every scoring pass, never cached or
// mutated in place.
type DomainScore struct {
	Domain            Domain       `json:"domain" bson:"domain"`
	RawScore          int          `json:"rawScore" bson:"rawScore"`
	MaxPossibleScore  int          `json:"maxPossibleScore" bson:"maxPossibleScore"`
	NormalizedScore   int          `json:"normalizedScore" bson:"normalizedScore"` // 0-100
	ConcernLevel      ConcernLevel `json:"concernLevel" bson:"concernLevel"`
	QuestionsAsked    int          `json:"questionsAsked" bson:"questionsAsked"`
	ConcerningAnswers int          `json:"concerningAnswers" bson:"concerningAnswers"`
	KeyFindings       []string     `json:"keyFindings" bson:"keyFindings"` // top 3
}

// RecommendationType categorizes a recommendation
type RecommendationType string

const (
	RecProfessionalConsult RecommendationType = "professional_consult"
	RecMonitoring          RecommendationType = "monitoring"
	RecLifestyle           RecommendationType = "lifestyle"
	RecSupportResources    RecommendationType = "support_resources"
)

// RecommendationPriority orders recommendations for the caregiver
type RecommendationPriority string

const (
	PriorityHigh   RecommendationPriority = "high"
	PriorityMedium RecommendationPriority = "medium"
	PriorityLow    RecommendationPriority = "low"
)

// Recommendation is one structured next-step suggestion
type Recommendation struct {
	Type        RecommendationType     `json:"type" bson:"type"`
	Priority    RecommendationPriority `json:"priority" bson:"priority"`
	Title       string                 `json:"title" bson:"title"`
	Description string                 `json:"description" bson:"description"`
	ActionItems []string               `json:"actionItems,omitempty" bson:"actionItems,omitempty"`
}

// DomainDelta is the per-domain change against the previous result.
// Positive delta means worsening.
type DomainDelta struct {
	Domain Domain `json:"domain" bson:"domain"`
	Delta  int    `json:"delta" bson:"delta"`
}

// ChangeFromPrevious summarizes the trend against the most recent prior
// result for the same elder
type ChangeFromPrevious struct {
	PreviousResultID string        `json:"previousResultId" bson:"previousResultId"`
	OverallTrend     string        `json:"overallTrend" bson:"overallTrend"` // improved | stable | declined
	DomainDeltas     []DomainDelta `json:"domainDeltas" bson:"domainDeltas"`
	Summary          string        `json:"summary" bson:"summary"`
}

// AssessmentResult is the persisted screening report, one-to-one with
// its session and immutable once written apart from review metadata.
// Outputs are screening observations, never a diagnosis.
type AssessmentResult struct {
	ID        string `json:"id" bson:"_id"` // result_<sessionID>
	SessionID string `json:"sessionId" bson:"sessionId"`
	GroupID   string `json:"groupId" bson:"groupId"`
	ElderID   string `json:"elderId" bson:"elderId"`
	ElderName string `json:"elderName" bson:"elderName"`

	DomainScores     []DomainScore `json:"domainScores" bson:"domainScores"`
	OverallRiskScore int           `json:"overallRiskScore" bson:"overallRiskScore"`
	OverallRiskLevel RiskLevel     `json:"overallRiskLevel" bson:"overallRiskLevel"`

	Summary         string           `json:"summary" bson:"summary"`
	Recommendations []Recommendation `json:"recommendations" bson:"recommendations"`
	SummarySource   GeneratedBy      `json:"summarySource" bson:"summarySource"`

	ChangeFromPrevious *ChangeFromPrevious `json:"changeFromPrevious,omitempty" bson:"changeFromPrevious,omitempty"`

	Status    ReviewStatus `json:"status" bson:"status"`
	CreatedAt time.Time    `json:"createdAt" bson:"createdAt"`
}

// ResultID derives the report identity from its session
func ResultID(sessionID string) string {
	return "result_" + sessionID
}

// ScoreForDomain returns the DomainScore for d, or nil
func (r *AssessmentResult) ScoreForDomain(d Domain) *DomainScore {
	for i := range r.DomainScores {
		if r.DomainScores[i].Domain == d {
			return &r.DomainScores[i]
		}
	}
	return nil
}
