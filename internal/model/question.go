package model

// Domain is one of the six cognitive/behavioral categories the screening covers
type Domain string

const (
	DomainMemory      Domain = "memory"
	DomainOrientation Domain = "orientation"
	DomainAttention   Domain = "attention"
	DomainLanguage    Domain = "language"
	DomainExecutive   Domain = "executive"
	DomainMood        Domain = "mood_behavior"
)

// DomainOrder is the canonical traversal order for the baseline battery
var DomainOrder = []Domain{
	DomainMemory,
	DomainOrientation,
	DomainAttention,
	DomainLanguage,
	DomainExecutive,
	DomainMood,
}

// ConcernLevel is the ordinal severity tag carried by answer options and
// computed domain/overall scores: none < mild < moderate < concerning
type ConcernLevel string

const (
	ConcernNone       ConcernLevel = "none"
	ConcernMild       ConcernLevel = "mild"
	ConcernModerate   ConcernLevel = "moderate"
	ConcernConcerning ConcernLevel = "concerning"
)

// QuestionType defines how a question is presented to the caregiver
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeFrequency      QuestionType = "frequency"
)

// GeneratedBy tags the source of an adaptive question
type GeneratedBy string

const (
	GeneratedByAI   GeneratedBy = "ai"
	GeneratedByRule GeneratedBy = "rule"
)

// AnswerOption is one selectable answer on a question
type AnswerOption struct {
	Value        string       `json:"value" bson:"value"`
	Label        string       `json:"label" bson:"label"`
	ConcernLevel ConcernLevel `json:"concernLevel" bson:"concernLevel"`
	Points       int          `json:"points" bson:"points"`
}

// Question is a screening question, either a fixed baseline entry or a
// runtime-generated adaptive follow-up. Baseline questions are build-time
// data and never mutated; adaptive questions are owned by the session
// that spawned them.
type Question struct {
	ID               string         `json:"id" bson:"id"`
	Domain           Domain         `json:"domain" bson:"domain"`
	Text             string         `json:"text" bson:"text"` // contains the {elderName} placeholder
	Type             QuestionType   `json:"type" bson:"type"`
	Options          []AnswerOption `json:"options" bson:"options"`
	Weight           int            `json:"weight" bson:"weight"`
	TriggerFollowUp  bool           `json:"triggerFollowUp" bson:"triggerFollowUp"`
	ConcernThreshold []string       `json:"concernThreshold,omitempty" bson:"concernThreshold,omitempty"`

	// Adaptive-only metadata
	GeneratedBy      GeneratedBy `json:"generatedBy,omitempty" bson:"generatedBy,omitempty"`
	ParentQuestionID string      `json:"parentQuestionId,omitempty" bson:"parentQuestionId,omitempty"`
	ParentAnswer     string      `json:"parentAnswer,omitempty" bson:"parentAnswer,omitempty"`
	Depth            int         `json:"depth,omitempty" bson:"depth,omitempty"`
	BranchingReason  string      `json:"branchingReason,omitempty" bson:"branchingReason,omitempty"`
}

// IsAdaptive reports whether the question was generated at runtime
func (q *Question) IsAdaptive() bool {
	return q.GeneratedBy != ""
}

// OptionByValue finds the option with the given value, or nil
func (q *Question) OptionByValue(value string) *AnswerOption {
	for i := range q.Options {
		if q.Options[i].Value == value {
			return &q.Options[i]
		}
	}
	return nil
}

// MaxOptionPoints returns the highest point value among the options
func (q *Question) MaxOptionPoints() int {
	max := 0
	for _, o := range q.Options {
		if o.Points > max {
			max = o.Points
		}
	}
	return max
}

// InConcernThreshold reports whether the answer value is in the
// question's follow-up trigger set
func (q *Question) InConcernThreshold(value string) bool {
	for _, v := range q.ConcernThreshold {
		if v == value {
			return true
		}
	}
	return false
}
