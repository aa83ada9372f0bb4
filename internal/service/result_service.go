package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"cognicare/internal/cache"
	"cognicare/internal/model"
	"cognicare/internal/repository"
)

// ResultService assembles and persists the final screening report for a
// completed session: scores, trend comparison, and an AI narrative with
// a deterministic fallback. One pass, no retries beyond the provider
// chain's own fallback.
type ResultService struct {
	scoring    *ScoringService
	client     *ReasoningClient
	resultRepo repository.ResultRepo
	cache      cache.ResultCache
	logger     *zap.Logger
}

// NewResultService creates a new result service
func NewResultService(scoring *ScoringService, client *ReasoningClient, resultRepo repository.ResultRepo, resultCache cache.ResultCache, logger *zap.Logger) *ResultService {
	return &ResultService{
		scoring:    scoring,
		client:     client,
		resultRepo: resultRepo,
		cache:      resultCache,
		logger:     logger,
	}
}

// aiNarrativePayload is the structured narrative expected back from the
// reasoning service
type aiNarrativePayload struct {
	Summary         string `json:"summary"`
	Recommendations []struct {
		Type        string   `json:"type"`
		Priority    string   `json:"priority"`
		Title       string   `json:"title"`
		Description string   `json:"description"`
		ActionItems []string `json:"actionItems"`
	} `json:"recommendations"`
}

// GenerateResult produces the persisted report for a closed session
func (s *ResultService) GenerateResult(ctx context.Context, session *model.AssessmentSession) (*model.AssessmentResult, error) {
	scores := s.scoring.CalculateDomainScores(session)
	riskScore, riskLevel := s.scoring.OverallRisk(scores)
	observations := s.scoring.IdentifyKeyObservations(session, scores)

	result := &model.AssessmentResult{
		ID:               model.ResultID(session.ID),
		SessionID:        session.ID,
		GroupID:          session.GroupID,
		ElderID:          session.ElderID,
		ElderName:        session.ElderName,
		DomainScores:     scores,
		OverallRiskScore: riskScore,
		OverallRiskLevel: riskLevel,
		Status:           model.ReviewPending,
		CreatedAt:        time.Now(),
	}

	if previous := s.latestResult(ctx, session.GroupID, session.ElderID); previous != nil {
		result.ChangeFromPrevious = s.scoring.CompareWithPrevious(result, previous)
	}

	summary, recommendations, source := s.narrative(ctx, session, result, observations)
	result.Summary = summary
	result.Recommendations = recommendations
	result.SummarySource = source

	if err := s.resultRepo.Save(ctx, result); err != nil {
		return nil, fmt.Errorf("save result: %w", err)
	}
	if err := s.cache.SetLatest(ctx, result); err != nil {
		s.logger.Warn("result cache set failed", zap.String("resultId", result.ID), zap.Error(err))
	}

	s.logger.Info("result generated",
		zap.String("resultId", result.ID),
		zap.String("riskLevel", string(riskLevel)),
		zap.Int("riskScore", riskScore),
		zap.String("summarySource", string(source)))

	return result, nil
}

// GetResult fetches a persisted report by id
func (s *ResultService) GetResult(ctx context.Context, id string) (*model.AssessmentResult, error) {
	return s.resultRepo.GetByID(ctx, id)
}

// GetLatestResult fetches the most recent report for an elder
func (s *ResultService) GetLatestResult(ctx context.Context, groupID, elderID string) (*model.AssessmentResult, error) {
	if cached := s.latestResult(ctx, groupID, elderID); cached != nil {
		return cached, nil
	}
	return s.resultRepo.GetLatestByElder(ctx, groupID, elderID)
}

// MarkReviewed records human triage without recomputing anything. The
// cached latest copy still carries the old status, so it is dropped.
func (s *ResultService) MarkReviewed(ctx context.Context, resultID string) error {
	if err := s.resultRepo.UpdateReviewStatus(ctx, resultID, model.ReviewReviewed); err != nil {
		return fmt.Errorf("mark reviewed: %w", err)
	}

	result, err := s.resultRepo.GetByID(ctx, resultID)
	if err != nil || result == nil {
		return nil // status is updated; the stale cache entry will expire
	}
	if err := s.cache.InvalidateLatest(ctx, result.GroupID, result.ElderID); err != nil {
		s.logger.Warn("latest-result cache invalidation failed",
			zap.String("resultId", resultID), zap.Error(err))
	}
	return nil
}

func (s *ResultService) latestResult(ctx context.Context, groupID, elderID string) *model.AssessmentResult {
	if cached, err := s.cache.GetLatest(ctx, groupID, elderID); err == nil && cached != nil {
		return cached
	}
	previous, err := s.resultRepo.GetLatestByElder(ctx, groupID, elderID)
	if err != nil {
		s.logger.Warn("previous result lookup failed",
			zap.String("elderId", elderID), zap.Error(err))
		return nil
	}
	return previous
}

// narrative requests the AI summary and recommendations, substituting
// the deterministic fallback on any failure or invalid output
func (s *ResultService) narrative(ctx context.Context, session *model.AssessmentSession, result *model.AssessmentResult, observations KeyObservations) (string, []model.Recommendation, model.GeneratedBy) {
	prompt := s.buildNarrativePrompt(session, result, observations)
	response, err := s.client.Complete(ctx, prompt, 2048, 0.5)
	if err == nil {
		if summary, recs, ok := parseNarrative(response); ok {
			return summary, recs, model.GeneratedByAI
		}
		s.logger.Warn("narrative response invalid, using fallback",
			zap.String("sessionId", session.ID))
	} else {
		s.logger.Info("narrative falling back to deterministic summary",
			zap.String("sessionId", session.ID), zap.Error(err))
	}

	return s.fallbackSummary(session, result, observations),
		FallbackRecommendations(result.OverallRiskLevel, observations.Concerns),
		model.GeneratedByRule
}

func parseNarrative(response string) (string, []model.Recommendation, bool) {
	raw, err := extractJSON(response)
	if err != nil {
		return "", nil, false
	}

	var payload aiNarrativePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", nil, false
	}
	if strings.TrimSpace(payload.Summary) == "" {
		return "", nil, false
	}

	var recs []model.Recommendation
	for _, r := range payload.Recommendations {
		recType, ok := validRecType(r.Type)
		if !ok || r.Title == "" {
			continue
		}
		recs = append(recs, model.Recommendation{
			Type:        recType,
			Priority:    validPriority(r.Priority),
			Title:       r.Title,
			Description: r.Description,
			ActionItems: r.ActionItems,
		})
	}
	if len(recs) < 2 || len(recs) > 4 {
		return "", nil, false
	}
	return payload.Summary, recs, true
}

func validRecType(raw string) (model.RecommendationType, bool) {
	switch model.RecommendationType(raw) {
	case model.RecProfessionalConsult, model.RecMonitoring, model.RecLifestyle, model.RecSupportResources:
		return model.RecommendationType(raw), true
	}
	return "", false
}

func validPriority(raw string) model.RecommendationPriority {
	switch model.RecommendationPriority(raw) {
	case model.PriorityHigh, model.PriorityMedium, model.PriorityLow:
		return model.RecommendationPriority(raw)
	}
	return model.PriorityMedium
}

func (s *ResultService) buildNarrativePrompt(session *model.AssessmentSession, result *model.AssessmentResult, observations KeyObservations) string {
	var sb strings.Builder

	sb.WriteString("You are summarizing a caregiver-administered cognitive screening. ")
	sb.WriteString("This is a screening observation, NOT a diagnosis; never use diagnostic language. Return ONLY valid JSON:\n")
	sb.WriteString(`{
  "summary": "2-4 sentence plain-language narrative for the caregiver",
  "recommendations": [
    {
      "type": "professional_consult|monitoring|lifestyle|support_resources",
      "priority": "high|medium|low",
      "title": "short title",
      "description": "one or two sentences",
      "actionItems": ["concrete step"]
    }
  ]
}
Provide 2-4 recommendations.
`)

	sb.WriteString(fmt.Sprintf("\nSubject: %s", session.ElderName))
	if session.ElderAge > 0 {
		sb.WriteString(fmt.Sprintf(", age %d", session.ElderAge))
	}
	sb.WriteString(fmt.Sprintf("\nOverall risk: %s (score %d/100)\n", result.OverallRiskLevel, result.OverallRiskScore))

	sb.WriteString("\nDomain scores:\n")
	for _, ds := range result.DomainScores {
		sb.WriteString(fmt.Sprintf("- %s: %d/100, concern level %s\n",
			domainLabel(ds.Domain), ds.NormalizedScore, ds.ConcernLevel))
	}

	if len(observations.Concerns) > 0 {
		sb.WriteString("\nConcerns:\n")
		for _, c := range observations.Concerns {
			sb.WriteString("- " + c + "\n")
		}
	}
	if len(observations.Strengths) > 0 {
		sb.WriteString("\nStrengths:\n")
		for _, st := range observations.Strengths {
			sb.WriteString("- " + st + "\n")
		}
	}
	if result.ChangeFromPrevious != nil {
		sb.WriteString("\nTrend vs previous screening: " + result.ChangeFromPrevious.OverallTrend + "\n")
	}

	if tail := transcriptTail(session, 10); tail != "" {
		sb.WriteString("\nSession transcript (most recent):\n")
		sb.WriteString(tail)
	}

	return sb.String()
}

func (s *ResultService) fallbackSummary(session *model.AssessmentSession, result *model.AssessmentResult, observations KeyObservations) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("This screening of %s indicates an overall %s risk level (score %d/100). ",
		session.ElderName, result.OverallRiskLevel, result.OverallRiskScore))

	if len(observations.Concerns) > 0 {
		sb.WriteString(observations.Concerns[0] + ". ")
	}
	if len(observations.Strengths) > 0 {
		sb.WriteString(observations.Strengths[0] + ". ")
	}
	if result.ChangeFromPrevious != nil {
		sb.WriteString(result.ChangeFromPrevious.Summary + " ")
	}

	sb.WriteString("These are screening observations only and do not constitute a medical diagnosis; ")
	sb.WriteString("please share them with a qualified healthcare professional.")

	return sb.String()
}

// FallbackRecommendations is the deterministic recommendation set used
// whenever the reasoning service is unavailable or its output invalid.
// The rules are fixed so the AI path can be tested against them.
func FallbackRecommendations(risk model.RiskLevel, concerns []string) []model.Recommendation {
	var recs []model.Recommendation

	switch risk {
	case model.RiskUrgent, model.RiskConcerning:
		recs = append(recs, model.Recommendation{
			Type:        model.RecProfessionalConsult,
			Priority:    model.PriorityHigh,
			Title:       "Schedule a professional evaluation",
			Description: "The screening shows patterns that warrant a timely evaluation by a physician or memory specialist.",
			ActionItems: []string{
				"Book an appointment with their primary care physician",
				"Bring this screening report to the visit",
			},
		})
	case model.RiskModerate:
		recs = append(recs, model.Recommendation{
			Type:        model.RecProfessionalConsult,
			Priority:    model.PriorityMedium,
			Title:       "Consider discussing with a physician",
			Description: "Some answers suggest changes worth mentioning at the next routine medical visit.",
			ActionItems: []string{
				"Raise the flagged observations at the next check-up",
			},
		})
	}

	monitoringPriority := model.PriorityLow
	switch risk {
	case model.RiskUrgent, model.RiskConcerning:
		monitoringPriority = model.PriorityHigh
	case model.RiskModerate:
		monitoringPriority = model.PriorityMedium
	}
	recs = append(recs, model.Recommendation{
		Type:        model.RecMonitoring,
		Priority:    monitoringPriority,
		Title:       "Keep observing and re-screen",
		Description: "Continue noting day-to-day changes and repeat this screening in a few months to track the trend.",
		ActionItems: []string{
			"Keep a simple log of notable incidents",
			"Repeat the screening in 3-6 months",
		},
	})

	for _, c := range concerns {
		lc := strings.ToLower(c)
		if strings.Contains(lc, "mood") || strings.Contains(lc, "withdraw") {
			recs = append(recs, model.Recommendation{
				Type:        model.RecLifestyle,
				Priority:    model.PriorityMedium,
				Title:       "Encourage social engagement",
				Description: "Withdrawal and mood changes often respond to regular social contact and familiar activities.",
				ActionItems: []string{
					"Plan regular visits or calls with family and friends",
					"Reintroduce a previously enjoyed activity",
				},
			})
			break
		}
	}

	return recs
}
