package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cognicare/internal/config"
	"cognicare/internal/model"
)

func newResultServiceForTest(p Provider) (*ResultService, *fakeResultRepo, *fakeResultCache) {
	bank := NewQuestionBank()
	scoring := NewScoringService(bank)
	client := newClientWithProviders(&config.AIConfig{TimeoutMS: 1000}, p, nil, zap.NewNop())
	repo := newFakeResultRepo()
	resultCache := newFakeResultCache()
	return NewResultService(scoring, client, repo, resultCache, zap.NewNop()), repo, resultCache
}

func completedTestSession() *model.AssessmentSession {
	bank := NewQuestionBank()
	session := newTestSession()
	answerAllLowest(bank, session)
	session.Status = model.SessionCompleted
	now := time.Now()
	session.EndedAt = &now
	return session
}

func TestGenerateResultWithFallbackNarrative(t *testing.T) {
	svc, repo, resultCache := newResultServiceForTest(&stubProvider{err: errors.New("provider down")})
	session := completedTestSession()

	result, err := svc.GenerateResult(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, model.ResultID(session.ID), result.ID)
	assert.Equal(t, session.ID, result.SessionID)
	assert.Equal(t, model.RiskLow, result.OverallRiskLevel)
	assert.Equal(t, model.ReviewPending, result.Status)
	assert.Equal(t, model.GeneratedByRule, result.SummarySource)
	assert.Contains(t, result.Summary, "Rose")
	assert.Contains(t, result.Summary, "do not constitute a medical diagnosis")
	assert.NotEmpty(t, result.Recommendations)
	assert.Nil(t, result.ChangeFromPrevious)

	stored, err := repo.GetByID(context.Background(), result.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	cached, err := resultCache.GetLatest(context.Background(), session.GroupID, session.ElderID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, result.ID, cached.ID)
}

func TestGenerateResultWithAINarrative(t *testing.T) {
	response := `{
  "summary": "Rose is doing well overall, with no concerning patterns observed in this screening.",
  "recommendations": [
    {"type": "monitoring", "priority": "low", "title": "Keep observing", "description": "Re-screen in six months.", "actionItems": ["Note any changes"]},
    {"type": "lifestyle", "priority": "low", "title": "Stay engaged", "description": "Keep up social activities.", "actionItems": []}
  ]
}`
	svc, _, _ := newResultServiceForTest(&stubProvider{response: response})
	session := completedTestSession()

	result, err := svc.GenerateResult(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, model.GeneratedByAI, result.SummarySource)
	assert.Contains(t, result.Summary, "Rose is doing well")
	require.Len(t, result.Recommendations, 2)
	assert.Equal(t, model.RecMonitoring, result.Recommendations[0].Type)
}

func TestInvalidAINarrativeFallsBack(t *testing.T) {
	cases := map[string]string{
		"not json":      "Everything looks fine to me!",
		"empty summary": `{"summary": "", "recommendations": []}`,
		"too few recs":  `{"summary": "ok", "recommendations": [{"type": "monitoring", "priority": "low", "title": "One"}]}`,
		"unknown types": `{"summary": "ok", "recommendations": [{"type": "magic", "title": "A"}, {"type": "sorcery", "title": "B"}]}`,
	}

	for name, response := range cases {
		t.Run(name, func(t *testing.T) {
			svc, _, _ := newResultServiceForTest(&stubProvider{response: response})
			result, err := svc.GenerateResult(context.Background(), completedTestSession())
			require.NoError(t, err)
			assert.Equal(t, model.GeneratedByRule, result.SummarySource)
			assert.NotEmpty(t, result.Recommendations)
		})
	}
}

func TestGenerateResultComparesWithPrevious(t *testing.T) {
	svc, _, _ := newResultServiceForTest(&stubProvider{err: errors.New("provider down")})

	first, err := svc.GenerateResult(context.Background(), completedTestSession())
	require.NoError(t, err)

	// A later session for the same elder picks up the first result
	bank := NewQuestionBank()
	second := newTestSession()
	second.ID = model.NewSessionID(second.GroupID, second.ElderID, time.Now().Add(time.Hour))
	answerDomainHighest(bank, second, model.DomainMemory)
	for _, d := range []model.Domain{model.DomainOrientation, model.DomainAttention, model.DomainLanguage, model.DomainExecutive, model.DomainMood} {
		for _, q := range bank.QuestionsForDomain(d) {
			answerBaseline(bank, second, q.ID, 0)
		}
	}
	second.Status = model.SessionCompleted

	result, err := svc.GenerateResult(context.Background(), second)
	require.NoError(t, err)
	require.NotNil(t, result.ChangeFromPrevious)
	assert.Equal(t, first.ID, result.ChangeFromPrevious.PreviousResultID)
	assert.Contains(t, result.Summary, "previous screening")
}

func TestMarkReviewed(t *testing.T) {
	svc, repo, _ := newResultServiceForTest(&stubProvider{err: errors.New("provider down")})
	result, err := svc.GenerateResult(context.Background(), completedTestSession())
	require.NoError(t, err)

	require.NoError(t, svc.MarkReviewed(context.Background(), result.ID))

	stored, err := repo.GetByID(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReviewReviewed, stored.Status)

	assert.Error(t, svc.MarkReviewed(context.Background(), "result_missing"))
}

func TestMarkReviewedDropsStaleLatestCache(t *testing.T) {
	svc, _, resultCache := newResultServiceForTest(&stubProvider{err: errors.New("provider down")})
	session := completedTestSession()

	result, err := svc.GenerateResult(context.Background(), session)
	require.NoError(t, err)

	cached, err := resultCache.GetLatest(context.Background(), session.GroupID, session.ElderID)
	require.NoError(t, err)
	require.NotNil(t, cached)

	require.NoError(t, svc.MarkReviewed(context.Background(), result.ID))

	cached, err = resultCache.GetLatest(context.Background(), session.GroupID, session.ElderID)
	require.NoError(t, err)
	assert.Nil(t, cached)

	// The latest lookup now reflects the reviewed status
	latest, err := svc.GetLatestResult(context.Background(), session.GroupID, session.ElderID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, model.ReviewReviewed, latest.Status)
}

func TestNarrativePromptCarriesTranscript(t *testing.T) {
	svc, _, _ := newResultServiceForTest(&stubProvider{err: errors.New("provider down")})
	session := completedTestSession()
	session.ConversationContext = []model.TranscriptEntry{
		{ID: "t1", Role: "caregiver", Text: "Q: Has Rose forgotten recent events? A: No"},
	}

	scores := NewScoringService(NewQuestionBank()).CalculateDomainScores(session)
	result := &model.AssessmentResult{DomainScores: scores, OverallRiskLevel: model.RiskLow}

	prompt := svc.buildNarrativePrompt(session, result, KeyObservations{})
	assert.Contains(t, prompt, "Session transcript (most recent):")
	assert.Contains(t, prompt, "[caregiver] Q: Has Rose forgotten recent events? A: No")
}

func TestFallbackRecommendationRules(t *testing.T) {
	t.Run("urgent gets high-priority consult", func(t *testing.T) {
		recs := FallbackRecommendations(model.RiskUrgent, nil)
		require.Len(t, recs, 2)
		assert.Equal(t, model.RecProfessionalConsult, recs[0].Type)
		assert.Equal(t, model.PriorityHigh, recs[0].Priority)
		assert.Equal(t, model.RecMonitoring, recs[1].Type)
		assert.Equal(t, model.PriorityHigh, recs[1].Priority)
	})

	t.Run("concerning mirrors urgent", func(t *testing.T) {
		assert.Equal(t,
			FallbackRecommendations(model.RiskUrgent, nil),
			FallbackRecommendations(model.RiskConcerning, nil))
	})

	t.Run("moderate gets medium consult", func(t *testing.T) {
		recs := FallbackRecommendations(model.RiskModerate, nil)
		require.Len(t, recs, 2)
		assert.Equal(t, model.RecProfessionalConsult, recs[0].Type)
		assert.Equal(t, model.PriorityMedium, recs[0].Priority)
		assert.Equal(t, model.PriorityMedium, recs[1].Priority)
	})

	t.Run("low gets monitoring only", func(t *testing.T) {
		recs := FallbackRecommendations(model.RiskLow, nil)
		require.Len(t, recs, 1)
		assert.Equal(t, model.RecMonitoring, recs[0].Type)
		assert.Equal(t, model.PriorityLow, recs[0].Priority)
	})

	t.Run("mood concern adds lifestyle rec once", func(t *testing.T) {
		concerns := []string{
			"Mood and behavior shows moderate signs worth watching (40/100)",
			"They withdraw from family gatherings",
		}
		recs := FallbackRecommendations(model.RiskLow, concerns)
		lifestyle := 0
		for _, r := range recs {
			if r.Type == model.RecLifestyle {
				lifestyle++
			}
		}
		assert.Equal(t, 1, lifestyle)
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t,
			FallbackRecommendations(model.RiskConcerning, []string{"Memory concern"}),
			FallbackRecommendations(model.RiskConcerning, []string{"Memory concern"}))
	})
}
