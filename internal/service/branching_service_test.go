package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cognicare/internal/config"
	"cognicare/internal/model"
)

func newBranchingWithProvider(p Provider) *BranchingService {
	cfg := &config.AIConfig{TimeoutMS: 1000}
	client := newClientWithProviders(cfg, p, nil, zap.NewNop())
	return NewBranchingService(client, zap.NewNop())
}

func triggerAnswer(domain model.Domain) model.QuestionAnswer {
	return model.QuestionAnswer{
		QuestionID:   string(domain) + "_1",
		QuestionText: "How often does this happen?",
		Domain:       domain,
		Answer:       "often",
		AnswerLabel:  "Often",
		ConcernLevel: model.ConcernConcerning,
		Points:       4,
	}
}

func TestRuleFallbackCoversEveryDomain(t *testing.T) {
	svc := newBranchingWithProvider(&stubProvider{err: errors.New("provider down")})
	session := newTestSession()

	for _, d := range model.DomainOrder {
		decision := svc.GenerateFollowUp(context.Background(), session, triggerAnswer(d), 0, 2, 2)
		require.True(t, decision.ShouldContinueBranching, "domain %s", d)
		require.NotNil(t, decision.NextQuestion, "domain %s", d)

		q := decision.NextQuestion
		assert.Equal(t, d, q.Domain)
		assert.Equal(t, model.GeneratedByRule, q.GeneratedBy)
		assert.Equal(t, string(d)+"_1", q.ParentQuestionID)
		assert.Equal(t, 1, q.Depth)
		assert.Len(t, q.Options, 4)
		assert.InDelta(t, 0.75, decision.Confidence, 1e-9)

		// Every fallback question must have a non-concerning escape hatch
		hasEscape := false
		for _, o := range q.Options {
			if o.ConcernLevel == model.ConcernNone {
				hasEscape = true
			}
		}
		assert.True(t, hasEscape, "domain %s", d)
	}
}

func TestRuleFallbackIsDeterministicPerDomain(t *testing.T) {
	svc := newBranchingWithProvider(&stubProvider{err: errors.New("provider down")})
	session := newTestSession()

	a := svc.GenerateFollowUp(context.Background(), session, triggerAnswer(model.DomainMemory), 0, 2, 2)
	b := svc.GenerateFollowUp(context.Background(), session, triggerAnswer(model.DomainMemory), 0, 2, 2)
	require.NotNil(t, a.NextQuestion)
	require.NotNil(t, b.NextQuestion)

	// IDs carry a random suffix; everything else is the same question
	assert.Equal(t, a.NextQuestion.Text, b.NextQuestion.Text)
	assert.Equal(t, a.NextQuestion.Options, b.NextQuestion.Options)
	assert.NotEqual(t, a.NextQuestion.ID, b.NextQuestion.ID)
}

func TestDepthLimitStopsBranchingWithoutProviderCall(t *testing.T) {
	svc := newBranchingWithProvider(&stubProvider{err: errors.New("must not be called")})
	session := newTestSession()

	decision := svc.GenerateFollowUp(context.Background(), session, triggerAnswer(model.DomainMemory), 2, 2, 2)
	assert.False(t, decision.ShouldContinueBranching)
	assert.Nil(t, decision.NextQuestion)
	assert.Equal(t, 1.0, decision.Confidence)
}

func TestDomainBudgetStopsBranching(t *testing.T) {
	svc := newBranchingWithProvider(&stubProvider{err: errors.New("must not be called")})
	session := newTestSession()
	session.Answers = append(session.Answers,
		model.QuestionAnswer{QuestionID: "adaptive_a", Domain: model.DomainMemory, IsAdaptive: true},
		model.QuestionAnswer{QuestionID: "adaptive_b", Domain: model.DomainMemory, IsAdaptive: true},
	)

	decision := svc.GenerateFollowUp(context.Background(), session, triggerAnswer(model.DomainMemory), 0, 2, 2)
	assert.False(t, decision.ShouldContinueBranching)
	assert.True(t, decision.SuggestDomainSwitch)
}

func TestAIDecisionParsed(t *testing.T) {
	response := "Here is my decision:\n```json\n" + `{
  "shouldFollowUp": true,
  "reason": "the forgetting pattern needs clarifying",
  "confidence": 0.9,
  "question": {
    "text": "Does a reminder help them recall the forgotten event?",
    "options": [
      {"value": "yes_always", "label": "Yes, always", "concernLevel": "none", "points": 0},
      {"value": "sometimes", "label": "Sometimes", "concernLevel": "mild", "points": 1},
      {"value": "never", "label": "No, never", "concernLevel": "concerning", "points": 3}
    ]
  }
}` + "\n```"

	svc := newBranchingWithProvider(&stubProvider{response: response})
	session := newTestSession()

	decision := svc.GenerateFollowUp(context.Background(), session, triggerAnswer(model.DomainMemory), 0, 2, 2)
	require.True(t, decision.ShouldContinueBranching)
	require.NotNil(t, decision.NextQuestion)

	q := decision.NextQuestion
	assert.Equal(t, model.GeneratedByAI, q.GeneratedBy)
	assert.Equal(t, "the forgetting pattern needs clarifying", decision.BranchingReason)
	assert.InDelta(t, 0.9, decision.Confidence, 1e-9)
	require.Len(t, q.Options, 3)
	assert.Equal(t, model.ConcernConcerning, q.Options[2].ConcernLevel)
	assert.Equal(t, model.DomainMemory, q.Domain)
	assert.Equal(t, 1, q.Depth)
}

func TestAIDeclinesToBranch(t *testing.T) {
	svc := newBranchingWithProvider(&stubProvider{
		response: `{"shouldFollowUp": false, "reason": "answer already fully explained", "confidence": 0.8}`,
	})
	session := newTestSession()

	decision := svc.GenerateFollowUp(context.Background(), session, triggerAnswer(model.DomainMood), 0, 2, 2)
	assert.False(t, decision.ShouldContinueBranching)
	assert.Nil(t, decision.NextQuestion)
	assert.Equal(t, "answer already fully explained", decision.BranchingReason)
}

func TestMalformedAIResponseFallsBackToRule(t *testing.T) {
	cases := map[string]string{
		"no json":           "I think a follow-up would be nice.",
		"invalid json":      `{"shouldFollowUp": true, "question": `,
		"missing question":  `{"shouldFollowUp": true, "reason": "probe further"}`,
		"empty option list": `{"shouldFollowUp": true, "question": {"text": "", "options": []}}`,
	}

	session := newTestSession()
	for name, response := range cases {
		t.Run(name, func(t *testing.T) {
			svc := newBranchingWithProvider(&stubProvider{response: response})
			decision := svc.GenerateFollowUp(context.Background(), session, triggerAnswer(model.DomainLanguage), 0, 2, 2)
			require.True(t, decision.ShouldContinueBranching)
			require.NotNil(t, decision.NextQuestion)
			assert.Equal(t, model.GeneratedByRule, decision.NextQuestion.GeneratedBy)
		})
	}
}

func TestSingleOptionListReplacedWithLadder(t *testing.T) {
	svc := newBranchingWithProvider(&stubProvider{
		response: `{"shouldFollowUp": true, "reason": "probe", "confidence": 0.7, "question": {"text": "Is it getting worse?", "options": [{"value": "yes", "label": "Yes", "concernLevel": "concerning", "points": 3}]}}`,
	})
	session := newTestSession()

	decision := svc.GenerateFollowUp(context.Background(), session, triggerAnswer(model.DomainExecutive), 0, 2, 2)
	require.True(t, decision.ShouldContinueBranching)
	require.NotNil(t, decision.NextQuestion)
	assert.Equal(t, defaultOptionLadder(), decision.NextQuestion.Options)
}

func TestOversizedOptionListTruncated(t *testing.T) {
	svc := newBranchingWithProvider(&stubProvider{
		response: `{"shouldFollowUp": true, "reason": "probe", "confidence": 0.7, "question": {"text": "How far does it go?", "options": [
			{"value": "a", "label": "A", "concernLevel": "none", "points": 0},
			{"value": "b", "label": "B", "concernLevel": "mild", "points": 1},
			{"value": "c", "label": "C", "concernLevel": "moderate", "points": 2},
			{"value": "d", "label": "D", "concernLevel": "concerning", "points": 3},
			{"value": "e", "label": "E", "concernLevel": "concerning", "points": 9}
		]}}`,
	})
	session := newTestSession()

	decision := svc.GenerateFollowUp(context.Background(), session, triggerAnswer(model.DomainAttention), 0, 2, 2)
	require.NotNil(t, decision.NextQuestion)
	assert.Len(t, decision.NextQuestion.Options, 4)
}

func TestFollowUpPromptCarriesTranscript(t *testing.T) {
	svc := newBranchingWithProvider(&stubProvider{response: "{}"})
	session := newTestSession()
	session.ConversationContext = []model.TranscriptEntry{
		{ID: "t1", Role: "system", Text: "Screening subject: Rose, age 81"},
		{ID: "t2", Role: "caregiver", Text: "Q: How often does Rose repeat a story? A: Often"},
	}

	prompt := svc.buildFollowUpPrompt(session, triggerAnswer(model.DomainMemory))
	assert.Contains(t, prompt, "Conversation so far:")
	assert.Contains(t, prompt, "[system] Screening subject: Rose, age 81")
	assert.Contains(t, prompt, "[caregiver] Q: How often does Rose repeat a story? A: Often")
}

func TestTranscriptTailKeepsOnlyRecentEntries(t *testing.T) {
	session := newTestSession()
	for i := 0; i < 10; i++ {
		session.ConversationContext = append(session.ConversationContext, model.TranscriptEntry{
			ID: string(rune('a' + i)), Role: "caregiver", Text: "entry " + string(rune('0'+i)),
		})
	}

	tail := transcriptTail(session, 3)
	assert.NotContains(t, tail, "entry 6")
	assert.Contains(t, tail, "entry 7")
	assert.Contains(t, tail, "entry 9")

	assert.Empty(t, transcriptTail(newTestSession(), 3))
}

func TestPointsAndConcernNormalization(t *testing.T) {
	svc := newBranchingWithProvider(&stubProvider{
		response: `{"shouldFollowUp": true, "reason": "probe", "confidence": 2.5, "question": {"text": "Checking bounds", "options": [
			{"value": "low", "label": "Low", "concernLevel": "bogus", "points": -3},
			{"value": "high", "label": "High", "concernLevel": "CONCERNING", "points": 99}
		]}}`,
	})
	session := newTestSession()

	decision := svc.GenerateFollowUp(context.Background(), session, triggerAnswer(model.DomainMemory), 0, 2, 2)
	require.NotNil(t, decision.NextQuestion)
	opts := decision.NextQuestion.Options
	require.Len(t, opts, 2)
	assert.Equal(t, model.ConcernNone, opts[0].ConcernLevel)
	assert.Equal(t, 0, opts[0].Points)
	assert.Equal(t, model.ConcernConcerning, opts[1].ConcernLevel)
	assert.Equal(t, 4, opts[1].Points)
	// Out-of-range confidence snaps to the neutral default
	assert.InDelta(t, 0.5, decision.Confidence, 1e-9)
}
