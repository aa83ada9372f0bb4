package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cognicare/internal/model"
)

// BranchingService decides whether to insert an adaptive follow-up
// question after a concerning answer. It asks the reasoning service
// first, then falls back to a static per-domain rule table; branching
// is never allowed to abort the assessment flow.
type BranchingService struct {
	client *ReasoningClient
	logger *zap.Logger
}

// NewBranchingService creates a new branching service
func NewBranchingService(client *ReasoningClient, logger *zap.Logger) *BranchingService {
	return &BranchingService{client: client, logger: logger}
}

// aiFollowUpPayload is the structured shape expected back from the
// reasoning service. All fields are optional; normalization fills in
// defaults for anything missing or malformed.
type aiFollowUpPayload struct {
	ShouldFollowUp      bool    `json:"shouldFollowUp"`
	Reason              string  `json:"reason"`
	Confidence          float64 `json:"confidence"`
	SuggestDomainSwitch bool    `json:"suggestDomainSwitch"`
	Question            *struct {
		Text    string `json:"text"`
		Options []struct {
			Value        string `json:"value"`
			Label        string `json:"label"`
			ConcernLevel string `json:"concernLevel"`
			Points       int    `json:"points"`
		} `json:"options"`
	} `json:"question"`
}

// GenerateFollowUp runs the branching algorithm for one triggering
// answer. maxDepth bounds a single follow-up chain; maxPerDomain bounds
// the total adaptive questions inside one domain.
func (s *BranchingService) GenerateFollowUp(ctx context.Context, session *model.AssessmentSession, trigger model.QuestionAnswer, currentDepth, maxDepth, maxPerDomain int) *model.BranchingDecision {
	// Hard stops, no external call
	if currentDepth >= maxDepth {
		return &model.BranchingDecision{
			ShouldContinueBranching: false,
			BranchingReason:         "maximum follow-up depth reached",
			Confidence:              1.0,
		}
	}
	if session.AdaptiveCountForDomain(trigger.Domain) >= maxPerDomain {
		return &model.BranchingDecision{
			ShouldContinueBranching: false,
			BranchingReason:         "domain follow-up budget exhausted",
			Confidence:              1.0,
			SuggestDomainSwitch:     true,
		}
	}

	prompt := s.buildFollowUpPrompt(session, trigger)
	response, err := s.client.Complete(ctx, prompt, 1024, 0.4)
	if err != nil {
		s.logger.Info("branching falling back to rule table",
			zap.String("sessionId", session.ID),
			zap.String("domain", string(trigger.Domain)),
			zap.Error(err))
		return s.ruleFallback(trigger, currentDepth)
	}

	decision, ok := s.parseDecision(response, trigger, currentDepth)
	if !ok {
		return s.ruleFallback(trigger, currentDepth)
	}
	return decision
}

func (s *BranchingService) parseDecision(response string, trigger model.QuestionAnswer, currentDepth int) (*model.BranchingDecision, bool) {
	raw, err := extractJSON(response)
	if err != nil {
		s.logger.Warn("branching response had no JSON", zap.Error(err))
		return nil, false
	}

	var payload aiFollowUpPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		s.logger.Warn("branching response failed to parse", zap.Error(err))
		return nil, false
	}

	confidence := payload.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = 0.5
	}

	if !payload.ShouldFollowUp {
		reason := payload.Reason
		if reason == "" {
			reason = "no further probing warranted"
		}
		return &model.BranchingDecision{
			ShouldContinueBranching: false,
			BranchingReason:         reason,
			Confidence:              confidence,
			SuggestDomainSwitch:     payload.SuggestDomainSwitch,
		}, true
	}

	if payload.Question == nil || strings.TrimSpace(payload.Question.Text) == "" {
		// Claimed a follow-up but produced none; treat as provider failure
		return nil, false
	}

	options := make([]model.AnswerOption, 0, len(payload.Question.Options))
	for _, o := range payload.Question.Options {
		if o.Value == "" || o.Label == "" {
			continue
		}
		options = append(options, model.AnswerOption{
			Value:        o.Value,
			Label:        o.Label,
			ConcernLevel: normalizeConcern(o.ConcernLevel),
			Points:       clampPoints(o.Points),
		})
	}
	options = normalizeOptions(options)

	question := &model.Question{
		ID:               adaptiveQuestionID(trigger.QuestionID),
		Domain:           trigger.Domain,
		Text:             payload.Question.Text,
		Type:             model.QuestionTypeMultipleChoice,
		Options:          options,
		GeneratedBy:      model.GeneratedByAI,
		ParentQuestionID: trigger.QuestionID,
		ParentAnswer:     trigger.Answer,
		Depth:            currentDepth + 1,
		BranchingReason:  payload.Reason,
	}

	return &model.BranchingDecision{
		ShouldContinueBranching: true,
		NextQuestion:            question,
		BranchingReason:         payload.Reason,
		Confidence:              confidence,
		SuggestDomainSwitch:     payload.SuggestDomainSwitch,
	}, true
}

// ruleFallback serves a hand-authored adaptive question for the
// triggering domain. It always succeeds.
func (s *BranchingService) ruleFallback(trigger model.QuestionAnswer, currentDepth int) *model.BranchingDecision {
	tmpl, ok := ruleFollowUps[trigger.Domain]
	if !ok {
		tmpl = ruleFollowUps[model.DomainMemory]
	}

	question := tmpl // copy
	question.ID = adaptiveQuestionID(trigger.QuestionID)
	question.Options = append([]model.AnswerOption{}, tmpl.Options...)
	question.GeneratedBy = model.GeneratedByRule
	question.ParentQuestionID = trigger.QuestionID
	question.ParentAnswer = trigger.Answer
	question.Depth = currentDepth + 1
	question.BranchingReason = "rule-based follow-up after a concerning answer"

	return &model.BranchingDecision{
		ShouldContinueBranching: true,
		NextQuestion:            &question,
		BranchingReason:         question.BranchingReason,
		Confidence:              0.75,
	}
}

func (s *BranchingService) buildFollowUpPrompt(session *model.AssessmentSession, trigger model.QuestionAnswer) string {
	var sb strings.Builder

	sb.WriteString("You are assisting a caregiver-administered cognitive screening. ")
	sb.WriteString("Decide whether one follow-up question is warranted after a concerning answer. Return ONLY valid JSON:\n")
	sb.WriteString(`{
  "shouldFollowUp": true or false,
  "reason": "one sentence",
  "confidence": 0.0 to 1.0,
  "suggestDomainSwitch": true or false,
  "question": {
    "text": "the follow-up question, addressed to the caregiver",
    "options": [
      {"value": "snake_case", "label": "display text", "concernLevel": "none|mild|moderate|concerning", "points": 0}
    ]
  }
}
`)
	sb.WriteString("\nRules: the question must ask what the caregiver OBSERVES about the subject, never a cognitive test administered to the subject. ")
	sb.WriteString("It must be observational and non-diagnostic, with 3-4 labeled options ordered from least to most concerning.\n")

	sb.WriteString(fmt.Sprintf("\nSubject: %s", session.ElderName))
	if session.ElderAge > 0 {
		sb.WriteString(fmt.Sprintf(", age %d", session.ElderAge))
	}
	if len(session.KnownConditions) > 0 {
		sb.WriteString(", known conditions: " + strings.Join(session.KnownConditions, ", "))
	}
	sb.WriteString(fmt.Sprintf("\nDomain: %s\n", trigger.Domain))

	domainAnswers := session.AnswersForDomain(trigger.Domain)
	if len(domainAnswers) > 0 {
		sb.WriteString("\nAnswers so far in this domain:\n")
		for _, a := range domainAnswers {
			sb.WriteString(fmt.Sprintf("- %q -> %q (%s)\n", a.QuestionText, a.AnswerLabel, a.ConcernLevel))
		}
	}

	if tail := transcriptTail(session, 6); tail != "" {
		sb.WriteString("\nConversation so far:\n")
		sb.WriteString(tail)
	}

	sb.WriteString(fmt.Sprintf("\nTriggering answer: %q -> %q (concern level: %s)\n",
		trigger.QuestionText, trigger.AnswerLabel, trigger.ConcernLevel))

	return sb.String()
}

// transcriptTail formats the last n transcript entries for use as
// prompt context
func transcriptTail(session *model.AssessmentSession, n int) string {
	entries := session.ConversationContext
	if len(entries) == 0 {
		return ""
	}
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("[%s] %s\n", e.Role, e.Text))
	}
	return sb.String()
}

// defaultOptionLadder replaces malformed externally supplied option
// lists rather than letting them into the session
func defaultOptionLadder() []model.AnswerOption {
	return []model.AnswerOption{
		{Value: "no", Label: "No, not observed", ConcernLevel: model.ConcernNone, Points: 0},
		{Value: "occasionally", Label: "Occasionally", ConcernLevel: model.ConcernMild, Points: 1},
		{Value: "regularly", Label: "Regularly", ConcernLevel: model.ConcernModerate, Points: 2},
		{Value: "constantly", Label: "Constantly", ConcernLevel: model.ConcernConcerning, Points: 3},
	}
}

func normalizeOptions(options []model.AnswerOption) []model.AnswerOption {
	if len(options) < 2 {
		return defaultOptionLadder()
	}
	if len(options) > 4 {
		options = options[:4]
	}
	return options
}

func normalizeConcern(raw string) model.ConcernLevel {
	switch model.ConcernLevel(strings.ToLower(strings.TrimSpace(raw))) {
	case model.ConcernMild:
		return model.ConcernMild
	case model.ConcernModerate:
		return model.ConcernModerate
	case model.ConcernConcerning:
		return model.ConcernConcerning
	default:
		return model.ConcernNone
	}
}

func clampPoints(p int) int {
	if p < 0 {
		return 0
	}
	if p > 4 {
		return 4
	}
	return p
}

func adaptiveQuestionID(parentID string) string {
	return fmt.Sprintf("adaptive_%s_%s", parentID, uuid.NewString()[:8])
}

// ruleFollowUps is the static fallback table: one adaptive question per
// domain, each safe to ask with no context beyond the triggering answer
var ruleFollowUps = map[model.Domain]model.Question{
	model.DomainMemory: {
		Domain: model.DomainMemory,
		Text:   "When they forget something, does a reminder help them recall it, or does the memory seem completely gone?",
		Type:   model.QuestionTypeMultipleChoice,
		Options: []model.AnswerOption{
			{Value: "recalls_with_hint", Label: "A small hint usually brings it back", ConcernLevel: model.ConcernMild, Points: 1},
			{Value: "partial_recall", Label: "They recall parts, but pieces stay missing", ConcernLevel: model.ConcernModerate, Points: 2},
			{Value: "no_recall", Label: "The memory seems completely gone, even with reminders", ConcernLevel: model.ConcernConcerning, Points: 3},
			{Value: "not_sure", Label: "I'm not sure", ConcernLevel: model.ConcernNone, Points: 0},
		},
	},
	model.DomainOrientation: {
		Domain: model.DomainOrientation,
		Text:   "When they seem confused about time or place, how long does the confusion usually last?",
		Type:   model.QuestionTypeMultipleChoice,
		Options: []model.AnswerOption{
			{Value: "moments", Label: "A few moments, then they reorient themselves", ConcernLevel: model.ConcernMild, Points: 1},
			{Value: "with_help", Label: "Until someone helps them reorient", ConcernLevel: model.ConcernModerate, Points: 2},
			{Value: "extended", Label: "It can last hours or recur through the day", ConcernLevel: model.ConcernConcerning, Points: 3},
			{Value: "not_sure", Label: "I'm not sure", ConcernLevel: model.ConcernNone, Points: 0},
		},
	},
	model.DomainAttention: {
		Domain: model.DomainAttention,
		Text:   "When they lose focus, can they pick the activity back up on their own?",
		Type:   model.QuestionTypeMultipleChoice,
		Options: []model.AnswerOption{
			{Value: "resumes", Label: "Yes, they usually return to it themselves", ConcernLevel: model.ConcernMild, Points: 1},
			{Value: "needs_prompt", Label: "Only if someone prompts them", ConcernLevel: model.ConcernModerate, Points: 2},
			{Value: "abandons", Label: "No, the task is usually abandoned", ConcernLevel: model.ConcernConcerning, Points: 3},
			{Value: "not_sure", Label: "I'm not sure", ConcernLevel: model.ConcernNone, Points: 0},
		},
	},
	model.DomainLanguage: {
		Domain: model.DomainLanguage,
		Text:   "When they can't find a word, what do they usually do?",
		Type:   model.QuestionTypeMultipleChoice,
		Options: []model.AnswerOption{
			{Value: "describes", Label: "Describe the thing another way until it comes", ConcernLevel: model.ConcernMild, Points: 1},
			{Value: "substitutes", Label: "Use a wrong or vague word without noticing", ConcernLevel: model.ConcernModerate, Points: 2},
			{Value: "gives_up", Label: "Stop talking or give up on the sentence", ConcernLevel: model.ConcernConcerning, Points: 3},
			{Value: "not_sure", Label: "I'm not sure", ConcernLevel: model.ConcernNone, Points: 0},
		},
	},
	model.DomainExecutive: {
		Domain: model.DomainExecutive,
		Text:   "With multi-step tasks they used to manage, such as preparing a meal, what do you observe now?",
		Type:   model.QuestionTypeMultipleChoice,
		Options: []model.AnswerOption{
			{Value: "slower", Label: "They manage, just more slowly", ConcernLevel: model.ConcernMild, Points: 1},
			{Value: "skips_steps", Label: "They skip or scramble steps", ConcernLevel: model.ConcernModerate, Points: 2},
			{Value: "cannot_complete", Label: "They can no longer complete the task", ConcernLevel: model.ConcernConcerning, Points: 3},
			{Value: "not_sure", Label: "I'm not sure", ConcernLevel: model.ConcernNone, Points: 0},
		},
	},
	model.DomainMood: {
		Domain: model.DomainMood,
		Text:   "When their mood shifts suddenly, is there usually an identifiable trigger?",
		Type:   model.QuestionTypeMultipleChoice,
		Options: []model.AnswerOption{
			{Value: "clear_trigger", Label: "Yes, something specific usually sets it off", ConcernLevel: model.ConcernMild, Points: 1},
			{Value: "sometimes", Label: "Sometimes, but often it comes out of nowhere", ConcernLevel: model.ConcernModerate, Points: 2},
			{Value: "no_trigger", Label: "No, the changes seem to come from nothing", ConcernLevel: model.ConcernConcerning, Points: 3},
			{Value: "not_sure", Label: "I'm not sure", ConcernLevel: model.ConcernNone, Points: 0},
		},
	},
}
