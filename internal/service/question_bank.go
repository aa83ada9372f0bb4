package service

import (
	"strings"

	"cognicare/internal/model"
)

// QuestionBank is the fixed, ordered catalog of baseline questions.
// Its data is build-time only; nothing mutates it at runtime. Ordering
// defines the default traversal of the battery.
type QuestionBank struct {
	questions []model.Question
	byID      map[string]int
}

// NewQuestionBank builds the bank from the static baseline battery
func NewQuestionBank() *QuestionBank {
	b := &QuestionBank{
		questions: baselineQuestions,
		byID:      make(map[string]int, len(baselineQuestions)),
	}
	for i, q := range b.questions {
		b.byID[q.ID] = i
	}
	return b
}

// GetQuestionByID looks up a baseline question by id
func (b *QuestionBank) GetQuestionByID(id string) (*model.Question, bool) {
	i, ok := b.byID[id]
	if !ok {
		return nil, false
	}
	q := b.questions[i]
	return &q, true
}

// QuestionsForDomain returns the domain's baseline questions in bank order
func (b *QuestionBank) QuestionsForDomain(d model.Domain) []model.Question {
	var out []model.Question
	for _, q := range b.questions {
		if q.Domain == d {
			out = append(out, q)
		}
	}
	return out
}

// NextBaselineQuestion returns the first bank entry after lastAnsweredID
// (or the first entry when lastAnsweredID is empty) whose id is not in
// answeredIDs. A nil return signals the baseline battery is exhausted.
func (b *QuestionBank) NextBaselineQuestion(lastAnsweredID string, answeredIDs []string) *model.Question {
	answered := make(map[string]bool, len(answeredIDs))
	for _, id := range answeredIDs {
		answered[id] = true
	}

	start := 0
	if lastAnsweredID != "" {
		if i, ok := b.byID[lastAnsweredID]; ok {
			start = i + 1
		}
	}

	// Scan forward from the last answered position, then wrap to pick up
	// anything skipped earlier in the battery.
	for offset := 0; offset < len(b.questions); offset++ {
		q := b.questions[(start+offset)%len(b.questions)]
		if !answered[q.ID] {
			return &q
		}
	}
	return nil
}

// FormatQuestionText substitutes the elder's name into the placeholder
func (b *QuestionBank) FormatQuestionText(q *model.Question, elderName string) string {
	if elderName == "" {
		elderName = "your loved one"
	}
	return strings.ReplaceAll(q.Text, "{elderName}", elderName)
}

// ShouldTriggerFollowUp is the sole gate for invoking the branching
// engine: true iff the question branches and the answer value is in its
// concern threshold set
func (b *QuestionBank) ShouldTriggerFollowUp(q *model.Question, answerValue string) bool {
	return q.TriggerFollowUp && q.InConcernThreshold(answerValue)
}

// MaxScoreForDomain sums weight x max(option points) per bank question
// in the domain; the scoring denominator
func (b *QuestionBank) MaxScoreForDomain(d model.Domain) int {
	total := 0
	for _, q := range b.questions {
		if q.Domain == d {
			total += q.Weight * q.MaxOptionPoints()
		}
	}
	return total
}

// TotalQuestions returns the size of the baseline battery
func (b *QuestionBank) TotalQuestions() int {
	return len(b.questions)
}
