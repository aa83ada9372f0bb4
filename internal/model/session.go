package model

import (
	"fmt"
	"time"
)

// SessionStatus is the assessment session lifecycle state
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionAbandoned  SessionStatus = "abandoned"
)

// QuestionAnswer is one recorded answer. Answers are append-only: once
// written they are never edited or removed; corrections are new entries.
type QuestionAnswer struct {
	QuestionID       string       `json:"questionId" bson:"questionId"`
	QuestionText     string       `json:"questionText" bson:"questionText"`
	Domain           Domain       `json:"domain" bson:"domain"`
	Type             QuestionType `json:"type" bson:"type"`
	Answer           string       `json:"answer" bson:"answer"`
	AnswerLabel      string       `json:"answerLabel" bson:"answerLabel"`
	ConcernLevel     ConcernLevel `json:"concernLevel" bson:"concernLevel"`
	Points           int          `json:"points" bson:"points"`
	AnsweredAt       time.Time    `json:"answeredAt" bson:"answeredAt"`
	IsAdaptive       bool         `json:"isAdaptive" bson:"isAdaptive"`
	Depth            int          `json:"depth,omitempty" bson:"depth,omitempty"`
	ParentQuestionID string       `json:"parentQuestionId,omitempty" bson:"parentQuestionId,omitempty"`
}

// TranscriptEntry is one line of the session's conversation log, used
// only as prompt context for reasoning-service calls
type TranscriptEntry struct {
	ID        string    `json:"id" bson:"id"`
	Role      string    `json:"role" bson:"role"` // "system", "caregiver", "engine"
	Text      string    `json:"text" bson:"text"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// AssessmentSession is the aggregate root for one screening run. It
// exclusively owns its answers, transcript, and any adaptive questions
// spawned during the run.
type AssessmentSession struct {
	ID              string   `json:"id" bson:"_id"`
	GroupID         string   `json:"groupId" bson:"groupId"`
	ElderID         string   `json:"elderId" bson:"elderId"`
	ElderName       string   `json:"elderName" bson:"elderName"`
	ElderAge        int      `json:"elderAge,omitempty" bson:"elderAge,omitempty"`
	KnownConditions []string `json:"knownConditions,omitempty" bson:"knownConditions,omitempty"`

	CaregiverID   string `json:"caregiverId" bson:"caregiverId"`
	CaregiverName string `json:"caregiverName" bson:"caregiverName"`

	Status        SessionStatus    `json:"status" bson:"status"`
	Answers       []QuestionAnswer `json:"answers" bson:"answers"`
	CurrentDomain Domain           `json:"currentDomain" bson:"currentDomain"`

	BaselineQuestionsAnswered int      `json:"baselineQuestionsAnswered" bson:"baselineQuestionsAnswered"`
	AdaptiveQuestionsAsked    int      `json:"adaptiveQuestionsAsked" bson:"adaptiveQuestionsAsked"`
	DomainsCompleted          []Domain `json:"domainsCompleted" bson:"domainsCompleted"`

	ConversationContext []TranscriptEntry `json:"conversationContext" bson:"conversationContext"`

	StartedAt time.Time  `json:"startedAt" bson:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty" bson:"endedAt,omitempty"`

	// Version guards against lost updates from near-simultaneous writes
	// to the same session document. Incremented on every update.
	Version int64 `json:"version" bson:"version"`
}

// NewSessionID derives a unique session identity from group, elder and
// wall clock, avoiding a central counter
func NewSessionID(groupID, elderID string, at time.Time) string {
	return fmt.Sprintf("session_%s_%s_%d", groupID, elderID, at.UnixMilli())
}

// BaselineAnswers returns only the non-adaptive answers, in order
func (s *AssessmentSession) BaselineAnswers() []QuestionAnswer {
	out := make([]QuestionAnswer, 0, len(s.Answers))
	for _, a := range s.Answers {
		if !a.IsAdaptive {
			out = append(out, a)
		}
	}
	return out
}

// LatestAnswers collapses the append-only log to the most recent entry
// per question id, preserving first-seen order. A correction supersedes
// the answer it amends.
func (s *AssessmentSession) LatestAnswers() []QuestionAnswer {
	idx := make(map[string]int, len(s.Answers))
	out := make([]QuestionAnswer, 0, len(s.Answers))
	for _, a := range s.Answers {
		if i, ok := idx[a.QuestionID]; ok {
			out[i] = a
			continue
		}
		idx[a.QuestionID] = len(out)
		out = append(out, a)
	}
	return out
}

// LatestAnswersForDomain returns the effective (post-correction) answers
// for a domain, adaptive included, in first-seen order
func (s *AssessmentSession) LatestAnswersForDomain(d Domain) []QuestionAnswer {
	var out []QuestionAnswer
	for _, a := range s.LatestAnswers() {
		if a.Domain == d {
			out = append(out, a)
		}
	}
	return out
}

// AnswersForDomain returns every answer recorded for a domain, adaptive
// included, in order
func (s *AssessmentSession) AnswersForDomain(d Domain) []QuestionAnswer {
	var out []QuestionAnswer
	for _, a := range s.Answers {
		if a.Domain == d {
			out = append(out, a)
		}
	}
	return out
}

// AdaptiveCountForDomain counts adaptive answers recorded in a domain
func (s *AssessmentSession) AdaptiveCountForDomain(d Domain) int {
	n := 0
	for _, a := range s.Answers {
		if a.IsAdaptive && a.Domain == d {
			n++
		}
	}
	return n
}

// BaselineAnsweredIDs returns the ids of the answered baseline questions
func (s *AssessmentSession) BaselineAnsweredIDs() []string {
	var ids []string
	for _, a := range s.Answers {
		if !a.IsAdaptive {
			ids = append(ids, a.QuestionID)
		}
	}
	return ids
}

// IsDomainCompleted reports whether the domain is in the completed set
func (s *AssessmentSession) IsDomainCompleted(d Domain) bool {
	for _, c := range s.DomainsCompleted {
		if c == d {
			return true
		}
	}
	return false
}
