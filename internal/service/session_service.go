package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cognicare/internal/cache"
	"cognicare/internal/model"
	"cognicare/internal/repository"
)

var (
	// ErrSessionNotFound means the caller referenced a session that does
	// not exist; a caller bug, never retried or absorbed
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionClosed means the caller tried to mutate a completed or
	// abandoned session; protects against double submission
	ErrSessionClosed = errors.New("session is not in progress")
)

// CreateSessionInput carries subject and operator identity for a new run
type CreateSessionInput struct {
	GroupID         string   `json:"groupId"`
	ElderID         string   `json:"elderId"`
	ElderName       string   `json:"elderName"`
	ElderAge        int      `json:"elderAge,omitempty"`
	KnownConditions []string `json:"knownConditions,omitempty"`
	CaregiverID     string   `json:"caregiverId"`
	CaregiverName   string   `json:"caregiverName"`
}

// SessionService is the assessment session state machine. A session
// moves in_progress -> completed or abandoned, one way, terminal.
type SessionService struct {
	bank   *QuestionBank
	repo   repository.SessionRepo
	cache  cache.SessionCache
	logger *zap.Logger
}

// NewSessionService creates a new session service
func NewSessionService(bank *QuestionBank, repo repository.SessionRepo, sessionCache cache.SessionCache, logger *zap.Logger) *SessionService {
	return &SessionService{
		bank:   bank,
		repo:   repo,
		cache:  sessionCache,
		logger: logger,
	}
}

// Bank exposes the question bank for callers that need to resolve
// baseline question ids
func (s *SessionService) Bank() *QuestionBank {
	return s.bank
}

// Create allocates an in-progress session with zero answers and seeds
// the transcript with one system entry describing the subject
func (s *SessionService) Create(ctx context.Context, input CreateSessionInput) (*model.AssessmentSession, error) {
	now := time.Now()

	subject := fmt.Sprintf("Screening subject: %s", input.ElderName)
	if input.ElderAge > 0 {
		subject += fmt.Sprintf(", age %d", input.ElderAge)
	}
	if len(input.KnownConditions) > 0 {
		subject += ", known conditions: " + strings.Join(input.KnownConditions, ", ")
	}

	session := &model.AssessmentSession{
		ID:              model.NewSessionID(input.GroupID, input.ElderID, now),
		GroupID:         input.GroupID,
		ElderID:         input.ElderID,
		ElderName:       input.ElderName,
		ElderAge:        input.ElderAge,
		KnownConditions: input.KnownConditions,
		CaregiverID:     input.CaregiverID,
		CaregiverName:   input.CaregiverName,
		Status:          model.SessionInProgress,
		Answers:         []model.QuestionAnswer{},
		CurrentDomain:   model.DomainOrder[0],
		ConversationContext: []model.TranscriptEntry{
			{
				ID:        uuid.NewString(),
				Role:      "system",
				Text:      subject,
				Timestamp: now,
			},
		},
		StartedAt: now,
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if err := s.cache.Set(ctx, session); err != nil {
		s.logger.Warn("session cache set failed", zap.String("sessionId", session.ID), zap.Error(err))
	}

	s.logger.Info("session created",
		zap.String("sessionId", session.ID),
		zap.String("elderId", input.ElderID),
		zap.String("caregiverId", input.CaregiverID))

	return session, nil
}

// GetSession loads a session, preferring the cache
func (s *SessionService) GetSession(ctx context.Context, id string) (*model.AssessmentSession, error) {
	if cached, err := s.cache.Get(ctx, id); err == nil && cached != nil {
		return cached, nil
	}

	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// SaveAnswer appends one answer to an in-progress session, recomputes
// domain progress, and reports whether the answer crosses the concern
// threshold of a branching baseline question. One durable write per call.
func (s *SessionService) SaveAnswer(ctx context.Context, sessionID string, question *model.Question, answerValue, answerLabel string) (*model.AssessmentSession, bool, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	if session.Status != model.SessionInProgress {
		return nil, false, ErrSessionClosed
	}

	// Unrecognized answer values are normalized, never rejected
	concern := model.ConcernNone
	points := 0
	if opt := question.OptionByValue(answerValue); opt != nil {
		concern = opt.ConcernLevel
		points = opt.Points
		if answerLabel == "" {
			answerLabel = opt.Label
		}
	}

	now := time.Now()
	answer := model.QuestionAnswer{
		QuestionID:       question.ID,
		QuestionText:     s.bank.FormatQuestionText(question, session.ElderName),
		Domain:           question.Domain,
		Type:             question.Type,
		Answer:           answerValue,
		AnswerLabel:      answerLabel,
		ConcernLevel:     concern,
		Points:           points,
		AnsweredAt:       now,
		IsAdaptive:       question.IsAdaptive(),
		Depth:            question.Depth,
		ParentQuestionID: question.ParentQuestionID,
	}

	session.Answers = append(session.Answers, answer)
	if answer.IsAdaptive {
		session.AdaptiveQuestionsAsked++
	}

	s.recomputeProgress(session)

	session.ConversationContext = append(session.ConversationContext, model.TranscriptEntry{
		ID:        uuid.NewString(),
		Role:      "caregiver",
		Text:      fmt.Sprintf("Q: %s A: %s", answer.QuestionText, answerLabel),
		Timestamp: now,
	})

	if err := s.repo.Update(ctx, session); err != nil {
		return nil, false, fmt.Errorf("save answer: %w", err)
	}
	if err := s.cache.Set(ctx, session); err != nil {
		s.logger.Warn("session cache set failed", zap.String("sessionId", session.ID), zap.Error(err))
	}

	shouldBranch := !answer.IsAdaptive && s.bank.ShouldTriggerFollowUp(question, answerValue)
	return session, shouldBranch, nil
}

// recomputeProgress rebuilds baselineQuestionsAnswered,
// domainsCompleted and currentDomain from the answer log. Full
// recomputation, not incremental patching: answers are append-only and
// a correction entry must not drift the projection.
func (s *SessionService) recomputeProgress(session *model.AssessmentSession) {
	answered := make(map[model.Domain]map[string]bool)
	for _, a := range session.Answers {
		if a.IsAdaptive {
			continue
		}
		if answered[a.Domain] == nil {
			answered[a.Domain] = make(map[string]bool)
		}
		answered[a.Domain][a.QuestionID] = true
	}

	var completed []model.Domain
	current := model.DomainOrder[len(model.DomainOrder)-1]
	currentSet := false
	distinct := 0
	for _, d := range model.DomainOrder {
		distinct += len(answered[d])
		total := len(s.bank.QuestionsForDomain(d))
		if total > 0 && len(answered[d]) >= total {
			completed = append(completed, d)
		} else if !currentSet {
			current = d
			currentSet = true
		}
	}

	session.BaselineQuestionsAnswered = distinct
	session.DomainsCompleted = completed
	session.CurrentDomain = current
}

// NextQuestion returns the next unanswered baseline question with the
// elder's name substituted, or nil when the battery is exhausted. Only
// non-adaptive answers count toward traversal.
func (s *SessionService) NextQuestion(session *model.AssessmentSession) *model.Question {
	answeredIDs := session.BaselineAnsweredIDs()
	lastAnswered := ""
	if n := len(answeredIDs); n > 0 {
		lastAnswered = answeredIDs[n-1]
	}

	next := s.bank.NextBaselineQuestion(lastAnswered, answeredIDs)
	if next == nil {
		return nil
	}

	q := *next
	q.Text = s.bank.FormatQuestionText(&q, session.ElderName)
	return &q
}

// IsComplete reports whether every baseline question has been answered.
// Distinct questions only: corrections re-answer a question, they do
// not advance the battery.
func (s *SessionService) IsComplete(session *model.AssessmentSession) bool {
	distinct := make(map[string]bool, len(session.Answers))
	for _, a := range session.BaselineAnswers() {
		distinct[a.QuestionID] = true
	}
	return len(distinct) >= s.bank.TotalQuestions()
}

// Complete moves the session to its terminal completed state. All
// domains are force-marked complete, covering runs where adaptive-only
// branches left a domain short by the strict per-question rule.
func (s *SessionService) Complete(ctx context.Context, sessionID string) (*model.AssessmentSession, error) {
	return s.close(ctx, sessionID, model.SessionCompleted)
}

// Abandon moves the session to its terminal abandoned state
func (s *SessionService) Abandon(ctx context.Context, sessionID string) (*model.AssessmentSession, error) {
	return s.close(ctx, sessionID, model.SessionAbandoned)
}

func (s *SessionService) close(ctx context.Context, sessionID string, status model.SessionStatus) (*model.AssessmentSession, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionInProgress {
		return nil, ErrSessionClosed
	}

	now := time.Now()
	session.Status = status
	session.EndedAt = &now
	if status == model.SessionCompleted {
		session.DomainsCompleted = append([]model.Domain{}, model.DomainOrder...)
	}

	if err := s.repo.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("close session: %w", err)
	}
	if err := s.cache.Delete(ctx, session.ID); err != nil {
		s.logger.Warn("session cache delete failed", zap.String("sessionId", session.ID), zap.Error(err))
	}

	s.logger.Info("session closed",
		zap.String("sessionId", session.ID),
		zap.String("status", string(status)))

	return session, nil
}
