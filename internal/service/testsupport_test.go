package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"cognicare/internal/model"
)

// In-memory fakes for the repository and cache interfaces. They honor
// the same contracts as the Mongo/Redis implementations, including the
// session version check.

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]model.AssessmentSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]model.AssessmentSession)}
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *model.AssessmentSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session.Version = 1
	r.sessions[session.ID] = *session
	return nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id string) (*model.AssessmentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := s
	return &copied, nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, session *model.AssessmentSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[session.ID]
	if !ok || stored.Version != session.Version {
		return errors.New("session version conflict")
	}
	session.Version++
	r.sessions[session.ID] = *session
	return nil
}

type fakeSessionCache struct {
	mu       sync.Mutex
	sessions map[string]model.AssessmentSession
}

func newFakeSessionCache() *fakeSessionCache {
	return &fakeSessionCache{sessions: make(map[string]model.AssessmentSession)}
}

func (c *fakeSessionCache) Set(ctx context.Context, session *model.AssessmentSession) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[session.ID] = *session
	return nil
}

func (c *fakeSessionCache) Get(ctx context.Context, id string) (*model.AssessmentSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := s
	return &copied, nil
}

func (c *fakeSessionCache) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, id)
	return nil
}

type fakeResultRepo struct {
	mu      sync.Mutex
	results map[string]model.AssessmentResult
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{results: make(map[string]model.AssessmentResult)}
}

func (r *fakeResultRepo) Save(ctx context.Context, result *model.AssessmentResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[result.ID] = *result
	return nil
}

func (r *fakeResultRepo) GetByID(ctx context.Context, id string) (*model.AssessmentResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[id]
	if !ok {
		return nil, nil
	}
	copied := res
	return &copied, nil
}

func (r *fakeResultRepo) GetLatestByElder(ctx context.Context, groupID, elderID string) (*model.AssessmentResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *model.AssessmentResult
	for _, res := range r.results {
		if res.GroupID != groupID || res.ElderID != elderID {
			continue
		}
		if latest == nil || res.CreatedAt.After(latest.CreatedAt) {
			copied := res
			latest = &copied
		}
	}
	return latest, nil
}

func (r *fakeResultRepo) UpdateReviewStatus(ctx context.Context, id string, status model.ReviewStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[id]
	if !ok {
		return errors.New("result not found")
	}
	res.Status = status
	r.results[id] = res
	return nil
}

type fakeResultCache struct {
	mu     sync.Mutex
	latest map[string]model.AssessmentResult
}

func newFakeResultCache() *fakeResultCache {
	return &fakeResultCache{latest: make(map[string]model.AssessmentResult)}
}

func (c *fakeResultCache) SetLatest(ctx context.Context, result *model.AssessmentResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest[result.GroupID+":"+result.ElderID] = *result
	return nil
}

func (c *fakeResultCache) GetLatest(ctx context.Context, groupID, elderID string) (*model.AssessmentResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.latest[groupID+":"+elderID]
	if !ok {
		return nil, nil
	}
	copied := res
	return &copied, nil
}

func (c *fakeResultCache) InvalidateLatest(ctx context.Context, groupID, elderID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.latest, groupID+":"+elderID)
	return nil
}

// stubProvider returns a canned response or error
type stubProvider struct {
	response string
	err      error
}

func (p *stubProvider) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

// newTestSession builds an in-progress session without going through
// the repositories
func newTestSession() *model.AssessmentSession {
	now := time.Now()
	return &model.AssessmentSession{
		ID:            model.NewSessionID("grp1", "elder1", now),
		GroupID:       "grp1",
		ElderID:       "elder1",
		ElderName:     "Rose",
		ElderAge:      81,
		CaregiverID:   "cg1",
		CaregiverName: "Dana",
		Status:        model.SessionInProgress,
		CurrentDomain: model.DomainOrder[0],
		StartedAt:     now,
	}
}

// answerBaseline appends a baseline answer for the given question id
// using the option at optionIndex
func answerBaseline(bank *QuestionBank, session *model.AssessmentSession, questionID string, optionIndex int) {
	q, ok := bank.GetQuestionByID(questionID)
	if !ok {
		panic("unknown question id " + questionID)
	}
	opt := q.Options[optionIndex]
	session.Answers = append(session.Answers, model.QuestionAnswer{
		QuestionID:   q.ID,
		QuestionText: q.Text,
		Domain:       q.Domain,
		Type:         q.Type,
		Answer:       opt.Value,
		AnswerLabel:  opt.Label,
		ConcernLevel: opt.ConcernLevel,
		Points:       opt.Points,
		AnsweredAt:   time.Now(),
	})
	session.BaselineQuestionsAnswered++
}

// answerAllLowest answers the full battery with each question's
// lowest-concern option
func answerAllLowest(bank *QuestionBank, session *model.AssessmentSession) {
	for _, d := range model.DomainOrder {
		for _, q := range bank.QuestionsForDomain(d) {
			answerBaseline(bank, session, q.ID, 0)
		}
	}
}

// answerDomainHighest answers every question in a domain with its
// highest-point option
func answerDomainHighest(bank *QuestionBank, session *model.AssessmentSession, d model.Domain) {
	for _, q := range bank.QuestionsForDomain(d) {
		best := 0
		for i, o := range q.Options {
			if o.Points > q.Options[best].Points {
				best = i
			}
		}
		answerBaseline(bank, session, q.ID, best)
	}
}
