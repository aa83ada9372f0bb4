package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"cognicare/internal/model"
	"cognicare/internal/repository"
	"cognicare/internal/service"
)

// Follow-up budgets applied to every session
const (
	maxFollowUpDepth      = 2
	maxFollowUpsPerDomain = 2
)

// SessionHandler handles the assessment session endpoints
type SessionHandler struct {
	sessionSvc   *service.SessionService
	branchingSvc *service.BranchingService
	resultSvc    *service.ResultService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionSvc *service.SessionService, branchingSvc *service.BranchingService, resultSvc *service.ResultService) *SessionHandler {
	return &SessionHandler{
		sessionSvc:   sessionSvc,
		branchingSvc: branchingSvc,
		resultSvc:    resultSvc,
	}
}

// SubmitAnswerRequest is the request body for submitting an answer.
// Baseline answers reference a bank question by id; adaptive answers
// echo back the generated question object from the previous response.
type SubmitAnswerRequest struct {
	QuestionID  string          `json:"questionId,omitempty"`
	Question    *model.Question `json:"question,omitempty"`
	Answer      string          `json:"answer"`
	AnswerLabel string          `json:"answerLabel,omitempty"`
}

// SubmitAnswerResponse tells the caller what to present next: a branch
// question, the next baseline question, or the completion signal
type SubmitAnswerResponse struct {
	Session        *model.AssessmentSession `json:"session"`
	BranchQuestion *model.Question          `json:"branchQuestion,omitempty"`
	NextQuestion   *model.Question          `json:"nextQuestion,omitempty"`
	Completed      bool                     `json:"completed"`
}

// Create handles POST /v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateSessionInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.GroupID == "" || req.ElderID == "" || req.ElderName == "" {
		writeError(w, http.StatusBadRequest, "groupId, elderId and elderName are required")
		return
	}

	session, err := h.sessionSvc.Create(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session":      session,
		"nextQuestion": h.sessionSvc.NextQuestion(session),
	})
}

// Get handles GET /v1/sessions/{sessionId}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	session, err := h.sessionSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	resp := map[string]interface{}{
		"session": session,
	}
	if session.Status == model.SessionInProgress {
		resp["nextQuestion"] = h.sessionSvc.NextQuestion(session)
	}
	writeJSON(w, http.StatusOK, resp)
}

// SubmitAnswer handles POST /v1/sessions/{sessionId}/answers
func (h *SessionHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	var req SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Answer == "" {
		writeError(w, http.StatusBadRequest, "answer is required")
		return
	}

	question, err := h.resolveQuestion(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, shouldBranch, err := h.sessionSvc.SaveAnswer(r.Context(), sessionID, question, req.Answer, req.AnswerLabel)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	resp := SubmitAnswerResponse{Session: session}

	if shouldBranch {
		trigger := session.Answers[len(session.Answers)-1]
		decision := h.branchingSvc.GenerateFollowUp(r.Context(), session, trigger,
			question.Depth, maxFollowUpDepth, maxFollowUpsPerDomain)
		if decision.ShouldContinueBranching && decision.NextQuestion != nil {
			resp.BranchQuestion = decision.NextQuestion
			writeJSON(w, http.StatusOK, resp)
			return
		}
	}

	resp.NextQuestion = h.sessionSvc.NextQuestion(session)
	resp.Completed = resp.NextQuestion == nil && h.sessionSvc.IsComplete(session)
	writeJSON(w, http.StatusOK, resp)
}

// Complete handles POST /v1/sessions/{sessionId}/complete and returns
// the generated result. Idempotent for completed sessions: a repeat
// call returns the existing result, or regenerates it when an earlier
// attempt closed the session but failed to persist the report.
func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	session, err := h.sessionSvc.Complete(r.Context(), sessionID)
	if errors.Is(err, service.ErrSessionClosed) {
		session, err = h.sessionSvc.GetSession(r.Context(), sessionID)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		if session.Status != model.SessionCompleted {
			writeError(w, http.StatusConflict, "session is not in progress")
			return
		}
		if result, rerr := h.resultSvc.GetResult(r.Context(), model.ResultID(session.ID)); rerr == nil && result != nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"session": session,
				"result":  result,
			})
			return
		}
		// Completed but the report is missing: fall through and generate
	} else if err != nil {
		writeSessionError(w, err)
		return
	}

	result, err := h.resultSvc.GenerateResult(r.Context(), session)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": session,
		"result":  result,
	})
}

// Abandon handles POST /v1/sessions/{sessionId}/abandon
func (h *SessionHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	session, err := h.sessionSvc.Abandon(r.Context(), sessionID)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}

func (h *SessionHandler) resolveQuestion(req *SubmitAnswerRequest) (*model.Question, error) {
	if req.QuestionID != "" {
		if q, ok := h.sessionSvc.Bank().GetQuestionByID(req.QuestionID); ok {
			return q, nil
		}
		return nil, errors.New("unknown question id")
	}
	if req.Question != nil && req.Question.IsAdaptive() {
		return req.Question, nil
	}
	return nil, errors.New("questionId or an adaptive question object is required")
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSessionClosed), errors.Is(err, repository.ErrVersionConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
