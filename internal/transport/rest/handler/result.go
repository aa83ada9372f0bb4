package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"cognicare/internal/service"
)

// ResultHandler handles assessment result endpoints
type ResultHandler struct {
	resultSvc *service.ResultService
}

// NewResultHandler creates a new result handler
func NewResultHandler(resultSvc *service.ResultService) *ResultHandler {
	return &ResultHandler{resultSvc: resultSvc}
}

// Get handles GET /v1/results/{resultId}
func (h *ResultHandler) Get(w http.ResponseWriter, r *http.Request) {
	resultID := mux.Vars(r)["resultId"]

	result, err := h.resultSvc.GetResult(r.Context(), resultID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result == nil {
		writeError(w, http.StatusNotFound, "result not found")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetLatest handles GET /v1/groups/{groupId}/elders/{elderId}/results/latest
func (h *ResultHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	result, err := h.resultSvc.GetLatestResult(r.Context(), vars["groupId"], vars["elderId"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result == nil {
		writeError(w, http.StatusNotFound, "no results for this elder")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// MarkReviewed handles POST /v1/results/{resultId}/review
func (h *ResultHandler) MarkReviewed(w http.ResponseWriter, r *http.Request) {
	resultID := mux.Vars(r)["resultId"]

	result, err := h.resultSvc.GetResult(r.Context(), resultID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result == nil {
		writeError(w, http.StatusNotFound, "result not found")
		return
	}

	if err := h.resultSvc.MarkReviewed(r.Context(), resultID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "reviewed"})
}
