package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"cognicare/internal/service"
	"cognicare/internal/transport/rest/handler"
)

// Container holds all dependencies for the router
type Container struct {
	SessionService   *service.SessionService
	BranchingService *service.BranchingService
	ResultService    *service.ResultService
}

// NewRouter creates the API router with all endpoints. Authentication
// and tenancy are enforced upstream by the caller, not here.
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	sessionHandler := handler.NewSessionHandler(c.SessionService, c.BranchingService, c.ResultService)
	resultHandler := handler.NewResultHandler(c.ResultService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/sessions", sessionHandler.Create).Methods("POST", "OPTIONS")
	v1.HandleFunc("/sessions/{sessionId}", sessionHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/sessions/{sessionId}/answers", sessionHandler.SubmitAnswer).Methods("POST", "OPTIONS")
	v1.HandleFunc("/sessions/{sessionId}/complete", sessionHandler.Complete).Methods("POST", "OPTIONS")
	v1.HandleFunc("/sessions/{sessionId}/abandon", sessionHandler.Abandon).Methods("POST", "OPTIONS")

	v1.HandleFunc("/results/{resultId}", resultHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/results/{resultId}/review", resultHandler.MarkReviewed).Methods("POST", "OPTIONS")
	v1.HandleFunc("/groups/{groupId}/elders/{elderId}/results/latest", resultHandler.GetLatest).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
