package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alfredjeanlab/evalvault/internal/blob"
	"github.com/alfredjeanlab/evalvault/internal/collection"
	"github.com/alfredjeanlab/evalvault/internal/identity"
	"github.com/alfredjeanlab/evalvault/internal/model"
	"github.com/alfredjeanlab/evalvault/internal/session"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// Participant endpoints are open; the /v1/admin routes require a valid
// Authorization: Bearer <token> header when authToken is non-empty.
func (s *Server) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/registrations", s.handleRegister)
	mux.HandleFunc("POST /v1/ratings", s.handleSubmitRating)
	mux.HandleFunc("POST /v1/final", s.handleSubmitFinal)
	mux.HandleFunc("GET /v1/progress/{email}", s.handleProgress)
	mux.HandleFunc("POST /v1/metrics-records", s.handleRecordMetric)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	admin := http.NewServeMux()
	admin.HandleFunc("GET /v1/admin/registrations", s.handleListRegistrations)
	admin.HandleFunc("GET /v1/admin/evaluations", s.handleListEvaluations)
	admin.HandleFunc("GET /v1/admin/metrics-records", s.handleListMetrics)
	admin.HandleFunc("GET /v1/admin/stats", s.handleStats)
	mux.Handle("/v1/admin/", AuthMiddleware(authToken, admin))

	return RecoveryMiddleware(LoggingMiddleware(mux, s.logger), s.logger)
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps coordinator errors onto HTTP status codes. Backend
// outages are 502 so callers can distinguish "retry later" from client
// mistakes; nothing else may claim that code.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, identity.ErrInvalidIdentity),
		errors.Is(err, session.ErrConsentRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrAlreadyRegistered),
		errors.Is(err, collection.ErrDuplicateKey):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, collection.ErrLoadFailed), blob.IsTransient(err):
		writeError(w, http.StatusBadGateway, "storage backend unavailable")
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
