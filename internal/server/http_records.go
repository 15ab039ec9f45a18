package server

import (
	"encoding/json"
	"net/http"

	"github.com/alfredjeanlab/evalvault/internal/model"
	"github.com/alfredjeanlab/evalvault/internal/session"
)

type registerRequest struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	ConsentGiven bool   `json:"consent_given"`
	SessionLabel string `json:"session_label,omitempty"`
}

// handleRegister handles POST /v1/registrations.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	reg, err := s.coordinator.Register(r.Context(), session.RegisterInput{
		Email:        in.Email,
		Name:         in.Name,
		ConsentGiven: in.ConsentGiven,
		SessionLabel: in.SessionLabel,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, reg)
}

type ratingRequest struct {
	Email       string                          `json:"email"`
	QuestionKey string                          `json:"question_key"`
	Question    string                          `json:"question,omitempty"`
	Industry    string                          `json:"industry,omitempty"`
	Ratings     map[string]model.ResponseRating `json:"ratings"`
}

// handleSubmitRating handles POST /v1/ratings.
func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	var in ratingRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rating, err := s.coordinator.SubmitRating(r.Context(), session.RatingInput{
		Email:       in.Email,
		QuestionKey: in.QuestionKey,
		Question:    in.Question,
		Industry:    in.Industry,
		Ratings:     in.Ratings,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, rating)
}

type finalRequest struct {
	Email              string                   `json:"email"`
	OverallRatings     model.OverallRatings     `json:"overall_ratings"`
	Feedback           model.Feedback           `json:"detailed_feedback"`
	QuestionsEvaluated model.QuestionsEvaluated `json:"questions_evaluated"`
}

type finalResponse struct {
	*model.FinalAssessment
	CompletionWarning string `json:"completion_warning,omitempty"`
}

// handleSubmitFinal handles POST /v1/final. The assessment is durable on any
// 201; completion_warning flags that the registration completed-flag update
// did not land.
func (s *Server) handleSubmitFinal(w http.ResponseWriter, r *http.Request) {
	var in finalRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	assessment, warning, err := s.coordinator.SubmitFinalAssessment(r.Context(), session.AssessmentInput{
		Email:              in.Email,
		OverallRatings:     in.OverallRatings,
		Feedback:           in.Feedback,
		QuestionsEvaluated: in.QuestionsEvaluated,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, finalResponse{
		FinalAssessment:   assessment,
		CompletionWarning: warning,
	})
}

// handleProgress handles GET /v1/progress/{email}.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	progress, err := s.coordinator.Progress(r.Context(), email)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, progress)
}

type metricRequest struct {
	Provider string          `json:"provider,omitempty"`
	Model    string          `json:"model,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

// handleRecordMetric handles POST /v1/metrics-records.
func (s *Server) handleRecordMetric(w http.ResponseWriter, r *http.Request) {
	var in metricRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	metric, err := s.coordinator.RecordMetric(r.Context(), session.MetricInput{
		Provider: in.Provider,
		Model:    in.Model,
		Payload:  in.Payload,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, metric)
}
