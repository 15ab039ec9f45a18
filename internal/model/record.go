// Package model defines the record types persisted by the durable collections.
package model

import (
	"encoding/json"
	"time"
)

// Kind discriminates record variants inside a collection blob.
type Kind string

const (
	KindRegistration    Kind = "registration"
	KindQuestionRating  Kind = "question_rating"
	KindFinalAssessment Kind = "final_assessment"
	KindTechnicalMetric Kind = "technical_metric"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// IsValid checks whether the kind is a known value.
func (k Kind) IsValid() bool {
	switch k {
	case KindRegistration, KindQuestionRating, KindFinalAssessment, KindTechnicalMetric:
		return true
	}
	return false
}

// ResponseLabels are the anonymous labels assigned to the candidate responses
// shown for each question. The mapping from label to underlying model is
// decided per session outside the store and recorded only as the opaque
// Model field on each rating.
var ResponseLabels = []string{"A", "B", "C", "D"}

// Registration is the one-per-participant record. Email is the normalized
// identity key and is unique within the registrations collection.
type Registration struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	Name                string     `json:"name"`
	ConsentGiven        bool       `json:"consent_given"`
	ConsentAt           time.Time  `json:"consent_timestamp"`
	RegisteredAt        time.Time  `json:"registration_timestamp"`
	EvaluationCompleted bool       `json:"evaluation_completed"`
	CompletedAt         *time.Time `json:"evaluation_completed_timestamp,omitempty"`
	SessionLabel        string     `json:"session_label,omitempty"`
}

// ResponseRating holds the per-criterion scores for one labeled response.
// Model carries the deanonymized provider label; the store treats it as
// opaque.
type ResponseRating struct {
	Quality    int    `json:"quality"`
	Relevance  int    `json:"relevance"`
	Accuracy   int    `json:"accuracy"`
	Uniformity int    `json:"uniformity"`
	Model      string `json:"model,omitempty"`
}

// QuestionRating is one participant's scores for all responses to a single
// question. Several QuestionRating records may exist for the same
// (email, question_key) pair; each submission is an independent record.
type QuestionRating struct {
	ID          string                    `json:"id"`
	Email       string                    `json:"email"`
	QuestionKey string                    `json:"question_key"`
	Question    string                    `json:"question,omitempty"`
	Industry    string                    `json:"industry,omitempty"`
	Ratings     map[string]ResponseRating `json:"ratings"`
	CreatedAt   time.Time                 `json:"created_at"`
}

// OverallRatings holds the end-of-session aggregate scores.
type OverallRatings struct {
	Quality    int `json:"overall_quality"`
	Relevance  int `json:"overall_relevance"`
	Accuracy   int `json:"overall_accuracy"`
	Usefulness int `json:"overall_usefulness"`
}

// Feedback holds the free-text portions of the final assessment.
type Feedback struct {
	Strengths       string `json:"strengths"`
	Weaknesses      string `json:"weaknesses"`
	Suggestions     string `json:"suggestions"`
	GeneralComments string `json:"general_comments"`
}

// QuestionsEvaluated summarizes how many questions the participant rated
// before submitting the final assessment.
type QuestionsEvaluated struct {
	RetailCount  int `json:"retail_count"`
	FinanceCount int `json:"finance_count"`
	TotalCount   int `json:"total_count"`
}

// FinalAssessment closes a participant's evaluation. It is the source of
// truth for completion; the Registration completed flag is a denormalized
// convenience.
type FinalAssessment struct {
	ID                 string             `json:"id"`
	Email              string             `json:"email"`
	OverallRatings     OverallRatings     `json:"overall_ratings"`
	Feedback           Feedback           `json:"detailed_feedback"`
	QuestionsEvaluated QuestionsEvaluated `json:"questions_evaluated"`
	CreatedAt          time.Time          `json:"created_at"`
}

// TechnicalMetric is a record produced by the batch LLM pipeline. The store
// persists the payload without interpreting it.
type TechnicalMetric struct {
	ID        string          `json:"id"`
	Provider  string          `json:"provider,omitempty"`
	Model     string          `json:"model,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Record is implemented by every persisted record variant.
type Record interface {
	RecordID() string
	RecordKind() Kind
}

func (r *Registration) RecordID() string    { return r.ID }
func (r *Registration) RecordKind() Kind    { return KindRegistration }
func (r *QuestionRating) RecordID() string  { return r.ID }
func (r *QuestionRating) RecordKind() Kind  { return KindQuestionRating }
func (f *FinalAssessment) RecordID() string { return f.ID }
func (f *FinalAssessment) RecordKind() Kind { return KindFinalAssessment }
func (m *TechnicalMetric) RecordID() string { return m.ID }
func (m *TechnicalMetric) RecordKind() Kind { return KindTechnicalMetric }

// IdentityKey returns the identity key a record belongs to, or "" for record
// kinds that are not owned by a participant.
func IdentityKey(r Record) string {
	switch v := r.(type) {
	case *Registration:
		return v.Email
	case *QuestionRating:
		return v.Email
	case *FinalAssessment:
		return v.Email
	}
	return ""
}
