// Package events publishes evaluation lifecycle notifications. Publishing is
// best-effort: the durable record store never depends on an event landing.
// Payloads carry hashed identity refs, never raw participant emails.
package events

import "context"

// Event topic constants
const (
	TopicRegistrationCreated = "evalvault.registration.created"
	TopicRatingSubmitted     = "evalvault.rating.submitted"
	TopicAssessmentSubmitted = "evalvault.assessment.submitted"
	TopicEvaluationCompleted = "evalvault.evaluation.completed"
	TopicMetricRecorded      = "evalvault.metric.recorded"
)

// Event types

type RegistrationCreated struct {
	RegistrationID string `json:"registration_id"`
	IdentityRef    string `json:"identity_ref"`
}

type RatingSubmitted struct {
	RatingID    string `json:"rating_id"`
	IdentityRef string `json:"identity_ref"` // hashed, never the raw identity
	QuestionKey string `json:"question_key"`
}

type AssessmentSubmitted struct {
	AssessmentID string `json:"assessment_id"`
	IdentityRef  string `json:"identity_ref"`
}

type EvaluationCompleted struct {
	RegistrationID string `json:"registration_id"`
	IdentityRef    string `json:"identity_ref"`
	CompletedAt    string `json:"completed_at"`
}

type MetricRecorded struct {
	MetricID string `json:"metric_id"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
