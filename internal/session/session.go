// Package session coordinates a participant's evaluation lifecycle on top of
// the durable collections: registration, per-question ratings, and the final
// assessment that closes the session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/evalvault/internal/collection"
	"github.com/alfredjeanlab/evalvault/internal/events"
	"github.com/alfredjeanlab/evalvault/internal/identity"
	"github.com/alfredjeanlab/evalvault/internal/idgen"
	"github.com/alfredjeanlab/evalvault/internal/metrics"
	"github.com/alfredjeanlab/evalvault/internal/model"
)

var (
	// ErrConsentRequired is returned when a registration arrives without
	// explicit consent.
	ErrConsentRequired = errors.New("consent is required to register")

	// ErrAlreadyRegistered is returned when the normalized identity already
	// has a registration record.
	ErrAlreadyRegistered = errors.New("identity already registered")
)

// Coordinator owns the three durable collections and enforces the session
// flow: register once, submit ratings, close with a final assessment.
type Coordinator struct {
	registrations *collection.Collection
	evaluations   *collection.Collection
	techMetrics   *collection.Collection
	publisher     events.Publisher
	metrics       *metrics.Metrics
	logger        *slog.Logger
	now           func() time.Time
}

// Options configures a Coordinator. Publisher defaults to the noop publisher
// and Logger to slog.Default(); Metrics may be nil.
type Options struct {
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Now       func() time.Time
}

// NewCoordinator wires a Coordinator over its three collections.
func NewCoordinator(registrations, evaluations, techMetrics *collection.Collection, opts Options) *Coordinator {
	pub := opts.Publisher
	if pub == nil {
		pub = &events.NoopPublisher{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		registrations: registrations,
		evaluations:   evaluations,
		techMetrics:   techMetrics,
		publisher:     pub,
		metrics:       opts.Metrics,
		logger:        logger,
		now:           now,
	}
}

// RegisterInput carries the participant-supplied registration fields.
type RegisterInput struct {
	Email        string
	Name         string
	ConsentGiven bool
	SessionLabel string
}

// Register creates the one-per-identity registration record. The email is
// normalized before any comparison, so case and whitespace variants of the
// same address cannot register twice.
func (c *Coordinator) Register(ctx context.Context, in RegisterInput) (*model.Registration, error) {
	email, err := identity.Normalize(in.Email)
	if err != nil {
		return nil, err
	}
	if !in.ConsentGiven {
		return nil, ErrConsentRequired
	}

	id, err := idgen.Generate()
	if err != nil {
		return nil, fmt.Errorf("generating registration id: %w", err)
	}
	now := c.now().UTC()
	reg := &model.Registration{
		ID:           id,
		Email:        email,
		Name:         in.Name,
		ConsentGiven: true,
		ConsentAt:    now,
		RegisteredAt: now,
		SessionLabel: in.SessionLabel,
	}
	if err := model.ValidateRegistration(reg); err != nil {
		return nil, err
	}

	start := c.now()
	if err := c.registrations.Append(ctx, reg); err != nil {
		c.countAppendFailure(c.registrations.Name(), err)
		if errors.Is(err, collection.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyRegistered, identity.HashForLog(email))
		}
		return nil, err
	}
	c.metrics.IncrementAppended(c.registrations.Name())
	c.metrics.ObserveAppend(c.registrations.Name(), start)

	c.publish(ctx, events.TopicRegistrationCreated, events.RegistrationCreated{
		RegistrationID: reg.ID,
		IdentityRef:    identity.HashForLog(email),
	})
	c.logger.Info("participant registered", "id", reg.ID, "identity", identity.HashForLog(email))
	return reg, nil
}

// RatingInput carries one question's scores for all labeled responses.
type RatingInput struct {
	Email       string
	QuestionKey string
	Question    string
	Industry    string
	Ratings     map[string]model.ResponseRating
}

// SubmitRating appends one per-question rating record. Repeat submissions for
// the same question are kept as independent records.
func (c *Coordinator) SubmitRating(ctx context.Context, in RatingInput) (*model.QuestionRating, error) {
	email, err := identity.Normalize(in.Email)
	if err != nil {
		return nil, err
	}

	id, err := idgen.Generate()
	if err != nil {
		return nil, fmt.Errorf("generating rating id: %w", err)
	}
	rating := &model.QuestionRating{
		ID:          id,
		Email:       email,
		QuestionKey: in.QuestionKey,
		Question:    in.Question,
		Industry:    in.Industry,
		Ratings:     in.Ratings,
		CreatedAt:   c.now().UTC(),
	}
	if err := model.ValidateQuestionRating(rating); err != nil {
		return nil, err
	}

	start := c.now()
	if err := c.evaluations.Append(ctx, rating); err != nil {
		c.countAppendFailure(c.evaluations.Name(), err)
		return nil, err
	}
	c.metrics.IncrementAppended(c.evaluations.Name())
	c.metrics.ObserveAppend(c.evaluations.Name(), start)

	c.publish(ctx, events.TopicRatingSubmitted, events.RatingSubmitted{
		RatingID:    rating.ID,
		IdentityRef: identity.HashForLog(email),
		QuestionKey: rating.QuestionKey,
	})
	return rating, nil
}

// AssessmentInput carries the end-of-session aggregate scores and feedback.
type AssessmentInput struct {
	Email              string
	OverallRatings     model.OverallRatings
	Feedback           model.Feedback
	QuestionsEvaluated model.QuestionsEvaluated
}

// CompletionWarning is returned alongside a persisted final assessment when
// the denormalized completed flag on the registration could not be updated.
const CompletionWarning = "final assessment saved, but the registration completion flag could not be updated"

// SubmitFinalAssessment appends the closing assessment record and then marks
// the registration completed. The assessment append is the durable step; a
// completion-flag failure is reported as a non-empty warning, never an error.
func (c *Coordinator) SubmitFinalAssessment(ctx context.Context, in AssessmentInput) (*model.FinalAssessment, string, error) {
	email, err := identity.Normalize(in.Email)
	if err != nil {
		return nil, "", err
	}

	id, err := idgen.Generate()
	if err != nil {
		return nil, "", fmt.Errorf("generating assessment id: %w", err)
	}
	assessment := &model.FinalAssessment{
		ID:                 id,
		Email:              email,
		OverallRatings:     in.OverallRatings,
		Feedback:           in.Feedback,
		QuestionsEvaluated: in.QuestionsEvaluated,
		CreatedAt:          c.now().UTC(),
	}
	if err := model.ValidateFinalAssessment(assessment); err != nil {
		return nil, "", err
	}

	start := c.now()
	if err := c.evaluations.Append(ctx, assessment); err != nil {
		c.countAppendFailure(c.evaluations.Name(), err)
		return nil, "", err
	}
	c.metrics.IncrementAppended(c.evaluations.Name())
	c.metrics.ObserveAppend(c.evaluations.Name(), start)

	c.publish(ctx, events.TopicAssessmentSubmitted, events.AssessmentSubmitted{
		AssessmentID: assessment.ID,
		IdentityRef:  identity.HashForLog(email),
	})

	warning := ""
	if err := c.markCompleted(ctx, email); err != nil {
		c.logger.Warn("could not mark registration completed",
			"identity", identity.HashForLog(email), "err", err)
		warning = CompletionWarning
	}
	return assessment, warning, nil
}

// markCompleted flips the denormalized completed flag on the registration.
// The final assessment record is already durable, so a missing or
// unreachable registration is reported back, not treated as fatal.
func (c *Coordinator) markCompleted(ctx context.Context, email string) error {
	completedAt := c.now().UTC()
	var regID string
	err := c.registrations.Update(ctx, email, func(rec model.Record) {
		if reg, ok := rec.(*model.Registration); ok {
			reg.EvaluationCompleted = true
			reg.CompletedAt = &completedAt
			regID = reg.ID
		}
	})
	if err != nil {
		return err
	}
	c.publish(ctx, events.TopicEvaluationCompleted, events.EvaluationCompleted{
		RegistrationID: regID,
		IdentityRef:    identity.HashForLog(email),
		CompletedAt:    completedAt.Format(time.RFC3339),
	})
	return nil
}

// MetricInput carries one pipeline-produced technical metric record.
type MetricInput struct {
	Provider string
	Model    string
	Payload  []byte
}

// RecordMetric appends one technical metric record without interpreting its
// payload.
func (c *Coordinator) RecordMetric(ctx context.Context, in MetricInput) (*model.TechnicalMetric, error) {
	id, err := idgen.Generate()
	if err != nil {
		return nil, fmt.Errorf("generating metric id: %w", err)
	}
	metric := &model.TechnicalMetric{
		ID:        id,
		Provider:  in.Provider,
		Model:     in.Model,
		Payload:   in.Payload,
		CreatedAt: c.now().UTC(),
	}
	if err := model.ValidateTechnicalMetric(metric); err != nil {
		return nil, err
	}

	if err := c.techMetrics.Append(ctx, metric); err != nil {
		c.countAppendFailure(c.techMetrics.Name(), err)
		return nil, err
	}
	c.metrics.IncrementAppended(c.techMetrics.Name())

	c.publish(ctx, events.TopicMetricRecorded, events.MetricRecorded{
		MetricID: metric.ID,
		Provider: metric.Provider,
		Model:    metric.Model,
	})
	return metric, nil
}

// Progress summarizes one participant's session state.
type Progress struct {
	Registered          bool     `json:"registered"`
	EvaluationCompleted bool     `json:"evaluation_completed"`
	RatingsSubmitted    int      `json:"ratings_submitted"`
	QuestionKeys        []string `json:"question_keys,omitempty"`
	FinalSubmitted      bool     `json:"final_submitted"`
}

// Progress reports the participant's current session state from the durable
// collections.
func (c *Coordinator) Progress(ctx context.Context, rawEmail string) (*Progress, error) {
	email, err := identity.Normalize(rawEmail)
	if err != nil {
		return nil, err
	}

	regs, err := c.registrations.ReadAll(ctx)
	if err != nil {
		c.metrics.IncrementLoadFailure(c.registrations.Name())
		return nil, err
	}
	evals, err := c.evaluations.ReadAll(ctx)
	if err != nil {
		c.metrics.IncrementLoadFailure(c.evaluations.Name())
		return nil, err
	}

	p := &Progress{}
	for _, rec := range regs {
		reg, ok := rec.(*model.Registration)
		if !ok || reg.Email != email {
			continue
		}
		p.Registered = true
		p.EvaluationCompleted = reg.EvaluationCompleted
		break
	}
	seen := make(map[string]bool)
	for _, rec := range evals {
		switch v := rec.(type) {
		case *model.QuestionRating:
			if v.Email != email {
				continue
			}
			p.RatingsSubmitted++
			if !seen[v.QuestionKey] {
				seen[v.QuestionKey] = true
				p.QuestionKeys = append(p.QuestionKeys, v.QuestionKey)
			}
		case *model.FinalAssessment:
			if v.Email == email {
				p.FinalSubmitted = true
			}
		}
	}
	return p, nil
}

// Stats summarizes the collection totals across the store.
type Stats struct {
	Registrations     int `json:"registrations"`
	Completed         int `json:"completed"`
	QuestionRatings   int `json:"question_ratings"`
	FinalAssessments  int `json:"final_assessments"`
	TechnicalMetrics  int `json:"technical_metrics"`
	EvaluationRecords int `json:"evaluation_records"`
}

// Stats counts records across all three collections.
func (c *Coordinator) Stats(ctx context.Context) (*Stats, error) {
	regs, err := c.Registrations(ctx)
	if err != nil {
		return nil, err
	}
	evals, err := c.Evaluations(ctx)
	if err != nil {
		return nil, err
	}
	techMetrics, err := c.TechnicalMetrics(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Registrations:     len(regs),
		TechnicalMetrics:  len(techMetrics),
		EvaluationRecords: len(evals),
	}
	for _, reg := range regs {
		if reg.EvaluationCompleted {
			stats.Completed++
		}
	}
	for _, rec := range evals {
		switch rec.RecordKind() {
		case model.KindQuestionRating:
			stats.QuestionRatings++
		case model.KindFinalAssessment:
			stats.FinalAssessments++
		}
	}
	return stats, nil
}

// Registrations returns every registration record in append order.
func (c *Coordinator) Registrations(ctx context.Context) ([]*model.Registration, error) {
	records, err := c.registrations.ReadAll(ctx)
	if err != nil {
		c.metrics.IncrementLoadFailure(c.registrations.Name())
		return nil, err
	}
	regs := make([]*model.Registration, 0, len(records))
	for _, rec := range records {
		if reg, ok := rec.(*model.Registration); ok {
			regs = append(regs, reg)
		}
	}
	return regs, nil
}

// Evaluations returns every rating and assessment record in append order.
func (c *Coordinator) Evaluations(ctx context.Context) ([]model.Record, error) {
	records, err := c.evaluations.ReadAll(ctx)
	if err != nil {
		c.metrics.IncrementLoadFailure(c.evaluations.Name())
	}
	return records, err
}

// TechnicalMetrics returns every pipeline metric record in append order.
func (c *Coordinator) TechnicalMetrics(ctx context.Context) ([]*model.TechnicalMetric, error) {
	records, err := c.techMetrics.ReadAll(ctx)
	if err != nil {
		c.metrics.IncrementLoadFailure(c.techMetrics.Name())
		return nil, err
	}
	out := make([]*model.TechnicalMetric, 0, len(records))
	for _, rec := range records {
		if m, ok := rec.(*model.TechnicalMetric); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// publish emits an event without letting bus failures affect the caller.
func (c *Coordinator) publish(ctx context.Context, topic string, event any) {
	if err := c.publisher.Publish(ctx, topic, event); err != nil {
		c.logger.Warn("failed to publish event", "topic", topic, "error", err)
	}
}

func (c *Coordinator) countAppendFailure(col string, err error) {
	reason := "write"
	switch {
	case errors.Is(err, collection.ErrLoadFailed):
		reason = "load"
		c.metrics.IncrementLoadFailure(col)
	case errors.Is(err, collection.ErrDuplicateKey):
		reason = "conflict"
	}
	c.metrics.IncrementAppendFailure(col, reason)
}
