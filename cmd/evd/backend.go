package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/evalvault/internal/blob"
	"github.com/alfredjeanlab/evalvault/internal/collection"
	"github.com/alfredjeanlab/evalvault/internal/config"
	"github.com/alfredjeanlab/evalvault/internal/events"
	"github.com/alfredjeanlab/evalvault/internal/metrics"
	"github.com/alfredjeanlab/evalvault/internal/model"
	"github.com/alfredjeanlab/evalvault/internal/session"
)

// newBackend builds the configured blob backend. The returned close function
// is a no-op for backends without connections to release.
func newBackend(ctx context.Context, cfg *config.Config) (blob.Backend, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case "fs":
		b, err := blob.NewFSBackend(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("fs backend: %w", err)
		}
		return b, noop, nil
	case "postgres":
		b, err := blob.NewPostgresBackend(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres backend: %w", err)
		}
		return b, b.Close, nil
	case "s3":
		b, err := blob.NewS3Backend(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Region, cfg.S3Endpoint)
		if err != nil {
			return nil, nil, fmt.Errorf("s3 backend: %w", err)
		}
		return b, noop, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// newCoordinator wires the three durable collections over one backend.
func newCoordinator(cfg *config.Config, backend blob.Backend, publisher events.Publisher, m *metrics.Metrics, logger *slog.Logger) *session.Coordinator {
	retry := blob.RetryPolicy{
		Attempts:  cfg.RetryAttempts,
		BaseDelay: cfg.RetryBaseDelay,
		MaxDelay:  cfg.RetryMaxDelay,
	}
	registrations := collection.New("registrations", backend, collection.Options{
		Key:    model.IdentityKey,
		Retry:  retry,
		Logger: logger,
	})
	evaluations := collection.New("evaluations", backend, collection.Options{
		Retry:  retry,
		Logger: logger,
	})
	techMetrics := collection.New("metrics", backend, collection.Options{
		Retry:  retry,
		Logger: logger,
	})
	return session.NewCoordinator(registrations, evaluations, techMetrics, session.Options{
		Publisher: publisher,
		Metrics:   m,
		Logger:    logger,
	})
}
