// Package server exposes the record store over HTTP.
package server

import (
	"log/slog"

	"github.com/alfredjeanlab/evalvault/internal/session"
)

// Server handles HTTP requests against the evaluation session coordinator.
type Server struct {
	coordinator *session.Coordinator
	logger      *slog.Logger
}

// NewServer returns a Server backed by the given coordinator.
func NewServer(c *session.Coordinator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{coordinator: c, logger: logger}
}
