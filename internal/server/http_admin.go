package server

import (
	"net/http"

	"github.com/alfredjeanlab/evalvault/internal/model"
)

// handleListRegistrations handles GET /v1/admin/registrations.
func (s *Server) handleListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := s.coordinator.Registrations(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	// Ensure registrations is never null in JSON output.
	if regs == nil {
		regs = []*model.Registration{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"registrations": regs,
		"total":         len(regs),
	})
}

// handleListEvaluations handles GET /v1/admin/evaluations. The response keeps
// ratings and final assessments in append order, each wrapped with its kind.
func (s *Server) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	records, err := s.coordinator.Evaluations(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	type entry struct {
		Kind string       `json:"kind"`
		Data model.Record `json:"data"`
	}
	entries := make([]entry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, entry{Kind: rec.RecordKind().String(), Data: rec})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"evaluations": entries,
		"total":       len(entries),
	})
}

// handleStats handles GET /v1/admin/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.coordinator.Stats(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleListMetrics handles GET /v1/admin/metrics-records.
func (s *Server) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	records, err := s.coordinator.TechnicalMetrics(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	if records == nil {
		records = []*model.TechnicalMetric{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"metrics": records,
		"total":   len(records),
	})
}
