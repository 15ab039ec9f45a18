package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/evalvault/internal/config"
	"github.com/alfredjeanlab/evalvault/internal/ui"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show collection counts and completion totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		backend, closeBackend, err := newBackend(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeBackend() //nolint:errcheck

		coordinator := newCoordinator(cfg, backend, nil, nil, logger)

		stats, err := coordinator.Stats(cmd.Context())
		if err != nil {
			return err
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(stats)
		}

		fmt.Println(ui.RenderAccent("Evaluation record store"))
		fmt.Printf("  %s %d (%d completed)\n", ui.RenderMuted("registrations:"), stats.Registrations, stats.Completed)
		fmt.Printf("  %s %d ratings, %d final assessments\n", ui.RenderMuted("evaluations:  "), stats.QuestionRatings, stats.FinalAssessments)
		fmt.Printf("  %s %d\n", ui.RenderMuted("metrics:      "), stats.TechnicalMetrics)
		return nil
	},
}
