package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/evalvault/internal/config"
	"github.com/alfredjeanlab/evalvault/internal/model"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <registrations|evaluations|metrics>",
	Short: "Export a collection as JSON lines",
	Args:  cobra.ExactArgs(1),
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

		var records []model.Record
		switch args[0] {
		case "registrations":
			regs, err := coordinator.Registrations(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range regs {
				records = append(records, r)
			}
		case "evaluations":
			records, err = coordinator.Evaluations(cmd.Context())
			if err != nil {
				return err
			}
		case "metrics":
			ms, err := coordinator.TechnicalMetrics(cmd.Context())
			if err != nil {
				return err
			}
			for _, m := range ms {
				records = append(records, m)
			}
		default:
			return fmt.Errorf("unknown collection %q", args[0])
		}

		out := os.Stdout
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		enc := json.NewEncoder(out)
		for _, rec := range records {
			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("encoding record %s: %w", rec.RecordID(), err)
			}
		}
		logger.Info("export complete", "collection", args[0], "records", len(records))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")
}
