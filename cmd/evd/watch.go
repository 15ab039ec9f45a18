package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/evalvault/internal/config"
	"github.com/alfredjeanlab/evalvault/internal/events"
	"github.com/alfredjeanlab/evalvault/internal/ui"
)

var watchTopic string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream store events from NATS",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.NATSURL == "" {
			return fmt.Errorf("EVALVAULT_NATS_URL is not set")
		}

		sub, err := events.NewNATSSubscriber(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer sub.Close()

		ch, cancel, err := sub.Subscribe(watchTopic)
		if err != nil {
			return err
		}
		defer cancel()

		fmt.Fprintf(os.Stderr, "%s %s\n", ui.RenderMuted("watching"), watchTopic)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return nil
				}
				fmt.Println(string(msg))
			case <-sigCh:
				return nil
			}
		}
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchTopic, "topic", "evalvault.>", "NATS subject to watch (supports wildcards)")
}
