package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/evalvault/internal/ui"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:   "evd <command>",
	Short: "Durable evaluation record store",
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if !ui.ShouldUseColor() {
		ui.ForceNoColor()
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
