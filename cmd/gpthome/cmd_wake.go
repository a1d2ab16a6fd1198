package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// wakeCmd runs one wake cycle in the foreground
var wakeCmd = &cobra.Command{
	Use:   "wake",
	Short: "Run one wake cycle now",
	Long: `Runs a single wake cycle outside the schedule and prints its summary.
Without a model key the offline mock resident is used.`,
	RunE: runWake,
}

var wakeJSON bool

func init() {
	wakeCmd.Flags().BoolVar(&wakeJSON, "json", false, "Print the summary as JSON")
}

func runWake(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.wake.Wake(ctx, "cli")
	if err != nil {
		return fmt.Errorf("wake failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if wakeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	fmt.Fprintln(out, renderSummary(summary))
	return nil
}

// commandContext is cmd's context, or Background when run outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
