// Package main provides the optimizer command line tool.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"linkedin-optimizer/internal/bootstrap"
	"linkedin-optimizer/internal/shared/config"
	"linkedin-optimizer/internal/shared/telemetry"
)

var rootCmd = &cobra.Command{
	Use:           "optimizer",
	Short:         "LinkedIn Profile Optimizer command line tool",
	Long:          "Runs profile optimizations locally and inspects stored progress and results.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	telemetry.SetLevel(cfg.LogLevel)
	return cfg, nil
}

func buildApp() (*bootstrap.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return bootstrap.Build(cfg)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
