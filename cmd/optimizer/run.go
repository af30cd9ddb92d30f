package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"linkedin-optimizer/internal/extract"
	"linkedin-optimizer/internal/workflow"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the full optimization pipeline on a LinkedIn PDF export",
	Long: `Runs profile collection -> analysis -> content generation -> compilation
against a local PDF and prints the final result as JSON.`,
	Args: cobra.NoArgs,
	RunE: runOptimizationCmd,
}

var (
	runPDF            string
	runTargetRole     string
	runOptimizationID string
	runAPIKey         string
	runOut            string
	runFailOnError    bool
)

func init() {
	runCommand.Flags().StringVarP(&runPDF, "pdf", "p", "", "Path to the LinkedIn PDF export")
	runCommand.Flags().StringVarP(&runTargetRole, "role", "r", "", "Target role or industry to optimize for")
	runCommand.Flags().StringVar(&runOptimizationID, "id", "", "Optimization ID (defaults to a random UUID)")
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Provider API key (defaults to the server key)")
	runCommand.Flags().StringVarP(&runOut, "out", "o", "", "Write the JSON result to this file instead of stdout")
	runCommand.Flags().BoolVar(&runFailOnError, "fail", false, "Exit non-zero when the optimization does not succeed")
	_ = runCommand.MarkFlagRequired("pdf")
	rootCmd.AddCommand(runCommand)
}

func runOptimizationCmd(cmd *cobra.Command, _ []string) error {
	if !extract.IsPDFName(runPDF) {
		return fmt.Errorf("%s is not a PDF file", runPDF)
	}
	if _, err := os.Stat(runPDF); err != nil {
		return err
	}

	app, err := buildApp()
	if err != nil {
		return err
	}
	res := app.Workflow.Run(cmd.Context(), workflow.Input{
		PDFPath:    runPDF,
		TargetRole: runTargetRole,
		RequestID:  runOptimizationID,
		APIKey:     runAPIKey,
		Metadata: map[string]any{
			"file_name": filepath.Base(runPDF),
			"mode":      "cli",
		},
	})

	var w io.Writer = cmd.OutOrStdout()
	if runOut != "" {
		f, err := os.Create(runOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := printJSON(w, res); err != nil {
		return err
	}
	if runFailOnError && !res.Success {
		return fmt.Errorf("optimization %s: %s", res.OptimizationID, res.Status)
	}
	return nil
}
