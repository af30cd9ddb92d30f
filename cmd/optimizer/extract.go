package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"linkedin-optimizer/internal/extract"
)

var extractObjectKey string

var extractCommand = &cobra.Command{
	Use:   "extract [profile.pdf]",
	Short: "Print the text extracted from a PDF export",
	Long:  "Extracts text from a local PDF, or from an archived upload when --object-key is set.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var x extract.PDFExtractor
		var (
			text string
			err  error
		)
		switch {
		case extractObjectKey != "":
			app, buildErr := buildApp()
			if buildErr != nil {
				return buildErr
			}
			text, err = extract.ExtractStored(cmd.Context(), x, app.Objects, extractObjectKey)
		case len(args) == 1:
			text, err = extract.ExtractFile(cmd.Context(), x, args[0])
		default:
			return fmt.Errorf("a PDF path or --object-key is required")
		}
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	},
}

func init() {
	extractCommand.Flags().StringVar(&extractObjectKey, "object-key", "", "Object store key of an archived upload")
	rootCmd.AddCommand(extractCommand)
}
