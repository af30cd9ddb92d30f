package main

import (
	"github.com/spf13/cobra"

	"linkedin-optimizer/internal/progress"
)

var progressCommand = &cobra.Command{
	Use:   "progress <optimization-id>",
	Short: "Show step progress for an optimization",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp()
		if err != nil {
			return err
		}
		p, err := app.Progress.GetProgress(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), progress.Overview(p))
	},
}

var resultCommand = &cobra.Command{
	Use:   "result <optimization-id>",
	Short: "Show the stored result of an optimization",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp()
		if err != nil {
			return err
		}
		res, err := app.Workflow.GetResult(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var listLimit int

var listCommand = &cobra.Command{
	Use:   "list",
	Short: "List recent optimizations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp()
		if err != nil {
			return err
		}
		items, err := app.Progress.ListRecent(cmd.Context(), listLimit)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), items)
	},
}

func init() {
	listCommand.Flags().IntVarP(&listLimit, "limit", "n", 10, "Maximum number of optimizations to list")
	rootCmd.AddCommand(progressCommand, resultCommand, listCommand)
}
