package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"linkedin-optimizer/internal/progress"
)

var tableCommand = &cobra.Command{
	Use:   "table",
	Short: "Manage the DynamoDB results table",
}

var tableEnsureCommand = &cobra.Command{
	Use:   "ensure",
	Short: "Create the results table and enable TTL if missing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := progress.NewDynamoClient(cmd.Context(), cfg.AWSRegion, cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey)
		if err != nil {
			return err
		}
		store := progress.NewDynamoStore(client, cfg.DynamoTable, time.Duration(cfg.ResultTTLDays)*24*time.Hour)
		store.Environment = cfg.Env
		created, err := store.EnsureTable(cmd.Context())
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "created table %s\n", cfg.DynamoTable)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "table %s already exists\n", cfg.DynamoTable)
		}
		return nil
	},
}

func init() {
	tableCommand.AddCommand(tableEnsureCommand)
	rootCmd.AddCommand(tableCommand)
}
