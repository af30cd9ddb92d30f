package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"linkedin-optimizer/internal/shared/storage/db"
)

var migrateCommand = &cobra.Command{
	Use:   "migrate",
	Short: "Apply Postgres migrations for the progress store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sqlDB, err := db.Connect(cmd.Context(), cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		version, err := db.RunMigrations(cmd.Context(), sqlDB)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCommand)
}
