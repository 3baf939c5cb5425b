// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	eventstorepg "journeydynamics/internal/eventstore/postgres"
	readmodelpg "journeydynamics/internal/readmodel/postgres"
)

// NewMigrateCommand builds the `journeyd migrate` subcommand: it applies
// the event log and read-model DDL (idempotent CREATE TABLE IF NOT
// EXISTS statements) and exits.
func NewMigrateCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the event log and read-model tables if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfigAndLogger(configPath)
			if err != nil {
				return err
			}

			dsn, err := cfg.ConnectionString()
			if err != nil {
				return fmt.Errorf("journeyd migrate: %w", err)
			}

			ctx := cmd.Context()
			store, err := eventstorepg.Open(ctx, dsn)
			if err != nil {
				return fmt.Errorf("journeyd migrate: opening database: %w", err)
			}
			defer func() {
				_ = store.Close()
			}()

			if err := store.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("journeyd migrate: %w", err)
			}
			if err := readmodelpg.EnsureSchema(ctx, store.DB()); err != nil {
				return fmt.Errorf("journeyd migrate: %w", err)
			}

			logger.Info("migration complete")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to journeyd.yml")
	return cmd
}
