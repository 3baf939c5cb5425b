// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"journeydynamics/pkg/config"
	"journeydynamics/pkg/logging"
)

// NewServeCommand builds the `journeyd serve` subcommand: it wires every
// capability (event store, projections, decision engine, schema
// validator) and blocks until interrupted. No HTTP transport is wired in
// by this repository (§1 Non-goals) — a transport adapter constructs its
// own App via commands.Build and calls Framework.Execute/Query.Get per
// request.
func NewServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Wire capabilities and run until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfigAndLogger(configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := Build(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("journeyd serve: %w", err)
			}
			defer func() {
				_ = app.Close()
			}()

			logger.Info("journeyd ready", logging.NewField("addr", cfg.Server.Addr))
			<-ctx.Done()
			logger.Info("journeyd shutting down")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to journeyd.yml (default: "+config.DefaultConfigPath()+")")
	return cmd
}
