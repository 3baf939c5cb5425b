// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"journeydynamics/pkg/logging"
)

// NewReplayCommand builds the `journeyd replay` subcommand: it reads the
// projection_checkpoint table for lagging aggregates (§4.F) and
// re-dispatches each one's unprojected tail to the projection dispatcher.
func NewReplayCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-dispatch events for aggregates whose projections lag the event log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfigAndLogger(configPath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			app, err := Build(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("journeyd replay: %w", err)
			}
			defer func() {
				_ = app.Close()
			}()

			lagging, err := app.Checkpoints.ListLagging(ctx)
			if err != nil {
				return fmt.Errorf("journeyd replay: listing lagging checkpoints: %w", err)
			}

			for _, checkpoint := range lagging {
				envelopes, err := app.Store.Load(ctx, checkpoint.AggregateType, checkpoint.AggregateID)
				if err != nil {
					return fmt.Errorf("journeyd replay: loading %s/%s: %w", checkpoint.AggregateType, checkpoint.AggregateID, err)
				}

				tail := envelopes[checkpoint.LastProjectedSequence+1:]
				if len(tail) == 0 {
					continue
				}

				if err := app.Dispatcher.Dispatch(ctx, checkpoint.AggregateType, checkpoint.AggregateID, tail); err != nil {
					return fmt.Errorf("journeyd replay: re-dispatching %s/%s: %w", checkpoint.AggregateType, checkpoint.AggregateID, err)
				}

				logger.Info("replayed lagging aggregate",
					logging.NewField("aggregate_type", checkpoint.AggregateType),
					logging.NewField("aggregate_id", checkpoint.AggregateID),
					logging.NewField("replayed_events", len(tail)),
				)
			}

			if len(lagging) == 0 {
				logger.Info("no lagging aggregates")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to journeyd.yml")
	return cmd
}
