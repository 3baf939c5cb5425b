// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Journey Dynamics - an event-sourced CQRS backend for adaptive, forms-based
user journeys.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package cli wires together the journeyd root Cobra command and its
// subcommands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"journeydynamics/internal/cli/commands"
)

// NewRootCommand constructs the journeyd root Cobra command.
func NewRootCommand() *cobra.Command {
	version := os.Getenv("JOURNEYD_VERSION")
	if version == "" {
		version = "0.0.0-dev"
	}

	cmd := &cobra.Command{
		Use:           "journeyd",
		Short:         "journeyd – event-sourced CQRS backend for adaptive user journeys",
		Long:          "journeyd runs the Journey Dynamics event store, projections, and command/query surface for adaptive, forms-based user journeys.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of journeyd",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "journeyd version %s\n", version)
		},
	})

	// Subcommands registered in lexicographic order by .Use for
	// deterministic help output.
	cmd.AddCommand(commands.NewMigrateCommand())
	cmd.AddCommand(commands.NewReplayCommand())
	cmd.AddCommand(commands.NewServeCommand())

	return cmd
}
