// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"os"

	"journeydynamics/pkg/config"
	"journeydynamics/pkg/logging"
)

// loadConfigAndLogger resolves the config path (explicit flag, then
// JOURNEYD_CONFIG, then the default), loads it, and constructs a logger
// at the configured level.
func loadConfigAndLogger(explicitPath string) (*config.Config, logging.Logger, error) {
	path := explicitPath
	if path == "" {
		path = os.Getenv("JOURNEYD_CONFIG")
	}
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config from %s: %w", path, err)
	}

	logger := logging.NewLogger(cfg.Server.LogLevel == "debug")
	return cfg, logger, nil
}
