// Config loading for stacksd: a JSON file on disk, overridable by CLI
// flags, covering the handful of settings a single-process local engine
// actually needs.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import (
	"path/filepath"

	"github.com/cablehead/stacks/cmn/jsp"
)

// Config is stacksd's process-wide configuration.
type Config struct {
	// DataDir is the root directory holding the cas/ blob tree and the
	// buntdb files (full-text index, packets, content meta, settings).
	DataDir string `json:"data_dir"`
	// HTTPAddr is loaded with the rest of the config; stacksd starts no
	// listener on it.
	HTTPAddr string `json:"http_addr"`
	// MetricsAddr serves /metrics for prometheus scraping, empty disables it.
	MetricsAddr string `json:"metrics_addr"`
}

// DefaultConfig returns stacksd's out-of-the-box configuration, rooted at
// dataDir (normally a platform-appropriate application-support directory
// the caller has already resolved).
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:     dataDir,
		HTTPAddr:    ":7890",
		MetricsAddr: ":7891",
	}
}

// LoadConfig reads path, falling back to DefaultConfig(dataDir) if the file
// doesn't exist yet, via the same LoadOrDefault discipline jsp uses for
// every other persisted JSON structure.
func LoadConfig(path, dataDir string) (Config, error) {
	cfg := DefaultConfig(dataDir)
	if err := jsp.LoadOrDefault(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SavePath is the conventional config file location under dataDir.
func SavePath(dataDir string) string { return filepath.Join(dataDir, "config.json") }
