package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// saveConfig is the JSON-marshaling intermediary. Pointer bools distinguish
// "explicitly false" from "unset" when the file is edited by hand.
type saveConfig struct {
	AutoOpen     *bool  `json:"autoOpen,omitempty"`
	DefaultMode  string `json:"defaultMode,omitempty"`
	HydrateCount *int   `json:"hydrateCount,omitempty"`
	LocalWorld   uint32 `json:"localWorld,omitempty"`
	UnreadBadge  *bool  `json:"unreadBadge,omitempty"`
}

// toSaveConfig converts Config to the JSON-serializable format.
func toSaveConfig(cfg *Config) saveConfig {
	return saveConfig{
		AutoOpen:     &cfg.AutoOpen,
		DefaultMode:  string(cfg.DefaultMode),
		HydrateCount: &cfg.HydrateCount,
		LocalWorld:   cfg.LocalWorld,
		UnreadBadge:  &cfg.UnreadBadge,
	}
}

// Save writes the config to dir/config.json.
func Save(dir string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(toSaveConfig(cfg), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, configFile), data, 0644)
}
