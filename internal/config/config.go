// Package config holds the subsystem settings and the persisted
// window-geometry store.
package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Mode selects the default presentation for auto-opened sessions.
type Mode string

const (
	ModeTab    Mode = "tab"
	ModeWindow Mode = "window"
)

// Config is the root configuration structure.
type Config struct {
	// AutoOpen opens a session when a tell arrives with none open.
	AutoOpen bool `json:"autoOpen"`
	// DefaultMode is the presentation used by auto-open and the command
	// surface: "tab" or "window".
	DefaultMode Mode `json:"defaultMode"`
	// HydrateCount is how many stored messages to pull when a session is
	// first opened in a process lifetime.
	HydrateCount int `json:"hydrateCount"`
	// LocalWorld is the world new identities are assumed to be on when the
	// command surface creates one from scratch.
	LocalWorld uint32 `json:"localWorld"`
	// UnreadBadge toggles unread counters on tab labels.
	UnreadBadge bool `json:"unreadBadge"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		AutoOpen:     true,
		DefaultMode:  ModeTab,
		HydrateCount: 50,
		UnreadBadge:  true,
	}
}

// Validate clamps out-of-range values in place.
func (c *Config) Validate() error {
	if c.DefaultMode != ModeTab && c.DefaultMode != ModeWindow {
		c.DefaultMode = ModeTab
	}
	if c.HydrateCount <= 0 {
		c.HydrateCount = 50
	}
	if c.HydrateCount > 1000 {
		c.HydrateCount = 1000
	}
	return nil
}

const configFile = "config.json"

// Load reads the config from dir, falling back to defaults when the file
// does not exist yet.
func Load(dir string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(dir, configFile))
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
