// Package config holds the process-wide configuration record. Options are
// explicit and passed down from the entry point; nothing in here is global
// state.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"weft/internal/session"
)

type Config struct {
	// Narrow restricts an editing session's accessible region to the
	// editable block by default; editEnter may override it per session.
	Narrow bool `json:"narrow" yaml:"narrow"`

	// LSPStrategy selects how the editor attaches a language client to a
	// session's staging file: "eglot" or "lsp-mode".
	LSPStrategy string `json:"lsp_strategy" yaml:"lsp_strategy"`

	// StagingRoot overrides the staging directory. Empty selects the
	// default under the XDG state home.
	StagingRoot string `json:"staging_root" yaml:"staging_root"`

	// IndexPath overrides the block index database path. Empty selects the
	// default under the XDG state home.
	IndexPath string `json:"index_path" yaml:"index_path"`

	// SessionTTLMinutes is how long an idle session survives before the
	// sweeper discards it.
	SessionTTLMinutes int `json:"session_ttl_minutes" yaml:"session_ttl_minutes"`

	// Watch reindexes literate documents modified outside the editor.
	Watch bool `json:"watch" yaml:"watch"`
}

var defaultConfig = Config{
	LSPStrategy:       "eglot",
	SessionTTLMinutes: 120,
	Watch:             true,
}

// Load merges fields present in v, typically the client's
// initializationOptions, over the defaults.
func Load(v any) (Config, error) {
	cfg := defaultConfig

	data, err := json.Marshal(v)
	if err != nil {
		return Config{}, fmt.Errorf("failed to marshal source: %w", err)
	}

	// only fields present in src will overwrite.
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal into Config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads a YAML configuration file over the defaults. A missing
// file yields the defaults.
func LoadFile(path string) (Config, error) {
	cfg := defaultConfig

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the fields an editor could set to nonsense.
func (c Config) Validate() error {
	if _, err := session.ParseStrategy(c.LSPStrategy); err != nil {
		return err
	}
	if c.SessionTTLMinutes <= 0 {
		return fmt.Errorf("config: session_ttl_minutes must be positive, got %d", c.SessionTTLMinutes)
	}
	return nil
}

// Strategy returns the validated activation strategy.
func (c Config) Strategy() session.Strategy {
	s, err := session.ParseStrategy(c.LSPStrategy)
	if err != nil {
		return session.StrategyEglot
	}
	return s
}

// SessionTTL returns the idle session lifetime as a duration.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}
