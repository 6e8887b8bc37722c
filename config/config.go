// Package config defines the server configuration file format, its
// defaults and validation, document seeding from disk, and hot reload
// of dynamic settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/deepnoodle-ai/cowrite/engine"
	"github.com/goccy/go-yaml"
)

// Config is the root of the server configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`
	RateLimit     RateLimitConfig     `yaml:"rateLimit" json:"rateLimit"`
	Collaboration CollaborationConfig `yaml:"collaboration" json:"collaboration"`
	Log           LogConfig           `yaml:"log" json:"log"`
	Documents     []DocumentSeed      `yaml:"documents" json:"documents"`
}

// ServerConfig configures the listener and the heartbeat loop.
type ServerConfig struct {
	Addr                     string `yaml:"addr" json:"addr"`
	HeartbeatIntervalSeconds int    `yaml:"heartbeatIntervalSeconds" json:"heartbeatIntervalSeconds"`
}

// RateLimitConfig configures the per-user sliding windows.
type RateLimitConfig struct {
	MaxPerSecond  int `yaml:"maxPerSecond" json:"maxPerSecond"`
	MaxPerMinute  int `yaml:"maxPerMinute" json:"maxPerMinute"`
	WindowSeconds int `yaml:"windowSeconds" json:"windowSeconds"`
}

// CollaborationConfig configures the engine.
type CollaborationConfig struct {
	CursorBroadcastIntervalMillis int `yaml:"cursorBroadcastIntervalMillis" json:"cursorBroadcastIntervalMillis"`
}

// LogConfig configures logging. Level is reapplied on hot reload.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// DocumentSeed preloads editors at startup. Either a single file (Path,
// with an optional explicit ID) or a doublestar Pattern whose matches
// become editors keyed by their slash-separated relative path.
type DocumentSeed struct {
	ID      string `yaml:"id,omitempty" json:"id,omitempty"`
	Path    string `yaml:"path,omitempty" json:"path,omitempty"`
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:                     ":8080",
			HeartbeatIntervalSeconds: 30,
		},
		RateLimit: RateLimitConfig{
			MaxPerSecond:  100,
			MaxPerMinute:  1000,
			WindowSeconds: 60,
		},
		Collaboration: CollaborationConfig{
			CursorBroadcastIntervalMillis: 75,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Validate checks the configuration for values the server cannot run
// with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.HeartbeatIntervalSeconds <= 0 {
		return fmt.Errorf("server.heartbeatIntervalSeconds must be positive")
	}
	if c.RateLimit.MaxPerSecond <= 0 || c.RateLimit.MaxPerMinute <= 0 {
		return fmt.Errorf("rateLimit limits must be positive")
	}
	if c.RateLimit.WindowSeconds <= 0 {
		return fmt.Errorf("rateLimit.windowSeconds must be positive")
	}
	interval := c.CursorBroadcastInterval()
	if interval < engine.MinCursorBroadcastInterval || interval > engine.MaxCursorBroadcastInterval {
		return fmt.Errorf("collaboration.cursorBroadcastIntervalMillis %d outside [%d, %d]",
			c.Collaboration.CursorBroadcastIntervalMillis,
			engine.MinCursorBroadcastInterval.Milliseconds(),
			engine.MaxCursorBroadcastInterval.Milliseconds())
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	for i, seed := range c.Documents {
		if seed.Path == "" && seed.Pattern == "" {
			return fmt.Errorf("documents[%d]: path or pattern is required", i)
		}
		if seed.Path != "" && seed.Pattern != "" {
			return fmt.Errorf("documents[%d]: path and pattern are mutually exclusive", i)
		}
		if seed.ID != "" && seed.Pattern != "" {
			return fmt.Errorf("documents[%d]: id applies only to path seeds", i)
		}
	}
	return nil
}

// HeartbeatInterval returns the heartbeat tick spacing.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Server.HeartbeatIntervalSeconds) * time.Second
}

// RateLimitWindow returns the long rate-limit window.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}

// CursorBroadcastInterval returns the cursor debounce interval.
func (c *Config) CursorBroadcastInterval() time.Duration {
	return time.Duration(c.Collaboration.CursorBroadcastIntervalMillis) * time.Millisecond
}

// ParseFile loads a Config from a file. The file extension selects the
// format (JSON or YAML).
func ParseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return ParseJSON(data)
	case ".yml", ".yaml":
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// ParseYAML loads a Config from YAML, strictly: unknown keys are
// errors. Omitted sections keep their defaults.
func ParseYAML(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.UnmarshalWithOptions(data, config, yaml.Strict()); err != nil {
		return nil, err
	}
	return config, nil
}

// ParseJSON loads a Config from JSON. Omitted sections keep their
// defaults.
func ParseJSON(data []byte) (*Config, error) {
	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, err
	}
	return config, nil
}
