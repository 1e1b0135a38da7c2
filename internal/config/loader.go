package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and are replaced by defaults in main.
type Config struct {
	Addr        string `json:"addr" yaml:"addr" toml:"addr"`
	BridgeURL   string `json:"bridge_url" yaml:"bridge_url" toml:"bridge_url"`
	BridgeWSURL string `json:"bridge_ws_url" yaml:"bridge_ws_url" toml:"bridge_ws_url"`
	OllamaURL   string `json:"ollama_url" yaml:"ollama_url" toml:"ollama_url"`
	FallbackURL string `json:"fallback_url" yaml:"fallback_url" toml:"fallback_url"`
	LogLevel    string `json:"log_level" yaml:"log_level" toml:"log_level"`

	// Timeouts per cost class, in seconds.
	HealthTimeoutSec   int `json:"health_timeout_sec" yaml:"health_timeout_sec" toml:"health_timeout_sec"`
	WarmupTimeoutSec   int `json:"warmup_timeout_sec" yaml:"warmup_timeout_sec" toml:"warmup_timeout_sec"`
	DownloadTimeoutSec int `json:"download_timeout_sec" yaml:"download_timeout_sec" toml:"download_timeout_sec"`

	// Wake debounce window in milliseconds.
	WakeDebounceMs int `json:"wake_debounce_ms" yaml:"wake_debounce_ms" toml:"wake_debounce_ms"`
}

// HealthTimeout returns the configured health timeout or zero.
func (c Config) HealthTimeout() time.Duration {
	return time.Duration(c.HealthTimeoutSec) * time.Second
}

// WarmupTimeout returns the configured warmup timeout or zero.
func (c Config) WarmupTimeout() time.Duration {
	return time.Duration(c.WarmupTimeoutSec) * time.Second
}

// DownloadTimeout returns the configured download timeout or zero.
func (c Config) DownloadTimeout() time.Duration {
	return time.Duration(c.DownloadTimeoutSec) * time.Second
}

// WakeDebounce returns the configured debounce window or zero.
func (c Config) WakeDebounce() time.Duration {
	return time.Duration(c.WakeDebounceMs) * time.Millisecond
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	expanded, err := expandHome(path)
	if err != nil {
		return cfg, err
	}
	b, err := os.ReadFile(expanded)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(expanded)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
