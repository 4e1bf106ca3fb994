// Package config provides configuration management for the lyricgate client.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"lyricgate/internal/domain"
	"lyricgate/internal/splitter"
)

// Config is the root configuration structure
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Auth      AuthConfig      `toml:"auth"`
	Stream    StreamConfig    `toml:"stream"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// ServerConfig locates the backend and tunes the connection pool
type ServerConfig struct {
	BaseURL    string                    `toml:"base_url"`
	Connection domain.ConnectionSettings `toml:"connection"`
}

// AuthConfig controls credential persistence
type AuthConfig struct {
	CredentialFile   string `toml:"credential_file"`    // where the refresh credential lives
	EncryptionKeyEnv string `toml:"encryption_key_env"` // env var holding the base64 AES key; empty disables sealing
}

// StreamConfig configures the channel splitter and result validation
type StreamConfig struct {
	OpenTag      string `toml:"open_tag"`
	CloseTag     string `toml:"close_tag"`
	ResultSchema string `toml:"result_schema"` // path to a JSON schema for done payloads; empty disables validation
}

// TelemetryConfig contains logging and metrics settings
type TelemetryConfig struct {
	LogLevel       string `toml:"log_level"`  // debug, info, warn, error
	LogFormat      string `toml:"log_format"` // text or json
	MetricsEnabled bool   `toml:"metrics_enabled"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Connection: domain.DefaultConnectionSettings(),
		},
		Auth: AuthConfig{
			CredentialFile: defaultCredentialFile(),
		},
		Stream: StreamConfig{
			OpenTag:  splitter.DefaultOpenTag,
			CloseTag: splitter.DefaultCloseTag,
		},
		Telemetry: TelemetryConfig{
			LogLevel:  "info",
			LogFormat: "text",
		},
	}
}

func defaultCredentialFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "credentials.json"
	}
	return home + "/.config/lyricgate/credentials.json"
}

// Load reads a TOML file, applies env overrides, and validates. A missing
// file is not an error; defaults plus env apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets the environment win over the file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LYRICGATE_BASE_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("LYRICGATE_CREDENTIAL_FILE"); v != "" {
		c.Auth.CredentialFile = v
	}
	if v := os.Getenv("LYRICGATE_LOG_LEVEL"); v != "" {
		c.Telemetry.LogLevel = v
	}
	if v := os.Getenv("LYRICGATE_LOG_FORMAT"); v != "" {
		c.Telemetry.LogFormat = v
	}
}

// Validate checks invariants the rest of the client assumes.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server.base_url %q is not a valid URL", c.Server.BaseURL)
	}
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")

	if c.Stream.OpenTag == "" || c.Stream.CloseTag == "" {
		return fmt.Errorf("stream.open_tag and stream.close_tag must be non-empty")
	}
	if c.Stream.OpenTag == c.Stream.CloseTag {
		return fmt.Errorf("stream.open_tag and stream.close_tag must differ")
	}

	switch c.Telemetry.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry.log_level %q is not one of debug/info/warn/error", c.Telemetry.LogLevel)
	}
	switch c.Telemetry.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("telemetry.log_format %q is not text or json", c.Telemetry.LogFormat)
	}
	return nil
}
