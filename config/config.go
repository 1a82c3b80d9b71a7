// Package config loads the daemon configuration file. Command-line flags
// override file values.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the daemon configuration.
type Config struct {
	// ValidatorEndpoint is the socket the processor serves transaction
	// requests on.
	ValidatorEndpoint string `toml:"ValidatorEndpoint"`
	// GatewayEndpoint is the local settlement gateway.
	GatewayEndpoint string `toml:"GatewayEndpoint"`
	// DataDir holds the standalone LevelDB state when no validator store
	// is attached.
	DataDir string `toml:"DataDir"`

	// LocalGatewayTimeoutSeconds bounds the local gateway round-trip.
	LocalGatewayTimeoutSeconds int `toml:"LocalGatewayTimeoutSeconds"`
	// ExternalGatewayTimeoutSeconds bounds the fallback round-trip.
	ExternalGatewayTimeoutSeconds int `toml:"ExternalGatewayTimeoutSeconds"`

	LogFile       string `toml:"LogFile"`
	LogMaxSizeMB  int    `toml:"LogMaxSizeMB"`
	LogMaxBackups int    `toml:"LogMaxBackups"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		ValidatorEndpoint:             "tcp://127.0.0.1:4004",
		GatewayEndpoint:               "tcp://127.0.0.1:55555",
		DataDir:                       "./data",
		LocalGatewayTimeoutSeconds:    3,
		ExternalGatewayTimeoutSeconds: 30,
	}
}

// Load reads the configuration from path. A missing file yields the
// defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s: unknown key %s", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for nonsense values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ValidatorEndpoint) == "" {
		return fmt.Errorf("ValidatorEndpoint must not be empty")
	}
	if strings.TrimSpace(c.GatewayEndpoint) == "" {
		return fmt.Errorf("GatewayEndpoint must not be empty")
	}
	if c.LocalGatewayTimeoutSeconds <= 0 {
		return fmt.Errorf("LocalGatewayTimeoutSeconds must be positive")
	}
	if c.ExternalGatewayTimeoutSeconds <= 0 {
		return fmt.Errorf("ExternalGatewayTimeoutSeconds must be positive")
	}
	return nil
}

// LocalGatewayTimeout returns the local timeout as a duration.
func (c *Config) LocalGatewayTimeout() time.Duration {
	return time.Duration(c.LocalGatewayTimeoutSeconds) * time.Second
}

// ExternalGatewayTimeout returns the fallback timeout as a duration.
func (c *Config) ExternalGatewayTimeout() time.Duration {
	return time.Duration(c.ExternalGatewayTimeoutSeconds) * time.Second
}
