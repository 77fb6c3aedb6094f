// Package config loads daemon configuration from a YAML file.
// Environment references in the file (${VAR} or $VAR) are expanded before
// parsing so credentials stay out of version control.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config holds all daemon configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Chains  []ChainConfig `yaml:"chains"`
}

// ServerConfig holds the listen addresses.
type ServerConfig struct {
	// APIAddr serves the gas price API.
	APIAddr string `yaml:"api_addr"`

	// HealthAddr serves health probes, metrics and pprof.
	HealthAddr string `yaml:"health_addr"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text, console
}

// ChainConfig describes one chain's gas price sources. Each entry becomes
// one tracker.
type ChainConfig struct {
	// Name labels the chain in the API, logs and metrics.
	Name string `yaml:"name"`

	// ExplorerURL is the block explorer stats endpoint, the primary
	// source. Optional: without it every cycle goes straight to the node.
	ExplorerURL string `yaml:"explorer_url"`

	// ExplorerAPIKey authenticates stats calls. Usually an env reference
	// like ${ETHEREUM_EXPLORER_API_KEY}.
	ExplorerAPIKey string `yaml:"explorer_api_key"`

	// RPCURL is the node JSON-RPC endpoint, the fallback source.
	RPCURL string `yaml:"rpc_url"`

	// PollInterval is the refresh cadence.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Load reads, expands and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.APIAddr == "" {
		c.Server.APIAddr = ":8080"
	}
	if c.Server.HealthAddr == "" {
		c.Server.HealthAddr = ":8081"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	for i := range c.Chains {
		if c.Chains[i].PollInterval == 0 {
			c.Chains[i].PollInterval = 15 * time.Second
		}
	}
}

func (c *Config) validate() error {
	if len(c.Chains) == 0 {
		return errors.New("at least one chain is required")
	}

	seen := make(map[string]struct{}, len(c.Chains))
	for i, ch := range c.Chains {
		if ch.Name == "" {
			return fmt.Errorf("chains[%d]: name is required", i)
		}
		if _, dup := seen[ch.Name]; dup {
			return fmt.Errorf("chains[%d]: duplicate chain name %q", i, ch.Name)
		}
		seen[ch.Name] = struct{}{}

		if ch.RPCURL == "" {
			return fmt.Errorf("chain %q: rpc_url is required", ch.Name)
		}
		if _, err := url.Parse(ch.RPCURL); err != nil {
			return fmt.Errorf("chain %q: invalid rpc_url: %w", ch.Name, err)
		}
		if ch.ExplorerURL != "" {
			if _, err := url.Parse(ch.ExplorerURL); err != nil {
				return fmt.Errorf("chain %q: invalid explorer_url: %w", ch.Name, err)
			}
		}
		if ch.PollInterval < time.Second {
			return fmt.Errorf("chain %q: poll_interval must be at least 1s", ch.Name)
		}
	}

	return nil
}
