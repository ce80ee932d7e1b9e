package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if REFASSIGN_CONFIG is set
//  3. env (prefix REFASSIGN_)
func Load(_ context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("REFASSIGN_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: REFASSIGN_ADDR, REFASSIGN_MAX_ITERATIONS, ...
	// Map env keys like REFASSIGN_MAX_ITERATIONS -> max_iterations (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("REFASSIGN_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "refassign_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.ExpiryPolicy != "release" && c.ExpiryPolicy != "hold" {
		return fmt.Errorf("%w: expiry_policy must be release or hold, got %q", ErrInvalidConfig, c.ExpiryPolicy)
	}
	if c.NotifyWorkerCount < 1 {
		return fmt.Errorf("%w: notify_worker_count must be positive", ErrInvalidConfig)
	}
	if c.CoverageTarget < 0 || c.CoverageTarget > 1 {
		return fmt.Errorf("%w: coverage_target must be in [0,1]", ErrInvalidConfig)
	}
	return nil
}
