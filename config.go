package stepflow

import (
	"fmt"
	"time"

	"github.com/viant/stepflow/runtime/resolver"
	"github.com/viant/stepflow/service/engine"
)

// Config is a serialisable representation of the service configuration. It
// can be populated from JSON, YAML, environment variables, etc. The
// zero-value is useful – all nested fields inherit their package defaults.

type Config struct {
	Engine   EngineConfig   `json:"engine" yaml:"engine"`
	Resolver ResolverConfig `json:"resolver" yaml:"resolver"`
}

type EngineConfig struct {
	MaxParallel    int           `json:"maxParallel" yaml:"maxParallel"`
	DefaultTimeout time.Duration `json:"defaultTimeout" yaml:"defaultTimeout"`
}

type ResolverConfig struct {
	MaxPasses int `json:"maxPasses" yaml:"maxPasses"`
}

// DefaultConfig returns a Config populated with the same default values the
// sub-package constructors use. Callers may modify the returned struct before
// passing it to New via WithConfig.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxParallel:    engine.DefaultMaxParallel,
			DefaultTimeout: engine.DefaultTimeout,
		},
		Resolver: ResolverConfig{
			MaxPasses: resolver.DefaultMaxPasses,
		},
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Engine.MaxParallel <= 0 {
		return fmt.Errorf("engine.maxParallel must be > 0")
	}
	if c.Engine.DefaultTimeout <= 0 {
		return fmt.Errorf("engine.defaultTimeout must be > 0")
	}
	if c.Resolver.MaxPasses <= 0 {
		return fmt.Errorf("resolver.maxPasses must be > 0")
	}
	return nil
}
