// CLAUDE:SUMMARY EngineConfig: defaults, validation, and YAML ruleset file loading.
package fiche

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/fiche/change"
	"github.com/hazyhaar/fiche/rules"
)

// EngineConfig configures one engine. It is plain data, loaded once per
// process and shared read-only across concurrent invocations; nothing in
// the engine mutates it after New.
type EngineConfig struct {
	// PatternRules map change paths to priority tiers, in declaration
	// order (order is part of the tie-break contract).
	PatternRules []change.PatternRule

	// DefaultPriority is assigned to changes no rule matches. The zero
	// value is PriorityIgnored; set it explicitly if unmatched changes
	// should surface.
	DefaultPriority change.Priority

	// CausalRules are evaluated in declaration order. nil means the
	// builtin character-sheet ruleset; use an empty non-nil slice to
	// disable causation entirely.
	CausalRules []rules.CausalRule

	// MaxCascadeDepth bounds causal chains. Minimum 1. Zero means the
	// default of 3.
	MaxCascadeDepth int

	// MinConfidence is the lowest rule confidence kept as an
	// explanation, in [0,1]. Zero means the default of 0.5; a negative
	// value disables the threshold so every match is kept.
	MinConfidence float64

	// ListIdentityKey is the map field used as stable identity when
	// matching list elements. Default "id".
	ListIdentityKey string
}

func (c *EngineConfig) defaults() {
	if c.CausalRules == nil {
		c.CausalRules = rules.Default()
	}
	if c.MaxCascadeDepth == 0 {
		c.MaxCascadeDepth = 3
	}
	if c.MinConfidence == 0 {
		c.MinConfidence = 0.5
	}
	if c.ListIdentityKey == "" {
		c.ListIdentityKey = "id"
	}
}

func (c *EngineConfig) validate() error {
	if c.MaxCascadeDepth < 1 {
		return fmt.Errorf("%w: max_cascade_depth %d, must be >= 1", ErrInvalidConfig, c.MaxCascadeDepth)
	}
	if c.MinConfidence > 1 {
		return fmt.Errorf("%w: min_confidence %v, must be <= 1 (negative disables the threshold)", ErrInvalidConfig, c.MinConfidence)
	}
	return nil
}

// fileConfig is the YAML schema for ruleset files. Priorities are names
// ("ignored", "low", "medium", "high"); causal rules are registry names.
type fileConfig struct {
	Engine struct {
		DefaultPriority string  `yaml:"default_priority"`
		MaxCascadeDepth int     `yaml:"max_cascade_depth"`
		MinConfidence   float64 `yaml:"min_confidence"`
		ListIdentityKey string  `yaml:"list_identity_key"`
	} `yaml:"engine"`
	Priorities []struct {
		Pattern  string `yaml:"pattern"`
		Priority string `yaml:"priority"`
	} `yaml:"priorities"`
	CausalRules []string `yaml:"causal_rules"`
}

// LoadConfigFile reads a YAML ruleset file and resolves causal rule names
// against the builtin registry. Patterns and settings are validated here,
// before any diffing occurs — the engine never starts with a partially
// valid ruleset.
func LoadConfigFile(path string) (*EngineConfig, error) {
	return loadConfigFile(path, rules.DefaultRegistry())
}

// LoadConfigFileWithRegistry is LoadConfigFile with a caller-supplied rule
// registry, letting deployments register custom rules under their own
// names.
func LoadConfigFileWithRegistry(path string, reg rules.Registry) (*EngineConfig, error) {
	return loadConfigFile(path, reg)
}

func loadConfigFile(path string, reg rules.Registry) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fiche: read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("fiche: parse config: %w", err)
	}

	cfg := &EngineConfig{
		MaxCascadeDepth: fc.Engine.MaxCascadeDepth,
		MinConfidence:   fc.Engine.MinConfidence,
		ListIdentityKey: fc.Engine.ListIdentityKey,
	}

	if fc.Engine.DefaultPriority != "" {
		p, err := change.ParsePriority(fc.Engine.DefaultPriority)
		if err != nil {
			return nil, fmt.Errorf("fiche: default_priority: %w", err)
		}
		cfg.DefaultPriority = p
	} else {
		cfg.DefaultPriority = change.PriorityLow
	}

	for i, r := range fc.Priorities {
		p, err := change.ParsePriority(r.Priority)
		if err != nil {
			return nil, fmt.Errorf("fiche: priority rule %d: %w", i, err)
		}
		if _, err := change.CompilePattern(r.Pattern); err != nil {
			return nil, fmt.Errorf("fiche: priority rule %d: %w", i, err)
		}
		cfg.PatternRules = append(cfg.PatternRules, change.PatternRule{Pattern: r.Pattern, Priority: p})
	}

	if fc.CausalRules != nil {
		resolved, err := reg.Resolve(fc.CausalRules)
		if err != nil {
			return nil, fmt.Errorf("fiche: %w", err)
		}
		cfg.CausalRules = resolved
	}

	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
