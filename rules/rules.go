// CLAUDE:SUMMARY CausalRule interface, function adapter, and the name→rule registry used by config files.
// Package rules defines the pluggable causal predicates the engine uses to
// explain changes, plus the builtin domain rules. A rule is a pure,
// stateless function of the change set: no external calls, no snapshot
// re-fetching, safe to share across concurrent invocations. The analyzer
// is agnostic to rule number and content; a ruleset is just an ordered
// list.
package rules

import (
	"fmt"

	"github.com/hazyhaar/fiche/change"
)

// CausalRule scans a candidate slice for a change that explains the given
// effect. The analyzer guarantees candidates never contain the effect
// itself nor anything already on the effect's cause chain, so
// implementations need no cycle handling of their own. A returned
// confidence is in [0,1]; ok=false means no match.
type CausalRule interface {
	Name() string
	Explain(effect change.FieldChange, candidates []change.FieldChange) (cause change.FieldChange, confidence float64, ok bool)
}

// ExplainFunc adapts a function to CausalRule, mainly for tests and
// one-off rules.
func ExplainFunc(name string, fn func(effect change.FieldChange, candidates []change.FieldChange) (change.FieldChange, float64, bool)) CausalRule {
	return funcRule{name: name, fn: fn}
}

type funcRule struct {
	name string
	fn   func(change.FieldChange, []change.FieldChange) (change.FieldChange, float64, bool)
}

func (r funcRule) Name() string { return r.name }

func (r funcRule) Explain(effect change.FieldChange, candidates []change.FieldChange) (change.FieldChange, float64, bool) {
	return r.fn(effect, candidates)
}

// Registry resolves causal rule names from config files to rule instances.
type Registry map[string]CausalRule

// NewRegistry builds a registry, rejecting duplicate names.
func NewRegistry(rules ...CausalRule) (Registry, error) {
	reg := make(Registry, len(rules))
	for _, r := range rules {
		if _, dup := reg[r.Name()]; dup {
			return nil, fmt.Errorf("rules: duplicate rule name %q", r.Name())
		}
		reg[r.Name()] = r
	}
	return reg, nil
}

// Resolve maps names to rules, preserving order. Order matters: when two
// rules match an effect with equal confidence, the first-declared wins.
func (reg Registry) Resolve(names []string) ([]CausalRule, error) {
	out := make([]CausalRule, 0, len(names))
	for _, n := range names {
		r, ok := reg[n]
		if !ok {
			return nil, fmt.Errorf("rules: unknown rule %q", n)
		}
		out = append(out, r)
	}
	return out, nil
}

// DefaultRegistry holds the builtin character-sheet rules.
func DefaultRegistry() Registry {
	reg, err := NewRegistry(Default()...)
	if err != nil {
		panic(err) // builtin names are fixed
	}
	return reg
}
