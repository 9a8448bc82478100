// CLAUDE:SUMMARY Priority classifier: most-specific pattern wins, declaration order breaks ties.
// Package classify maps change paths to priority tiers through an ordered,
// wildcard-matched rule set. Rulesets are compiled once at config load and
// shared read-only across invocations.
package classify

import (
	"fmt"

	"github.com/hazyhaar/fiche/change"
)

// Rule is a compiled pattern rule.
type Rule struct {
	Pattern  change.Pattern
	Priority change.Priority
}

// Ruleset is an ordered, compiled rule list plus the fallback priority for
// paths no rule matches. Immutable after Compile.
type Ruleset struct {
	rules           []Rule
	defaultPriority change.Priority
}

// Compile validates every pattern up front; the classifier never runs with
// a partially valid ruleset.
func Compile(rules []change.PatternRule, defaultPriority change.Priority) (*Ruleset, error) {
	compiled := make([]Rule, 0, len(rules))
	for i, r := range rules {
		p, err := change.CompilePattern(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("classify: rule %d: %w", i, err)
		}
		compiled = append(compiled, Rule{Pattern: p, Priority: r.Priority})
	}
	return &Ruleset{rules: compiled, defaultPriority: defaultPriority}, nil
}

// Classify returns the priority for a path. When several rules match, the
// highest specificity wins; equal specificity falls to the earlier rule,
// so ruleset order is part of the observable contract.
func (rs *Ruleset) Classify(path string) change.Priority {
	segs := change.SplitPath(path)
	best := -1
	bestSpec := -1
	for i, r := range rs.rules {
		if !r.Pattern.MatchSegments(segs) {
			continue
		}
		if r.Pattern.Specificity() > bestSpec {
			best, bestSpec = i, r.Pattern.Specificity()
		}
	}
	if best < 0 {
		return rs.defaultPriority
	}
	return rs.rules[best].Priority
}

// Len reports the number of compiled rules.
func (rs *Ruleset) Len() int { return len(rs.rules) }
