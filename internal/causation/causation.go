// CLAUDE:SUMMARY Causation analyzer: bounded multi-pass causal linking with cycle guard and per-rule panic recovery.
// Package causation builds explanation links between the changes of one
// diff invocation. For each change it keeps the best rule match at or
// above the confidence threshold; unmatched changes are roots. Chains
// accumulate across passes up to the cascade bound.
package causation

import (
	"log/slog"
	"sort"

	"github.com/hazyhaar/fiche/change"
	"github.com/hazyhaar/fiche/rules"
)

// Config tunes one analysis run.
type Config struct {
	// MaxDepth bounds the causal cascade; no link depth ever exceeds it.
	MaxDepth int
	// MinConfidence is the lowest confidence kept as an explanation.
	// Negative keeps every match.
	MinConfidence float64
	// Logger receives recovered rule failures. Default: slog.Default().
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxDepth < 1 {
		c.MaxDepth = 1
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Analyze evaluates every rule against every still-unexplained change, in
// ascending path order for changes and declaration order for rules, so a
// fixed input always yields the same links. The highest confidence wins;
// ties fall to the earlier-declared rule. Changes expects the differ's
// path-sorted output.
func Analyze(changes []change.FieldChange, ruleset []rules.CausalRule, cfg Config) []change.CausationLink {
	cfg.defaults()
	if len(changes) < 2 || len(ruleset) == 0 {
		return nil
	}

	links := make(map[string]*change.CausationLink, len(changes))

	// One pass establishes depth-1 links; up to MaxDepth-1 further passes
	// let an effect be explained by a cause that is itself an effect.
	// Passes stop early once nothing new links.
	for pass := 0; pass < cfg.MaxDepth; pass++ {
		progressed := false
		for _, e := range changes {
			if links[e.Path] != nil {
				continue
			}
			if l := bestLink(e, changes, ruleset, links, cfg); l != nil {
				links[e.Path] = l
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}

	out := make([]change.CausationLink, 0, len(links))
	for _, l := range links {
		l.Depth = chainDepth(l, links)
		if l.Depth >= cfg.MaxDepth {
			l.Depth = cfg.MaxDepth
			l.Truncated = true
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Effect < out[j].Effect })
	return out
}

// bestLink evaluates every rule against one effect. Candidates exclude the
// effect itself and everything on its cause chain so far — a rule may not
// select the effect as its own cause, and a cause may not be its own
// descendant.
func bestLink(effect change.FieldChange, changes []change.FieldChange, ruleset []rules.CausalRule, links map[string]*change.CausationLink, cfg Config) *change.CausationLink {
	candidates := make([]change.FieldChange, 0, len(changes)-1)
	for _, c := range changes {
		if c.Path == effect.Path || chainReaches(c.Path, effect.Path, links) {
			continue
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return nil
	}

	var best *change.CausationLink
	for _, r := range ruleset {
		cause, conf, ok := safeExplain(r, effect, candidates, cfg.Logger)
		if !ok || conf < cfg.MinConfidence {
			continue
		}
		// Strict > keeps the first-declared rule on equal confidence.
		if best == nil || conf > best.Confidence {
			best = &change.CausationLink{
				Effect:     effect.Path,
				Cause:      cause.Path,
				Rule:       r.Name(),
				Confidence: conf,
			}
		}
	}
	return best
}

// safeExplain recovers a panicking rule and treats it as "no match", so
// one broken rule cannot abort the whole change set.
func safeExplain(r rules.CausalRule, effect change.FieldChange, candidates []change.FieldChange, logger *slog.Logger) (cause change.FieldChange, conf float64, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Warn("causation: rule failed", "rule", r.Name(), "effect", effect.Path, "panic", rec)
			cause, conf, ok = change.FieldChange{}, 0, false
		}
	}()
	return r.Explain(effect, candidates)
}

// chainReaches reports whether following cause links from start arrives at
// target.
func chainReaches(start, target string, links map[string]*change.CausationLink) bool {
	seen := map[string]bool{}
	for cur := start; !seen[cur]; {
		seen[cur] = true
		l := links[cur]
		if l == nil {
			return false
		}
		if l.Cause == target {
			return true
		}
		cur = l.Cause
	}
	return false
}

// chainDepth counts hops from the link's effect to its root cause.
func chainDepth(l *change.CausationLink, links map[string]*change.CausationLink) int {
	depth := 1
	seen := map[string]bool{l.Effect: true}
	for cur := l.Cause; links[cur] != nil && !seen[cur]; cur = links[cur].Cause {
		seen[cur] = true
		depth++
	}
	return depth
}
