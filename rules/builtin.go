// CLAUDE:SUMMARY Builtin causal rules: numeric driver, addition-with-marker grants, shared feature names.
package rules

import (
	"encoding/json"
	"strings"

	"github.com/hazyhaar/fiche/change"
)

// Default returns the builtin character-sheet ruleset in its canonical
// order: a level increase drives derived maxima, an added feature with a
// grant marker drives the granted score, and an added class feature drives
// the resource sharing its name.
func Default() []CausalRule {
	return []CausalRule{
		NumericDriver("level_hit_points", change.MustPattern("level"), change.MustPattern("combat.hit_points.maximum"), 0.9),
		AdditionGrant("score_grant", "grants_score_increase", 0.85),
		SharedName("feature_resource", "class_features", "resources", 0.75),
	}
}

// NumericDriver explains a numeric change matching effectPattern by a
// numeric change matching causePattern moving in the same direction
// ("level increased, therefore maximum hit points increased").
func NumericDriver(name string, causePattern, effectPattern change.Pattern, confidence float64) CausalRule {
	return ExplainFunc(name, func(effect change.FieldChange, candidates []change.FieldChange) (change.FieldChange, float64, bool) {
		delta, ok := Delta(effect)
		if !ok || delta == 0 || !effectPattern.Match(effect.Path) {
			return change.FieldChange{}, 0, false
		}
		for _, c := range candidates {
			cd, ok := Delta(c)
			if !ok || !causePattern.Match(c.Path) {
				continue
			}
			if (delta > 0) == (cd > 0) && cd != 0 {
				return c, confidence, true
			}
		}
		return change.FieldChange{}, 0, false
	})
}

// AdditionGrant explains a modified score by an added change whose new
// value carries a marker naming that score, e.g. a feat with
// grants_score_increase: "cha" explaining the cha modification.
func AdditionGrant(name, markerKey string, confidence float64) CausalRule {
	return ExplainFunc(name, func(effect change.FieldChange, candidates []change.FieldChange) (change.FieldChange, float64, bool) {
		if effect.Kind != change.KindModified {
			return change.FieldChange{}, 0, false
		}
		segs := change.SplitPath(effect.Path)
		for _, c := range candidates {
			if c.Kind != change.KindAdded {
				continue
			}
			target, ok := marker(c.New, markerKey)
			if !ok {
				continue
			}
			for _, s := range segs {
				if selectorName(s) == target {
					return c, confidence, true
				}
			}
		}
		return change.FieldChange{}, 0, false
	})
}

// SharedName explains any change under effectPrefix by an added change
// under causePrefix whose feature name appears in the effect path, e.g.
// class_features[id=rage] added explaining resources.rage.uses.
func SharedName(name, causePrefix, effectPrefix string, confidence float64) CausalRule {
	return ExplainFunc(name, func(effect change.FieldChange, candidates []change.FieldChange) (change.FieldChange, float64, bool) {
		esegs := change.SplitPath(effect.Path)
		if len(esegs) == 0 || selectorBase(esegs[0]) != effectPrefix {
			return change.FieldChange{}, 0, false
		}
		for _, c := range candidates {
			if c.Kind != change.KindAdded {
				continue
			}
			fname, ok := featureName(change.SplitPath(c.Path), causePrefix)
			if !ok {
				continue
			}
			if n := selectorName(esegs[0]); n != effectPrefix && n == fname {
				return c, confidence, true
			}
			for _, s := range esegs[1:] {
				if selectorName(s) == fname {
					return c, confidence, true
				}
			}
		}
		return change.FieldChange{}, 0, false
	})
}

// Delta returns new-old for a modified change with numeric values on both
// sides.
func Delta(c change.FieldChange) (float64, bool) {
	if c.Kind != change.KindModified {
		return 0, false
	}
	o, ok := asFloat(c.Old)
	if !ok {
		return 0, false
	}
	n, ok := asFloat(c.New)
	if !ok {
		return 0, false
	}
	return n - o, true
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// marker extracts a string-valued marker field from an added sub-tree.
func marker(v any, key string) (string, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		if s, isSnap := v.(change.Snapshot); isSnap {
			m = s
		} else {
			return "", false
		}
	}
	s, ok := m[key].(string)
	return s, ok && s != ""
}

// selectorBase returns the map-key part of a segment: "class_features[id=rage]"
// → "class_features", "uses" → "uses".
func selectorBase(seg string) string {
	if i := strings.IndexByte(seg, '['); i >= 0 {
		return seg[:i]
	}
	return seg
}

// selectorName returns the identity a segment addresses: "[id=rage]"
// selectors yield "rage", plain segments yield themselves.
func selectorName(seg string) string {
	i := strings.IndexByte(seg, '[')
	if i < 0 || !strings.HasSuffix(seg, "]") {
		return seg
	}
	inner := seg[i+1 : len(seg)-1]
	if j := strings.IndexByte(inner, '='); j >= 0 {
		return inner[j+1:]
	}
	return seg[:i]
}

// featureName identifies the feature an added change introduces under a
// prefix: "class_features[id=rage]" or "class_features.rage…" → "rage".
func featureName(segs []string, prefix string) (string, bool) {
	if len(segs) == 0 || selectorBase(segs[0]) != prefix {
		return "", false
	}
	if name := selectorName(segs[0]); name != prefix && name != "" {
		return name, true
	}
	if len(segs) > 1 {
		return selectorName(segs[1]), true
	}
	return "", false
}
