// CLAUDE:SUMMARY Wildcard path patterns: compile-time validation, one-segment "*" matching, derived specificity.
package change

import (
	"fmt"
	"strings"
)

// Pattern is a compiled wildcard path pattern. A "*" segment matches
// exactly one path segment; there is no multi-segment wildcard. Patterns
// are validated at compile time so the engine never starts with a
// partially valid ruleset.
type Pattern struct {
	raw         string
	segments    []string
	specificity int
}

// CompilePattern validates and compiles a pattern. Malformed syntax —
// empty pattern, empty segment, a "*" embedded in a literal, unbalanced
// brackets — is rejected here, never during diffing.
func CompilePattern(raw string) (Pattern, error) {
	if raw == "" {
		return Pattern{}, fmt.Errorf("change: empty pattern")
	}
	if err := checkBrackets(raw); err != nil {
		return Pattern{}, fmt.Errorf("change: pattern %q: %w", raw, err)
	}
	segs := SplitPath(raw)
	specificity := 0
	for _, s := range segs {
		switch {
		case s == "":
			return Pattern{}, fmt.Errorf("change: pattern %q: empty segment", raw)
		case s == "*":
			// wildcard, contributes nothing to specificity
		case strings.Contains(s, "*"):
			return Pattern{}, fmt.Errorf("change: pattern %q: %q mixes wildcard and literal", raw, s)
		default:
			specificity++
		}
	}
	return Pattern{raw: raw, segments: segs, specificity: specificity}, nil
}

// MustPattern compiles a pattern or panics. For package-level rule
// declarations and tests.
func MustPattern(raw string) Pattern {
	p, err := CompilePattern(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func checkBrackets(s string) error {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth < 0 {
				return fmt.Errorf("unbalanced brackets")
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("unbalanced brackets")
	}
	return nil
}

func (p Pattern) String() string { return p.raw }

// Specificity is the number of non-wildcard segments, used by the
// classifier for most-specific-match tie-breaking.
func (p Pattern) Specificity() int { return p.specificity }

// Match reports whether the pattern matches the full path: same segment
// count, each pattern segment either "*" or equal to the path segment.
func (p Pattern) Match(path string) bool {
	segs := SplitPath(path)
	if len(segs) != len(p.segments) {
		return false
	}
	for i, ps := range p.segments {
		if ps != "*" && ps != segs[i] {
			return false
		}
	}
	return true
}

// MatchSegments is Match over pre-split segments, for callers that split
// once and test many patterns.
func (p Pattern) MatchSegments(segs []string) bool {
	if len(segs) != len(p.segments) {
		return false
	}
	for i, ps := range p.segments {
		if ps != "*" && ps != segs[i] {
			return false
		}
	}
	return true
}
