// CLAUDE:SUMMARY FieldPath helpers: dot/bracket segmentation, child and list-element addressing.
package change

import (
	"fmt"
	"strings"
)

// A FieldPath is a dot-separated address of one value within a snapshot:
// map keys joined by ".", list elements addressed by "[n]" (positional) or
// "[key=value]" (stable identity), e.g.
//
//	combat.hit_points.maximum
//	inventory[id=dagger-1].quantity
//
// Paths are the join key between changes, pattern rules, and causal
// predicates. The helpers below are the single place that knows the
// segment grammar.

// Child appends a map key to a path.
func Child(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// Indexed appends a positional list selector to a path.
func Indexed(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}

// Keyed appends an identity list selector to a path.
func Keyed(path, key, value string) string {
	return fmt.Sprintf("%s[%s=%s]", path, key, value)
}

// SplitPath splits a path into segments at dots outside bracket selectors.
// "inventory[id=dagger-1].quantity" yields two segments. It never fails;
// pattern validation is where malformed syntax is rejected.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	var segs []string
	depth := 0
	start := 0
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case '.':
			if depth == 0 {
				segs = append(segs, path[start:i])
				start = i + 1
			}
		}
	}
	return append(segs, path[start:])
}

// JoinPath is the inverse of SplitPath.
func JoinPath(segments []string) string {
	return strings.Join(segments, ".")
}
