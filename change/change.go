// CLAUDE:SUMMARY Public contract types for the fiche engine: Snapshot, FieldChange, Priority, CausationLink, ChangeSet.
// Package change defines the structured types produced by the fiche engine.
// These are the public API contract: any consumer (storage adapters,
// notification pipelines, custom sinks) imports this package to receive and
// process classified changes.
package change

import "fmt"

// Snapshot is a full structured state of the monitored entity at one point
// in time: string-keyed maps, ordered lists, and scalars (string, number,
// bool, null), as produced by decoding a JSON document. Snapshots are trees,
// never graphs, and are treated as immutable by the engine.
type Snapshot map[string]any

// Kind is the type of atomic difference between two snapshots.
type Kind string

const (
	KindAdded    Kind = "added"    // path present only in the current snapshot
	KindRemoved  Kind = "removed"  // path present only in the previous snapshot
	KindModified Kind = "modified" // path present in both with unequal values
)

// FieldChange is one atomic difference between two snapshots. Old is
// meaningful only for removed/modified, New only for added/modified —
// absence is carried by Kind, never encoded as a zero value. Immutable
// once produced.
type FieldChange struct {
	Path string `json:"path"`
	Kind Kind   `json:"kind"`
	Old  any    `json:"old,omitempty"`
	New  any    `json:"new,omitempty"`
}

// Added builds an added change for a path and its new value (scalar or
// whole sub-tree).
func Added(path string, v any) FieldChange {
	return FieldChange{Path: path, Kind: KindAdded, New: v}
}

// Removed builds a removed change for a path and its previous value.
func Removed(path string, v any) FieldChange {
	return FieldChange{Path: path, Kind: KindRemoved, Old: v}
}

// Modified builds a modified change. Callers must guarantee old != new.
func Modified(path string, oldV, newV any) FieldChange {
	return FieldChange{Path: path, Kind: KindModified, Old: oldV, New: newV}
}

// Priority is the ordinal importance tier attached to a change by the
// classifier. The zero value is PriorityIgnored.
type Priority int

const (
	PriorityIgnored Priority = iota
	PriorityLow
	PriorityMedium
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityIgnored:
		return "ignored"
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// ParsePriority parses a priority name as used in rule files.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "ignored":
		return PriorityIgnored, nil
	case "low":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	}
	return 0, fmt.Errorf("change: unknown priority %q", s)
}

// MarshalText renders the priority name, so JSON output carries "high"
// rather than an opaque ordinal.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a priority name.
func (p *Priority) UnmarshalText(b []byte) error {
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// PatternRule maps a wildcard path pattern to a priority tier. Rules are
// declared in order; when two patterns of equal specificity match the same
// path, the earlier rule wins, making ruleset order part of the contract.
type PatternRule struct {
	Pattern  string   `json:"pattern"`
	Priority Priority `json:"priority"`
}

// CausationLink is an inferred explanatory relationship between two
// changes, addressed by path. Depth counts causal hops from an unexplained
// root change; Truncated marks links whose chain reached the configured
// cascade bound.
type CausationLink struct {
	Effect     string  `json:"effect"`
	Cause      string  `json:"cause"`
	Rule       string  `json:"rule"`
	Confidence float64 `json:"confidence"`
	Depth      int     `json:"depth"`
	Truncated  bool    `json:"truncated,omitempty"`
}

// ClassifiedChange is a FieldChange with its priority tier and, when the
// analyzer found one, its best causal explanation. Link == nil means the
// change is an orphan (no explanation above the confidence threshold).
type ClassifiedChange struct {
	FieldChange
	Priority Priority       `json:"priority"`
	Link     *CausationLink `json:"link,omitempty"`
}

// Explained reports whether the change carries a causal explanation.
func (c ClassifiedChange) Explained() bool { return c.Link != nil }

// ChangeSet is the engine output for one diff invocation: classified
// changes ordered by (priority descending, path ascending). Created once,
// never mutated, and the engine holds no state between invocations.
type ChangeSet struct {
	ID         string             `json:"id"`          // prefixed UUIDv7
	ComputedAt int64              `json:"computed_at"` // epoch milliseconds
	Changes    []ClassifiedChange `json:"changes"`
}

// Empty reports whether the snapshots were identical.
func (cs *ChangeSet) Empty() bool { return len(cs.Changes) == 0 }

// Notifiable returns the delivery-facing view: every change except those
// classified Ignored. Ignored changes stay in Changes so audit logging
// sees them.
func (cs *ChangeSet) Notifiable() []ClassifiedChange {
	out := make([]ClassifiedChange, 0, len(cs.Changes))
	for _, c := range cs.Changes {
		if c.Priority > PriorityIgnored {
			out = append(out, c)
		}
	}
	return out
}

// Orphans returns the changes with no causal explanation.
func (cs *ChangeSet) Orphans() []ClassifiedChange {
	var out []ClassifiedChange
	for _, c := range cs.Changes {
		if !c.Explained() {
			out = append(out, c)
		}
	}
	return out
}
