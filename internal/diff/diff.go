// CLAUDE:SUMMARY Structural differ: lock-step tree walk emitting atomic FieldChanges, with list-identity resolution.
// Package diff compares two snapshots of the same logical entity and emits
// the atomic differences between them. It is pure: no I/O, no shared state,
// deterministic output (changes sorted by path).
package diff

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/hazyhaar/fiche/change"
)

// Numeric scalars compare equal within epsilon so recomputed derived
// values do not produce false positives.
const epsilon = 1e-9

// Options tunes the differ.
type Options struct {
	// IdentityKey is the map field treated as a stable identity when
	// matching list elements. Default: "id".
	IdentityKey string
}

func (o *Options) defaults() {
	if o.IdentityKey == "" {
		o.IdentityKey = "id"
	}
}

// Diff walks both snapshots in lock-step and returns every atomic
// difference, sorted by path. It fails fast on the first value that is
// neither map, list, nor scalar, reporting the offending path — a skipped
// sub-tree would hide real changes.
func Diff(previous, current change.Snapshot, opts Options) ([]change.FieldChange, error) {
	opts.defaults()
	d := &differ{identityKey: opts.IdentityKey}
	if err := d.compareMaps("", previous, current); err != nil {
		return nil, err
	}
	// Stable: a type change emits Removed then Added at one path, and that
	// relative order is part of the output contract.
	sort.SliceStable(d.changes, func(i, j int) bool { return d.changes[i].Path < d.changes[j].Path })
	return d.changes, nil
}

type differ struct {
	identityKey string
	changes     []change.FieldChange
}

// valueKind partitions snapshot values. Anything else is malformed.
type valueKind int

const (
	kindScalar valueKind = iota
	kindMap
	kindList
	kindInvalid
)

func kindOf(v any) valueKind {
	switch v.(type) {
	case nil, bool, string, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return kindScalar
	case map[string]any, change.Snapshot:
		return kindMap
	case []any:
		return kindList
	}
	return kindInvalid
}

func asMap(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case change.Snapshot:
		return m
	}
	return nil
}

func (d *differ) emit(c change.FieldChange) {
	d.changes = append(d.changes, c)
}

func (d *differ) compare(path string, prev, curr any) error {
	pk, ck := kindOf(prev), kindOf(curr)
	if pk == kindInvalid {
		return &change.MalformedValueError{Path: path, Value: prev}
	}
	if ck == kindInvalid {
		return &change.MalformedValueError{Path: path, Value: curr}
	}

	// A path whose container type changes between snapshots is one
	// Removed plus one Added at that path, not a Modified. Scalar-to-scalar
	// type changes fall through to the kindScalar case below.
	if pk != ck {
		if err := validateTree(path, prev); err != nil {
			return err
		}
		if err := validateTree(path, curr); err != nil {
			return err
		}
		d.emit(change.Removed(path, prev))
		d.emit(change.Added(path, curr))
		return nil
	}

	switch pk {
	case kindScalar:
		if !scalarEqual(prev, curr) {
			d.emit(change.Modified(path, prev, curr))
		}
		return nil
	case kindMap:
		return d.compareMaps(path, asMap(prev), asMap(curr))
	default:
		return d.compareLists(path, prev.([]any), curr.([]any))
	}
}

func (d *differ) compareMaps(path string, prev, curr map[string]any) error {
	keys := make([]string, 0, len(prev)+len(curr))
	seen := make(map[string]bool, len(prev)+len(curr))
	for k := range prev {
		keys = append(keys, k)
		seen[k] = true
	}
	for k := range curr {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		child := change.Child(path, k)
		pv, inPrev := prev[k]
		cv, inCurr := curr[k]
		switch {
		case inPrev && inCurr:
			if err := d.compare(child, pv, cv); err != nil {
				return err
			}
		case inPrev:
			if err := validateTree(child, pv); err != nil {
				return err
			}
			d.emit(change.Removed(child, pv))
		default:
			if err := validateTree(child, cv); err != nil {
				return err
			}
			d.emit(change.Added(child, cv))
		}
	}
	return nil
}

func (d *differ) compareLists(path string, prev, curr []any) error {
	prevIdx, pok := indexByIdentity(prev, d.identityKey)
	currIdx, cok := indexByIdentity(curr, d.identityKey)
	if pok && cok {
		return d.compareByIdentity(path, prev, curr, prevIdx, currIdx)
	}
	return d.comparePositional(path, prev, curr)
}

func (d *differ) compareByIdentity(path string, prev, curr []any, prevIdx, currIdx map[string]any) error {
	// Previous order first (matched pairs and removals), then additions
	// in current order. The final path sort makes the overall output
	// deterministic either way.
	for _, e := range prev {
		id, _ := identityOf(e, d.identityKey)
		elem := change.Keyed(path, d.identityKey, id)
		if ce, ok := currIdx[id]; ok {
			if err := d.compare(elem, e, ce); err != nil {
				return err
			}
			continue
		}
		if err := validateTree(elem, e); err != nil {
			return err
		}
		d.emit(change.Removed(elem, e))
	}
	for _, e := range curr {
		id, _ := identityOf(e, d.identityKey)
		if _, ok := prevIdx[id]; ok {
			continue
		}
		elem := change.Keyed(path, d.identityKey, id)
		if err := validateTree(elem, e); err != nil {
			return err
		}
		d.emit(change.Added(elem, e))
	}
	return nil
}

func (d *differ) comparePositional(path string, prev, curr []any) error {
	n := len(prev)
	if len(curr) < n {
		n = len(curr)
	}
	for i := 0; i < n; i++ {
		if err := d.compare(change.Indexed(path, i), prev[i], curr[i]); err != nil {
			return err
		}
	}
	for i := n; i < len(prev); i++ {
		elem := change.Indexed(path, i)
		if err := validateTree(elem, prev[i]); err != nil {
			return err
		}
		d.emit(change.Removed(elem, prev[i]))
	}
	for i := n; i < len(curr); i++ {
		elem := change.Indexed(path, i)
		if err := validateTree(elem, curr[i]); err != nil {
			return err
		}
		d.emit(change.Added(elem, curr[i]))
	}
	return nil
}

// indexByIdentity returns an id→element index when every element is a map
// carrying a usable identity value and no id repeats. Otherwise the list
// is matched positionally — a duplicated identity is no identity at all.
func indexByIdentity(list []any, key string) (map[string]any, bool) {
	if len(list) == 0 {
		return map[string]any{}, true
	}
	idx := make(map[string]any, len(list))
	for _, e := range list {
		id, ok := identityOf(e, key)
		if !ok {
			return nil, false
		}
		if _, dup := idx[id]; dup {
			return nil, false
		}
		idx[id] = e
	}
	return idx, true
}

func identityOf(e any, key string) (string, bool) {
	m := asMap(e)
	if m == nil {
		return "", false
	}
	v, ok := m[key]
	if !ok {
		return "", false
	}
	return identityString(v)
}

// identityString renders an identity value into a path selector. Values
// that cannot be addressed unambiguously (empty, containing "]", or
// non-scalar) disqualify the list from identity matching.
func identityString(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case bool:
		s = strconv.FormatBool(t)
	case json.Number:
		s = t.String()
	default:
		f, ok := toFloat(v)
		if !ok {
			return "", false
		}
		if f == math.Trunc(f) {
			s = strconv.FormatInt(int64(f), 10)
		} else {
			s = strconv.FormatFloat(f, 'g', -1, 64)
		}
	}
	if s == "" || strings.ContainsAny(s, "[]") {
		return "", false
	}
	return s, true
}

// validateTree walks a sub-tree present on only one side, so malformed
// values are reported even when there is nothing to compare against.
func validateTree(path string, v any) error {
	switch kindOf(v) {
	case kindScalar:
		return nil
	case kindMap:
		m := asMap(v)
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := validateTree(change.Child(path, k), m[k]); err != nil {
				return err
			}
		}
		return nil
	case kindList:
		for i, e := range v.([]any) {
			if err := validateTree(change.Indexed(path, i), e); err != nil {
				return err
			}
		}
		return nil
	}
	return &change.MalformedValueError{Path: path, Value: v}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func scalarEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && math.Abs(fa-fb) <= epsilon
	}
	switch av := a.(type) {
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	}
	// Unreachable for well-formed scalars; be strict rather than clever.
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}
