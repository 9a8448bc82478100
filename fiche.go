// CLAUDE:SUMMARY Engine orchestrator: diff → classify → causation → assembled, ordered ChangeSet.
// Package fiche answers three questions about a periodically re-fetched
// character sheet: what changed, why, and how much a human observer should
// care. It structurally diffs two snapshots of the same entity, classifies
// every atomic change into a priority tier through wildcard pattern rules,
// and links changes into causal explanations ("level increased, therefore
// maximum hit points increased").
//
// The engine is a pure, synchronous computation: no I/O, no state between
// invocations. Snapshot fetching, persistence, rendering, and delivery
// belong to the callers — see the monitor package for the polling shell
// that connects a snapshot source to sinks.
package fiche

import (
	"log/slog"
	"sort"
	"time"

	"github.com/hazyhaar/fiche/change"
	"github.com/hazyhaar/fiche/idgen"
	"github.com/hazyhaar/fiche/internal/causation"
	"github.com/hazyhaar/fiche/internal/classify"
	"github.com/hazyhaar/fiche/internal/diff"
)

// Engine computes change sets. Safe for concurrent use: the compiled
// ruleset is read-only after New and every invocation works on its own
// data.
type Engine struct {
	cfg     EngineConfig
	ruleset *classify.Ruleset
	logger  *slog.Logger
	newID   idgen.Generator
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDGenerator sets a custom generator for ChangeSet IDs.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(e *Engine) { e.newID = gen }
}

// WithClock sets the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New validates the configuration, compiles the pattern ruleset, and
// returns an engine. Malformed patterns and out-of-range settings are
// rejected here, never during diffing.
func New(cfg EngineConfig, logger *slog.Logger, opts ...Option) (*Engine, error) {
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	rs, err := classify.Compile(cfg.PatternRules, cfg.DefaultPriority)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		cfg:     cfg,
		ruleset: rs,
		logger:  logger,
		newID:   idgen.Prefixed("cs_", idgen.Default),
		now:     time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() EngineConfig { return e.cfg }

// ComputeChangeSet diffs two snapshots of the same logical entity,
// classifies each change, links causes to effects, and returns the
// assembled result ordered by (priority descending, path ascending).
// Structural errors (nil or malformed snapshots) fail the invocation with
// no partial ChangeSet.
func (e *Engine) ComputeChangeSet(previous, current change.Snapshot) (*change.ChangeSet, error) {
	if previous == nil || current == nil {
		return nil, ErrNilSnapshot
	}

	raw, err := diff.Diff(previous, current, diff.Options{IdentityKey: e.cfg.ListIdentityKey})
	if err != nil {
		return nil, err
	}

	links := causation.Analyze(raw, e.cfg.CausalRules, causation.Config{
		MaxDepth:      e.cfg.MaxCascadeDepth,
		MinConfidence: e.cfg.MinConfidence,
		Logger:        e.logger,
	})
	byEffect := make(map[string]*change.CausationLink, len(links))
	for i := range links {
		byEffect[links[i].Effect] = &links[i]
	}

	// A type change is legitimately two changes (Removed + Added) at one
	// path, so duplicates are detected per (path, kind). The shared link is
	// attached to both halves: links address paths, not kinds.
	type pathKind struct {
		path string
		kind change.Kind
	}
	classified := make([]change.ClassifiedChange, 0, len(raw))
	seen := make(map[pathKind]bool, len(raw))
	for _, c := range raw {
		pk := pathKind{c.Path, c.Kind}
		if seen[pk] {
			return nil, ErrDuplicatePath
		}
		seen[pk] = true
		classified = append(classified, change.ClassifiedChange{
			FieldChange: c,
			Priority:    e.ruleset.Classify(c.Path),
			Link:        byEffect[c.Path],
		})
	}

	// Ordering is a public contract consumed by notification formatting:
	// priority descending, then path ascending, stable across calls.
	sort.SliceStable(classified, func(i, j int) bool {
		if classified[i].Priority != classified[j].Priority {
			return classified[i].Priority > classified[j].Priority
		}
		return classified[i].Path < classified[j].Path
	})

	return &change.ChangeSet{
		ID:         e.newID(),
		ComputedAt: e.now().UnixMilli(),
		Changes:    classified,
	}, nil
}

// ComputeChangeSet is the package-level entry point for one-shot callers:
// it builds a throwaway engine from config and runs one invocation.
func ComputeChangeSet(previous, current change.Snapshot, cfg EngineConfig) (*change.ChangeSet, error) {
	e, err := New(cfg, nil)
	if err != nil {
		return nil, err
	}
	return e.ComputeChangeSet(previous, current)
}
