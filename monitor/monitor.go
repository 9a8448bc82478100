// Package monitor provides the generic "poll a snapshot source, diff,
// debounce, emit" loop around the fiche engine. It standardises the
// reactive pattern so every deployment gets consistent intervals, debounce
// windows, and observability for free.
//
// monitor observes, it does not fetch or persist. Where snapshots come
// from (HTTP scrape, file, database row) is the Source implementation's
// business; where change sets go is the Sink's. Both stay outside this
// package.
//
// Typical usage:
//
//	m := monitor.New(engine, src, monitor.Options{Interval: time.Minute}, monitor.NewStdout(nil))
//	go m.Run(ctx)
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/fiche"
	"github.com/hazyhaar/fiche/change"
)

// Source supplies snapshots of one monitored entity. Two calls that
// return structurally different snapshots mean "something changed".
// Implementations must use the same path-addressing convention on every
// call.
type Source interface {
	// ID identifies the monitored entity in logs and sink envelopes.
	ID() string
	Snapshot(ctx context.Context) (change.Snapshot, error)
}

// SourceFunc adapts a function to Source.
func SourceFunc(id string, fn func(ctx context.Context) (change.Snapshot, error)) Source {
	return funcSource{id: id, fn: fn}
}

type funcSource struct {
	id string
	fn func(context.Context) (change.Snapshot, error)
}

func (s funcSource) ID() string { return s.id }

func (s funcSource) Snapshot(ctx context.Context) (change.Snapshot, error) {
	return s.fn(ctx)
}

// Options tunes the monitor behaviour.
type Options struct {
	// Interval is the polling frequency. Default: 1m.
	Interval time.Duration
	// Debounce is the quiet period after a change is detected before the
	// change set is emitted. If more changes arrive during the window
	// the timer resets and the final emission covers everything since
	// the last emitted snapshot. 0 means emit immediately. Default: 0.
	Debounce time.Duration
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Interval <= 0 {
		o.Interval = time.Minute
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Monitor polls a Source, computes change sets against the last emitted
// snapshot, and fans them out to sinks. Safe for concurrent use.
type Monitor struct {
	engine *fiche.Engine
	source Source
	sinks  *Router
	opts   Options

	// last is the snapshot the next change set is computed against.
	// Guarded by mu; replaced only after a successful emit.
	mu      sync.Mutex
	last    change.Snapshot
	pending change.Snapshot

	// Counters for observability (exported via Stats).
	checks  atomic.Int64
	changes atomic.Int64
	errs    atomic.Int64
	emits   atomic.Int64
}

// Stats are point-in-time counters.
type Stats struct {
	Checks          int64 `json:"checks"`
	ChangesDetected int64 `json:"changes_detected"`
	Errors          int64 `json:"errors"`
	Emits           int64 `json:"emits"`
}

// New creates a Monitor. Call Run to start the loop.
func New(engine *fiche.Engine, source Source, opts Options, sinks ...Sink) *Monitor {
	opts.defaults()
	return &Monitor{
		engine: engine,
		source: source,
		sinks:  NewRouter(opts.Logger, sinks...),
		opts:   opts,
	}
}

// Stats returns the current counters.
func (m *Monitor) Stats() Stats {
	return Stats{
		Checks:          m.checks.Load(),
		ChangesDetected: m.changes.Load(),
		Errors:          m.errs.Load(),
		Emits:           m.emits.Load(),
	}
}

// Run blocks until ctx is cancelled, polling at opts.Interval. The first
// successful snapshot becomes the baseline; afterwards every detected
// difference is emitted to the sinks once the debounce window passes
// without further movement. Source errors and sink errors are counted and
// logged, never fatal — the next poll retries.
func (m *Monitor) Run(ctx context.Context) error {
	log := m.opts.Logger

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time

	log.Info("monitor: started", "source", m.source.ID(), "interval", m.opts.Interval, "debounce", m.opts.Debounce)

	for {
		select {
		case <-ctx.Done():
			log.Info("monitor: stopped", "source", m.source.ID())
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return m.sinks.Close()

		case <-ticker.C:
			moved, err := m.observe(ctx)
			if err != nil {
				m.errs.Add(1)
				log.Warn("monitor: check failed", "source", m.source.ID(), "error", err)
				continue
			}
			if !moved {
				continue
			}
			m.changes.Add(1)
			if m.opts.Debounce <= 0 {
				m.emit(ctx)
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(m.opts.Debounce)
			debounceCh = debounceTimer.C
			log.Debug("monitor: change detected, debouncing", "source", m.source.ID())

		case <-debounceCh:
			debounceCh = nil
			m.emit(ctx)
		}
	}
}

// observe takes one snapshot and reports whether it differs from the
// pending state. It never emits.
func (m *Monitor) observe(ctx context.Context) (bool, error) {
	m.checks.Add(1)
	snap, err := m.source.Snapshot(ctx)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.last == nil {
		m.last = snap
		return false, nil
	}

	ref := m.pending
	if ref == nil {
		ref = m.last
	}
	cs, err := m.engine.ComputeChangeSet(ref, snap)
	if err != nil {
		return false, err
	}
	if cs.Empty() {
		return false, nil
	}
	m.pending = snap
	return true, nil
}

// emit computes the change set between the last emitted snapshot and the
// pending one, delivers it, and advances the baseline. The baseline does
// NOT advance on failure — the changes will be re-emitted on the next
// detection.
func (m *Monitor) emit(ctx context.Context) {
	m.mu.Lock()
	last, pending := m.last, m.pending
	m.mu.Unlock()
	if pending == nil {
		return
	}

	cs, err := m.engine.ComputeChangeSet(last, pending)
	if err != nil {
		m.errs.Add(1)
		m.opts.Logger.Warn("monitor: compute failed", "source", m.source.ID(), "error", err)
		return
	}
	if cs.Empty() {
		// Flapped back to the baseline during the debounce window.
		m.mu.Lock()
		m.pending = nil
		m.mu.Unlock()
		return
	}

	if err := m.sinks.Emit(ctx, m.source.ID(), cs); err != nil {
		m.errs.Add(1)
		return
	}

	m.emits.Add(1)
	m.opts.Logger.Info("monitor: change set emitted",
		"source", m.source.ID(), "changeset", cs.ID, "changes", len(cs.Changes))

	m.mu.Lock()
	m.last = pending
	m.pending = nil
	m.mu.Unlock()
}

// CheckNow performs one poll-and-emit cycle outside the ticker, for
// callers that want an immediate check (CLI one-shots, tests).
func (m *Monitor) CheckNow(ctx context.Context) error {
	moved, err := m.observe(ctx)
	if err != nil {
		m.errs.Add(1)
		return err
	}
	if moved {
		m.changes.Add(1)
		m.emit(ctx)
	}
	return nil
}
