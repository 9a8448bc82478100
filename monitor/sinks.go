// CLAUDE:SUMMARY Sink interface and implementations: fan-out router, JSON-lines stdout, in-process callback.
package monitor

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/hazyhaar/fiche/change"
)

// Sink is the output interface for change sets. Implementations deliver
// to different backends; a persistence or notification adapter plugs in
// here.
type Sink interface {
	Emit(ctx context.Context, sourceID string, cs *change.ChangeSet) error
	Close() error
}

// Router fans out change sets to all configured sinks. One sink error
// does not block the others — errors are logged and the first encountered
// is returned.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router delivering to all sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

func (r *Router) Emit(ctx context.Context, sourceID string, cs *change.ChangeSet) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Emit(ctx, sourceID, cs); err != nil {
			r.logger.Warn("sink: emit failed", "source", sourceID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) Close() error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Stdout writes change sets as JSON lines to an io.Writer (default
// os.Stdout). Ignored changes are already part of the set; filtering is
// the consumer's choice.
type Stdout struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewStdout creates a Stdout sink. If w is nil, os.Stdout is used.
func NewStdout(w io.Writer) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{enc: json.NewEncoder(w)}
}

func (s *Stdout) Emit(_ context.Context, sourceID string, cs *change.ChangeSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(envelope{Type: "changeset", Source: sourceID, Data: cs})
}

func (s *Stdout) Close() error { return nil }

type envelope struct {
	Type   string `json:"type"`
	Source string `json:"source"`
	Data   any    `json:"data"`
}

// Callback is an in-process sink for consumers living in the same
// binary — zero serialisation.
type Callback struct {
	fn func(ctx context.Context, sourceID string, cs *change.ChangeSet) error
}

// NewCallback creates a callback sink.
func NewCallback(fn func(ctx context.Context, sourceID string, cs *change.ChangeSet) error) *Callback {
	return &Callback{fn: fn}
}

func (c *Callback) Emit(ctx context.Context, sourceID string, cs *change.ChangeSet) error {
	return c.fn(ctx, sourceID, cs)
}

func (c *Callback) Close() error { return nil }
