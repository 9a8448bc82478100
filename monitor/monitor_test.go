package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/fiche"
	"github.com/hazyhaar/fiche/change"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEngine(t *testing.T) *fiche.Engine {
	t.Helper()
	e, err := fiche.New(fiche.EngineConfig{DefaultPriority: change.PriorityLow}, quiet())
	if err != nil {
		t.Fatal(err)
	}
	return e
}

// seqSource replays a fixed sequence of snapshots, repeating the last one.
type seqSource struct {
	mu    sync.Mutex
	snaps []change.Snapshot
	i     int
}

func (s *seqSource) ID() string { return "sheet-42" }

func (s *seqSource) Snapshot(context.Context) (change.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snaps[s.i]
	if s.i < len(s.snaps)-1 {
		s.i++
	}
	return snap, nil
}

// collectSink records every emitted change set.
type collectSink struct {
	mu      sync.Mutex
	sets    []*change.ChangeSet
	sources []string
	fail    error
}

func (c *collectSink) Emit(_ context.Context, sourceID string, cs *change.ChangeSet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.sets = append(c.sets, cs)
	c.sources = append(c.sources, sourceID)
	return nil
}

func (c *collectSink) Close() error { return nil }

func (c *collectSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sets)
}

func TestMonitor_FirstSnapshotIsBaseline(t *testing.T) {
	src := &seqSource{snaps: []change.Snapshot{{"level": float64(3)}}}
	sink := &collectSink{}
	m := New(testEngine(t), src, Options{Logger: quiet()}, sink)

	if err := m.CheckNow(context.Background()); err != nil {
		t.Fatal(err)
	}
	if sink.count() != 0 {
		t.Fatalf("baseline check emitted: %v", sink.sets)
	}
	if s := m.Stats(); s.Checks != 1 || s.ChangesDetected != 0 {
		t.Fatalf("stats: %+v", s)
	}
}

func TestMonitor_EmitsOnChange(t *testing.T) {
	src := &seqSource{snaps: []change.Snapshot{
		{"level": float64(3)},
		{"level": float64(4)},
	}}
	sink := &collectSink{}
	m := New(testEngine(t), src, Options{Logger: quiet()}, sink)

	ctx := context.Background()
	if err := m.CheckNow(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m.CheckNow(ctx); err != nil {
		t.Fatal(err)
	}

	if sink.count() != 1 {
		t.Fatalf("got %d emissions", sink.count())
	}
	cs := sink.sets[0]
	if len(cs.Changes) != 1 || cs.Changes[0].Path != "level" {
		t.Fatalf("change set: %v", cs.Changes)
	}
	if sink.sources[0] != "sheet-42" {
		t.Fatalf("source id: %q", sink.sources[0])
	}
	if s := m.Stats(); s.ChangesDetected != 1 || s.Emits != 1 {
		t.Fatalf("stats: %+v", s)
	}
}

func TestMonitor_NoEmitWithoutMovement(t *testing.T) {
	src := &seqSource{snaps: []change.Snapshot{{"level": float64(3)}}}
	sink := &collectSink{}
	m := New(testEngine(t), src, Options{Logger: quiet()}, sink)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := m.CheckNow(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if sink.count() != 0 {
		t.Fatalf("emitted without movement: %v", sink.sets)
	}
	if s := m.Stats(); s.Checks != 3 {
		t.Fatalf("stats: %+v", s)
	}
}

func TestMonitor_SourceErrorIsCounted(t *testing.T) {
	boom := errors.New("fetch failed")
	src := SourceFunc("sheet-42", func(context.Context) (change.Snapshot, error) {
		return nil, boom
	})
	m := New(testEngine(t), src, Options{Logger: quiet()}, &collectSink{})

	if err := m.CheckNow(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
	if s := m.Stats(); s.Errors != 1 {
		t.Fatalf("stats: %+v", s)
	}
}

func TestMonitor_BaselineHeldOnSinkFailure(t *testing.T) {
	// A failed delivery must not advance the baseline; the next detection
	// emits everything accumulated since the last delivered snapshot.
	src := &seqSource{snaps: []change.Snapshot{
		{"level": float64(3)},
		{"level": float64(4)},
		{"level": float64(5)},
	}}
	sink := &collectSink{fail: errors.New("sink down")}
	m := New(testEngine(t), src, Options{Logger: quiet()}, sink)

	ctx := context.Background()
	m.CheckNow(ctx)
	m.CheckNow(ctx)
	if s := m.Stats(); s.Emits != 0 || s.Errors != 1 {
		t.Fatalf("stats after failure: %+v", s)
	}

	sink.mu.Lock()
	sink.fail = nil
	sink.mu.Unlock()

	m.CheckNow(ctx)
	if sink.count() != 1 {
		t.Fatalf("got %d emissions after recovery", sink.count())
	}
	if got := sink.sets[0].Changes[0]; got.Old != float64(3) || got.New != float64(5) {
		t.Fatalf("recovered change must span the failed window: %+v", got)
	}
}

func TestMonitor_RunLoop(t *testing.T) {
	src := &seqSource{snaps: []change.Snapshot{
		{"gold": float64(10)},
		{"gold": float64(12)},
	}}
	got := make(chan *change.ChangeSet, 1)
	sink := NewCallback(func(_ context.Context, _ string, cs *change.ChangeSet) error {
		select {
		case got <- cs:
		default:
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := New(testEngine(t), src, Options{Interval: 5 * time.Millisecond, Logger: quiet()}, sink)

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	select {
	case cs := <-got:
		if len(cs.Changes) != 1 || cs.Changes[0].Path != "gold" {
			t.Errorf("change set: %v", cs.Changes)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no emission within 2s")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestStdoutSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf)

	cs := &change.ChangeSet{ID: "cs_x", Changes: []change.ClassifiedChange{}}
	if err := s.Emit(context.Background(), "sheet-42", cs); err != nil {
		t.Fatal(err)
	}

	var env struct {
		Type   string           `json:"type"`
		Source string           `json:"source"`
		Data   change.ChangeSet `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Type != "changeset" || env.Source != "sheet-42" || env.Data.ID != "cs_x" {
		t.Fatalf("envelope: %+v", env)
	}
}

func TestRouter_FanOutAndFirstError(t *testing.T) {
	ok1, ok2 := &collectSink{}, &collectSink{}
	bad := &collectSink{fail: errors.New("down")}
	r := NewRouter(quiet(), ok1, bad, ok2)

	cs := &change.ChangeSet{ID: "cs_y"}
	err := r.Emit(context.Background(), "s", cs)
	if err == nil || err.Error() != "down" {
		t.Fatalf("first error: %v", err)
	}
	if ok1.count() != 1 || ok2.count() != 1 {
		t.Fatal("healthy sinks skipped")
	}
}
