package cooldown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const testKey = "last_alert_time"

type failingStore struct{ err error }

func (f failingStore) Get(context.Context, string) (float64, error) { return 0, f.err }
func (f failingStore) Set(context.Context, string, float64) error   { return f.err }
func (f failingStore) Close() error                                 { return nil }

func newTestGate(s Store, cd time.Duration) *Gate {
	return NewGate(s, testKey, cd, zerolog.Nop())
}

func TestGate_FreshStoreIsArmed(t *testing.T) {
	g := newTestGate(NewMemoryStore(), time.Hour)
	d := g.Check(context.Background(), time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC))
	if !d.Armed() || d.Remaining != 0 || d.Degraded {
		t.Fatalf("expected clean armed decision, got %+v", d)
	}
}

func TestGate_RecordThenBoundary(t *testing.T) {
	ctx := context.Background()
	g := newTestGate(NewMemoryStore(), time.Hour)
	t0 := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)

	if err := g.RecordDispatch(ctx, t0); err != nil {
		t.Fatalf("record: %v", err)
	}
	if g.ShouldDispatch(ctx, t0.Add(time.Hour-time.Second)) {
		t.Error("expected suppressed one second before the window closes")
	}
	if !g.ShouldDispatch(ctx, t0.Add(time.Hour)) {
		t.Error("expected armed exactly at the window boundary")
	}
	// Checking does not mutate state.
	if g.ShouldDispatch(ctx, t0.Add(30*time.Minute)) {
		t.Error("expected still suppressed after repeated checks")
	}
}

func TestGate_RemainingTime(t *testing.T) {
	ctx := context.Background()
	g := newTestGate(NewMemoryStore(), time.Hour)
	now := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)

	if err := g.RecordDispatch(ctx, now.Add(-10*time.Minute)); err != nil {
		t.Fatalf("record: %v", err)
	}
	d := g.Check(ctx, now)
	if d.Armed() {
		t.Fatal("expected suppressed")
	}
	if diff := d.Remaining - 50*time.Minute; diff > time.Millisecond || diff < -time.Millisecond {
		t.Errorf("expected about 50m remaining, got %v", d.Remaining)
	}
}

func TestGate_DegradedOnReadError(t *testing.T) {
	boom := errors.New("store down")
	g := newTestGate(failingStore{err: boom}, time.Hour)
	d := g.Check(context.Background(), time.Now())
	if !d.Armed() || !d.Degraded || !errors.Is(d.Err, boom) {
		t.Fatalf("expected degraded armed decision, got %+v", d)
	}
	ok, err := g.Reserve(context.Background(), time.Now(), d)
	if !ok || err != nil {
		t.Errorf("degraded reserve should pass through, got %v %v", ok, err)
	}
	if err := g.RecordDispatch(context.Background(), time.Now()); !errors.Is(err, boom) {
		t.Errorf("expected record error to wrap store error, got %v", err)
	}
}

func TestGate_NoopAlwaysArmed(t *testing.T) {
	ctx := context.Background()
	g := newTestGate(NewNoopStore(), time.Hour)
	now := time.Now()
	if err := g.RecordDispatch(ctx, now); err != nil {
		t.Fatalf("record: %v", err)
	}
	if !g.ShouldDispatch(ctx, now.Add(time.Second)) {
		t.Error("noop store should leave the gate armed")
	}
	ok, err := g.Reserve(ctx, now, g.Check(ctx, now))
	if !ok || err != nil {
		t.Errorf("noop reserve should always succeed, got %v %v", ok, err)
	}
}

func TestGate_ReserveIsExclusive(t *testing.T) {
	ctx := context.Background()
	g := newTestGate(NewMemoryStore(), time.Hour)
	now := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)

	first := g.Check(ctx, now)
	second := g.Check(ctx, now)

	won, err := g.Reserve(ctx, now, first)
	if err != nil || !won {
		t.Fatalf("first reserve should win, got %v %v", won, err)
	}
	won, err = g.Reserve(ctx, now.Add(time.Second), second)
	if err != nil || won {
		t.Fatalf("second reserve should lose, got %v %v", won, err)
	}
	if g.ShouldDispatch(ctx, now.Add(time.Minute)) {
		t.Error("reservation should suppress the gate")
	}
}

func TestGate_ReleaseRestoresPrevious(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	g := newTestGate(store, time.Hour)
	earlier := time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC)
	now := earlier.Add(2 * time.Hour)

	if err := g.RecordDispatch(ctx, earlier); err != nil {
		t.Fatalf("record: %v", err)
	}
	d := g.Check(ctx, now)
	if won, err := g.Reserve(ctx, now, d); err != nil || !won {
		t.Fatalf("reserve: %v %v", won, err)
	}
	if err := g.Release(ctx, now, d); err != nil {
		t.Fatalf("release: %v", err)
	}
	got, _ := store.Get(ctx, testKey)
	if got != epochSeconds(earlier) {
		t.Errorf("expected previous timestamp restored, got %v", got)
	}
	if !g.ShouldDispatch(ctx, now) {
		t.Error("gate should be armed again after release")
	}
}
