package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// State of the gate at a given instant.
type State string

const (
	Armed      State = "armed"
	Suppressed State = "suppressed"
)

// Decision is the gate's answer for one instant.
type Decision struct {
	State     State
	LastAlert float64       // epoch seconds, 0 when none recorded
	Remaining time.Duration // time until re-armed; zero when armed
	// Degraded is set when the store could not be read and the gate fell back to armed.
	Degraded bool
	Err      error
}

// Armed reports whether a dispatch may proceed.
func (d Decision) Armed() bool { return d.State == Armed }

// Gate suppresses repeated alerts within a cooldown window. The Suppressed to
// Armed transition is computed from the stored timestamp; nothing runs in the background.
//
// With a store that does not implement Swapper, Check followed by RecordDispatch is
// a plain read-then-write and overlapping invocations can both dispatch. Deployments
// that allow overlap must use a Swapper store (memory, file, sqlite, redis) and
// call Reserve before sending.
type Gate struct {
	store    Store
	key      string
	cooldown time.Duration
	log      zerolog.Logger
}

// NewGate creates a gate over store. key names the single persisted timestamp.
func NewGate(store Store, key string, cooldown time.Duration, log zerolog.Logger) *Gate {
	return &Gate{
		store:    store,
		key:      key,
		cooldown: cooldown,
		log:      log.With().Str("component", "cooldown").Logger(),
	}
}

// Check reads the last alert time and evaluates the gate at now. A store read
// failure yields an armed, degraded decision.
func (g *Gate) Check(ctx context.Context, now time.Time) Decision {
	last, err := g.store.Get(ctx, g.key)
	if err != nil {
		g.log.Warn().Err(err).Msg("cooldown store unavailable, gate defaults to armed")
		return Decision{State: Armed, Degraded: true, Err: err}
	}
	return g.decide(last, now)
}

func (g *Gate) decide(last float64, now time.Time) Decision {
	elapsed := epochSeconds(now) - last
	cd := g.cooldown.Seconds()
	if last <= 0 || elapsed >= cd {
		return Decision{State: Armed, LastAlert: last}
	}
	remaining := time.Duration((cd - elapsed) * float64(time.Second))
	return Decision{State: Suppressed, LastAlert: last, Remaining: remaining}
}

// ShouldDispatch reports whether an alert may be sent at now.
func (g *Gate) ShouldDispatch(ctx context.Context, now time.Time) bool {
	return g.Check(ctx, now).Armed()
}

// Reserve claims the window at now before sending, using compare-and-swap when the
// store supports it. It returns false when another invocation claimed it first.
// Stores without Swapper always succeed.
func (g *Gate) Reserve(ctx context.Context, now time.Time, d Decision) (bool, error) {
	sw, ok := g.store.(Swapper)
	if !ok || d.Degraded {
		return true, nil
	}
	won, err := sw.CompareAndSwap(ctx, g.key, d.LastAlert, epochSeconds(now))
	if err != nil {
		return false, fmt.Errorf("reserve cooldown: %w", err)
	}
	return won, nil
}

// Release undoes a reservation made at now after a failed delivery, restoring the
// previous timestamp unless someone else has written since.
func (g *Gate) Release(ctx context.Context, now time.Time, d Decision) error {
	sw, ok := g.store.(Swapper)
	if !ok || d.Degraded {
		return nil
	}
	if _, err := sw.CompareAndSwap(ctx, g.key, epochSeconds(now), d.LastAlert); err != nil {
		return fmt.Errorf("release cooldown: %w", err)
	}
	return nil
}

// RecordDispatch moves the gate to Suppressed starting at now.
func (g *Gate) RecordDispatch(ctx context.Context, now time.Time) error {
	if err := g.store.Set(ctx, g.key, epochSeconds(now)); err != nil {
		return fmt.Errorf("record dispatch: %w", err)
	}
	return nil
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
