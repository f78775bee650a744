package watchdog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dronesim/internal/shared"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Now()} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func withFakeClock(t *testing.T) *fakeClock {
	c := newFakeClock()
	orig := timeNow
	timeNow = c.Now
	t.Cleanup(func() { timeNow = orig })
	return c
}

func pumpUntil(t *testing.T, clock *fakeClock, step, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		clock.Advance(step)
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestRun_NoStallWhileHeartbeatsAdvance(t *testing.T) {
	clock := withFakeClock(t)
	state := shared.NewState(shared.NetworkConfig{})
	stall := make(chan string, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- Run(ctx, Deps{State: state, Stall: stall}) }()

	// advance the clock while continuously bumping every heartbeat, well
	// past the stall threshold, and confirm no stall fires.
	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		state.Heartbeats.Battery.Add(1)
		state.Heartbeats.Accel.Add(1)
		state.Heartbeats.GPS.Add(1)
		state.Heartbeats.FlightCtrl.Add(1)
		state.Heartbeats.Telemetry.Add(1)
		clock.Advance(tick)
		time.Sleep(time.Millisecond)
	}

	select {
	case role := <-stall:
		t.Fatalf("unexpected stall for %q", role)
	default:
	}

	cancel()
	<-done
}

func TestRun_SignalsStallOnFrozenHeartbeat(t *testing.T) {
	clock := withFakeClock(t)
	state := shared.NewState(shared.NetworkConfig{})
	stall := make(chan string, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, Deps{State: state, Stall: stall}) }()

	// every heartbeat except accel keeps advancing; accel is frozen.
	var role string
	pumpUntil(t, clock, tick, 2*time.Second, func() bool {
		state.Heartbeats.Battery.Add(1)
		state.Heartbeats.GPS.Add(1)
		state.Heartbeats.FlightCtrl.Add(1)
		state.Heartbeats.Telemetry.Add(1)
		select {
		case role = <-stall:
			return true
		default:
			return false
		}
	})

	assert.Equal(t, "accel", role)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after reporting stall")
	}
	cancel()
}
