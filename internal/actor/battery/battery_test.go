package battery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dronesim/internal/shared"
)

// fakeClock lets tests fast-forward the elapsed-time checks without
// waiting on real discharge/charge intervals.
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

// pumpUntil repeatedly advances clock by step and gives the actor a
// moment to observe it, until cond is satisfied or timeout elapses. The
// repeated small advances (rather than one large jump) avoid any
// dependency on exactly when the actor goroutine captured its initial
// "last tick" timestamp.
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

func TestRun_DischargeDecrementsOverTime(t *testing.T) {
	clock := withFakeClock(t)
	state := shared.NewState(shared.NetworkConfig{})
	state.Battery.Store(50)
	state.SetMode(shared.Idle)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, Deps{State: state}) }()

	pumpUntil(t, clock, dischargeInterval, 2*time.Second, func() bool {
		return state.Battery.Load() <= 49
	})

	cancel()
	<-done
}

func TestRun_LowChargeForcesAbort(t *testing.T) {
	clock := withFakeClock(t)
	state := shared.NewState(shared.NetworkConfig{})
	state.Battery.Store(16)
	state.SetMode(shared.Idle)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, Deps{State: state}) }()

	pumpUntil(t, clock, dischargeInterval, 3*time.Second, func() bool {
		return state.ModeNow() == shared.Abort
	})

	assert.Equal(t, uint32(14), state.Battery.Load())

	cancel()
	<-done
}

func TestRun_ChargeIncrements(t *testing.T) {
	clock := withFakeClock(t)
	state := shared.NewState(shared.NetworkConfig{})
	state.Battery.Store(50)
	state.SetMode(shared.Charge)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, Deps{State: state}) }()

	pumpUntil(t, clock, chargeInterval, 2*time.Second, func() bool {
		return state.Battery.Load() >= 51
	})

	cancel()
	<-done
}

func TestRun_HardShutdownAtZero(t *testing.T) {
	clock := withFakeClock(t)
	state := shared.NewState(shared.NetworkConfig{})
	state.Battery.Store(0)
	state.SetMode(shared.Idle)
	shutdown := make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- Run(ctx, Deps{State: state, Shutdown: shutdown}) }()

	pumpUntil(t, clock, dischargeInterval, 2*time.Second, func() bool {
		select {
		case <-shutdown:
			return true
		default:
			return false
		}
	})

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after hard shutdown")
	}
}
