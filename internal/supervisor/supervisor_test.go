package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dronesim/internal/shared"
)

func TestSupervisor_RespawnsActorOnError(t *testing.T) {
	state := shared.NewState(shared.NetworkConfig{})
	sup := New(state, nil)

	var calls atomic.Int32
	sup.Register("flaky", func(ctx context.Context) error {
		calls.Add(1)
		if calls.Load() < 3 {
			return errors.New("boom")
		}
		<-ctx.Done()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after ctx cancellation")
	}
}

func TestSupervisor_HardShutdownStopsAllActors(t *testing.T) {
	state := shared.NewState(shared.NetworkConfig{})
	sup := New(state, nil)

	var running atomic.Int32
	sup.Register("a", func(ctx context.Context) error {
		running.Add(1)
		defer running.Add(-1)
		<-ctx.Done()
		return nil
	})
	sup.Register("b", func(ctx context.Context) error {
		running.Add(1)
		defer running.Add(-1)
		<-ctx.Done()
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- sup.Run(context.Background()) }()

	require.Eventually(t, func() bool { return running.Load() == 2 }, time.Second, time.Millisecond)

	sup.ShutdownChan() <- struct{}{}

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after hard shutdown")
	}
	assert.Equal(t, int32(0), running.Load())
}

func TestSupervisor_StallRecoveryPreservesDataAndRespawns(t *testing.T) {
	state := shared.NewState(shared.NetworkConfig{})
	state.SetMode(shared.Fly)
	state.Battery.Store(42)
	sup := New(state, nil)

	var spawns atomic.Int32
	sup.Register("watched", func(ctx context.Context) error {
		spawns.Add(1)
		<-ctx.Done()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	require.Eventually(t, func() bool { return spawns.Load() == 1 }, time.Second, time.Millisecond)

	sup.StallChan() <- "watched"

	require.Eventually(t, func() bool { return spawns.Load() == 2 }, 2*time.Second, time.Millisecond)

	// stall recovery must not touch any non-primitive field.
	assert.Equal(t, shared.Fly, state.ModeNow())
	assert.Equal(t, uint32(42), state.Battery.Load())

	cancel()
	<-done
}
