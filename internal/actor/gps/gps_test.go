package gps

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dronesim/internal/shared"
)

func TestRun_ProducesFirstSampleBytes(t *testing.T) {
	state := shared.NewState(shared.NetworkConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- Run(ctx, Deps{State: state}) }()

	want := Samples[0]
	got := make([]byte, 0, len(want))
	for i := 0; i < len(want); i++ {
		b, err := state.GPS.GetByte(2 * time.Second)
		if err != nil {
			t.Fatalf("GetByte failed: %v", err)
		}
		got = append(got, b)
	}

	assert.Equal(t, want, string(got))

	cancel()
	<-done
}

func TestRun_StopsOnCancel(t *testing.T) {
	state := shared.NewState(shared.NetworkConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, Deps{State: state}) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancellation")
	}
}
