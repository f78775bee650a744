// Package accel implements the sole writer of the shared acceleration
// cell, deriving a synthetic signal from the current motor PWM values.
package accel

import (
	"context"
	"math"
	"math/rand"
	"time"

	"dronesim/internal/obslog"
	"dronesim/internal/shared"
)

const (
	maxThrust  = 9.81 * 2.0
	diffFactor = 0.2
	noiseXYStd = 0.02
	noiseZStd  = 0.05
	tick       = 10 * time.Millisecond
	gravity    = 9.81
)

// Deps are the dependencies a Run call needs.
type Deps struct {
	State *shared.State
	Log   *obslog.Logger
	// Rand, if non-nil, is the noise source. Tests inject a seeded one for
	// determinism; production uses the package default (nil).
	Rand *rand.Rand
}

// Run executes the accelerometer simulation loop until ctx is canceled.
func Run(ctx context.Context, d Deps) error {
	rng := d.Rand
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		m := d.State.PWM.Get()

		m0, m1, m2, m3 := float64(m.M[0]), float64(m.M[1]), float64(m.M[2]), float64(m.M[3])
		thrust := (m0 + m1 + m2 + m3) * maxThrust
		roll := (m1 + m3 - m0 - m2) * (maxThrust * diffFactor)
		pitch := (m2 + m3 - m0 - m1) * (maxThrust * diffFactor)

		a := shared.Acceleration{
			X: float32(roll + gaussNoise(rng, noiseXYStd)),
			Y: float32(pitch + gaussNoise(rng, noiseXYStd)),
			Z: float32(thrust - gravity + gaussNoise(rng, noiseZStd)),
		}

		d.State.Accel.Set(a)
		d.State.Heartbeats.Accel.Add(1)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(tick):
		}
	}
}

// gaussNoise draws one sample from N(0, stddev^2) via Box–Muller, matching
// the reference's use of two uniform draws on (0, 1].
func gaussNoise(rng *rand.Rand, stddev float64) float64 {
	var u1, u2 float64
	if rng != nil {
		u1 = rng.Float64()
		u2 = rng.Float64()
	} else {
		u1 = rand.Float64()
		u2 = rand.Float64()
	}
	// shift into (0, 1] to avoid log(0)
	u1 = 1 - u1
	u2 = 1 - u2
	mag := stddev * math.Sqrt(-2*math.Log(u1))
	return mag * math.Cos(2*math.Pi*u2)
}
