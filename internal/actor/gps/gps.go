// Package gps implements the sole producer into the shared NMEA ring
// buffer, cycling through a fixed set of sample sentences.
package gps

import (
	"context"
	"errors"
	"time"

	"dronesim/internal/obslog"
	"dronesim/internal/shared"
)

const (
	byteTimeout   = time.Second
	sampleBackoff = time.Second
)

// Samples is the fixed sequence of NMEA sentences used as simulation
// stimulus, cycled indefinitely.
var Samples = []string{
	"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47\n",
	"$GPGSA,A,3,04,05,09,12,24,25,29,30,31,,,1.8,1.0,1.5*33\n",
	"$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A\n",
	"$GPVTG,084.4,T,003.1,M,022.4,N,041.4,K*1F\n",
}

// Deps are the dependencies a Run call needs.
type Deps struct {
	State *shared.State
	Log   *obslog.Logger
}

// Run executes the GPS producer loop until ctx is canceled.
func Run(ctx context.Context, d Deps) error {
	idx := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		sample := Samples[idx]
		if writeSample(ctx, d, sample) {
			idx = (idx + 1) % len(Samples)
		}

		d.State.Heartbeats.GPS.Add(1)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(sampleBackoff):
		}
	}
}

// writeSample emits sample byte-by-byte. It returns false (abandoning the
// sample) on the first timed-out byte.
func writeSample(ctx context.Context, d Deps, sample string) bool {
	for i := 0; i < len(sample); i++ {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		if err := d.State.GPS.PutByte(sample[i], byteTimeout); err != nil {
			if errors.Is(err, shared.ErrRingTimeout) && d.Log != nil {
				d.Log.Warning().Log("gps ring put timed out, abandoning sample")
			}
			return false
		}
	}
	return true
}
