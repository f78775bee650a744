// Package watchdog samples the five publishing actors' heartbeat counters
// and reports a stall to the supervisor when one stops advancing.
package watchdog

import (
	"context"
	"time"

	"dronesim/internal/obslog"
	"dronesim/internal/shared"
)

const (
	tick    = 100 * time.Millisecond
	timeout = 2 * time.Second
)

// for testing purposes
var timeNow = time.Now

// Deps are the dependencies a Run call needs.
type Deps struct {
	State *shared.State
	Log   *obslog.Logger
	// Stall is sent to (non-blocking) when a stall is detected. Run
	// returns immediately afterward — the supervisor respawns the
	// watchdog the same way it respawns any other actor.
	Stall chan<- string
}

type tracked struct {
	name       string
	load       func() uint32
	last       uint32
	lastChange time.Time
}

// Run executes the watchdog loop until ctx is canceled or a stall is
// detected, whichever comes first.
func Run(ctx context.Context, d Deps) error {
	now := timeNow()
	actors := []*tracked{
		{name: "battery", load: d.State.Heartbeats.Battery.Load},
		{name: "accel", load: d.State.Heartbeats.Accel.Load},
		{name: "gps", load: d.State.Heartbeats.GPS.Load},
		{name: "flightctrl", load: d.State.Heartbeats.FlightCtrl.Load},
		{name: "telemetry", load: d.State.Heartbeats.Telemetry.Load},
	}
	for _, a := range actors {
		a.last = a.load()
		a.lastChange = now
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		now := timeNow()
		for _, a := range actors {
			v := a.load()
			if v != a.last {
				a.lastChange = now
				a.last = v
				continue
			}
			if now.Sub(a.lastChange) >= timeout {
				if d.Log != nil {
					d.Log.Err().Str("actor", a.name).Log("heartbeat timeout, signaling stall")
				}
				select {
				case d.Stall <- a.name:
				default:
				}
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(tick):
		}
	}
}
