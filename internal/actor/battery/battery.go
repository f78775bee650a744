// Package battery implements the sole writer of the shared battery cell.
package battery

import (
	"context"
	"time"

	"dronesim/internal/obslog"
	"dronesim/internal/shared"
)

// for testing purposes
var (
	timeNow = time.Now
)

const (
	dischargeInterval = 2000 * time.Millisecond
	chargeInterval    = 500 * time.Millisecond
	tick              = 100 * time.Microsecond
	lowCharge         = 15
)

// Deps are the dependencies a Run call needs.
type Deps struct {
	State *shared.State
	Log   *obslog.Logger
	// Shutdown receives one non-blocking send from the battery actor when
	// charge reaches 0%, signaling the supervisor to tear down the whole
	// actor group.
	Shutdown chan<- struct{}
}

// Run executes the battery control loop until ctx is canceled. It returns
// nil on clean cancellation; it never returns an error on its own, since
// nothing in its own loop body can fail — errors elsewhere surface as
// Abort transitions instead.
func Run(ctx context.Context, d Deps) error {
	last := timeNow()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		now := timeNow()
		elapsed := now.Sub(last)
		mode := d.State.ModeNow()
		level := d.State.Battery.Load()

		switch {
		case mode == shared.Charge:
			if elapsed >= chargeInterval {
				last = now
				if level < 100 {
					d.State.Battery.Store(level + 1)
				}
			}
		default:
			if elapsed >= dischargeInterval {
				last = now
				if level > 0 {
					level--
					d.State.Battery.Store(level)
					if level < lowCharge && mode != shared.Abort {
						if d.Log != nil {
							d.Log.Err().Int("battery", int(level)).Log("battery low, forcing abort")
						}
						d.State.SetMode(shared.Abort)
					}
				} else {
					if d.Log != nil {
						d.Log.Err().Log("battery depleted, hard shutdown")
					}
					select {
					case d.Shutdown <- struct{}{}:
					default:
					}
					return nil
				}
			}
		}

		d.State.Heartbeats.Battery.Add(1)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(tick):
		}
	}
}
