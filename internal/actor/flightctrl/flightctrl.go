// Package flightctrl implements the mode state machine and the sole
// writer of the shared motor-PWM cell. It also owns the UDP socket that
// receives operator commands.
package flightctrl

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"dronesim/internal/netcmd"
	"dronesim/internal/obslog"
	"dronesim/internal/shared"
)

const (
	tick                   = 50 * time.Millisecond
	deltaIncrease  float32 = 0.005
	deltaDecrease  float32 = 0.01
	flyThreshold   float32 = 0.7
	stabilizeAbove float32 = 0.5
	bindBackoff            = 2 * time.Second
	maxFlyTimeout          = 10
	lowCharge              = 15
)

// for testing purposes
var timeNow = time.Now

// Deps are the dependencies a Run call needs.
type Deps struct {
	State *shared.State
	Log   *obslog.Logger
}

// loop bundles the mutable state carried across iterations — the
// equivalent of flight_ctrl.c's file-scope statics.
type loop struct {
	d               Deps
	conn            *net.UDPConn
	lastBindAttempt time.Time
	lastAction      shared.Mode
	lastAccel       shared.Acceleration
	flyTimeout      int
}

// Run executes the flight controller loop until ctx is canceled.
func Run(ctx context.Context, d Deps) error {
	l := &loop{d: d, lastAction: shared.Reserved}
	defer func() {
		if l.conn != nil {
			l.conn.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		l.step()

		d.State.Heartbeats.FlightCtrl.Add(1)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(tick):
		}
	}
}

func (l *loop) step() {
	operatorCmd := shared.Reserved
	if l.conn == nil {
		if timeNow().Sub(l.lastBindAttempt) >= bindBackoff {
			l.lastBindAttempt = timeNow()
			if err := l.bind(); err != nil {
				if l.d.Log != nil {
					l.d.Log.Warning().Err(err).Log("flight controller bind failed, retrying")
				}
			}
		}
	}
	if l.conn != nil {
		cmd, ok := l.recv()
		if ok {
			operatorCmd = cmd
		}
	}

	current := l.d.State.ModeNow()
	if current != l.lastAction {
		if l.d.Log != nil {
			l.d.Log.Info().Str("mode", current.String()).Log("mode transition observed")
		}
		l.lastAction = current
	}

	l.dispatch(current, operatorCmd)
}

func (l *loop) bind() error {
	addr := &net.UDPAddr{IP: net.ParseIP(l.d.State.Network.DroneIP), Port: int(l.d.State.Network.FlightCtrlPort)}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("flightctrl: bind: %w", err)
	}
	l.conn = conn
	return nil
}

// recv performs a non-blocking receive: a read deadline of "now" makes
// ReadFromUDP return immediately if nothing is pending, matching the
// original's MSG_DONTWAIT recvfrom.
func (l *loop) recv() (shared.Mode, bool) {
	buf := make([]byte, netcmd.Size+1)
	if err := l.conn.SetReadDeadline(timeNow()); err != nil {
		return 0, false
	}
	n, _, err := l.conn.ReadFromUDP(buf)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return 0, false
		}
		// Genuine communication error: force Abort and mark for rebind.
		l.d.State.SetMode(shared.Abort)
		if l.d.Log != nil {
			l.d.Log.Err().Err(err).Log("flight controller udp recv failed")
		}
		l.conn.Close()
		l.conn = nil
		return 0, false
	}
	m, err := netcmd.Decode(buf[:n])
	if err != nil {
		return 0, false
	}
	return m, true
}

func (l *loop) dispatch(current, operatorCmd shared.Mode) {
	switch current {
	case shared.Fly:
		l.doFly(operatorCmd)
	case shared.SampleGPS:
		if operatorCmd == shared.Fly || operatorCmd == shared.Abort {
			l.d.State.SetMode(operatorCmd)
		}
	case shared.Idle:
		if operatorCmd == shared.Fly || operatorCmd == shared.Charge || operatorCmd == shared.Abort {
			l.d.State.SetMode(operatorCmd)
		}
	case shared.Charge:
		if operatorCmd == shared.Idle || operatorCmd == shared.Abort {
			if l.d.State.Battery.Load() >= lowCharge {
				l.d.State.SetMode(operatorCmd)
			} else if l.d.Log != nil {
				l.d.Log.Info().Log("charging, ignoring operator command below 15% battery")
			}
		}
	case shared.Abort:
		l.doAbort(current, operatorCmd)
	case shared.Land:
		l.doLand(current, operatorCmd)
	default:
		if l.d.Log != nil {
			l.d.Log.Err().Str("mode", fmt.Sprint(int(current))).Log("undefined mode value, forcing abort")
		}
		l.d.State.SetMode(shared.Abort)
	}
}

func (l *loop) doFly(operatorCmd shared.Mode) {
	m := l.d.State.PWM.Get()

	var avg float32
	for i := range m.M {
		avg += m.M[i]
	}
	avg /= 4

	if avg < flyThreshold {
		for i := range m.M {
			m.M[i] = shared.Clamp(m.M[i]+deltaIncrease, 0, 1)
		}
	}

	a := l.d.State.Accel.Get()

	if avg >= stabilizeAbove {
		delta := a.X + a.Y
		for i := range m.M {
			m.M[i] = shared.Clamp(m.M[i]-delta, 0, 1)
		}
	}

	l.d.State.PWM.Set(m)

	if a == l.lastAccel {
		l.flyTimeout++
		if l.flyTimeout >= maxFlyTimeout {
			if l.d.Log != nil {
				l.d.Log.Err().Log("accelerometer data not changing, aborting")
			}
			l.d.State.SetMode(shared.Abort)
			l.flyTimeout = 0
		}
	} else {
		l.flyTimeout = 0
	}
	l.lastAccel = a

	if operatorCmd == shared.SampleGPS || operatorCmd == shared.Land || operatorCmd == shared.Abort {
		l.d.State.SetMode(operatorCmd)
	}
}

// doAbort implements the deliberate fall-through from Abort into Land: when
// battery has recovered, the same iteration re-evaluates the Land branch
// using current (the Abort value in effect before the revert) as the
// "current" value for Land's Idle/Charge decision, while still forwarding
// this iteration's operatorCmd so a Fly/Abort command read at the top of
// the iteration can immediately override the revert, exactly as it would
// in the Land case reached directly.
func (l *loop) doAbort(current, operatorCmd shared.Mode) {
	if l.d.State.Battery.Load() < lowCharge {
		l.d.State.SetMode(shared.Charge)
		return
	}
	if l.d.Log != nil {
		l.d.Log.Info().Log("changing to previous action")
	}
	l.d.State.SetMode(l.lastAction)
	l.doLand(current, operatorCmd)
}

func (l *loop) doLand(current, operatorCmd shared.Mode) {
	if operatorCmd == shared.Fly || operatorCmd == shared.Abort {
		l.d.State.SetMode(operatorCmd)
		return
	}

	m := l.d.State.PWM.Get()
	var avg float32
	for i := range m.M {
		m.M[i] = shared.Clamp(m.M[i]-deltaDecrease, 0, 1)
		avg += m.M[i]
	}
	avg /= 4
	l.d.State.PWM.Set(m)

	if avg == 0 {
		if current == shared.Abort {
			l.d.State.SetMode(shared.Charge)
		} else {
			l.d.State.SetMode(shared.Idle)
		}
	}
}
