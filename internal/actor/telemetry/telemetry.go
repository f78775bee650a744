// Package telemetry implements the TCP uplink that aggregates readable
// state into periodic text frames for the operator console. It is also
// the sole consumer of the GPS ring, active only in SampleGPS mode.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"dronesim/internal/obslog"
	"dronesim/internal/shared"
	"dronesim/internal/telemetryproto"
)

const (
	tick         = 10 * time.Millisecond
	gpsWait      = 5 * time.Second
	maxFrameByte = 256
)

// Deps are the dependencies a Run call needs.
type Deps struct {
	State *shared.State
	Log   *obslog.Logger
}

type loop struct {
	d    Deps
	conn net.Conn
}

// Run executes the telemetry loop until ctx is canceled.
func Run(ctx context.Context, d Deps) error {
	l := &loop{d: d}
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

		l.step(ctx)

		d.State.Heartbeats.Telemetry.Add(1)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(tick):
		}
	}
}

func (l *loop) step(ctx context.Context) {
	if l.conn == nil {
		if err := l.connect(); err != nil {
			if l.d.Log != nil {
				l.d.Log.Warning().Err(err).Log("telemetry connect failed, retrying")
			}
			return
		}
	}

	frame := l.assemble(ctx)

	if _, err := l.conn.Write(frame); err != nil {
		if l.d.Log != nil {
			l.d.Log.Err().Err(err).Log("telemetry send failed, connection lost")
		}
		l.conn.Close()
		l.conn = nil
	}
}

func (l *loop) connect() error {
	addr := net.JoinHostPort(l.d.State.Network.OperatorIP, fmt.Sprint(l.d.State.Network.TelemetryPort))
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return fmt.Errorf("telemetry: connect: %w", err)
	}
	l.conn = conn
	return nil
}

func (l *loop) assemble(ctx context.Context) []byte {
	var b telemetryproto.Builder

	b.Battery(l.d.State.Battery.Load())

	if a, ok := l.d.State.Accel.TryGet(); ok {
		b.Accel(a)
	}
	if m, ok := l.d.State.PWM.TryGet(); ok {
		b.Motors(m)
	}

	action := l.d.State.ModeNow()
	b.Action(action)

	if action == shared.SampleGPS {
		l.consumeGPS(ctx, &b)
	}

	return b.Bytes()
}

// consumeGPS drains the ring up to and including the next '\n', or until
// the frame buffer is exhausted, or until a single byte wait exceeds
// gpsWait — in which case it reports "no fix" and forces Abort.
func (l *loop) consumeGPS(ctx context.Context, b *telemetryproto.Builder) {
	b.BeginGPS()
	written := 0
	for written < maxFrameByte {
		select {
		case <-ctx.Done():
			b.EndGPS()
			return
		default:
		}

		c, err := l.d.State.GPS.GetByte(gpsWait)
		if err != nil {
			if errors.Is(err, shared.ErrRingTimeout) {
				if l.d.Log != nil {
					l.d.Log.Warning().Log("gps consumer timed out, no fix")
				}
				b.NoFix()
				l.d.State.SetMode(shared.Abort)
			}
			break
		}

		b.GPSByte(c)
		written++
		if c == '\n' {
			break
		}
	}
	b.EndGPS()
}
