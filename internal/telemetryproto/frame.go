// Package telemetryproto assembles the newline-delimited text frames
// telemetry sends to the operator console over TCP, and wraps received
// bytes in the console's display markers. It has no frame parser.
package telemetryproto

import (
	"fmt"
	"strings"

	"dronesim/internal/shared"
)

// Builder accumulates one frame's worth of lines. The zero value is ready
// to use.
type Builder struct {
	sb strings.Builder
}

// Battery appends the "BAT = <n>%" line.
func (b *Builder) Battery(pct uint32) {
	fmt.Fprintf(&b.sb, "BAT = %d%%\n", pct)
}

// Accel appends the "ACCEL = (...)" line. Callers only call this after a
// successful trylock read, per the single-writer/best-effort-reader
// discipline on the acceleration cell.
func (b *Builder) Accel(a shared.Acceleration) {
	fmt.Fprintf(&b.sb, "ACCEL = (x: %.6f, y: %.6f, z: %.6f)\n", a.X, a.Y, a.Z)
}

// Motors appends the "MOTORS PWM = [...]" line, each value rendered as a
// rounded percentage.
func (b *Builder) Motors(m shared.Motors) {
	fmt.Fprintf(&b.sb, "MOTORS PWM = [%d%%, %d%%, %d%%, %d%%]\n",
		percent(m.M[0]), percent(m.M[1]), percent(m.M[2]), percent(m.M[3]))
}

func percent(f float32) int {
	return int(f*100 + 0.5)
}

// Action appends the "ACTION = <n>" line, numeric to match the wire values
// netcmd uses.
func (b *Builder) Action(m shared.Mode) {
	fmt.Fprintf(&b.sb, "ACTION = %d\n", int(m))
}

// BeginGPS opens the "GPS {" block.
func (b *Builder) BeginGPS() {
	b.sb.WriteString("GPS {\n")
}

// GPSByte appends a single raw byte consumed from the GPS ring.
func (b *Builder) GPSByte(c byte) {
	b.sb.WriteByte(c)
}

// NoFix appends the "NO FIX." line used when the GPS consumer times out.
func (b *Builder) NoFix() {
	b.sb.WriteString("NO FIX.\n")
}

// EndGPS closes the "GPS {" block.
func (b *Builder) EndGPS() {
	b.sb.WriteString("}\n")
}

// Bytes returns the assembled frame.
func (b *Builder) Bytes() []byte {
	return []byte(b.sb.String())
}

// Print renders frame wrapped in the operator console's display markers.
func Print(frame []byte) string {
	return "[TELEMETRY] {\n" + string(frame) + "}\n"
}
