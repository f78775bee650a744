// Package netcmd implements the UDP wire format carrying operator mode
// commands from the operator console to the flight controller.
package netcmd

import (
	"encoding/binary"
	"errors"

	"dronesim/internal/shared"
)

// Size is the exact datagram length a command occupies: one little-endian
// uint32 carrying the numeric mode value, mirroring the original's raw
// sizeof(current_action_t) payload.
const Size = 4

// ErrBadSize is returned by Decode when the datagram isn't exactly Size
// bytes, per the external-interface contract: any datagram of unexpected
// size is ignored.
var ErrBadSize = errors.New("netcmd: unexpected datagram size")

// ErrBadMode is returned by Decode when the datagram decodes to a value
// outside the seven enumerated modes.
var ErrBadMode = errors.New("netcmd: undefined mode value")

// Encode renders m as a command datagram.
func Encode(m shared.Mode) []byte {
	b := make([]byte, Size)
	binary.LittleEndian.PutUint32(b, uint32(m))
	return b
}

// Decode parses a received datagram into a Mode. Callers must discard
// datagrams where err is non-nil rather than treating them as "no command".
func Decode(b []byte) (m shared.Mode, err error) {
	if len(b) != Size {
		return 0, ErrBadSize
	}
	v := binary.LittleEndian.Uint32(b)
	m = shared.Mode(v)
	if !m.Valid() {
		return 0, ErrBadMode
	}
	return m, nil
}
