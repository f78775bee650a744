package shared

import (
	"errors"
	"time"
)

// GPSRingSize is the byte capacity of the NMEA circular buffer (N in the
// data model: 10 sample-sized slots of 128 bytes each).
const GPSRingSize = 1280

// ErrRingTimeout is returned by PutByte/GetByte when no slot becomes
// available before the deadline.
var ErrRingTimeout = errors.New("shared: gps ring timed out")

// GPSRing is the bounded byte buffer connecting the GPS producer to the
// telemetry consumer. It is the classic counting-semaphore bounded buffer,
// with the two semaphores expressed as buffered channels of empty struct —
// a send is a "post", a receive is a "wait", and channel capacity caps the
// count exactly as a POSIX counting semaphore would. The interior mutex
// guards the buffer and both indices so a put and a get can never race on
// the same slot.
type GPSRing struct {
	mu          chan struct{} // binary semaphore, 1 token
	empty, full chan struct{} // counting semaphores, GPSRingSize tokens
	buf         [GPSRingSize]byte
	writeIdx    int
	readIdx     int
}

// NewGPSRing returns a ring with all slots empty.
func NewGPSRing() *GPSRing {
	r := &GPSRing{
		mu:    make(chan struct{}, 1),
		empty: make(chan struct{}, GPSRingSize),
		full:  make(chan struct{}, GPSRingSize),
	}
	r.mu <- struct{}{}
	for i := 0; i < GPSRingSize; i++ {
		r.empty <- struct{}{}
	}
	return r
}

// Reinit resets the ring's synchronization primitives to their initial
// state (all slots reported empty) without touching the byte buffer or
// either index. Callers must guarantee no producer or consumer is active.
// This mirrors the original recovery path, which reinitializes the
// semaphores unconditionally and leaves the buffer contents and indices as
// they were — the ring's occupancy bookkeeping restarts even though bytes
// already written may still be sitting in the buffer.
func (r *GPSRing) Reinit() {
	drain(r.mu)
	for {
		select {
		case <-r.empty:
			continue
		default:
		}
		break
	}
	for {
		select {
		case <-r.full:
			continue
		default:
		}
		break
	}
	r.mu <- struct{}{}
	for i := 0; i < GPSRingSize; i++ {
		r.empty <- struct{}{}
	}
}

// PutByte is the sole-producer write path: it waits for an empty slot (up
// to timeout), writes b, and posts a full slot. It returns ErrRingTimeout
// if no slot freed up in time.
func (r *GPSRing) PutByte(b byte, timeout time.Duration) error {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-r.empty:
	case <-t.C:
		return ErrRingTimeout
	}

	<-r.mu
	r.buf[r.writeIdx] = b
	r.writeIdx = (r.writeIdx + 1) % GPSRingSize
	r.mu <- struct{}{}

	r.full <- struct{}{}
	return nil
}

// GetByte is the sole-consumer read path: it waits for a full slot (up to
// timeout), reads a byte, and posts an empty slot. It returns
// ErrRingTimeout if no byte arrived in time.
func (r *GPSRing) GetByte(timeout time.Duration) (byte, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-r.full:
	case <-t.C:
		return 0, ErrRingTimeout
	}

	<-r.mu
	b := r.buf[r.readIdx]
	r.readIdx = (r.readIdx + 1) % GPSRingSize
	r.mu <- struct{}{}

	r.empty <- struct{}{}
	return b, nil
}

// Slots returns the current (emptyCount, fullCount) for quiescence checks
// in tests; it is not used by any actor's hot path.
func (r *GPSRing) Slots() (empty, full int) {
	return len(r.empty), len(r.full)
}
