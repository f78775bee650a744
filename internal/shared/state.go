package shared

import "sync/atomic"

// Acceleration is the drone's acceleration on all three axes, in m/s².
type Acceleration struct {
	X, Y, Z float32
}

// Motors holds the PWM ratio, in [0, 1], for each of the four motors.
type Motors struct {
	M [4]float32
}

// NetworkConfig is written once by the supervisor before any actor starts
// and is immutable thereafter — no lock guards it, by contract.
type NetworkConfig struct {
	OperatorIP     string
	TelemetryPort  uint16
	DroneIP        string
	FlightCtrlPort uint16
}

// Heartbeats holds one monotonically increasing counter per publishing
// actor. Each actor increments only its own field, at the end of every
// loop iteration; the watchdog only reads. Wraparound is fine — the
// watchdog looks for "did this change", not magnitude.
type Heartbeats struct {
	Battery    atomic.Uint32
	Accel      atomic.Uint32
	GPS        atomic.Uint32
	FlightCtrl atomic.Uint32
	Telemetry  atomic.Uint32
}

// Identity records, per actor role, how many times the supervisor has
// (re)spawned it. It stands in for the original's PID table: there are no
// OS PIDs for goroutines, but "which generation of this role is currently
// running" is the same liveness-adjacent bookkeeping, writable only by the
// supervisor. There is no read accessor: the generation number Bump returns
// is used only for logging.
type Identity struct {
	mu MutexCell[identityGenerations]
}

type identityGenerations struct {
	Battery, Accel, GPS, FlightCtrl, Telemetry, Watchdog uint64
}

// NewIdentity returns a zeroed identity table.
func NewIdentity() *Identity {
	return &Identity{}
}

// Bump increments the generation counter for role and returns the new
// value. Only the supervisor should call this.
func (id *Identity) Bump(role string) uint64 {
	var gen uint64
	id.mu.Update(func(g identityGenerations) identityGenerations {
		switch role {
		case "battery":
			g.Battery++
			gen = g.Battery
		case "accel":
			g.Accel++
			gen = g.Accel
		case "gps":
			g.GPS++
			gen = g.GPS
		case "flightctrl":
			g.FlightCtrl++
			gen = g.FlightCtrl
		case "telemetry":
			g.Telemetry++
			gen = g.Telemetry
		case "watchdog":
			g.Watchdog++
			gen = g.Watchdog
		}
		return g
	})
	return gen
}

// State is the single shared record every actor operates against. All
// actors hold the same *State for their lifetime; nothing here is ever
// copied for authoritative use.
type State struct {
	Network NetworkConfig
	Heartbeats Heartbeats
	Identity *Identity

	Action *ActionLock
	Mode   Mode // guarded by Action; read/written only while holding it

	Accel *MutexCell[Acceleration]
	PWM   *MutexCell[Motors]

	GPS *GPSRing

	Battery *BatteryCell
}

// NewState allocates a State with every cell at its documented initial
// value: Idle mode, zero acceleration, zero PWM, empty GPS ring, battery at
// 100%.
func NewState(cfg NetworkConfig) *State {
	return &State{
		Network:  cfg,
		Identity: NewIdentity(),
		Action:   NewActionLock(),
		Mode:     Idle,
		Accel:    NewMutexCell[Acceleration](),
		PWM:      NewMutexCell[Motors](),
		GPS:      NewGPSRing(),
		Battery:  NewBatteryCell(100),
	}
}

// ModeNow reads Mode under the action lock's read side.
func (s *State) ModeNow() Mode {
	s.Action.RLock()
	defer s.Action.RUnlock()
	return s.Mode
}

// SetMode writes Mode under the action lock's write side. This is the only
// way Mode should ever change.
func (s *State) SetMode(m Mode) {
	s.Action.Lock()
	defer s.Action.Unlock()
	s.Mode = m
}

// ReinitPrimitives reinitializes the action lock and the GPS ring's
// semaphores in place, without touching Mode, Accel, PWM, the GPS ring's
// buffer/indices, or Battery. The mutexes inside the Accel, PWM and
// Identity cells are not reset; every MutexCell method releases its mutex
// before returning. This is the one operation allowed to mutate primitives
// after construction, and callers must guarantee every actor goroutine has
// already stopped before calling it.
func (s *State) ReinitPrimitives() {
	s.Action.Reinit()
	s.GPS.Reinit()
}
