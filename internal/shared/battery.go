package shared

import "sync/atomic"

// BatteryCell is the atomic charge-percentage cell. The battery actor is
// its sole writer; every other actor only reads it. atomic.Uint32 gives
// acquire/release ordering on Load/Store, which is all the original single-
// byte C11 atomic relied on — every other state change that depends on
// battery level is made by the battery actor itself under the action lock,
// so no additional synchronization is required here.
type BatteryCell struct {
	v atomic.Uint32
}

// NewBatteryCell returns a cell initialized to pct percent.
func NewBatteryCell(pct uint32) *BatteryCell {
	c := &BatteryCell{}
	c.v.Store(pct)
	return c
}

// Load returns the current charge percentage, in [0, 100].
func (c *BatteryCell) Load() uint32 {
	return c.v.Load()
}

// Store sets the charge percentage. Only the battery actor should call
// this.
func (c *BatteryCell) Store(pct uint32) {
	c.v.Store(pct)
}
