package shared

import "sync"

// MutexCell guards a single value with one designated writer and any number
// of readers. It wraps sync.Mutex directly (rather than a hand-rolled
// semaphore, as ActionLock requires) because plain mutual exclusion with a
// non-blocking TryLock is exactly what sync.Mutex already provides since
// Go 1.18 — there is no reader-preference requirement here, so there is
// nothing a custom primitive would buy over the standard library.
type MutexCell[T any] struct {
	mu    sync.Mutex
	value T
}

// NewMutexCell returns a MutexCell initialized to the zero value of T.
func NewMutexCell[T any]() *MutexCell[T] {
	return &MutexCell[T]{}
}

// Get returns a copy of the current value, blocking until the lock is free.
func (c *MutexCell[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set overwrites the value, blocking until the lock is free. Callers must
// respect the single-writer discipline documented on the cell; Set does not
// enforce it.
func (c *MutexCell[T]) Set(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
}

// Update reads, mutates via fn, and writes back the value atomically with
// respect to other Get/Set/Update/TryGet callers.
func (c *MutexCell[T]) Update(fn func(T) T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = fn(c.value)
}

// TryGet attempts a non-blocking read, for callers (telemetry) that must
// never stall the main actor flows assembling a frame. ok is false if the
// cell was locked.
func (c *MutexCell[T]) TryGet() (v T, ok bool) {
	if !c.mu.TryLock() {
		return v, false
	}
	defer c.mu.Unlock()
	return c.value, true
}
