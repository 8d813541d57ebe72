// Package bus provides a single-slot concurrent register used to hand the
// latest value from one control loop to the next.
//
// A Bus is not a queue. Every Write replaces the slot as a whole, and readers
// always observe the most recently completed write (or the default). A slow
// reader simply misses intermediate values; a fast reader sees the same value
// more than once.
package bus

import "sync"

// Bus holds exactly one value of type T behind a reader/writer lock.
// T should be a value type (array, struct of scalars); a Bus of slices or maps
// only protects the header, not the backing storage.
type Bus[T any] struct {
	mu      sync.RWMutex
	value   T
	version uint64
}

// New creates a Bus that returns def until the first Write.
func New[T any](def T) *Bus[T] {
	return &Bus[T]{value: def}
}

// Write replaces the current value.
func (b *Bus[T]) Write(v T) {
	b.mu.Lock()
	b.value = v
	b.version++
	b.mu.Unlock()
}

// Read returns the current value. Readers never block each other.
func (b *Bus[T]) Read() T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.value
}

// ReadVersion returns the current value together with the number of writes
// that produced it. Version 0 means the value is still the default.
func (b *Bus[T]) ReadVersion() (T, uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.value, b.version
}

// Version returns the number of completed writes.
func (b *Bus[T]) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}
