// Package concurrent holds small lock-free primitives shared across
// operator packages: a monotonic sequence counter (used to break ties
// between items that expire at the same instant) and a per-SourceList
// edit-scope stack (used by SourceList.Edit to roll back on error).
package concurrent

import (
	"sync/atomic"
)

// SequenceCounter is a lock-free monotonically increasing counter. The
// expire and limit-size-to operators (spec §4.I) use it to stamp each
// inserted item with a monotonic_sequence_number so that items
// expiring at the same instant still sort deterministically.
type SequenceCounter struct {
	value uint64
}

// NewSequenceCounter creates a counter starting at zero.
func NewSequenceCounter() *SequenceCounter {
	return &SequenceCounter{value: 0}
}

// Next returns the next sequence number, starting at 1.
func (c *SequenceCounter) Next() uint64 {
	return atomic.AddUint64(&c.value, 1)
}

// Add increments the counter by delta and returns the new value.
func (c *SequenceCounter) Add(delta uint64) uint64 {
	return atomic.AddUint64(&c.value, delta)
}

// Load returns the current value without advancing it.
func (c *SequenceCounter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

// Store sets the counter to a specific value.
func (c *SequenceCounter) Store(value uint64) {
	atomic.StoreUint64(&c.value, value)
}

// CompareAndSwap performs a CAS operation, returning true on success.
func (c *SequenceCounter) CompareAndSwap(old, new uint64) bool {
	return atomic.CompareAndSwapUint64(&c.value, old, new)
}

// Reset sets the counter back to zero and returns the previous value.
func (c *SequenceCounter) Reset() uint64 {
	return atomic.SwapUint64(&c.value, 0)
}
