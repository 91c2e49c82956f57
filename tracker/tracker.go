// Package tracker keeps account of which of a fixed number of packets have
// been seen. Both sides of a transfer use it: the sender for the packets it
// presumes delivered, the receiver for the packets it actually holds.
package tracker

import (
	"github.com/bits-and-blooms/bitset"
)

type Tracker struct {
	bits *bitset.BitSet
	size uint32
}

func New(size uint32) *Tracker {
	return &Tracker{
		bits: bitset.New(uint(size)),
		size: size,
	}
}

func (t *Tracker) Size() uint32 {
	return t.size
}

// Mark sets bit i. Indices outside [0, Size()) are ignored.
func (t *Tracker) Mark(i uint32) {
	if i >= t.size {
		return
	}
	t.bits.Set(uint(i))
}

// Clear unsets bit i. Indices outside [0, Size()) are ignored.
func (t *Tracker) Clear(i uint32) {
	if i >= t.size {
		return
	}
	t.bits.Clear(uint(i))
}

func (t *Tracker) IsSet(i uint32) bool {
	if i >= t.size {
		return false
	}
	return t.bits.Test(uint(i))
}

func (t *Tracker) Cardinality() uint32 {
	return uint32(t.bits.Count())
}

func (t *Tracker) Full() bool {
	return t.Cardinality() == t.size
}

// FirstMissing returns the smallest unset index, or false if every bit is set.
func (t *Tracker) FirstMissing() (uint32, bool) {
	i, ok := t.bits.NextClear(0)
	if !ok || i >= uint(t.size) {
		return 0, false
	}
	return uint32(i), true
}

// Missing lists every unset index in ascending order. The slice is built from
// the current bits on each call.
func (t *Tracker) Missing() []uint32 {
	missing := make([]uint32, 0, t.size-t.Cardinality())
	for i, ok := t.bits.NextClear(0); ok && i < uint(t.size); i, ok = t.bits.NextClear(i + 1) {
		missing = append(missing, uint32(i))
	}
	return missing
}
