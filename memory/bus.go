package memory

import (
	"sync/atomic"
)

// SliceBus is a Bus over an explicit word buffer
type SliceBus[W Word] struct {
	words []W
}

// NewSliceBus returns a bus over the given buffer. The buffer is used
// directly, not copied.
func NewSliceBus[W Word](words []W) *SliceBus[W] {
	return &SliceBus[W]{words: words}
}

func (b *SliceBus[W]) Read(index uint64) W {
	return b.words[index]
}

func (b *SliceBus[W]) Write(index uint64, value W) {
	b.words[index] = value
}

// Len returns the number of words in the buffer
func (b *SliceBus[W]) Len() uint64 {
	return uint64(len(b.words))
}

// NewSliceRegion allocates a buffer of n words and returns a region over it
func NewSliceRegion[W Word](base uintptr, n uint64) Region[W] {
	return Region[W]{
		Base:   base,
		Length: n * WordSize[W](),
		Bus:    NewSliceBus(make([]W, n)),
	}
}

// CountingBus counts the accesses made through another Bus
type CountingBus[W Word] struct {
	Bus    Bus[W]
	reads  atomic.Uint64
	writes atomic.Uint64
}

// NewCountingBus wraps bus
func NewCountingBus[W Word](bus Bus[W]) *CountingBus[W] {
	return &CountingBus[W]{Bus: bus}
}

func (c *CountingBus[W]) Read(index uint64) W {
	c.reads.Add(1)
	return c.Bus.Read(index)
}

func (c *CountingBus[W]) Write(index uint64, value W) {
	c.writes.Add(1)
	c.Bus.Write(index, value)
}

// Counts returns the number of reads and writes so far
func (c *CountingBus[W]) Counts() (reads, writes uint64) {
	return c.reads.Load(), c.writes.Load()
}

// Reset zeroes the counters
func (c *CountingBus[W]) Reset() {
	c.reads.Store(0)
	c.writes.Store(0)
}
