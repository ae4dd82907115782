package memory

import (
	"github.com/pkg/errors"
)

// TestDataBus performs a walking 1's test on the word at index. A failing
// outcome carries the first pattern that did not read back, which names the
// stuck or shorted data line.
func TestDataBus[W Word](r Region[W], index uint64) (Outcome[W], error) {
	if err := r.Validate(); err != nil {
		return Outcome[W]{}, err
	}
	if index >= r.Words() {
		return Outcome[W]{}, errors.Wrapf(ErrOutOfRange, "index %d of %d words", index, r.Words())
	}

	for pattern := W(1); pattern != 0; pattern <<= 1 {
		r.Bus.Write(index, pattern)

		// reading back immediately is fine for this test
		if r.Bus.Read(index) != pattern {
			return Outcome[W]{
				Fault:   DataLineFault,
				Pattern: pattern,
				Address: r.Address(index),
				Index:   index,
				Phase:   1,
			}, nil
		}
	}

	return Outcome[W]{}, nil
}

// alternating bits, truncated to the width of the word in use
var alternating uint64 = 0xaaaaaaaaaaaaaaaa

// addressPatterns returns 0xAA.. and its complement for the width of W
func addressPatterns[W Word]() (pattern, antipattern W) {
	pattern = W(alternating)
	return pattern, ^pattern
}

// TestAddressBus checks each address line of the region with a walking 1's
// over the power-of-two word offsets. It finds single-bit stuck-high,
// stuck-low and shorted address lines. The word count must be a power of two;
// any other count is rejected with ErrNotPowerOfTwo before memory is touched.
func TestAddressBus[W Word](r Region[W]) (Outcome[W], error) {
	if err := r.Validate(); err != nil {
		return Outcome[W]{}, err
	}

	words := r.Words()
	if words&(words-1) != 0 {
		return Outcome[W]{}, errors.Wrapf(ErrNotPowerOfTwo, "%d words", words)
	}

	addressMask := words - 1
	pattern, antipattern := addressPatterns[W]()

	fail := func(offset uint64, phase int) Outcome[W] {
		return Outcome[W]{
			Fault:   AddressLineFault,
			Address: r.Address(offset),
			Index:   offset,
			Phase:   phase,
		}
	}

	// seed every power-of-two offset. offset 0 is left alone
	for offset := uint64(1); offset&addressMask != 0; offset <<= 1 {
		r.Bus.Write(offset, pattern)
	}

	// address bits stuck high
	r.Bus.Write(0, antipattern)
	for offset := uint64(1); offset&addressMask != 0; offset <<= 1 {
		if r.Bus.Read(offset) != pattern {
			return fail(offset, 2), nil
		}
	}
	r.Bus.Write(0, pattern)

	// address bits stuck low or shorted
	for testOffset := uint64(1); testOffset&addressMask != 0; testOffset <<= 1 {
		r.Bus.Write(testOffset, antipattern)

		if r.Bus.Read(0) != pattern {
			return fail(testOffset, 3), nil
		}

		for offset := uint64(1); offset&addressMask != 0; offset <<= 1 {
			if offset == testOffset {
				continue
			}
			if r.Bus.Read(offset) != pattern {
				return fail(testOffset, 3), nil
			}
		}

		r.Bus.Write(testOffset, pattern)
	}

	return Outcome[W]{}, nil
}

// TestDevice checks that every cell of the region can hold both a 0 and a 1
// in each bit. It fills the region with an incrementing counter, verifies and
// inverts it, then verifies the inverted values.
func TestDevice[W Word](r Region[W]) (Outcome[W], error) {
	if err := r.Validate(); err != nil {
		return Outcome[W]{}, err
	}

	words := r.Words()

	fail := func(offset uint64, phase int) Outcome[W] {
		return Outcome[W]{
			Fault:   StorageCellFault,
			Address: r.Address(offset),
			Index:   offset,
			Phase:   phase,
		}
	}

	// fill with a known pattern
	pattern := W(1)
	for offset := uint64(0); offset < words; offset++ {
		r.Bus.Write(offset, pattern)
		pattern++
	}

	// check each location and invert it
	pattern = 1
	for offset := uint64(0); offset < words; offset++ {
		if r.Bus.Read(offset) != pattern {
			return fail(offset, 2), nil
		}
		r.Bus.Write(offset, ^pattern)
		pattern++
	}

	// check each location for the inverted pattern
	pattern = 1
	for offset := uint64(0); offset < words; offset++ {
		if r.Bus.Read(offset) != ^pattern {
			return fail(offset, 3), nil
		}
		pattern++
	}

	return Outcome[W]{}, nil
}
