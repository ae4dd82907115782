// simmem/types.go
package simmem

import (
	"fmt"
)

// Fault is a hardware defect that can be injected into a simulated memory
type Fault interface {
	inject(s *defects)
	String() string
}

// defects is the combined effect of all injected faults
type defects struct {
	dataLow, dataHigh uint64
	addrLow, addrHigh uint64
	shorts            [][2]uint
	stuck             map[uint64]uint64
	latched           map[uint64]bool
}

// StuckDataBit is a data line held at 0 or 1
type StuckDataBit struct {
	Bit  uint
	High bool
}

func (f StuckDataBit) inject(s *defects) {
	if f.High {
		s.dataHigh |= 1 << f.Bit
	} else {
		s.dataLow |= 1 << f.Bit
	}
}

func (f StuckDataBit) String() string {
	return fmt.Sprintf("data line %d stuck at %d", f.Bit, level(f.High))
}

// StuckAddressBit is an address line held at 0 or 1. Bit counts word
// offsets, not byte addresses.
type StuckAddressBit struct {
	Bit  uint
	High bool
}

func (f StuckAddressBit) inject(s *defects) {
	if f.High {
		s.addrHigh |= 1 << f.Bit
	} else {
		s.addrLow |= 1 << f.Bit
	}
}

func (f StuckAddressBit) String() string {
	return fmt.Sprintf("address line %d stuck at %d", f.Bit, level(f.High))
}

// ShortedAddressBits are two address lines wired together. Driving either
// line high drives both.
type ShortedAddressBits struct {
	A, B uint
}

func (f ShortedAddressBits) inject(s *defects) {
	s.shorts = append(s.shorts, [2]uint{f.A, f.B})
}

func (f ShortedAddressBits) String() string {
	return fmt.Sprintf("address lines %d and %d shorted", f.A, f.B)
}

// StuckCell is a word that always reads back Value
type StuckCell struct {
	Index uint64
	Value uint64
}

func (f StuckCell) inject(s *defects) {
	s.stuck[f.Index] = f.Value
}

func (f StuckCell) String() string {
	return fmt.Sprintf("cell %d stuck at %#x", f.Index, f.Value)
}

// LatchedCell is a word that keeps the first value written to it and
// ignores every later write
type LatchedCell struct {
	Index uint64
}

func (f LatchedCell) inject(s *defects) {
	s.latched[f.Index] = true
}

func (f LatchedCell) String() string {
	return fmt.Sprintf("cell %d latched", f.Index)
}

func level(high bool) int {
	if high {
		return 1
	}
	return 0
}
