package simmem

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"memtest/memory"
)

var ErrBadFault = errors.New("invalid fault description")

// Memory is a simulated word store. It implements memory.Bus and can be
// given faults that model broken data lines, address lines and cells.
type Memory[W memory.Word] struct {
	cells   []W
	written map[uint64]bool
	defects
}

// New returns a simulated memory of n words with the given faults
func New[W memory.Word](n uint64, faults ...Fault) *Memory[W] {
	m := &Memory[W]{
		cells:   make([]W, n),
		written: make(map[uint64]bool),
		defects: defects{
			stuck:   make(map[uint64]uint64),
			latched: make(map[uint64]bool),
		},
	}
	for _, f := range faults {
		f.inject(&m.defects)
	}
	return m
}

// Region returns a region covering the whole of the simulated memory
func (m *Memory[W]) Region(base uintptr) memory.Region[W] {
	return memory.Region[W]{
		Base:   base,
		Length: uint64(len(m.cells)) * memory.WordSize[W](),
		Bus:    m,
	}
}

// Len returns the number of words in the simulated memory
func (m *Memory[W]) Len() uint64 {
	return uint64(len(m.cells))
}

// Peek returns the stored content of a cell, bypassing all faults
func (m *Memory[W]) Peek(index uint64) W {
	return m.cells[index]
}

func (m *Memory[W]) Read(index uint64) W {
	i := m.route(index)
	v := m.cells[i]
	if s, ok := m.stuck[i]; ok {
		v = W(s)
	}
	return m.line(v)
}

func (m *Memory[W]) Write(index uint64, value W) {
	i := m.route(index)
	if m.latched[i] {
		if m.written[i] {
			return
		}
		m.written[i] = true
	}
	m.cells[i] = m.line(value)
}

// route returns the cell an index reaches through the address lines
func (m *Memory[W]) route(index uint64) uint64 {
	i := (index | m.addrHigh) &^ m.addrLow
	for _, s := range m.shorts {
		both := uint64(1)<<s[0] | uint64(1)<<s[1]
		if i&both != 0 {
			i |= both
		}
	}
	n := uint64(len(m.cells))
	if i >= n {
		i %= n
	}
	return i
}

// line applies the data line faults to a value crossing the bus
func (m *Memory[W]) line(v W) W {
	return v&^W(m.dataLow) | W(m.dataHigh)
}

// ParseFault parses a fault description of the form kind:args
//
//	data-stuck0:5      data line 5 stuck at 0
//	data-stuck1:5      data line 5 stuck at 1
//	addr-stuck0:3      address line 3 stuck at 0
//	addr-stuck1:3      address line 3 stuck at 1
//	addr-short:2,5     address lines 2 and 5 shorted
//	cell-stuck:100=0   word 100 always reads 0
//	cell-latched:100   word 100 keeps its first written value
func ParseFault(s string) (Fault, error) {
	kind, args, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return nil, errors.Wrapf(ErrBadFault, "%q has no arguments", s)
	}

	bit := func() (uint, error) {
		b, err := strconv.ParseUint(args, 10, 6)
		if err != nil {
			return 0, errors.Wrapf(ErrBadFault, "%q: %v", s, err)
		}
		return uint(b), nil
	}

	switch strings.ToLower(kind) {
	case "data-stuck0", "data-stuck1":
		b, err := bit()
		if err != nil {
			return nil, err
		}
		return StuckDataBit{Bit: b, High: strings.HasSuffix(kind, "1")}, nil

	case "addr-stuck0", "addr-stuck1":
		b, err := bit()
		if err != nil {
			return nil, err
		}
		return StuckAddressBit{Bit: b, High: strings.HasSuffix(kind, "1")}, nil

	case "addr-short":
		a, b, ok := strings.Cut(args, ",")
		if !ok {
			return nil, errors.Wrapf(ErrBadFault, "%q needs two address lines", s)
		}
		ba, err := strconv.ParseUint(strings.TrimSpace(a), 10, 6)
		if err != nil {
			return nil, errors.Wrapf(ErrBadFault, "%q: %v", s, err)
		}
		bb, err := strconv.ParseUint(strings.TrimSpace(b), 10, 6)
		if err != nil {
			return nil, errors.Wrapf(ErrBadFault, "%q: %v", s, err)
		}
		if ba == bb {
			return nil, errors.Wrapf(ErrBadFault, "%q shorts a line to itself", s)
		}
		return ShortedAddressBits{A: uint(ba), B: uint(bb)}, nil

	case "cell-stuck":
		idx, val, ok := strings.Cut(args, "=")
		if !ok {
			val = "0"
		}
		i, err := strconv.ParseUint(idx, 0, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrBadFault, "%q: %v", s, err)
		}
		v, err := strconv.ParseUint(val, 0, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrBadFault, "%q: %v", s, err)
		}
		return StuckCell{Index: i, Value: v}, nil

	case "cell-latched":
		i, err := strconv.ParseUint(args, 0, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrBadFault, "%q: %v", s, err)
		}
		return LatchedCell{Index: i}, nil
	}

	return nil, errors.Wrapf(ErrBadFault, "unknown fault kind %q", kind)
}
