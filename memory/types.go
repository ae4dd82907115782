// memory/types.go
package memory

import (
	"fmt"
	"unsafe"

	"github.com/pkg/errors"
)

// Word is the fixed-width unit of memory access
type Word interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Bus is the capability to read and write single words of a backing store.
// Every call must reach the store: implementations may not cache, merge or
// drop accesses.
type Bus[W Word] interface {
	Read(index uint64) W
	Write(index uint64, value W)
}

var (
	ErrEmptyRegion   = errors.New("memory region is empty")
	ErrNoBus         = errors.New("memory region has no bus")
	ErrMisaligned    = errors.New("region length is not a multiple of the word size")
	ErrOutOfRange    = errors.New("word index outside of region")
	ErrNotPowerOfTwo = errors.New("region word count is not a power of two")

	ErrDataLine    = errors.New("data line fault")
	ErrAddressLine = errors.New("address line fault")
	ErrStorageCell = errors.New("storage cell fault")
)

// WordSize returns the size of W in bytes
func WordSize[W Word]() uint64 {
	var w W
	return uint64(unsafe.Sizeof(w))
}

// WordBits returns the width of W in bits
func WordBits[W Word]() int {
	return int(WordSize[W]() * 8)
}

// sizer is implemented by buses that know how many words they hold
type sizer interface {
	Len() uint64
}

// Region describes the memory under test. Base is only used to report
// addresses, all accesses go through Bus by word index.
type Region[W Word] struct {
	Base   uintptr
	Length uint64 // in bytes
	Bus    Bus[W]
}

// Words returns the number of words in the region
func (r Region[W]) Words() uint64 {
	return r.Length / WordSize[W]()
}

// Address returns the address of the word at index
func (r Region[W]) Address(index uint64) uintptr {
	return r.Base + uintptr(index*WordSize[W]())
}

// Validate checks the region can be tested at all
func (r Region[W]) Validate() error {
	if r.Bus == nil {
		return ErrNoBus
	}
	if r.Length == 0 {
		return ErrEmptyRegion
	}
	if r.Length%WordSize[W]() != 0 {
		return errors.Wrapf(ErrMisaligned, "%d bytes with %d byte words", r.Length, WordSize[W]())
	}
	if s, ok := r.Bus.(sizer); ok && r.Words() > s.Len() {
		return errors.Wrapf(ErrOutOfRange, "%d words on a bus of %d words", r.Words(), s.Len())
	}
	return nil
}

// Prefix returns the region made of the first n words of r
func (r Region[W]) Prefix(n uint64) Region[W] {
	if n > r.Words() {
		n = r.Words()
	}
	return Region[W]{Base: r.Base, Length: n * WordSize[W](), Bus: r.Bus}
}

// PowerOfTwoWords returns the largest power-of-two word count not greater
// than n words, or 0
func PowerOfTwoWords(n uint64) uint64 {
	return PowerOfTwoFloor(n)
}

// PowerOfTwoFloor returns the largest power of two not greater than n, or 0
func PowerOfTwoFloor(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	p := uint64(1)
	for p <= n>>1 {
		p <<= 1
	}
	return p
}

// FaultKind identifies which fault model a failed test detected
type FaultKind int

const (
	NoFault FaultKind = iota
	DataLineFault
	AddressLineFault
	StorageCellFault
)

func (k FaultKind) String() string {
	switch k {
	case NoFault:
		return "no fault"
	case DataLineFault:
		return "data line fault"
	case AddressLineFault:
		return "address line fault"
	case StorageCellFault:
		return "storage cell fault"
	}
	return fmt.Sprintf("fault kind %d", int(k))
}

func (k FaultKind) cause() error {
	switch k {
	case DataLineFault:
		return ErrDataLine
	case AddressLineFault:
		return ErrAddressLine
	case StorageCellFault:
		return ErrStorageCell
	}
	return nil
}

// Outcome is the result of one test. The zero value is a pass.
type Outcome[W Word] struct {
	Fault FaultKind

	// Pattern is the failing walking-ones pattern of a data line fault
	Pattern W

	// Address and Index locate the failing word of an address line or
	// storage cell fault
	Address uintptr
	Index   uint64

	// Phase is the pass of the algorithm that detected the fault, counting
	// from 1
	Phase int
}

// Pass is true if no fault was detected
func (o Outcome[W]) Pass() bool {
	return o.Fault == NoFault
}

func (o Outcome[W]) String() string {
	switch o.Fault {
	case NoFault:
		return "PASS"
	case DataLineFault:
		return fmt.Sprintf("FAIL: %#x", uint64(o.Pattern))
	}
	return fmt.Sprintf("FAIL: %#x", uint64(o.Address))
}

// Err returns nil for a pass and a *FaultError otherwise
func (o Outcome[W]) Err() error {
	if o.Pass() {
		return nil
	}
	return &FaultError{
		Kind:    o.Fault,
		Pattern: uint64(o.Pattern),
		Address: o.Address,
		Phase:   o.Phase,
	}
}

// FaultError reports a detected fault through the error interface
type FaultError struct {
	Kind    FaultKind
	Pattern uint64
	Address uintptr
	Phase   int
}

func (e *FaultError) Error() string {
	if e.Kind == DataLineFault {
		return fmt.Sprintf("%s: pattern %#x", e.Kind, e.Pattern)
	}
	return fmt.Sprintf("%s at %#x (phase %d)", e.Kind, uint64(e.Address), e.Phase)
}

// Cause makes the fault sentinel reachable through errors.Cause
func (e *FaultError) Cause() error {
	return e.Kind.cause()
}

// Unwrap makes the fault sentinel reachable through errors.Is
func (e *FaultError) Unwrap() error {
	return e.Kind.cause()
}
