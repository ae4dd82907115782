package memory_test

import (
	"testing"

	"github.com/pkg/errors"

	"memtest/memory"
	"memtest/simmem"
)

const base = uintptr(0x8c100000)

func TestFaultFreeRegions(t *testing.T) {
	for _, words := range []uint64{1, 2, 4, 16, 256, 4096} {
		r := simmem.New[uint32](words).Region(base)

		o, err := memory.TestDataBus(r, 0)
		if err != nil || !o.Pass() {
			t.Errorf("%d words: data bus: %v %v", words, o, err)
		}
		o, err = memory.TestAddressBus(r)
		if err != nil || !o.Pass() {
			t.Errorf("%d words: address bus: %v %v", words, o, err)
		}
		o, err = memory.TestDevice(r)
		if err != nil || !o.Pass() {
			t.Errorf("%d words: device: %v %v", words, o, err)
		}
	}
}

func TestWidths(t *testing.T) {
	o8, err := memory.TestDevice(memory.NewSliceRegion[uint8](base, 1000))
	if err != nil || !o8.Pass() {
		t.Errorf("uint8: %v %v", o8, err)
	}
	o16, err := memory.TestAddressBus(memory.NewSliceRegion[uint16](base, 512))
	if err != nil || !o16.Pass() {
		t.Errorf("uint16: %v %v", o16, err)
	}
	o64, err := memory.TestDataBus(memory.NewSliceRegion[uint64](base, 8), 7)
	if err != nil || !o64.Pass() {
		t.Errorf("uint64: %v %v", o64, err)
	}
}

// recordingBus records the patterns written by the data bus test
type recordingBus struct {
	memory.SliceBus[uint32]
	written []uint32
}

func (b *recordingBus) Write(index uint64, value uint32) {
	b.written = append(b.written, value)
	b.SliceBus.Write(index, value)
}

func TestDataBusWalksEveryBit(t *testing.T) {
	bus := &recordingBus{SliceBus: *memory.NewSliceBus(make([]uint32, 4))}
	r := memory.Region[uint32]{Base: base, Length: 16, Bus: bus}

	o, err := memory.TestDataBus(r, 2)
	if err != nil || !o.Pass() {
		t.Fatalf("unexpected result: %v %v", o, err)
	}
	if len(bus.written) != 32 {
		t.Fatalf("expected 32 writes, got %d", len(bus.written))
	}
	for i, p := range bus.written {
		if p != 1<<i {
			t.Errorf("write %d: expected %#x, got %#x", i, uint32(1)<<i, p)
		}
	}
}

func TestDataBusStuckLow(t *testing.T) {
	for k := uint(0); k < 32; k++ {
		r := simmem.New[uint32](16, simmem.StuckDataBit{Bit: k}).Region(base)
		o, err := memory.TestDataBus(r, 3)
		if err != nil {
			t.Fatal(err)
		}
		if o.Fault != memory.DataLineFault {
			t.Fatalf("bit %d: expected data line fault, got %v", k, o.Fault)
		}
		if o.Pattern != 1<<k {
			t.Errorf("bit %d: expected pattern %#x, got %#x", k, uint32(1)<<k, o.Pattern)
		}
		if o.Address != base+12 {
			t.Errorf("bit %d: expected address %#x, got %#x", k, base+12, o.Address)
		}
	}
}

func TestDataBusStuckHigh(t *testing.T) {
	r := simmem.New[uint16](4, simmem.StuckDataBit{Bit: 9, High: true}).Region(base)
	o, err := memory.TestDataBus(r, 0)
	if err != nil {
		t.Fatal(err)
	}
	if o.Pass() || o.Pattern != 1 {
		t.Errorf("expected failure on first pattern, got %v", o)
	}
}

func TestDataBusIndexOutOfRange(t *testing.T) {
	_, err := memory.TestDataBus(memory.NewSliceRegion[uint32](base, 4), 4)
	if errors.Cause(err) != memory.ErrOutOfRange {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestAddressBusShortedLines(t *testing.T) {
	const words = 1024
	for k := uint(0); k < 10; k++ {
		for j := uint(0); j < 10; j++ {
			if j == k {
				continue
			}
			r := simmem.New[uint32](words, simmem.ShortedAddressBits{A: k, B: j}).Region(base)
			o, err := memory.TestAddressBus(r)
			if err != nil {
				t.Fatal(err)
			}
			if o.Fault != memory.AddressLineFault {
				t.Fatalf("lines %d,%d: expected address line fault, got %v", k, j, o)
			}
			if o.Index != 1<<k && o.Index != 1<<j {
				t.Errorf("lines %d,%d: failing offset %d is neither line", k, j, o.Index)
			}
			if o.Address != r.Address(o.Index) {
				t.Errorf("lines %d,%d: address %#x does not match offset %d", k, j, o.Address, o.Index)
			}
		}
	}
}

func TestAddressBusStuckLines(t *testing.T) {
	for _, high := range []bool{false, true} {
		for k := uint(0); k < 8; k++ {
			r := simmem.New[uint32](256, simmem.StuckAddressBit{Bit: k, High: high}).Region(base)
			o, err := memory.TestAddressBus(r)
			if err != nil {
				t.Fatal(err)
			}
			if o.Fault != memory.AddressLineFault {
				t.Fatalf("line %d high=%v: expected address line fault, got %v", k, high, o)
			}
			if o.Index != 1<<k {
				t.Errorf("line %d high=%v: expected offset %d, got %d", k, high, 1<<k, o.Index)
			}
		}
	}
}

func TestAddressBusIgnoresLinesOutsideRegion(t *testing.T) {
	// line 12 is not used by a 256 word region
	r := simmem.New[uint32](8192, simmem.ShortedAddressBits{A: 12, B: 11}).Region(base).Prefix(256)
	o, err := memory.TestAddressBus(r)
	if err != nil || !o.Pass() {
		t.Errorf("unexpected result: %v %v", o, err)
	}
}

func TestAddressBusNotPowerOfTwo(t *testing.T) {
	for _, words := range []uint64{3, 5, 6, 7, 100, 1000} {
		m := simmem.New[uint32](words)
		o, err := memory.TestAddressBus(m.Region(base))
		if errors.Cause(err) != memory.ErrNotPowerOfTwo {
			t.Errorf("%d words: expected ErrNotPowerOfTwo, got %v", words, err)
		}
		if !o.Pass() {
			t.Errorf("%d words: rejected region should not report a fault", words)
		}
		for i := uint64(0); i < words; i++ {
			if m.Peek(i) != 0 {
				t.Fatalf("%d words: word %d was written before rejection", words, i)
			}
		}
	}
}

func TestDeviceStuckCell(t *testing.T) {
	r := simmem.New[uint32](512, simmem.StuckCell{Index: 77}).Region(base)
	o, err := memory.TestDevice(r)
	if err != nil {
		t.Fatal(err)
	}
	if o.Fault != memory.StorageCellFault {
		t.Fatalf("expected storage cell fault, got %v", o)
	}
	if o.Index != 77 || o.Address != base+77*4 {
		t.Errorf("expected word 77 at %#x, got word %d at %#x", base+77*4, o.Index, o.Address)
	}
	if o.Phase != 2 {
		t.Errorf("expected failure in phase 2, got %d", o.Phase)
	}
}

func TestDeviceLatchedCell(t *testing.T) {
	r := simmem.New[uint32](512, simmem.LatchedCell{Index: 300}).Region(base)
	o, err := memory.TestDevice(r)
	if err != nil {
		t.Fatal(err)
	}
	if o.Fault != memory.StorageCellFault || o.Index != 300 {
		t.Fatalf("expected storage cell fault at word 300, got %v", o)
	}
	if o.Phase != 3 {
		t.Errorf("expected failure in phase 3, got %d", o.Phase)
	}
}

func TestDeviceCounterWraps(t *testing.T) {
	// more words than a uint8 counter can number
	m := simmem.New[uint8](600)
	o, err := memory.TestDevice(m.Region(base))
	if err != nil || !o.Pass() {
		t.Fatalf("unexpected result: %v %v", o, err)
	}
	if m.Peek(255) != ^uint8(0) {
		t.Errorf("word 255 should hold the complement of 0, got %#x", m.Peek(255))
	}
}

func TestIdempotence(t *testing.T) {
	faults := []simmem.Fault{
		simmem.StuckDataBit{Bit: 4},
		simmem.ShortedAddressBits{A: 1, B: 6},
		simmem.StuckCell{Index: 9, Value: 0xff},
		simmem.LatchedCell{Index: 33},
	}

	run := func(r memory.Region[uint32]) [3]memory.Outcome[uint32] {
		var res [3]memory.Outcome[uint32]
		res[0], _ = memory.TestDataBus(r, 0)
		res[1], _ = memory.TestAddressBus(r)
		res[2], _ = memory.TestDevice(r)
		return res
	}

	clean := simmem.New[uint32](128).Region(base)
	if a, b := run(clean), run(clean); a != b || !a[0].Pass() || !a[1].Pass() || !a[2].Pass() {
		t.Errorf("fault free region: %v then %v", a, b)
	}

	for _, f := range faults {
		r := simmem.New[uint32](128, f).Region(base)
		a := run(r)
		b := run(r)
		if a != b {
			t.Errorf("%v: %v then %v", f, a, b)
		}
	}
}

func TestInvalidRegions(t *testing.T) {
	bus := memory.NewSliceBus(make([]uint32, 4))
	cases := []struct {
		name   string
		region memory.Region[uint32]
		err    error
	}{
		{"no bus", memory.Region[uint32]{Length: 16}, memory.ErrNoBus},
		{"empty", memory.Region[uint32]{Bus: bus}, memory.ErrEmptyRegion},
		{"misaligned", memory.Region[uint32]{Length: 15, Bus: bus}, memory.ErrMisaligned},
		{"longer than bus", memory.Region[uint32]{Length: 64, Bus: bus}, memory.ErrOutOfRange},
		{"longer than simulated memory", memory.Region[uint32]{Base: base, Length: 64, Bus: simmem.New[uint32](4)}, memory.ErrOutOfRange},
	}
	for _, c := range cases {
		if _, err := memory.TestDevice(c.region); errors.Cause(err) != c.err {
			t.Errorf("%s: device: expected %v, got %v", c.name, c.err, err)
		}
		if _, err := memory.TestAddressBus(c.region); errors.Cause(err) != c.err {
			t.Errorf("%s: address bus: expected %v, got %v", c.name, c.err, err)
		}
		if _, err := memory.TestDataBus(c.region, 0); errors.Cause(err) != c.err {
			t.Errorf("%s: data bus: expected %v, got %v", c.name, c.err, err)
		}
	}
}

func TestPowerOfTwoFloor(t *testing.T) {
	cases := map[uint64]uint64{0: 0, 1: 1, 2: 2, 3: 2, 1000: 512, 1024: 1024, 107374182: 67108864}
	for n, want := range cases {
		if got := memory.PowerOfTwoFloor(n); got != want {
			t.Errorf("%d: expected %d, got %d", n, want, got)
		}
	}
}
