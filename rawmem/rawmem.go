package rawmem

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"memtest/memory"
	"memtest/utils"
)

// MaxSize limits a single mapping
const MaxSize = 4 * 1024 * 1024 * 1024

var (
	ErrUnsupportedWidth = errors.New("word width not supported for host memory")
	ErrInvalidSize      = errors.New("invalid region size")
	ErrClosed           = errors.New("region is closed")
)

// replaced in tests
var (
	mlock  = unix.Mlock
	munmap = unix.Munmap
)

// Region is an anonymous private mapping of host memory
type Region struct {
	mem    []byte
	size   int64
	locked bool
}

// Allocate maps cfg.Size bytes of anonymous memory. The mapping is page
// aligned, excluded from child processes and optionally locked.
func Allocate(cfg RawMemConfig) (*Region, error) {
	if cfg.Size <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "%d bytes", cfg.Size)
	}
	if cfg.Size > MaxSize {
		return nil, errors.Wrapf(ErrInvalidSize, "%s exceeds limit of %s", utils.FormatSize(cfg.Size), utils.FormatSize(MaxSize))
	}

	pageSize := int64(unix.Getpagesize())
	mapped := ((cfg.Size + pageSize - 1) / pageSize) * pageSize

	mem, err := unix.Mmap(-1, 0, int(mapped), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap of %s", utils.FormatSize(mapped))
	}

	r := &Region{mem: mem, size: cfg.Size}

	if err := unix.Madvise(mem, unix.MADV_DONTFORK); err != nil && cfg.Debug {
		utils.LogMessage(fmt.Sprintf("madvise(MADV_DONTFORK) failed: %v", err), cfg.Debug)
	}

	if cfg.Lock {
		if err := mlock(mem); err != nil {
			if uerr := munmap(mem); uerr != nil {
				utils.LogMessage(fmt.Sprintf("munmap after failed mlock: %v", uerr), cfg.Debug)
			}
			return nil, errors.Wrapf(err, "mlock of %s (check ulimit -l or run as root)", utils.FormatSize(mapped))
		}
		r.locked = true
	}

	if cfg.Debug {
		utils.LogMessage(fmt.Sprintf("Mapped %s at %#x (locked: %v)", utils.FormatSize(mapped), r.Base(), r.locked), cfg.Debug)
	}

	return r, nil
}

// Base returns the address of the first byte of the mapping
func (r *Region) Base() uintptr {
	if r.mem == nil {
		return 0
	}
	return uintptr(unsafe.Pointer(&r.mem[0]))
}

// Size returns the requested size in bytes
func (r *Region) Size() int64 {
	return r.size
}

// Locked is true if the mapping is locked in memory
func (r *Region) Locked() bool {
	return r.locked
}

// Close unlocks and unmaps the region
func (r *Region) Close() error {
	if r.mem == nil {
		return ErrClosed
	}
	if r.locked {
		if err := unix.Munlock(r.mem); err != nil {
			return errors.Wrap(err, "munlock")
		}
		r.locked = false
	}
	err := munmap(r.mem)
	r.mem = nil
	return errors.Wrap(err, "munmap")
}

// Bus gives word access to a Region. Every access is an atomic load or store
// so the compiler can neither drop nor merge them.
type Bus[W memory.Word] struct {
	r *Region
}

// NewBus returns a bus over r. Only 32 and 64 bit words are supported.
func NewBus[W memory.Word](r *Region) (*Bus[W], error) {
	if r.mem == nil {
		return nil, ErrClosed
	}
	switch memory.WordSize[W]() {
	case 4, 8:
	default:
		return nil, errors.Wrapf(ErrUnsupportedWidth, "%d bits", memory.WordBits[W]())
	}
	return &Bus[W]{r: r}, nil
}

// Len returns the number of whole words in the mapping
func (b *Bus[W]) Len() uint64 {
	return uint64(len(b.r.mem)) / memory.WordSize[W]()
}

func (b *Bus[W]) ptr(index uint64) unsafe.Pointer {
	return unsafe.Pointer(&b.r.mem[index*memory.WordSize[W]()])
}

func (b *Bus[W]) Read(index uint64) W {
	if memory.WordSize[W]() == 8 {
		return W(atomic.LoadUint64((*uint64)(b.ptr(index))))
	}
	return W(atomic.LoadUint32((*uint32)(b.ptr(index))))
}

func (b *Bus[W]) Write(index uint64, value W) {
	if memory.WordSize[W]() == 8 {
		atomic.StoreUint64((*uint64)(b.ptr(index)), uint64(value))
		return
	}
	atomic.StoreUint32((*uint32)(b.ptr(index)), uint32(value))
}

// MemoryRegion returns the whole of r as a region for the memory tests
func MemoryRegion[W memory.Word](r *Region) (memory.Region[W], error) {
	bus, err := NewBus[W](r)
	if err != nil {
		return memory.Region[W]{}, err
	}
	length := uint64(r.size) - uint64(r.size)%memory.WordSize[W]()
	return memory.Region[W]{
		Base:   r.Base(),
		Length: length,
		Bus:    bus,
	}, nil
}
