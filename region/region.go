package region

import (
	wasmsigner "github.com/wippyai/wasm-signer"
	"github.com/wippyai/wasm-signer/errors"
	"go.uber.org/zap"
)

const (
	// HeaderSize is the size of the capacity header preceding every region.
	HeaderSize = 8
	// HeaderAlign is the alignment requested from the heap for region blocks.
	HeaderAlign = 8
)

// Allocator hands out header-tagged regions from a heap.
type Allocator struct {
	mem  wasmsigner.Memory
	heap wasmsigner.Heap
}

// New creates an allocator over mem, reserving blocks from heap.
func New(mem wasmsigner.Memory, heap wasmsigner.Heap) *Allocator {
	return &Allocator{mem: mem, heap: heap}
}

// Memory returns the linear memory the allocator writes headers into.
func (a *Allocator) Memory() wasmsigner.Memory {
	return a.mem
}

// Heap returns the heap backing the allocator.
func (a *Allocator) Heap() wasmsigner.Heap {
	return a.heap
}

// Allocate reserves a region with room for size data bytes and returns the
// address of the data area. The region is exclusively owned by the caller
// until it is passed back to Deallocate.
func (a *Allocator) Allocate(size uint32) (uint32, error) {
	if size > ^uint32(0)-HeaderSize {
		return 0, errors.Overflow(errors.PhaseAlloc, []string{"alloc"}, uint64(size)+HeaderSize, "u32")
	}
	total := size + HeaderSize

	base, capacity, err := a.heap.Reserve(total, HeaderAlign)
	if err != nil {
		return 0, errors.New(errors.PhaseAlloc, errors.KindAllocation).
			Value(size).
			Cause(err).
			Detail("reserve %d bytes", total).
			Build()
	}
	if base == 0 || capacity < total {
		// never expose an undersized or null region
		_ = a.heap.Release(base, capacity)
		return 0, errors.AllocationFailed(errors.PhaseAlloc, total, HeaderAlign)
	}

	if err := a.mem.WriteU64(base, uint64(capacity)); err != nil {
		_ = a.heap.Release(base, capacity)
		return 0, errors.Wrap(errors.PhaseAlloc, errors.KindOutOfBounds, err, "write region header")
	}
	return base + HeaderSize, nil
}

// Deallocate releases the region whose data area starts at ptr. A zero ptr
// is a no-op. The second argument is ignored; the capacity always comes from
// the header.
//
// Calling Deallocate twice for one pointer, or with a pointer that did not
// come from Allocate, is a caller error. Heaps that can detect it report it
// and the failure is logged; nothing is returned to the host.
func (a *Allocator) Deallocate(ptr, _ uint32) {
	if ptr == 0 {
		return
	}
	if err := a.release(ptr); err != nil {
		Logger().Error("dealloc failed", zap.Uint32("ptr", ptr), zap.Error(err))
	}
}

func (a *Allocator) release(ptr uint32) error {
	if ptr < HeaderSize {
		return errors.New(errors.PhaseAlloc, errors.KindInvalidInput).
			Value(ptr).
			Detail("pointer 0x%x has no room for a header", ptr).
			Build()
	}
	base := ptr - HeaderSize

	capacity, err := a.mem.ReadU64(base)
	if err != nil {
		return errors.Wrap(errors.PhaseAlloc, errors.KindOutOfBounds, err, "read region header")
	}
	if capacity > uint64(^uint32(0)) {
		return errors.Overflow(errors.PhaseAlloc, []string{"dealloc"}, capacity, "u32")
	}
	return a.heap.Release(base, uint32(capacity))
}

// Capacity returns the full block capacity recorded in the header of the
// region whose data area starts at ptr.
func (a *Allocator) Capacity(ptr uint32) (uint64, error) {
	if ptr < HeaderSize {
		return 0, errors.InvalidInput(errors.PhaseAlloc, "pointer has no room for a header")
	}
	return a.mem.ReadU64(ptr - HeaderSize)
}
