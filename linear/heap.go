//go:build wasip1

package linear

import (
	"slices"
	"unsafe"

	"github.com/wippyai/wasm-signer/errors"
)

// MaxBlock bounds a single reservation. The Go runtime aborts the module
// on out-of-memory, so larger requests fail early with an allocation error.
const MaxBlock = 1 << 28

// maxAlign is the alignment every Go heap object of 8 bytes or more has.
const maxAlign = 8

// zeroBuf gives empty adopted buffers a stable non-zero address.
var zeroBuf [1]byte

// Heap pins Go slices by address.
type Heap struct {
	live    map[uint32][]byte
	adopted map[uint32][]byte
}

// NewHeap creates an empty heap.
func NewHeap() *Heap {
	return &Heap{
		live:    make(map[uint32][]byte),
		adopted: make(map[uint32][]byte),
	}
}

func addr(b []byte) uint32 {
	return uint32(uintptr(unsafe.Pointer(unsafe.SliceData(b))))
}

// Reserve allocates a slice of at least size bytes. The reported capacity
// is the size class the runtime picked, which the caller may use in full.
func (h *Heap) Reserve(size, align uint32) (uint32, uint32, error) {
	if align > maxAlign {
		return 0, 0, errors.InvalidInput(errors.PhaseAlloc, "alignment above 8 is not supported")
	}
	if size > MaxBlock {
		return 0, 0, errors.AllocationFailed(errors.PhaseAlloc, size, align)
	}
	need := max(size, maxAlign)

	buf := slices.Grow([]byte(nil), int(need))
	buf = buf[:cap(buf)]
	ptr := addr(buf)
	h.live[ptr] = buf
	return ptr, uint32(len(buf)), nil
}

func (h *Heap) Release(ptr, capacity uint32) error {
	buf, ok := h.live[ptr]
	if !ok {
		return errors.UnknownBlock(errors.PhaseAlloc, ptr)
	}
	if uint32(len(buf)) != capacity {
		return errors.New(errors.PhaseAlloc, errors.KindInvalidData).
			Value(capacity).
			Detail("block 0x%x has capacity %d, release claims %d", ptr, len(buf), capacity).
			Build()
	}
	delete(h.live, ptr)
	return nil
}

func (h *Heap) Adopt(buf []byte) (uint32, error) {
	if cap(buf) != len(buf) {
		return 0, errors.InvalidInput(errors.PhaseTransfer, "adopted buffer has spare capacity")
	}
	if len(buf) == 0 {
		return addr(zeroBuf[:]), nil
	}
	ptr := addr(buf)
	h.adopted[ptr] = buf
	return ptr, nil
}

func (h *Heap) Disown(ptr uint32) error {
	if ptr == addr(zeroBuf[:]) {
		return nil
	}
	if _, ok := h.adopted[ptr]; !ok {
		return errors.UnknownBlock(errors.PhaseTransfer, ptr)
	}
	delete(h.adopted, ptr)
	return nil
}
