// Package transfer hands guest-produced buffers to the host.
//
// Two encodings are supported. ReturnAsPointer gives the host a bare
// address and relies on a side channel for the length. ReturnAsLengthPointerPair
// copies the bytes into a fresh header-tagged region and returns a packed
// Handle, so every buffer returned that way can be reclaimed through the one
// dealloc entry point no matter how the bytes were produced.
package transfer

import (
	"math"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-signer/region"
)

// Protocol converts in-guest byte slices into host-owned buffers.
type Protocol struct {
	alloc *region.Allocator
	log   *zap.Logger
}

// New creates a protocol that allocates through alloc. A nil logger disables
// diagnostics.
func New(alloc *region.Allocator, log *zap.Logger) *Protocol {
	if log == nil {
		log = zap.NewNop()
	}
	return &Protocol{alloc: alloc, log: log}
}

// Allocator returns the region allocator used for packed results.
func (p *Protocol) Allocator() *region.Allocator {
	return p.alloc
}

// ReturnAsPointer hands ownership of buf to the host and returns its address,
// or 0 if the heap refused it. The buffer carries no header and no length;
// the host learns the length some other way and gives the buffer back with
// dealloc_raw.
func (p *Protocol) ReturnAsPointer(buf []byte) uint32 {
	buf = normalize(buf)
	if cap(buf) != len(buf) {
		panic("transfer: capacity not trimmed to length")
	}

	ptr, err := p.alloc.Heap().Adopt(buf)
	if err != nil {
		p.log.Error("failed to hand buffer to host", zap.Int("len", len(buf)), zap.Error(err))
		return 0
	}
	return ptr
}

// ReturnAsLengthPointerPair copies buf into a new region and returns its
// packed length and pointer. The input slice is not retained. Failed is
// returned when the length does not fit in 32 bits or the region cannot be
// allocated.
func (p *Protocol) ReturnAsLengthPointerPair(buf []byte) Handle {
	buf = normalize(buf)
	if cap(buf) != len(buf) {
		panic("transfer: capacity not trimmed to length")
	}
	if uint64(len(buf)) > math.MaxUint32 {
		p.log.Error("result too large for packed handle", zap.Int("len", len(buf)))
		return Failed
	}
	n := uint32(len(buf))

	ptr, err := p.alloc.Allocate(n)
	if err != nil {
		p.log.Error("failed to allocate result region", zap.Uint32("len", n), zap.Error(err))
		return Failed
	}
	if err := p.alloc.Memory().Write(ptr, buf); err != nil {
		p.alloc.Deallocate(ptr, n)
		p.log.Error("failed to copy result into region", zap.Uint32("len", n), zap.Error(err))
		return Failed
	}
	return Pack(n, ptr)
}

// normalize returns buf with capacity equal to its length. A slice with spare
// capacity is copied into an exact-size one so no slack bytes travel with it.
func normalize(buf []byte) []byte {
	if cap(buf) == len(buf) {
		return buf
	}
	exact := make([]byte, len(buf))
	copy(exact, buf)
	return exact
}
