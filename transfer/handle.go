package transfer

import "fmt"

// Handle packs a byte length and a data pointer into one u64 so that a
// result fits in a single wasm return value:
//
//	bits 63..32  length
//	bits 31..0   pointer
//
// The zero Handle is the failure sentinel. Pointers handed out by the
// allocator are never zero, so a successful zero-length result still has a
// non-zero Handle.
type Handle uint64

// Failed is the sentinel returned when an operation produced no buffer.
const Failed Handle = 0

// Pack combines length and ptr into a Handle.
func Pack(length, ptr uint32) Handle {
	return Handle(uint64(length)<<32 | uint64(ptr))
}

// Unpack splits h into its pointer and length.
func (h Handle) Unpack() (ptr uint32, length uint32) {
	return uint32(h), uint32(h >> 32)
}

// Ptr returns the pointer component.
func (h Handle) Ptr() uint32 {
	return uint32(h)
}

// Len returns the length component.
func (h Handle) Len() uint32 {
	return uint32(h >> 32)
}

// IsFailed reports whether h is the failure sentinel.
func (h Handle) IsFailed() bool {
	return h == Failed
}

func (h Handle) String() string {
	if h.IsFailed() {
		return "handle(failed)"
	}
	return fmt.Sprintf("handle(ptr=0x%x, len=%d)", h.Ptr(), h.Len())
}
