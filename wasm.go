package wasmsigner

// Memory represents WASM linear memory
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of WASM linear memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// Heap is the environment allocator underneath header-tagged regions.
//
// Reserve hands out blocks of at least size bytes and reports the capacity
// actually reserved, which may be larger because of allocation granularity.
// Address 0 is never returned.
type Heap interface {
	Reserve(size, align uint32) (ptr uint32, capacity uint32, err error)
	Release(ptr, capacity uint32) error

	// Adopt takes ownership of buf, whose capacity must equal its length,
	// and returns the address of its first byte. Adopted buffers carry no
	// header and are released with Disown.
	Adopt(buf []byte) (uint32, error)
	Disown(ptr uint32) error
}
