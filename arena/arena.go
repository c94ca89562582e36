package arena

import (
	"encoding/binary"
	"sort"
	"sync"

	"github.com/wippyai/wasm-signer/errors"
)

const (
	// DefaultSize is the arena size used when Config.Size is zero.
	DefaultSize = 1 << 20
	// DefaultGranularity is the Reserve rounding used when Config.Granularity is zero.
	DefaultGranularity = 16

	// zeroAddr is handed out for zero-length adoptions. It lies inside the
	// prologue, so it never aliases a real block.
	zeroAddr    = 8
	minPrologue = 16
)

// Config holds arena configuration.
type Config struct {
	// Size is the total number of addressable bytes.
	Size uint32

	// Granularity is the unit Reserve rounds requests up to. Must be a
	// power of two and at least 8.
	Granularity uint32
}

// DefaultConfig returns the configuration used when New is passed nil.
func DefaultConfig() *Config {
	return &Config{Size: DefaultSize, Granularity: DefaultGranularity}
}

// Stats is a snapshot of heap accounting.
type Stats struct {
	LiveBlocks    int
	LiveBytes     uint64
	AdoptedBlocks int
	AdoptedBytes  uint64
	Reserves      uint64
	Releases      uint64
	FreeBytes     uint64
}

type span struct {
	off  uint32
	size uint32
}

// Arena is an in-process linear memory and heap. It is safe for concurrent use.
type Arena struct {
	buf      []byte
	free     []span
	live     map[uint32]uint32
	adopted  map[uint32]uint32
	stats    Stats
	gran     uint32
	prologue uint32
	mu       sync.Mutex
}

// New creates an arena. A nil config uses DefaultConfig.
func New(cfg *Config) (*Arena, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	size := cfg.Size
	if size == 0 {
		size = DefaultSize
	}
	gran := cfg.Granularity
	if gran == 0 {
		gran = DefaultGranularity
	}
	if gran < 8 || gran&(gran-1) != 0 {
		return nil, errors.InvalidInput(errors.PhaseAlloc, "granularity must be a power of two >= 8")
	}

	prologue := alignUp(minPrologue, gran)
	if size <= prologue {
		return nil, errors.InvalidInput(errors.PhaseAlloc, "arena size smaller than prologue")
	}

	a := &Arena{
		buf:      make([]byte, size),
		free:     []span{{off: prologue, size: size - prologue}},
		live:     make(map[uint32]uint32),
		adopted:  make(map[uint32]uint32),
		gran:     gran,
		prologue: prologue,
	}
	return a, nil
}

// Reserve implements wasmsigner.Heap.
func (a *Arena) Reserve(size, align uint32) (uint32, uint32, error) {
	if align == 0 {
		align = 1
	}
	if align&(align-1) != 0 {
		return 0, 0, errors.InvalidInput(errors.PhaseAlloc, "alignment must be a power of two")
	}
	if align < a.gran {
		align = a.gran
	}

	need := size
	if need == 0 {
		need = a.gran
	}
	if need > ^uint32(0)-a.gran {
		return 0, 0, errors.AllocationFailed(errors.PhaseAlloc, size, align)
	}
	need = alignUp(need, a.gran)

	a.mu.Lock()
	defer a.mu.Unlock()

	ptr, ok := a.carve(need, align)
	if !ok {
		return 0, 0, errors.AllocationFailed(errors.PhaseAlloc, size, align)
	}
	a.live[ptr] = need
	a.stats.Reserves++
	return ptr, need, nil
}

// Release implements wasmsigner.Heap.
func (a *Arena) Release(ptr, capacity uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	got, ok := a.live[ptr]
	if !ok {
		return errors.UnknownBlock(errors.PhaseAlloc, ptr)
	}
	if got != capacity {
		return errors.New(errors.PhaseAlloc, errors.KindInvalidData).
			Value(capacity).
			Detail("block at 0x%x has capacity %d, release asked for %d", ptr, got, capacity).
			Build()
	}
	delete(a.live, ptr)
	a.insert(span{off: ptr, size: capacity})
	a.stats.Releases++
	return nil
}

// Adopt implements wasmsigner.Heap. The bytes are copied into an exact-size
// block: the recorded capacity of an adopted block always equals its length.
func (a *Arena) Adopt(buf []byte) (uint32, error) {
	if cap(buf) != len(buf) {
		return 0, errors.InvalidInput(errors.PhaseTransfer, "adopted buffer has spare capacity")
	}
	if len(buf) == 0 {
		return zeroAddr, nil
	}
	if uint64(len(buf)) > uint64(^uint32(0)) {
		return 0, errors.Overflow(errors.PhaseTransfer, nil, len(buf), "u32")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	n := uint32(len(buf))
	ptr, ok := a.carve(n, 1)
	if !ok {
		return 0, errors.AllocationFailed(errors.PhaseTransfer, n, 1)
	}
	copy(a.buf[ptr:ptr+n], buf)
	a.adopted[ptr] = n
	return ptr, nil
}

// Disown implements wasmsigner.Heap.
func (a *Arena) Disown(ptr uint32) error {
	if ptr == zeroAddr {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	n, ok := a.adopted[ptr]
	if !ok {
		return errors.UnknownBlock(errors.PhaseTransfer, ptr)
	}
	delete(a.adopted, ptr)
	a.insert(span{off: ptr, size: n})
	return nil
}

// Capacity reports the recorded capacity of the live or adopted block at ptr.
func (a *Arena) Capacity(ptr uint32) (uint32, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n, ok := a.live[ptr]; ok {
		return n, true
	}
	if n, ok := a.adopted[ptr]; ok {
		return n, true
	}
	if ptr == zeroAddr {
		return 0, true
	}
	return 0, false
}

// Stats returns a snapshot of heap accounting.
func (a *Arena) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.stats
	s.LiveBlocks = len(a.live)
	for _, n := range a.live {
		s.LiveBytes += uint64(n)
	}
	s.AdoptedBlocks = len(a.adopted)
	for _, n := range a.adopted {
		s.AdoptedBytes += uint64(n)
	}
	for _, f := range a.free {
		s.FreeBytes += uint64(f.size)
	}
	return s
}

// Size implements wasmsigner.MemorySizer.
func (a *Arena) Size() uint32 {
	return uint32(len(a.buf))
}

// carve removes need bytes starting at an align-aligned offset from the
// first free span that can hold them. Caller holds mu.
func (a *Arena) carve(need, align uint32) (uint32, bool) {
	for i, f := range a.free {
		start := alignUp(f.off, align)
		pad := start - f.off
		if uint64(pad)+uint64(need) > uint64(f.size) {
			continue
		}

		rest := span{off: start + need, size: f.size - pad - need}
		var repl []span
		if pad > 0 {
			repl = append(repl, span{off: f.off, size: pad})
		}
		if rest.size > 0 {
			repl = append(repl, rest)
		}
		a.free = append(a.free[:i], append(repl, a.free[i+1:]...)...)
		return start, true
	}
	return 0, false
}

// insert returns s to the free list, merging with adjacent spans. Caller holds mu.
func (a *Arena) insert(s span) {
	i := sort.Search(len(a.free), func(j int) bool { return a.free[j].off > s.off })

	if i > 0 && a.free[i-1].off+a.free[i-1].size == s.off {
		i--
		a.free[i].size += s.size
	} else {
		a.free = append(a.free, span{})
		copy(a.free[i+1:], a.free[i:])
		a.free[i] = s
	}

	if i+1 < len(a.free) && a.free[i].off+a.free[i].size == a.free[i+1].off {
		a.free[i].size += a.free[i+1].size
		a.free = append(a.free[:i+1], a.free[i+2:]...)
	}
}

func alignUp(v, align uint32) uint32 {
	return (v + align - 1) &^ (align - 1)
}

func (a *Arena) bounds(offset uint32, length uint64) error {
	if uint64(offset)+length > uint64(len(a.buf)) {
		return errors.OutOfBounds(errors.PhaseRuntime, nil, uint64(offset), length, uint64(len(a.buf)))
	}
	return nil
}

// Read returns a view of memory; it aliases the arena and is only valid
// until the range is released.
func (a *Arena) Read(offset uint32, length uint32) ([]byte, error) {
	if err := a.bounds(offset, uint64(length)); err != nil {
		return nil, err
	}
	return a.buf[offset : offset+length : offset+length], nil
}

// Write copies data into memory.
func (a *Arena) Write(offset uint32, data []byte) error {
	if err := a.bounds(offset, uint64(len(data))); err != nil {
		return err
	}
	copy(a.buf[offset:], data)
	return nil
}

// ReadU8 reads an unsigned 8-bit value.
func (a *Arena) ReadU8(offset uint32) (uint8, error) {
	if err := a.bounds(offset, 1); err != nil {
		return 0, err
	}
	return a.buf[offset], nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (a *Arena) ReadU32(offset uint32) (uint32, error) {
	if err := a.bounds(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(a.buf[offset:]), nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (a *Arena) ReadU64(offset uint32) (uint64, error) {
	if err := a.bounds(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(a.buf[offset:]), nil
}

// WriteU8 writes an unsigned 8-bit value.
func (a *Arena) WriteU8(offset uint32, value uint8) error {
	if err := a.bounds(offset, 1); err != nil {
		return err
	}
	a.buf[offset] = value
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (a *Arena) WriteU32(offset uint32, value uint32) error {
	if err := a.bounds(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(a.buf[offset:], value)
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (a *Arena) WriteU64(offset uint32, value uint64) error {
	if err := a.bounds(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(a.buf[offset:], value)
	return nil
}
