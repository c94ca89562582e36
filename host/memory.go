package host

import (
	"github.com/tetratelabs/wazero/api"

	wasmsigner "github.com/wippyai/wasm-signer"
	"github.com/wippyai/wasm-signer/errors"
)

// WrapMemory adapts a guest's wazero memory to wasmsigner.Memory.
func WrapMemory(mem api.Memory) wasmsigner.Memory {
	if mem == nil {
		return nil
	}
	return &memory{mem: mem}
}

type memory struct {
	mem api.Memory
}

func (m *memory) oob(offset uint32, length uint64) error {
	return errors.OutOfBounds(errors.PhaseRuntime, nil, uint64(offset), length, uint64(m.mem.Size()))
}

// Read returns a view of guest memory. The view is invalidated when the
// guest grows its memory.
func (m *memory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, m.oob(offset, uint64(length))
	}
	return data, nil
}

func (m *memory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return m.oob(offset, uint64(len(data)))
	}
	return nil
}

func (m *memory) ReadU8(offset uint32) (uint8, error) {
	v, ok := m.mem.ReadByte(offset)
	if !ok {
		return 0, m.oob(offset, 1)
	}
	return v, nil
}

func (m *memory) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, m.oob(offset, 4)
	}
	return v, nil
}

func (m *memory) ReadU64(offset uint32) (uint64, error) {
	v, ok := m.mem.ReadUint64Le(offset)
	if !ok {
		return 0, m.oob(offset, 8)
	}
	return v, nil
}

func (m *memory) WriteU8(offset uint32, value uint8) error {
	if !m.mem.WriteByte(offset, value) {
		return m.oob(offset, 1)
	}
	return nil
}

func (m *memory) WriteU32(offset uint32, value uint32) error {
	if !m.mem.WriteUint32Le(offset, value) {
		return m.oob(offset, 4)
	}
	return nil
}

func (m *memory) WriteU64(offset uint32, value uint64) error {
	if !m.mem.WriteUint64Le(offset, value) {
		return m.oob(offset, 8)
	}
	return nil
}

func (m *memory) Size() uint32 {
	return m.mem.Size()
}
