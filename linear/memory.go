//go:build wasip1

package linear

import (
	"encoding/binary"
	"unsafe"

	"github.com/wippyai/wasm-signer/errors"
)

// Memory is the module's own linear memory.
type Memory struct{}

func view(offset, length uint32) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	if offset == 0 || uint64(offset)+uint64(length) > 1<<32 {
		return nil, errors.OutOfBounds(errors.PhaseRuntime, nil, uint64(offset), uint64(length), 1<<32)
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(offset))), length), nil
}

// Read returns a view of length bytes at offset. The view aliases memory.
func (Memory) Read(offset uint32, length uint32) ([]byte, error) {
	return view(offset, length)
}

func (Memory) Write(offset uint32, data []byte) error {
	dst, err := view(offset, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

func (Memory) ReadU8(offset uint32) (uint8, error) {
	b, err := view(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (Memory) ReadU32(offset uint32) (uint32, error) {
	b, err := view(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (Memory) ReadU64(offset uint32) (uint64, error) {
	b, err := view(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (Memory) WriteU8(offset uint32, value uint8) error {
	b, err := view(offset, 1)
	if err != nil {
		return err
	}
	b[0] = value
	return nil
}

func (Memory) WriteU32(offset uint32, value uint32) error {
	b, err := view(offset, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, value)
	return nil
}

func (Memory) WriteU64(offset uint32, value uint64) error {
	b, err := view(offset, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, value)
	return nil
}
