package arena

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-signer/errors"
)

func newTestArena(t *testing.T, size, gran uint32) *Arena {
	t.Helper()
	a, err := New(&Config{Size: size, Granularity: gran})
	require.NoError(t, err)
	return a
}

func TestNew_Config(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{name: "nil uses defaults", cfg: nil},
		{name: "zero values use defaults", cfg: &Config{}},
		{name: "granularity 8", cfg: &Config{Size: 4096, Granularity: 8}},
		{name: "granularity not power of two", cfg: &Config{Size: 4096, Granularity: 24}, wantErr: true},
		{name: "granularity too small", cfg: &Config{Size: 4096, Granularity: 4}, wantErr: true},
		{name: "size within prologue", cfg: &Config{Size: 16, Granularity: 16}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseAlloc, Kind: errors.KindInvalidInput})
				return
			}
			require.NoError(t, err)
			require.NotNil(t, a)
		})
	}

	a, err := New(nil)
	require.NoError(t, err)
	require.Equal(t, uint32(DefaultSize), a.Size())
}

func TestReserve_RoundsToGranularity(t *testing.T) {
	a := newTestArena(t, 4096, 16)

	tests := []struct {
		size    uint32
		wantCap uint32
	}{
		{size: 0, wantCap: 16},
		{size: 1, wantCap: 16},
		{size: 8, wantCap: 16},
		{size: 16, wantCap: 16},
		{size: 17, wantCap: 32},
		{size: 13, wantCap: 16},
		{size: 100, wantCap: 112},
	}

	for _, tt := range tests {
		ptr, capacity, err := a.Reserve(tt.size, 8)
		require.NoError(t, err)
		require.NotZero(t, ptr)
		require.Zero(t, ptr%16, "block must be granule aligned")
		require.Equal(t, tt.wantCap, capacity, "size %d", tt.size)
		got, ok := a.Capacity(ptr)
		require.True(t, ok)
		require.Equal(t, capacity, got)
	}
}

func TestReserve_NeverReturnsZero(t *testing.T) {
	a := newTestArena(t, 1024, 8)
	for {
		ptr, _, err := a.Reserve(8, 8)
		if err != nil {
			require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseAlloc, Kind: errors.KindAllocation})
			break
		}
		require.GreaterOrEqual(t, ptr, uint32(minPrologue))
	}
}

func TestReserve_Exhaustion(t *testing.T) {
	a := newTestArena(t, 256, 16)

	_, _, err := a.Reserve(1024, 8)
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseAlloc, Kind: errors.KindAllocation})

	_, _, err = a.Reserve(^uint32(0), 8)
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseAlloc, Kind: errors.KindAllocation})
}

func TestRelease_RestoresFreeSpace(t *testing.T) {
	a := newTestArena(t, 4096, 16)
	initial := a.Stats().FreeBytes

	var ptrs [][2]uint32
	for _, size := range []uint32{8, 40, 200, 3, 64} {
		ptr, capacity, err := a.Reserve(size, 8)
		require.NoError(t, err)
		ptrs = append(ptrs, [2]uint32{ptr, capacity})
	}
	require.Equal(t, 5, a.Stats().LiveBlocks)

	// release out of order to exercise coalescing on both sides
	for _, i := range []int{1, 3, 0, 4, 2} {
		require.NoError(t, a.Release(ptrs[i][0], ptrs[i][1]))
	}

	st := a.Stats()
	require.Zero(t, st.LiveBlocks)
	require.Zero(t, st.LiveBytes)
	require.Equal(t, initial, st.FreeBytes)
	require.Len(t, a.free, 1, "free list should coalesce back into one span")
	require.Equal(t, uint64(5), st.Reserves)
	require.Equal(t, uint64(5), st.Releases)
}

func TestRelease_DetectsMisuse(t *testing.T) {
	a := newTestArena(t, 4096, 16)
	ptr, capacity, err := a.Reserve(24, 8)
	require.NoError(t, err)

	err = a.Release(ptr, capacity+16)
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseAlloc, Kind: errors.KindInvalidData})

	require.NoError(t, a.Release(ptr, capacity))

	err = a.Release(ptr, capacity)
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseAlloc, Kind: errors.KindUnknownBlock})

	err = a.Release(12345, 16)
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseAlloc, Kind: errors.KindUnknownBlock})
}

func TestReserve_ReusesReleasedBlock(t *testing.T) {
	a := newTestArena(t, 4096, 16)
	ptr, capacity, err := a.Reserve(32, 8)
	require.NoError(t, err)
	require.NoError(t, a.Release(ptr, capacity))

	again, _, err := a.Reserve(32, 8)
	require.NoError(t, err)
	require.Equal(t, ptr, again)
}

func TestAdopt_ExactCapacity(t *testing.T) {
	a := newTestArena(t, 4096, 16)

	buf := []byte("abc")
	ptr, err := a.Adopt(buf)
	require.NoError(t, err)
	require.NotZero(t, ptr)

	got, ok := a.Capacity(ptr)
	require.True(t, ok)
	require.Equal(t, uint32(3), got)

	data, err := a.Read(ptr, 3)
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), data)

	// a reservation after an odd-sized adoption stays aligned
	next, _, err := a.Reserve(8, 8)
	require.NoError(t, err)
	require.Zero(t, next%16)

	require.NoError(t, a.Disown(ptr))
	_, ok = a.Capacity(ptr)
	require.False(t, ok)

	err = a.Disown(ptr)
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseTransfer, Kind: errors.KindUnknownBlock})
}

func TestAdopt_RejectsSpareCapacity(t *testing.T) {
	a := newTestArena(t, 4096, 16)
	buf := make([]byte, 3, 10)
	_, err := a.Adopt(buf)
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseTransfer, Kind: errors.KindInvalidInput})
}

func TestAdopt_Empty(t *testing.T) {
	a := newTestArena(t, 4096, 16)
	ptr, err := a.Adopt([]byte{})
	require.NoError(t, err)
	require.NotZero(t, ptr)
	require.NoError(t, a.Disown(ptr))
	require.Zero(t, a.Stats().AdoptedBlocks)
}

func TestMemory_Bounds(t *testing.T) {
	a := newTestArena(t, 64, 8)

	require.NoError(t, a.WriteU64(56, 0x0102030405060708))
	v, err := a.ReadU64(56)
	require.NoError(t, err)
	require.Equal(t, uint64(0x0102030405060708), v)

	b, err := a.ReadU8(56)
	require.NoError(t, err)
	require.Equal(t, uint8(0x08), b, "little-endian layout")

	require.NoError(t, a.WriteU32(60, 7))
	u, err := a.ReadU32(60)
	require.NoError(t, err)
	require.Equal(t, uint32(7), u)

	outOfBounds := &errors.Error{Phase: errors.PhaseRuntime, Kind: errors.KindOutOfBounds}
	_, err = a.ReadU64(57)
	require.ErrorIs(t, err, outOfBounds)
	require.ErrorIs(t, a.WriteU64(60, 1), outOfBounds)
	require.ErrorIs(t, a.Write(63, []byte{1, 2}), outOfBounds)
	_, err = a.Read(^uint32(0), 2)
	require.ErrorIs(t, err, outOfBounds)
	require.ErrorIs(t, a.WriteU8(64, 1), outOfBounds)
}
