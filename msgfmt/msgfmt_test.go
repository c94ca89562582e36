package msgfmt

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-signer/errors"
)

func TestFormat_Layout(t *testing.T) {
	text, err := Format([]byte("abcd"), 1)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(text, "{\n  c0: {\n    f0: 1684234849u128,\n    f1: 0u128,\n"))
	require.True(t, strings.HasSuffix(text, "    f31: 0u128\n  }\n}"))
	require.Equal(t, LimbsPerChunk, strings.Count(text, "u128"))
}

func TestFormat_ChunkCount(t *testing.T) {
	for _, chunks := range []int{1, 2, 7, MaxChunks} {
		text, err := Format([]byte("x"), chunks)
		require.NoError(t, err)
		require.Equal(t, chunks*LimbsPerChunk, strings.Count(text, "u128"))
		require.Contains(t, text, "c"+strconv.Itoa(chunks-1)+":")
		require.NotContains(t, text, "c"+strconv.Itoa(chunks)+":")
	}
}

func TestFormat_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		msg    []byte
		chunks int
		kind   errors.Kind
	}{
		{name: "zero chunks", msg: []byte("a"), chunks: 0, kind: errors.KindInvalidInput},
		{name: "too many chunks", msg: []byte("a"), chunks: MaxChunks + 1, kind: errors.KindInvalidInput},
		{name: "message too long", msg: make([]byte, ChunkSize+1), chunks: 1, kind: errors.KindOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Format(tt.msg, tt.chunks)
			require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseCompute, Kind: tt.kind})
		})
	}
}

func TestRecover_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		msg    []byte
		chunks int
	}{
		{name: "empty", msg: nil, chunks: 1},
		{name: "short", msg: []byte("hello"), chunks: 1},
		{name: "full chunk", msg: bytes.Repeat([]byte{0xff}, ChunkSize), chunks: 1},
		{name: "spans chunks", msg: bytes.Repeat([]byte("0123456789"), 100), chunks: 2},
		{name: "extra chunks", msg: []byte("padding"), chunks: 4},
		{name: "max", msg: bytes.Repeat([]byte{0x81}, MaxChunks*ChunkSize), chunks: MaxChunks},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := Format(tt.msg, tt.chunks)
			require.NoError(t, err)

			got, err := Recover(text)
			require.NoError(t, err)
			require.Equal(t, len(tt.msg), len(got))
			require.True(t, bytes.Equal(tt.msg, got))

			// newline stripping on the host side must not matter
			got, err = Recover(strings.ReplaceAll(text, "\n", ""))
			require.NoError(t, err)
			require.True(t, bytes.Equal(tt.msg, got))
		})
	}
}

func TestRecover_DropsTrailingZeros(t *testing.T) {
	text, err := Format([]byte{1, 0, 2, 0, 0}, 1)
	require.NoError(t, err)

	got, err := Recover(text)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 0, 2}, got)
}

func TestRecover_Rejects(t *testing.T) {
	valid, err := Format([]byte("abc"), 1)
	require.NoError(t, err)

	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "not a struct", text: "hello"},
		{name: "missing close", text: strings.TrimSuffix(valid, "}")},
		{name: "trailing input", text: valid + " x"},
		{name: "field out of order", text: strings.Replace(valid, "f1:", "f2:", 1)},
		{name: "chunk misnamed", text: strings.Replace(valid, "c0:", "c1:", 1)},
		{name: "missing suffix", text: strings.Replace(valid, "0u128", "0", 1)},
		{name: "negative", text: strings.Replace(valid, "f1: 0u128", "f1: -1u128", 1)},
		{name: "short chunk", text: "{ c0: { f0: 1u128 } }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Recover(tt.text)
			require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseParse, Kind: errors.KindInvalidData})
		})
	}

	_, err = Recover(strings.Replace(valid, "f1: 0u128", "f1: 340282366920938463463374607431768211456u128", 1))
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseParse, Kind: errors.KindOverflow})
}

func TestU128(t *testing.T) {
	tests := []struct {
		name string
		le   [LimbSize]byte
		text string
	}{
		{name: "zero", text: "0u128"},
		{name: "one", le: [LimbSize]byte{1}, text: "1u128"},
		{name: "little endian", le: [LimbSize]byte{0, 1}, text: "256u128"},
		{
			name: "max",
			le:   [LimbSize]byte{255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255},
			text: "340282366920938463463374607431768211455u128",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.text, FormatU128(tt.le))
			got, err := ParseU128(tt.text)
			require.NoError(t, err)
			require.Equal(t, tt.le, got)
		})
	}

	_, err := ParseU128("340282366920938463463374607431768211456u128")
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseParse, Kind: errors.KindOverflow})
	_, err = ParseU128("u128")
	require.Error(t, err)
	_, err = ParseU128("12")
	require.Error(t, err)
}
