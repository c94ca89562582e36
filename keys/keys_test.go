package keys

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-signer/errors"
)

func fixedKey(t *testing.T) PrivateKey {
	t.Helper()
	k, err := GeneratePrivateKey(bytes.NewReader(bytes.Repeat([]byte{7}, 32)))
	require.NoError(t, err)
	return k
}

func TestTextSizes(t *testing.T) {
	k, err := GeneratePrivateKey(rand.Reader)
	require.NoError(t, err)

	require.Len(t, k.String(), PrivateKeySize)
	require.True(t, strings.HasPrefix(k.String(), PrivateKeyPrefix))
	require.Len(t, k.Address().String(), AddressSize)
	require.True(t, strings.HasPrefix(k.Address().String(), AddressPrefix))
	require.Len(t, k.Sign([]byte("m")).String(), SignatureSize)
	require.Equal(t, strings.ToLower(k.String()), k.String())
}

func TestPrivateKey_RoundTrip(t *testing.T) {
	k := fixedKey(t)

	parsed, err := ParsePrivateKey(k.String())
	require.NoError(t, err)
	require.Equal(t, k, parsed)
	require.Equal(t, k.Address(), parsed.Address())
}

func TestGeneratePrivateKey_ShortEntropy(t *testing.T) {
	_, err := GeneratePrivateKey(bytes.NewReader([]byte{1, 2, 3}))
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseCompute, Kind: errors.KindInvalidData})
}

func TestAddress_Deterministic(t *testing.T) {
	a := fixedKey(t).Address()
	b := fixedKey(t).Address()
	require.Equal(t, a.String(), b.String())

	parsed, err := ParseAddress(a.String())
	require.NoError(t, err)
	require.Equal(t, a, parsed)
}

func TestParse_Rejects(t *testing.T) {
	key := fixedKey(t).String()
	addr := fixedKey(t).Address().String()

	flip := func(s string, i int) string {
		b := []byte(s)
		if b[i] == 'a' {
			b[i] = 'b'
		} else {
			b[i] = 'a'
		}
		return string(b)
	}

	tests := []struct {
		name  string
		parse func(string) error
		in    string
	}{
		{name: "key empty", parse: parseKey, in: ""},
		{name: "key short", parse: parseKey, in: key[:len(key)-1]},
		{name: "key wrong prefix", parse: parseKey, in: "xxx1" + key[4:]},
		{name: "key bad checksum", parse: parseKey, in: flip(key, len(key)-3)},
		{name: "key payload flip", parse: parseKey, in: flip(key, 10)},
		{name: "key uppercase", parse: parseKey, in: PrivateKeyPrefix + strings.ToUpper(key[4:])},
		{name: "address as key", parse: parseKey, in: addr},
		{name: "address bad checksum", parse: parseAddr, in: flip(addr, 20)},
		{name: "key as address", parse: parseAddr, in: key},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.parse(tt.in)
			require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseCompute, Kind: errors.KindInvalidData})
		})
	}
}

func parseKey(s string) error {
	_, err := ParsePrivateKey(s)
	return err
}

func parseAddr(s string) error {
	_, err := ParseAddress(s)
	return err
}

func TestSignVerify(t *testing.T) {
	k := fixedKey(t)
	msg := []byte("transfer 10 credits")

	sig := k.Sign(msg)
	require.True(t, Verify(k.Address(), msg, sig))
	require.False(t, Verify(k.Address(), []byte("transfer 11 credits"), sig))

	other, err := GeneratePrivateKey(bytes.NewReader(bytes.Repeat([]byte{9}, 32)))
	require.NoError(t, err)
	require.False(t, Verify(other.Address(), msg, sig))

	parsed, err := ParseSignature(sig.String())
	require.NoError(t, err)
	require.Equal(t, sig, parsed)

	_, err = ParseSignature("sig1tooshort")
	require.Error(t, err)
	_, err = ParseSignature(strings.Replace(sig.String(), "sig1", "sag1", 1))
	require.Error(t, err)
}

func TestPrivateKey_Zero(t *testing.T) {
	k := fixedKey(t)
	k.Zero()
	require.Equal(t, PrivateKey{}, k)
}

func TestHashMessage(t *testing.T) {
	// blake2b-128 of the empty input
	h := HashMessage(nil)
	require.Equal(t, "cae66941d9efbd404e4d88758ea67670", hex.EncodeToString(h[:]))

	require.Equal(t, HashMessage([]byte("abc")), HashMessage([]byte("abc")))
	require.NotEqual(t, HashMessage([]byte("abc")), HashMessage([]byte("abd")))
}
