package host

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/wasm-signer/errors"
	"github.com/wippyai/wasm-signer/keys"
)

// buildGuest compiles cmd/signer-guest for wasip1.
func buildGuest(t *testing.T) []byte {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping guest build in short mode")
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go toolchain not available")
	}

	out := filepath.Join(t.TempDir(), "signer.wasm")
	cmd := exec.Command(goBin, "build", "-buildmode=c-shared", "-o", out, "./cmd/signer-guest")
	cmd.Dir = ".."
	cmd.Env = append(os.Environ(), "GOOS=wasip1", "GOARCH=wasm")
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("cannot build guest: %v\n%s", err, output)
	}

	wasm, err := os.ReadFile(out)
	require.NoError(t, err)
	return wasm
}

func TestWasmGuest_EndToEnd(t *testing.T) {
	wasm := buildGuest(t)

	core, logs := observer.New(zap.DebugLevel)
	w, closeFn, err := NewWrapper(context.Background(), wasm, &Config{Logger: zap.New(core)})
	require.NoError(t, err)
	defer closeFn()

	s, err := w.NewSession()
	require.NoError(t, err)
	defer s.Close()

	key, addr, err := s.NewPrivateKey()
	require.NoError(t, err)
	require.Len(t, key, keys.PrivateKeySize)
	require.Len(t, addr, keys.AddressSize)

	msg := []byte("signed inside wasm")
	sig, err := s.Sign(key, msg)
	require.NoError(t, err)

	ok, err := s.Verify(addr, msg, sig)
	require.NoError(t, err)
	require.True(t, ok)

	// the guest's result must verify natively too
	parsedAddr, err := keys.ParseAddress(addr)
	require.NoError(t, err)
	parsedSig, err := keys.ParseSignature(sig)
	require.NoError(t, err)
	require.True(t, keys.Verify(parsedAddr, msg, parsedSig))

	formatted, err := s.FormatMessage(msg, 1)
	require.NoError(t, err)
	recovered, err := s.RecoverMessage(formatted)
	require.NoError(t, err)
	require.Equal(t, msg, recovered)

	hash, err := s.HashMessage(msg)
	require.NoError(t, err)
	want := keys.HashMessage(msg)
	require.Equal(t, want[:], hash)

	_, err = s.Sign([]byte{0xff, 0xfe}, msg)
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseRuntime, Kind: errors.KindGuestFailure})
	require.NotZero(t, logs.FilterMessage("guest log").Len(), "guest diagnostics reach the host logger")
}

func TestWasmGuest_AllocDealloc(t *testing.T) {
	wasm := buildGuest(t)

	w, closeFn, err := NewWrapper(context.Background(), wasm, nil)
	require.NoError(t, err)
	defer closeFn()

	s, err := w.NewSession()
	require.NoError(t, err)
	defer s.Close()
	g := s.(*session).g

	ctx := context.Background()
	res, err := g.Call(ctx, exportAlloc, 5)
	require.NoError(t, err)
	ptr := uint32(res[0])
	require.NotZero(t, ptr)

	header, err := g.Memory().ReadU64(ptr - 8)
	require.NoError(t, err)
	require.GreaterOrEqual(t, header, uint64(13), "header holds the full reserved capacity")

	require.NoError(t, g.Memory().Write(ptr, []byte{1, 2, 3, 4, 5}))
	_, err = g.Call(ctx, exportDealloc, uint64(ptr), 0)
	require.NoError(t, err)

	res, err = g.Call(ctx, exportAlloc, 5)
	require.NoError(t, err)
	require.NotZero(t, res[0])

	_, err = g.Call(ctx, exportDealloc, 0, 0)
	require.NoError(t, err)
}
