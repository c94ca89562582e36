package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-signer/host"
	"github.com/wippyai/wasm-signer/keys"
)

// runCmd executes the CLI with args and stdin and returns stdout.
func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func keygen(t *testing.T) (string, string) {
	t.Helper()
	out, err := runCmd(t, "", "keygen", "--json")
	require.NoError(t, err)

	var res map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	return res["private_key"], res["address"]
}

func TestKeygen(t *testing.T) {
	key, addr := keygen(t)
	require.Len(t, key, keys.PrivateKeySize)
	require.Len(t, addr, keys.AddressSize)

	out, err := runCmd(t, "", "keygen")
	require.NoError(t, err)
	require.Contains(t, out, "private key: key1")
	require.Contains(t, out, "address:     addr1")
}

func TestAddress(t *testing.T) {
	key, addr := keygen(t)

	tests := []struct {
		name  string
		stdin string
		args  []string
	}{
		{name: "argument", args: []string{"address", key}},
		{name: "stdin with newline", stdin: key + "\n", args: []string{"address", "-"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCmd(t, tt.stdin, tt.args...)
			require.NoError(t, err)
			require.Equal(t, addr+"\n", out)
		})
	}

	_, err := runCmd(t, "", "address", "key1nope")
	require.Error(t, err)
	require.Contains(t, err.Error(), "derive address")
}

func TestSignVerify(t *testing.T) {
	key, addr := keygen(t)

	sig, err := runCmd(t, "", "sign", "--key", key, "hello")
	require.NoError(t, err)
	sig = strings.TrimSpace(sig)
	require.Len(t, sig, keys.SignatureSize)

	out, err := runCmd(t, "", "verify", addr, "hello", sig)
	require.NoError(t, err)
	require.Contains(t, out, "signature is valid")

	out, err = runCmd(t, "", "verify", "--json", addr, "hello!", sig)
	require.ErrorIs(t, err, errInvalidSignature)
	require.JSONEq(t, `{"valid": false}`, out)

	_, err = runCmd(t, "", "sign", "hello")
	require.Error(t, err, "--key is required")
}

func TestHash(t *testing.T) {
	want := keys.HashMessage([]byte("abc"))

	out, err := runCmd(t, "", "hash", "abc")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(strings.TrimSpace(out), "u128"))

	out, err = runCmd(t, "abc", "hash", "--bytes", "-")
	require.NoError(t, err)
	require.Equal(t, hex.EncodeToString(want[:])+"\n", out)
}

func TestFormatRecover(t *testing.T) {
	formatted, err := runCmd(t, "", "format", "--chunks", "2", "round trip")
	require.NoError(t, err)
	require.Contains(t, formatted, "c1: {")

	out, err := runCmd(t, formatted, "recover", "-")
	require.NoError(t, err)
	require.Equal(t, "round trip\n", out)

	out, err = runCmd(t, formatted, "recover", "--hex", "-")
	require.NoError(t, err)
	require.Equal(t, hex.EncodeToString([]byte("round trip"))+"\n", out)

	_, err = runCmd(t, "", "format", "--chunks", "0", "x")
	require.Error(t, err)
}

func TestWasmFlag_MissingFile(t *testing.T) {
	_, err := runCmd(t, "", "keygen", "--wasm", "/nonexistent/signer.wasm")
	require.Error(t, err)
	require.Contains(t, err.Error(), "read wasm")
}

func TestHeapFlag(t *testing.T) {
	_, err := runCmd(t, "", "hash", "--heap", "8", "x")
	require.Error(t, err)

	_, err = runCmd(t, "", "hash", "--heap", "65536", "x")
	require.NoError(t, err)
}

func newTestModel(t *testing.T) *interactiveModel {
	t.Helper()
	w, closeFn, err := host.NewLocalWrapper(nil, nil)
	require.NoError(t, err)
	t.Cleanup(closeFn)
	s, err := w.NewSession()
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return newInteractiveModel(s, "test")
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds a key and runs any command it returns synchronously.
func press(m *interactiveModel, k string) {
	_, cmd := m.Update(keyMsg(k))
	if cmd == nil {
		return
	}
	if res, ok := cmd().(callResultMsg); ok {
		m.Update(res)
	}
}

func TestInteractive_Keygen(t *testing.T) {
	m := newTestModel(t)
	require.Contains(t, m.View(), "Select an operation")

	press(m, "enter")
	require.Equal(t, stateShowResult, m.state)
	require.NoError(t, m.err)
	require.Contains(t, m.View(), "private key: key1")

	press(m, "enter")
	require.Equal(t, stateSelectOp, m.state)
}

func TestInteractive_HashWithInput(t *testing.T) {
	m := newTestModel(t)

	// keygen, address, sign, verify, hash
	for range 4 {
		press(m, "down")
	}
	press(m, "enter")
	require.Equal(t, stateInputArgs, m.state)
	require.Contains(t, m.View(), "Running")

	press(m, "abc")
	press(m, "enter")
	require.Equal(t, stateShowResult, m.state)
	require.NoError(t, m.err)

	want := keys.HashMessage([]byte("abc"))
	require.Contains(t, m.result, hex.EncodeToString(want[:]))
	require.Nil(t, m.inputs, "inputs are cleared after a call")

	press(m, "esc")
	require.Equal(t, stateSelectOp, m.state)
}

func TestInteractive_ErrorResult(t *testing.T) {
	m := newTestModel(t)
	press(m, "down")
	press(m, "enter")
	press(m, "not-a-key")
	press(m, "enter")

	require.Equal(t, stateShowResult, m.state)
	require.Error(t, m.err)
	require.Contains(t, m.View(), "Error:")
}
