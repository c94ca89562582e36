//go:build wasip1

// Command signer-guest is the signer module built for a wasm host. It only
// builds for wasip1:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o signer.wasm ./cmd/signer-guest
//
// The module is a reactor: the host runs _initialize once and then calls
// the exports below. Diagnostics go through env.host_log_string.
package main

import (
	"go.uber.org/zap"

	"github.com/wippyai/wasm-signer/guest"
	"github.com/wippyai/wasm-signer/hostlog"
	"github.com/wippyai/wasm-signer/linear"
	"github.com/wippyai/wasm-signer/region"
)

var mod *guest.Module

func init() {
	log := hostlog.New(zap.InfoLevel)
	region.SetLogger(log)
	mod = guest.New(linear.Memory{}, linear.NewHeap(), guest.WithLogger(log))
}

func main() {}

//go:wasmexport alloc
func alloc(size uint32) uint32 { return mod.Alloc(size) }

//go:wasmexport dealloc
func dealloc(ptr, length uint32) { mod.Dealloc(ptr, length) }

//go:wasmexport dealloc_raw
func deallocRaw(ptr uint32) { mod.DeallocRaw(ptr) }

//go:wasmexport new_private_key
func newPrivateKey() uint64 { return mod.NewPrivateKey() }

//go:wasmexport get_address
func getAddress(keyPtr, keyLen uint32) uint64 { return mod.GetAddress(keyPtr, keyLen) }

//go:wasmexport sign
func sign(keyPtr, keyLen, msgPtr, msgLen uint32) uint64 {
	return mod.Sign(keyPtr, keyLen, msgPtr, msgLen)
}

//go:wasmexport verify
func verify(addrPtr, addrLen, msgPtr, msgLen, sigPtr, sigLen uint32) int32 {
	return mod.Verify(addrPtr, addrLen, msgPtr, msgLen, sigPtr, sigLen)
}

//go:wasmexport hash_message
func hashMessage(msgPtr, msgLen uint32) uint64 { return mod.HashMessage(msgPtr, msgLen) }

//go:wasmexport hash_message_bytes
func hashMessageBytes(msgPtr, msgLen uint32) uint64 { return mod.HashMessageBytes(msgPtr, msgLen) }

//go:wasmexport format_message
func formatMessage(msgPtr, msgLen, chunks uint32) uint64 {
	return mod.FormatMessage(msgPtr, msgLen, chunks)
}

//go:wasmexport formatted_message_to_bytes
func formattedMessageToBytes(textPtr, textLen uint32) uint64 {
	return mod.FormattedMessageToBytes(textPtr, textLen)
}
