// Package wasmsigner provides a WebAssembly guest module for key generation,
// address derivation, hashing and signing, together with the host-side
// wrapper that drives it.
//
// The hard part of the module is not the cryptography but the memory
// exchange across the raw wasm boundary: the host only sees bare integer
// addresses, so every buffer the guest hands out must carry enough
// information for the guest to reclaim it later.
//
// # Architecture Overview
//
//	wasmsigner/          Root package with the Memory and Heap interfaces
//	├── region/          Header-tagged allocate/deallocate
//	├── transfer/        Bare-pointer and packed length|pointer return encodings
//	├── arena/           In-process linear memory with a tracking heap
//	├── linear/          Real linear memory and GC-pinning heap (wasm builds only)
//	├── hostlog/         zap core delivering guest diagnostics to the host
//	├── keys/            Key, address, signature and hash collaborator
//	├── msgfmt/          Message to u128 struct text formatting
//	├── guest/           Guest entry points over Memory and Heap
//	├── host/            wazero-based wrapper and sessions
//	├── errors/          Structured error types for debugging
//	└── cmd/             signer-guest (wasip1 binary) and signer (CLI)
//
// # Memory Protocol
//
// Every region handed to the host has the layout
//
//	[ capacity: u64 little-endian ][ data ... ]
//	                                ^ address returned to the host
//
// where capacity is the full reserved size of the block, header included.
// dealloc(ptr, len) ignores len, steps back 8 bytes, reads the capacity and
// releases exactly that block. Results that need a length are returned as a
// single u64 packed as len<<32 | ptr; 0 means "no result". Address 0 is
// never handed out, so a zero-length success is never equal to 0.
//
// # Quick Start
//
// Load the guest and sign a message:
//
//	wrapper, closeFn, err := host.NewWrapper(ctx, wasmBytes, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer closeFn()
//
//	s, err := wrapper.NewSession()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	key, address, err := s.NewPrivateKey()
//	sig, err := s.Sign(key, []byte("btc/usd = 1.0"))
//
// # Thread Safety
//
// The guest is single-threaded and relies on the host never overlapping two
// calls into one instance; the allocator does no locking. Wrapper is safe for
// concurrent use. Session is NOT thread-safe and should be used by a single
// goroutine.
package wasmsigner
