package main

import "github.com/wippyai/wasm-signer/arena"

func heapConfig(opts *options) *arena.Config {
	if opts.heapBytes == 0 {
		return nil
	}
	return &arena.Config{Size: opts.heapBytes}
}
