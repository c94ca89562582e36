// Package arena implements wasmsigner.Memory and wasmsigner.Heap over a
// single in-process byte slice.
//
// An Arena stands in for the guest's linear address space when the guest
// logic runs outside a wasm sandbox: in tests, and in the host's in-process
// mode. Addresses are offsets into the slice. The first bytes of the arena
// are a reserved prologue, so no block ever starts at address 0.
//
// The heap is first-fit over an address-ordered free list with coalescing.
// Reserve rounds requests up to the configured granularity and reports the
// rounded capacity, which is exactly the behaviour the region header has to
// cope with. Every live block is tracked, so releasing an unknown address or
// releasing with the wrong capacity is detected and reported instead of
// corrupting the free list.
package arena
