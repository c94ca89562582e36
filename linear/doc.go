// Package linear binds the memory protocol to the linear memory of the
// running wasip1 module.
//
// Memory addresses bytes directly by their linear-memory offset. Heap
// backs regions and adopted buffers with Go slices and keeps them pinned in
// a map keyed by address, so the garbage collector cannot reclaim a buffer
// while the host holds its address.
//
// Both types exist only in wasip1 builds; native code uses the arena
// package instead.
package linear
