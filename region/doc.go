// Package region implements header-tagged allocation in linear memory.
//
// Every region handed out by Allocate has the layout
//
//	base            base+8
//	[ capacity u64 ][ data ... ]
//	                ^ returned pointer
//
// capacity is the full size of the block the heap actually reserved, header
// included, written little-endian before the pointer is returned and never
// touched again. Deallocate steps back HeaderSize bytes from the pointer,
// reads the capacity and releases exactly that block. The length argument
// of Deallocate exists only so the export matches the host's dealloc(ptr,
// len) call shape; it is never trusted.
//
// The allocator performs no locking. It relies on the host never running
// two calls into one guest instance at the same time.
package region
