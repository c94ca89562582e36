package host

// memoryOnlyWasm exports one page of memory and nothing else.
var memoryOnlyWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// memory: 1 page
	0x05, 0x03, 0x01, 0x00, 0x01,
	// export "memory"
	0x07, 0x0a, 0x01, 0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
}

// badAllocWasm exports alloc as (i64) -> i32 and a memory.
var badAllocWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type 0: (i64) -> i32
	0x01, 0x06, 0x01, 0x60, 0x01, 0x7e, 0x01, 0x7f,
	// func 0: type 0
	0x03, 0x02, 0x01, 0x00,
	// memory: 1 page
	0x05, 0x03, 0x01, 0x00, 0x01,
	// export "alloc" func 0, "memory" memory 0
	0x07, 0x12, 0x02,
	0x05, 'a', 'l', 'l', 'o', 'c', 0x00, 0x00,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	// code: i32.const 0
	0x0a, 0x06, 0x01, 0x04, 0x00, 0x41, 0x00, 0x0b,
}
