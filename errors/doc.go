// Package errors provides structured error types for the wasm-signer module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the export or operation path, the WIT type involved in
// ABI mismatches, and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLoad, errors.KindTypeMismatch).
//		Path("sign").
//		WitType("u64").
//		Detail("result 0 is i32").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.AllocationFailed(errors.PhaseAlloc, size, 8)
//	err := errors.InvalidUTF8(errors.PhaseCompute, []string{"get_address", "key"}, data)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
