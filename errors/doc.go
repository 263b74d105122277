// Package errors provides structured error types for objrt.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type carries the Go and foreign type names involved,
// a detail message and a cause chain.
//
// Use the Builder for structured construction:
//
//	err := errors.New(errors.PhaseConvert, errors.KindTypeMismatch).
//		GoType("chan int").
//		ForeignType("object").
//		Detail("no conversion into the foreign runtime").
//		Build()
//
// Or the convenience constructors for common patterns:
//
//	err := errors.NullPointer(errors.PhaseHandle, "type")
//	err := errors.OutOfMemory(errors.PhaseHeap, size)
//
// All errors implement the standard error interface and support errors.Is/As.
// Is matches on Phase and Kind, so a bare &Error{Phase: p, Kind: k} works as a
// sentinel.
package errors
