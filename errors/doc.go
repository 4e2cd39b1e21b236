// Package errors provides structured error types for the fax-native bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes a field path and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindDecodeFailed).
//		Path("tokens", "3").
//		Detail("truncated varint").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidInput(errors.PhaseBridge, "source text is empty")
//	err := errors.Unavailable(errors.PhaseEncode, "module serialization")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
