// Package errors provides structured error types for the jvm-bridge library.
//
// Errors are categorized by Phase (where in the bridge the error occurred) and
// Kind (error category). The Error type carries the member path, native and
// foreign type names, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConvert, errors.KindTypeMismatch).
//		NativeType("int").
//		ForeignType("java/lang/String").
//		Detail("cannot unbox").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseConvert, "int", "object")
//	err := errors.IndexOutOfRange(10, 5)
//
// Kind-only sentinels such as ErrNotAttached match an error of that kind from
// any phase:
//
//	if errors.Is(err, bridgeerrors.ErrNotAttached) { ... }
//
// Overload resolution failures use the dedicated MethodNotFoundError.
package errors
