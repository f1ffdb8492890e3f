package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the bridge the error occurred
type Phase string

const (
	PhaseStartup Phase = "startup" // runtime creation
	PhaseAttach  Phase = "attach"  // thread attach/detach
	PhaseRelease Phase = "release" // reference release
	PhaseLookup  Phase = "lookup"  // type/member resolution
	PhaseInvoke  Phase = "invoke"  // method and constructor calls
	PhaseConvert Phase = "convert" // variant access and boxing
	PhaseArray   Phase = "array"   // array element access
	PhaseFault   Phase = "fault"   // pending-fault capture
	PhaseProxy   Phase = "proxy"   // proxy creation and dispatch
	PhaseDefine  Phase = "define"  // class definition
)

// Kind categorizes the error
type Kind string

const (
	KindRuntimeInitFailed   Kind = "runtime_init_failed"
	KindNotAttached         Kind = "not_attached"
	KindPrimitiveCallFailed Kind = "primitive_call_failed"
	KindForeignFault        Kind = "foreign_fault"
	KindTypeMismatch        Kind = "type_mismatch"
	KindMethodNotFound      Kind = "method_not_found"
	KindConstructorNotFound Kind = "constructor_not_found"
	KindNotAnArray          Kind = "not_an_array"
	KindIndexOutOfRange     Kind = "index_out_of_range"
	KindNullReference       Kind = "null_reference"
	KindInvalidInput        Kind = "invalid_input"
	KindNotFound            Kind = "not_found"
	KindUnsupported         Kind = "unsupported"
)

// Kind-only sentinels. They match any *Error of the same kind regardless of
// phase, as well as the dedicated error types that report that kind.
var (
	ErrRuntimeInitFailed   = &Error{Kind: KindRuntimeInitFailed}
	ErrNotAttached         = &Error{Kind: KindNotAttached}
	ErrPrimitiveCallFailed = &Error{Kind: KindPrimitiveCallFailed}
	ErrForeignFault        = &Error{Kind: KindForeignFault}
	ErrTypeMismatch        = &Error{Kind: KindTypeMismatch}
	ErrMethodNotFound      = &Error{Kind: KindMethodNotFound}
	ErrConstructorNotFound = &Error{Kind: KindConstructorNotFound}
	ErrNotAnArray          = &Error{Kind: KindNotAnArray}
	ErrIndexOutOfRange     = &Error{Kind: KindIndexOutOfRange}
	ErrNullReference       = &Error{Kind: KindNullReference}
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value       any
	Cause       error
	Phase       Phase
	Kind        Kind
	NativeType  string
	ForeignType string
	Detail      string
	Path        []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.NativeType != "" || e.ForeignType != "" {
		b.WriteString(": ")
		if e.NativeType != "" && e.ForeignType != "" {
			b.WriteString("native ")
			b.WriteString(e.NativeType)
			b.WriteString(", foreign ")
			b.WriteString(e.ForeignType)
		} else if e.NativeType != "" {
			b.WriteString("native ")
			b.WriteString(e.NativeType)
		} else {
			b.WriteString("foreign ")
			b.WriteString(e.ForeignType)
		}
	}

	if e.Detail != "" {
		if e.NativeType != "" || e.ForeignType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrorKind reports the error category
func (e *Error) ErrorKind() Kind {
	return e.Kind
}

// Is reports whether target matches this error. A target without a phase
// matches on kind alone.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Phase == "" {
			return e.Kind == t.Kind
		}
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Kinded is implemented by every error type of this module.
type Kinded interface {
	error
	ErrorKind() Kind
}

// KindOf returns the kind of the first Kinded error in err's chain, or "".
func KindOf(err error) Kind {
	for err != nil {
		if k, ok := err.(Kinded); ok {
			return k.ErrorKind()
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// MatchKind implements Is for dedicated error types: it reports whether
// target is a kind-only sentinel (or a phased *Error) of kind k.
func MatchKind(k Kind, phase Phase, target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Kind != k {
		return false
	}
	return t.Phase == "" || t.Phase == phase
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the member path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// NativeType sets the Go-side type name
func (b *Builder) NativeType(t string) *Builder {
	b.err.NativeType = t
	return b
}

// ForeignType sets the foreign type name
func (b *Builder) ForeignType(t string) *Builder {
	b.err.ForeignType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// RuntimeInitFailed creates a runtime creation error carrying the status code
func RuntimeInitFailed(status int32, detail string) *Error {
	return &Error{
		Phase:  PhaseStartup,
		Kind:   KindRuntimeInitFailed,
		Detail: fmt.Sprintf("%s (status %d)", detail, status),
		Value:  status,
	}
}

// NotAttached creates an error for operations on a thread without an env
func NotAttached(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotAttached,
		Detail: "current thread is not attached to the runtime",
	}
}

// PrimitiveCallFailed creates an error for a primitive that returned a null
// or sentinel result without raising a foreign fault
func PrimitiveCallFailed(phase Phase, primitive string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindPrimitiveCallFailed,
		Detail: primitive + " failed",
	}
}

// TypeMismatch creates a variant accessor mismatch error
func TypeMismatch(phase Phase, want, have string) *Error {
	return &Error{
		Phase:       phase,
		Kind:        KindTypeMismatch,
		NativeType:  want,
		ForeignType: have,
	}
}

// NotAnArray creates an error for array operations on a non-array value
func NotAnArray(typeName string) *Error {
	return &Error{
		Phase:       PhaseArray,
		Kind:        KindNotAnArray,
		ForeignType: typeName,
		Detail:      "not an array type",
	}
}

// IndexOutOfRange creates an array bounds error
func IndexOutOfRange(index, length int) *Error {
	return &Error{
		Phase:  PhaseArray,
		Kind:   KindIndexOutOfRange,
		Detail: fmt.Sprintf("index %d out of range (length %d)", index, length),
		Value:  index,
	}
}

// NullReference creates an error for a null object where one is required
func NullReference(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNullReference,
		Detail: what + " is a null reference",
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// MethodNotFoundError is returned when overload resolution finds no
// candidate. ArgTypes holds the foreign type name of every argument; an
// untyped (null) argument is reported as "null".
type MethodNotFoundError struct {
	Class       string
	Method      string
	ArgTypes    []string
	Constructor bool
}

// MethodNotFound creates a resolution error for a named method
func MethodNotFound(class, method string, argTypes []string) *MethodNotFoundError {
	return &MethodNotFoundError{Class: class, Method: method, ArgTypes: argTypes}
}

// ConstructorNotFound creates a resolution error for a constructor
func ConstructorNotFound(class string, argTypes []string) *MethodNotFoundError {
	return &MethodNotFoundError{Class: class, Method: "<init>", ArgTypes: argTypes, Constructor: true}
}

func (e *MethodNotFoundError) Error() string {
	var b strings.Builder
	if e.Constructor {
		b.WriteString("No such constructor found in class '")
		b.WriteString(e.Class)
		b.WriteByte('\'')
	} else {
		b.WriteString("No such method '")
		b.WriteString(e.Method)
		b.WriteString("' found in class '")
		b.WriteString(e.Class)
		b.WriteByte('\'')
	}
	b.WriteString(joinArgTypes(e.ArgTypes))
	return b.String()
}

// ErrorKind reports method_not_found or constructor_not_found
func (e *MethodNotFoundError) ErrorKind() Kind {
	if e.Constructor {
		return KindConstructorNotFound
	}
	return KindMethodNotFound
}

// Is reports whether target matches this error type or its kind sentinel
func (e *MethodNotFoundError) Is(target error) bool {
	if _, ok := target.(*MethodNotFoundError); ok {
		return true
	}
	return MatchKind(e.ErrorKind(), PhaseLookup, target)
}

func joinArgTypes(types []string) string {
	switch len(types) {
	case 0:
		return ""
	case 1:
		return " taking an argument of " + types[0]
	}
	var b strings.Builder
	b.WriteString(" taking arguments of ")
	b.WriteString(strings.Join(types[:len(types)-1], ", "))
	b.WriteString(" and ")
	b.WriteString(types[len(types)-1])
	return b.String()
}
