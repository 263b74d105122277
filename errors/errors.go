package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseHeap    Phase = "heap"    // linear memory and allocation
	PhaseConvert Phase = "convert" // Go value to foreign object
	PhaseExtract Phase = "extract" // foreign object to Go value
	PhaseHandle  Phase = "handle"  // handle construction
	PhaseCall    Phase = "call"    // foreign call protocol
	PhaseLock    Phase = "lock"    // execution lock
	PhaseConfig  Phase = "config"  // configuration
	PhaseRuntime Phase = "runtime" // runtime lifecycle
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch     Kind = "type_mismatch"
	KindOutOfBounds      Kind = "out_of_bounds"
	KindOutOfMemory      Kind = "out_of_memory"
	KindOverflow         Kind = "overflow"
	KindNullPointer      Kind = "null_pointer"
	KindNotAType         Kind = "not_a_type"
	KindForeignException Kind = "foreign_exception"
	KindClosed           Kind = "closed"
	KindInvalidInput     Kind = "invalid_input"
	KindNotFound         Kind = "not_found"
)

// Error is the structured error type used throughout objrt
type Error struct {
	Value       any
	Cause       error
	Phase       Phase
	Kind        Kind
	GoType      string
	ForeignType string
	Detail      string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.GoType != "" || e.ForeignType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.ForeignType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", foreign type ")
			b.WriteString(e.ForeignType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("foreign type ")
			b.WriteString(e.ForeignType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.ForeignType != "" {
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

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
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

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
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

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, goType, foreignType string) *Error {
	return &Error{
		Phase:       phase,
		Kind:        KindTypeMismatch,
		GoType:      goType,
		ForeignType: foreignType,
	}
}

// OutOfMemory creates an allocation failure error
func OutOfMemory(phase Phase, size uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfMemory,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
		Value:  size,
	}
}

// OutOfBounds creates an out of bounds error for a linear memory access
func OutOfBounds(phase Phase, offset, length uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("access at offset %d (length %d) out of bounds", offset, length),
		Value:  offset,
	}
}

// NullPointer creates a null pointer error
func NullPointer(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNullPointer,
		Detail: fmt.Sprintf("null %s pointer", what),
	}
}

// NotAType creates an error for a pointer that does not reference a type object
func NotAType(phase Phase, ptr uint32, actual string) *Error {
	return &Error{
		Phase:       phase,
		Kind:        KindNotAType,
		ForeignType: actual,
		Detail:      fmt.Sprintf("object at 0x%x is not a type", ptr),
		Value:       ptr,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, value any, targetType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		GoType: targetType,
		Detail: fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:  value,
	}
}

// ForeignException creates an error describing an exception raised inside
// the foreign runtime
func ForeignException(phase Phase, excType, message string) *Error {
	return &Error{
		Phase:       phase,
		Kind:        KindForeignException,
		ForeignType: excType,
		Detail:      message,
	}
}

// Closed creates an error for operations on a closed runtime
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", what),
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

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
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
