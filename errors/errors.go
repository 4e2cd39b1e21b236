package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLex    Phase = "lex"    // source tokenization
	PhaseEncode Phase = "encode" // structured data to wire bytes
	PhaseDecode Phase = "decode" // wire bytes to structured data
	PhaseBridge Phase = "bridge" // context and handle operations
	PhaseGC     Phase = "gc"     // allocation runtime
	PhaseConfig Phase = "config" // configuration loading
	PhaseFFI    Phase = "ffi"    // host function table
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidInput     Kind = "invalid_input"
	KindCodecUnavailable Kind = "codec_unavailable"
	KindDecodeFailed     Kind = "decode_failed"
	KindOutOfBounds      Kind = "out_of_bounds"
	KindExhausted        Kind = "exhausted"
	KindNotInitialized   Kind = "not_initialized"
	KindInvalidUTF8      Kind = "invalid_utf8"
	KindInvalidHandle    Kind = "invalid_handle"
	KindOverflow         Kind = "overflow"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
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

	if e.Detail != "" {
		b.WriteString(": ")
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

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
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

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Unavailable creates a codec-unavailable error. Partial codec rollout is
// an expected operational state, not a crash.
func Unavailable(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCodecUnavailable,
		Detail: fmt.Sprintf("%s not yet implemented", what),
	}
}

// DecodeFailed creates a malformed-input error
func DecodeFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindDecodeFailed,
		Detail: fmt.Sprintf("decode %s", what),
		Cause:  cause,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// Exhausted creates an allocation-exhaustion error
func Exhausted(size, limit uint64) *Error {
	return &Error{
		Phase:  PhaseGC,
		Kind:   KindExhausted,
		Detail: fmt.Sprintf("cannot allocate %d bytes (heap limit %d)", size, limit),
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// InvalidHandle creates an invalid handle error
func InvalidHandle(phase Phase, handle uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandle,
		Detail: fmt.Sprintf("handle %d is not a live resource", handle),
		Value:  handle,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, value any, targetType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Detail: fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:  value,
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
