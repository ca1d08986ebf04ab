package resp

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConnectionBrokenError wraps a transport-level read or write failure. Once
// returned to a client.Session, the session is marked broken and every
// subsequent operation fails immediately with the same error.
type ConnectionBrokenError struct {
	Cause error
}

func (e *ConnectionBrokenError) Error() string {
	return fmt.Sprintf("resp: connection broken: %s", e.Cause)
}

func (e *ConnectionBrokenError) Unwrap() error { return e.Cause }

// WrapConnectionBroken tags cause as a ConnectionBrokenError, preserving it
// as the wrapped cause so errors.Is/errors.As (which follow Unwrap) still
// reach it.
func WrapConnectionBroken(cause error) error {
	if cause == nil {
		return nil
	}
	return &ConnectionBrokenError{Cause: errors.WithStack(cause)}
}

// ProtocolError reports that the wire bytes violate RESP framing: a missing
// CRLF, a malformed length header, or a reply count that the caller's
// protocol expectations did not allow for (e.g. an aggregate whose length
// differs from a fixed-length array target's).
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string { return "resp: protocol error: " + e.Msg }

func newProtocolError(format string, args ...interface{}) error {
	return &ProtocolError{Msg: fmt.Sprintf(format, args...)}
}

// UnexpectedTagError reports a frame tag that the target shape cannot
// accept (e.g. a map frame offered to an int64 target).
type UnexpectedTagError struct {
	Tag    Tag
	Target string
}

func (e *UnexpectedTagError) Error() string {
	return fmt.Sprintf("resp: unexpected tag %s for target %s", e.Tag, e.Target)
}

// UnexpectedNilError reports a nil frame ($-1, *-1, or _) offered to a
// target shape that does not admit nil.
type UnexpectedNilError struct {
	Target string
}

func (e *UnexpectedNilError) Error() string {
	return fmt.Sprintf("resp: unexpected nil for target %s", e.Target)
}

// ServerError represents a RESP error frame ("-...") decoded against a
// target shape that does not itself model error alternatives (OrErr,
// OrFullErr, DynamicReply); a Void target also reports an error frame as a
// ServerError, after consuming it. Code is the first whitespace-delimited
// token of the error body (e.g. "ERR", "WRONGTYPE"); Message is the full
// error body, when available.
type ServerError struct {
	Code    string
	Message string
}

func (e ServerError) Error() string {
	if e.Message != "" {
		return "resp: server error " + e.Message
	}
	return "resp: server error " + e.Code
}

// NumericRangeError reports that a numeric frame's value does not fit in
// the target's numeric type.
type NumericRangeError struct {
	Target string
	Value  string
}

func (e *NumericRangeError) Error() string {
	return fmt.Sprintf("resp: value %q out of range for %s", e.Value, e.Target)
}

// NotANumberError reports that a bulk/simple string body could not be
// parsed as the target's numeric lexical form.
type NotANumberError struct {
	Target string
	Value  string
}

func (e *NotANumberError) Error() string {
	return fmt.Sprintf("resp: %q is not a number for %s", e.Value, e.Target)
}

// NotABoolError reports that a frame did not encode any of the accepted
// boolean spellings (#t/#f, any integer with nonzero meaning true, or a bulk
// string such as "true"/"false"/"1"/"0" that cast.ToBoolE accepts).
type NotABoolError struct {
	Value string
}

func (e *NotABoolError) Error() string {
	return fmt.Sprintf("resp: %q is not a boolean", e.Value)
}

// BufferTooSmallError reports that a FixBuf's capacity was smaller than an
// incoming bulk/simple string body.
type BufferTooSmallError struct {
	Capacity int
	Need     int
}

func (e *BufferTooSmallError) Error() string {
	return fmt.Sprintf("resp: buffer capacity %d too small for %d bytes", e.Capacity, e.Need)
}

// MissingFieldError reports that a Record target declared a required
// (non-Optional) field that the wire map/array never supplied.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "resp: missing field " + e.Field
}

// UnknownFieldError reports a wire key a Record target has no field for.
// It is only ever returned when the target opts into strict mode (see
// StrictRecord); the default is to skip unknown keys silently.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return "resp: unknown field " + e.Field
}

// AllocFailureError reports that the allocating decoder's Allocator could
// not obtain memory. Any allocations already made within the failing
// top-level decode call are released (via the free-reply walker) before
// this error is returned.
type AllocFailureError struct {
	Cause error
}

func (e *AllocFailureError) Error() string {
	return fmt.Sprintf("resp: allocation failed: %s", e.Cause)
}

func (e *AllocFailureError) Unwrap() error { return e.Cause }
