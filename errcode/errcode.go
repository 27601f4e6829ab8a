package errcode

import "errors"

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	InvalidArgument   Code = "invalid_argument"
	NotFound          Code = "not_found"
	InvalidState      Code = "invalid_state"
	// ResourceExhausted is part of the wire taxonomy only; Go code here
	// has no allocation failure to report.
	ResourceExhausted Code = "resource_exhausted"
	Timeout           Code = "timeout"
	DriverError       Code = "driver_error"
	StorageError      Code = "storage_error"

	Busy           Code = "busy"
	Unsupported    Code = "unsupported"
	InvalidPayload Code = "invalid_payload"
	InvalidTopic   Code = "invalid_topic"

	Error Code = "error" // generic fallback
)

// E keeps context and a cause next to a Code. Reason carries the
// driver-specific reason code for DriverError.
type E struct {
	C      Code
	Op     string
	Msg    string
	Reason int
	Err    error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is(err, errcode.NotFound) match a wrapped *E.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// New builds an *E for op.
func New(c Code, op, msg string) *E { return &E{C: c, Op: op, Msg: msg} }

// Wrap attaches a code to err. A nil err stays nil.
func Wrap(c Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &E{C: c, Op: op, Err: err}
}

// Driver wraps an opaque radio driver failure with its reason code.
func Driver(op string, reason int, err error) error {
	return &E{C: DriverError, Op: op, Reason: reason, Err: err}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	return Error
}

// ReasonOf returns the driver reason code carried by err, if any.
func ReasonOf(err error) (int, bool) {
	var e *E
	if errors.As(err, &e) && e.C == DriverError {
		return e.Reason, true
	}
	return 0, false
}
