// Package osc implements the OSC wire data model: time tags, the tagged
// union of argument values, and the Message/Bundle/Packet types that the
// dialect package knows how to serialize and parse.
package osc

import "github.com/pkg/errors"

// Sentinel errors for the error kinds in the error handling design. Callers
// should use errors.Is against these, since call sites wrap them with
// errors.Wrap to attach context.
var (
	// ErrMalformed is returned when the codec encounters truncated,
	// unaligned, or otherwise ill-structured bytes.
	ErrMalformed = errors.New("osc: malformed packet")
	// ErrUnsupportedTag is returned when a dialect cannot decode or encode
	// a given type tag.
	ErrUnsupportedTag = errors.New("osc: unsupported type tag")
	// ErrNullArg is returned when a required parameter was omitted.
	ErrNullArg = errors.New("osc: required argument missing")
)

// UnsupportedTagError names the offending tag byte.
type UnsupportedTagError struct {
	Tag byte
}

func (e *UnsupportedTagError) Error() string {
	return "osc: unsupported type tag '" + string(e.Tag) + "'"
}

func (e *UnsupportedTagError) Unwrap() error { return ErrUnsupportedTag }
