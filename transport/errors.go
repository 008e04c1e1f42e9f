package transport

import "github.com/pkg/errors"

// ErrWrongMode is returned when an operation is attempted in a Link state
// that does not permit it (spec §7 WRONG_MODE).
var ErrWrongMode = errors.New("transport: operation not allowed in current link state")

// ErrSocket wraps a host OS send/receive failure (spec §7 SOCKET).
var ErrSocket = errors.New("transport: socket error")
