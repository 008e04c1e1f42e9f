package receiver

import "github.com/pkg/errors"

// ErrInactive is returned when an operation requires an active receiver.
var ErrInactive = errors.New("receiver: not connected")
