package sender

import "github.com/pkg/errors"

// ErrOversize is returned by EnqueueHead/EnqueueTail when a packet exceeds
// the configured maximum packet size (spec §7 OVERSIZE).
var ErrOversize = errors.New("sender: packet exceeds max packet size")

// ErrInactive is returned by the admit API when the sender has not been
// connected to a link.
var ErrInactive = errors.New("sender: not connected")
