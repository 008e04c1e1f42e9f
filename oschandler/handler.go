// Package oschandler defines the handler abstraction used by the address
// space: a subscriber invoked with a leaf name and its
// matched message's arguments, with panics isolated per subscriber (spec
// §4.7, §9 "Handlers as list subscribers").
package oschandler

import (
	"fmt"

	"github.com/vexis-audio/oscrt/osc"
)

// Handler is anything that can receive a dispatched message.
type Handler interface {
	HandleMessage(leaf string, args []osc.Argument)
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(leaf string, args []osc.Argument)

// HandleMessage calls f. Implements Handler.
func (f HandlerFunc) HandleMessage(leaf string, args []osc.Argument) {
	f(leaf, args)
}

// Invoke calls h.HandleMessage, recovering any panic and reporting it
// through onPanic rather than letting it propagate -- the dispatch walk and
// the scheduler loops that drive it must survive a misbehaving handler
// (spec §7 HANDLER_PANIC).
func Invoke(h Handler, leaf string, args []osc.Argument, onPanic func(error)) {
	defer func() {
		if r := recover(); r != nil {
			if onPanic != nil {
				onPanic(fmt.Errorf("oschandler: handler panicked: %v", r))
			}
		}
	}()
	h.HandleMessage(leaf, args)
}
