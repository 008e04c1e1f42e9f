// Package receiver implements NTP-timetag-aware delayed dispatch of inbound
// packets (spec §4.6): bundles are flattened and either dispatched at once
// or parked in a timetag-sorted holding list until their scheduled instant
// elapses.
package receiver

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/vexis-audio/oscrt/clock"
	"github.com/vexis-audio/oscrt/dialect"
	"github.com/vexis-audio/oscrt/internal/pubsub"
	"github.com/vexis-audio/oscrt/osc"
	"github.com/vexis-audio/oscrt/transport"
)

// MessageReceivedEvent fires for every dispatched message, whether it
// arrived standalone or as part of a bundle.
type MessageReceivedEvent struct {
	Message *osc.Message
	From    net.Addr
}

// BundleReceivedEvent fires when a bundle is dispatched. With timetags
// honored it carries a leaf bundle from Bundle.Flatten, fired immediately or
// after its delay elapsed; with IgnoreTimetags it fires for the received
// bundle and again for each nested bundle, unflattened.
type BundleReceivedEvent struct {
	Bundle *osc.Bundle
	From   net.Addr
}

// HeapTaskErrorEvent fires when decoding fails (the packet is dropped) or an
// event subscriber panics; the receiver continues (spec §7 HANDLER_PANIC).
type HeapTaskErrorEvent struct {
	Err error
}

type holdingEntry struct {
	bundle *osc.Bundle
	from   net.Addr
}

// Receiver decodes inbound packets via a dialect.Converter and either
// dispatches them immediately or parks timetag-scheduled bundles in a
// sorted holding list.
type Receiver struct {
	Dialect        *dialect.Converter
	IgnoreTimetags bool
	CycleWait      time.Duration

	MessageReceived pubsub.Topic[MessageReceivedEvent]
	BundleReceived  pubsub.Topic[BundleReceivedEvent]
	HeapTaskError   pubsub.Topic[HeapTaskErrorEvent]

	mu       sync.Mutex
	active   bool
	link     *transport.Link
	subToken int
	holding  []*holdingEntry // sorted descending by Timetag; tail = soonest due

	cancel context.CancelFunc
	wg     sync.WaitGroup

	log *logrus.Entry
}

// New returns a disconnected Receiver decoding with conv.
func New(conv *dialect.Converter) *Receiver {
	return &Receiver{
		Dialect:   conv,
		CycleWait: 5 * time.Millisecond,
		log:       logrus.WithField("component", "receiver.Receiver"),
	}
}

// Connect subscribes to link's PacketReceived event, allocates a fresh
// holding list, and starts the delay scheduler task.
func (r *Receiver) Connect(link *transport.Link) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.link = link
	r.holding = nil
	r.active = true
	r.subToken = link.PacketReceived.Subscribe(r.onPacketReceived)

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.wg.Add(1)
	go r.delaySchedulerLoop(ctx)
}

// Disconnect unsubscribes from the link, signals the delay scheduler task
// and joins it.
func (r *Receiver) Disconnect() {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return
	}
	r.active = false
	link, token, cancel := r.link, r.subToken, r.cancel
	r.mu.Unlock()

	if link != nil {
		link.PacketReceived.Unsubscribe(token)
	}
	if cancel != nil {
		cancel()
	}
	r.wg.Wait()

	r.mu.Lock()
	r.link = nil
	r.cancel = nil
	r.mu.Unlock()
}

func (r *Receiver) onPacketReceived(e transport.PacketReceivedEvent) {
	packet, err := r.Dialect.DecodeTopLevelPacket(e.Data)
	if err != nil {
		r.HeapTaskError.Publish(HeapTaskErrorEvent{Err: errors.Wrap(err, "receiver: decode failed")}, nil)
		return
	}
	switch v := packet.(type) {
	case *osc.Message:
		r.MessageReceived.Publish(MessageReceivedEvent{Message: v, From: e.From}, r.reportPanic)
	case *osc.Bundle:
		r.dispatchBundle(v, e.From)
	}
}

func (r *Receiver) reportPanic(rec any) {
	r.HeapTaskError.Publish(HeapTaskErrorEvent{Err: errors.Errorf("receiver: handler panicked: %v", rec)}, nil)
}

func (r *Receiver) dispatchBundle(b *osc.Bundle, from net.Addr) {
	if r.IgnoreTimetags {
		r.fireRecursive(b, from)
		return
	}

	now := clock.Now()
	for _, flat := range b.Flatten() {
		if flat.Timetag.Before(now) {
			r.fire(flat, from)
			continue
		}
		r.mu.Lock()
		r.holding = insertDescending(r.holding, &holdingEntry{bundle: flat, from: from})
		r.mu.Unlock()
	}
}

// fire dispatches a flattened (leaf) bundle: its own Elements are all
// Messages by construction of Bundle.Flatten.
func (r *Receiver) fire(b *osc.Bundle, from net.Addr) {
	r.BundleReceived.Publish(BundleReceivedEvent{Bundle: b, From: from}, r.reportPanic)
	for _, elem := range b.Elements {
		if m, ok := elem.(*osc.Message); ok {
			r.MessageReceived.Publish(MessageReceivedEvent{Message: m, From: from}, r.reportPanic)
		}
	}
}

// fireRecursive dispatches b and every nested child bundle, depth-first,
// for ignore_timetags=true mode where no flattening happens first.
func (r *Receiver) fireRecursive(b *osc.Bundle, from net.Addr) {
	r.BundleReceived.Publish(BundleReceivedEvent{Bundle: b, From: from}, r.reportPanic)
	for _, elem := range b.Elements {
		switch v := elem.(type) {
		case *osc.Message:
			r.MessageReceived.Publish(MessageReceivedEvent{Message: v, From: from}, r.reportPanic)
		case *osc.Bundle:
			r.fireRecursive(v, from)
		}
	}
}

// insertDescending inserts entry into list, keeping list sorted by Timetag
// descending (latest-scheduled first, nearest-to-due at the tail).
func insertDescending(list []*holdingEntry, entry *holdingEntry) []*holdingEntry {
	i := 0
	for i < len(list) && !list[i].bundle.Timetag.Before(entry.bundle.Timetag) {
		i++
	}
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = entry
	return list
}

func (r *Receiver) delaySchedulerLoop(ctx context.Context) {
	defer r.wg.Done()
	wait := r.CycleWait
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	ticker := time.NewTicker(wait)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.drainDue()
		}
	}
}

func (r *Receiver) drainDue() {
	now := clock.Now()
	for {
		r.mu.Lock()
		n := len(r.holding)
		if n == 0 {
			r.mu.Unlock()
			return
		}
		tail := r.holding[n-1]
		if now.Before(tail.bundle.Timetag) {
			r.mu.Unlock()
			return
		}
		r.holding = r.holding[:n-1]
		r.mu.Unlock()

		r.fire(tail.bundle, tail.from)
	}
}
