// Package sender implements the outbound packet heap and its periodic
// scheduler (spec §4.5): a multi-priority FIFO queue that opportunistically
// packs eligible packets into OSC bundles under a byte budget before
// handing them to a transport.Link.
package sender

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/vexis-audio/oscrt/internal/pubsub"
	"github.com/vexis-audio/oscrt/osc"
	"github.com/vexis-audio/oscrt/transport"
)

// bundleHeaderLength is the fixed byte length of a bundle header ("#bundle\0"
// plus an 8-byte time tag) that a bundling cycle's scratch buffer starts
// preloaded against (spec §4.5).
const bundleHeaderLength = 16

// HeapTaskErrorEvent fires when process_layer panics; the offending layer
// is cleared and the scheduler continues (spec §7 HANDLER_PANIC/SOCKET).
type HeapTaskErrorEvent struct {
	Layer int
	Err   error
}

// Settings configures a Sender. ShouldDrop/ShouldSend/TimetagSource are
// pluggable predicates; New fills nil ones with never-drop, always-send and
// immediate-timetag defaults, and raises NumLayers to at least 1 and
// CycleWait to at least 1ms. MaxPacketSize is not defaulted.
type Settings struct {
	NumLayers           int
	MaxPacketSize       int
	CycleWait           time.Duration
	BundleBeforeSending bool
	ShouldDrop          func(data []byte) bool
	ShouldSend          func(data []byte) bool
	TimetagSource       func() osc.Timetag
}

// DefaultSettings mirrors a typical OSC sender: 4 priority layers, a
// 1500-byte Ethernet-friendly packet cap, a 10ms cycle, bundling on.
func DefaultSettings() Settings {
	return Settings{
		NumLayers:           4,
		MaxPacketSize:       1500,
		CycleWait:           10 * time.Millisecond,
		BundleBeforeSending: true,
		ShouldDrop:          func([]byte) bool { return false },
		ShouldSend:          func([]byte) bool { return true },
		TimetagSource:       func() osc.Timetag { return osc.Immediate },
	}
}

// layer is one priority level's FIFO state. Packets enqueued via EnqueueTail
// drain first, in FIFO order; packets enqueued via EnqueueHead drain after,
// also in FIFO order among themselves (spec §4.5's "drained last").
type layer struct {
	tail [][]byte
	head [][]byte
}

// Sender is the outbound packet heap plus its scheduler task.
type Sender struct {
	Settings Settings

	HeapTaskError pubsub.Topic[HeapTaskErrorEvent]

	mu     sync.Mutex
	layers []layer
	active bool
	link   *transport.Link

	cancel context.CancelFunc
	wg     sync.WaitGroup

	log *logrus.Entry
}

// New returns a disconnected Sender configured with settings.
func New(settings Settings) *Sender {
	if settings.CycleWait < time.Millisecond {
		settings.CycleWait = time.Millisecond
	}
	if settings.NumLayers < 1 {
		settings.NumLayers = 1
	}
	if settings.ShouldDrop == nil {
		settings.ShouldDrop = func([]byte) bool { return false }
	}
	if settings.ShouldSend == nil {
		settings.ShouldSend = func([]byte) bool { return true }
	}
	if settings.TimetagSource == nil {
		settings.TimetagSource = func() osc.Timetag { return osc.Immediate }
	}
	return &Sender{Settings: settings, log: logrus.WithField("component", "sender.Sender")}
}

// Connect allocates a fresh heap, activates the Sender, and starts its
// scheduler task against link.
func (s *Sender) Connect(link *transport.Link) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers = make([]layer, s.Settings.NumLayers)
	s.link = link
	s.active = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.schedulerLoop(ctx)
}

// Disconnect marks the Sender inactive and joins the scheduler task before
// releasing the link.
func (s *Sender) Disconnect() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	s.mu.Lock()
	s.link = nil
	s.cancel = nil
	s.mu.Unlock()
}

func (s *Sender) clampPriority(p int) int {
	if p < 0 {
		return 0
	}
	if p >= len(s.layers) {
		return len(s.layers) - 1
	}
	return p
}

// EnqueueHead inserts data at the front of priority's layer; head-enqueued
// packets are drained after tail-enqueued ones in the same cycle.
func (s *Sender) EnqueueHead(data []byte, priority int) error {
	return s.enqueue(data, priority, true)
}

// EnqueueTail appends data to the tail of priority's layer; tail-enqueued
// packets drain first, in FIFO order.
func (s *Sender) EnqueueTail(data []byte, priority int) error {
	return s.enqueue(data, priority, false)
}

func (s *Sender) enqueue(data []byte, priority int, head bool) error {
	if len(data) > s.Settings.MaxPacketSize {
		return errors.Wrapf(ErrOversize, "packet is %d bytes, max is %d", len(data), s.Settings.MaxPacketSize)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return ErrInactive
	}
	p := s.clampPriority(priority)
	if head {
		s.layers[p].head = append(s.layers[p].head, data)
	} else {
		s.layers[p].tail = append(s.layers[p].tail, data)
	}
	return nil
}

// SendImmediately bypasses the heap. If the link is in TO_TARGET mode, it
// hands data directly to the link; otherwise it is dropped silently.
func (s *Sender) SendImmediately(data []byte) {
	s.mu.Lock()
	link := s.link
	s.mu.Unlock()
	if link == nil || link.State() != transport.ToTarget {
		return
	}
	_ = link.SendToTarget(data)
}

func (s *Sender) schedulerLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.Settings.CycleWait)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle()
		}
	}
}

func (s *Sender) runCycle() {
	s.mu.Lock()
	link := s.link
	s.mu.Unlock()
	if link == nil || link.State() != transport.ToTarget {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	highest := -1
	for i := range s.layers {
		if len(s.layers[i].tail) > 0 || len(s.layers[i].head) > 0 {
			highest = i
		}
	}
	if highest < 0 {
		return
	}

	for i := 0; i <= highest; i++ {
		s.processLayerSafely(i, link)
	}
}

func (s *Sender) processLayerSafely(idx int, link *transport.Link) {
	defer func() {
		if r := recover(); r != nil {
			s.layers[idx] = layer{}
			s.HeapTaskError.Publish(HeapTaskErrorEvent{
				Layer: idx,
				Err:   errors.Errorf("sender: process_layer panicked: %v", r),
			}, nil)
		}
	}()
	s.processLayer(idx, link)
}

// processLayer walks layer idx's packets (tail-enqueued first, then
// head-enqueued), consulting ShouldDrop/ShouldSend for each. Under bundling,
// eligible packets are packed into a single scratch buffer until the first
// one that would overflow MaxPacketSize, at which point the walk stops
// entirely for this layer this cycle (spec §4.5).
func (s *Sender) processLayer(idx int, link *transport.Link) {
	l := &s.layers[idx]
	combined := append(append([][]byte{}, l.tail...), l.head...)
	tailLen := len(l.tail)

	var keptTail, keptHead [][]byte
	scratch := make([]byte, 0, s.Settings.MaxPacketSize)
	counter := bundleHeaderLength
	stopped := false

	for i, pkt := range combined {
		isTail := i < tailLen
		if stopped {
			if isTail {
				keptTail = append(keptTail, pkt)
			} else {
				keptHead = append(keptHead, pkt)
			}
			continue
		}

		if s.Settings.ShouldDrop(pkt) {
			continue // removed, counted as handled
		}
		if !s.Settings.ShouldSend(pkt) {
			if isTail {
				keptTail = append(keptTail, pkt)
			} else {
				keptHead = append(keptHead, pkt)
			}
			continue
		}

		if !s.Settings.BundleBeforeSending {
			_ = link.SendToTarget(pkt)
			continue
		}

		if counter+len(pkt)+4 <= s.Settings.MaxPacketSize {
			scratch = osc.WriteInt32(int32(len(pkt)), scratch)
			scratch = append(scratch, pkt...)
			counter += 4 + len(pkt)
			continue
		}

		// Would overflow: stop considering the rest of this layer.
		stopped = true
		if isTail {
			keptTail = append(keptTail, pkt)
		} else {
			keptHead = append(keptHead, pkt)
		}
	}

	l.tail = keptTail
	l.head = keptHead

	if s.Settings.BundleBeforeSending && counter > bundleHeaderLength {
		out := make([]byte, 0, counter)
		out = append(out, "#bundle\x00"...)
		tt := s.Settings.TimetagSource().ToBytes()
		out = append(out, tt[:]...)
		out = append(out, scratch...)
		_ = link.SendToTarget(out)
	}
}
