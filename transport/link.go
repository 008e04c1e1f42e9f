// Package transport implements the UDP Link abstraction (spec §4.4): a
// socket endpoint with a CLOSED/TO_TARGET/TO_ANY mode state machine and a
// background receive loop that fans out events to subscribers, grounded in
// the teacher's Server.Serve exponential-backoff retry loop
// (kward/go-osc/osc/server.go) generalized past a single fixed dispatcher.
package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/vexis-audio/oscrt/internal/pubsub"
)

// State is one of the Link's three operating modes.
type State int

const (
	Closed State = iota
	ToTarget
	ToAny
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case ToTarget:
		return "TO_TARGET"
	case ToAny:
		return "TO_ANY"
	default:
		return "UNKNOWN"
	}
}

// PacketReceivedEvent carries one classified, unparsed datagram.
type PacketReceivedEvent struct {
	Data []byte
	From net.Addr
}

// PacketSentEvent fires after a successful send, if Settings.EmitPacketSent.
type PacketSentEvent struct {
	Data []byte
	To   net.Addr
}

// BadDataEvent fires for a datagram whose first byte is neither '#' nor '/'.
type BadDataEvent struct {
	Data []byte
	From net.Addr
}

// ReceiveErrorEvent fires for socket errors during the receive loop and for
// panics raised by event subscribers; the loop itself always continues.
type ReceiveErrorEvent struct {
	Err error
}

// Settings are runtime-adjustable and take effect on the next Open* call.
type Settings struct {
	// ReceiveBufferKiB sizes the per-datagram read buffer, in kibibytes.
	ReceiveBufferKiB int
	// PollInterval bounds how long a receive-loop iteration blocks waiting
	// for a datagram before re-checking for cancellation.
	PollInterval time.Duration
	// EmitPacketSent toggles the PacketSent event on successful sends.
	EmitPacketSent bool
}

// DefaultSettings mirrors what a typical OSC application wants: a generous
// 64 KiB datagram buffer and a responsive cancellation check.
func DefaultSettings() Settings {
	return Settings{
		ReceiveBufferKiB: 64,
		PollInterval:     50 * time.Millisecond,
		EmitPacketSent:   false,
	}
}

// Link is a UDP endpoint in one of three states: closed, connected to a
// single target peer, or open to receive from / send to any peer.
type Link struct {
	Settings Settings

	PacketReceived pubsub.Topic[PacketReceivedEvent]
	PacketSent     pubsub.Topic[PacketSentEvent]
	BadData        pubsub.Topic[BadDataEvent]
	ReceiveError   pubsub.Topic[ReceiveErrorEvent]

	mu     sync.Mutex
	state  State
	conn   net.PacketConn
	target net.Addr
	cancel context.CancelFunc
	wg     sync.WaitGroup

	log *logrus.Entry
}

// NewLink returns a closed Link configured with settings.
func NewLink(settings Settings) *Link {
	return &Link{
		Settings: settings,
		state:    Closed,
		log:      logrus.WithField("component", "transport.Link"),
	}
}

// State reports the link's current mode.
func (l *Link) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// LocalAddr reports the bound socket's local address, or nil if the link is
// CLOSED.
func (l *Link) LocalAddr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// OpenToTarget binds a UDP socket (to boundPort, OS-chosen if zero) and
// records endpoint as the sole peer, transitioning CLOSED -> TO_TARGET.
func (l *Link) OpenToTarget(endpoint string, boundPort int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Closed {
		return errors.Wrapf(ErrWrongMode, "open_to_target: link is %s", l.state)
	}
	target, err := net.ResolveUDPAddr("udp", endpoint)
	if err != nil {
		return errors.Wrap(ErrSocket, err.Error())
	}
	conn, err := net.ListenPacket("udp", localAddr(boundPort))
	if err != nil {
		return errors.Wrap(ErrSocket, err.Error())
	}
	l.conn = conn
	l.target = target
	l.state = ToTarget
	l.startReceiveLoop()
	return nil
}

// OpenToAny binds to loopback + boundPort (OS-chosen if zero) with no fixed
// peer, transitioning CLOSED -> TO_ANY.
func (l *Link) OpenToAny(boundPort int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Closed {
		return errors.Wrapf(ErrWrongMode, "open_to_any: link is %s", l.state)
	}
	conn, err := net.ListenPacket("udp", localAddr(boundPort))
	if err != nil {
		return errors.Wrap(ErrSocket, err.Error())
	}
	l.conn = conn
	l.target = nil
	l.state = ToAny
	l.startReceiveLoop()
	return nil
}

func localAddr(boundPort int) string {
	return fmt.Sprintf("127.0.0.1:%d", boundPort)
}

// Close signals the receive loop to stop, joins it, and closes the socket,
// returning to CLOSED. A second Close is a no-op.
func (l *Link) Close() error {
	l.mu.Lock()
	if l.state == Closed {
		l.mu.Unlock()
		return nil
	}
	cancel := l.cancel
	conn := l.conn
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.SetReadDeadline(time.Now())
	}
	l.wg.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	l.state = Closed
	l.conn = nil
	l.target = nil
	l.cancel = nil
	return nil
}

// SendToTarget writes data to the single configured peer. Requires TO_TARGET.
func (l *Link) SendToTarget(data []byte) error {
	l.mu.Lock()
	if l.state != ToTarget {
		l.mu.Unlock()
		return errors.Wrapf(ErrWrongMode, "send_to_target: link is %s", l.state)
	}
	conn, target := l.conn, l.target
	l.mu.Unlock()

	return l.send(conn, data, target)
}

// SendToEndpoint writes data to an explicit peer. Requires TO_ANY.
func (l *Link) SendToEndpoint(data []byte, endpoint net.Addr) error {
	l.mu.Lock()
	if l.state != ToAny {
		l.mu.Unlock()
		return errors.Wrapf(ErrWrongMode, "send_to_endpoint: link is %s", l.state)
	}
	conn := l.conn
	l.mu.Unlock()

	return l.send(conn, data, endpoint)
}

func (l *Link) send(conn net.PacketConn, data []byte, to net.Addr) error {
	if _, err := conn.WriteTo(data, to); err != nil {
		return errors.Wrap(ErrSocket, err.Error())
	}
	if l.Settings.EmitPacketSent {
		l.PacketSent.Publish(PacketSentEvent{Data: data, To: to}, l.reportPanic)
	}
	return nil
}

func (l *Link) reportPanic(r any) {
	l.ReceiveError.Publish(ReceiveErrorEvent{Err: errors.Errorf("transport: subscriber panicked: %v", r)}, nil)
}

func (l *Link) startReceiveLoop() {
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	conn := l.conn

	l.wg.Add(1)
	go l.receiveLoop(ctx, conn)
}

// receiveLoop polls the socket, classifies each datagram, and fans it out.
// Socket errors raise ReceiveError and the loop continues; only explicit
// cancellation stops it (spec §4.4, §7 SOCKET).
func (l *Link) receiveLoop(ctx context.Context, conn net.PacketConn) {
	defer l.wg.Done()

	bufSize := l.Settings.ReceiveBufferKiB * 1024
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	buf := make([]byte, bufSize)

	poll := l.Settings.PollInterval
	if poll <= 0 {
		poll = 50 * time.Millisecond
	}

	var backoff time.Duration
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(poll))
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				backoff = 0
				continue
			}
			l.ReceiveError.Publish(ReceiveErrorEvent{Err: errors.Wrap(ErrSocket, err.Error())}, l.reportPanic)
			backoff = nextBackoff(backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		data := append([]byte(nil), buf[:n]...)
		if n == 0 {
			continue
		}
		switch data[0] {
		case '#', '/':
			l.PacketReceived.Publish(PacketReceivedEvent{Data: data, From: from}, l.reportPanic)
		default:
			l.BadData.Publish(BadDataEvent{Data: data, From: from}, l.reportPanic)
		}
	}
}

func nextBackoff(prev time.Duration) time.Duration {
	const (
		initial = 5 * time.Millisecond
		max     = 1 * time.Second
	)
	if prev == 0 {
		return initial
	}
	prev *= 2
	if prev > max {
		return max
	}
	return prev
}
