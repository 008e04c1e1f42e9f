package receiver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexis-audio/oscrt/clock"
	"github.com/vexis-audio/oscrt/dialect"
	"github.com/vexis-audio/oscrt/osc"
	"github.com/vexis-audio/oscrt/transport"
)

func connectedPair(t *testing.T) (*transport.Link, *transport.Link) {
	t.Helper()
	settings := transport.Settings{ReceiveBufferKiB: 8, PollInterval: 5 * time.Millisecond}
	server := transport.NewLink(settings)
	require.NoError(t, server.OpenToAny(0))
	t.Cleanup(func() { server.Close() })

	client := transport.NewLink(settings)
	require.NoError(t, client.OpenToTarget(server.LocalAddr().String(), 0))
	t.Cleanup(func() { client.Close() })

	return server, client
}

func TestStandaloneMessageDispatchedImmediately(t *testing.T) {
	server, client := connectedPair(t)
	conv := dialect.Full10()

	r := New(conv)
	r.CycleWait = 5 * time.Millisecond
	r.Connect(server)
	defer r.Disconnect()

	received := make(chan *osc.Message, 1)
	r.MessageReceived.Subscribe(func(e MessageReceivedEvent) { received <- e.Message })

	msg := osc.NewMessage("/ping")
	msg.Append(osc.Int32(1))
	data, err := conv.EncodeMessage(msg)
	require.NoError(t, err)
	require.NoError(t, client.SendToTarget(data))

	select {
	case m := <-received:
		assert.Equal(t, "/ping", m.Address)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestImmediateTimetagBundleDispatchesSynchronously(t *testing.T) {
	server, client := connectedPair(t)
	conv := dialect.Full10()

	r := New(conv)
	r.CycleWait = 20 * time.Millisecond
	r.Connect(server)
	defer r.Disconnect()

	received := make(chan struct{}, 1)
	r.BundleReceived.Subscribe(func(BundleReceivedEvent) { received <- struct{}{} })

	msg := osc.NewMessage("/now")
	b := osc.NewBundle(osc.Immediate)
	b.Append(msg)
	data, err := conv.EncodeBundle(b)
	require.NoError(t, err)
	require.NoError(t, client.SendToTarget(data))

	select {
	case <-received:
	case <-time.After(50 * time.Millisecond):
		t.Fatal("immediate bundle was not dispatched synchronously")
	}
}

func TestFutureTimetagBundleDelaysUntilDue(t *testing.T) {
	server, client := connectedPair(t)
	conv := dialect.Full10()

	r := New(conv)
	r.CycleWait = 20 * time.Millisecond
	r.Connect(server)
	defer r.Disconnect()

	received := make(chan struct{}, 1)
	r.BundleReceived.Subscribe(func(BundleReceivedEvent) { received <- struct{}{} })

	msg := osc.NewMessage("/later")
	due := clock.AfterSeconds(0.2)
	b := osc.NewBundle(due)
	b.Append(msg)
	data, err := conv.EncodeBundle(b)
	require.NoError(t, err)
	require.NoError(t, client.SendToTarget(data))

	select {
	case <-received:
		t.Fatal("bundle dispatched before its timetag elapsed")
	case <-time.After(100 * time.Millisecond):
	}

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delayed bundle dispatch")
	}
}

func TestIgnoreTimetagsDispatchesImmediatelyRegardlessOfSchedule(t *testing.T) {
	server, client := connectedPair(t)
	conv := dialect.Full10()

	r := New(conv)
	r.IgnoreTimetags = true
	r.CycleWait = 20 * time.Millisecond
	r.Connect(server)
	defer r.Disconnect()

	received := make(chan struct{}, 1)
	r.BundleReceived.Subscribe(func(BundleReceivedEvent) { received <- struct{}{} })

	msg := osc.NewMessage("/soon-ish")
	farFuture := clock.AfterSeconds(60)
	b := osc.NewBundle(farFuture)
	b.Append(msg)
	data, err := conv.EncodeBundle(b)
	require.NoError(t, err)
	require.NoError(t, client.SendToTarget(data))

	select {
	case <-received:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("ignore_timetags receiver should dispatch without waiting")
	}
}

func TestDisconnectStopsDelayScheduler(t *testing.T) {
	server, client := connectedPair(t)
	_ = client
	conv := dialect.Full10()

	r := New(conv)
	r.Connect(server)
	r.Disconnect()
	r.Disconnect() // idempotent
}
