package sender

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexis-audio/oscrt/transport"
)

func connectedPair(t *testing.T) (*transport.Link, *transport.Link) {
	t.Helper()
	serverSettings := transport.Settings{ReceiveBufferKiB: 8, PollInterval: 5 * time.Millisecond}
	server := transport.NewLink(serverSettings)
	require.NoError(t, server.OpenToAny(0))
	t.Cleanup(func() { server.Close() })

	client := transport.NewLink(serverSettings)
	require.NoError(t, client.OpenToTarget(server.LocalAddr().String(), 0))
	t.Cleanup(func() { client.Close() })

	return server, client
}

func TestEnqueueTailFIFOOrderNonBundled(t *testing.T) {
	server, client := connectedPair(t)

	var received [][]byte
	done := make(chan struct{})
	server.PacketReceived.Subscribe(func(e transport.PacketReceivedEvent) {
		received = append(received, e.Data)
		if len(received) == 3 {
			close(done)
		}
	})

	s := New(Settings{NumLayers: 1, MaxPacketSize: 512, CycleWait: 5 * time.Millisecond, BundleBeforeSending: false})
	s.Connect(client)
	defer s.Disconnect()

	require.NoError(t, s.EnqueueTail([]byte("/one\x00\x00\x00\x00"), 0))
	require.NoError(t, s.EnqueueTail([]byte("/two\x00\x00\x00\x00"), 0))
	require.NoError(t, s.EnqueueTail([]byte("/three\x00\x00"), 0))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for 3 packets")
	}

	require.Len(t, received, 3)
	assert.Equal(t, []byte("/one\x00\x00\x00\x00"), received[0])
	assert.Equal(t, []byte("/two\x00\x00\x00\x00"), received[1])
	assert.Equal(t, []byte("/three\x00\x00"), received[2])
}

func TestPriorityStrictOrdering(t *testing.T) {
	server, client := connectedPair(t)

	var received [][]byte
	done := make(chan struct{})
	server.PacketReceived.Subscribe(func(e transport.PacketReceivedEvent) {
		received = append(received, e.Data)
		if len(received) == 2 {
			close(done)
		}
	})

	s := New(Settings{NumLayers: 2, MaxPacketSize: 512, CycleWait: 20 * time.Millisecond, BundleBeforeSending: false})
	s.Connect(client)
	defer s.Disconnect()

	require.NoError(t, s.EnqueueTail([]byte("/low\x00\x00\x00\x00"), 1))
	require.NoError(t, s.EnqueueTail([]byte("/high\x00\x00\x00"), 0))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for 2 packets")
	}
	require.Len(t, received, 2)
	assert.Equal(t, []byte("/high\x00\x00\x00"), received[0])
	assert.Equal(t, []byte("/low\x00\x00\x00\x00"), received[1])
}

func TestBundlingPacksUnderSizeCap(t *testing.T) {
	server, client := connectedPair(t)

	var bundles [][]byte
	done := make(chan struct{})
	server.PacketReceived.Subscribe(func(e transport.PacketReceivedEvent) {
		bundles = append(bundles, e.Data)
		if len(bundles) >= 5 {
			close(done)
		}
	})

	s := New(Settings{NumLayers: 1, MaxPacketSize: 508, CycleWait: 5 * time.Millisecond, BundleBeforeSending: true})
	s.Connect(client)
	defer s.Disconnect()

	pkt := make([]byte, 100)
	for i := 0; i < 20; i++ {
		require.NoError(t, s.EnqueueTail(append([]byte(nil), pkt...), 0))
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for bundles")
	}

	for _, b := range bundles {
		assert.LessOrEqual(t, len(b), 508)
		assert.Equal(t, "#bundle\x00", string(b[:8]))
	}
}

func TestEnqueueOversizeFails(t *testing.T) {
	s := New(Settings{NumLayers: 1, MaxPacketSize: 8, CycleWait: time.Millisecond})
	server, client := connectedPair(t)
	_ = server
	s.Connect(client)
	defer s.Disconnect()

	err := s.EnqueueTail(make([]byte, 100), 0)
	assert.ErrorIs(t, err, ErrOversize)
}

func TestEnqueueWhileInactiveFails(t *testing.T) {
	s := New(DefaultSettings())
	err := s.EnqueueTail([]byte("/x\x00\x00"), 0)
	assert.ErrorIs(t, err, ErrInactive)
}
