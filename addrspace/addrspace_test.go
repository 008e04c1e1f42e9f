package addrspace

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexis-audio/oscrt/dialect"
	"github.com/vexis-audio/oscrt/oschandler"
	"github.com/vexis-audio/oscrt/osc"
	"github.com/vexis-audio/oscrt/receiver"
	"github.com/vexis-audio/oscrt/transport"
)

func countingHandler() (oschandler.Handler, func() int) {
	var mu sync.Mutex
	var n int
	return oschandler.HandlerFunc(func(string, []osc.Argument) {
		mu.Lock()
		n++
		mu.Unlock()
	}), func() int {
		mu.Lock()
		defer mu.Unlock()
		return n
	}
}

func TestAddressSpaceDispatchExactAddress(t *testing.T) {
	a := New()
	h, count := countingHandler()
	_, err := a.AddMethod("/a/b/c", h)
	require.NoError(t, err)

	a.DispatchMessage(osc.NewMessage("/a/b/c"))
	assert.Equal(t, 1, count())
}

func TestAddressSpaceDispatchWildcardMatches(t *testing.T) {
	a := New()
	h, count := countingHandler()
	_, err := a.AddMethod("/a/b/c", h)
	require.NoError(t, err)

	a.DispatchMessage(osc.NewMessage("/a/b/*"))
	assert.Equal(t, 1, count())
}

func TestAddressSpaceDispatchDoesNotInvokeOnContainerOrSibling(t *testing.T) {
	a := New()
	h, count := countingHandler()
	_, err := a.AddMethod("/a/b/c", h)
	require.NoError(t, err)

	a.DispatchMessage(osc.NewMessage("/a/b"))
	a.DispatchMessage(osc.NewMessage("/a/b/d"))
	assert.Equal(t, 0, count())
}

func TestTreeUniquenessAddContainerTwice(t *testing.T) {
	a := New()
	c1, err := a.AddContainer("/a")
	require.NoError(t, err)
	c2, err := a.AddContainer("/a")
	require.NoError(t, err)
	assert.Same(t, c1, c2)
	assert.Len(t, a.Root().Children(), 1)
}

func TestAddMethodAppendsHandlerAtExistingMethod(t *testing.T) {
	a := New()
	h1, count1 := countingHandler()
	h2, count2 := countingHandler()

	m1, err := a.AddMethod("/a/b", h1)
	require.NoError(t, err)
	m2, err := a.AddMethod("/a/b", h2)
	require.NoError(t, err)
	assert.Same(t, m1, m2)
	assert.Equal(t, 2, m1.HandlerCount())

	a.DispatchMessage(osc.NewMessage("/a/b"))
	assert.Equal(t, 1, count1())
	assert.Equal(t, 1, count2())
}

func TestAddMethodConflictsWithExistingContainer(t *testing.T) {
	a := New()
	_, err := a.AddContainer("/a/b")
	require.NoError(t, err)

	h, _ := countingHandler()
	_, err = a.AddMethod("/a/b", h)
	assert.Error(t, err)
}

func TestAddContainerConflictsWithExistingMethod(t *testing.T) {
	a := New()
	h, _ := countingHandler()
	_, err := a.AddMethod("/a/b", h)
	require.NoError(t, err)

	_, err = a.AddContainer("/a/b")
	assert.Error(t, err)
}

func TestAddMethodRejectsReservedSymbols(t *testing.T) {
	a := New()
	h, _ := countingHandler()
	_, err := a.AddMethod("/a*/b", h)
	assert.Error(t, err)
}

func TestGetElementByAddressAndByName(t *testing.T) {
	a := New()
	h, _ := countingHandler()
	m, err := a.AddMethod("/synth/1/freq", h)
	require.NoError(t, err)

	got, err := a.GetElementByAddress("/synth/1/freq")
	require.NoError(t, err)
	assert.Same(t, m, got)

	got, err = a.GetElementByAddress("/synth/*/freq")
	require.NoError(t, err)
	assert.Same(t, m, got)

	got, err = a.GetElementByName("freq")
	require.NoError(t, err)
	assert.Same(t, m, got)
}

func TestGetElementsByAddressMultipleMatches(t *testing.T) {
	a := New()
	h, _ := countingHandler()
	m1, err := a.AddMethod("/synth/1/freq", h)
	require.NoError(t, err)
	m2, err := a.AddMethod("/synth/2/freq", h)
	require.NoError(t, err)

	got, err := a.GetElementsByAddress("/synth/*/freq")
	require.NoError(t, err)
	assert.ElementsMatch(t, []Element{m1, m2}, got)
}

func TestRemoveElementByAddress(t *testing.T) {
	a := New()
	h, count := countingHandler()
	_, err := a.AddMethod("/a/b", h)
	require.NoError(t, err)

	require.NoError(t, a.RemoveElement("/a/b"))
	a.DispatchMessage(osc.NewMessage("/a/b"))
	assert.Equal(t, 0, count())

	got, err := a.GetElementByAddress("/a/b")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRemoveRootFails(t *testing.T) {
	a := New()
	assert.Error(t, a.RemoveElement(a.Root()))
}

func TestConnectDispatchesBundledMessageExactlyOnce(t *testing.T) {
	settings := transport.Settings{ReceiveBufferKiB: 8, PollInterval: 5 * time.Millisecond}
	server := transport.NewLink(settings)
	require.NoError(t, server.OpenToAny(0))
	defer server.Close()

	client := transport.NewLink(settings)
	require.NoError(t, client.OpenToTarget(server.LocalAddr().String(), 0))
	defer client.Close()

	conv := dialect.Full10()
	r := receiver.New(conv)
	r.CycleWait = 5 * time.Millisecond
	r.Connect(server)
	defer r.Disconnect()

	a := New()
	h, count := countingHandler()
	_, err := a.AddMethod("/bundled", h)
	require.NoError(t, err)
	a.Connect(r)
	defer a.Disconnect(r)

	b := osc.NewBundle(osc.Immediate)
	b.Append(osc.NewMessage("/bundled"))
	data, err := conv.EncodeBundle(b)
	require.NoError(t, err)
	require.NoError(t, client.SendToTarget(data))

	require.Eventually(t, func() bool { return count() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, count(), "a message delivered inside a bundle must dispatch exactly once")
}

func TestDispatchIsolatesPanickingHandler(t *testing.T) {
	a := New()
	_, err := a.AddMethod("/a", oschandler.HandlerFunc(func(string, []osc.Argument) {
		panic("boom")
	}))
	require.NoError(t, err)

	h2, count := countingHandler()
	_, err = a.AddMethod("/a", h2)
	require.NoError(t, err)

	a.DispatchMessage(osc.NewMessage("/a"))
	assert.Equal(t, 1, count())
}
