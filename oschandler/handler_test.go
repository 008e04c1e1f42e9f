package oschandler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vexis-audio/oscrt/osc"
)

func TestHandlerFuncInvoke(t *testing.T) {
	var gotLeaf string
	var gotArgs []osc.Argument
	h := HandlerFunc(func(leaf string, args []osc.Argument) {
		gotLeaf = leaf
		gotArgs = args
	})

	Invoke(h, "foo", []osc.Argument{osc.Int32(42)}, nil)

	assert.Equal(t, "foo", gotLeaf)
	assert.Equal(t, []osc.Argument{osc.Int32(42)}, gotArgs)
}

func TestInvokeIsolatesPanic(t *testing.T) {
	h := HandlerFunc(func(string, []osc.Argument) {
		panic("boom")
	})

	var gotErr error
	assert.NotPanics(t, func() {
		Invoke(h, "foo", nil, func(err error) { gotErr = err })
	})
	assert.Error(t, gotErr)
	assert.Contains(t, gotErr.Error(), "boom")
}

func TestInvokeNilOnPanicDoesNotPanic(t *testing.T) {
	h := HandlerFunc(func(string, []osc.Argument) {
		panic("boom")
	})

	assert.NotPanics(t, func() {
		Invoke(h, "foo", nil, nil)
	})
}
