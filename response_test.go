package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponseDispatchOnce(t *testing.T) {
	calls := 0
	res := NewResponse(func(res *Response) error {
		calls++
		return nil
	})

	assert.NoError(t, res.Dispatch())
	assert.NoError(t, res.Dispatch())
	assert.Equal(t, 1, calls)
	assert.True(t, res.Sent())
}

func TestResponseDeferRunsAfterDispatch(t *testing.T) {
	var order []string

	res := NewResponse(func(res *Response) error {
		order = append(order, "dispatch")
		return nil
	})
	res.Defer(func() { order = append(order, "deferred") })

	assert.NoError(t, res.Dispatch())
	assert.Equal(t, []string{"dispatch", "deferred"}, order)
}

func TestResponseDeferRunsInLIFOOrder(t *testing.T) {
	var order []string

	res := NewResponse(nil)
	res.Defer(func() { order = append(order, "first") })
	res.Defer(func() { order = append(order, "second") })
	res.Defer(func() { order = append(order, "third") })

	assert.NoError(t, res.Dispatch())
	assert.Equal(t, []string{"third", "second", "first"}, order)
}

func TestResponseSetJSON(t *testing.T) {
	res := NewResponse(nil)
	assert.NoError(t, res.SetJSON(map[string]interface{}{"a": 1}))
	assert.Equal(t, "application/json; charset=utf-8", res.Mimetype)
}

func TestResponseSetError(t *testing.T) {
	res := NewResponse(nil)
	res.SetError("bad input", map[string]string{"name": "required"})
	assert.Equal(t, 400, res.Code)
	assert.Equal(t, "bad input", res.Error)
}

func TestResponseSessionQueue(t *testing.T) {
	res := NewResponse(nil)
	res.SetSession("a", "1")
	res.RemoveSession("b")

	assert.Len(t, res.Session, 2)
	assert.Equal(t, "a", res.Session[0].Name)
	assert.True(t, res.Session[1].Remove)
}

func TestResponseClearSession(t *testing.T) {
	res := NewResponse(nil)
	res.ClearSession(map[string]string{"a": "1", "b": "2"})

	assert.Len(t, res.Session, 2)
	for _, change := range res.Session {
		assert.True(t, change.Remove)
	}
}
