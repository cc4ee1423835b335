package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestLoadIsOneShot(t *testing.T) {
	calls := 0
	req := NewRequest(nil, nil, nil)
	req.Loader = func(req *Request) (Loaded, error) {
		calls++
		return Loaded{Body: "hello", Post: map[string]interface{}{"k": "v"}}, nil
	}

	assert.NoError(t, req.Load())
	assert.NoError(t, req.Load())

	assert.Equal(t, 1, calls)
	assert.Equal(t, "hello", req.Body)
	assert.Equal(t, "v", req.Post["k"])
	assert.Equal(t, "v", req.Data["k"])
}

func TestRequestLoadPropagatesError(t *testing.T) {
	req := NewRequest(nil, nil, nil)
	req.Loader = func(req *Request) (Loaded, error) {
		return Loaded{}, errors.New("read failed")
	}

	assert.Error(t, req.Load())
	assert.True(t, req.Loaded)
}

func TestRequestLoadMergeDoesNotOverwriteData(t *testing.T) {
	req := NewRequest(nil, nil, map[string]interface{}{"k": "existing"})
	req.Loader = func(req *Request) (Loaded, error) {
		return Loaded{Post: map[string]interface{}{"k": "fromBody"}}, nil
	}

	assert.NoError(t, req.Load())
	assert.Equal(t, "existing", req.Data["k"])
	assert.Equal(t, "fromBody", req.Post["k"])
}

func TestRequestType(t *testing.T) {
	req := NewRequest(nil, nil, nil)

	req.Body = nil
	assert.Equal(t, "null", req.Type())

	req.Body = []byte("x")
	assert.Equal(t, "buffer", req.Type())

	req.Body = "x"
	assert.Equal(t, "string", req.Type())

	req.Body = map[string]interface{}{}
	assert.Equal(t, "object", req.Type())

	req.Body = []interface{}{}
	assert.Equal(t, "array", req.Type())
}

func TestRequestFromRoute(t *testing.T) {
	req := NewRequest(nil, nil, nil)
	req.URL.Path = "/users/42"

	proj, ok := req.FromRoute("/users/:id")
	assert.True(t, ok)
	assert.Equal(t, "42", proj.Params["id"])
}
