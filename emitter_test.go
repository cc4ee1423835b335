package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPatternEmitterLiteral(t *testing.T) {
	e := NewPatternEmitter()

	called := false
	e.On("greet", func(Args) (interface{}, error) {
		called = true
		return nil, nil
	}, 0)

	status, err := e.Tasks("greet").Run(Args{})
	assert.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.True(t, called)
}

func TestPatternEmitterRegex(t *testing.T) {
	e := NewPatternEmitter()

	var got []string
	e.On(Pattern{Body: `^user/(\d+)$`, Flags: ""}, func(args Args) (interface{}, error) {
		got = args.Request.Data["args"].([]string)
		return nil, nil
	}, 0)

	req := NewRequest(nil, nil, nil)
	_, err := e.Tasks("user/42").Run(Args{Request: req})
	assert.NoError(t, err)
	assert.Equal(t, []string{"42"}, got)
}

func TestPatternEmitterUnbind(t *testing.T) {
	e := NewPatternEmitter()

	id := e.On("greet", func(Args) (interface{}, error) {
		return nil, nil
	}, 0)

	removed := e.Unbind(UnbindFilter{Pattern: "greet", ID: id})
	assert.Equal(t, 1, removed)

	status, _ := e.Tasks("greet").Run(Args{})
	assert.Equal(t, StatusNotFound, status)
}

func TestPatternEmitterRegistrationOrder(t *testing.T) {
	e := NewPatternEmitter()

	var order []string
	e.On(Pattern{Body: "^a$"}, func(Args) (interface{}, error) {
		order = append(order, "a")
		return nil, nil
	}, 0)
	e.On(Pattern{Body: "^.$"}, func(Args) (interface{}, error) {
		order = append(order, "dot")
		return nil, nil
	}, 0)

	_, err := e.Tasks("a").Run(Args{})
	assert.NoError(t, err)
	assert.Equal(t, []string{"a", "dot"}, order)
}

func TestPatternGlobalFlagRoundTrip(t *testing.T) {
	p := Pattern{Body: `\d+`, Flags: "g"}
	assert.True(t, p.Global())
	assert.Equal(t, "/\\d+/g", p.String())

	parsed, ok := ParsePattern("/\\d+/g")
	assert.True(t, ok)
	assert.Equal(t, p, parsed)
}
