package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteLifecycleHappyPath(t *testing.T) {
	s := NewServer(nil)
	s.Get("/ping", func(args Args) (interface{}, error) {
		args.Response.SetBody("pong", "text/plain")
		return nil, nil
	}, 0)

	res := s.RouteTo(MethodGet, "/ping", nil, nil)
	assert.Equal(t, int(StatusOK), res.Code)
	assert.Equal(t, "pong", res.Results)
}

func TestRouteLifecycleNotFound(t *testing.T) {
	s := NewServer(nil)
	res := s.RouteTo(MethodGet, "/missing", nil, nil)
	assert.Equal(t, int(StatusNotFound), res.Code)
	assert.NotEmpty(t, res.Error)
}

func TestRouteLifecycleHandlerError(t *testing.T) {
	s := NewServer(nil)
	s.Get("/boom", func(Args) (interface{}, error) {
		return nil, errors.New("kaboom")
	}, 0)

	res := s.RouteTo(MethodGet, "/boom", nil, nil)
	assert.Equal(t, int(StatusError), res.Code)
	assert.Contains(t, res.Error, "kaboom")
}

func TestRouteLifecyclePanicRecovered(t *testing.T) {
	s := NewServer(nil)
	s.Get("/panic", func(Args) (interface{}, error) {
		panic("unexpected")
	}, 0)

	res := s.RouteTo(MethodGet, "/panic", nil, nil)
	assert.Equal(t, int(StatusError), res.Code)
	assert.NotEmpty(t, res.Stack)
}

func TestRouteLifecycleErrorHandlerOverridesBody(t *testing.T) {
	s := NewServer(nil)
	s.Get("/boom", func(Args) (interface{}, error) {
		return nil, errors.New("kaboom")
	}, 0)
	s.On("error", func(args Args) (interface{}, error) {
		args.Response.SetBody("custom error page", "text/html")
		return nil, nil
	}, 0)

	res := s.RouteTo(MethodGet, "/boom", nil, nil)
	assert.Equal(t, "custom error page", res.Results)
}

func TestRouteLifecycleAbortStopsProcessing(t *testing.T) {
	s := NewServer(nil)
	ranSecond := false

	s.Get("/guarded", func(Args) (interface{}, error) {
		return false, nil
	}, 10)
	s.Get("/guarded", func(Args) (interface{}, error) {
		ranSecond = true
		return nil, nil
	}, 1)

	s.RouteTo(MethodGet, "/guarded", nil, nil)
	assert.False(t, ranSecond)
}
