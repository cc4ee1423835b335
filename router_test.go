package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouterLiteralRoute(t *testing.T) {
	r := NewRouter()

	called := false
	r.Get("/users", func(Args) (interface{}, error) {
		called = true
		return nil, nil
	}, 0)

	status, err := r.Tasks(EventFor(MethodGet, "/users")).Run(Args{})
	assert.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.True(t, called)
}

func TestRouterLiteralRouteKeyVerbatim(t *testing.T) {
	r := NewRouter()
	r.Get("/users", func(Args) (interface{}, error) { return nil, nil }, 0)

	route, ok := r.RouteFor("GET /users")
	assert.True(t, ok)
	assert.Equal(t, "/users", route.Path)
}

func TestRouterNamedParam(t *testing.T) {
	r := NewRouter()

	var id string
	r.Get("/users/:id", func(args Args) (interface{}, error) {
		id, _ = args.Request.Data["id"].(string)
		return nil, nil
	}, 0)

	req := NewRequest(nil, nil, nil)
	status, err := r.Tasks(EventFor(MethodGet, "/users/42")).Run(Args{Request: req})
	assert.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, "42", id)
}

func TestRouterDynamicRouteDoesNotMatchLiteralPath(t *testing.T) {
	r := NewRouter()
	r.Get("/users/:id", func(Args) (interface{}, error) { return nil, nil }, 0)

	status, err := r.Tasks("GET /users/:id").Run(Args{})
	assert.NoError(t, err)
	assert.Equal(t, StatusNotFound, status)
}

func TestRouterWildcardSplitsOnSlash(t *testing.T) {
	r := NewRouter()

	var args []string
	r.Get("/files/**", func(a Args) (interface{}, error) {
		args, _ = a.Request.Data["args"].([]string)
		return nil, nil
	}, 0)

	req := NewRequest(nil, nil, nil)
	_, err := r.Tasks(EventFor(MethodGet, "/files/a/b/c")).Run(Args{Request: req})
	assert.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, args)
}

func TestRouterAllMatchesAnyMethod(t *testing.T) {
	r := NewRouter()

	count := 0
	r.All("/health", func(Args) (interface{}, error) {
		count++
		return nil, nil
	}, 0)

	_, err := r.Tasks(EventFor(MethodGet, "/health")).Run(Args{})
	assert.NoError(t, err)
	_, err = r.Tasks(EventFor(MethodPost, "/health")).Run(Args{})
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRouterAmbiguousRegistrationPanics(t *testing.T) {
	r := NewRouter()
	r.Get("/users/:id", func(Args) (interface{}, error) { return nil, nil }, 0)

	assert.Panics(t, func() {
		r.Get("/users/:name", func(Args) (interface{}, error) { return nil, nil }, 0)
	})
}

func TestCompilePath(t *testing.T) {
	assert.Equal(t, "/a/b", compilePath("/a/b"))
	assert.Equal(t, "/a/([^/]+)", compilePath("/a/:id"))
	assert.Equal(t, "/a/(.*)", compilePath("/a/**"))
}
