package ingest

import (
	"fmt"
	"regexp"
	"strings"
)

// Recognized HTTP methods, plus the ALL pseudo-method which matches any of
// them.
const (
	MethodConnect = "CONNECT"
	MethodDelete  = "DELETE"
	MethodGet     = "GET"
	MethodHead    = "HEAD"
	MethodOptions = "OPTIONS"
	MethodPatch   = "PATCH"
	MethodPost    = "POST"
	MethodPut     = "PUT"
	MethodTrace   = "TRACE"
	MethodAll     = "ALL"
)

var httpMethods = []string{
	MethodConnect, MethodDelete, MethodGet, MethodHead,
	MethodOptions, MethodPatch, MethodPost, MethodPut, MethodTrace,
}

// Route is a registered (method, path) pair, stored so an adapter or a
// lifecycle can discover which route produced a synthetic event name.
type Route struct {
	Method string
	Path   string

	// tokens holds, in left-to-right path order, the dynamic components
	// of Path (":name", "*", "**") -- exactly the components that
	// produce a capture group in the compiled regex. Static components
	// carry no token.
	tokens []routeToken
}

// routeToken is one dynamic path component.
type routeToken struct {
	param bool   // true for ":name", false for "*" or "**"
	name  string // set only when param is true
}

var paramToken = regexp.MustCompile(`^:[A-Za-z0-9_-]+$`)

// pathTokens walks path's '/'-separated segments and returns the ordered
// list of its dynamic components.
func pathTokens(path string) []routeToken {
	var tokens []routeToken
	for _, seg := range strings.Split(path, "/") {
		switch {
		case seg == "":
			continue
		case paramToken.MatchString(seg):
			tokens = append(tokens, routeToken{param: true, name: seg[1:]})
		case seg == "*" || seg == "**":
			tokens = append(tokens, routeToken{param: false})
		}
	}
	return tokens
}

// compilePath lowers a route path (STATIC, PARAM, and ANY components) into
// a regex body using the framework's deterministic encoding:
//
//  1. Replace each ":name" segment with "*".
//  2. Replace each "*" with "([^/]+)".
//  3. Collapse the adjacent pair "([^/]+)([^/]+)" (which can only have
//     come from "**") into "(.*)".
//
// If path contains no dynamic components, compilePath(path) == path.
func compilePath(path string) string {
	s := replaceParamSegments(path)
	s = strings.ReplaceAll(s, "*", "([^/]+)")
	s = strings.ReplaceAll(s, "([^/]+)([^/]+)", "(.*)")
	return s
}

// replaceParamSegments replaces every ":name" path segment with "*".
func replaceParamSegments(path string) string {
	segs := strings.Split(path, "/")
	for i, seg := range segs {
		if paramToken.MatchString(seg) {
			segs[i] = "*"
		}
	}
	return strings.Join(segs, "/")
}

// Router extends PatternEmitter with HTTP method+path registration. It
// lowers each route to a canonical event name and keeps a routes table so
// captures can be mapped back to named params at match time.
type Router struct {
	*PatternEmitter

	routes map[string]Route
}

// NewRouter returns a pointer to a new, empty Router.
func NewRouter() *Router {
	r := &Router{
		PatternEmitter: NewPatternEmitter(),
		routes:         map[string]Route{},
	}
	r.PatternEmitter.matchFn = r.match
	return r
}

// On registers the task directly against event (a literal string, a
// Pattern, or a list of either), bypassing route translation entirely.
func (r *Router) On(event interface{}, task Task, priority int) uint64 {
	return r.PatternEmitter.On(event, task, priority)
}

// Route registers task for method and path. If method is MethodAll the
// route matches any HTTP method. See the package doc for path syntax.
func (r *Router) Route(method, path string, task Task, priority int) {
	validatePath(path)

	tokens := pathTokens(path)
	pattern := compilePath(path)

	var key string
	if pattern == path && method != MethodAll {
		key = method + " " + path
		r.PatternEmitter.On(key, task, priority)
	} else {
		prefix := method
		if method == MethodAll {
			prefix = "[A-Z]+"
		}
		p := Pattern{
			Body:  fmt.Sprintf("^%s %s/*$", prefix, pattern),
			Flags: "ig",
		}
		key = p.String()
		r.PatternEmitter.On(p, task, priority)
	}

	if existing, ok := r.routes[key]; ok && existing.Path != path {
		panic(fmt.Sprintf(
			"ingest: routes [%s %s] and [%s %s] are ambiguous",
			existing.Method, existing.Path, method, path,
		))
	}

	r.routes[key] = Route{Method: method, Path: path, tokens: tokens}
}

// validatePath panics on a path shape the router's encoding cannot handle
// safely, matching the teacher's fail-fast-at-registration posture.
func validatePath(path string) {
	if path == "" {
		panic("ingest: the route path cannot be empty")
	} else if path[0] != '/' {
		panic("ingest: the route path must start with /")
	} else if strings.Contains(path, "**") {
		if !strings.HasSuffix(path, "**") {
			panic("ingest: ** can only appear at the end of a route path")
		}
	} else if strings.Contains(path, "*") && !strings.HasSuffix(path, "*") {
		panic("ingest: * can only appear at the end of a route path")
	}
}

// Get registers a GET route.
func (r *Router) Get(path string, task Task, priority int) { r.Route(MethodGet, path, task, priority) }

// Post registers a POST route.
func (r *Router) Post(path string, task Task, priority int) {
	r.Route(MethodPost, path, task, priority)
}

// Put registers a PUT route.
func (r *Router) Put(path string, task Task, priority int) { r.Route(MethodPut, path, task, priority) }

// Patch registers a PATCH route.
func (r *Router) Patch(path string, task Task, priority int) {
	r.Route(MethodPatch, path, task, priority)
}

// Delete registers a DELETE route.
func (r *Router) Delete(path string, task Task, priority int) {
	r.Route(MethodDelete, path, task, priority)
}

// Head registers a HEAD route.
func (r *Router) Head(path string, task Task, priority int) {
	r.Route(MethodHead, path, task, priority)
}

// Options registers an OPTIONS route.
func (r *Router) Options(path string, task Task, priority int) {
	r.Route(MethodOptions, path, task, priority)
}

// Connect registers a CONNECT route.
func (r *Router) Connect(path string, task Task, priority int) {
	r.Route(MethodConnect, path, task, priority)
}

// Trace registers a TRACE route.
func (r *Router) Trace(path string, task Task, priority int) {
	r.Route(MethodTrace, path, task, priority)
}

// All registers a route that matches any HTTP method.
func (r *Router) All(path string, task Task, priority int) {
	r.Route(MethodAll, path, task, priority)
}

// EventFor returns the trigger string "METHOD path" for a request with the
// given method and path. For a static route this is also the event key its
// registration produces; dynamic and ALL routes are registered under a regex
// key that matches this trigger instead. Adapters use it to translate an
// incoming request into the trigger they emit.
func EventFor(method, path string) string {
	return method + " " + path
}

// match is Router's matchFn: it runs the generic pattern match, then, for
// every matched pattern that is also a registered route, walks the route's
// ordered dynamic tokens against the raw capture groups to populate Params,
// leaving the remaining captures (from "*"/"**") in Args. A "**" capture
// containing '/' is split on '/' into multiple Args entries. A trigger whose
// path is a dynamic route's own literal path (e.g. "GET /users/:id") does
// not match that route.
func (r *Router) match(trigger string) map[string]Match {
	matches := r.PatternEmitter.matchPatterns(trigger)

	for key, m := range matches {
		route, ok := r.routes[key]
		if !ok || len(route.tokens) == 0 {
			continue
		}

		if _, path, _ := strings.Cut(trigger, " "); path == route.Path {
			delete(matches, key)
			continue
		}

		params := map[string]string{}
		var args []string
		for i, tok := range route.tokens {
			if i >= len(m.Args) {
				break
			}
			value := m.Args[i]
			if tok.param {
				params[tok.name] = value
			} else if strings.Contains(value, "/") {
				args = append(args, strings.Split(value, "/")...)
			} else {
				args = append(args, value)
			}
		}

		m.Params = params
		m.Args = args
		matches[key] = m
	}

	return matches
}

// RouteFor returns the Route registered for event and whether one exists.
func (r *Router) RouteFor(event string) (Route, bool) {
	route, ok := r.routes[event]
	return route, ok
}
