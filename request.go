package ingest

import (
	"net/http"
	"net/url"
	"reflect"
	"strings"
)

// Loaded is what a Request's loader function returns: the parsed body and,
// when the body decodes to named fields (a form, or an object), the post
// fields extracted from it.
type Loaded struct {
	Body interface{}
	Post map[string]interface{}
}

// BodyLoader lazily reads and parses a Request's body. It is supplied by the
// adapter that constructed the Request (or by a decoder in the bodyparse
// package), never by the core.
type BodyLoader func(req *Request) (Loaded, error)

// Request is a mutable, per-lifecycle HTTP request payload. It is owned by
// the lifecycle that created it and must never escape it -- listeners may
// mutate it freely without locking.
type Request struct {
	// Method is one of the recognized HTTP methods. Default "GET".
	Method string

	// URL is the parsed absolute URL of the request. It always has a
	// scheme and a host; when the adapter cannot determine one, the
	// fallback host "unknownhost" is used.
	URL *url.URL

	// Headers is the multi-valued header mapping, case preserved as
	// received.
	Headers http.Header

	// Query, Post, and Data are nested string-keyed structures. Data is
	// the merged view handlers read from: at construction it holds
	// Query union Post union any explicit data, with later sources
	// overwriting earlier ones. Route params extracted at dispatch time
	// are merged into Data only for keys not already present.
	Query map[string]interface{}
	Post  map[string]interface{}
	Data  map[string]interface{}

	// Session is the read-only name->value mapping built from the
	// Cookie header (or an explicit initializer).
	Session map[string]string

	// Body is the request body once loaded; it is nil until Load runs.
	Body interface{}

	// Mimetype is the content type of Body.
	Mimetype string

	// Loaded reports whether Load has completed (successfully or not).
	Loaded bool

	// Loader is invoked exactly once, by Load, to fill Body/Post.
	Loader BodyLoader

	// Resource is the opaque handle to the transport-native request,
	// for adapters.
	Resource interface{}

	// Context is an opaque back-reference to the owning Server.
	Context *Server
}

// NewRequest returns a pointer to a new Request with the invariants from
// the data model satisfied: a default method, a fallback URL, and Data
// seeded from query, post and data (later sources winning).
func NewRequest(query, post, data map[string]interface{}) *Request {
	if query == nil {
		query = map[string]interface{}{}
	}
	if post == nil {
		post = map[string]interface{}{}
	}

	u, _ := url.Parse("http://unknownhost/")

	req := &Request{
		Method:  MethodGet,
		URL:     u,
		Headers: http.Header{},
		Query:   query,
		Post:    post,
		Session: map[string]string{},
	}

	req.Data = mergeData(query, post, data)
	return req
}

// mergeData builds the Data view: query, then post, then data, each
// overwriting the previous on key collision.
func mergeData(query, post, data map[string]interface{}) map[string]interface{} {
	merged := map[string]interface{}{}
	for k, v := range query {
		merged[k] = v
	}
	for k, v := range post {
		merged[k] = v
	}
	for k, v := range data {
		merged[k] = v
	}
	return merged
}

// Load performs a one-shot body read. The first call invokes req.Loader (if
// any) and merges any returned Post fields into both Post and Data, without
// overwriting keys Data already has. Every subsequent call is a no-op that
// returns nil, even when the first call's Loader failed -- req.Loaded is set
// to true regardless of whether a Loader was configured or what it returned.
func (req *Request) Load() error {
	if req.Loaded {
		return nil
	}
	req.Loaded = true

	if req.Loader == nil {
		return nil
	}

	loaded, err := req.Loader(req)
	if err != nil {
		return err
	}

	req.Body = loaded.Body
	if req.Body != nil && req.Mimetype == "" {
		req.Mimetype = sniffBodyMimetype(req.Body)
	}

	for k, v := range loaded.Post {
		req.Post[k] = v
		if _, exists := req.Data[k]; !exists {
			req.Data[k] = v
		}
	}

	return nil
}

// Projection is the {args, params} view Request.FromRoute / Request.FromPattern
// extract against the request's current URL path, without mutating the
// request.
type Projection struct {
	Args   []string
	Params map[string]string
}

// FromRoute matches path (a route path using the same ":name"/"*"/"**"
// syntax as Router.Route) against req.URL.Path and returns the extracted
// projection. Unlike Router.Route, no HTTP method is involved: only the
// path shape is compiled and matched.
func (req *Request) FromRoute(path string) (Projection, bool) {
	tokens := pathTokens(path)
	pattern := compilePath(path)

	if pattern == path {
		if req.URL.Path != path {
			return Projection{}, false
		}
		return Projection{}, true
	}

	re, err := (Pattern{Body: "^" + pattern + "/*$"}).compile()
	if err != nil {
		return Projection{}, false
	}

	groups := re.FindStringSubmatch(req.URL.Path)
	if groups == nil {
		return Projection{}, false
	}

	captures := groups[1:]
	params := map[string]string{}
	var args []string
	for i, tok := range tokens {
		if i >= len(captures) {
			break
		}
		value := captures[i]
		if tok.param {
			params[tok.name] = value
		} else if strings.Contains(value, "/") {
			args = append(args, strings.Split(value, "/")...)
		} else {
			args = append(args, value)
		}
	}

	return Projection{Args: args, Params: params}, true
}

// FromPattern matches pattern against req.URL.Path and returns the
// extracted projection.
func (req *Request) FromPattern(pattern Pattern) (Projection, bool) {
	re, err := pattern.compile()
	if err != nil {
		return Projection{}, false
	}

	groups := re.FindStringSubmatch(req.URL.Path)
	if groups == nil {
		return Projection{}, false
	}

	return Projection{Args: groups[1:]}, true
}

// Type reports the discriminated kind of req.Body: "buffer", "uint8array",
// "object", "array", "string", "null", or the Go runtime type name as a
// fallback.
func (req *Request) Type() string {
	switch v := req.Body.(type) {
	case nil:
		return "null"
	case []byte:
		return "buffer"
	case string:
		return "string"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			if rv.Type().Elem().Kind() == reflect.Uint8 {
				return "uint8array"
			}
			return "array"
		case reflect.Map, reflect.Struct:
			return "object"
		}
		return reflect.TypeOf(v).String()
	}
}
