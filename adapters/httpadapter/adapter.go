// Package httpadapter wires an ingest.Server to net/http: it implements
// http.Handler by translating each incoming *http.Request/http.ResponseWriter
// pair into an ingest.Request/ingest.Response, driving the server's
// lifecycle over them, and serializing the result back onto the wire.
package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	ingest "github.com/stackpress/ingest-sub000"
)

// Adapter binds an *ingest.Server to net/http.
type Adapter struct {
	Server *ingest.Server
}

// New returns a pointer to a new Adapter serving server. It installs
// itself as server.Handler and server.Gateway.
func New(server *ingest.Server) *Adapter {
	a := &Adapter{Server: server}

	server.Handler = func(srv *ingest.Server, rawReq, rawRes interface{}) error {
		r := rawReq.(*http.Request)
		w := rawRes.(http.ResponseWriter)
		a.ServeHTTP(w, r)
		return nil
	}

	server.Gateway = func(srv *ingest.Server, address string) error {
		listener, err := net.Listen("tcp", address)
		if err != nil {
			return err
		}

		go func() {
			_ = http.Serve(listener, a)
		}()

		return nil
	}

	return a
}

// ServeHTTP implements http.Handler.
func (a *Adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := FromHTTPRequest(r)
	req.Context = a.Server

	res := ingest.NewResponse(ToHTTPResponse(w, r))
	res.Context = a.Server

	args := ingest.Args{Request: req, Response: res, Context: a.Server}

	lc := ingest.NewRouteLifecycle(a.Server, ingest.EventFor(req.Method, req.URL.Path), args)
	lc.Run()

	res.Dispatch()
}

// FromHTTPRequest builds an *ingest.Request out of r, constructing its URL
// (honoring a leading X-Forwarded-Proto value when present) and wiring its
// Loader to a lazy, single read of r.Body.
func FromHTTPRequest(r *http.Request) *ingest.Request {
	query := map[string]interface{}{}
	for name, values := range r.URL.Query() {
		if len(values) == 1 {
			query[name] = values[0]
		} else {
			list := make([]interface{}, len(values))
			for i, v := range values {
				list[i] = v
			}
			query[name] = list
		}
	}

	req := ingest.NewRequest(query, nil, nil)
	req.Method = strings.ToUpper(r.Method)
	req.URL = resolveURL(r)
	req.Headers = r.Header.Clone()
	req.Resource = r

	if cookie := r.Header.Get("Cookie"); cookie != "" {
		req.Session = ingest.ParseCookieHeader(cookie)
	}

	req.Loader = func(req *ingest.Request) (ingest.Loaded, error) {
		if r.Body == nil {
			return ingest.Loaded{}, nil
		}
		defer r.Body.Close()

		raw, err := io.ReadAll(r.Body)
		if err != nil {
			if tooLarge, ok := err.(*http.MaxBytesError); ok {
				return ingest.Loaded{}, &ingest.BodyLimitExceeded{Limit: tooLarge.Limit}
			}
			return ingest.Loaded{}, err
		}

		return ingest.Loaded{Body: raw}, nil
	}

	return req
}

// resolveURL reconstructs the absolute URL the client requested, preferring
// the first value of a comma-separated X-Forwarded-Proto header over r's
// own scheme inference.
func resolveURL(r *http.Request) *url.URL {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fp := r.Header.Get("X-Forwarded-Proto"); fp != "" {
		scheme = strings.TrimSpace(strings.Split(fp, ",")[0])
	}

	host := r.Host
	if fh := r.Header.Get("X-Forwarded-Host"); fh != "" {
		host = strings.TrimSpace(strings.Split(fh, ",")[0])
	}
	if host == "" {
		host = "unknownhost"
	}

	u := *r.URL
	u.Scheme = scheme
	u.Host = host
	return &u
}

// ToHTTPResponse returns an ingest.Dispatcher that serializes an
// ingest.Response onto w, following the envelope rules: raw bytes/strings
// are emitted verbatim, structured bodies become a JSON envelope, and a nil
// body with a set code/status becomes an error envelope.
func ToHTTPResponse(w http.ResponseWriter, r *http.Request) ingest.Dispatcher {
	return func(res *ingest.Response) error {
		opts := ingest.CookieOptions{}
		if res.Context != nil {
			opts = res.Context.CookieOptions()
		}

		for _, change := range res.Session {
			cookie := ingest.NewCookie(change.Name, change.Value, opts)
			if change.Remove {
				cookie.MaxAge = -1
				cookie.Expires = time.Unix(0, 0)
			}
			if s := cookie.String(); s != "" {
				w.Header().Add("Set-Cookie", s)
			}
		}

		for name, values := range res.Headers {
			for _, v := range values {
				w.Header().Add(name, v)
			}
		}

		code := res.Code
		if code == 0 {
			code = http.StatusOK
		}

		switch body := res.Body.(type) {
		case nil:
			if res.Error != "" || code != http.StatusOK {
				return writeEnvelope(w, res, code, false)
			}
			w.WriteHeader(code)
			return nil
		case []byte:
			setContentType(w, res, "text/plain; charset=utf-8")
			w.WriteHeader(code)
			_, err := w.Write(body)
			return err
		case string:
			setContentType(w, res, "text/plain; charset=utf-8")
			w.WriteHeader(code)
			_, err := w.Write([]byte(body))
			return err
		case io.Reader:
			setContentType(w, res, "application/octet-stream")
			w.WriteHeader(code)
			_, err := io.Copy(w, body)
			return err
		default:
			return writeEnvelope(w, res, code, true)
		}
	}
}

func setContentType(w http.ResponseWriter, res *ingest.Response, fallback string) {
	if res.Mimetype != "" {
		w.Header().Set("Content-Type", res.Mimetype)
	} else if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", fallback)
	}
}

// writeEnvelope writes the {code, status, results, error, errors, total,
// stack} JSON envelope, eliding undefined fields. withResults controls
// whether "results" is populated from res.Body.
func writeEnvelope(w http.ResponseWriter, res *ingest.Response, code int, withResults bool) error {
	envelope := map[string]interface{}{
		"code":   code,
		"status": res.Status,
	}
	if withResults {
		envelope["results"] = res.Body
	}
	if res.Error != "" {
		envelope["error"] = res.Error
	}
	if len(res.Errors) > 0 {
		envelope["errors"] = res.Errors
	}
	if res.Total > 0 {
		envelope["total"] = res.Total
	}
	if len(res.Stack) > 0 {
		envelope["stack"] = res.Stack
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)

	encoded, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	_, err = w.Write(encoded)
	return err
}

// BodyLimiter wraps next so that any request whose Content-Length exceeds
// limit is rejected before the handler sees it, and every other request's
// body is capped at limit bytes so an over-long chunked body still surfaces
// a BodyLimitExceeded from the Request's Loader when it reads past the cap.
func BodyLimiter(limit int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > limit {
			http.Error(w, fmt.Sprintf("ingest: request body exceeds the %d byte limit", limit), http.StatusRequestEntityTooLarge)
			return
		}

		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}

		next.ServeHTTP(w, r)
	})
}
