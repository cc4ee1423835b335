// Package fasthttpadapter wires an ingest.Server to valyala/fasthttp, the
// second transport the framework ships a binding for: it translates each
// incoming *fasthttp.RequestCtx into an ingest.Request/ingest.Response,
// drives the server's lifecycle over them, and serializes the result back
// through the fasthttp response writer.
package fasthttpadapter

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	ingest "github.com/stackpress/ingest-sub000"
)

// Adapter binds an *ingest.Server to fasthttp.
type Adapter struct {
	Server *ingest.Server
}

// New returns a pointer to a new Adapter serving server. It installs
// itself as server.Handler and server.Gateway.
func New(server *ingest.Server) *Adapter {
	a := &Adapter{Server: server}

	server.Handler = func(srv *ingest.Server, rawReq, rawRes interface{}) error {
		ctx := rawReq.(*fasthttp.RequestCtx)
		a.Handle(ctx)
		return nil
	}

	server.Gateway = func(srv *ingest.Server, address string) error {
		go func() {
			_ = fasthttp.ListenAndServe(address, a.Handle)
		}()
		return nil
	}

	return a
}

// Handle is the fasthttp.RequestHandler ingest.Server.Gateway installs.
func (a *Adapter) Handle(ctx *fasthttp.RequestCtx) {
	req := FromRequestCtx(ctx)
	req.Context = a.Server

	res := ingest.NewResponse(ToRequestCtx(ctx))
	res.Context = a.Server

	args := ingest.Args{Request: req, Response: res, Context: a.Server}

	lc := ingest.NewRouteLifecycle(a.Server, ingest.EventFor(req.Method, req.URL.Path), args)
	lc.Run()

	res.Dispatch()
}

// FromRequestCtx builds an *ingest.Request out of ctx.
func FromRequestCtx(ctx *fasthttp.RequestCtx) *ingest.Request {
	query := map[string]interface{}{}
	ctx.QueryArgs().VisitAll(func(key, value []byte) {
		query[string(key)] = string(value)
	})

	req := ingest.NewRequest(query, nil, nil)
	req.Method = strings.ToUpper(string(ctx.Method()))
	req.URL = resolveURL(ctx)
	req.Resource = ctx

	req.Headers = http.Header{}
	ctx.Request.Header.VisitAll(func(key, value []byte) {
		req.Headers.Add(string(key), string(value))
	})

	if cookie := string(ctx.Request.Header.Peek("Cookie")); cookie != "" {
		req.Session = ingest.ParseCookieHeader(cookie)
	}

	req.Loader = func(req *ingest.Request) (ingest.Loaded, error) {
		return ingest.Loaded{Body: append([]byte(nil), ctx.PostBody()...)}, nil
	}

	return req
}

// resolveURL reconstructs the absolute URL the client requested, preferring
// the first value of a comma-separated X-Forwarded-Proto header over
// fasthttp's own scheme inference.
func resolveURL(ctx *fasthttp.RequestCtx) *url.URL {
	scheme := string(ctx.URI().Scheme())
	if fp := string(ctx.Request.Header.Peek("X-Forwarded-Proto")); fp != "" {
		scheme = strings.TrimSpace(strings.Split(fp, ",")[0])
	}

	host := string(ctx.Host())
	if fh := string(ctx.Request.Header.Peek("X-Forwarded-Host")); fh != "" {
		host = strings.TrimSpace(strings.Split(fh, ",")[0])
	}
	if host == "" {
		host = "unknownhost"
	}

	u := &url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     string(ctx.Path()),
		RawQuery: string(ctx.QueryArgs().QueryString()),
	}
	return u
}

// ToRequestCtx returns an ingest.Dispatcher that serializes an
// ingest.Response back through ctx, following the same envelope rules as
// the httpadapter package.
func ToRequestCtx(ctx *fasthttp.RequestCtx) ingest.Dispatcher {
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
				ctx.Response.Header.Add("Set-Cookie", s)
			}
		}

		for name, values := range res.Headers {
			for _, v := range values {
				ctx.Response.Header.Add(name, v)
			}
		}

		code := res.Code
		if code == 0 {
			code = 200
		}
		ctx.SetStatusCode(code)

		switch body := res.Body.(type) {
		case nil:
			if res.Error != "" || code != 200 {
				return writeEnvelope(ctx, res, code, false)
			}
			return nil
		case []byte:
			setContentType(ctx, res, "text/plain; charset=utf-8")
			ctx.SetBody(body)
			return nil
		case string:
			setContentType(ctx, res, "text/plain; charset=utf-8")
			ctx.SetBodyString(body)
			return nil
		default:
			return writeEnvelope(ctx, res, code, true)
		}
	}
}

func setContentType(ctx *fasthttp.RequestCtx, res *ingest.Response, fallback string) {
	if res.Mimetype != "" {
		ctx.SetContentType(res.Mimetype)
	} else if len(ctx.Response.Header.ContentType()) == 0 {
		ctx.SetContentType(fallback)
	}
}

func writeEnvelope(ctx *fasthttp.RequestCtx, res *ingest.Response, code int, withResults bool) error {
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

	encoded, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	ctx.SetContentType("application/json; charset=utf-8")
	ctx.SetBody(encoded)
	return nil
}
