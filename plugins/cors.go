package plugins

import (
	"net/http"
	"strconv"
	"strings"

	ingest "github.com/stackpress/ingest-sub000"
)

// CORSOptions configures CORS.
type CORSOptions struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           int
}

// CORS returns a configurator that registers a high-priority "request"
// listener writing the Access-Control-* response headers, and answers
// OPTIONS preflight requests directly with ABORT so no route handler runs.
func CORS(opts CORSOptions) func(*ingest.Server) (interface{}, error) {
	if len(opts.AllowMethods) == 0 {
		opts.AllowMethods = []string{
			ingest.MethodGet, ingest.MethodPost, ingest.MethodPut,
			ingest.MethodPatch, ingest.MethodDelete,
		}
	}

	return func(server *ingest.Server) (interface{}, error) {
		server.On("request", func(args ingest.Args) (interface{}, error) {
			origin := args.Request.Headers.Get("Origin")
			if origin == "" {
				return nil, nil
			}

			if !originAllowed(opts.AllowOrigins, origin) {
				return nil, nil
			}

			res := args.Response
			res.SetHeader("Access-Control-Allow-Origin", origin)
			res.AddHeader("Vary", "Origin")

			if opts.AllowCredentials {
				res.SetHeader("Access-Control-Allow-Credentials", "true")
			}
			if len(opts.ExposeHeaders) > 0 {
				res.SetHeader("Access-Control-Expose-Headers", strings.Join(opts.ExposeHeaders, ","))
			}

			if args.Request.Method != ingest.MethodOptions {
				return nil, nil
			}

			res.SetHeader("Access-Control-Allow-Methods", strings.Join(opts.AllowMethods, ","))
			if len(opts.AllowHeaders) > 0 {
				res.SetHeader("Access-Control-Allow-Headers", strings.Join(opts.AllowHeaders, ","))
			}
			if opts.MaxAge > 0 {
				res.SetHeader("Access-Control-Max-Age", strconv.Itoa(opts.MaxAge))
			}

			args.Response.SetStatus(http.StatusNoContent, "")
			return false, nil
		}, 100)

		return opts, nil
	}
}

func originAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}
