package plugins

import (
	ingest "github.com/stackpress/ingest-sub000"
)

// SecureHeadersOptions configures SecureHeaders.
type SecureHeadersOptions struct {
	FrameOptions          string
	ContentTypeNosniff    bool
	XSSProtection         string
	StrictTransportPolicy string
	ContentSecurityPolicy string
}

// SecureHeaders returns a configurator that registers a low-priority
// "response" listener writing a conservative set of hardening headers.
func SecureHeaders(opts SecureHeadersOptions) func(*ingest.Server) (interface{}, error) {
	if opts.FrameOptions == "" {
		opts.FrameOptions = "SAMEORIGIN"
	}
	if opts.XSSProtection == "" {
		opts.XSSProtection = "1; mode=block"
	}

	return func(server *ingest.Server) (interface{}, error) {
		server.On("response", func(args ingest.Args) (interface{}, error) {
			res := args.Response
			res.SetHeader("X-Frame-Options", opts.FrameOptions)
			res.SetHeader("X-XSS-Protection", opts.XSSProtection)

			if opts.ContentTypeNosniff {
				res.SetHeader("X-Content-Type-Options", "nosniff")
			}
			if opts.StrictTransportPolicy != "" {
				res.SetHeader("Strict-Transport-Security", opts.StrictTransportPolicy)
			}
			if opts.ContentSecurityPolicy != "" {
				res.SetHeader("Content-Security-Policy", opts.ContentSecurityPolicy)
			}

			return nil, nil
		}, -100)

		return opts, nil
	}
}
