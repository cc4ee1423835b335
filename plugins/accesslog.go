package plugins

import (
	"time"

	ingest "github.com/stackpress/ingest-sub000"
)

// AccessLog returns a configurator that registers a "response" listener
// logging method, path, and resulting status code through the server's
// Logger.
func AccessLog() func(*ingest.Server) (interface{}, error) {
	return func(server *ingest.Server) (interface{}, error) {
		server.On("request", func(args ingest.Args) (interface{}, error) {
			args.Request.Data["_access_log_start"] = time.Now()
			return nil, nil
		}, 1000)

		server.On("response", func(args ingest.Args) (interface{}, error) {
			started, _ := args.Request.Data["_access_log_start"].(time.Time)
			elapsed := time.Duration(0)
			if !started.IsZero() {
				elapsed = time.Since(started)
			}

			server.Logger.Infof(
				"%s %s %d %s",
				args.Request.Method,
				args.Request.URL.Path,
				args.Response.Code,
				elapsed,
			)

			return nil, nil
		}, -1000)

		return nil, nil
	}
}
