package plugins

import (
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	ingest "github.com/stackpress/ingest-sub000"
)

// BasicAuthValidator reports whether user/pass are an accepted credential
// pair.
type BasicAuthValidator func(user, pass string) bool

// BasicAuth returns a configurator that registers a high-priority "request"
// listener rejecting any request without valid HTTP Basic credentials.
func BasicAuth(realm string, validate BasicAuthValidator) func(*ingest.Server) (interface{}, error) {
	if realm == "" {
		realm = "restricted"
	}

	return func(server *ingest.Server) (interface{}, error) {
		server.On("request", func(args ingest.Args) (interface{}, error) {
			user, pass, ok := parseBasicAuth(args.Request.Headers.Get("Authorization"))
			if !ok || !validate(user, pass) {
				args.Response.SetHeader("WWW-Authenticate", `Basic realm="`+realm+`"`)
				args.Response.SetStatus(http.StatusUnauthorized, "")
				args.Response.Error = "invalid credentials"
				return false, nil
			}

			return nil, nil
		}, 100)

		return realm, nil
	}
}

// parseBasicAuth decodes an "Authorization: Basic ..." header value.
func parseBasicAuth(header string) (user, pass string, ok bool) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", "", false
	}

	user, pass, ok = strings.Cut(string(decoded), ":")
	return user, pass, ok
}

// ConstantTimeEqual compares a and b in constant time, a convenience for
// BasicAuthValidator implementations comparing secrets.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
