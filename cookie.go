package ingest

import (
	"bytes"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// SameSite is the enumerated value of a cookie's SameSite attribute.
type SameSite string

// The recognized SameSite values. SameSiteDefault omits the attribute.
const (
	SameSiteDefault SameSite = ""
	SameSiteLax     SameSite = "Lax"
	SameSiteStrict  SameSite = "Strict"
	SameSiteNone    SameSite = "None"
)

// Cookie is an HTTP cookie destined for a Set-Cookie header.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  time.Time
	MaxAge   int
	Secure   bool
	HTTPOnly bool
	SameSite SameSite

	// Priority sets the non-standard "Priority" attribute some clients
	// use to hint cookie eviction order ("Low", "Medium", "High"). Empty
	// omits the attribute.
	Priority string
}

// CookieOptions is the shape of the "cookie" Server config key: options
// threaded to the Set-Cookie serializer for every cookie an adapter builds
// out of a Response's session revisions.
type CookieOptions struct {
	Domain   string
	Expires  time.Time
	HTTPOnly bool
	MaxAge   int
	Path     string

	// Priority is one of "low", "medium", "high" (case-insensitive);
	// anything else omits the attribute.
	Priority string

	// SameSite is one of SameSiteLax, SameSiteStrict, SameSiteNone, or
	// SameSiteDefault to omit the attribute.
	SameSite SameSite

	Secure bool
}

// cookiePriorityLabels maps a lowercase CookieOptions.Priority value to the
// capitalized token the Priority attribute actually uses on the wire.
var cookiePriorityLabels = map[string]string{
	"low":    "Low",
	"medium": "Medium",
	"high":   "High",
}

// NewCookie builds a Cookie named name/value, carrying the defaults from
// opts. A zero CookieOptions produces a bare session cookie.
func NewCookie(name, value string, opts CookieOptions) *Cookie {
	c := &Cookie{
		Name:     name,
		Value:    value,
		Domain:   opts.Domain,
		Path:     opts.Path,
		Expires:  opts.Expires,
		MaxAge:   opts.MaxAge,
		Secure:   opts.Secure,
		HTTPOnly: opts.HTTPOnly,
		SameSite: opts.SameSite,
	}
	if c.Path == "" {
		c.Path = "/"
	}
	c.Priority = cookiePriorityLabels[strings.ToLower(opts.Priority)]
	return c
}

// CookieOptionsFrom decodes the server's "cookie" config key (a
// map[string]interface{} as a plugin descriptor would supply, or an
// already-typed CookieOptions) into a CookieOptions, defaulting to the
// zero value when the key is absent or malformed.
func CookieOptionsFrom(raw interface{}) CookieOptions {
	switch v := raw.(type) {
	case CookieOptions:
		return v
	case map[string]interface{}:
		var opts CookieOptions
		_ = Decode(v, &opts)
		return opts
	default:
		return CookieOptions{}
	}
}

// String returns the c's Set-Cookie serialization, or the empty string if
// c.Name is not a valid cookie token.
func (c *Cookie) String() string {
	if !validCookieName(c.Name) {
		return ""
	}

	buf := bytes.Buffer{}

	name := strings.NewReplacer("\r", "-", "\n", "-").Replace(c.Name)
	value := sanitize(c.Value, validCookieValue)
	if strings.ContainsAny(value, " ,") {
		value = `"` + value + `"`
	}

	buf.WriteString(name)
	buf.WriteByte('=')
	buf.WriteString(value)

	if len(c.Path) > 0 {
		buf.WriteString("; Path=")
		buf.WriteString(sanitize(c.Path, func(b byte) bool {
			return 0x20 <= b && b < 0x7f && b != ';'
		}))
	}

	if validCookieDomain(c.Domain) {
		d := c.Domain
		if d[0] == '.' {
			d = d[1:]
		}
		buf.WriteString("; Domain=")
		buf.WriteString(d)
	}

	if c.Expires.Year() >= 1601 {
		buf.WriteString("; Expires=")
		buf2 := buf.Bytes()
		buf.Reset()
		buf.Write(c.Expires.UTC().AppendFormat(buf2, http.TimeFormat))
	}

	switch {
	case c.MaxAge > 0:
		buf.WriteString("; Max-Age=")
		buf2 := buf.Bytes()
		buf.Reset()
		buf.Write(strconv.AppendInt(buf2, int64(c.MaxAge), 10))
	case c.MaxAge < 0:
		buf.WriteString("; Max-Age=0")
	}

	if c.HTTPOnly {
		buf.WriteString("; HttpOnly")
	}

	if c.Secure {
		buf.WriteString("; Secure")
	}

	if c.SameSite != SameSiteDefault {
		buf.WriteString("; SameSite=")
		buf.WriteString(string(c.SameSite))
	}

	if c.Priority != "" {
		buf.WriteString("; Priority=")
		buf.WriteString(c.Priority)
	}

	return buf.String()
}

// validCookieName reports whether n is a valid cookie token.
func validCookieName(n string) bool {
	return n != "" && strings.IndexFunc(n, func(r rune) bool {
		return !strings.ContainsRune(
			"!#$%&'*+-."+
				"0123456789"+
				"ABCDEFGHIJKLMNOPQRSTUWVXYZ"+
				"^_`"+
				"abcdefghijklmnopqrstuvwxyz"+
				"|~",
			r,
		)
	}) < 0
}

// validCookieValue reports whether the byte b is legal in a cookie value.
func validCookieValue(b byte) bool {
	return 0x20 <= b && b < 0x7f && b != '"' && b != ';' && b != '\\'
}

// validCookieDomain reports whether d is a syntactically valid cookie
// domain.
func validCookieDomain(d string) bool {
	if l := len(d); l == 0 || l > 255 {
		return false
	}

	if net.ParseIP(d) != nil && !strings.Contains(d, ":") {
		return true
	}

	if d[0] == '.' {
		d = d[1:]
	}

	ok := false
	last := byte('.')
	partlen := 0
	for i := 0; i < len(d); i++ {
		c := d[i]
		switch {
		case 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z':
			ok = true
			partlen++
		case '0' <= c && c <= '9':
			partlen++
		case c == '-':
			if last == '.' {
				return false
			}
			partlen++
		case c == '.':
			if last == '.' || last == '-' {
				return false
			}
			if partlen > 63 || partlen == 0 {
				return false
			}
			partlen = 0
		default:
			return false
		}
		last = c
	}

	if last == '-' || partlen > 63 {
		return false
	}

	return ok
}

// sanitize drops every byte of s for which valid reports false.
func sanitize(s string, valid func(byte) bool) string {
	ok := true
	for i := 0; i < len(s); i++ {
		if !valid(s[i]) {
			ok = false
			break
		}
	}
	if ok {
		return s
	}

	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if b := s[i]; valid(b) {
			buf = append(buf, b)
		}
	}
	return string(buf)
}

// ParseCookieHeader parses a raw Cookie request header into a name->value
// mapping, the shape Request.Session is built from.
func ParseCookieHeader(header string) map[string]string {
	session := map[string]string{}
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		session[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return session
}
