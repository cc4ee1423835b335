package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCookieString(t *testing.T) {
	c := &Cookie{
		Name:     "session",
		Value:    "abc123",
		Domain:   "example.com",
		Path:     "/",
		Expires:  time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		MaxAge:   3600,
		Secure:   true,
		HTTPOnly: true,
		SameSite: SameSiteLax,
	}

	s := c.String()
	assert.Contains(t, s, "session=abc123")
	assert.Contains(t, s, "Domain=example.com")
	assert.Contains(t, s, "Max-Age=3600")
	assert.Contains(t, s, "HttpOnly")
	assert.Contains(t, s, "Secure")
	assert.Contains(t, s, "SameSite=Lax")
}

func TestCookieInvalidName(t *testing.T) {
	c := &Cookie{Name: "", Value: "x"}
	assert.Equal(t, "", c.String())
}

func TestParseCookieHeader(t *testing.T) {
	session := ParseCookieHeader("a=1; b=2;  c = 3 ")
	assert.Equal(t, "1", session["a"])
	assert.Equal(t, "2", session["b"])
	assert.Equal(t, "3", session["c"])
}

func TestNewCookieAppliesOptions(t *testing.T) {
	opts := CookieOptions{
		Domain:   "example.com",
		HTTPOnly: true,
		Secure:   true,
		SameSite: SameSiteStrict,
		Priority: "High",
	}

	c := NewCookie("session", "abc123", opts)
	assert.Equal(t, "/", c.Path)

	s := c.String()
	assert.Contains(t, s, "session=abc123")
	assert.Contains(t, s, "Domain=example.com")
	assert.Contains(t, s, "HttpOnly")
	assert.Contains(t, s, "Secure")
	assert.Contains(t, s, "SameSite=Strict")
	assert.Contains(t, s, "Priority=High")
}

func TestCookieOptionsFromConfigMap(t *testing.T) {
	opts := CookieOptionsFrom(map[string]interface{}{
		"Domain":   "example.com",
		"Secure":   true,
		"Path":     "/app",
		"Priority": "low",
	})

	assert.Equal(t, "example.com", opts.Domain)
	assert.True(t, opts.Secure)
	assert.Equal(t, "/app", opts.Path)
}
