package ingest

import "golang.org/x/net/http/httpguts"

// SetHeader sets name to value on res.Headers, silently dropping the write
// if either is not a syntactically valid HTTP header field -- the same
// guard net/http applies before writing a header line onto the wire.
func (res *Response) SetHeader(name, value string) {
	if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
		return
	}
	res.Headers.Set(name, value)
}

// AddHeader appends value to name on res.Headers, silently dropping the
// write if either is not a syntactically valid HTTP header field.
func (res *Response) AddHeader(name, value string) {
	if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
		return
	}
	res.Headers.Add(name, value)
}
