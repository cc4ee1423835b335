package ingest

import (
	"encoding/json"
	"encoding/xml"
	"net/http"

	"github.com/aofei/mimesniffer"
	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/protobuf/proto"
)

// SessionChange is one write to a Response's session log. Session is
// write-only on Response -- a listener records intent here and it is the
// adapter's job, at Dispatch time, to turn it into real Set-Cookie headers
// or store-backed writes.
type SessionChange struct {
	Name   string
	Value  string
	Remove bool
}

// Dispatcher sends a Response's current state to the transport-native
// resource it was built against. Adapters supply one; the core never
// assumes a particular wire format.
type Dispatcher func(res *Response) error

// Response is a mutable, per-lifecycle HTTP response payload.
type Response struct {
	// Body is the response payload. Use the Set* helpers to populate it
	// together with a matching Mimetype, or set it directly for a raw
	// passthrough.
	Body interface{}

	// Mimetype is the content type of Body.
	Mimetype string

	// Code is the numeric status code. It is zero until something sets it;
	// the adapters send 200 for a zero Code.
	Code int

	// Status is the human-readable status phrase for Code, defaulting to
	// http.StatusText(Code).
	Status string

	// Headers is the multi-valued header mapping to send with the
	// response.
	Headers http.Header

	// Session records write-only session intent; see SessionChange.
	Session []SessionChange

	// Error, when non-empty, marks the response as an error response.
	// Errors holds field-level validation messages and Stack an optional
	// trace, for diagnostic responses.
	Error  string
	Errors map[string]string
	Stack  []string

	// Total is the result-set size for SetRows/SetResults-style paged
	// responses, independent of how many rows Body actually carries.
	Total int

	// Resource is the opaque handle to the transport-native response.
	Resource interface{}

	// Context is an opaque back-reference to the owning Server.
	Context *Server

	sent          bool
	dispatcher    Dispatcher
	deferredFuncs []func()
}

// NewResponse returns a pointer to a new Response with Code left at zero.
// A zero Code is what RouteLifecycle's PROCESS phase treats as "nothing
// has set a response yet": it is set to StatusOK once a task has supplied
// a body, or synthesized to NOT_FOUND if none did.
func NewResponse(dispatcher Dispatcher) *Response {
	return &Response{
		Headers:    http.Header{},
		dispatcher: dispatcher,
	}
}

// SetStatus sets Code and Status together, filling Status from the standard
// library's table when it is empty.
func (res *Response) SetStatus(code int, status string) {
	res.Code = code
	if status == "" {
		status = http.StatusText(code)
	}
	res.Status = status
}

// SetBody sets Body and Mimetype directly, sniffing the mimetype from the
// content when mimetype is empty.
func (res *Response) SetBody(body interface{}, mimetype string) {
	res.Body = body
	if mimetype == "" {
		mimetype = sniffBodyMimetype(body)
	}
	res.Mimetype = mimetype
}

// SetHTML sets Body to html as "text/html".
func (res *Response) SetHTML(html string) {
	res.Body = html
	res.Mimetype = "text/html; charset=utf-8"
}

// SetJSON sets Body to the JSON encoding of v as "application/json".
func (res *Response) SetJSON(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	res.Body = b
	res.Mimetype = "application/json; charset=utf-8"
	return nil
}

// SetXML sets Body to the XML encoding of v as "application/xml".
func (res *Response) SetXML(v interface{}) error {
	b, err := xml.Marshal(v)
	if err != nil {
		return err
	}
	res.Body = append([]byte(xml.Header), b...)
	res.Mimetype = "application/xml; charset=utf-8"
	return nil
}

// SetMsgpack sets Body to the MessagePack encoding of v as
// "application/msgpack".
func (res *Response) SetMsgpack(v interface{}) error {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}
	res.Body = b
	res.Mimetype = "application/msgpack"
	return nil
}

// SetProtobuf sets Body to the protocol buffer encoding of v as
// "application/protobuf".
func (res *Response) SetProtobuf(v proto.Message) error {
	b, err := proto.Marshal(v)
	if err != nil {
		return err
	}
	res.Body = b
	res.Mimetype = "application/protobuf"
	return nil
}

// SetResults sets Body to rows and Total to total, the shape a paginated
// listing handler returns.
func (res *Response) SetResults(rows interface{}, total int) {
	res.Body = rows
	res.Total = total
}

// SetRows is an alias of SetResults kept for callers that think in terms of
// raw database rows rather than API results.
func (res *Response) SetRows(rows interface{}, total int) {
	res.SetResults(rows, total)
}

// SetError marks the response as a 400-class error, recording message and
// any field-level errors. It does not change Code if one has already been
// set to something other than 200.
func (res *Response) SetError(message string, errors map[string]string) {
	res.Error = message
	res.Errors = errors
	if res.Code == http.StatusOK || res.Code == 0 {
		res.SetStatus(http.StatusBadRequest, "")
	}
}

// Redirect sets the status and a Location header that point the client at url,
// using code (a 3xx status) or http.StatusFound when code is 0.
func (res *Response) Redirect(url string, code int) {
	if code == 0 {
		code = http.StatusFound
	}
	res.SetStatus(code, "")
	res.SetHeader("Location", url)
}

// SetSession queues a write of name=value to the session.
func (res *Response) SetSession(name, value string) {
	res.Session = append(res.Session, SessionChange{Name: name, Value: value})
}

// RemoveSession queues removal of name from the session.
func (res *Response) RemoveSession(name string) {
	res.Session = append(res.Session, SessionChange{Name: name, Remove: true})
}

// ClearSession queues removal of every key in known, the set of names
// currently readable from the request's Session. Response itself holds no
// session state to enumerate -- it only ever accumulates an append-only log
// of intended writes -- so the caller passes in what "every known key"
// means for this request, typically req.Session.
func (res *Response) ClearSession(known map[string]string) {
	for name := range known {
		res.RemoveSession(name)
	}
}

// Defer pushes f onto the stack of functions Dispatch calls, in LIFO order,
// after the response has been sent.
func (res *Response) Defer(f func()) {
	if f != nil {
		res.deferredFuncs = append(res.deferredFuncs, f)
	}
}

// Sent reports whether Dispatch has already run.
func (res *Response) Sent() bool {
	return res.sent
}

// Dispatch sends the response through its configured Dispatcher exactly
// once; every call after the first is a no-op returning nil. Deferred
// functions registered with Defer run, in LIFO order, after a successful
// first dispatch.
func (res *Response) Dispatch() error {
	if res.sent {
		return nil
	}
	res.sent = true

	if res.dispatcher != nil {
		if err := res.dispatcher(res); err != nil {
			return err
		}
	}

	for i := len(res.deferredFuncs) - 1; i >= 0; i-- {
		res.deferredFuncs[i]()
	}

	return nil
}

// sniffBodyMimetype guesses the mimetype of body using content sniffing for
// byte-like content and fixed mappings for structured content, falling back
// to "application/octet-stream".
func sniffBodyMimetype(body interface{}) string {
	switch v := body.(type) {
	case nil:
		return ""
	case string:
		return mimesniffer.Sniff([]byte(v))
	case []byte:
		return mimesniffer.Sniff(v)
	case map[string]interface{}, []interface{}:
		return "application/json; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
