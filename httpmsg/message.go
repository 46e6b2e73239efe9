// Package httpmsg implements the zero-copy HTTP/1.1 request/response
// model and incremental parser described in spec.md §4.2–§4.3: a
// header buffer is scanned once, and every field is recorded as an
// offset pair into that buffer rather than copied out, so the bulk of
// request/response handling never allocates per header.
package httpmsg

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xtreemfs/goipc/buffer"
	"github.com/xtreemfs/goipc/uri"
)

// FieldOffset locates one "name: value" header line inside Message's
// header buffer. Offsets remain valid as long as the header buffer is
// only ever appended to, never reallocated out from under a reader —
// Message.SetField preserves that by appending and re-indexing.
type FieldOffset struct {
	NameStart, NameEnd   int
	ValueStart, ValueEnd int
}

// Message is the HTTP header/body pair shared by Request and Response.
type Message struct {
	header []byte
	fields []FieldOffset
	body   *buffer.Buffer
}

// Header returns the raw header bytes (request/status line through
// the terminating CRLFCRLF), unchanged since the last SetField.
func (m *Message) Header() []byte { return m.header }

// Body returns the message body, or nil if there is none.
func (m *Message) Body() *buffer.Buffer { return m.body }

// SetBody replaces the message body.
func (m *Message) SetBody(b *buffer.Buffer) { m.body = b }

// Field performs a linear case-insensitive scan for name and returns
// its value, or def if not present. Matches spec.md's "field lookup is
// a linear case-insensitive scan" exactly — header counts in HTTP/1.1
// are small enough that this beats maintaining a map.
func (m *Message) Field(name, def string) string {
	for _, f := range m.fields {
		if strings.EqualFold(string(m.header[f.NameStart:f.NameEnd]), name) {
			return string(m.header[f.ValueStart:f.ValueEnd])
		}
	}
	return def
}

// FieldTime parses a header field as an HTTP-date (RFC 1123, RFC 850
// or asctime). The zero Time is returned if the field is absent or
// unparsable.
func (m *Message) FieldTime(name string) time.Time {
	v := m.Field(name, "")
	if v == "" {
		return time.Time{}
	}
	t, err := ParseHTTPDate(v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SetField appends a new "name: value\r\n" line to the header buffer
// and records its offsets. This never rewrites existing bytes, so any
// FieldOffset taken earlier stays valid — the append-only discipline
// spec.md §4.2's invariant requires.
func (m *Message) SetField(name, value string) {
	start := len(m.header)
	m.header = append(m.header, name...)
	nameEnd := len(m.header)
	m.header = append(m.header, ':', ' ')
	valueStart := len(m.header)
	m.header = append(m.header, value...)
	valueEnd := len(m.header)
	m.header = append(m.header, '\r', '\n')
	m.fields = append(m.fields, FieldOffset{start, nameEnd, valueStart, valueEnd})
}

// SetTimeField sets a header field to an RFC 1123 (GMT) rendering of t.
func (m *Message) SetTimeField(name string, t time.Time) {
	m.SetField(name, FormatHTTPDate(t))
}

// terminatedHeader returns a copy of the header with the blank line
// that terminates the header block appended. Only Marshal calls it,
// never SetField, and m.header itself is left unchanged, so repeated
// marshalling doesn't duplicate terminators.
func (m *Message) terminatedHeader() []byte {
	out := make([]byte, len(m.header), len(m.header)+2)
	copy(out, m.header)
	return append(out, '\r', '\n')
}

// Marshal produces header + body as a buffer.Buffers with no body
// copy, per spec.md §4.3.
func (m *Message) Marshal() buffer.Buffers {
	bs := buffer.Buffers{buffer.New(m.terminatedHeader())}
	if m.body != nil && m.body.Len() > 0 {
		bs = append(bs, m.body)
	}
	return bs
}

// Request is an HTTP request message.
type Request struct {
	Message

	Method       string
	RawURI       string
	VersionMajor int
	VersionMinor int

	createdAt time.Time
	parsedURI *uri.URI
}

// NewRequest builds an outbound request. body may be nil.
func NewRequest(method string, rawURI string, body *buffer.Buffer) *Request {
	r := &Request{Method: method, RawURI: rawURI, VersionMajor: 1, VersionMinor: 1, createdAt: time.Now()}
	r.SetBody(body)
	return r
}

// CreatedAt is used for access-log latency measurement.
func (r *Request) CreatedAt() time.Time { return r.createdAt }

// HTTPVersion returns the version as a float for literal comparisons
// (e.g. httpVersion >= 1.1), matching the C++ original's
// double-valued accessor.
func (r *Request) HTTPVersion() float64 {
	return float64(r.VersionMajor) + float64(r.VersionMinor)/10
}

// ParsedURI lazily parses RawURI (which, for an origin-form
// request-target, is resolved against an assumed "http://host"
// authority taken from the Host header).
func (r *Request) ParsedURI() (*uri.URI, error) {
	if r.parsedURI != nil {
		return r.parsedURI, nil
	}
	raw := r.RawURI
	if strings.HasPrefix(raw, "/") {
		host := r.Field("Host", "")
		raw = "http://" + host + raw
	}
	u, err := uri.Parse(raw)
	if err != nil {
		return nil, err
	}
	r.parsedURI = u
	return u, nil
}

// Marshal renders the request line, headers and body.
func (r *Request) Marshal() buffer.Buffers {
	line := fmt.Sprintf("%s %s HTTP/%d.%d\r\n", r.Method, r.RawURI, r.VersionMajor, r.VersionMinor)
	head := append([]byte(line), r.Header()...)
	saved := r.Message.header
	r.Message.header = head
	bs := r.Message.Marshal()
	r.Message.header = saved
	return bs
}

// Response is an HTTP response message.
type Response struct {
	Message

	StatusCode   int
	VersionMajor int
	VersionMinor int
	Reason       string
}

// NewResponse builds an outbound response. body may be nil.
func NewResponse(statusCode int, body *buffer.Buffer) *Response {
	r := &Response{StatusCode: statusCode, VersionMajor: 1, VersionMinor: 1, Reason: ReasonPhrase(statusCode)}
	r.SetBody(body)
	return r
}

// Marshal renders the status line, headers and body.
func (r *Response) Marshal() buffer.Buffers {
	line := fmt.Sprintf("HTTP/%d.%d %d %s\r\n", r.VersionMajor, r.VersionMinor, r.StatusCode, r.Reason)
	head := append([]byte(line), r.Header()...)
	saved := r.Message.header
	r.Message.header = head
	bs := r.Message.Marshal()
	r.Message.header = saved
	return bs
}

// ReasonPhrase returns a conventional reason phrase for a status
// code. For a code without one it returns the code's class as digits
// (e.g. "400" for 418).
func ReasonPhrase(code int) string {
	if p, ok := reasonPhrases[code]; ok {
		return p
	}
	return strconv.Itoa(code / 100 * 100)
}

var reasonPhrases = map[int]string{
	100: "Continue",
	200: "OK",
	201: "Created",
	204: "No Content",
	301: "Moved Permanently",
	302: "Found",
	304: "Not Modified",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	408: "Request Timeout",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
}
