package httpmsg

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"

	"github.com/xtreemfs/goipc/buffer"
)

func bufferFromBytes(b []byte) *buffer.Buffer { return buffer.New(b) }

// MaxBodyBytes caps the body a parser will accumulate before failing
// with a ParseError; spec.md §4.2 leaves the default to the
// implementation. Zero means unlimited.
var MaxBodyBytes = 64 << 20

// bodyMode records how a message's body is framed, decided once the
// header is fully parsed.
type bodyMode int

const (
	bodyEmpty bodyMode = iota
	bodyFixed
	bodyChunked
	bodyUntilClose
)

// parserCore is the state machine shared by RequestParser and
// ResponseParser: it plays the role of the CRTP
// HTTPMessageParser<Derived, MessageType> template in the C++
// original. Go has no CRTP, so the two concrete parsers each embed one
// of these and supply their own first-line parsing.
type parserCore struct {
	accum      []byte
	headerDone bool

	header []byte
	fields []FieldOffset

	mode          bodyMode
	contentLength int
	body          []byte
	bodyDone      bool
}

func (c *parserCore) reset() {
	*c = parserCore{}
}

// feedHeader appends newBytes and reports whether a full header block
// (through the terminating CRLFCRLF) is now available.
func (c *parserCore) feedHeader(newBytes []byte) bool {
	c.accum = append(c.accum, newBytes...)
	return bytes.Index(c.accum, []byte("\r\n\r\n")) >= 0
}

// splitHeader removes and returns the header block (including the
// terminating CRLFCRLF) from c.accum, leaving any trailing bytes in
// place for body consumption.
func (c *parserCore) splitHeader() []byte {
	idx := bytes.Index(c.accum, []byte("\r\n\r\n"))
	header := c.accum[:idx+4]
	c.accum = c.accum[idx+4:]
	return header
}

// parseHeaderLines scans header[startAt:] for "name: value\r\n" lines
// up to the terminating blank line, recording offsets relative to
// header.
func parseHeaderLines(header []byte, startAt int, fields *[]FieldOffset) error {
	i := startAt
	for {
		lineEnd := bytes.Index(header[i:], []byte("\r\n"))
		if lineEnd < 0 {
			return &ParseError{"header", "missing CRLF"}
		}
		lineEnd += i
		if lineEnd == i {
			return nil
		}
		colon := bytes.IndexByte(header[i:lineEnd], ':')
		if colon < 0 {
			return &ParseError{"header", "header line missing colon"}
		}
		colon += i
		nameStart, nameEnd := i, colon
		valueStart, valueEnd := colon+1, lineEnd
		for valueStart < valueEnd && (header[valueStart] == ' ' || header[valueStart] == '\t') {
			valueStart++
		}
		for valueEnd > valueStart && (header[valueEnd-1] == ' ' || header[valueEnd-1] == '\t') {
			valueEnd--
		}
		if !httpguts.ValidHeaderFieldName(string(header[nameStart:nameEnd])) {
			return &ParseError{"header", "invalid header field name"}
		}
		if !httpguts.ValidHeaderFieldValue(string(header[valueStart:valueEnd])) {
			return &ParseError{"header", "invalid header field value"}
		}
		*fields = append(*fields, FieldOffset{nameStart, nameEnd, valueStart, valueEnd})
		i = lineEnd + 2
	}
}

func fieldValue(header []byte, fields []FieldOffset, name string) (string, bool) {
	for _, f := range fields {
		if strings.EqualFold(string(header[f.NameStart:f.NameEnd]), name) {
			return string(header[f.ValueStart:f.ValueEnd]), true
		}
	}
	return "", false
}

// fieldValues returns every value of a (possibly repeated) header
// field, in header order.
func fieldValues(header []byte, fields []FieldOffset, name string) []string {
	var vals []string
	for _, f := range fields {
		if strings.EqualFold(string(header[f.NameStart:f.NameEnd]), name) {
			vals = append(vals, string(header[f.ValueStart:f.ValueEnd]))
		}
	}
	return vals
}

// resolveBodyFraming inspects the parsed headers for Content-Length /
// Transfer-Encoding: chunked, per spec.md §4.2. Transfer-Encoding:
// chunked takes precedence over any Content-Length present alongside
// it (RFC 7230 §3.3.3). defaultUntilClose lets responses with neither
// header read to connection close while requests default to empty.
func (c *parserCore) resolveBodyFraming(defaultUntilClose bool) error {
	if te, ok := fieldValue(c.header, c.fields, "Transfer-Encoding"); ok && strings.EqualFold(strings.TrimSpace(te), "chunked") {
		c.mode = bodyChunked
		return nil
	}
	if cls := fieldValues(c.header, c.fields, "Content-Length"); len(cls) > 0 {
		first := strings.TrimSpace(cls[0])
		for _, cl := range cls[1:] {
			if strings.TrimSpace(cl) != first {
				return &ParseError{"header", "conflicting Content-Length values"}
			}
		}
		n, err := strconv.Atoi(first)
		if err != nil || n < 0 {
			return &ParseError{"header", "invalid Content-Length"}
		}
		c.mode = bodyFixed
		c.contentLength = n
		return nil
	}
	if defaultUntilClose {
		c.mode = bodyUntilClose
		return nil
	}
	c.mode = bodyEmpty
	return nil
}

// feedBody folds newBytes (nil when the peer's stream has been
// closed, for bodyUntilClose) into the accumulator and reports
// whether the body is now fully assembled.
func (c *parserCore) feedBody(newBytes []byte, closed bool) (bool, error) {
	c.accum = append(c.accum, newBytes...)
	switch c.mode {
	case bodyEmpty:
		c.body = nil
		c.bodyDone = true
		return true, nil
	case bodyFixed:
		if MaxBodyBytes > 0 && c.contentLength > MaxBodyBytes {
			return false, &ParseError{"body", "Content-Length exceeds cap"}
		}
		if len(c.accum) < c.contentLength {
			return false, nil
		}
		c.body = append([]byte(nil), c.accum[:c.contentLength]...)
		c.accum = c.accum[c.contentLength:]
		c.bodyDone = true
		return true, nil
	case bodyChunked:
		body, rest, done, err := decodeChunked(c.accum)
		if err != nil {
			return false, err
		}
		if !done {
			return false, nil
		}
		c.body = body
		c.accum = rest
		c.bodyDone = true
		return true, nil
	case bodyUntilClose:
		if !closed {
			return false, nil
		}
		c.body = append([]byte(nil), c.accum...)
		c.accum = nil
		c.bodyDone = true
		return true, nil
	}
	return false, nil
}

// decodeChunked decodes an RFC 7230 §4.1 chunked body from the front
// of accum. done is false (with no error) when the terminating
// zero-length chunk and its trailer have not yet arrived.
func decodeChunked(accum []byte) (body []byte, rest []byte, done bool, err error) {
	pos := 0
	for {
		lineEnd := bytes.Index(accum[pos:], []byte("\r\n"))
		if lineEnd < 0 {
			return nil, nil, false, nil
		}
		lineEnd += pos
		sizeLine := accum[pos:lineEnd]
		if semi := bytes.IndexByte(sizeLine, ';'); semi >= 0 {
			sizeLine = sizeLine[:semi]
		}
		size, convErr := strconv.ParseUint(strings.TrimSpace(string(sizeLine)), 16, 32)
		if convErr != nil {
			return nil, nil, false, &ParseError{"chunk-size", "invalid chunk size"}
		}
		if MaxBodyBytes > 0 && size > uint64(MaxBodyBytes) {
			return nil, nil, false, &ParseError{"chunk-size", "chunk size exceeds cap"}
		}
		dataStart := lineEnd + 2
		if size == 0 {
			trailerEnd := bytes.Index(accum[dataStart:], []byte("\r\n"))
			if trailerEnd < 0 {
				return nil, nil, false, nil
			}
			return body, accum[dataStart+trailerEnd+2:], true, nil
		}
		dataEnd := dataStart + int(size)
		if len(accum) < dataEnd+2 {
			return nil, nil, false, nil
		}
		body = append(body, accum[dataStart:dataEnd]...)
		pos = dataEnd + 2
	}
}

// RequestParser incrementally parses an HTTP/1.1 request from
// arbitrarily chunked input, per the NeedMore/Produced contract: feed
// bytes as they arrive off the wire; once Feed returns a non-nil
// *Request, call Leftover to recover any bytes read past the message
// boundary (the start of the next pipelined message) before resetting
// for the next request.
type RequestParser struct {
	core     parserCore
	method   string
	rawURI   string
	verMajor int
	verMinor int
}

// Feed supplies newly read bytes. It returns (nil, nil) when more
// input is needed, (nil, err) on malformed input, or (req, nil) once
// a complete request has been parsed; call Leftover to retrieve bytes
// belonging to the next message.
func (p *RequestParser) Feed(newBytes []byte) (*Request, error) {
	if !p.core.headerDone {
		if !p.core.feedHeader(newBytes) {
			return nil, nil
		}
		header := p.core.splitHeader()
		if err := p.parseStartLine(header); err != nil {
			return nil, err
		}
		p.core.header = header
		if err := p.core.resolveBodyFraming(false); err != nil {
			return nil, err
		}
		p.core.headerDone = true
		ok, err := p.core.feedBody(nil, false)
		if err != nil {
			return nil, err
		}
		if ok {
			return p.build(), nil
		}
		return nil, nil
	}

	ok, err := p.core.feedBody(newBytes, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return p.build(), nil
}

// Leftover returns bytes read past the end of the most recently
// produced message (the start of a pipelined follow-on message, if
// any) and clears the parser for reuse.
func (p *RequestParser) Leftover() []byte {
	rest := p.core.accum
	p.core.reset()
	return rest
}

func (p *RequestParser) parseStartLine(header []byte) error {
	lineEnd := bytes.IndexByte(header, '\n')
	if lineEnd < 0 {
		return &ParseError{"start-line", "missing newline"}
	}
	line := header[:lineEnd]
	line = bytes.TrimSuffix(line, []byte("\r"))
	parts := bytes.SplitN(line, []byte(" "), 3)
	if len(parts) != 3 {
		return &ParseError{"start-line", "expected METHOD URI VERSION"}
	}
	p.method = string(parts[0])
	p.rawURI = string(parts[1])
	major, minor, err := parseHTTPVersion(parts[2])
	if err != nil {
		return err
	}
	p.verMajor, p.verMinor = major, minor
	return parseHeaderLines(header, lineEnd+1, &p.core.fields)
}

func (p *RequestParser) build() *Request {
	r := &Request{
		Message:      Message{header: p.core.header, fields: p.core.fields},
		Method:       p.method,
		RawURI:       p.rawURI,
		VersionMajor: p.verMajor,
		VersionMinor: p.verMinor,
		createdAt:    time.Now(),
	}
	if p.core.body != nil {
		r.SetBody(bufferFromBytes(p.core.body))
	}
	return r
}

// ResponseParser incrementally parses an HTTP/1.1 response. Unlike
// RequestParser, a response with neither Content-Length nor
// Transfer-Encoding reads to connection close: call FeedClosed once
// the peer has closed its write side to unblock that case.
type ResponseParser struct {
	core       parserCore
	statusCode int
	reason     string
	verMajor   int
	verMinor   int
}

func (p *ResponseParser) Feed(newBytes []byte) (*Response, error) {
	return p.feed(newBytes, false)
}

// FeedClosed signals that the connection has closed; used to
// terminate a bodyUntilClose response.
func (p *ResponseParser) FeedClosed() (*Response, error) {
	return p.feed(nil, true)
}

func (p *ResponseParser) feed(newBytes []byte, closed bool) (*Response, error) {
	if !p.core.headerDone {
		if !p.core.feedHeader(newBytes) {
			return nil, nil
		}
		header := p.core.splitHeader()
		if err := p.parseStartLine(header); err != nil {
			return nil, err
		}
		p.core.header = header
		if err := p.core.resolveBodyFraming(true); err != nil {
			return nil, err
		}
		p.core.headerDone = true
		ok, err := p.core.feedBody(nil, closed)
		if err != nil {
			return nil, err
		}
		if ok {
			return p.build(), nil
		}
		return nil, nil
	}

	ok, err := p.core.feedBody(newBytes, closed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return p.build(), nil
}

// Leftover returns bytes read past the end of the most recently
// produced message and clears the parser for reuse.
func (p *ResponseParser) Leftover() []byte {
	rest := p.core.accum
	p.core.reset()
	return rest
}

func (p *ResponseParser) parseStartLine(header []byte) error {
	lineEnd := bytes.IndexByte(header, '\n')
	if lineEnd < 0 {
		return &ParseError{"start-line", "missing newline"}
	}
	line := header[:lineEnd]
	line = bytes.TrimSuffix(line, []byte("\r"))
	parts := bytes.SplitN(line, []byte(" "), 3)
	if len(parts) < 2 {
		return &ParseError{"start-line", "expected VERSION STATUS [REASON]"}
	}
	major, minor, err := parseHTTPVersion(parts[0])
	if err != nil {
		return err
	}
	p.verMajor, p.verMinor = major, minor
	code, err := strconv.Atoi(string(parts[1]))
	if err != nil {
		return &ParseError{"start-line", "invalid status code"}
	}
	p.statusCode = code
	if len(parts) == 3 {
		p.reason = string(parts[2])
	}
	return parseHeaderLines(header, lineEnd+1, &p.core.fields)
}

func (p *ResponseParser) build() *Response {
	r := &Response{
		Message:      Message{header: p.core.header, fields: p.core.fields},
		StatusCode:   p.statusCode,
		Reason:       p.reason,
		VersionMajor: p.verMajor,
		VersionMinor: p.verMinor,
	}
	if p.core.body != nil {
		r.SetBody(bufferFromBytes(p.core.body))
	}
	return r
}

func parseHTTPVersion(v []byte) (major, minor int, err error) {
	s := string(v)
	if !strings.HasPrefix(s, "HTTP/") {
		return 0, 0, &ParseError{"start-line", "expected HTTP/x.y"}
	}
	s = strings.TrimPrefix(s, "HTTP/")
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return 0, 0, &ParseError{"start-line", "expected HTTP/x.y"}
	}
	maj, err1 := strconv.Atoi(s[:dot])
	min, err2 := strconv.Atoi(s[dot+1:])
	if err1 != nil || err2 != nil {
		return 0, 0, &ParseError{"start-line", "non-numeric HTTP version"}
	}
	return maj, min, nil
}
