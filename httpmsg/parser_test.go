package httpmsg

import (
	"bytes"
	"fmt"
	"testing"
)

func TestRequestParserWholeMessage(t *testing.T) {
	raw := "GET /foo?bar=1 HTTP/1.1\r\nHost: example.org\r\nContent-Length: 5\r\n\r\nhello"
	var p RequestParser
	req, err := p.Feed([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req == nil {
		t.Fatal("expected a complete request")
	}
	if req.Method != "GET" || req.RawURI != "/foo?bar=1" {
		t.Fatalf("unexpected request line: %+v", req)
	}
	if got := req.Field("Host", ""); got != "example.org" {
		t.Fatalf("expected Host header, got %q", got)
	}
	if string(req.Body().Bytes()) != "hello" {
		t.Fatalf("expected body %q, got %q", "hello", req.Body().Bytes())
	}
}

func TestRequestParserIncrementalArbitrarySplit(t *testing.T) {
	raw := []byte("POST /upload HTTP/1.1\r\nHost: h\r\nContent-Length: 11\r\n\r\nhello world")
	for split := 1; split < len(raw); split++ {
		var p RequestParser
		first, err := p.Feed(raw[:split])
		if err != nil {
			t.Fatalf("split %d: unexpected error on first feed: %v", split, err)
		}
		if first != nil {
			continue
		}
		req, err := p.Feed(raw[split:])
		if err != nil {
			t.Fatalf("split %d: unexpected error on second feed: %v", split, err)
		}
		if req == nil {
			t.Fatalf("split %d: expected a complete request after feeding remainder", split)
		}
		if string(req.Body().Bytes()) != "hello world" {
			t.Fatalf("split %d: expected body %q, got %q", split, "hello world", req.Body().Bytes())
		}
	}
}

func TestRequestParserNoFramingHeaderMeansEmptyBody(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nHost: h\r\n\r\n"
	var p RequestParser
	req, err := p.Feed([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req == nil {
		t.Fatal("expected a complete request")
	}
	if req.Body() != nil {
		t.Fatalf("expected nil body, got %v", req.Body())
	}
}

func TestRequestParserPipeliningLeavesLeftover(t *testing.T) {
	first := "GET /a HTTP/1.1\r\nHost: h\r\n\r\n"
	second := "GET /b HTTP/1.1\r\nHost: h\r\n\r\n"
	var p RequestParser
	req, err := p.Feed([]byte(first + second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req == nil || req.RawURI != "/a" {
		t.Fatalf("expected first request, got %+v", req)
	}
	leftover := p.Leftover()
	if string(leftover) != second {
		t.Fatalf("expected leftover to hold the pipelined request, got %q", leftover)
	}
}

func chunkedBody(chunks ...[]byte) []byte {
	var buf bytes.Buffer
	for _, c := range chunks {
		fmt.Fprintf(&buf, "%x\r\n", len(c))
		buf.Write(c)
		buf.WriteString("\r\n")
	}
	buf.WriteString("0\r\n\r\n")
	return buf.Bytes()
}

func TestResponseParserChunkedAtVariousSizes(t *testing.T) {
	for _, size := range []int{0, 1, 4095, 4096, 65537} {
		chunk := bytes.Repeat([]byte{'x'}, size)
		body := chunkedBody(chunk)
		raw := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n"
		var p ResponseParser
		resp, err := p.Feed(append([]byte(raw), body...))
		if err != nil {
			t.Fatalf("size %d: unexpected error: %v", size, err)
		}
		if resp == nil {
			t.Fatalf("size %d: expected a complete response", size)
		}
		var got []byte
		if resp.Body() != nil {
			got = resp.Body().Bytes()
		}
		if !bytes.Equal(got, chunk) {
			t.Fatalf("size %d: expected %d bytes, got %d", size, len(chunk), len(got))
		}
	}
}

func TestResponseParserChunkedIncremental(t *testing.T) {
	raw := append([]byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n"),
		chunkedBody([]byte("abc"), []byte("de"))...)
	for split := 1; split < len(raw); split++ {
		var p ResponseParser
		resp, err := p.Feed(raw[:split])
		if err != nil {
			t.Fatalf("split %d: unexpected error: %v", split, err)
		}
		if resp != nil {
			continue
		}
		resp, err = p.Feed(raw[split:])
		if err != nil {
			t.Fatalf("split %d: unexpected error on remainder: %v", split, err)
		}
		if resp == nil {
			t.Fatalf("split %d: expected a complete response", split)
		}
		if string(resp.Body().Bytes()) != "abcde" {
			t.Fatalf("split %d: expected body %q, got %q", split, "abcde", resp.Body().Bytes())
		}
	}
}

func TestResponseParserReadsToCloseWithoutFramingHeader(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\n\r\npartial body"
	var p ResponseParser
	resp, err := p.Feed([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp != nil {
		t.Fatal("expected response to remain incomplete until close")
	}
	resp, err = p.FeedClosed()
	if err != nil {
		t.Fatalf("unexpected error on close: %v", err)
	}
	if resp == nil {
		t.Fatal("expected a complete response once closed")
	}
	if string(resp.Body().Bytes()) != "partial body" {
		t.Fatalf("expected full body, got %q", resp.Body().Bytes())
	}
}

func TestRequestParserRejectsConflictingContentLength(t *testing.T) {
	raw := "POST /upload HTTP/1.1\r\nHost: h\r\nContent-Length: 5\r\nContent-Length: 6\r\n\r\nhello!"
	var p RequestParser
	_, err := p.Feed([]byte(raw))
	if err == nil {
		t.Fatal("expected a parse error for conflicting Content-Length values")
	}
	if _, is := err.(*ParseError); !is {
		t.Fatalf("expected *ParseError, got %T", err)
	}
}

func TestRequestParserAllowsRepeatedIdenticalContentLength(t *testing.T) {
	raw := "POST /upload HTTP/1.1\r\nHost: h\r\nContent-Length: 5\r\nContent-Length: 5\r\n\r\nhello"
	var p RequestParser
	req, err := p.Feed([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req == nil {
		t.Fatal("expected a complete request")
	}
	if string(req.Body().Bytes()) != "hello" {
		t.Fatalf("expected body %q, got %q", "hello", req.Body().Bytes())
	}
}

func TestRequestParserRejectsMalformedStartLine(t *testing.T) {
	var p RequestParser
	_, err := p.Feed([]byte("GET /\r\nHost: h\r\n\r\n"))
	if err == nil {
		t.Fatal("expected a parse error for a malformed start line")
	}
	if _, is := err.(*ParseError); !is {
		t.Fatalf("expected *ParseError, got %T", err)
	}
}
