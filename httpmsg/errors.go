package httpmsg

import "fmt"

// ParseError reports malformed HTTP/1.1 wire bytes, with a stable
// Reason so callers can discriminate without string matching.
type ParseError struct {
	Where  string // e.g. "start-line", "header", "chunk-size"
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("httpmsg: %s: %s", e.Where, e.Reason)
}
