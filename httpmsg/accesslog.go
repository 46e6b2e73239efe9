package httpmsg

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// AccessLog writes one Combined Log Format line per completed
// request/response pair, with the request-to-response latency in
// seconds appended as a final field. Writes are serialized with a mutex since
// multiple connection goroutines share one destination.
type AccessLog struct {
	mu  sync.Mutex
	out io.Writer
}

// NewAccessLog wraps out (a file or any io.Writer) for serialized
// Combined-format writes.
func NewAccessLog(out io.Writer) *AccessLog {
	return &AccessLog{out: out}
}

// Log records one exchange: remoteAddr is the peer's address,
// received is when the request line was parsed, and elapsed is
// request-to-response latency.
func (l *AccessLog) Log(remoteAddr string, req *Request, resp *Response, received time.Time, elapsed time.Duration) {
	bodyLen := 0
	if resp != nil && resp.Body() != nil {
		bodyLen = resp.Body().Len()
	}
	method, uri, version := "-", "-", "HTTP/1.1"
	if req != nil {
		method = req.Method
		uri = req.RawURI
		version = fmt.Sprintf("HTTP/%d.%d", req.VersionMajor, req.VersionMinor)
	}
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	referer := "-"
	userAgent := "-"
	if req != nil {
		referer = req.Field("Referer", "-")
		userAgent = req.Field("User-Agent", "-")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s - - [%s] %q %d %d %q %q %.3f\n",
		remoteAddr,
		received.Format("02/Jan/2006:15:04:05 -0700"),
		fmt.Sprintf("%s %s %s", method, uri, version),
		status,
		bodyLen,
		referer,
		userAgent,
		elapsed.Seconds(),
	)
}
