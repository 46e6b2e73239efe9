package httpmsg

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestAccessLogWritesCombinedFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewAccessLog(&buf)

	req := NewRequest("GET", "/status", nil)
	req.SetField("User-Agent", "test-agent")
	resp := NewResponse(200, bufferFromBytes([]byte("ok")))

	received := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	log.Log("10.0.0.1:5555", req, resp, received, 12*time.Millisecond)

	line := buf.String()
	for _, want := range []string{"10.0.0.1:5555", "GET /status HTTP/1.1", "200", "test-agent"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected log line to contain %q, got %q", want, line)
		}
	}
}
