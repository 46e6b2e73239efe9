package transport

import (
	"log"
	"net"
	"sync"
)

// StreamServer implements the accept/dispatch contract of spec.md
// §4.7: on Accept, wrap the socket in a per-connection parser and
// drive it with a synchronous read loop; parsed requests are handed
// to the handle callback, and the handler's eventual response is re-marshaled and
// written back on the same connection. It generalizes the teacher's
// Server (server.go), whose serveCodec loop does the same thing for
// one fixed protocol.
type StreamServer[Req any, Resp any] struct {
	codec   ServerCodec[Req, Resp]
	handle  func(req Req, respond func(Resp))
	logger  *log.Logger
	readBuf int
}

// NewStreamServer returns a server using codec to parse requests and
// marshal responses, invoking handle for each parsed request. handle
// must eventually call its respond callback exactly once.
func NewStreamServer[Req any, Resp any](codec ServerCodec[Req, Resp], handle func(req Req, respond func(Resp)), logger *log.Logger) *StreamServer[Req, Resp] {
	if logger == nil {
		logger = log.Default()
	}
	return &StreamServer[Req, Resp]{codec: codec, handle: handle, logger: logger, readBuf: 4096}
}

// Serve accepts connections from lis until it returns an error (e.g.
// on Close), spawning one goroutine per connection via ServeConn.
func (s *StreamServer[Req, Resp]) Serve(lis Listener) error {
	for {
		nc, err := lis.Accept()
		if err != nil {
			return err
		}
		go s.ServeConn(nc)
	}
}

// ServeConn drives one accepted connection until a recv/parse/send
// error, then closes it and drops any unparsed bytes; it never
// retries. Parse and send errors are logged; a recv error (including
// the peer closing the connection) ends the loop without a log line.
func (s *StreamServer[Req, Resp]) ServeConn(nc net.Conn) {
	defer nc.Close()
	var acc []byte
	buf := make([]byte, s.readBuf)
	writer := &writeSerializer{w: nc}

	for {
		n, err := nc.Read(buf)
		if n > 0 {
			acc = append(acc, buf[:n]...)
			for {
				req, consumed, perr := s.codec.ParseRequest(acc)
				if perr != nil {
					s.logger.Printf("transport: server: parse error: %v", perr)
					return
				}
				if req == nil {
					break
				}
				acc = acc[consumed:]
				s.handle(*req, func(resp Resp) {
					buffers := s.codec.Marshal(resp)
					if _, werr := buffers.WriteTo(writer); werr != nil {
						s.logger.Printf("transport: server: write error: %v", werr)
						nc.Close()
					}
				})
			}
		}
		if err != nil {
			return
		}
	}
}

// writeSerializer serializes writes to one connection: handle runs on
// the read loop's goroutine, but a handler may call respond later from
// a goroutine of its own, and responses must not interleave mid-write.
type writeSerializer struct {
	w  net.Conn
	mu sync.Mutex
}

func (s *writeSerializer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
