package httpmsg

import "github.com/xtreemfs/goipc/buffer"

// ServerCodec adapts RequestParser/Response to transport.ServerCodec
// [Request, Response], so a transport.StreamServer can speak plain
// HTTP/1.1 the way a JSON-RPC-over-HTTP listener needs to, using the
// same zero-copy parser as everything else in this package rather than
// a second, net/http-based server stack.
type ServerCodec struct{}

// NewServerCodec returns a codec; it holds no state since each
// ParseRequest call supplies the complete unconsumed byte buffer.
func NewServerCodec() *ServerCodec { return &ServerCodec{} }

// ParseRequest parses one request from the front of acc, using a
// fresh RequestParser each call since acc already holds everything a
// previous partial parse could not yet consume.
func (ServerCodec) ParseRequest(acc []byte) (*Request, int, error) {
	p := &RequestParser{}
	req, err := p.Feed(acc)
	if err != nil {
		return nil, 0, err
	}
	if req == nil {
		return nil, 0, nil
	}
	leftover := p.Leftover()
	return req, len(acc) - len(leftover), nil
}

// Marshal renders resp as its HTTP/1.1 wire bytes.
func (ServerCodec) Marshal(resp Response) buffer.Buffers {
	return resp.Marshal()
}
