package httpmsg

import "github.com/xtreemfs/goipc/buffer"

// ClientCodec adapts Request/ResponseParser to transport.Codec
// [Request, Response] for a plain HTTP/1.1 client (e.g. JSON-RPC/HTTP,
// per spec.md §4.4). HTTP/1.1 request/response pairs on one connection
// correlate by arrival order, not by an explicit id the wire carries,
// so XID/ReplyXID report ok=false and transport.StreamClient.Call
// simply returns the first complete response it parses.
type ClientCodec struct{}

// NewClientCodec returns a codec; it holds no state.
func NewClientCodec() *ClientCodec { return &ClientCodec{} }

// Marshal renders req as its HTTP/1.1 wire bytes.
func (ClientCodec) Marshal(req Request) buffer.Buffers {
	return req.Marshal()
}

// ParseResponse parses one response from the front of acc. A response
// with neither Content-Length nor Transfer-Encoding would read to
// connection close (FeedClosed), which this codec does not attempt to
// drive — callers that need that framing should set Content-Length
// explicitly, as jsonrpc.NewRequest's sink does.
func (ClientCodec) ParseResponse(acc []byte) (*Response, int, error) {
	p := &ResponseParser{}
	resp, err := p.Feed(acc)
	if err != nil {
		return nil, 0, err
	}
	if resp == nil {
		return nil, 0, nil
	}
	leftover := p.Leftover()
	return resp, len(acc) - len(leftover), nil
}

// XID reports ok=false: HTTP/1.1 request/response correlates by
// connection ordering, not an explicit id.
func (ClientCodec) XID(req Request) (uint32, bool) { return 0, false }

// ReplyXID reports ok=false, matching XID.
func (ClientCodec) ReplyXID(resp *Response) (uint32, bool) { return 0, false }
