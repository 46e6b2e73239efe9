package transport

import "github.com/xtreemfs/goipc/buffer"

// Codec marshals outbound requests and incrementally parses inbound
// responses for one wire protocol. StreamClient and StreamServer are
// generic over Codec so the same pool/reconnect/demux machinery
// serves HTTP/JSON-RPC and ONC-RPC alike, per spec.md §4.6's note that
// only the envelope rule differs between protocols.
type Codec[Req any, Resp any] interface {
	// Marshal renders req for writing to the wire.
	Marshal(req Req) buffer.Buffers

	// ParseResponse attempts to parse one response from the front of
	// acc (all bytes read so far on this connection since the last
	// successful parse). A nil resp means more bytes are needed;
	// consumed is only meaningful when resp is non-nil, and gives the
	// number of leading bytes of acc the response occupied.
	ParseResponse(acc []byte) (resp *Resp, consumed int, err error)

	// XID extracts a correlation id from req, for protocols (ONC-RPC)
	// that permit out-of-order completion. Ordered protocols (HTTP,
	// JSON-RPC) return ok=false and rely on FIFO ordering instead.
	XID(req Req) (xid uint32, ok bool)

	// ReplyXID extracts the same correlation id from a parsed
	// response.
	ReplyXID(resp *Resp) (xid uint32, ok bool)
}

// ServerCodec is the server-side counterpart: it incrementally parses
// inbound requests and marshals outbound responses.
type ServerCodec[Req any, Resp any] interface {
	ParseRequest(acc []byte) (req *Req, consumed int, err error)
	Marshal(resp Resp) buffer.Buffers
}
