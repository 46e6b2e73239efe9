package oncrpc

import (
	"bytes"
	"sync"

	"github.com/xtreemfs/goipc/buffer"
	"github.com/xtreemfs/goipc/xdr"
)

// Call is one outgoing ONC-RPC call: the envelope plus the argument
// message and a constructor for the reply type expected back, since
// XDR carries no self-describing type tag.
type Call struct {
	Body     CallBody
	Arg      ArgMessage
	NewReply func() ArgMessage
}

// ClientCodec implements transport.Codec[Call, Response] for a
// stream-socket ONC-RPC client. It generalizes the teacher's own
// Client.pending map (seq -> *Call, consulted by receive() to find
// which Go value to decode a response body into) to ONC-RPC's xid
// correlation key.
type ClientCodec struct {
	mu      sync.Mutex
	pending map[uint32]func() ArgMessage
}

// NewClientCodec returns an empty codec.
func NewClientCodec() *ClientCodec {
	return &ClientCodec{pending: make(map[uint32]func() ArgMessage)}
}

// Marshal records call's reply constructor under its xid (so
// ParseResponse later knows how to decode the matching reply) and
// renders the call as one record-marked message.
func (c *ClientCodec) Marshal(call Call) buffer.Buffers {
	c.mu.Lock()
	c.pending[call.Body.XID] = call.NewReply
	c.mu.Unlock()

	e := xdr.NewEncoder(buffer.NewSize(256))
	EncodeCallHeader(e, call.Body)
	call.Arg.EncodeXDR(e)
	var framed bytes.Buffer
	WriteRecord(&framed, e.Buffer().Bytes())
	return buffer.Buffers{buffer.New(framed.Bytes())}
}

// ParseResponse reassembles one record-marked reply, decoding its
// business body using the reply constructor registered for its xid.
func (c *ClientCodec) ParseResponse(acc []byte) (*Response, int, error) {
	a := &RecordAssembler{}
	msg, rest, done, ferr := a.Feed(acc)
	if ferr != nil {
		return nil, 0, ferr
	}
	if !done {
		return nil, 0, nil
	}
	consumed := len(acc) - len(rest)

	d := xdr.NewDecoder(buffer.New(msg))
	reply, err := DecodeReply(d)
	if err != nil {
		return nil, consumed, err
	}

	c.mu.Lock()
	newReply := c.pending[reply.XID]
	delete(c.pending, reply.XID)
	c.mu.Unlock()

	resp := &Response{XID: reply.XID, Verf: reply.Verf, Err: reply.Err}
	if reply.Err == nil && newReply != nil {
		body := newReply()
		if derr := body.DecodeXDR(d); derr != nil {
			return nil, consumed, derr
		}
		resp.Reply = body
	}
	return resp, consumed, nil
}

// XID reports the xid a Call will be sent under.
func (c *ClientCodec) XID(call Call) (uint32, bool) { return call.Body.XID, true }

// ReplyXID reports the xid a decoded Response arrived under.
func (c *ClientCodec) ReplyXID(resp *Response) (uint32, bool) { return resp.XID, true }
