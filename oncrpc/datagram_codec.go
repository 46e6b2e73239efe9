package oncrpc

import (
	"github.com/xtreemfs/goipc/buffer"
	"github.com/xtreemfs/goipc/xdr"
)

// DatagramServerCodec adapts MessageFactory dispatch to
// transport.DatagramServerCodec for the UDP path (spec.md §4.8): each
// datagram carries one complete XDR call with no record marking, per
// EncodeDatagram.
type DatagramServerCodec struct {
	factory *MessageFactory
}

// NewDatagramServerCodec returns a codec dispatching through factory.
func NewDatagramServerCodec(factory *MessageFactory) *DatagramServerCodec {
	return &DatagramServerCodec{factory: factory}
}

// ParseRequest decodes and dispatches one datagram's call, returning
// the already-computed Response (see ServerCodec for why dispatch
// happens inside parsing rather than a separate handle step).
func (c *DatagramServerCodec) ParseRequest(datagram []byte) (*Response, error) {
	d := xdr.NewDecoder(buffer.New(datagram))
	call, err := ReadCall(d)
	if err != nil {
		return nil, err
	}
	return c.factory.Dispatch(call, d), nil
}

// Marshal renders resp as a single XDR-encoded datagram, with no
// record marking.
func (c *DatagramServerCodec) Marshal(resp Response) []byte {
	e := xdr.NewEncoder(buffer.NewSize(256))
	resp.Encode(e)
	return EncodeDatagram(e.Buffer())
}

// DatagramClientCodec is the UDP analogue of ClientCodec: one call
// out, one reply in, both unframed XDR.
type DatagramClientCodec struct {
	newReply func() ArgMessage
}

// NewDatagramClientCodec returns a codec that decodes every reply
// using newReply; unlike the stream ClientCodec, a UDP client sends
// one call per socket (transport.UDPClient dials fresh each Call), so
// there is no xid-keyed pending map to maintain.
func NewDatagramClientCodec(newReply func() ArgMessage) *DatagramClientCodec {
	return &DatagramClientCodec{newReply: newReply}
}

// Marshal renders call as a single unframed XDR datagram.
func (c *DatagramClientCodec) Marshal(call Call) []byte {
	e := xdr.NewEncoder(buffer.NewSize(256))
	EncodeCallHeader(e, call.Body)
	call.Arg.EncodeXDR(e)
	return EncodeDatagram(e.Buffer())
}

// ParseResponse decodes a single reply datagram.
func (c *DatagramClientCodec) ParseResponse(datagram []byte) (*Response, error) {
	d := xdr.NewDecoder(buffer.New(datagram))
	reply, err := DecodeReply(d)
	if err != nil {
		return nil, err
	}
	resp := &Response{XID: reply.XID, Verf: reply.Verf, Err: reply.Err}
	if reply.Err == nil && c.newReply != nil {
		body := c.newReply()
		if derr := body.DecodeXDR(d); derr != nil {
			return nil, derr
		}
		resp.Reply = body
	}
	return resp, nil
}

// XID reports the xid a Call will be sent under.
func (c *DatagramClientCodec) XID(call Call) (uint32, bool) { return call.Body.XID, true }

// ReplyXID reports the xid a decoded Response arrived under.
func (c *DatagramClientCodec) ReplyXID(resp *Response) (uint32, bool) { return resp.XID, true }
