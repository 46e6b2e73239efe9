package oncrpc

import (
	"bytes"

	"github.com/xtreemfs/goipc/buffer"
	"github.com/xtreemfs/goipc/xdr"
)

// ServerCodec adapts MessageFactory's reflection dispatch to
// transport.ServerCodec[Response, Response]: ParseRequest reassembles
// one record-marked call, decodes and dispatches it through factory
// synchronously (mirroring the teacher's own synchronous
// serveCodec loop), and hands back the already-computed Response as
// both the "request" and eventual "response" value — there is no
// separate business-logic handoff step because MessageFactory.Dispatch
// already ran the registered Go method.
type ServerCodec struct {
	factory *MessageFactory
}

// NewServerCodec returns a codec dispatching through factory.
func NewServerCodec(factory *MessageFactory) *ServerCodec {
	return &ServerCodec{factory: factory}
}

// ParseRequest reassembles and dispatches one call. It returns
// (nil, 0, nil) until a full record-marked message has arrived.
func (c *ServerCodec) ParseRequest(acc []byte) (*Response, int, error) {
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
	call, err := ReadCall(d)
	if err != nil {
		return nil, 0, err
	}

	resp := c.factory.Dispatch(call, d)
	return resp, consumed, nil
}

// Marshal renders resp as one record-marked reply message.
func (c *ServerCodec) Marshal(resp Response) buffer.Buffers {
	e := xdr.NewEncoder(buffer.NewSize(256))
	resp.Encode(e)
	var framed bytes.Buffer
	WriteRecord(&framed, e.Buffer().Bytes())
	return buffer.Buffers{buffer.New(framed.Bytes())}
}
