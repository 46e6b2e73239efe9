package transport

import (
	"context"
	"net"
)

// DatagramCodec is the UDP analogue of Codec: a single datagram in,
// a single datagram out, no framing/reassembly since each datagram is
// already a complete message.
type DatagramCodec[Req any, Resp any] interface {
	Marshal(req Req) []byte
	ParseResponse(datagram []byte) (resp *Resp, err error)
	XID(req Req) (xid uint32, ok bool)
	ReplyXID(resp *Resp) (xid uint32, ok bool)
}

// UDPClient implements spec.md §4.8: "send once; await a single
// response matching the outgoing xid; on recv_timeout, fail with
// Timeout. No pool (UDP is stateless per request)." It is the
// datagram counterpart of StreamClient, but has no pool: a fresh
// socket per call, matching the one-request-one-datagram-exchange
// lifecycle.
type UDPClient[Req any, Resp any] struct {
	addr    *net.UDPAddr
	codec   DatagramCodec[Req, Resp]
	timeout Timeouts
}

// NewUDPClient resolves address once and returns a client that dials
// a fresh UDP socket for every Call.
func NewUDPClient[Req any, Resp any](address string, codec DatagramCodec[Req, Resp], timeouts Timeouts) (*UDPClient[Req, Resp], error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, &TransportError{Phase: PhaseConnect, Err: err}
	}
	if timeouts == (Timeouts{}) {
		timeouts = DefaultTimeouts
	}
	return &UDPClient[Req, Resp]{addr: addr, codec: codec, timeout: timeouts}, nil
}

// Call sends req as a single datagram and waits for a single reply
// datagram whose xid (if the codec tracks one) matches. Stray
// datagrams with a mismatched xid are discarded and reading continues
// until Recv times out.
func (c *UDPClient[Req, Resp]) Call(ctx context.Context, req Req) (Resp, error) {
	var zero Resp

	dialCtx, cancel := context.WithTimeout(ctx, c.timeout.Connect)
	defer cancel()
	var d net.Dialer
	nc, err := d.DialContext(dialCtx, "udp", c.addr.String())
	if err != nil {
		return zero, &TransportError{Phase: PhaseConnect, Err: err}
	}
	defer nc.Close()

	payload := c.codec.Marshal(req)
	if err := nc.SetWriteDeadline(timeNow().Add(c.timeout.Send)); err != nil {
		return zero, &TransportError{Phase: PhaseSend, Err: err}
	}
	if _, err := nc.Write(payload); err != nil {
		if isTimeout(err) {
			return zero, &Timeout{Phase: PhaseSend}
		}
		return zero, &TransportError{Phase: PhaseSend, Err: err}
	}

	wantXID, wantXIDOK := c.codec.XID(req)
	buf := make([]byte, 64<<10)
	for {
		if err := nc.SetReadDeadline(timeNow().Add(c.timeout.Recv)); err != nil {
			return zero, &TransportError{Phase: PhaseRecv, Err: err}
		}
		n, err := nc.Read(buf)
		if err != nil {
			if isTimeout(err) {
				return zero, &Timeout{Phase: PhaseRecv}
			}
			return zero, &TransportError{Phase: PhaseRecv, Err: err}
		}
		resp, perr := c.codec.ParseResponse(buf[:n])
		if perr != nil {
			return zero, &TransportError{Phase: PhaseRecv, Err: perr}
		}
		if wantXIDOK {
			if gotXID, ok := c.codec.ReplyXID(resp); ok && gotXID != wantXID {
				continue // stray reply to an earlier/unrelated call
			}
		}
		return *resp, nil
	}
}

// DatagramServerCodec parses one request datagram and marshals one
// response datagram.
type DatagramServerCodec[Req any, Resp any] interface {
	ParseRequest(datagram []byte) (req *Req, err error)
	Marshal(resp Resp) []byte
}

// UDPServer dispatches each received datagram independently — per
// spec.md §4.8, "the response is sent to the sender address recorded
// at receive time" — with no correlation or ordering across
// datagrams, unlike StreamServer's one-connection-per-goroutine
// model.
type UDPServer[Req any, Resp any] struct {
	codec  DatagramServerCodec[Req, Resp]
	handle func(req Req, respond func(Resp))
}

// NewUDPServer returns a server using codec to parse requests and
// marshal responses, invoking handle for each datagram.
func NewUDPServer[Req any, Resp any](codec DatagramServerCodec[Req, Resp], handle func(req Req, respond func(Resp))) *UDPServer[Req, Resp] {
	return &UDPServer[Req, Resp]{codec: codec, handle: handle}
}

// Serve reads datagrams from pc until a read error (e.g. on Close),
// dispatching each to handle on its own goroutine so a slow handler
// never stalls the receive loop.
func (s *UDPServer[Req, Resp]) Serve(pc net.PacketConn) error {
	buf := make([]byte, 64<<10)
	for {
		n, sender, err := pc.ReadFrom(buf)
		if err != nil {
			return err
		}
		datagram := make([]byte, n)
		copy(datagram, buf[:n])
		go s.dispatch(pc, sender, datagram)
	}
}

func (s *UDPServer[Req, Resp]) dispatch(pc net.PacketConn, sender net.Addr, datagram []byte) {
	req, err := s.codec.ParseRequest(datagram)
	if err != nil {
		return
	}
	s.handle(*req, func(resp Resp) {
		pc.WriteTo(s.codec.Marshal(resp), sender)
	})
}
