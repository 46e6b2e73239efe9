package transport

import (
	"context"
	"log"
	"time"

	"github.com/xtreemfs/goipc/buffer"
)

// Timeouts bundles the three independent per-phase deadlines spec.md
// §4.6/§5 require.
type Timeouts struct {
	Connect time.Duration
	Send    time.Duration
	Recv    time.Duration
}

// DefaultTimeouts is used by NewStreamClient when the caller passes a
// zero Timeouts.
var DefaultTimeouts = Timeouts{
	Connect: 10 * time.Second,
	Send:    10 * time.Second,
	Recv:    30 * time.Second,
}

// StreamClient implements the stream socket client contract of
// spec.md §4.6: acquire a pooled connection, connect lazily (retrying
// up to ReconnectTriesMax), marshal and send the request, read and
// parse exactly one response, and return the connection to the pool.
// It generalizes the teacher's Client (client.go), which hardcodes one
// protobuf codec and one always-open socket, into something generic
// over Codec[Req, Resp] with an explicit connection pool.
type StreamClient[Req any, Resp any] struct {
	pool              *Pool
	dialer            Dialer
	codec             Codec[Req, Resp]
	timeouts          Timeouts
	reconnectTriesMax int
	logger            *log.Logger
}

// NewStreamClient returns a client dialing dialer through a pool of
// poolSize connections, using codec to marshal requests and parse
// responses. logger may be nil (falls back to log.Default()), per
// SPEC_FULL.md's "logging is an injected *log.Logger collaborator,
// never a package-level singleton."
func NewStreamClient[Req any, Resp any](dialer Dialer, codec Codec[Req, Resp], poolSize int, timeouts Timeouts, reconnectTriesMax int, logger *log.Logger) *StreamClient[Req, Resp] {
	if timeouts == (Timeouts{}) {
		timeouts = DefaultTimeouts
	}
	if logger == nil {
		logger = log.Default()
	}
	return &StreamClient[Req, Resp]{
		pool:              NewPool(poolSize, dialer),
		dialer:            dialer,
		codec:             codec,
		timeouts:          timeouts,
		reconnectTriesMax: reconnectTriesMax,
		logger:            logger,
	}
}

// Close closes every pooled connection.
func (c *StreamClient[Req, Resp]) Close() { c.pool.Close() }

// Call performs one request/response exchange, per spec.md §4.6's
// seven numbered steps. The connection used is not pipelined: Call
// does not return until its own response (or a terminal error) has
// been read, matching "the client does NOT pipeline unless explicitly
// enabled."
func (c *StreamClient[Req, Resp]) Call(ctx context.Context, req Req) (Resp, error) {
	var zero Resp

	slot, err := c.pool.Acquire(ctx)
	if err != nil {
		return zero, err
	}
	released := false
	release := func() {
		if !released {
			c.pool.Release(slot)
			released = true
		}
	}
	defer release()

	if err := c.ensureConnected(ctx, slot); err != nil {
		slot.state = stateBroken
		return zero, err
	}

	buffers := c.codec.Marshal(req)
	if err := c.writeWithDeadline(slot, buffers); err != nil {
		c.breakConnection(slot)
		return zero, err
	}

	resp, err := c.readResponse(ctx, slot, req)
	if err != nil {
		c.breakConnection(slot)
		return zero, err
	}
	slot.state = stateIdle
	return resp, nil
}

func (c *StreamClient[Req, Resp]) ensureConnected(ctx context.Context, slot *conn) error {
	if slot.netConn != nil && slot.state != stateBroken {
		return nil
	}
	for {
		dialCtx, cancel := context.WithTimeout(ctx, c.timeouts.Connect)
		nc, err := c.dialer.DialContext(dialCtx)
		cancel()
		if err == nil {
			slot.netConn = nc
			slot.reconnectTries = 0
			return nil
		}
		if ctx.Err() != nil {
			return &TransportError{Phase: PhaseConnect, Err: ctx.Err()}
		}
		slot.reconnectTries++
		if slot.reconnectTries > c.reconnectTriesMax {
			return &TransportError{Phase: PhaseConnect, Err: err}
		}
		c.logger.Printf("transport: connect to %s failed (try %d/%d): %v", c.dialer.Addr(), slot.reconnectTries, c.reconnectTriesMax, err)
	}
}

func (c *StreamClient[Req, Resp]) writeWithDeadline(slot *conn, buffers buffer.Buffers) error {
	if err := slot.netConn.SetWriteDeadline(timeNow().Add(c.timeouts.Send)); err != nil {
		return &TransportError{Phase: PhaseSend, Err: err}
	}
	_, err := buffers.WriteTo(slot.netConn)
	if err != nil {
		if isTimeout(err) {
			return &Timeout{Phase: PhaseSend}
		}
		return &TransportError{Phase: PhaseSend, Err: err}
	}
	return nil
}

func (c *StreamClient[Req, Resp]) readResponse(ctx context.Context, slot *conn, req Req) (Resp, error) {
	var zero Resp
	var acc []byte
	buf := make([]byte, 4096)
	wantXID, wantXIDOK := c.codec.XID(req)
	for {
		if err := slot.netConn.SetReadDeadline(timeNow().Add(c.timeouts.Recv)); err != nil {
			return zero, &TransportError{Phase: PhaseRecv, Err: err}
		}
		n, err := slot.netConn.Read(buf)
		if n > 0 {
			acc = append(acc, buf[:n]...)
			for {
				resp, consumed, perr := c.codec.ParseResponse(acc)
				if perr != nil {
					return zero, &TransportError{Phase: PhaseRecv, Err: perr}
				}
				if resp == nil {
					break
				}
				acc = acc[consumed:]
				if wantXIDOK {
					if gotXID, ok := c.codec.ReplyXID(resp); ok && gotXID != wantXID {
						continue // stale/mismatched reply; keep reading
					}
				}
				return *resp, nil
			}
		}
		if err != nil {
			if isTimeout(err) {
				return zero, &Timeout{Phase: PhaseRecv}
			}
			return zero, &TransportError{Phase: PhaseRecv, Err: err}
		}
	}
}

// breakConnection closes slot's socket and marks it Dead if its
// reconnect budget is exhausted (Release then replaces it with a fresh
// slot) or Broken otherwise (Release re-enqueues it as Idle); either
// way its netConn is nil, so ensureConnected re-dials before reuse.
func (c *StreamClient[Req, Resp]) breakConnection(slot *conn) {
	if slot.netConn != nil {
		slot.netConn.Close()
		slot.netConn = nil
	}
	if slot.reconnectTries >= c.reconnectTriesMax {
		slot.state = stateDead
	} else {
		slot.state = stateBroken
	}
}
