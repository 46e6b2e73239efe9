// Package transport implements the connection-pooled, state-machine
// client and accept/dispatch server described in spec.md §4.6–§4.8:
// a protocol-agnostic pool/reconnect/demux core (transport.StreamClient/
// StreamServer) generic over a Codec, plus a UDP client/server for the
// ONC-RPC datagram path. It generalizes the teacher's Client/Server
// (client.go/server.go), which do the same job for one fixed
// protobuf-over-TCP protocol.
package transport

import "fmt"

// Phase names a point in a connection's lifecycle where an operation
// can fail or time out, per spec.md §5's "each of connect/send/recv
// has an independent deadline."
type Phase string

const (
	PhaseConnect Phase = "connect"
	PhaseSend    Phase = "send"
	PhaseRecv    Phase = "recv"
	PhaseClose   Phase = "close"
)

// TransportError reports an I/O failure at a specific phase, wrapping
// the underlying OS/net error. All in-flight requests on the
// connection at the time of failure receive the same TransportError,
// per spec.md §7.
type TransportError struct {
	Phase Phase
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Phase, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports a deadline exceeded at a specific phase. Treated
// identically to TransportError for in-flight failure purposes
// (spec.md §7), but kept as a distinct type so callers can use
// errors.As to special-case retry policy.
type Timeout struct {
	Phase Phase
}

func (e *Timeout) Error() string { return fmt.Sprintf("transport: %s timeout", e.Phase) }

// ErrPoolClosed is returned by Pool.Acquire once Close has been called.
var ErrPoolClosed = fmt.Errorf("transport: pool closed")
