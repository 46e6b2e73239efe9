package transport

import (
	"context"
	"net"
	"sync/atomic"
)

// connState is the per-connection lifecycle spec.md §4.6 names:
// Fresh → Connecting → Idle ↔ InUse → {Idle | Broken → (retries<max?
// Connecting : Dead)}.
type connState int32

const (
	stateFresh connState = iota
	stateConnecting
	stateIdle
	stateInUse
	stateBroken
	stateDead
)

// conn is one pooled connection slot. It may not yet hold a live
// net.Conn (stateFresh): dialing happens lazily on first use, the way
// the teacher's Client dials once in Dial and then reuses the same
// socket for the life of the Client.
type conn struct {
	netConn        net.Conn
	state          connState
	reconnectTries int
}

// Pool is the bounded, synchronized FIFO of connections spec.md §5
// describes: "the connection pool is a synchronized FIFO — the only
// cross-thread mutation points are enqueue/dequeue," implemented here
// as a buffered channel so enqueue/dequeue are the channel send/
// receive and nothing else needs a lock.
type Pool struct {
	slots  chan *conn
	dialer Dialer
	closed int32
}

// NewPool returns a Pool of size concurrency_level, each slot starting
// in stateFresh (not yet dialed).
func NewPool(size int, dialer Dialer) *Pool {
	p := &Pool{slots: make(chan *conn, size), dialer: dialer}
	for i := 0; i < size; i++ {
		p.slots <- &conn{state: stateFresh}
	}
	return p
}

// Acquire dequeues a connection slot, blocking cooperatively until one
// is available or ctx is canceled — Open Question (a)'s resolution in
// DESIGN.md.
func (p *Pool) Acquire(ctx context.Context) (*conn, error) {
	if atomic.LoadInt32(&p.closed) != 0 {
		return nil, ErrPoolClosed
	}
	select {
	case c, ok := <-p.slots:
		if !ok {
			return nil, ErrPoolClosed
		}
		c.state = stateInUse
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns c to the pool, marking it Idle unless it is Dead (in
// which case a fresh slot takes its place so the pool never shrinks).
func (p *Pool) Release(c *conn) {
	if c.state == stateDead {
		if c.netConn != nil {
			c.netConn.Close()
		}
		c = &conn{state: stateFresh}
	} else {
		c.state = stateIdle
	}
	select {
	case p.slots <- c:
	default:
		// Pool over-full (shouldn't happen: Acquire/Release are
		// balanced) — drop the connection rather than block the
		// releasing goroutine forever.
		if c.netConn != nil {
			c.netConn.Close()
		}
	}
}

// Close marks the pool closed; any connection already enqueued is
// closed, and further Acquire calls fail with ErrPoolClosed.
func (p *Pool) Close() {
	if !atomic.CompareAndSwapInt32(&p.closed, 0, 1) {
		return
	}
	close(p.slots)
	for c := range p.slots {
		if c.netConn != nil {
			c.netConn.Close()
		}
	}
}
