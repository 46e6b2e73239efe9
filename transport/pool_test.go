package transport

import (
	"context"
	"net"
	"testing"
	"time"
)

type fakeDialer struct{ addr string }

func (d *fakeDialer) DialContext(ctx context.Context) (net.Conn, error) {
	client, server := net.Pipe()
	go server.Close()
	return client, nil
}
func (d *fakeDialer) Addr() string { return d.addr }

func TestPoolAcquireReleaseRoundTrip(t *testing.T) {
	p := NewPool(2, &fakeDialer{addr: "x"})
	ctx := context.Background()

	c1, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if c1.state != stateInUse {
		t.Fatalf("expected stateInUse, got %v", c1.state)
	}
	p.Release(c1)
	if c1.state != stateIdle {
		t.Fatalf("expected stateIdle after release, got %v", c1.state)
	}

	c2, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	p.Release(c2)
}

func TestPoolAcquireBlocksUntilAvailable(t *testing.T) {
	p := NewPool(1, &fakeDialer{addr: "x"})
	ctx := context.Background()

	c1, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	done := make(chan struct{})
	go func() {
		c2, err := p.Acquire(ctx)
		if err != nil {
			t.Errorf("blocked Acquire: %v", err)
		}
		p.Release(c2)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second Acquire returned before slot was released")
	case <-time.After(50 * time.Millisecond):
	}

	p.Release(c1)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second Acquire never unblocked after release")
	}
}

func TestPoolAcquireRespectsContextCancellation(t *testing.T) {
	p := NewPool(1, &fakeDialer{addr: "x"})
	ctx := context.Background()
	c1, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer p.Release(c1)

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := p.Acquire(cctx); err == nil {
		t.Fatal("expected context deadline error, got nil")
	}
}

func TestPoolCloseRejectsFurtherAcquire(t *testing.T) {
	p := NewPool(1, &fakeDialer{addr: "x"})
	p.Close()
	if _, err := p.Acquire(context.Background()); err != ErrPoolClosed {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
}

func TestPoolReleaseDeadSlotReplacesWithFresh(t *testing.T) {
	p := NewPool(1, &fakeDialer{addr: "x"})
	c1, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	c1.state = stateDead
	p.Release(c1)

	c2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("re-Acquire: %v", err)
	}
	if c2.state != stateInUse || c2.netConn != nil {
		t.Fatalf("expected a fresh unconnected slot, got state=%v netConn=%v", c2.state, c2.netConn)
	}
}
