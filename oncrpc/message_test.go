package oncrpc

import (
	"testing"

	"github.com/xtreemfs/goipc/buffer"
	"github.com/xtreemfs/goipc/ipc"
	"github.com/xtreemfs/goipc/xdr"
)

type pingArg struct{ N uint32 }

func (a *pingArg) DecodeXDR(d *xdr.Decoder) error {
	n, err := d.Uint32()
	if err != nil {
		return err
	}
	a.N = n
	return nil
}
func (a *pingArg) EncodeXDR(e *xdr.Encoder) { e.Uint32(a.N) }

type pingReply struct{ Echo uint32 }

func (r *pingReply) DecodeXDR(d *xdr.Decoder) error {
	n, err := d.Uint32()
	if err != nil {
		return err
	}
	r.Echo = n
	return nil
}
func (r *pingReply) EncodeXDR(e *xdr.Encoder) { e.Uint32(r.Echo) }

func TestMessageFactoryDispatch(t *testing.T) {
	f := NewMessageFactory()
	key := ProcKey{Prog: 1, Vers: 1, Proc: 1}
	err := f.Register(key, func(arg *pingArg, reply *pingReply) error {
		reply.Echo = arg.N * 2
		return nil
	}, func() ArgMessage { return new(pingArg) }, func() ArgMessage { return new(pingReply) })
	if err != nil {
		t.Fatalf("unexpected registration error: %v", err)
	}

	buf := buffer.NewSize(16)
	e := xdr.NewEncoder(buf)
	e.Uint32(21)
	d := xdr.NewDecoder(buf)

	resp := f.Dispatch(CallBody{Prog: 1, Vers: 1, Proc: 1}, d)
	if resp.Err != nil {
		t.Fatalf("unexpected dispatch error: %v", resp.Err)
	}
	reply, ok := resp.Reply.(*pingReply)
	if !ok || reply.Echo != 42 {
		t.Fatalf("expected echoed reply 42, got %+v", resp.Reply)
	}
}

func TestMessageFactoryUnknownProcedure(t *testing.T) {
	f := NewMessageFactory()
	buf := buffer.NewSize(4)
	d := xdr.NewDecoder(buf)
	resp := f.Dispatch(CallBody{Prog: 9, Vers: 9, Proc: 9}, d)
	oe, ok := resp.Err.(*Error)
	if !ok || oe.Code != ProcedureUnavailable {
		t.Fatalf("expected ProcedureUnavailable, got %v", resp.Err)
	}
}

func TestRequestRespondsExactlyOnce(t *testing.T) {
	var got ipc.Response
	var calls int
	req := NewRequest(CallBody{Proc: 1}, &pingArg{N: 5}, func(r ipc.Response) {
		calls++
		got = r
	})
	resp := &Response{XID: 1, Reply: &pingReply{Echo: 10}}
	req.Respond(resp)
	req.Respond(resp)
	if calls != 1 {
		t.Fatalf("expected exactly one delivered response, got %d", calls)
	}
	if got.(*Response).Reply.(*pingReply).Echo != 10 {
		t.Fatalf("expected the echoed reply delivered, got %+v", got)
	}
}
