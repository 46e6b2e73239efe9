package oncrpc

import "testing"

func newClientCall(xid uint32, n uint32) Call {
	return Call{
		Body:     CallBody{XID: xid, Prog: 1, Vers: 1, Proc: 1},
		Arg:      &pingArg{N: n},
		NewReply: func() ArgMessage { return &pingReply{} },
	}
}

func TestClientServerCodecRoundTrip(t *testing.T) {
	factory := NewMessageFactory()
	err := factory.Register(ProcKey{Prog: 1, Vers: 1, Proc: 1}, func(arg *pingArg, reply *pingReply) error {
		reply.Echo = arg.N * 2
		return nil
	}, func() ArgMessage { return &pingArg{} }, func() ArgMessage { return &pingReply{} })
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	client := NewClientCodec()
	wire := client.Marshal(newClientCall(7, 21))

	server := NewServerCodec(factory)
	var acc []byte
	for _, b := range wire {
		acc = append(acc, b.Bytes()...)
	}
	resp, consumed, err := server.ParseRequest(acc)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if resp == nil {
		t.Fatal("expected a complete request to parse")
	}
	if consumed != len(acc) {
		t.Fatalf("expected to consume all %d bytes, consumed %d", len(acc), consumed)
	}
	if resp.XID != 7 || resp.Err != nil {
		t.Fatalf("unexpected response %+v", resp)
	}
	if got := resp.Reply.(*pingReply).Echo; got != 42 {
		t.Fatalf("expected echo 42, got %d", got)
	}

	replyWire := server.Marshal(*resp)
	var replyAcc []byte
	for _, b := range replyWire {
		replyAcc = append(replyAcc, b.Bytes()...)
	}
	parsed, consumed2, err := client.ParseResponse(replyAcc)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if parsed == nil {
		t.Fatal("expected a complete reply to parse")
	}
	if consumed2 != len(replyAcc) {
		t.Fatalf("expected to consume all %d bytes, consumed %d", len(replyAcc), consumed2)
	}
	if parsed.XID != 7 {
		t.Fatalf("expected xid 7, got %d", parsed.XID)
	}
	if got := parsed.Reply.(*pingReply).Echo; got != 42 {
		t.Fatalf("expected decoded echo 42, got %d", got)
	}
}

func TestServerCodecUnknownProcedureReturnsError(t *testing.T) {
	factory := NewMessageFactory()
	client := NewClientCodec()
	wire := client.Marshal(newClientCall(3, 1))

	server := NewServerCodec(factory)
	var acc []byte
	for _, b := range wire {
		acc = append(acc, b.Bytes()...)
	}
	resp, _, err := server.ParseRequest(acc)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if resp.Err == nil {
		t.Fatal("expected a ProcedureUnavailable error response")
	}
	if oe, ok := resp.Err.(*Error); !ok || oe.Code != ProcedureUnavailable {
		t.Fatalf("expected ProcedureUnavailable, got %v", resp.Err)
	}
}
