package volumepb

import (
	"testing"

	"github.com/xtreemfs/goipc/buffer"
	"github.com/xtreemfs/goipc/jsonrpc"
	"github.com/xtreemfs/goipc/xdr"
)

func TestVolumeServiceStatOncRPC(t *testing.T) {
	svc := NewVolumeService()
	arg := &StatArg{Path: "/README"}
	var reply StatReply
	if err := svc.StatOncRPC(arg, &reply); err != nil {
		t.Fatalf("StatOncRPC: %v", err)
	}
	if reply.SizeBytes != 482 || reply.IsDir {
		t.Fatalf("unexpected reply %+v", reply)
	}
}

func TestVolumeServiceStatOncRPCUnknownPath(t *testing.T) {
	svc := NewVolumeService()
	var reply StatReply
	if err := svc.StatOncRPC(&StatArg{Path: "/nope"}, &reply); err == nil {
		t.Fatal("expected an error for an unknown path")
	}
}

func TestStatArgReplyXDRRoundTrip(t *testing.T) {
	e := xdr.NewEncoder(buffer.NewSize(64))
	want := StatArg{Path: "/objects"}
	want.EncodeXDR(e)

	var got StatArg
	d := xdr.NewDecoder(buffer.New(e.Buffer().All()))
	if err := got.DecodeXDR(d); err != nil {
		t.Fatalf("DecodeXDR: %v", err)
	}
	if got.Path != want.Path {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	e2 := xdr.NewEncoder(buffer.NewSize(64))
	wantReply := StatReply{SizeBytes: 1 << 20, IsDir: true}
	wantReply.EncodeXDR(e2)

	var gotReply StatReply
	d2 := xdr.NewDecoder(buffer.New(e2.Buffer().All()))
	if err := gotReply.DecodeXDR(d2); err != nil {
		t.Fatalf("DecodeXDR: %v", err)
	}
	if gotReply != wantReply {
		t.Fatalf("got %+v, want %+v", gotReply, wantReply)
	}
}

func TestVolumeServiceStatJSONRPC(t *testing.T) {
	svc := NewVolumeService()
	arg := &JSONStatArg{Path: "/"}
	var reply JSONStatReply
	if err := svc.StatJSONRPC(arg, &reply); err != nil {
		t.Fatalf("StatJSONRPC: %v", err)
	}
	if !reply.IsDir || reply.SizeBytes != 0 {
		t.Fatalf("unexpected reply %+v", reply)
	}
}

func TestJSONStatArgReplyRoundTrip(t *testing.T) {
	arg := &JSONStatArg{Path: "/README"}
	var got JSONStatArg
	if err := got.FromJSON(arg.ToJSON()); err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.Path != arg.Path {
		t.Fatalf("got %q, want %q", got.Path, arg.Path)
	}

	reply := &JSONStatReply{SizeBytes: 482, IsDir: false}
	var gotReply JSONStatReply
	if err := gotReply.FromJSON(reply.ToJSON()); err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if gotReply != *reply {
		t.Fatalf("got %+v, want %+v", gotReply, *reply)
	}
}

func TestJSONStatArgRejectsMissingPath(t *testing.T) {
	var a JSONStatArg
	if err := a.FromJSON(jsonrpc.NewObject()); err == nil {
		t.Fatal("expected an error for missing \"path\"")
	}
}
