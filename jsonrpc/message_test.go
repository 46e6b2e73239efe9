package jsonrpc

import (
	"testing"

	"github.com/xtreemfs/goipc/buffer"
	"github.com/xtreemfs/goipc/httpmsg"
)

type statArg struct{ Path string }

func (a *statArg) FromJSON(v *Value) error {
	if v == nil || v.Kind != KindArray || len(v.Array) != 1 {
		return &ParseError{0, "expected [path]"}
	}
	a.Path = v.Array[0].Str
	return nil
}
func (a *statArg) ToJSON() *Value { return NewString(a.Path) }

type statReply struct{ Size float64 }

func (r *statReply) FromJSON(v *Value) error {
	r.Size = v.Number
	return nil
}
func (r *statReply) ToJSON() *Value { return NewNumber(r.Size) }

func TestMessageFactoryDispatch(t *testing.T) {
	f := NewMessageFactory()
	err := f.Register("Volume.Stat", func(arg *statArg, reply *statReply) error {
		reply.Size = float64(len(arg.Path))
		return nil
	}, func() ArgValue { return new(statArg) }, func() ArgValue { return new(statReply) })
	if err != nil {
		t.Fatalf("unexpected registration error: %v", err)
	}

	params := NewArray(NewString("/foo/bar"))
	result, err := f.Dispatch("Volume.Stat", params)
	if err != nil {
		t.Fatalf("unexpected dispatch error: %v", err)
	}
	if result.Number != 8 {
		t.Fatalf("expected size 8, got %v", result.Number)
	}
}

func TestMessageFactoryUnknownMethod(t *testing.T) {
	f := NewMessageFactory()
	_, err := f.Dispatch("Nope.Method", nil)
	if err == nil {
		t.Fatal("expected an error for an unregistered method")
	}
}

func TestNewRequestParsesEnvelopeAndRespondsOnce(t *testing.T) {
	body := MarshalRequest("Volume.Stat", NewArray(NewString("/x")), NewNumber(1))
	httpReq := httpmsg.NewRequest("POST", "/JSONRPC", buffer.New(body))
	httpReq.SetField("Content-Type", "application/json")

	var calls int
	var gotResp *httpmsg.Response
	req, err := NewRequest(httpReq, func(r *httpmsg.Response) {
		calls++
		gotResp = r
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Method != "Volume.Stat" {
		t.Fatalf("expected method Volume.Stat, got %q", req.Method)
	}

	req.Respond(&Response{Result: NewNumber(42), ID: req.ID})
	req.Respond(&Response{Result: NewNumber(99), ID: req.ID})

	if calls != 1 {
		t.Fatalf("expected exactly one HTTP response written, got %d", calls)
	}
	env, err := ParseEnvelope(gotResp.Body().Bytes())
	if err != nil {
		t.Fatalf("unexpected error parsing response body: %v", err)
	}
	if env.Result.Number != 42 {
		t.Fatalf("expected result 42, got %+v", env.Result)
	}
}
