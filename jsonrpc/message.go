package jsonrpc

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/xtreemfs/goipc/buffer"
	"github.com/xtreemfs/goipc/httpmsg"
	"github.com/xtreemfs/goipc/ipc"
)

// Envelope is the JSON-RPC 1.0 wire shape spec.md §4.4/§6 describes:
// {"method": string, "params": [...], "id": value} for a request,
// {"result": value|null, "error": value|null, "id": value} for a
// response. id is carried opaquely and simply echoed back.
type Envelope struct {
	Method *Value // request only
	Params *Value // request only
	Result *Value // response only
	Error  *Value // response only
	ID     *Value
}

// MarshalRequest serializes method, params and id as a JSON-RPC
// request envelope.
func MarshalRequest(method string, params *Value, id *Value) []byte {
	w := NewWriter()
	w.Write(NewObject(
		Member{"method", NewString(method)},
		Member{"params", params},
		Member{"id", id},
	))
	return w.Bytes()
}

// MarshalResponse serializes a JSON-RPC response envelope. Exactly
// one of result/errVal should be non-nil; the other is encoded as
// JSON null, per spec.md §6.
func MarshalResponse(result, errVal, id *Value) []byte {
	if result == nil {
		result = Null
	}
	if errVal == nil {
		errVal = Null
	}
	w := NewWriter()
	w.Write(NewObject(
		Member{"result", result},
		Member{"error", errVal},
		Member{"id", id},
	))
	return w.Bytes()
}

// ParseEnvelope parses raw JSON bytes as a generic request-or-response
// envelope; callers distinguish by which fields are present.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	v, err := NewParser(raw).Parse()
	if err != nil {
		return nil, err
	}
	if v.Kind != KindObject {
		return nil, &ParseError{0, "JSON-RPC envelope must be an object"}
	}
	return &Envelope{
		Method: v.Get("method"),
		Params: v.Get("params"),
		Result: v.Get("result"),
		Error:  v.Get("error"),
		ID:     v.Get("id"),
	}, nil
}

// ArgValue is implemented by business message types carried inside
// JSON-RPC params/result, paralleling oncrpc's ArgMessage but over the
// Value tree instead of XDR.
type ArgValue interface {
	FromJSON(v *Value) error
	ToJSON() *Value
}

type methodEntry struct {
	fn       reflect.Value
	newArg   func() ArgValue
	newReply func() ArgValue
}

// MessageFactory maps a "Service.Method" name to its registered
// handler, exactly as oncrpc.MessageFactory maps a (prog,vers,proc)
// triple — both generalize the teacher's service.go reflection
// dispatch to this module's own procedure-keying scheme.
type MessageFactory struct {
	methods map[string]*methodEntry
}

// NewMessageFactory returns an empty factory.
func NewMessageFactory() *MessageFactory {
	return &MessageFactory{methods: make(map[string]*methodEntry)}
}

// Register binds name ("Service.Method") to handler, a
// func(*Arg, *Reply) error value.
func (f *MessageFactory) Register(name string, handler interface{}, newArg, newReply func() ArgValue) error {
	fv := reflect.ValueOf(handler)
	ft := fv.Type()
	if ft.Kind() != reflect.Func || ft.NumIn() != 2 || ft.NumOut() != 1 {
		return fmt.Errorf("jsonrpc: handler for %s must be func(*Arg, *Reply) error", name)
	}
	if ft.Out(0) != reflect.TypeOf((*error)(nil)).Elem() {
		return fmt.Errorf("jsonrpc: handler for %s must return error", name)
	}
	f.methods[name] = &methodEntry{fn: fv, newArg: newArg, newReply: newReply}
	return nil
}

// Dispatch decodes params per the registered ArgType, invokes the
// handler, and returns the reply value tree (or an error to report in
// the response envelope's "error" field instead).
func (f *MessageFactory) Dispatch(method string, params *Value) (*Value, error) {
	m, ok := f.methods[method]
	if !ok {
		return nil, fmt.Errorf("jsonrpc: unknown method %q", method)
	}
	arg := m.newArg()
	if err := arg.FromJSON(params); err != nil {
		return nil, err
	}
	reply := m.newReply()
	out := m.fn.Call([]reflect.Value{reflect.ValueOf(arg), reflect.ValueOf(reply)})
	if errIface := out[0].Interface(); errIface != nil {
		return nil, errIface.(error)
	}
	return reply.ToJSON(), nil
}

// Request wraps one decoded JSON-RPC call via ipc.EnvelopeRequest, so
// Respond
// re-marshals the business reply into the full response envelope
// before handing it to the underlying HTTP response sink.
type Request struct {
	*ipc.EnvelopeRequest
	Method string
	Params *Value
	ID     *Value
}

// bodyRequest adapts an httpmsg.Request into an ipc.Request so it can
// be wrapped by ipc.EnvelopeRequest; its Respond is the HTTP-level
// sink that actually writes bytes back to the connection.
type bodyRequest struct {
	ipc.BaseRequest
}

func (b *bodyRequest) TypeID() uint32   { return 0 }
func (b *bodyRequest) TypeName() string { return "jsonrpc.httpBody" }

// NewRequest parses httpReq's body as a JSON-RPC envelope and returns
// a Request whose Respond writes an httpmsg.Response with the
// serialized result/error envelope back through sink.
func NewRequest(httpReq *httpmsg.Request, sink func(*httpmsg.Response)) (*Request, error) {
	var raw []byte
	if httpReq.Body() != nil {
		raw = httpReq.Body().Bytes()
	}
	env, err := ParseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	if env.Method == nil || env.Method.Kind != KindString {
		return nil, &ParseError{0, "missing or non-string \"method\""}
	}

	body := &bodyRequest{}
	body.BaseRequest = ipc.NewBaseRequest("jsonrpc.httpBody", func(r ipc.Response) {
		jr := r.(*Response)
		body := MarshalResponse(jr.Result, jr.Error, jr.ID)
		resp := httpmsg.NewResponse(200, buffer.New(body))
		resp.SetField("Content-Type", "application/json")
		resp.SetField("Content-Length", strconv.Itoa(len(body)))
		sink(resp)
	})
	body.Arm(body)

	envReq := ipc.NewEnvelopeRequest(0, "jsonrpc.Request", body, func(r ipc.Response) ipc.Response { return r })
	return &Request{EnvelopeRequest: envReq, Method: env.Method.Str, Params: env.Params, ID: env.ID}, nil
}

// Response carries the result/error value pair to serialize back into
// a JSON-RPC response envelope.
type Response struct {
	Result *Value
	Error  *Value
	ID     *Value
}

func (r *Response) TypeID() uint32   { return 0 }
func (r *Response) TypeName() string { return "jsonrpc.Response" }
