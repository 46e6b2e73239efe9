package oncrpc

import (
	"fmt"
	"reflect"

	"github.com/xtreemfs/goipc/ipc"
	"github.com/xtreemfs/goipc/xdr"
)

// Factory keys identify a registered business message type the way a
// CallBody's (prog, vers, proc) triple does.
type ProcKey struct {
	Prog, Vers, Proc uint32
}

func (k ProcKey) String() string {
	return fmt.Sprintf("%d.%d.%d", k.Prog, k.Vers, k.Proc)
}

// ArgMessage is implemented by generated/hand-written business
// message types: they know how to lay their own fields out on the
// wire via the shared xdr visitor.
type ArgMessage interface {
	DecodeXDR(d *xdr.Decoder) error
	EncodeXDR(e *xdr.Encoder)
}

// methodEntry mirrors the teacher's service.methodType: it pairs a
// registered handler (found by reflection over a Go struct whose
// exported methods each take (ArgType, ReplyType) and return error)
// with the XDR message constructors for those two types.
type methodEntry struct {
	fn        reflect.Value
	newArg    func() ArgMessage
	newReply  func() ArgMessage
}

// MessageFactory maps (prog, vers, proc) to the handler + message
// constructors registered for it, populated once at construction and
// read thereafter without locking, per spec.md §5 "MessageFactory is
// read-only at steady state".
type MessageFactory struct {
	methods map[ProcKey]*methodEntry
}

// NewMessageFactory returns an empty factory; call Register for each
// procedure before handing it to a server or client.
func NewMessageFactory() *MessageFactory {
	return &MessageFactory{methods: make(map[ProcKey]*methodEntry)}
}

// Register binds key to handler, a func(*ArgType, *ReplyType) error
// value, exactly as the teacher's service.registerMethods binds a
// reflect.Method meeting the same shape. newArg/newReply construct
// zero-valued business messages implementing ArgMessage.
func (f *MessageFactory) Register(key ProcKey, handler interface{}, newArg, newReply func() ArgMessage) error {
	fv := reflect.ValueOf(handler)
	ft := fv.Type()
	if ft.Kind() != reflect.Func || ft.NumIn() != 2 || ft.NumOut() != 1 {
		return fmt.Errorf("oncrpc: handler for %s must be func(*Arg, *Reply) error", key)
	}
	if ft.Out(0) != reflect.TypeOf((*error)(nil)).Elem() {
		return fmt.Errorf("oncrpc: handler for %s must return error", key)
	}
	f.methods[key] = &methodEntry{fn: fv, newArg: newArg, newReply: newReply}
	return nil
}

// Dispatch decodes a call's arguments per the registered ArgType and
// invokes the handler through a Request, so the same exactly-once-
// response contract and finalizer leak detection ipc.BaseRequest gives
// jsonrpc.Request also covers the ONC-RPC stream and UDP server
// codecs; both call Dispatch directly from ParseRequest, so this is
// where the Request gets armed for both transports at once. It
// returns the fully-built wire Response synchronously, since every
// registered handler responds before Dispatch returns.
func (f *MessageFactory) Dispatch(call CallBody, d *xdr.Decoder) *Response {
	key := ProcKey{call.Prog, call.Vers, call.Proc}
	m, ok := f.methods[key]
	if !ok {
		return &Response{XID: call.XID, Verf: Auth{Flavor: AuthNone}, Err: &Error{Code: ProcedureUnavailable}}
	}
	arg := m.newArg()
	if err := arg.DecodeXDR(d); err != nil {
		return &Response{XID: call.XID, Verf: Auth{Flavor: AuthNone}, Err: &Error{Code: GarbageArguments}}
	}

	var resp *Response
	req := NewRequest(call, arg, func(r ipc.Response) { resp = r.(*Response) })

	reply := m.newReply()
	out := m.fn.Call([]reflect.Value{reflect.ValueOf(arg), reflect.ValueOf(reply)})
	result := &Response{XID: call.XID, Verf: Auth{Flavor: AuthNone}}
	if errIface := out[0].Interface(); errIface != nil {
		result.Err = errIface.(error)
	} else {
		result.Reply = reply
	}
	req.Respond(result)
	return resp
}

// Request is the ipc.Request wrapping one decoded ONC-RPC call and its
// registered handler's eventual answer. MessageFactory.Dispatch arms
// and responds to one of these for every call it handles, so a
// handler path that somehow returns without calling Respond (a bug,
// since Dispatch always calls it exactly once today) is still caught
// by ipc.BaseRequest's finalizer instead of silently dropping the
// caller's reply.
type Request struct {
	ipc.BaseRequest
	Call CallBody
	Arg  ArgMessage
}

// NewRequest wraps a decoded call for dispatch through a
// RequestHandler. sink is called with exactly one Response.
func NewRequest(call CallBody, arg ArgMessage, sink func(ipc.Response)) *Request {
	r := &Request{BaseRequest: ipc.NewBaseRequest("oncrpc.Request", sink), Call: call, Arg: arg}
	r.Arm(r)
	return r
}

func (r *Request) TypeID() uint32   { return r.Call.Proc }
func (r *Request) TypeName() string { return "oncrpc.Request" }

// Response carries either a successful reply message or an ONC-RPC
// level error to encode in its place.
type Response struct {
	XID   uint32
	Verf  Auth
	Reply ArgMessage
	Err   error
}

func (r *Response) TypeID() uint32   { return 0 }
func (r *Response) TypeName() string { return "oncrpc.Response" }

// Encode writes the full reply envelope (and, on success, the reply
// message body) to e.
func (r *Response) Encode(e *xdr.Encoder) {
	if r.Err == nil {
		EncodeAcceptedSuccess(e, r.XID, r.Verf)
		if r.Reply != nil {
			r.Reply.EncodeXDR(e)
		}
		return
	}
	var oe *Error
	if as, ok := r.Err.(*Error); ok {
		oe = as
	} else {
		oe = &Error{Code: System}
	}
	switch oe.Code {
	case RpcMismatch:
		EncodeDeniedRPCMismatch(e, r.XID, oe.Low, oe.High)
	case AuthError:
		EncodeDeniedAuthError(e, r.XID, oe.AuthStat)
	default:
		EncodeAcceptedError(e, r.XID, r.Verf, oe.Code, oe.Low, oe.High)
	}
}
