// Package ipc holds the small set of types every protocol package
// (httpmsg, oncrpc, jsonrpc, transport) builds on: the Message/Request/
// Response contracts, the RPC envelope decorators, and the dispatch
// interfaces a caller implements to act as a server.
//
// There is no reference counting here (unlike the yield::ipc C++
// original): ownership is plain Go garbage collection. The one
// invariant spec.md still requires at this layer — a Request's
// response sink is invoked exactly once — is enforced by BaseRequest
// with a finalizer, not by a destructor.
package ipc

import (
	"log"
	"runtime"
	"sync/atomic"
	"time"
)

// Message is the common contract for every business or envelope
// message that flows through goipc. TypeID is a stable 32-bit
// discriminator used by protocol layers for runtime dispatch (e.g. the
// ONC-RPC "proc" number is taken from a request body's TypeID).
type Message interface {
	TypeID() uint32
	TypeName() string
}

// Request is a Message that expects exactly one Response.
type Request interface {
	Message
	CreatedAt() time.Time
	// Respond delivers resp to whoever is waiting on this request. It
	// must be called exactly once; a second call is a programming
	// error and is logged, not panicked, since by the time it happens
	// the first response has already gone out.
	Respond(resp Response)
}

// Response is a Message that answers a Request.
type Response interface {
	Message
}

// RequestHandler is implemented by anything that accepts inbound
// requests — the business-logic object a server is built around.
type RequestHandler interface {
	Handle(req Request)
}

// ResponseHandler is implemented by anything that accepts a response
// to a request it issued — used internally by protocol clients to wire
// a wire-level response back to the caller's Request.Respond.
type ResponseHandler interface {
	Handle(resp Response)
}

// RequestHandlerFunc adapts a function to RequestHandler.
type RequestHandlerFunc func(Request)

func (f RequestHandlerFunc) Handle(req Request) { f(req) }

// BaseRequest is embedded by concrete Request implementations
// (oncrpc.Request, jsonrpc.Request, httpmsg.Request, ...) to get the
// creation timestamp and exactly-once response delivery for free.
type BaseRequest struct {
	created  time.Time
	sink     func(Response)
	sunk     int32 // atomic: 0 = not yet responded, 1 = responded
	typeName string
}

// NewBaseRequest constructs a BaseRequest whose Respond calls sink
// exactly once. typeName is used only in the finalizer's diagnostic.
func NewBaseRequest(typeName string, sink func(Response)) BaseRequest {
	br := BaseRequest{created: time.Now(), sink: sink, typeName: typeName}
	return br
}

// Arm installs the leak-detecting finalizer on owner. Concrete request
// types call this from their constructor with themselves as owner,
// because a finalizer must be registered on the actual heap object
// that will become unreachable, not on the embedded BaseRequest value.
// The finalizer reads the response state through owner rather than
// capturing r: a pointer into owner held by the finalizer would keep
// owner reachable, and the finalizer would never run.
func (r *BaseRequest) Arm(owner any) {
	typeName := r.typeName
	runtime.SetFinalizer(owner, func(o any) {
		if rr, ok := o.(interface{ Responded() bool }); ok && !rr.Responded() {
			log.Printf("ipc: %s dropped without a response; this is a bug in the request handler", typeName)
		}
	})
}

// CreatedAt implements Request.
func (r *BaseRequest) CreatedAt() time.Time { return r.created }

// Respond implements Request's response-sink-called-exactly-once contract.
func (r *BaseRequest) Respond(resp Response) {
	if !atomic.CompareAndSwapInt32(&r.sunk, 0, 1) {
		log.Printf("ipc: %s responded to more than once; ignoring extra response", r.typeName)
		return
	}
	r.sink(resp)
}

// Responded reports whether Respond has already been called.
func (r *BaseRequest) Responded() bool { return atomic.LoadInt32(&r.sunk) != 0 }

// EnvelopeRequest decorates an inner business Request the way
// ONCRPCRequest/JSONRPCRequest decorate a Request in spec.md §3: it
// owns the body and forwards Respond to it after the protocol layer
// has had a chance to re-wrap the Response in its own envelope.
type EnvelopeRequest struct {
	BaseRequest
	typeID   uint32
	typeName string
	body     Request
}

// NewEnvelopeRequest wraps body so that outer.Respond(resp) invokes
// wrapResponse(resp) and delivers the result to body's own sink.
// jsonrpc.Request is built on it; it is exported so other protocol
// glue can reuse it.
func NewEnvelopeRequest(typeID uint32, typeName string, body Request, wrapResponse func(Response) Response) *EnvelopeRequest {
	e := &EnvelopeRequest{typeID: typeID, typeName: typeName, body: body}
	e.BaseRequest = NewBaseRequest(typeName, func(resp Response) {
		body.Respond(wrapResponse(resp))
	})
	e.Arm(e)
	return e
}

func (e *EnvelopeRequest) TypeID() uint32   { return e.typeID }
func (e *EnvelopeRequest) TypeName() string { return e.typeName }

// Body returns the wrapped business request.
func (e *EnvelopeRequest) Body() Request { return e.body }
