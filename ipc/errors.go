package ipc

// ApplicationError carries a business-level failure transparently
// through the RPC envelope back to the caller's normal response sink,
// as opposed to a ParseError/TransportError/Timeout/ProtocolError
// which fail the request out-of-band. Protocol layers that need to
// signal "the call succeeded as a call, but the handler returned an
// error" wrap it in an ApplicationError response.
type ApplicationError struct {
	Op      string
	Message string
}

func (e *ApplicationError) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return e.Op + ": " + e.Message
}

// TypeID/TypeName let ApplicationError satisfy Response so it can flow
// through the same Respond(Response) path as any successful reply.
const ApplicationErrorTypeID uint32 = 1

func (e *ApplicationError) TypeID() uint32   { return ApplicationErrorTypeID }
func (e *ApplicationError) TypeName() string { return "ApplicationError" }
