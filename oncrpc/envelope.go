package oncrpc

import (
	"github.com/xtreemfs/goipc/xdr"
)

// Message type discriminants (RFC 5531 §9).
const (
	msgTypeCall  = 0
	msgTypeReply = 1
)

// reply_stat (RFC 5531 §9).
const (
	msgAccepted = 0
	msgDenied   = 1
)

// accept_stat.
const (
	acceptSuccess        = 0
	acceptProgUnavail    = 1
	acceptProgMismatch   = 2
	acceptProcUnavail    = 3
	acceptGarbageArgs    = 4
	acceptSystemErr      = 5
)

// reject_stat.
const (
	rejectRPCMismatch = 0
	rejectAuthError   = 1
)

const (
	rpcvers = 2
)

// AuthFlavor identifies how Cred/Verf opaque bodies should be
// interpreted. Only AUTH_NONE, AUTH_SYS and AUTH_SHORT are recognized
// at the envelope level; any other flavor is passed through opaquely,
// per spec.md §6.
type AuthFlavor uint32

const (
	AuthNone  AuthFlavor = 0
	AuthSys   AuthFlavor = 1
	AuthShort AuthFlavor = 2
)

// Auth is an opaque_auth value (flavor + opaque body), used for both
// cred and verf fields.
type Auth struct {
	Flavor AuthFlavor
	Body   []byte
}

func (a Auth) encode(e *xdr.Encoder) {
	e.Uint32(uint32(a.Flavor))
	e.VarOpaque(a.Body)
}

func decodeAuth(d *xdr.Decoder) (Auth, error) {
	flavor, err := d.Uint32()
	if err != nil {
		return Auth{}, err
	}
	body, err := d.VarOpaque()
	if err != nil {
		return Auth{}, err
	}
	return Auth{Flavor: AuthFlavor(flavor), Body: body}, nil
}

// CallBody is the RFC 5531 call_body: everything preceding the
// procedure-specific arguments.
type CallBody struct {
	XID  uint32
	Prog uint32
	Vers uint32
	Proc uint32
	Cred Auth
	Verf Auth
}

// EncodeCallHeader writes xid, msg_type=CALL, rpcvers and the rest of
// call_body up to (not including) the procedure arguments, which the
// caller appends to the same encoder.
func EncodeCallHeader(e *xdr.Encoder, c CallBody) {
	e.Uint32(c.XID)
	e.Uint32(msgTypeCall)
	e.Uint32(rpcvers)
	e.Uint32(c.Prog)
	e.Uint32(c.Vers)
	e.Uint32(c.Proc)
	c.Cred.encode(e)
	c.Verf.encode(e)
}

// decodeCallBodyAfterXID reads rpcvers through cred/verf. It assumes
// the xid and msg_type words have already been consumed and msg_type
// confirmed as CALL by the caller; see ReadCall for the combined
// helper most callers want.
func decodeCallBodyAfterXID(d *xdr.Decoder, xid uint32) (CallBody, error) {
	rv, err := d.Uint32()
	if err != nil {
		return CallBody{}, err
	}
	if rv != rpcvers {
		return CallBody{}, &Error{Code: RpcMismatch, Low: rpcvers, High: rpcvers}
	}
	prog, err := d.Uint32()
	if err != nil {
		return CallBody{}, err
	}
	vers, err := d.Uint32()
	if err != nil {
		return CallBody{}, err
	}
	proc, err := d.Uint32()
	if err != nil {
		return CallBody{}, err
	}
	cred, err := decodeAuth(d)
	if err != nil {
		return CallBody{}, err
	}
	verf, err := decodeAuth(d)
	if err != nil {
		return CallBody{}, err
	}
	return CallBody{XID: xid, Prog: prog, Vers: vers, Proc: proc, Cred: cred, Verf: verf}, nil
}

// ReadCall decodes xid, confirms msg_type == CALL, and returns the
// remaining call_body fields. The procedure arguments follow in d and
// are decoded by the caller via a MessageFactory-produced Request.
func ReadCall(d *xdr.Decoder) (CallBody, error) {
	xid, err := d.Uint32()
	if err != nil {
		return CallBody{}, err
	}
	mtype, err := d.Uint32()
	if err != nil {
		return CallBody{}, err
	}
	if mtype != msgTypeCall {
		return CallBody{}, &Error{Code: RpcMismatch}
	}
	return decodeCallBodyAfterXID(d, xid)
}

// ReplyBody is the result of decoding an RFC 5531 reply_body: either a
// successful MSG_ACCEPTED/SUCCESS (Err == nil, business result bytes
// follow in the decoder for the caller to consume), or a non-nil Err
// describing MSG_DENIED or a non-SUCCESS accept_stat.
type ReplyBody struct {
	XID  uint32
	Verf Auth
	Err  error // nil on success
}

// EncodeAcceptedSuccess writes a full MSG_ACCEPTED/SUCCESS reply
// envelope; the caller appends the marshaled result after calling
// this.
func EncodeAcceptedSuccess(e *xdr.Encoder, xid uint32, verf Auth) {
	e.Uint32(xid)
	e.Uint32(msgTypeReply)
	e.Uint32(msgAccepted)
	verf.encode(e)
	e.Uint32(acceptSuccess)
}

// EncodeAcceptedError writes a full MSG_ACCEPTED reply whose
// accept_stat is not SUCCESS (PROG_MISMATCH carries low/high; the
// other accept errors carry nothing further).
func EncodeAcceptedError(e *xdr.Encoder, xid uint32, verf Auth, code ErrorCode, low, high uint32) {
	e.Uint32(xid)
	e.Uint32(msgTypeReply)
	e.Uint32(msgAccepted)
	verf.encode(e)
	e.Uint32(acceptStatFor(code))
	if code == ProgramMismatch {
		e.Uint32(low)
		e.Uint32(high)
	}
}

// EncodeDeniedRPCMismatch writes a full MSG_DENIED/RPC_MISMATCH reply.
func EncodeDeniedRPCMismatch(e *xdr.Encoder, xid uint32, low, high uint32) {
	e.Uint32(xid)
	e.Uint32(msgTypeReply)
	e.Uint32(msgDenied)
	e.Uint32(rejectRPCMismatch)
	e.Uint32(low)
	e.Uint32(high)
}

// EncodeDeniedAuthError writes a full MSG_DENIED/AUTH_ERROR reply.
func EncodeDeniedAuthError(e *xdr.Encoder, xid uint32, authStat uint32) {
	e.Uint32(xid)
	e.Uint32(msgTypeReply)
	e.Uint32(msgDenied)
	e.Uint32(rejectAuthError)
	e.Uint32(authStat)
}

func acceptStatFor(code ErrorCode) uint32 {
	switch code {
	case ProgramUnavailable:
		return acceptProgUnavail
	case ProgramMismatch:
		return acceptProgMismatch
	case ProcedureUnavailable:
		return acceptProcUnavail
	case GarbageArguments:
		return acceptGarbageArgs
	case System:
		return acceptSystemErr
	default:
		return acceptSystemErr
	}
}

// DecodeReply reads xid through reply_stat and, for MSG_ACCEPTED
// replies, through accept_stat (and low/high for PROG_MISMATCH),
// leaving the decoder positioned at the start of the business result
// on success. For MSG_DENIED and non-SUCCESS MSG_ACCEPTED replies,
// ReplyBody.Err is set and there are no further bytes to decode.
func DecodeReply(d *xdr.Decoder) (ReplyBody, error) {
	xid, err := d.Uint32()
	if err != nil {
		return ReplyBody{}, err
	}
	mtype, err := d.Uint32()
	if err != nil {
		return ReplyBody{}, err
	}
	if mtype != msgTypeReply {
		return ReplyBody{}, &Error{Code: RpcMismatch}
	}
	stat, err := d.Uint32()
	if err != nil {
		return ReplyBody{}, err
	}
	if stat == msgDenied {
		reason, err := d.Uint32()
		if err != nil {
			return ReplyBody{}, err
		}
		if reason == rejectRPCMismatch {
			low, err := d.Uint32()
			if err != nil {
				return ReplyBody{}, err
			}
			high, err := d.Uint32()
			if err != nil {
				return ReplyBody{}, err
			}
			return ReplyBody{XID: xid, Err: &Error{Code: RpcMismatch, Low: low, High: high}}, nil
		}
		authStat, err := d.Uint32()
		if err != nil {
			return ReplyBody{}, err
		}
		return ReplyBody{XID: xid, Err: &Error{Code: AuthError, AuthStat: authStat}}, nil
	}

	verf, err := decodeAuth(d)
	if err != nil {
		return ReplyBody{}, err
	}
	astat, err := d.Uint32()
	if err != nil {
		return ReplyBody{}, err
	}
	switch astat {
	case acceptSuccess:
		return ReplyBody{XID: xid, Verf: verf, Err: nil}, nil
	case acceptProgMismatch:
		low, err := d.Uint32()
		if err != nil {
			return ReplyBody{}, err
		}
		high, err := d.Uint32()
		if err != nil {
			return ReplyBody{}, err
		}
		return ReplyBody{XID: xid, Verf: verf, Err: &Error{Code: ProgramMismatch, Low: low, High: high}}, nil
	default:
		return ReplyBody{XID: xid, Verf: verf, Err: &Error{Code: acceptErrorCode(astat)}}, nil
	}
}

func acceptErrorCode(astat uint32) ErrorCode {
	switch astat {
	case acceptProgUnavail:
		return ProgramUnavailable
	case acceptProcUnavail:
		return ProcedureUnavailable
	case acceptGarbageArgs:
		return GarbageArguments
	default:
		return System
	}
}
