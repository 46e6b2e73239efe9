package oncrpc

import (
	"encoding/binary"
	"io"

	"github.com/xtreemfs/goipc/buffer"
)

const lastFragmentBit = uint32(1) << 31

// maxFragment bounds a single fragment's declared length so a
// corrupt/hostile header can't make a reader allocate unbounded
// memory before the first sanity check on real data.
const maxFragment = 64 << 20

// WriteRecord fragments payload into one or more record-marked
// fragments and writes them to w, the last carrying the high bit set,
// per RFC 5531's record marking standard (not specific to any one RPC
// program). A single fragment is used unless payload exceeds
// maxFragment.
func WriteRecord(w io.Writer, payload []byte) error {
	if len(payload) == 0 {
		var hdr [4]byte
		binary.BigEndian.PutUint32(hdr[:], lastFragmentBit)
		_, err := w.Write(hdr[:])
		return err
	}
	for len(payload) > 0 {
		n := len(payload)
		last := true
		if n > maxFragment {
			n = maxFragment
			last = false
		}
		var hdr [4]byte
		header := uint32(n)
		if last {
			header |= lastFragmentBit
		}
		binary.BigEndian.PutUint32(hdr[:], header)
		if _, err := w.Write(hdr[:]); err != nil {
			return err
		}
		if _, err := w.Write(payload[:n]); err != nil {
			return err
		}
		payload = payload[n:]
	}
	return nil
}

// RecordAssembler incrementally reassembles one record-marked message
// from stream bytes, per spec.md §4.5: it accumulates bytes until a
// fragment header is complete, then until that fragment's payload is
// complete, concatenating fragment payloads until the last-fragment
// bit is seen.
type RecordAssembler struct {
	accum   []byte
	payload []byte
}

// Feed appends newly read bytes and reports the assembled message
// once the last fragment has arrived. rest holds any bytes read past
// the message boundary (the start of the next record), to be fed into
// a fresh RecordAssembler.
func (a *RecordAssembler) Feed(newBytes []byte) (message []byte, rest []byte, done bool, err error) {
	a.accum = append(a.accum, newBytes...)
	for {
		if len(a.accum) < 4 {
			return nil, nil, false, nil
		}
		header := binary.BigEndian.Uint32(a.accum[:4])
		length := header &^ lastFragmentBit
		last := header&lastFragmentBit != 0
		if length > maxFragment {
			return nil, nil, false, &ParseFragmentError{Reason: "fragment length exceeds cap"}
		}
		if uint32(len(a.accum)-4) < length {
			return nil, nil, false, nil
		}
		a.payload = append(a.payload, a.accum[4:4+length]...)
		a.accum = a.accum[4+length:]
		if last {
			out := a.payload
			restOut := a.accum
			a.payload = nil
			a.accum = nil
			return out, restOut, true, nil
		}
	}
}

// ParseFragmentError reports a malformed record-marking header.
type ParseFragmentError struct{ Reason string }

func (e *ParseFragmentError) Error() string { return "oncrpc: record marking: " + e.Reason }

// EncodeDatagram renders payload for a single UDP send: ONC-RPC over
// datagram transport carries the XDR message directly, with no record
// marking, per spec.md §4.5.
func EncodeDatagram(payload *buffer.Buffer) []byte {
	return payload.Bytes()
}
