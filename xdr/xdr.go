// Package xdr implements the subset of External Data Representation
// (RFC 4506) that the ONC-RPC envelope in package oncrpc needs:
// unsigned integers, opaque byte strings (fixed and variable length)
// and XDR strings, all padded to 4-byte boundaries. It is the concrete
// Marshaller/Unmarshaller visitor that spec.md treats as an external
// collaborator for business-message payloads — oncrpc uses it directly
// for the envelope fields it owns (xid, prog, vers, proc, ...).
package xdr

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/xtreemfs/goipc/buffer"
)

// ErrTruncated is returned when a Decoder runs out of input mid-field.
var ErrTruncated = errors.New("xdr: truncated input")

// Encoder appends XDR-encoded primitives to a buffer.Buffer.
type Encoder struct {
	buf *buffer.Buffer
}

// NewEncoder returns an Encoder that appends to buf.
func NewEncoder(buf *buffer.Buffer) *Encoder { return &Encoder{buf: buf} }

// Buffer returns the underlying buffer.
func (e *Encoder) Buffer() *buffer.Buffer { return e.buf }

func (e *Encoder) Uint32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	e.buf.Append(tmp[:])
}

func (e *Encoder) Int32(v int32) { e.Uint32(uint32(v)) }

func (e *Encoder) Uint64(v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	e.buf.Append(tmp[:])
}

func (e *Encoder) Bool(v bool) {
	if v {
		e.Uint32(1)
	} else {
		e.Uint32(0)
	}
}

// Opaque writes a fixed-length opaque field (no length prefix),
// padded to a 4-byte boundary.
func (e *Encoder) Opaque(b []byte) {
	e.buf.Append(b)
	e.pad(len(b))
}

// VarOpaque writes a variable-length opaque field: a uint32 length
// prefix followed by the bytes, padded to a 4-byte boundary.
func (e *Encoder) VarOpaque(b []byte) {
	e.Uint32(uint32(len(b)))
	e.Opaque(b)
}

// String writes an XDR string: identical wire format to VarOpaque.
func (e *Encoder) String(s string) { e.VarOpaque([]byte(s)) }

func (e *Encoder) pad(n int) {
	if r := n % 4; r != 0 {
		var zero [4]byte
		e.buf.Append(zero[:4-r])
	}
}

// Decoder reads XDR-encoded primitives from a buffer.Buffer.
type Decoder struct {
	buf *buffer.Buffer
}

// NewDecoder returns a Decoder reading from buf.
func NewDecoder(buf *buffer.Buffer) *Decoder { return &Decoder{buf: buf} }

func (d *Decoder) take(n int) ([]byte, error) {
	if d.buf.Len() < n {
		return nil, ErrTruncated
	}
	b := d.buf.Bytes()[:n]
	d.buf.Advance(n)
	return b, nil
}

func (d *Decoder) Uint32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *Decoder) Int32() (int32, error) {
	v, err := d.Uint32()
	return int32(v), err
}

func (d *Decoder) Uint64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (d *Decoder) Bool() (bool, error) {
	v, err := d.Uint32()
	return v != 0, err
}

// Opaque reads a fixed-length opaque field (with its padding) and
// returns a copy of the n data bytes.
func (d *Decoder) Opaque(n int) ([]byte, error) {
	b, err := d.take(n)
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), b...)
	if err := d.skipPad(n); err != nil {
		return nil, err
	}
	return out, nil
}

const maxVarOpaque = 64 << 20 // 64MiB sanity cap, matching the spec's "implementations MAY cap body size"

// VarOpaque reads a uint32-length-prefixed opaque field.
func (d *Decoder) VarOpaque() ([]byte, error) {
	n, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	if n > maxVarOpaque {
		return nil, fmt.Errorf("xdr: opaque length %d exceeds cap", n)
	}
	return d.Opaque(int(n))
}

// String reads an XDR string.
func (d *Decoder) String() (string, error) {
	b, err := d.VarOpaque()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *Decoder) skipPad(n int) error {
	r := n % 4
	if r == 0 {
		return nil
	}
	_, err := d.take(4 - r)
	return err
}
