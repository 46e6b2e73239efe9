package xdr

import (
	"bytes"
	"testing"

	"github.com/xtreemfs/goipc/buffer"
)

func TestRoundTripPrimitives(t *testing.T) {
	buf := buffer.NewSize(64)
	enc := NewEncoder(buf)
	enc.Uint32(0x11223344)
	enc.Uint64(0x0102030405060708)
	enc.Bool(true)
	enc.String("hello")
	enc.VarOpaque([]byte{1, 2, 3})

	dec := NewDecoder(buffer.New(buf.All()))
	u32, err := dec.Uint32()
	if err != nil || u32 != 0x11223344 {
		t.Fatalf("uint32 round trip: %x %v", u32, err)
	}
	u64, err := dec.Uint64()
	if err != nil || u64 != 0x0102030405060708 {
		t.Fatalf("uint64 round trip: %x %v", u64, err)
	}
	b, err := dec.Bool()
	if err != nil || !b {
		t.Fatalf("bool round trip: %v %v", b, err)
	}
	s, err := dec.String()
	if err != nil || s != "hello" {
		t.Fatalf("string round trip: %q %v", s, err)
	}
	op, err := dec.VarOpaque()
	if err != nil || !bytes.Equal(op, []byte{1, 2, 3}) {
		t.Fatalf("opaque round trip: %v %v", op, err)
	}
}

func TestStringPadding(t *testing.T) {
	buf := buffer.NewSize(16)
	enc := NewEncoder(buf)
	enc.String("ab") // 4 (len) + 2 (data) + 2 (pad) = 8 bytes total
	if buf.Len() != 8 {
		t.Fatalf("expected padded length 8, got %d", buf.Len())
	}
}

func TestTruncatedInput(t *testing.T) {
	dec := NewDecoder(buffer.New([]byte{0, 0}))
	if _, err := dec.Uint32(); err != ErrTruncated {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}
