package buffer

import (
	"bytes"
	"testing"
)

func TestBufferAppendPreservesOffsets(t *testing.T) {
	buf := New([]byte("hello "))
	before := buf.Bytes()
	offset := len(before)
	buf.Append([]byte("world"))
	if string(buf.All()[:offset]) != "hello " {
		t.Fatalf("append mutated existing bytes: %q", buf.All()[:offset])
	}
	if string(buf.All()[offset:]) != "world" {
		t.Fatalf("append did not add expected suffix: %q", buf.All()[offset:])
	}
}

func TestBufferReadAdvancesCursor(t *testing.T) {
	buf := New([]byte("abcdef"))
	p := make([]byte, 3)
	n, err := buf.Read(p)
	if err != nil || n != 3 || string(p) != "abc" {
		t.Fatalf("unexpected read: n=%d err=%v p=%q", n, err, p)
	}
	if buf.Len() != 3 {
		t.Fatalf("expected 3 remaining bytes, got %d", buf.Len())
	}
}

func TestBuffersWriteTo(t *testing.T) {
	bs := Buffers{New([]byte("foo")), New([]byte("bar"))}
	var out bytes.Buffer
	n, err := bs.WriteTo(&out)
	if err != nil || n != 6 || out.String() != "foobar" {
		t.Fatalf("unexpected WriteTo result: n=%d err=%v out=%q", n, err, out.String())
	}
}
