// Package buffer implements the opaque byte buffer and scatter/gather
// buffer list that the rest of goipc is built on. It plays the role of
// yield::platform::Buffer / Buffers in the original C++ library: a
// contiguous byte range with a read cursor, and an ordered sequence of
// such ranges for vectored writes.
package buffer

import "io"

// Buffer is a contiguous byte range with an independent read cursor.
// A Buffer owns a copy of nothing; it simply wraps a []byte. Once
// shared, a Buffer must be treated as read-only by whichever holder is
// not the logical writer, matching the single-writer discipline of the
// parsers built on top of it.
type Buffer struct {
	b   []byte
	pos int
}

// New wraps b in a Buffer. The Buffer takes ownership of b's backing
// array in the sense that callers should not mutate b afterward.
func New(b []byte) *Buffer { return &Buffer{b: b} }

// NewSize allocates a fresh Buffer with the given capacity and zero length.
func NewSize(capacity int) *Buffer { return &Buffer{b: make([]byte, 0, capacity)} }

// Bytes returns the unread portion of the buffer.
func (buf *Buffer) Bytes() []byte { return buf.b[buf.pos:] }

// All returns the full underlying slice, ignoring the read cursor.
func (buf *Buffer) All() []byte { return buf.b }

// Len returns the number of unread bytes.
func (buf *Buffer) Len() int { return len(buf.b) - buf.pos }

// Cap returns the capacity of the backing array.
func (buf *Buffer) Cap() int { return cap(buf.b) }

// Advance moves the read cursor forward by n bytes.
func (buf *Buffer) Advance(n int) {
	buf.pos += n
	if buf.pos > len(buf.b) {
		buf.pos = len(buf.b)
	}
}

// Append appends p to the buffer, growing the backing array as needed.
// It never reallocates below buf.pos, so any offsets taken before the
// append into the region prior to pos remain valid.
func (buf *Buffer) Append(p []byte) {
	buf.b = append(buf.b, p...)
}

// Read implements io.Reader over the unread region.
func (buf *Buffer) Read(p []byte) (int, error) {
	if buf.Len() == 0 {
		return 0, io.EOF
	}
	n := copy(p, buf.Bytes())
	buf.Advance(n)
	return n, nil
}

// Reset discards all content and the read cursor.
func (buf *Buffer) Reset() {
	buf.b = buf.b[:0]
	buf.pos = 0
}

// Buffers is an ordered sequence of Buffer for scatter/gather writes.
// Protocol marshalling builds a Buffers so that, e.g., an HTTP body
// buffer never needs to be copied into the header buffer.
type Buffers []*Buffer

// TotalLen returns the sum of unread lengths across all buffers.
func (bs Buffers) TotalLen() int {
	n := 0
	for _, b := range bs {
		n += b.Len()
	}
	return n
}

// WriteTo writes every buffer's unread bytes to w in order, implementing
// io.WriterTo so callers can hand a Buffers straight to a net.Conn or
// any other io.Writer without flattening it first.
func (bs Buffers) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, b := range bs {
		n, err := w.Write(b.Bytes())
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Flatten copies every buffer's unread bytes into a single contiguous
// slice. Used only where a protocol genuinely requires one (e.g. a
// checksum over the whole message); the hot paths use WriteTo instead.
func (bs Buffers) Flatten() []byte {
	out := make([]byte, 0, bs.TotalLen())
	for _, b := range bs {
		out = append(out, b.Bytes()...)
	}
	return out
}
