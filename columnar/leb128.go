// Package columnar implements the binary encoding vocabulary of §4.3 (C3):
// LEB128 primitives, RLE/delta/boolean columns, column metadata, and the
// chunk framing used by the change and document storage codec (package
// change).
package columnar

import "github.com/nullctx/crdtdoc/common"

// Writer accumulates LEB128-encoded primitives into a byte buffer.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the accumulated buffer. The caller must not mutate it.
func (w *Writer) Bytes() []byte { return w.buf }

// Len reports the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// WriteRaw appends b verbatim, with no length prefix.
func (w *Writer) WriteRaw(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteByte appends a single byte.
func (w *Writer) WriteByte(b byte) {
	w.buf = append(w.buf, b)
}

// WriteUvarint appends v as unsigned LEB128.
func (w *Writer) WriteUvarint(v uint64) {
	for v >= 0x80 {
		w.buf = append(w.buf, byte(v)|0x80)
		v >>= 7
	}
	w.buf = append(w.buf, byte(v))
}

// WriteVarint appends v as signed LEB128 (two's-complement sign
// extension, NOT zig-zag, per §4.3).
func (w *Writer) WriteVarint(v int64) {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		w.buf = append(w.buf, b)
	}
}

// WriteLenPrefixed appends b prefixed with its uleb128 length.
func (w *Writer) WriteLenPrefixed(b []byte) {
	w.WriteUvarint(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

// Reader sequentially decodes LEB128 primitives from a byte buffer,
// tracking position so truncation/mis-ordering is caught as a hard parse
// error (§4.3, §4.4 failure modes).
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential decoding.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

// Pos returns the current read offset.
func (r *Reader) Pos() int { return r.pos }

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, common.ErrDecoding{Reason: "truncated input"}
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// ReadUvarint decodes an unsigned LEB128 value.
func (r *Reader) ReadUvarint() (uint64, error) {
	var result uint64
	var shift uint
	for {
		if shift >= 64 {
			return 0, common.ErrDecoding{Reason: "malformed LEB128: too many continuation bytes"}
		}
		b, err := r.ReadByte()
		if err != nil {
			return 0, common.ErrDecoding{Reason: "malformed LEB128: truncated varint"}
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
}

// ReadVarint decodes a signed two's-complement LEB128 value.
func (r *Reader) ReadVarint() (int64, error) {
	var result int64
	var shift uint
	var b byte
	var err error
	for {
		if shift >= 64 {
			return 0, common.ErrDecoding{Reason: "malformed LEB128: too many continuation bytes"}
		}
		b, err = r.ReadByte()
		if err != nil {
			return 0, common.ErrDecoding{Reason: "malformed LEB128: truncated varint"}
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, nil
}

// ReadBytes reads exactly n raw bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, common.ErrDecoding{Reason: "truncated input"}
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

// Remainder returns every byte from the current position to the end,
// without advancing the position.
func (r *Reader) Remainder() []byte {
	return r.buf[r.pos:]
}

// ReadLenPrefixed reads a uleb128 length followed by that many bytes.
func (r *Reader) ReadLenPrefixed() ([]byte, error) {
	n, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	return r.ReadBytes(int(n))
}
