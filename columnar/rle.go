package columnar

import "github.com/nullctx/crdtdoc/common"

// Elem is one logical slot of an RLE column: either present with a value
// or absent (null).
type Elem[T any] struct {
	Null bool
	V    T
}

// Present constructs a non-null element.
func Present[T any](v T) Elem[T] { return Elem[T]{V: v} }

// NullElem constructs a null element.
func NullElem[T any]() Elem[T] { return Elem[T]{Null: true} }

// rleCodec supplies the per-type encode/decode/equality used by the
// generic RLE reader/writer below.
type rleCodec[T comparable] struct {
	encode func(w *Writer, v T)
	decode func(r *Reader) (T, error)
}

// encodeRLE writes vals as a run-length-encoded column (§4.3): a
// sequence of (count, value) runs. Every written value, in a run or a
// literal block, starts with a sentinel byte: 0 for null (nothing
// follows), 1 for present (the encoded value follows). A positive count
// repeats the following value that many times, so a run of nulls is a
// positive count followed by a 0 sentinel. A negative count -k
// introduces k literal values with no repetition; a lone null is kept
// inside a literal block like any other singleton.
func encodeRLE[T comparable](w *Writer, vals []Elem[T], c rleCodec[T]) {
	i := 0
	for i < len(vals) {
		// Find the run length of vals[i].
		j := i + 1
		for j < len(vals) && vals[j] == vals[i] {
			j++
		}
		runLen := j - i
		if runLen > 1 {
			w.WriteVarint(int64(runLen))
			writeRLEValue(w, vals[i], c)
			i = j
			continue
		}

		// Singleton: accumulate a maximal run of distinct, non-repeating
		// singletons into one literal block.
		k := i
		for k < len(vals) {
			kEnd := k + 1
			for kEnd < len(vals) && vals[kEnd] == vals[k] {
				kEnd++
			}
			if kEnd-k > 1 {
				break
			}
			k = kEnd
		}
		literals := vals[i:k]
		w.WriteVarint(-int64(len(literals)))
		for _, v := range literals {
			writeRLEValue(w, v, c)
		}
		i = k
	}
}

func writeRLEValue[T comparable](w *Writer, v Elem[T], c rleCodec[T]) {
	if v.Null {
		w.WriteByte(0)
		return
	}
	w.WriteByte(1)
	c.encode(w, v.V)
}

// decodeRLE reads an RLE column of exactly n logical elements.
func decodeRLE[T comparable](r *Reader, n int, c rleCodec[T]) ([]Elem[T], error) {
	out := make([]Elem[T], 0, n)
	for len(out) < n {
		count, err := r.ReadVarint()
		if err != nil {
			return nil, err
		}
		if count > 0 {
			v, err := readRLEValue(r, c)
			if err != nil {
				return nil, err
			}
			for k := int64(0); k < count; k++ {
				out = append(out, v)
			}
		} else if count < 0 {
			for k := int64(0); k < -count; k++ {
				v, err := readRLEValue(r, c)
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
		} else {
			return nil, common.ErrDecoding{Reason: "RLE run of length zero"}
		}
	}
	if len(out) != n {
		return nil, common.ErrDecoding{Reason: "RLE column length mismatch"}
	}
	return out, nil
}

func readRLEValue[T comparable](r *Reader, c rleCodec[T]) (Elem[T], error) {
	sentinel, err := r.ReadByte()
	if err != nil {
		return Elem[T]{}, err
	}
	switch sentinel {
	case 0:
		return NullElem[T](), nil
	case 1:
		v, err := c.decode(r)
		if err != nil {
			return Elem[T]{}, err
		}
		return Present(v), nil
	default:
		return Elem[T]{}, common.ErrDecoding{Reason: "invalid RLE value sentinel"}
	}
}

var uintCodec = rleCodec[uint64]{
	encode: func(w *Writer, v uint64) { w.WriteUvarint(v) },
	decode: func(r *Reader) (uint64, error) { return r.ReadUvarint() },
}

var intCodec = rleCodec[int64]{
	encode: func(w *Writer, v int64) { w.WriteVarint(v) },
	decode: func(r *Reader) (int64, error) { return r.ReadVarint() },
}

var stringCodec = rleCodec[string]{
	encode: func(w *Writer, v string) { w.WriteLenPrefixed([]byte(v)) },
	decode: func(r *Reader) (string, error) {
		b, err := r.ReadLenPrefixed()
		if err != nil {
			return "", err
		}
		return string(b), nil
	},
}

// EncodeUintRLE writes vals as an RLE column of u64.
func EncodeUintRLE(w *Writer, vals []Elem[uint64]) { encodeRLE(w, vals, uintCodec) }

// DecodeUintRLE reads n elements of an RLE column of u64.
func DecodeUintRLE(r *Reader, n int) ([]Elem[uint64], error) { return decodeRLE(r, n, uintCodec) }

// EncodeIntRLE writes vals as an RLE column of i64.
func EncodeIntRLE(w *Writer, vals []Elem[int64]) { encodeRLE(w, vals, intCodec) }

// DecodeIntRLE reads n elements of an RLE column of i64.
func DecodeIntRLE(r *Reader, n int) ([]Elem[int64], error) { return decodeRLE(r, n, intCodec) }

// EncodeStringRLE writes vals as an RLE column of strings.
func EncodeStringRLE(w *Writer, vals []Elem[string]) { encodeRLE(w, vals, stringCodec) }

// DecodeStringRLE reads n elements of an RLE column of strings.
func DecodeStringRLE(r *Reader, n int) ([]Elem[string], error) {
	return decodeRLE(r, n, stringCodec)
}

// EncodeBytesRLE writes vals as an RLE column of raw byte strings. Bytes
// columns are kept out of the comparable-constrained generic codec
// since []byte is not comparable; runs are still coalesced by content.
func EncodeBytesRLE(w *Writer, vals []Elem[[]byte]) {
	i := 0
	for i < len(vals) {
		j := i + 1
		for j < len(vals) && bytesElemEqual(vals[j], vals[i]) {
			j++
		}
		runLen := j - i
		if runLen > 1 {
			w.WriteVarint(int64(runLen))
			writeBytesElem(w, vals[i])
			i = j
			continue
		}
		k := i
		for k < len(vals) {
			kEnd := k + 1
			for kEnd < len(vals) && bytesElemEqual(vals[kEnd], vals[k]) {
				kEnd++
			}
			if kEnd-k > 1 {
				break
			}
			k = kEnd
		}
		literals := vals[i:k]
		w.WriteVarint(-int64(len(literals)))
		for _, v := range literals {
			writeBytesElem(w, v)
		}
		i = k
	}
}

func bytesElemEqual(a, b Elem[[]byte]) bool {
	if a.Null != b.Null {
		return false
	}
	if a.Null {
		return true
	}
	if len(a.V) != len(b.V) {
		return false
	}
	for i := range a.V {
		if a.V[i] != b.V[i] {
			return false
		}
	}
	return true
}

func writeBytesElem(w *Writer, v Elem[[]byte]) {
	if v.Null {
		w.WriteByte(0)
		return
	}
	w.WriteByte(1)
	w.WriteLenPrefixed(v.V)
}

// DecodeBytesRLE reads n elements of an RLE column of raw byte strings.
func DecodeBytesRLE(r *Reader, n int) ([]Elem[[]byte], error) {
	out := make([]Elem[[]byte], 0, n)
	for len(out) < n {
		count, err := r.ReadVarint()
		if err != nil {
			return nil, err
		}
		if count > 0 {
			v, err := readBytesElem(r)
			if err != nil {
				return nil, err
			}
			for k := int64(0); k < count; k++ {
				out = append(out, v)
			}
		} else if count < 0 {
			for k := int64(0); k < -count; k++ {
				v, err := readBytesElem(r)
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
		} else {
			return nil, common.ErrDecoding{Reason: "RLE run of length zero"}
		}
	}
	return out, nil
}

func readBytesElem(r *Reader) (Elem[[]byte], error) {
	sentinel, err := r.ReadByte()
	if err != nil {
		return Elem[[]byte]{}, err
	}
	switch sentinel {
	case 0:
		return NullElem[[]byte](), nil
	case 1:
		b, err := r.ReadLenPrefixed()
		if err != nil {
			return Elem[[]byte]{}, err
		}
		return Present(b), nil
	default:
		return Elem[[]byte]{}, common.ErrDecoding{Reason: "invalid RLE value sentinel"}
	}
}
