package change

import (
	"encoding/binary"
	"math"

	"github.com/nullctx/crdtdoc/columnar"
	"github.com/nullctx/crdtdoc/common"
)

// encodeValue serialises a scalar Value to a self-describing blob: a
// kind byte followed by a kind-specific payload. These blobs are what
// the value-raw column stores, concatenated, with value-meta holding
// each blob's length (§4.3).
func encodeValue(v common.Value) []byte {
	w := columnar.NewWriter()
	w.WriteByte(byte(v.Kind))
	switch v.Kind {
	case common.KindNull:
	case common.KindBool:
		if v.Bool {
			w.WriteByte(1)
		} else {
			w.WriteByte(0)
		}
	case common.KindInt, common.KindCounter, common.KindTimestamp:
		w.WriteVarint(v.Int)
	case common.KindUint:
		w.WriteUvarint(v.Uint)
	case common.KindFloat:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(v.Float))
		w.WriteRaw(buf[:])
	case common.KindBytes:
		w.WriteLenPrefixed(v.Bytes)
	case common.KindStr:
		w.WriteLenPrefixed([]byte(v.Str))
	case common.KindTypedBytes, common.KindUnknown:
		w.WriteUvarint(v.TypeTag)
		w.WriteLenPrefixed(v.Bytes)
	case common.KindCursor:
		w.WriteUvarint(v.Cursor.Object.Counter)
		w.WriteVarint(int64(v.Cursor.Object.Actor))
		w.WriteUvarint(v.Cursor.Elem.Counter)
		w.WriteVarint(int64(v.Cursor.Elem.Actor))
		w.WriteVarint(int64(v.Cursor.IndexHint))
	}
	return w.Bytes()
}

// decodeValue parses a blob produced by encodeValue.
func decodeValue(b []byte) (common.Value, error) {
	r := columnar.NewReader(b)
	kindByte, err := r.ReadByte()
	if err != nil {
		return common.Value{}, err
	}
	kind := common.ValueKind(kindByte)
	switch kind {
	case common.KindNull:
		return common.Null(), nil
	case common.KindBool:
		bb, err := r.ReadByte()
		if err != nil {
			return common.Value{}, err
		}
		return common.BoolValue(bb != 0), nil
	case common.KindInt:
		i, err := r.ReadVarint()
		if err != nil {
			return common.Value{}, err
		}
		return common.IntValue(i), nil
	case common.KindCounter:
		i, err := r.ReadVarint()
		if err != nil {
			return common.Value{}, err
		}
		return common.CounterValue(i), nil
	case common.KindTimestamp:
		i, err := r.ReadVarint()
		if err != nil {
			return common.Value{}, err
		}
		return common.TimestampValue(i), nil
	case common.KindUint:
		u, err := r.ReadUvarint()
		if err != nil {
			return common.Value{}, err
		}
		return common.UintValue(u), nil
	case common.KindFloat:
		buf, err := r.ReadBytes(8)
		if err != nil {
			return common.Value{}, err
		}
		return common.FloatValue(math.Float64frombits(binary.BigEndian.Uint64(buf))), nil
	case common.KindBytes:
		b, err := r.ReadLenPrefixed()
		if err != nil {
			return common.Value{}, err
		}
		return common.BytesValue(b), nil
	case common.KindStr:
		b, err := r.ReadLenPrefixed()
		if err != nil {
			return common.Value{}, err
		}
		return common.StrValue(string(b)), nil
	case common.KindTypedBytes:
		tag, err := r.ReadUvarint()
		if err != nil {
			return common.Value{}, err
		}
		b, err := r.ReadLenPrefixed()
		if err != nil {
			return common.Value{}, err
		}
		return common.TypedBytesValue(tag, b), nil
	case common.KindUnknown:
		tag, err := r.ReadUvarint()
		if err != nil {
			return common.Value{}, err
		}
		b, err := r.ReadLenPrefixed()
		if err != nil {
			return common.Value{}, err
		}
		return common.UnknownValue(tag, b), nil
	case common.KindCursor:
		objCtr, err := r.ReadUvarint()
		if err != nil {
			return common.Value{}, err
		}
		objActor, err := r.ReadVarint()
		if err != nil {
			return common.Value{}, err
		}
		elemCtr, err := r.ReadUvarint()
		if err != nil {
			return common.Value{}, err
		}
		elemActor, err := r.ReadVarint()
		if err != nil {
			return common.Value{}, err
		}
		hint, err := r.ReadVarint()
		if err != nil {
			return common.Value{}, err
		}
		return common.CursorValue(common.Cursor{
			Object:    common.OpID{Counter: objCtr, Actor: int(objActor)},
			Elem:      common.OpID{Counter: elemCtr, Actor: int(elemActor)},
			IndexHint: int(hint),
		}), nil
	default:
		return common.Value{}, common.ErrDecoding{Reason: "unknown value kind tag"}
	}
}
