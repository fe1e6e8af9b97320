package columnar

import "github.com/nullctx/crdtdoc/common"

// ColumnType is the low 4 bits of a tagged column specifier (§4.3).
type ColumnType uint8

const (
	ColumnGroup      ColumnType = 0 // run count of a logical group of columns
	ColumnActor      ColumnType = 1 // RLE of u64 actor-table indices
	ColumnIntRLE     ColumnType = 2 // RLE of i64
	ColumnIntDelta   ColumnType = 3 // delta-encoded i64
	ColumnBoolean    ColumnType = 4 // alternating run-length booleans
	ColumnStringRLE  ColumnType = 5 // RLE of strings
	ColumnValueMeta  ColumnType = 6 // RLE of u64 (byte length of each op's value-raw blob)
	ColumnValueRaw   ColumnType = 7 // raw concatenated value bytes, no framing
)

func (t ColumnType) String() string {
	switch t {
	case ColumnGroup:
		return "group"
	case ColumnActor:
		return "actor"
	case ColumnIntRLE:
		return "int-rle"
	case ColumnIntDelta:
		return "int-delta"
	case ColumnBoolean:
		return "boolean"
	case ColumnStringRLE:
		return "string-rle"
	case ColumnValueMeta:
		return "value-meta"
	case ColumnValueRaw:
		return "value-raw"
	default:
		return "unknown"
	}
}

// ColumnSpec is the tagged 32-bit column specifier: a 28-bit column id
// identifying which logical field this column holds (e.g. "obj-actor",
// "key-string"), packed with a 4-bit ColumnType.
type ColumnSpec uint32

// MakeColumnSpec packs id and typ into a single tagged specifier.
func MakeColumnSpec(id uint32, typ ColumnType) ColumnSpec {
	return ColumnSpec(id<<4 | uint32(typ)&0xf)
}

// ID returns the 28-bit column identifier.
func (s ColumnSpec) ID() uint32 { return uint32(s) >> 4 }

// Type returns the 4-bit column type tag.
func (s ColumnSpec) Type() ColumnType { return ColumnType(uint32(s) & 0xf) }

// RawColumn is one decoded (spec, body) pair from a column index, prior
// to type-specific decoding of its body.
type RawColumn struct {
	Spec ColumnSpec
	Data []byte
}

// WriteColumnIndex writes the column index: a uleb128 column count
// followed by, for each column, its uleb128-packed spec and uleb128
// body length. The bodies themselves are written immediately after by
// the caller, in the same order (§4.3 chunk layout).
func WriteColumnIndex(w *Writer, cols []RawColumn) {
	w.WriteUvarint(uint64(len(cols)))
	for _, c := range cols {
		w.WriteUvarint(uint64(c.Spec))
		w.WriteUvarint(uint64(len(c.Data)))
	}
}

// ReadColumnIndex reads a column index and then slices out each
// column's body from the bytes immediately following the index,
// validating monotonically non-decreasing column ids (§4.4: mis-ordered
// column metadata is a hard parse error).
func ReadColumnIndex(r *Reader) ([]RawColumn, error) {
	count, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	type entry struct {
		spec ColumnSpec
		n    int
	}
	entries := make([]entry, count)
	var lastID uint32
	first := true
	for i := range entries {
		specRaw, err := r.ReadUvarint()
		if err != nil {
			return nil, err
		}
		spec := ColumnSpec(specRaw)
		if !first && spec.ID() < lastID {
			return nil, common.ErrDecoding{Reason: "column index is not sorted by column id"}
		}
		lastID = spec.ID()
		first = false

		n, err := r.ReadUvarint()
		if err != nil {
			return nil, err
		}
		entries[i] = entry{spec: spec, n: int(n)}
	}

	out := make([]RawColumn, len(entries))
	for i, e := range entries {
		body, err := r.ReadBytes(e.n)
		if err != nil {
			return nil, err
		}
		out[i] = RawColumn{Spec: e.spec, Data: body}
	}
	return out, nil
}

// Find returns the first column in cols matching id, if any.
func Find(cols []RawColumn, id uint32) (RawColumn, bool) {
	for _, c := range cols {
		if c.Spec.ID() == id {
			return c, true
		}
	}
	return RawColumn{}, false
}
