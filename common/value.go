package common

import "fmt"

// ValueKind discriminates the scalar union of §3.1.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBool
	KindInt    // signed integer
	KindUint   // unsigned integer
	KindFloat  // 64-bit float
	KindBytes  // byte string
	KindStr    // UTF-8 string
	KindCounter
	KindTimestamp // ms since epoch
	KindCursor
	KindTypedBytes // bytes with an explicit datatype tag
	KindUnknown    // typed bytes preserved for forward compatibility
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindBytes:
		return "bytes"
	case KindStr:
		return "str"
	case KindCounter:
		return "counter"
	case KindTimestamp:
		return "timestamp"
	case KindCursor:
		return "cursor"
	case KindTypedBytes:
		return "typed-bytes"
	case KindUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Cursor references a position inside a sequence: the element id it is
// anchored to, the object that hosts it, and an index hint used as a
// fallback when the element cannot be located via the subtree index
// (§9 Cursors).
type Cursor struct {
	Object    ObjID
	Elem      ElemID
	IndexHint int
}

// Value is the scalar value union of §3.1. Exactly the fields implied by
// Kind are meaningful; the rest are zero.
type Value struct {
	Kind ValueKind

	Bool    bool
	Int     int64
	Uint    uint64
	Float   float64
	Bytes   []byte
	Str     string
	Cursor  Cursor
	TypeTag uint64 // datatype tag for KindTypedBytes / KindUnknown
}

// Null returns the null scalar value.
func Null() Value { return Value{Kind: KindNull} }

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// IntValue wraps a signed integer.
func IntValue(i int64) Value { return Value{Kind: KindInt, Int: i} }

// UintValue wraps an unsigned integer.
func UintValue(u uint64) Value { return Value{Kind: KindUint, Uint: u} }

// FloatValue wraps a float64.
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// BytesValue wraps a byte string.
func BytesValue(b []byte) Value { return Value{Kind: KindBytes, Bytes: b} }

// StrValue wraps a UTF-8 string.
func StrValue(s string) Value { return Value{Kind: KindStr, Str: s} }

// CounterValue wraps the i64 payload of a counter put.
func CounterValue(i int64) Value { return Value{Kind: KindCounter, Int: i} }

// TimestampValue wraps milliseconds since epoch.
func TimestampValue(ms int64) Value { return Value{Kind: KindTimestamp, Int: ms} }

// CursorValue wraps a cursor reference.
func CursorValue(c Cursor) Value { return Value{Kind: KindCursor, Cursor: c} }

// TypedBytesValue wraps bytes under an explicit datatype tag.
func TypedBytesValue(tag uint64, b []byte) Value {
	return Value{Kind: KindTypedBytes, TypeTag: tag, Bytes: b}
}

// UnknownValue preserves an unrecognised scalar datatype verbatim for
// forward compatibility (§9).
func UnknownValue(tag uint64, b []byte) Value {
	return Value{Kind: KindUnknown, TypeTag: tag, Bytes: b}
}

// Native returns a plain Go value (nil, bool, int64, uint64, float64,
// []byte, or string) suitable for JSON rendering or equality checks in
// tests. Bytes, typed-bytes and unknown values render as their raw
// bytes; a Cursor value returns its Cursor field.
func (v Value) Native() interface{} {
	switch v.Kind {
	case KindNull:
		return nil
	case KindBool:
		return v.Bool
	case KindInt, KindCounter, KindTimestamp:
		return v.Int
	case KindUint:
		return v.Uint
	case KindFloat:
		return v.Float
	case KindBytes, KindTypedBytes, KindUnknown:
		return v.Bytes
	case KindStr:
		return v.Str
	case KindCursor:
		return v.Cursor
	default:
		return nil
	}
}

func (v Value) String() string {
	return fmt.Sprintf("%s(%v)", v.Kind, v.Native())
}
