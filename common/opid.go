package common

import (
	"encoding/json"
	"fmt"
)

// OpID is the pair (counter, actor-index) of §3.1. Ordering is Lamport:
// counters compare first, actor indices break ties. The zero value,
// (0, 0), is the reserved sentinel naming the root object and the list
// head (§3.1).
type OpID struct {
	Counter uint64 `json:"ctr"`
	Actor   int    `json:"act"`
}

// RootID is the sentinel naming the root object and sequence head.
var RootID = OpID{Counter: 0, Actor: 0}

// IsRoot reports whether id is the root/head sentinel.
func (id OpID) IsRoot() bool {
	return id.Counter == 0 && id.Actor == 0
}

// Compare returns -1, 0 or 1 under Lamport order: counter first, then
// actor index.
func (id OpID) Compare(other OpID) int {
	if id.Counter != other.Counter {
		if id.Counter < other.Counter {
			return -1
		}
		return 1
	}
	if id.Actor != other.Actor {
		if id.Actor < other.Actor {
			return -1
		}
		return 1
	}
	return 0
}

// Less reports id < other under Lamport order.
func (id OpID) Less(other OpID) bool {
	return id.Compare(other) < 0
}

// Next returns the op id obtained by advancing the counter by delta,
// keeping the same actor. Used to allocate consecutive op ids within a
// single change.
func (id OpID) Next(delta uint64) OpID {
	return OpID{Counter: id.Counter + delta, Actor: id.Actor}
}

// String renders "ctr@actor", e.g. "12@3".
func (id OpID) String() string {
	return fmt.Sprintf("%d@%d", id.Counter, id.Actor)
}

// MarshalJSON implements json.Marshaler using a compact [counter, actor]
// pair, mirroring the teacher's LogicalTimestamp wire shape.
func (id OpID) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]uint64{id.Counter, uint64(id.Actor)})
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *OpID) UnmarshalJSON(data []byte) error {
	var pair [2]uint64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	id.Counter = pair[0]
	id.Actor = int(pair[1])
	return nil
}

// ObjID names an object: either RootID or the id of the make-* op that
// created it (§3.1).
type ObjID = OpID

// ElemID names a sequence element: the id of the insert op that
// introduced it (§3.2, glossary "Element id").
type ElemID = OpID

// Key is either a map property name or a sequence element id, per §3.2
// ("a key which is either a string ... or an element id").
type Key struct {
	IsElem bool
	Prop   string
	Elem   ElemID
}

// MapKey builds a string-keyed Key.
func MapKey(prop string) Key { return Key{Prop: prop} }

// ElemKey builds an element-id-keyed Key.
func ElemKey(elem ElemID) Key { return Key{IsElem: true, Elem: elem} }

// Compare orders keys the way §3.4 requires: map keys sort by UTF-8
// bytes; this is only meaningful when comparing two keys of the same
// kind (within one object, all keys share a kind).
func (k Key) Compare(other Key) int {
	if k.IsElem {
		return k.Elem.Compare(other.Elem)
	}
	if k.Prop < other.Prop {
		return -1
	}
	if k.Prop > other.Prop {
		return 1
	}
	return 0
}

func (k Key) String() string {
	if k.IsElem {
		return k.Elem.String()
	}
	return k.Prop
}
