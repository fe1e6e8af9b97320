package crdt

import (
	"sort"

	"github.com/nullctx/crdtdoc/common"
)

// mapObj indexes the op entries of one map (or root, or table) object
// by property name.
type mapObj struct {
	slots map[string][]*opEntry
}

func newMapObj() *mapObj {
	return &mapObj{slots: make(map[string][]*opEntry)}
}

// put inserts op's entry at op.Key.Prop and supersedes every id in
// op.Pred that is currently visible there.
func (m *mapObj) put(op Op) {
	entries := m.slots[op.Key.Prop]
	for _, e := range entries {
		for _, p := range op.Pred {
			if e.op.ID == p {
				e.supersede(op.ID)
			}
		}
	}
	entries = append(entries, &opEntry{op: op})
	sortEntriesDesc(entries)
	m.slots[op.Key.Prop] = entries
}

// del marks every id in pred visible at prop as superseded, without
// introducing a new value (delete ops are pure tombstones, §3.2).
func (m *mapObj) del(prop string, by common.OpID, pred []common.OpID) error {
	entries := m.slots[prop]
	if len(entries) == 0 {
		return common.ErrUnknownProperty{Key: prop}
	}
	matched := false
	for _, e := range entries {
		for _, p := range pred {
			if e.op.ID == p {
				e.supersede(by)
				matched = true
			}
		}
	}
	if !matched {
		return common.ErrUnknownProperty{Key: prop}
	}
	return nil
}

// increment adds delta to the value of every op in pred currently
// visible at prop, in place: an increment does not supersede its
// target, it mutates it (§3.2 increment).
func (m *mapObj) increment(prop string, delta int64, pred []common.OpID) error {
	entries := m.slots[prop]
	matched := false
	for _, e := range entries {
		for _, p := range pred {
			if e.op.ID == p && e.visible() {
				if e.op.Value.Kind != common.KindCounter {
					return common.ErrNotACounter{}
				}
				e.op.Value.Int += delta
				matched = true
			}
		}
	}
	if !matched {
		return common.ErrNotACounter{}
	}
	return nil
}

// get returns the register at prop.
func (m *mapObj) get(prop string) Slot {
	return Slot{entries: m.slots[prop]}
}

// keys returns the property names with at least one visible value,
// sorted (§4.5 keys).
func (m *mapObj) keys() []string {
	out := make([]string, 0, len(m.slots))
	for prop, entries := range m.slots {
		for _, e := range entries {
			if e.visible() {
				out = append(out, prop)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}
