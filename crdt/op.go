// Package crdt implements the OpSet of §3.2/§4.5 (C5): the per-object
// operation index that turns a stream of ops into a queryable map/list/
// text/counter structure with multi-value conflict registers.
package crdt

import "github.com/nullctx/crdtdoc/common"

// Op is a single operation, as read off a change's encoded op column
// (package change) and replayed into the OpSet.
//
// Key names the op's target within Obj: for a map put/delete it is a
// MapKey(prop); for a sequence insert it is the predecessor element
// (ElemKey, or the zero Key meaning the list head) the new element is
// placed after; for a sequence update/delete it is ElemKey(existing
// element). Pred lists the ops this op supersedes in its conflict
// register (§3.2 "pred").
type Op struct {
	ID     common.OpID
	Obj    common.ObjID
	Key    common.Key
	Action common.ActionType
	Value  common.Value
	Insert bool
	Pred   []common.OpID
	Expand common.ExpandPolicy
	Mark   string
}

// opEntry is one value competing in a multi-value register: visible
// exactly when Succ is empty.
type opEntry struct {
	op   Op
	succ []common.OpID
}

func (e *opEntry) visible() bool { return len(e.succ) == 0 }

func (e *opEntry) supersede(by common.OpID) {
	for _, s := range e.succ {
		if s == by {
			return
		}
	}
	e.succ = append(e.succ, by)
}

// Slot is the multi-value register exposed to callers: every entry
// still visible at a single map key or sequence position, ordered by
// op id descending so the primary (conflict-winning) value is first.
type Slot struct {
	entries []*opEntry
}

// Values returns the visible ops in this slot, primary value first.
func (s Slot) Values() []Op {
	out := make([]Op, 0, len(s.entries))
	for _, e := range s.entries {
		if e.visible() {
			out = append(out, e.op)
		}
	}
	return out
}

// Empty reports whether the slot has no visible value.
func (s Slot) Empty() bool {
	for _, e := range s.entries {
		if e.visible() {
			return false
		}
	}
	return true
}

// Primary returns the conflict-winning op (greatest op id among visible
// entries), and whether the slot has any visible value at all.
func (s Slot) Primary() (Op, bool) {
	var best *opEntry
	for _, e := range s.entries {
		if !e.visible() {
			continue
		}
		if best == nil || e.op.ID.Compare(best.op.ID) > 0 {
			best = e
		}
	}
	if best == nil {
		return Op{}, false
	}
	return best.op, true
}

func sortEntriesDesc(entries []*opEntry) {
	// Insertion sort: conflict registers are small in practice (a
	// handful of concurrent writers at most).
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].op.ID.Compare(entries[j-1].op.ID) > 0; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}
