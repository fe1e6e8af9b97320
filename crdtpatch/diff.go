package crdtpatch

import (
	"sort"
	"strings"

	"github.com/nullctx/crdtdoc/common"
	"github.com/nullctx/crdtdoc/crdt"
)

// snapshotter is the subset of *document.Document that Diff needs.
// Declared as an interface, rather than importing package document
// directly, to keep crdtpatch a pure function of two OpSet snapshots
// and avoid a document<->crdtpatch import cycle should the façade ever
// need to call back into patch generation.
type snapshotter interface {
	Snapshot(heads []common.ChangeHash) (*crdt.OpSet, error)
}

// Diff computes the patch an observer moving from beforeHeads to
// afterHeads would see (§4.7): two document snapshots are built by
// replaying the clock-covered op history at each frontier, then
// compared object by object, parent before child.
func Diff(d snapshotter, beforeHeads, afterHeads []common.ChangeHash) (Patch, error) {
	before, err := d.Snapshot(beforeHeads)
	if err != nil {
		return nil, err
	}
	after, err := d.Snapshot(afterHeads)
	if err != nil {
		return nil, err
	}
	return DiffSnapshots(before, after)
}

// DiffSnapshots compares two already-built OpSet snapshots directly
// (exported so callers who already hold a before/after pair — e.g. a
// storage adapter restoring two historical versions — can skip
// re-replaying history).
func DiffSnapshots(before, after *crdt.OpSet) (Patch, error) {
	var patch Patch
	for _, obj := range after.Objects() {
		typ, err := after.ObjectType(obj)
		if err != nil {
			return nil, err
		}
		var actions []Action
		switch typ {
		case common.NodeTypeList:
			actions, err = diffSeq(before, after, obj, false)
		case common.NodeTypeText:
			actions, err = diffSeq(before, after, obj, true)
		default:
			actions, err = diffMap(before, after, obj)
		}
		if err != nil {
			return nil, err
		}
		patch = append(patch, actions...)
	}
	return patch, nil
}

func diffMap(before, after *crdt.OpSet, obj common.ObjID) ([]Action, error) {
	afterKeys, err := after.Keys(obj)
	if err != nil {
		return nil, err
	}
	beforeKeys, _ := before.Keys(obj) // missing object before the change => no keys, not an error

	keys := unionSorted(beforeKeys, afterKeys)
	var actions []Action
	for _, k := range keys {
		afterSlot, err := after.Get(obj, k)
		if err != nil {
			return nil, err
		}
		beforeSlot, _ := before.Get(obj, k)

		aEmpty := afterSlot.Empty()
		bEmpty := beforeSlot.Empty()
		if aEmpty {
			if !bEmpty {
				actions = append(actions, Action{Kind: ActionDeleteMap, Object: obj, Key: k})
			}
			continue
		}

		aPrimary, _ := afterSlot.Primary()
		bPrimary, bHas := beforeSlot.Primary()
		aConflict := len(afterSlot.Values()) > 1
		bConflict := bHas && len(beforeSlot.Values()) > 1
		changed := !bHas || bPrimary.ID != aPrimary.ID

		switch {
		case !changed && aPrimary.Value.Kind == common.KindCounter && aPrimary.Value.Int != bPrimary.Value.Int:
			actions = append(actions, Action{
				Kind: ActionIncrement, Object: obj, Key: k,
				Delta: aPrimary.Value.Int - bPrimary.Value.Int,
			})
		case changed:
			act := Action{Kind: ActionPutMap, Object: obj, Key: k, Conflict: aConflict}
			if aPrimary.Action.IsMake() {
				act.Child = aPrimary.ID
			} else {
				act.Value = aPrimary.Value
			}
			actions = append(actions, act)
		}

		if aConflict != bConflict {
			actions = append(actions, Action{Kind: ActionConflict, Object: obj, Key: k, Conflict: aConflict})
		}
	}
	return actions, nil
}

func diffSeq(before, after *crdt.OpSet, obj common.ObjID, isText bool) ([]Action, error) {
	afterLen, err := after.Length(obj)
	if err != nil {
		return nil, err
	}
	beforeLen, _ := before.Length(obj)

	afterIDs := make([]common.ElemID, afterLen)
	afterSlots := make([]crdt.Slot, afterLen)
	for i := 0; i < afterLen; i++ {
		slot, id, err := after.Nth(obj, i)
		if err != nil {
			return nil, err
		}
		afterIDs[i] = id
		afterSlots[i] = slot
	}
	beforeIDs := make([]common.ElemID, beforeLen)
	for i := 0; i < beforeLen; i++ {
		_, id, err := before.Nth(obj, i)
		if err != nil {
			return nil, err
		}
		beforeIDs[i] = id
	}

	bSet := make(map[common.ElemID]bool, len(beforeIDs))
	for _, id := range beforeIDs {
		bSet[id] = true
	}
	aSet := make(map[common.ElemID]bool, len(afterIDs))
	for _, id := range afterIDs {
		aSet[id] = true
	}

	var actions []Action
	bi, ai := 0, 0
	for bi < len(beforeIDs) || ai < len(afterIDs) {
		switch {
		case bi < len(beforeIDs) && !aSet[beforeIDs[bi]]:
			start := ai
			count := 0
			for bi < len(beforeIDs) && !aSet[beforeIDs[bi]] {
				bi++
				count++
			}
			actions = append(actions, Action{Kind: ActionDeleteSeq, Object: obj, Index: start, Length: count})

		case ai < len(afterIDs) && !bSet[afterIDs[ai]]:
			if isText {
				start := ai
				var text strings.Builder
				var marks []string
				for ai < len(afterIDs) && !bSet[afterIDs[ai]] {
					op, _ := afterSlots[ai].Primary()
					text.WriteString(op.Value.Str)
					if ms, err := after.MarksAt(obj, ai); err == nil && len(ms) > 0 {
						marks = ms
					}
					ai++
				}
				actions = append(actions, Action{Kind: ActionSpliceText, Object: obj, Index: start, Text: text.String(), Marks: marks})
				break
			}

			// Scalar elements batch into one Insert per contiguous run; a
			// made (nested-object) element always gets its own single-
			// element Insert with Child set, since a run can only carry
			// one kind of payload (Values or Child).
			if op, _ := afterSlots[ai].Primary(); op.Action.IsMake() {
				actions = append(actions, Action{Kind: ActionInsert, Object: obj, Index: ai, Child: op.ID})
				ai++
				break
			}
			start := ai
			var vals []common.Value
			for ai < len(afterIDs) && !bSet[afterIDs[ai]] {
				op, _ := afterSlots[ai].Primary()
				if op.Action.IsMake() {
					break
				}
				vals = append(vals, op.Value)
				ai++
			}
			actions = append(actions, Action{Kind: ActionInsert, Object: obj, Index: start, Values: vals})

		default:
			if bi < len(beforeIDs) && ai < len(afterIDs) {
				id := afterIDs[ai]
				bSlot, err := before.SlotAt(obj, common.ElemKey(id))
				if err == nil && !isText {
					aPrimary, _ := afterSlots[ai].Primary()
					bPrimary, bHas := bSlot.Primary()
					if bHas && bPrimary.ID != aPrimary.ID {
						act := Action{
							Kind: ActionPutSeq, Object: obj, Index: ai,
							Conflict: len(afterSlots[ai].Values()) > 1,
						}
						if aPrimary.Action.IsMake() {
							act.Child = aPrimary.ID
						} else {
							act.Value = aPrimary.Value
						}
						actions = append(actions, act)
					}
				}
			}
			bi++
			ai++
		}
	}
	return actions, nil
}

func unionSorted(a, b []string) []string {
	set := make(map[string]bool, len(a)+len(b))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		set[s] = true
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
