// Package crdtpatch implements patch (diff) generation between two
// document clocks (C7, §4.7): the observable difference an observer
// sees moving from a before clock to an after clock, expressed as a
// small vocabulary of per-object actions rather than the raw op log.
package crdtpatch

import "github.com/nullctx/crdtdoc/common"

// ActionKind discriminates the action vocabulary of §4.7.
type ActionKind string

const (
	ActionPutMap      ActionKind = "put_map"
	ActionPutSeq      ActionKind = "put_seq"
	ActionInsert      ActionKind = "insert"
	ActionSpliceText  ActionKind = "splice_text"
	ActionDeleteMap   ActionKind = "delete_map"
	ActionDeleteSeq   ActionKind = "delete_seq"
	ActionIncrement   ActionKind = "increment"
	ActionMark        ActionKind = "mark"
	ActionConflict    ActionKind = "conflict"
)

// Action is one observable change to a single object, as produced by
// Diff. Exactly the fields implied by Kind are meaningful.
type Action struct {
	Kind   ActionKind
	Object common.ObjID

	Key   string // PutMap, DeleteMap, Increment, Conflict
	Index int    // PutSeq, Insert, SpliceText, DeleteSeq, Mark
	Length int   // DeleteSeq: number of consecutive elements removed

	Value  common.Value   // PutMap, PutSeq: the new primary value
	Child  common.ObjID   // PutMap, PutSeq, Insert: set instead of Value/Values when the slot holds a nested object; an Insert with Child set always covers exactly one element
	Values []common.Value // Insert: a contiguous batched run of new scalar elements (never mixed with a Child insert)
	Text   string         // SpliceText: a contiguous batched run of new characters

	Delta int64 // Increment: the net change in the counter's value

	Marks []string // SpliceText, Mark: mark names active at this run/position

	Conflict bool // PutMap, PutSeq: whether more than one value is visible
}

// Patch is an ordered list of actions: parent objects before the
// children exposed within them (§4.7). Within one sequence object the
// actions follow ascending position, each index counted as if the
// actions before it had been applied, with a delete placed before an
// insert at the same position; deletes are not grouped ahead of all
// inserts.
type Patch []Action
