package change

import (
	"github.com/nullctx/crdtdoc/common"
	"github.com/nullctx/crdtdoc/crdt"
)

// localize rewrites ops whose Obj/Key/Pred actor fields are indices
// into the document-wide actor table into indices into actors (the
// change's own local, self-contained table), in preparation for
// encoding. The op's own id is not translated: its actor is always
// local index 0 (the author) and its counter is implied by its
// position, so it is dropped from the column encoding entirely.
func localize(actors []common.ActorID, globalOf func(localIdx int) common.ActorID, ops []crdt.Op) []crdt.Op {
	localIndex := make(map[common.ActorID]int, len(actors))
	for i, a := range actors {
		localIndex[a] = i
	}
	out := make([]crdt.Op, len(ops))
	translateID := func(id common.OpID) common.OpID {
		if id.IsRoot() {
			return id
		}
		return common.OpID{Counter: id.Counter, Actor: localIndex[globalOf(id.Actor)]}
	}
	for i, op := range ops {
		out[i] = op
		out[i].Obj = translateID(op.Obj)
		if op.Key.IsElem {
			out[i].Key = common.ElemKey(translateID(op.Key.Elem))
		}
		if len(op.Pred) > 0 {
			pred := make([]common.OpID, len(op.Pred))
			for j, p := range op.Pred {
				pred[j] = translateID(p)
			}
			out[i].Pred = pred
		}
	}
	return out
}

// NewChange builds a Change ready for encoding from a set of ops whose
// actor fields reference global (indices into the document's actor
// table). author and the actors referenced by the ops' Obj, Key and Pred
// fields are collected into the change's own local table, with author
// always at index 0.
func NewChange(author common.ActorID, globalOf func(localIdx int) common.ActorID, seq, startOp uint64, timeMS int64, message string, deps []common.ChangeHash, ops []crdt.Op) *Change {
	actors := []common.ActorID{author}
	seen := map[common.ActorID]bool{author: true}
	addActor := func(id common.OpID) {
		if id.IsRoot() {
			return
		}
		a := globalOf(id.Actor)
		if !seen[a] {
			seen[a] = true
			actors = append(actors, a)
		}
	}
	for _, op := range ops {
		addActor(op.Obj)
		if op.Key.IsElem {
			addActor(op.Key.Elem)
		}
		for _, p := range op.Pred {
			addActor(p)
		}
	}

	return &Change{
		Actors:  actors,
		Seq:     seq,
		StartOp: startOp,
		Time:    timeMS,
		Message: message,
		Deps:    deps,
		Ops:     localize(actors, globalOf, ops),
	}
}

// GlobalOps rewrites c.Ops, whose actor fields are indices into c.Actors
// (and whose op ids carry local author index 0), into ops whose actor
// fields are indices into table, interning any actor in c.Actors that
// table has not seen before.
func (c *Change) GlobalOps(table *common.ActorTable) []crdt.Op {
	globalIndex := make([]int, len(c.Actors))
	for i, a := range c.Actors {
		globalIndex[i] = table.Insert(a)
	}

	out := make([]crdt.Op, len(c.Ops))
	translate := func(id common.OpID) common.OpID {
		if id.IsRoot() {
			return id
		}
		return common.OpID{Counter: id.Counter, Actor: globalIndex[id.Actor]}
	}
	for i, op := range c.Ops {
		out[i] = op
		out[i].ID = common.OpID{Counter: op.ID.Counter, Actor: globalIndex[0]}
		out[i].Obj = translate(op.Obj)
		if op.Key.IsElem {
			out[i].Key = common.ElemKey(translate(op.Key.Elem))
		}
		if len(op.Pred) > 0 {
			pred := make([]common.OpID, len(op.Pred))
			for j, p := range op.Pred {
				pred[j] = translate(p)
			}
			out[i].Pred = pred
		}
	}
	return out
}
