package document

import (
	"github.com/nullctx/crdtdoc/change"
	"github.com/nullctx/crdtdoc/clock"
	"github.com/nullctx/crdtdoc/common"
)

func buildChange(d *Document, t *Transaction, message string) *change.Change {
	globalOf := func(idx int) common.ActorID { return d.actors.Actor(idx) }
	seq := d.graph.LastSeq(d.myActorIdx) + 1
	return change.NewChange(d.myActor, globalOf, seq, t.startOp, nowMS(), message, t.deps, t.ops)
}

func changeMeta(c *change.Change, hash common.ChangeHash, actorIdx int) clock.ChangeMeta {
	return clock.ChangeMeta{
		Hash:    hash,
		Actor:   actorIdx,
		Author:  c.Author(),
		Seq:     c.Seq,
		StartOp: c.StartOp,
		NumOps:  c.NumOps(),
		Time:    c.Time,
		Message: c.Message,
		Deps:    c.Deps,
	}
}

// metaFromChange builds a ChangeMeta directly from a change, with no
// actor-table index assigned yet (Actor is filled in once the caller
// knows which ActorTable the meta is about to be added to).
func metaFromChange(c *change.Change) clock.ChangeMeta {
	return clock.ChangeMeta{
		Hash:    c.Hash(),
		Author:  c.Author(),
		Seq:     c.Seq,
		StartOp: c.StartOp,
		NumOps:  c.NumOps(),
		Time:    c.Time,
		Message: c.Message,
		Deps:    c.Deps,
	}
}
