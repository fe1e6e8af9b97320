// Package document implements the Document façade of §3.6/§4.6 (C6):
// the transactional entry point that ties the OpSet (package crdt), the
// change graph (package clock), and the change codec (package change)
// together into the engine's public surface.
package document

import (
	"github.com/pkg/errors"

	"github.com/nullctx/crdtdoc/change"
	"github.com/nullctx/crdtdoc/clock"
	"github.com/nullctx/crdtdoc/columnar"
	"github.com/nullctx/crdtdoc/common"
	"github.com/nullctx/crdtdoc/crdt"
)

// Document is a single replica of the CRDT document.
type Document struct {
	actors *common.ActorTable
	props  *common.PropTable
	graph  *clock.Graph
	byHash map[common.ChangeHash]*change.Change

	opset *crdt.OpSet

	myActor    common.ActorID
	myActorIdx int

	txn *Transaction
}

// New returns an empty document authored by actor.
func New(actor common.ActorID) *Document {
	d := &Document{
		actors: common.NewActorTable(),
		props:  common.NewPropTable(),
		graph:  clock.NewGraph(),
		byHash: make(map[common.ChangeHash]*change.Change),
		opset:  crdt.NewOpSet(),
		myActor: actor,
	}
	d.myActorIdx = d.actors.Insert(actor)
	return d
}

// Actor returns the document's current author identity.
func (d *Document) Actor() common.ActorID { return d.myActor }

// WithActor returns a document over the same history, authored from
// now on by actor instead (§4.6 with_actor). The receiver is
// unaffected.
func (d *Document) WithActor(actor common.ActorID) (*Document, error) {
	if d.txn != nil {
		return nil, errors.New("document: cannot change actor with an open transaction")
	}
	out, err := d.Fork()
	if err != nil {
		return nil, err
	}
	out.myActor = actor
	out.myActorIdx = out.actors.Insert(actor)
	return out, nil
}

// Fork returns an independent copy of the document, for concurrent
// local editing (§4.6 fork). The document is round-tripped through
// Save and Load, so the fork shares no state with the original: the
// original is never mutated by methods on the fork.
func (d *Document) Fork() (*Document, error) {
	data, err := d.Save()
	if err != nil {
		return nil, errors.Wrap(err, "document: fork")
	}
	return Load(data, d.myActor)
}

// GetHeads returns the current frontier of the change graph (§4.6
// get_heads).
func (d *Document) GetHeads() []common.ChangeHash {
	return d.graph.Heads()
}

// GetChangeByHash returns the change named by hash, if known (§4.6
// get_change_by_hash).
func (d *Document) GetChangeByHash(hash common.ChangeHash) (*change.Change, bool) {
	c, ok := d.byHash[hash]
	return c, ok
}

// GetChanges returns every change in the graph in a topological order
// consistent with dependencies (§4.6 get_changes). To fetch only
// changes not yet known to a peer, callers diff the result against
// GetMissingDeps for the peer's heads.
func (d *Document) GetChanges() []*change.Change {
	metas := d.graph.ChangesTopo()
	out := make([]*change.Change, 0, len(metas))
	for _, m := range metas {
		if c, ok := d.byHash[m.Hash]; ok {
			out = append(out, c)
		}
	}
	return out
}

// GetMissingDeps reports which of heads (typically a peer's reported
// frontier) this document has not yet incorporated (§4.6
// get_missing_deps).
func (d *Document) GetMissingDeps(heads []common.ChangeHash) []common.ChangeHash {
	return d.graph.MissingDeps(heads)
}

// ObjectType reports the kind of object id names.
func (d *Document) ObjectType(id common.ObjID) (common.NodeType, error) {
	return d.opset.ObjectType(id)
}

// Get returns the register at a map property (§4.5/§4.6 get).
func (d *Document) Get(obj common.ObjID, prop string) (crdt.Slot, error) {
	return d.opset.Get(obj, prop)
}

// Keys returns the visible property names of a map object.
func (d *Document) Keys(obj common.ObjID) ([]string, error) {
	return d.opset.Keys(obj)
}

// Length returns the number of visible elements in a list/text object.
func (d *Document) Length(obj common.ObjID) (int, error) {
	return d.opset.Length(obj)
}

// Nth returns the register and element id at position i of a
// list/text object.
func (d *Document) Nth(obj common.ObjID, i int) (crdt.Slot, common.ElemID, error) {
	return d.opset.Nth(obj, i)
}

// Range returns the registers over [from, to) of a list/text object.
func (d *Document) Range(obj common.ObjID, from, to int) ([]crdt.Slot, error) {
	return d.opset.Range(obj, from, to)
}

// MarksAt returns the marks active at position i of a text object.
func (d *Document) MarksAt(obj common.ObjID, i int) ([]string, error) {
	return d.opset.MarksAt(obj, i)
}

// Root is the sentinel naming the document's root map.
var Root = common.RootID

// rebuildOpSet replays every change in the graph, in topological order,
// into a fresh OpSet: used by Rollback and by a Commit the change graph
// rejects, to undo the transaction's tentatively-applied ops (§4.6
// rollback).
func (d *Document) rebuildOpSet() error {
	fresh := crdt.NewOpSet()
	for _, meta := range d.graph.ChangesTopo() {
		c, ok := d.byHash[meta.Hash]
		if !ok {
			return errors.Errorf("document: change %s missing from store during rebuild", meta.Hash)
		}
		ops := c.GlobalOps(d.actors)
		for _, op := range ops {
			if err := fresh.Apply(op); err != nil {
				return errors.Wrapf(err, "document: replay change %s", meta.Hash)
			}
		}
	}
	d.opset = fresh
	return nil
}

// Snapshot replays every op causally covered by heads into a fresh
// OpSet, for patch generation (§4.7): diffing two snapshots at
// different heads yields the observable difference between them. Ops
// are replayed in the document's own topological order, filtering out
// any op whose id is not covered by the clock derived from heads.
func (d *Document) Snapshot(heads []common.ChangeHash) (*crdt.OpSet, error) {
	at := d.graph.ClockForHeads(heads)
	os := crdt.NewOpSet()
	for _, meta := range d.graph.ChangesTopo() {
		c, ok := d.byHash[meta.Hash]
		if !ok {
			return nil, errors.Errorf("document: change %s missing from store during snapshot", meta.Hash)
		}
		for _, op := range c.GlobalOps(d.actors) {
			if !at.Covers(op.ID.Actor, op.ID.Counter) {
				continue
			}
			if err := os.Apply(op); err != nil {
				return nil, errors.Wrapf(err, "document: snapshot replay of change %s", meta.Hash)
			}
		}
	}
	return os, nil
}

// ApplyChange incorporates a remote change atomically: either the
// actor table, change graph and OpSet all advance together to include
// it, or the document is left exactly as it was (§4.4 apply_change,
// §3.3 atomicity).
//
// The actor table, graph and OpSet are rebuilt from scratch from the
// complete change set — this change plus everything already in
// d.byHash — rather than folding just the new change into whatever
// state those three happened to already be in. clock.TopoSort's
// (author, seq) tie-break is a pure function of the change set, so two
// replicas that receive the same concurrent changes in a different
// order still place them identically and intern every actor at the
// same table index, which is what makes the RGA insert() in
// crdt/seqobj.go converge on the same list order regardless of
// delivery order (§8.2 S2): appending the new change's ops after an
// already-built replay, or rebuilding the OpSet without also rebuilding
// the actor table in the same canonical pass, both leave a later
// arrival's actor assigned a different table index — and hence a
// different relative op id — in each replica, so "insert before or
// after the existing element" disagrees between them even though both
// replicas hold the identical two changes.
func (d *Document) ApplyChange(c *change.Change) error {
	if d.txn != nil {
		return errors.New("document: cannot apply a change with an open transaction")
	}
	hash := c.Hash()
	if _, ok := d.byHash[hash]; ok {
		return nil // idempotent re-application
	}

	byHash := make(map[common.ChangeHash]*change.Change, len(d.byHash)+1)
	candidates := make([]clock.ChangeMeta, 0, len(d.byHash)+1)
	for h, existing := range d.byHash {
		byHash[h] = existing
		candidates = append(candidates, metaFromChange(existing))
	}
	byHash[hash] = c
	candidates = append(candidates, metaFromChange(c))

	freshActors := common.NewActorTable()
	freshGraph := clock.NewGraph()
	freshOpSet := crdt.NewOpSet()

	for _, m := range clock.TopoSort(candidates) {
		ch := byHash[m.Hash]
		m.Actor = freshActors.Insert(ch.Author())
		if err := freshGraph.AddChange(m); err != nil {
			return errors.Wrapf(err, "document: apply_change %s", hash)
		}
		for _, op := range ch.GlobalOps(freshActors) {
			if err := freshOpSet.Apply(op); err != nil {
				return errors.Wrapf(err, "document: apply_change %s", hash)
			}
		}
	}

	d.actors = freshActors
	d.graph = freshGraph
	d.opset = freshOpSet
	d.byHash = byHash
	d.myActorIdx = d.actors.Insert(d.myActor)
	return nil
}

// Merge incorporates every change in other that this document has not
// yet seen (§4.6 merge), applying them in a topological order so
// dependencies always land first.
func (d *Document) Merge(other *Document) error {
	for _, c := range other.GetChanges() {
		if _, ok := d.byHash[c.Hash()]; ok {
			continue
		}
		if err := d.ApplyChange(c); err != nil {
			return err
		}
	}
	return nil
}

// Save serialises the full document history as a single document chunk
// (§4.3/§4.6 save): every change, in topological order, framed with
// the rest of the columnar machinery the change chunk already uses.
func (d *Document) Save() ([]byte, error) {
	changes := d.GetChanges()
	w := columnar.NewWriter()
	w.WriteUvarint(uint64(len(changes)))
	for _, c := range changes {
		encoded, err := c.Encode(true)
		if err != nil {
			return nil, err
		}
		w.WriteLenPrefixed(encoded)
	}
	chunk := columnar.Chunk{Type: columnar.ChunkTypeDocument, Body: w.Bytes()}
	return chunk.Encode(), nil
}

// Load reconstructs a document from bytes produced by Save, authored
// from now on by actor (§4.6 load).
func Load(data []byte, actor common.ActorID) (*Document, error) {
	r := columnar.NewReader(data)
	chunk, err := columnar.ReadChunk(r)
	if err != nil {
		return nil, err
	}
	if chunk.Type != columnar.ChunkTypeDocument {
		return nil, common.ErrDecoding{Reason: "chunk is not a document"}
	}

	body := columnar.NewReader(chunk.Body)
	count, err := body.ReadUvarint()
	if err != nil {
		return nil, err
	}

	d := New(actor)
	for i := uint64(0); i < count; i++ {
		encoded, err := body.ReadLenPrefixed()
		if err != nil {
			return nil, err
		}
		c, _, err := change.Decode(encoded)
		if err != nil {
			return nil, err
		}
		if err := d.ApplyChange(c); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// LoadIncremental applies the changes framed in data (a sequence of
// individually-framed change chunks, not a document chunk) to an
// existing document, for streaming replication (§4.6
// load_incremental).
func (d *Document) LoadIncremental(data []byte) (int, error) {
	r := columnar.NewReader(data)
	applied := 0
	for r.Remaining() > 0 {
		chunk, err := columnar.ReadChunk(r)
		if err != nil {
			return applied, err
		}
		encoded := chunk.Encode()
		c, _, err := change.Decode(encoded)
		if err != nil {
			return applied, err
		}
		if err := d.ApplyChange(c); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

// SaveIncremental serialises only the changes reachable from heads but
// not from knownHeads, each as its own framed change chunk concatenated
// back to back (§4.6 save_incremental).
func (d *Document) SaveIncremental(knownHeads []common.ChangeHash) ([]byte, error) {
	known := d.graph.ClockForHeads(knownHeads)
	w := columnar.NewWriter()
	for _, c := range d.GetChanges() {
		if known.Covers(d.actors.Insert(c.Author()), c.MaxOp()) {
			continue
		}
		encoded, err := c.Encode(false)
		if err != nil {
			return nil, err
		}
		w.WriteRaw(encoded)
	}
	return w.Bytes(), nil
}
