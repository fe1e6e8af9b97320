package document

import (
	"time"

	"github.com/pkg/errors"

	"github.com/nullctx/crdtdoc/common"
	"github.com/nullctx/crdtdoc/crdt"
)

// Transaction is the atomic unit of local editing (§3.6/§4.6): every
// mutator call lands immediately in the document's live OpSet (so
// later calls within the same transaction observe earlier ones), but
// Commit is what turns the accumulated ops into a durable Change with
// an entry in the change graph; Rollback discards them entirely.
type Transaction struct {
	doc     *Document
	ops     []crdt.Op
	startOp uint64
	next    uint64
	deps    []common.ChangeHash
}

// Begin opens a transaction. Only one transaction may be open on a
// document at a time.
func (d *Document) Begin() (*Transaction, error) {
	if d.txn != nil {
		return nil, errors.New("document: a transaction is already open")
	}
	clk := d.graph.ClockForHeads(d.graph.Heads())
	var maxOp uint64
	for _, a := range clk.Actors() {
		if c := clk.MaxCounter(a); c > maxOp {
			maxOp = c
		}
	}
	startOp := maxOp + 1
	t := &Transaction{
		doc:     d,
		startOp: startOp,
		next:    startOp,
		deps:    d.graph.Heads(),
	}
	d.txn = t
	return t, nil
}

func (t *Transaction) nextID() common.OpID {
	id := common.OpID{Counter: t.next, Actor: t.doc.myActorIdx}
	t.next++
	return id
}

func (t *Transaction) apply(op opDraft) (common.OpID, error) {
	co := crdt.Op{
		ID:     op.id,
		Obj:    op.obj,
		Key:    op.key,
		Action: op.action,
		Value:  op.value,
		Insert: op.insert,
		Pred:   op.pred,
		Expand: op.expand,
		Mark:   op.mark,
	}
	if err := t.doc.opset.Apply(co); err != nil {
		return common.OpID{}, err
	}
	t.ops = append(t.ops, co)
	return op.id, nil
}

// opDraft is the internal staging shape a mutator builds before handing it
// to apply; it exists only to keep mutator bodies free of crdt.Op's
// full field list.
type opDraft struct {
	id     common.OpID
	obj    common.ObjID
	key    common.Key
	action common.ActionType
	value  common.Value
	insert bool
	pred   []common.OpID
	expand common.ExpandPolicy
	mark   string
}

func predFor(t *Transaction, obj common.ObjID, key common.Key) []common.OpID {
	slot, err := t.doc.opset.SlotAt(obj, key)
	if err != nil {
		return nil
	}
	vals := slot.Values()
	out := make([]common.OpID, len(vals))
	for i, v := range vals {
		out[i] = v.ID
	}
	return out
}

// Put writes a scalar value to a map property (§4.6 put).
func (t *Transaction) Put(obj common.ObjID, prop string, v common.Value) error {
	key := common.MapKey(prop)
	id := t.nextID()
	_, err := t.apply(opDraft{id: id, obj: obj, key: key, action: common.ActionPut, value: v, pred: predFor(t, obj, key)})
	return err
}

// PutObject creates a nested map/list/text object at a map property,
// returning its new object id (§4.6 put_object).
func (t *Transaction) PutObject(obj common.ObjID, prop string, typ common.NodeType) (common.ObjID, error) {
	action, err := makeAction(typ)
	if err != nil {
		return common.ObjID{}, err
	}
	key := common.MapKey(prop)
	id := t.nextID()
	return t.apply(opDraft{id: id, obj: obj, key: key, action: action, pred: predFor(t, obj, key)})
}

// Insert writes a scalar value into a list immediately after after (the
// zero ElemID meaning the list head), returning the new element's id
// (§4.6 insert).
func (t *Transaction) Insert(obj common.ObjID, after common.ElemID, v common.Value) (common.ElemID, error) {
	key := elemOrHead(after)
	id := t.nextID()
	return t.apply(opDraft{id: id, obj: obj, key: key, action: common.ActionPut, value: v, insert: true})
}

// InsertObject inserts a nested object into a list after after,
// returning the new object id (§4.6 insert_object).
func (t *Transaction) InsertObject(obj common.ObjID, after common.ElemID, typ common.NodeType) (common.ObjID, error) {
	action, err := makeAction(typ)
	if err != nil {
		return common.ObjID{}, err
	}
	key := elemOrHead(after)
	id := t.nextID()
	return t.apply(opDraft{id: id, obj: obj, key: key, action: action, insert: true})
}

// Delete removes a map property or a list/text element (§4.6 delete).
func (t *Transaction) Delete(obj common.ObjID, key common.Key) error {
	pred := predFor(t, obj, key)
	if len(pred) == 0 {
		if key.IsElem {
			return common.ErrIndexOutOfBounds{Index: -1}
		}
		return common.ErrUnknownProperty{Key: key.Prop}
	}
	id := t.nextID()
	_, err := t.apply(opDraft{id: id, obj: obj, key: key, action: common.ActionDelete, pred: pred})
	return err
}

// Increment adds delta to a counter (§4.6 increment).
func (t *Transaction) Increment(obj common.ObjID, prop string, delta int64) error {
	key := common.MapKey(prop)
	pred := predFor(t, obj, key)
	if len(pred) == 0 {
		return common.ErrNotACounter{}
	}
	id := t.nextID()
	_, err := t.apply(opDraft{id: id, obj: obj, key: key, action: common.ActionIncrement, value: common.IntValue(delta), pred: pred})
	return err
}

// SpliceText inserts text immediately after after, one character op
// per rune, returning the new elements' ids in order (§4.6
// splice_text).
func (t *Transaction) SpliceText(obj common.ObjID, after common.ElemID, text string) ([]common.ElemID, error) {
	ids := make([]common.ElemID, 0, len(text))
	prev := after
	for _, r := range text {
		id, err := t.Insert(obj, prev, common.StrValue(string(r)))
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
		prev = id
	}
	return ids, nil
}

// Mark applies a mark span from begin up to but not including end, with
// the given expand policy (§4.6 mark). It emits both the mark-begin op
// and the mark-end op that closes the span, and returns the begin op's
// id; because the span is already closed, Unmark with that id fails.
func (t *Transaction) Mark(obj common.ObjID, begin, end common.ElemID, name string, expand common.ExpandPolicy) (common.OpID, error) {
	beginID := t.nextID()
	if _, err := t.apply(opDraft{id: beginID, obj: obj, key: common.ElemKey(begin), action: common.ActionMarkBegin, mark: name, expand: expand}); err != nil {
		return common.OpID{}, err
	}
	endID := t.nextID()
	if _, err := t.apply(opDraft{id: endID, obj: obj, key: common.ElemKey(end), action: common.ActionMarkEnd, mark: name, pred: []common.OpID{beginID}}); err != nil {
		return common.OpID{}, err
	}
	return beginID, nil
}

// Unmark closes a mark span previously begun by beginID (§4.6 unmark).
func (t *Transaction) Unmark(obj common.ObjID, end common.ElemID, name string, beginID common.OpID) error {
	id := t.nextID()
	_, err := t.apply(opDraft{id: id, obj: obj, key: common.ElemKey(end), action: common.ActionMarkEnd, mark: name, pred: []common.OpID{beginID}})
	return err
}

// Commit finalises the transaction into a Change, records it in the
// change graph, and returns its hash. An empty transaction (no
// mutators called) still commits as a zero-op change.
func (t *Transaction) Commit(message string) (common.ChangeHash, error) {
	d := t.doc
	if d.txn != t {
		return common.ChangeHash{}, errors.New("document: transaction is not open on this document")
	}

	c := buildChange(d, t, message)
	hash := c.Hash()

	meta := changeMeta(c, hash, d.myActorIdx)
	if err := d.graph.AddChange(meta); err != nil {
		// The ops are already live in d.opset; undo them by rebuilding
		// from committed history only, keeping commit atomic.
		d.txn = nil
		_ = d.rebuildOpSet()
		return common.ChangeHash{}, err
	}
	d.byHash[hash] = c
	d.txn = nil
	return hash, nil
}

// Rollback discards every op the transaction applied, restoring the
// document to its state immediately before Begin (§4.6 rollback).
func (t *Transaction) Rollback() error {
	d := t.doc
	if d.txn != t {
		return errors.New("document: transaction is not open on this document")
	}
	d.txn = nil
	return d.rebuildOpSet()
}

func elemOrHead(after common.ElemID) common.Key {
	if after.IsRoot() {
		return crdtHeadKey
	}
	return common.ElemKey(after)
}

var crdtHeadKey = crdt.HeadKey

func makeAction(typ common.NodeType) (common.ActionType, error) {
	switch typ {
	case common.NodeTypeMap:
		return common.ActionMakeMap, nil
	case common.NodeTypeList:
		return common.ActionMakeList, nil
	case common.NodeTypeText:
		return common.ActionMakeText, nil
	default:
		return "", common.ErrInvalidOperation{Message: "cannot create an object of this type"}
	}
}

func nowMS() int64 {
	return time.Now().UnixMilli()
}
