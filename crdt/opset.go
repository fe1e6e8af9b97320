package crdt

import "github.com/nullctx/crdtdoc/common"

// HeadKey is the predecessor key naming the start of a sequence, used
// by the first insert op applied at a given position.
var HeadKey = common.Key{}

// object is one map/list/text/table object tracked by the OpSet.
type object struct {
	id   common.ObjID
	typ  common.NodeType
	mo   *mapObj
	seq  *seqObj
}

func newObject(id common.ObjID, typ common.NodeType) *object {
	o := &object{id: id, typ: typ}
	switch typ {
	case common.NodeTypeList, common.NodeTypeText:
		o.seq = newSeqObj()
	default:
		o.mo = newMapObj()
	}
	return o
}

// OpSet is the per-document operation index of §3.2/§4.5 (C5): every
// object's conflict registers, reachable by object id, with a parent
// index mirroring original_source's obj_alias.rs.
type OpSet struct {
	objects map[common.ObjID]*object
	parent  map[common.ObjID]common.ObjID
	order   []common.ObjID // creation order, root first
}

// NewOpSet returns an OpSet containing only the root map object.
func NewOpSet() *OpSet {
	os := &OpSet{
		objects: make(map[common.ObjID]*object),
		parent:  make(map[common.ObjID]common.ObjID),
	}
	os.objects[common.RootID] = newObject(common.RootID, common.NodeTypeRoot)
	os.order = append(os.order, common.RootID)
	return os
}

// Objects returns every object id known to the OpSet (including
// tombstoned-but-never-removed ones), in creation order, root first.
// Used by package crdtpatch to walk objects parent-before-child.
func (os *OpSet) Objects() []common.ObjID {
	out := make([]common.ObjID, len(os.order))
	copy(out, os.order)
	return out
}

func (os *OpSet) getObject(id common.ObjID) (*object, error) {
	o, ok := os.objects[id]
	if !ok {
		return nil, common.ErrMissingObjectID{Obj: id}
	}
	return o, nil
}

// Parent returns the object obj was created inside of, if obj is not
// the root (§9 supplemented: grounded on obj_alias.rs).
func (os *OpSet) Parent(obj common.ObjID) (common.ObjID, bool) {
	p, ok := os.parent[obj]
	return p, ok
}

// ObjectType reports the NodeType of obj.
func (os *OpSet) ObjectType(obj common.ObjID) (common.NodeType, error) {
	o, err := os.getObject(obj)
	if err != nil {
		return "", err
	}
	return o.typ, nil
}

// Apply replays a single op into the OpSet. Make-* ops register a new
// child object; every op also lands (or tombstones) an entry in its
// target object's registers.
func (os *OpSet) Apply(op Op) error {
	target, err := os.getObject(op.Obj)
	if err != nil {
		return err
	}

	if op.Action.IsMake() {
		childType := op.Action.ObjectNodeType()
		os.objects[op.ID] = newObject(op.ID, childType)
		os.parent[op.ID] = op.Obj
		os.order = append(os.order, op.ID)
	}

	switch {
	case op.Action == common.ActionDelete:
		return os.applyDelete(target, op)
	case op.Action == common.ActionIncrement:
		if target.mo == nil {
			return common.ErrInvalidNodeType{Expected: common.NodeTypeMap, Actual: target.typ}
		}
		return target.mo.increment(op.Key.Prop, op.Value.Int, op.Pred)
	case op.Action == common.ActionMarkBegin:
		if target.seq == nil {
			return common.ErrInvalidNodeType{Expected: common.NodeTypeText, Actual: target.typ}
		}
		target.seq.beginMark(op)
		return nil
	case op.Action == common.ActionMarkEnd:
		if target.seq == nil {
			return common.ErrInvalidNodeType{Expected: common.NodeTypeText, Actual: target.typ}
		}
		return target.seq.endMark(op)
	case op.Insert:
		if target.seq == nil {
			return common.ErrInvalidNodeType{Expected: common.NodeTypeList, Actual: target.typ}
		}
		return target.seq.insert(op)
	case op.Key.IsElem:
		if target.seq == nil {
			return common.ErrInvalidNodeType{Expected: common.NodeTypeList, Actual: target.typ}
		}
		return target.seq.update(op)
	default:
		if target.mo == nil {
			return common.ErrInvalidNodeType{Expected: common.NodeTypeMap, Actual: target.typ}
		}
		target.mo.put(op)
		return nil
	}
}

func (os *OpSet) applyDelete(target *object, op Op) error {
	if op.Key.IsElem {
		if target.seq == nil {
			return common.ErrInvalidNodeType{Expected: common.NodeTypeList, Actual: target.typ}
		}
		return target.seq.del(op.Key.Elem, op.ID, op.Pred)
	}
	if target.mo == nil {
		return common.ErrInvalidNodeType{Expected: common.NodeTypeMap, Actual: target.typ}
	}
	return target.mo.del(op.Key.Prop, op.ID, op.Pred)
}

// Get returns the register at prop within a map object (§4.5 get).
func (os *OpSet) Get(obj common.ObjID, prop string) (Slot, error) {
	o, err := os.getObject(obj)
	if err != nil {
		return Slot{}, err
	}
	if o.mo == nil {
		return Slot{}, common.ErrInvalidNodeType{Expected: common.NodeTypeMap, Actual: o.typ}
	}
	return o.mo.get(prop), nil
}

// SlotAt returns the register named by key within obj, whether it is a
// map property or a sequence element, used by callers (package
// document) to compute a new op's Pred set.
func (os *OpSet) SlotAt(obj common.ObjID, key common.Key) (Slot, error) {
	o, err := os.getObject(obj)
	if err != nil {
		return Slot{}, err
	}
	if key.IsElem {
		if o.seq == nil {
			return Slot{}, common.ErrInvalidNodeType{Expected: common.NodeTypeList, Actual: o.typ}
		}
		slot, ok := o.seq.slotFor(key.Elem)
		if !ok {
			return Slot{}, common.ErrIndexOutOfBounds{Index: -1, Length: len(o.seq.elems)}
		}
		return slot, nil
	}
	if o.mo == nil {
		return Slot{}, common.ErrInvalidNodeType{Expected: common.NodeTypeMap, Actual: o.typ}
	}
	return o.mo.get(key.Prop), nil
}

// Keys returns the visible property names of a map object, sorted
// (§4.5 keys).
func (os *OpSet) Keys(obj common.ObjID) ([]string, error) {
	o, err := os.getObject(obj)
	if err != nil {
		return nil, err
	}
	if o.mo == nil {
		return nil, common.ErrInvalidNodeType{Expected: common.NodeTypeMap, Actual: o.typ}
	}
	return o.mo.keys(), nil
}

// Length returns the number of visible elements in a list/text object
// (§4.5 length).
func (os *OpSet) Length(obj common.ObjID) (int, error) {
	o, err := os.getObject(obj)
	if err != nil {
		return 0, err
	}
	if o.seq == nil {
		return 0, common.ErrInvalidNodeType{Expected: common.NodeTypeList, Actual: o.typ}
	}
	return o.seq.length(), nil
}

// Nth returns the register and element id at the i-th visible position
// of a list/text object (§4.5 nth).
func (os *OpSet) Nth(obj common.ObjID, i int) (Slot, common.ElemID, error) {
	o, err := os.getObject(obj)
	if err != nil {
		return Slot{}, common.ElemID{}, err
	}
	if o.seq == nil {
		return Slot{}, common.ElemID{}, common.ErrInvalidNodeType{Expected: common.NodeTypeList, Actual: o.typ}
	}
	return o.seq.nth(i)
}

// ElemIDPos returns the visible position of elemID within a list/text
// object, used to resolve cursors (§4.5 elem_id_pos, §9 Cursors).
func (os *OpSet) ElemIDPos(obj common.ObjID, elemID common.ElemID) (int, bool, error) {
	o, err := os.getObject(obj)
	if err != nil {
		return 0, false, err
	}
	if o.seq == nil {
		return 0, false, common.ErrInvalidNodeType{Expected: common.NodeTypeList, Actual: o.typ}
	}
	pos, ok := o.seq.elemIDPos(elemID)
	return pos, ok, nil
}

// Range returns the registers for visible positions [from, to) of a
// list/text object (§4.5 range).
func (os *OpSet) Range(obj common.ObjID, from, to int) ([]Slot, error) {
	o, err := os.getObject(obj)
	if err != nil {
		return nil, err
	}
	if o.seq == nil {
		return nil, common.ErrInvalidNodeType{Expected: common.NodeTypeList, Actual: o.typ}
	}
	vis := o.seq.visibleIndices()
	if from < 0 || to > len(vis) || from > to {
		return nil, common.ErrIndexOutOfBounds{Index: from, Length: len(vis)}
	}
	out := make([]Slot, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, Slot{entries: o.seq.elems[vis[i]].entries})
	}
	return out, nil
}

// MarksAt returns the marks active at the i-th visible position of a
// text object (§4.5 marks_at).
func (os *OpSet) MarksAt(obj common.ObjID, i int) ([]string, error) {
	o, err := os.getObject(obj)
	if err != nil {
		return nil, err
	}
	if o.seq == nil {
		return nil, common.ErrInvalidNodeType{Expected: common.NodeTypeText, Actual: o.typ}
	}
	vis := o.seq.visibleIndices()
	if i < 0 || i >= len(vis) {
		return nil, common.ErrIndexOutOfBounds{Index: i, Length: len(vis)}
	}
	return o.seq.marksAt(o.seq.elems[vis[i]].id), nil
}
