package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullctx/crdtdoc/common"
)

func TestMapPutGetAndConflict(t *testing.T) {
	os := NewOpSet()

	opA := Op{ID: common.OpID{Counter: 1, Actor: 0}, Obj: common.RootID, Key: common.MapKey("name"), Action: common.ActionPut, Value: common.StrValue("alice")}
	require.NoError(t, os.Apply(opA))

	slot, err := os.Get(common.RootID, "name")
	require.NoError(t, err)
	assert.Len(t, slot.Values(), 1)
	assert.Equal(t, "alice", slot.Values()[0].Value.Str)

	// concurrent put from another actor, no pred: both visible
	opB := Op{ID: common.OpID{Counter: 1, Actor: 1}, Obj: common.RootID, Key: common.MapKey("name"), Action: common.ActionPut, Value: common.StrValue("bob")}
	require.NoError(t, os.Apply(opB))

	slot, _ = os.Get(common.RootID, "name")
	assert.Len(t, slot.Values(), 2)
	primary, ok := slot.Primary()
	require.True(t, ok)
	assert.Equal(t, opB.ID, primary.ID) // greatest op id wins

	// a later put that supersedes both resolves the conflict
	opC := Op{ID: common.OpID{Counter: 2, Actor: 0}, Obj: common.RootID, Key: common.MapKey("name"), Action: common.ActionPut, Value: common.StrValue("carol"), Pred: []common.OpID{opA.ID, opB.ID}}
	require.NoError(t, os.Apply(opC))

	slot, _ = os.Get(common.RootID, "name")
	assert.Len(t, slot.Values(), 1)
	assert.Equal(t, "carol", slot.Values()[0].Value.Str)

	keys, err := os.Keys(common.RootID)
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, keys)
}

func TestMapDeleteAndUnknownProperty(t *testing.T) {
	os := NewOpSet()
	put := Op{ID: common.OpID{Counter: 1, Actor: 0}, Obj: common.RootID, Key: common.MapKey("k"), Action: common.ActionPut, Value: common.IntValue(1)}
	require.NoError(t, os.Apply(put))

	del := Op{ID: common.OpID{Counter: 2, Actor: 0}, Obj: common.RootID, Key: common.MapKey("k"), Action: common.ActionDelete, Pred: []common.OpID{put.ID}}
	require.NoError(t, os.Apply(del))

	slot, err := os.Get(common.RootID, "k")
	require.NoError(t, err)
	assert.True(t, slot.Empty())

	badDel := Op{ID: common.OpID{Counter: 3, Actor: 0}, Obj: common.RootID, Key: common.MapKey("missing"), Action: common.ActionDelete, Pred: []common.OpID{put.ID}}
	err = os.Apply(badDel)
	require.Error(t, err)
}

func TestCounterIncrement(t *testing.T) {
	os := NewOpSet()
	put := Op{ID: common.OpID{Counter: 1, Actor: 0}, Obj: common.RootID, Key: common.MapKey("c"), Action: common.ActionPut, Value: common.CounterValue(5)}
	require.NoError(t, os.Apply(put))

	inc := Op{ID: common.OpID{Counter: 2, Actor: 0}, Obj: common.RootID, Key: common.MapKey("c"), Action: common.ActionIncrement, Value: common.IntValue(3), Pred: []common.OpID{put.ID}}
	require.NoError(t, os.Apply(inc))

	slot, err := os.Get(common.RootID, "c")
	require.NoError(t, err)
	assert.Equal(t, int64(8), slot.Values()[0].Value.Int)
}

func TestMakeListAndSequenceInsert(t *testing.T) {
	os := NewOpSet()
	makeList := Op{ID: common.OpID{Counter: 1, Actor: 0}, Obj: common.RootID, Key: common.MapKey("items"), Action: common.ActionMakeList}
	require.NoError(t, os.Apply(makeList))

	listID := makeList.ID
	typ, err := os.ObjectType(listID)
	require.NoError(t, err)
	assert.Equal(t, common.NodeTypeList, typ)

	parent, ok := os.Parent(listID)
	require.True(t, ok)
	assert.Equal(t, common.RootID, parent)

	ins1 := Op{ID: common.OpID{Counter: 2, Actor: 0}, Obj: listID, Key: HeadKey, Insert: true, Action: common.ActionPut, Value: common.IntValue(1)}
	require.NoError(t, os.Apply(ins1))

	ins2 := Op{ID: common.OpID{Counter: 3, Actor: 0}, Obj: listID, Key: common.ElemKey(ins1.ID), Insert: true, Action: common.ActionPut, Value: common.IntValue(2)}
	require.NoError(t, os.Apply(ins2))

	n, err := os.Length(listID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	slot, _, err := os.Nth(listID, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), slot.Values()[0].Value.Int)

	slot, _, err = os.Nth(listID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), slot.Values()[0].Value.Int)
}

func TestConcurrentInsertAtSamePositionOrdersByOpIDDescending(t *testing.T) {
	os := NewOpSet()
	makeList := Op{ID: common.OpID{Counter: 1, Actor: 0}, Obj: common.RootID, Key: common.MapKey("items"), Action: common.ActionMakeList}
	require.NoError(t, os.Apply(makeList))
	listID := makeList.ID

	// two actors concurrently insert at the head
	insLow := Op{ID: common.OpID{Counter: 2, Actor: 0}, Obj: listID, Key: HeadKey, Insert: true, Action: common.ActionPut, Value: common.StrValue("low")}
	insHigh := Op{ID: common.OpID{Counter: 2, Actor: 1}, Obj: listID, Key: HeadKey, Insert: true, Action: common.ActionPut, Value: common.StrValue("high")}
	require.NoError(t, os.Apply(insLow))
	require.NoError(t, os.Apply(insHigh))

	slot, _, err := os.Nth(listID, 0)
	require.NoError(t, err)
	assert.Equal(t, "high", slot.Values()[0].Value.Str) // greater op id sorts first at the same predecessor
}

func TestSequenceUpdateAndDelete(t *testing.T) {
	os := NewOpSet()
	makeList := Op{ID: common.OpID{Counter: 1, Actor: 0}, Obj: common.RootID, Key: common.MapKey("items"), Action: common.ActionMakeList}
	require.NoError(t, os.Apply(makeList))
	listID := makeList.ID

	ins := Op{ID: common.OpID{Counter: 2, Actor: 0}, Obj: listID, Key: HeadKey, Insert: true, Action: common.ActionPut, Value: common.IntValue(1)}
	require.NoError(t, os.Apply(ins))

	update := Op{ID: common.OpID{Counter: 3, Actor: 0}, Obj: listID, Key: common.ElemKey(ins.ID), Action: common.ActionPut, Value: common.IntValue(2), Pred: []common.OpID{ins.ID}}
	require.NoError(t, os.Apply(update))

	slot, _, err := os.Nth(listID, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), slot.Values()[0].Value.Int)

	del := Op{ID: common.OpID{Counter: 4, Actor: 0}, Obj: listID, Key: common.ElemKey(ins.ID), Action: common.ActionDelete, Pred: []common.OpID{update.ID}}
	require.NoError(t, os.Apply(del))

	n, err := os.Length(listID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMarkBeginEndAndMarksAt(t *testing.T) {
	os := NewOpSet()
	makeText := Op{ID: common.OpID{Counter: 1, Actor: 0}, Obj: common.RootID, Key: common.MapKey("body"), Action: common.ActionMakeText}
	require.NoError(t, os.Apply(makeText))
	textID := makeText.ID

	var prev common.Key = HeadKey
	var elems []common.OpID
	for i, ch := range "abc" {
		op := Op{ID: common.OpID{Counter: uint64(2 + i), Actor: 0}, Obj: textID, Key: prev, Insert: true, Action: common.ActionPut, Value: common.StrValue(string(ch))}
		require.NoError(t, os.Apply(op))
		elems = append(elems, op.ID)
		prev = common.ElemKey(op.ID)
	}

	begin := Op{ID: common.OpID{Counter: 10, Actor: 0}, Obj: textID, Key: common.ElemKey(elems[0]), Action: common.ActionMarkBegin, Mark: "bold", Expand: common.ExpandNone}
	require.NoError(t, os.Apply(begin))

	end := Op{ID: common.OpID{Counter: 11, Actor: 0}, Obj: textID, Key: common.ElemKey(elems[2]), Action: common.ActionMarkEnd, Mark: "bold", Pred: []common.OpID{begin.ID}}
	require.NoError(t, os.Apply(end))

	marks, err := os.MarksAt(textID, 0)
	require.NoError(t, err)
	assert.Contains(t, marks, "bold")

	marks, err = os.MarksAt(textID, 2)
	require.NoError(t, err)
	assert.NotContains(t, marks, "bold")
}

func TestWrongObjectTypeError(t *testing.T) {
	os := NewOpSet()
	_, err := os.Length(common.RootID)
	require.Error(t, err)
	var typeErr common.ErrInvalidNodeType
	require.ErrorAs(t, err, &typeErr)
}

func TestApplyToMissingObject(t *testing.T) {
	os := NewOpSet()
	op := Op{ID: common.OpID{Counter: 1, Actor: 0}, Obj: common.OpID{Counter: 99, Actor: 0}, Key: common.MapKey("x"), Action: common.ActionPut, Value: common.IntValue(1)}
	err := os.Apply(op)
	require.Error(t, err)
	var missing common.ErrMissingObjectID
	require.ErrorAs(t, err, &missing)
}
