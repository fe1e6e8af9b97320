package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullctx/crdtdoc/common"
)

func TestPutGetCommitAndHistory(t *testing.T) {
	d := New(common.NewActorID())

	txn, err := d.Begin()
	require.NoError(t, err)
	require.NoError(t, txn.Put(Root, "title", common.StrValue("hello")))
	hash, err := txn.Commit("set title")
	require.NoError(t, err)

	slot, err := d.Get(Root, "title")
	require.NoError(t, err)
	primary, ok := slot.Primary()
	require.True(t, ok)
	assert.Equal(t, "hello", primary.Value.Str)

	heads := d.GetHeads()
	require.Len(t, heads, 1)
	assert.Equal(t, hash, heads[0])

	c, ok := d.GetChangeByHash(hash)
	require.True(t, ok)
	assert.Equal(t, "set title", c.Message)

	changes := d.GetChanges()
	require.Len(t, changes, 1)
}

func TestPutObjectInsertAndLength(t *testing.T) {
	d := New(common.NewActorID())

	txn, err := d.Begin()
	require.NoError(t, err)
	listID, err := txn.PutObject(Root, "items", common.NodeTypeList)
	require.NoError(t, err)

	id1, err := txn.Insert(listID, common.ElemID{}, common.IntValue(1))
	require.NoError(t, err)
	_, err = txn.Insert(listID, id1, common.IntValue(2))
	require.NoError(t, err)

	_, err = txn.Commit("build list")
	require.NoError(t, err)

	n, err := d.Length(listID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	slot, elemID, err := d.Nth(listID, 0)
	require.NoError(t, err)
	v, ok := slot.Primary()
	require.True(t, ok)
	assert.Equal(t, int64(1), v.Value.Int)
	assert.Equal(t, id1, elemID)
}

func TestRollbackDiscardsOps(t *testing.T) {
	d := New(common.NewActorID())

	txn, err := d.Begin()
	require.NoError(t, err)
	require.NoError(t, txn.Put(Root, "a", common.IntValue(1)))
	require.NoError(t, txn.Rollback())

	_, err = d.Get(Root, "a")
	require.NoError(t, err) // Get on a map never errors for a missing key...
	keys, err := d.Keys(Root)
	require.NoError(t, err)
	assert.Empty(t, keys) // ...but the key must not actually be present

	assert.Empty(t, d.GetHeads())
}

func TestIncrementCounter(t *testing.T) {
	d := New(common.NewActorID())

	txn, err := d.Begin()
	require.NoError(t, err)
	require.NoError(t, txn.Put(Root, "count", common.CounterValue(0)))
	require.NoError(t, txn.Increment(Root, "count", 5))
	require.NoError(t, txn.Increment(Root, "count", 3))
	_, err = txn.Commit("counter")
	require.NoError(t, err)

	slot, err := d.Get(Root, "count")
	require.NoError(t, err)
	v, ok := slot.Primary()
	require.True(t, ok)
	assert.Equal(t, int64(8), v.Value.Int)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	d := New(common.NewActorID())
	txn, err := d.Begin()
	require.NoError(t, err)
	require.NoError(t, txn.Put(Root, "title", common.StrValue("persisted")))
	_, err = txn.Commit("save me")
	require.NoError(t, err)

	data, err := d.Save()
	require.NoError(t, err)

	loaded, err := Load(data, common.NewActorID())
	require.NoError(t, err)

	slot, err := loaded.Get(Root, "title")
	require.NoError(t, err)
	v, ok := slot.Primary()
	require.True(t, ok)
	assert.Equal(t, "persisted", v.Value.Str)
	assert.Equal(t, d.GetHeads(), loaded.GetHeads())
}

func TestMergeConcurrentForksConverge(t *testing.T) {
	base := New(common.NewActorID())
	txn, err := base.Begin()
	require.NoError(t, err)
	require.NoError(t, txn.Put(Root, "title", common.StrValue("v0")))
	_, err = txn.Commit("base")
	require.NoError(t, err)

	data, err := base.Save()
	require.NoError(t, err)

	replicaA, err := Load(data, common.NewActorID())
	require.NoError(t, err)
	replicaB, err := Load(data, common.NewActorID())
	require.NoError(t, err)

	txnA, err := replicaA.Begin()
	require.NoError(t, err)
	require.NoError(t, txnA.Put(Root, "title", common.StrValue("from-A")))
	_, err = txnA.Commit("edit from A")
	require.NoError(t, err)

	txnB, err := replicaB.Begin()
	require.NoError(t, err)
	require.NoError(t, txnB.Put(Root, "note", common.StrValue("from-B")))
	_, err = txnB.Commit("edit from B")
	require.NoError(t, err)

	require.NoError(t, replicaA.Merge(replicaB))
	require.NoError(t, replicaB.Merge(replicaA))

	assert.ElementsMatch(t, replicaA.GetHeads(), replicaB.GetHeads())

	slotA, err := replicaA.Get(Root, "note")
	require.NoError(t, err)
	vA, ok := slotA.Primary()
	require.True(t, ok)
	assert.Equal(t, "from-B", vA.Value.Str)

	slotB, err := replicaB.Get(Root, "title")
	require.NoError(t, err)
	vB, ok := slotB.Primary()
	require.True(t, ok)
	assert.Equal(t, "from-A", vB.Value.Str)
}

func TestApplyChangeConvergesRegardlessOfDeliveryOrder(t *testing.T) {
	base := New(common.NewActorID())
	txn, err := base.Begin()
	require.NoError(t, err)
	listID, err := txn.PutObject(Root, "items", common.NodeTypeList)
	require.NoError(t, err)
	_, err = txn.Commit("base list")
	require.NoError(t, err)

	data, err := base.Save()
	require.NoError(t, err)

	replicaA, err := Load(data, common.NewActorID())
	require.NoError(t, err)
	replicaB, err := Load(data, common.NewActorID())
	require.NoError(t, err)

	// Actor A inserts X at the head, then Y right after X, as one change.
	txnA, err := replicaA.Begin()
	require.NoError(t, err)
	idX, err := txnA.Insert(listID, common.ElemID{}, common.IntValue(100))
	require.NoError(t, err)
	_, err = txnA.Insert(listID, idX, common.IntValue(200))
	require.NoError(t, err)
	hashA, err := txnA.Commit("A inserts")
	require.NoError(t, err)
	changeA, ok := replicaA.GetChangeByHash(hashA)
	require.True(t, ok)

	// Actor B concurrently inserts Z at the head, as its own change.
	txnB, err := replicaB.Begin()
	require.NoError(t, err)
	_, err = txnB.Insert(listID, common.ElemID{}, common.IntValue(300))
	require.NoError(t, err)
	hashB, err := txnB.Commit("B inserts")
	require.NoError(t, err)
	changeB, ok := replicaB.GetChangeByHash(hashB)
	require.True(t, ok)

	// Apply the two concurrent changes to two fresh replicas in opposite
	// delivery orders: both must converge to the same list (§8.2 S2).
	docAB, err := Load(data, common.NewActorID())
	require.NoError(t, err)
	require.NoError(t, docAB.ApplyChange(changeA))
	require.NoError(t, docAB.ApplyChange(changeB))

	docBA, err := Load(data, common.NewActorID())
	require.NoError(t, err)
	require.NoError(t, docBA.ApplyChange(changeB))
	require.NoError(t, docBA.ApplyChange(changeA))

	nAB, err := docAB.Length(listID)
	require.NoError(t, err)
	nBA, err := docBA.Length(listID)
	require.NoError(t, err)
	require.Equal(t, nAB, nBA)
	require.Equal(t, 3, nAB)

	valuesAB := make([]int64, nAB)
	for i := 0; i < nAB; i++ {
		slot, _, err := docAB.Nth(listID, i)
		require.NoError(t, err)
		v, ok := slot.Primary()
		require.True(t, ok)
		valuesAB[i] = v.Value.Int
	}
	valuesBA := make([]int64, nBA)
	for i := 0; i < nBA; i++ {
		slot, _, err := docBA.Nth(listID, i)
		require.NoError(t, err)
		v, ok := slot.Primary()
		require.True(t, ok)
		valuesBA[i] = v.Value.Int
	}
	assert.Equal(t, valuesAB, valuesBA)
}

func TestGetMissingDeps(t *testing.T) {
	d := New(common.NewActorID())
	txn, err := d.Begin()
	require.NoError(t, err)
	require.NoError(t, txn.Put(Root, "a", common.IntValue(1)))
	hash, err := txn.Commit("c1")
	require.NoError(t, err)

	other := New(common.NewActorID())
	missing := other.GetMissingDeps([]common.ChangeHash{hash})
	assert.Equal(t, []common.ChangeHash{hash}, missing)

	assert.Empty(t, d.GetMissingDeps([]common.ChangeHash{hash}))
}

func TestDeleteUnknownPropertyErrors(t *testing.T) {
	d := New(common.NewActorID())
	txn, err := d.Begin()
	require.NoError(t, err)
	err = txn.Delete(Root, common.MapKey("nope"))
	assert.Error(t, err)
}

func TestOnlyOneOpenTransaction(t *testing.T) {
	d := New(common.NewActorID())
	_, err := d.Begin()
	require.NoError(t, err)
	_, err = d.Begin()
	assert.Error(t, err)
}
