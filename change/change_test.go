package change

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullctx/crdtdoc/common"
	"github.com/nullctx/crdtdoc/crdt"
)

func sampleActor(b byte) common.ActorID {
	var a common.ActorID
	a[0] = b
	return a
}

func sampleOps(authorIdx int) []crdt.Op {
	return []crdt.Op{
		{ID: common.OpID{Counter: 1, Actor: authorIdx}, Obj: common.RootID, Key: common.MapKey("title"), Action: common.ActionPut, Value: common.StrValue("hello")},
		{ID: common.OpID{Counter: 2, Actor: authorIdx}, Obj: common.RootID, Key: common.MapKey("count"), Action: common.ActionPut, Value: common.CounterValue(0)},
		{ID: common.OpID{Counter: 3, Actor: authorIdx}, Obj: common.RootID, Key: common.MapKey("count"), Action: common.ActionIncrement, Value: common.IntValue(5),
			Pred: []common.OpID{{Counter: 2, Actor: authorIdx}}},
	}
}

func TestChangeEncodeDecodeUncompressedRoundTrip(t *testing.T) {
	author := sampleActor(0xAA)
	c := &Change{
		Actors:  []common.ActorID{author},
		Seq:     1,
		StartOp: 1,
		Time:    1234,
		Message: "initial",
		Ops:     sampleOps(0),
	}

	data, err := c.Encode(false)
	require.NoError(t, err)

	decoded, hash, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, c.Seq, decoded.Seq)
	assert.Equal(t, c.StartOp, decoded.StartOp)
	assert.Equal(t, c.Message, decoded.Message)
	assert.Equal(t, c.Author(), decoded.Author())
	assert.Equal(t, len(c.Ops), len(decoded.Ops))
	assert.Equal(t, hash, c.Hash())

	for i, op := range c.Ops {
		assert.Equal(t, op.Action, decoded.Ops[i].Action)
		assert.Equal(t, op.Value.Native(), decoded.Ops[i].Value.Native())
		assert.Equal(t, op.Key, decoded.Ops[i].Key)
	}
}

func TestChangeEncodeDecodeCompressedRoundTrip(t *testing.T) {
	author := sampleActor(0xBB)
	c := &Change{
		Actors:  []common.ActorID{author},
		Seq:     1,
		StartOp: 1,
		Time:    5678,
		Message: "compressed",
		Ops:     sampleOps(0),
	}

	data, err := c.Encode(true)
	require.NoError(t, err)

	decoded, hash, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, c.Message, decoded.Message)
	assert.Equal(t, len(c.Ops), len(decoded.Ops))
	assert.Equal(t, hash, c.Hash())
}

func TestHashIndependentOfCompression(t *testing.T) {
	author := sampleActor(0xCC)
	c := &Change{
		Actors:  []common.ActorID{author},
		Seq:     2,
		StartOp: 4,
		Time:    42,
		Message: "same change, two encodings",
		Ops:     sampleOps(0),
	}

	uncompressed, err := c.Encode(false)
	require.NoError(t, err)
	compressed, err := c.Encode(true)
	require.NoError(t, err)

	_, hashA, err := Decode(uncompressed)
	require.NoError(t, err)
	_, hashB, err := Decode(compressed)
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB)
	assert.Equal(t, c.Hash(), hashA)
}

func TestDecodeRejectsNonChangeChunk(t *testing.T) {
	c := &Change{Actors: []common.ActorID{sampleActor(1)}, Seq: 1, StartOp: 1}
	data, err := c.Encode(false)
	require.NoError(t, err)
	// Corrupt the chunk type byte (immediately after magic+checksum, i.e.
	// byte offset 8) to something that is neither change variant.
	corrupt := append([]byte(nil), data...)
	corrupt[8] = 0x7F
	_, _, err = Decode(corrupt)
	assert.Error(t, err)
}

func TestLocalizeAndGlobalOpsRoundTripMultiplePreds(t *testing.T) {
	authorGlobal := 0
	otherGlobal := 1
	globalActors := []common.ActorID{sampleActor(0x01), sampleActor(0x02)}
	globalOf := func(idx int) common.ActorID { return globalActors[idx] }

	// Two concurrent puts (from different global actors) both superseded
	// by a third op's multi-element Pred: this is the scenario the
	// localize-loop bug would corrupt (only the last Pred entry would
	// survive translation).
	ops := []crdt.Op{
		{ID: common.OpID{Counter: 10, Actor: authorGlobal}, Obj: common.RootID, Key: common.MapKey("x"), Action: common.ActionPut, Value: common.IntValue(1)},
		{ID: common.OpID{Counter: 11, Actor: authorGlobal}, Obj: common.RootID, Key: common.MapKey("x"), Action: common.ActionPut, Value: common.IntValue(2),
			Pred: []common.OpID{
				{Counter: 10, Actor: authorGlobal},
				{Counter: 9, Actor: otherGlobal},
			}},
	}

	c := NewChange(globalActors[authorGlobal], globalOf, 1, 10, 100, "multi-pred", nil, ops)

	// Actors[0] must be the author; otherGlobal must also be present.
	require.Equal(t, globalActors[authorGlobal], c.Actors[0])
	require.Contains(t, c.Actors, globalActors[otherGlobal])

	// Find the local index of otherGlobal within the change's own table.
	var otherLocal = -1
	for i, a := range c.Actors {
		if a == globalActors[otherGlobal] {
			otherLocal = i
		}
	}
	require.NotEqual(t, -1, otherLocal)

	localPred := c.Ops[1].Pred
	require.Len(t, localPred, 2)
	assert.Equal(t, uint64(10), localPred[0].Counter)
	assert.Equal(t, 0, localPred[0].Actor) // author is always local index 0
	assert.Equal(t, uint64(9), localPred[1].Counter)
	assert.Equal(t, otherLocal, localPred[1].Actor)

	// Round-trip back through GlobalOps using a fresh table that has
	// already interned both actors in the same order, so indices line up.
	table := common.NewActorTable()
	table.Insert(globalActors[authorGlobal])
	table.Insert(globalActors[otherGlobal])

	back := c.GlobalOps(table)
	require.Len(t, back[1].Pred, 2)
	assert.Equal(t, common.OpID{Counter: 10, Actor: authorGlobal}, back[1].Pred[0])
	assert.Equal(t, common.OpID{Counter: 9, Actor: otherGlobal}, back[1].Pred[1])
}
