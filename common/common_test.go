package common

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpIDCompare(t *testing.T) {
	a := OpID{Counter: 2, Actor: 0}
	b := OpID{Counter: 3, Actor: 0}
	c := OpID{Counter: 2, Actor: 1}
	d := OpID{Counter: 2, Actor: 0}

	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, -1, a.Compare(c))
	assert.Equal(t, 1, c.Compare(a))
	assert.Equal(t, 0, a.Compare(d))
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
}

func TestRootIDIsRoot(t *testing.T) {
	assert.True(t, RootID.IsRoot())
	assert.False(t, OpID{Counter: 1, Actor: 0}.IsRoot())
}

func TestOpIDJSONRoundTrip(t *testing.T) {
	id := OpID{Counter: 42, Actor: 7}
	data, err := json.Marshal(id)
	require.NoError(t, err)

	var back OpID
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, id, back)
}

func TestActorTableInternIsIdempotent(t *testing.T) {
	table := NewActorTable()
	a := NewActorID()
	b := NewActorID()

	idxA1 := table.Insert(a)
	idxB := table.Insert(b)
	idxA2 := table.Insert(a)

	assert.Equal(t, idxA1, idxA2)
	assert.NotEqual(t, idxA1, idxB)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, a, table.Actor(idxA1))

	idx, ok := table.Index(a)
	assert.True(t, ok)
	assert.Equal(t, idxA1, idx)
}

func TestPropTableInternIsIdempotent(t *testing.T) {
	table := NewPropTable()
	idx1 := table.Insert("bird")
	idx2 := table.Insert("nest")
	idx3 := table.Insert("bird")

	assert.Equal(t, idx1, idx3)
	assert.NotEqual(t, idx1, idx2)
	assert.Equal(t, "bird", table.Prop(idx1))
	assert.Equal(t, 2, table.Len())
}

func TestActorIDTextRoundTrip(t *testing.T) {
	a := NewActorID()
	text, err := a.MarshalText()
	require.NoError(t, err)

	var back ActorID
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, a, back)
	assert.Equal(t, 0, a.Compare(back))
}

func TestChangeHashCompareAndSort(t *testing.T) {
	h1 := HashBytes([]byte("a"))
	h2 := HashBytes([]byte("b"))

	hashes := []ChangeHash{h2, h1}
	SortHashes(hashes)
	assert.Equal(t, -1, hashes[0].Compare(hashes[1]))
}

func TestValueNative(t *testing.T) {
	assert.Nil(t, Null().Native())
	assert.Equal(t, true, BoolValue(true).Native())
	assert.Equal(t, int64(5), IntValue(5).Native())
	assert.Equal(t, "hi", StrValue("hi").Native())
}

func TestKeyCompare(t *testing.T) {
	k1 := MapKey("a")
	k2 := MapKey("b")
	assert.Equal(t, -1, k1.Compare(k2))
	assert.Equal(t, 1, k2.Compare(k1))

	e1 := ElemKey(OpID{Counter: 1, Actor: 0})
	e2 := ElemKey(OpID{Counter: 2, Actor: 0})
	assert.Equal(t, -1, e1.Compare(e2))
}
