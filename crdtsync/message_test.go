package crdtsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullctx/crdtdoc/common"
	"github.com/nullctx/crdtdoc/document"
)

func TestGenerateMessageNoChangesYieldsNotOK(t *testing.T) {
	d := document.New(common.NewActorID())
	state := NewState()

	_, ok := GenerateMessage(d, state)
	assert.False(t, ok, "a document with no changes and an already-current frontier has nothing to send")
}

func TestGenerateMessageThenReceiveMessageConverges(t *testing.T) {
	alice := document.New(common.NewActorID())
	bob := document.New(common.NewActorID())

	txn, err := alice.Begin()
	require.NoError(t, err)
	require.NoError(t, txn.Put(document.Root, "title", common.StrValue("hello")))
	_, err = txn.Commit("alice writes title")
	require.NoError(t, err)

	aliceState := NewState()
	bobState := NewState()

	msg, ok := GenerateMessage(alice, aliceState)
	require.True(t, ok)
	require.Len(t, msg.Changes, 1)

	applied, err := ReceiveMessage(bob, bobState, msg)
	require.NoError(t, err)
	assert.Len(t, applied, 1)

	slot, err := bob.Get(document.Root, "title")
	require.NoError(t, err)
	require.False(t, slot.Empty())
	primary, ok := slot.Primary()
	require.True(t, ok)
	assert.Equal(t, "hello", primary.Value.Str)

	// A second round with nothing new to say settles.
	_, ok = GenerateMessage(alice, aliceState)
	assert.False(t, ok)
}

func TestGenerateMessageDoesNotResendAlreadySent(t *testing.T) {
	d := document.New(common.NewActorID())
	txn, err := d.Begin()
	require.NoError(t, err)
	require.NoError(t, txn.Put(document.Root, "a", common.IntValue(1)))
	_, err = txn.Commit("first")
	require.NoError(t, err)

	state := NewState()
	msg1, ok := GenerateMessage(d, state)
	require.True(t, ok)
	assert.Len(t, msg1.Changes, 1)

	// No new local changes and the frontier hasn't moved: nothing to send.
	_, ok = GenerateMessage(d, state)
	assert.False(t, ok)

	txn2, err := d.Begin()
	require.NoError(t, err)
	require.NoError(t, txn2.Put(document.Root, "b", common.IntValue(2)))
	_, err = txn2.Commit("second")
	require.NoError(t, err)

	msg2, ok := GenerateMessage(d, state)
	require.True(t, ok)
	require.Len(t, msg2.Changes, 1, "only the new change should be resent, not the one already marked sent")
}

func TestReceiveMessageSkipsKnownChanges(t *testing.T) {
	alice := document.New(common.NewActorID())
	bob := document.New(common.NewActorID())

	txn, err := alice.Begin()
	require.NoError(t, err)
	require.NoError(t, txn.Put(document.Root, "x", common.IntValue(1)))
	_, err = txn.Commit("c1")
	require.NoError(t, err)

	aliceState := NewState()
	bobState := NewState()

	msg, ok := GenerateMessage(alice, aliceState)
	require.True(t, ok)

	applied, err := ReceiveMessage(bob, bobState, msg)
	require.NoError(t, err)
	assert.Len(t, applied, 1)

	// Replaying the exact same message a second time applies nothing new.
	applied2, err := ReceiveMessage(bob, bobState, msg)
	require.NoError(t, err)
	assert.Empty(t, applied2)
}

func TestTwoWaySyncConverges(t *testing.T) {
	alice := document.New(common.NewActorID())
	bob, err := alice.Fork()
	require.NoError(t, err)
	bob, err = bob.WithActor(common.NewActorID())
	require.NoError(t, err)

	aTxn, err := alice.Begin()
	require.NoError(t, err)
	require.NoError(t, aTxn.Put(document.Root, "from", common.StrValue("alice")))
	_, err = aTxn.Commit("alice edit")
	require.NoError(t, err)

	bTxn, err := bob.Begin()
	require.NoError(t, err)
	require.NoError(t, bTxn.Put(document.Root, "other", common.StrValue("bob")))
	_, err = bTxn.Commit("bob edit")
	require.NoError(t, err)

	aliceState := NewState()
	bobState := NewState()

	aliceMsg, aliceOK := GenerateMessage(alice, aliceState)
	bobMsg, bobOK := GenerateMessage(bob, bobState)
	require.True(t, aliceOK)
	require.True(t, bobOK)

	_, err = ReceiveMessage(bob, bobState, aliceMsg)
	require.NoError(t, err)
	_, err = ReceiveMessage(alice, aliceState, bobMsg)
	require.NoError(t, err)

	aliceSlot, err := alice.Get(document.Root, "other")
	require.NoError(t, err)
	aliceOther, ok := aliceSlot.Primary()
	require.True(t, ok)
	assert.Equal(t, "bob", aliceOther.Value.Str)

	bobSlot, err := bob.Get(document.Root, "from")
	require.NoError(t, err)
	bobFrom, ok := bobSlot.Primary()
	require.True(t, ok)
	assert.Equal(t, "alice", bobFrom.Value.Str)

	assert.ElementsMatch(t, alice.GetHeads(), bob.GetHeads())
}
