package crdtsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullctx/crdtdoc/common"
)

func sampleHash(b byte) common.ChangeHash {
	var h common.ChangeHash
	h[0] = b
	h[31] = b
	return h
}

func TestStateEncodeDecodeRoundTrip(t *testing.T) {
	s := NewState()
	s.SharedHeads = []common.ChangeHash{sampleHash(1)}
	s.LastSentHeads = []common.ChangeHash{sampleHash(2), sampleHash(3)}
	s.TheirHeads = []common.ChangeHash{sampleHash(4)}
	s.Sent[sampleHash(5)] = true
	s.Sent[sampleHash(6)] = true

	data := s.Encode()
	assert.Equal(t, StateTypeTag, data[0])

	decoded, err := DecodeState(data)
	require.NoError(t, err)

	assert.Equal(t, s.SharedHeads, decoded.SharedHeads)
	assert.ElementsMatch(t, s.LastSentHeads, decoded.LastSentHeads)
	assert.Equal(t, s.TheirHeads, decoded.TheirHeads)
	assert.Len(t, decoded.Sent, 2)
	assert.True(t, decoded.Sent[sampleHash(5)])
	assert.True(t, decoded.Sent[sampleHash(6)])
}

func TestStateEncodeEmpty(t *testing.T) {
	s := NewState()
	data := s.Encode()
	decoded, err := DecodeState(data)
	require.NoError(t, err)
	assert.Empty(t, decoded.SharedHeads)
	assert.Empty(t, decoded.LastSentHeads)
	assert.Empty(t, decoded.TheirHeads)
	assert.Empty(t, decoded.Sent)
}

func TestDecodeStateRejectsBadTag(t *testing.T) {
	s := NewState()
	data := s.Encode()
	data[0] = 0xFF
	_, err := DecodeState(data)
	assert.Error(t, err)
}

func TestDecodeStateRejectsTruncated(t *testing.T) {
	_, err := DecodeState(nil)
	assert.Error(t, err)
}

func TestMarkSentAndMarkReceived(t *testing.T) {
	s := NewState()
	h1, h2 := sampleHash(1), sampleHash(2)

	s.MarkSent([]common.ChangeHash{h1}, []common.ChangeHash{h1})
	assert.True(t, s.Sent[h1])
	assert.Equal(t, []common.ChangeHash{h1}, s.LastSentHeads)

	s.MarkReceived([]common.ChangeHash{h2}, []common.ChangeHash{h2})
	assert.True(t, s.Sent[h2])
	assert.Equal(t, []common.ChangeHash{h2}, s.TheirHeads)
}
