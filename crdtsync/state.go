// Package crdtsync implements the sync state envelope and two-party
// sync message exchange of §4.8/§6.3 (C8): an opaque, self-describing
// per-peer state blob plus the generate/receive message pair the
// façade needs to drive a sync session, grounded on the teacher's
// luvjson/crdtsync package (StateVector, peer discovery, sync manager)
// generalized from its LWW/RGA-string model to this engine's hash-DAG
// change graph.
package crdtsync

import (
	"github.com/nullctx/crdtdoc/columnar"
	"github.com/nullctx/crdtdoc/common"
)

// StateTypeTag is the 1-byte type tag every encoded State begins with
// (§4.8: "self-describing with a 1-byte type tag (0x43)").
const StateTypeTag byte = 0x43

// State is the opaque per-peer sync state of §4.8: the shared frontier
// last known to both sides, what this side last sent, what the peer
// last reported as its own frontier, and the set of change hashes
// already sent to the peer (so a re-generated message never resends a
// change the peer is known to have).
type State struct {
	SharedHeads   []common.ChangeHash
	LastSentHeads []common.ChangeHash
	TheirHeads    []common.ChangeHash
	Sent          map[common.ChangeHash]bool
}

// NewState returns an empty sync state, as used the first time two
// peers connect.
func NewState() *State {
	return &State{Sent: make(map[common.ChangeHash]bool)}
}

// Encode serialises the state as a self-describing byte string: the
// type tag, then three sorted hash lists, then the sent-set as a
// fourth sorted hash list (§4.8).
func (s *State) Encode() []byte {
	w := columnar.NewWriter()
	w.WriteByte(StateTypeTag)
	writeHashList(w, s.SharedHeads)
	writeHashList(w, s.LastSentHeads)
	writeHashList(w, s.TheirHeads)

	sent := make([]common.ChangeHash, 0, len(s.Sent))
	for h := range s.Sent {
		sent = append(sent, h)
	}
	common.SortHashes(sent)
	writeHashList(w, sent)

	return w.Bytes()
}

// DecodeState parses bytes produced by (*State).Encode, rejecting
// anything not carrying the expected type tag.
func DecodeState(data []byte) (*State, error) {
	r := columnar.NewReader(data)
	tag, err := r.ReadByte()
	if err != nil {
		return nil, common.ErrDecoding{Reason: "truncated sync state: missing type tag"}
	}
	if tag != StateTypeTag {
		return nil, common.ErrDecoding{Reason: "sync state: unrecognised type tag"}
	}

	shared, err := readHashList(r)
	if err != nil {
		return nil, err
	}
	lastSent, err := readHashList(r)
	if err != nil {
		return nil, err
	}
	theirs, err := readHashList(r)
	if err != nil {
		return nil, err
	}
	sentList, err := readHashList(r)
	if err != nil {
		return nil, err
	}

	sent := make(map[common.ChangeHash]bool, len(sentList))
	for _, h := range sentList {
		sent[h] = true
	}

	return &State{
		SharedHeads:   shared,
		LastSentHeads: lastSent,
		TheirHeads:    theirs,
		Sent:          sent,
	}, nil
}

// MarkSent records that hashes have now been sent to the peer,
// updating LastSentHeads to heads (the frontier as of this send).
func (s *State) MarkSent(hashes []common.ChangeHash, heads []common.ChangeHash) {
	for _, h := range hashes {
		s.Sent[h] = true
	}
	s.LastSentHeads = append([]common.ChangeHash(nil), heads...)
	common.SortHashes(s.LastSentHeads)
}

// MarkReceived records changes just incorporated from the peer and
// the peer-reported frontier that accompanied them.
func (s *State) MarkReceived(hashes []common.ChangeHash, theirHeads []common.ChangeHash) {
	for _, h := range hashes {
		s.Sent[h] = true // a change we've received needn't be sent back
	}
	s.TheirHeads = append([]common.ChangeHash(nil), theirHeads...)
	common.SortHashes(s.TheirHeads)
}

func writeHashList(w *columnar.Writer, hs []common.ChangeHash) {
	w.WriteUvarint(uint64(len(hs)))
	for _, h := range hs {
		w.WriteRaw(h[:])
	}
}

func readHashList(r *columnar.Reader) ([]common.ChangeHash, error) {
	n, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	out := make([]common.ChangeHash, n)
	for i := range out {
		b, err := r.ReadBytes(32)
		if err != nil {
			return nil, err
		}
		copy(out[i][:], b)
	}
	return out, nil
}
