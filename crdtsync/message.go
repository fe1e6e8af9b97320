package crdtsync

import (
	"github.com/nullctx/crdtdoc/change"
	"github.com/nullctx/crdtdoc/common"
)

// docStore is the subset of *document.Document a sync session needs.
// Declared as an interface (rather than importing package document
// directly) to keep crdtsync decoupled from the façade's concrete type.
type docStore interface {
	GetHeads() []common.ChangeHash
	GetChanges() []*change.Change
	GetChangeByHash(hash common.ChangeHash) (*change.Change, bool)
	ApplyChange(c *change.Change) error
}

// Message is one half-duplex sync message of §6.3: the sender's
// current frontier, plus any changes it believes the recipient is
// missing.
type Message struct {
	Heads   []common.ChangeHash
	Changes []*change.Change
}

// GenerateMessage implements §6.3's generate_message(state) -> message?:
// it returns the changes not yet recorded as sent in state, together
// with the document's current frontier. It returns ok=false when there
// is nothing new to report (no unsent changes and the frontier is
// unchanged since the last message), so a sync loop can stop cleanly.
func GenerateMessage(d docStore, state *State) (msg *Message, ok bool) {
	heads := d.GetHeads()
	var toSend []*change.Change
	for _, c := range d.GetChanges() {
		if !state.Sent[c.Hash()] {
			toSend = append(toSend, c)
		}
	}
	if len(toSend) == 0 && headsEqual(heads, state.LastSentHeads) {
		return nil, false
	}

	hashes := make([]common.ChangeHash, len(toSend))
	for i, c := range toSend {
		hashes[i] = c.Hash()
	}
	state.MarkSent(hashes, heads)

	return &Message{Heads: heads, Changes: toSend}, true
}

// ReceiveMessage implements §6.3's receive_message(state, message) ->
// effects: every change in msg not already known is applied, in the
// order it arrived (the sender is expected to have sent them in a
// valid topological order; ApplyChange itself rejects one whose
// dependencies are still missing). It returns the hashes of the
// changes actually applied (the "newly applied changes" part of
// effects) so a caller can react, e.g. by re-running patch generation.
func ReceiveMessage(d docStore, state *State, msg *Message) ([]common.ChangeHash, error) {
	var applied []common.ChangeHash
	for _, c := range msg.Changes {
		hash := c.Hash()
		if _, known := d.GetChangeByHash(hash); known {
			continue
		}
		if err := d.ApplyChange(c); err != nil {
			return applied, err
		}
		applied = append(applied, hash)
	}
	state.MarkReceived(applied, msg.Heads)

	// The frontier both sides now provably share is the peer-reported
	// heads, since every change up to them has just been incorporated
	// (or already was); this is a conservative lower bound, not
	// necessarily the full intersection of both histories.
	state.SharedHeads = append([]common.ChangeHash(nil), msg.Heads...)
	common.SortHashes(state.SharedHeads)

	return applied, nil
}

func headsEqual(a, b []common.ChangeHash) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]common.ChangeHash(nil), a...)
	sb := append([]common.ChangeHash(nil), b...)
	common.SortHashes(sa)
	common.SortHashes(sb)
	for i := range sa {
		if sa[i].Compare(sb[i]) != 0 {
			return false
		}
	}
	return true
}
