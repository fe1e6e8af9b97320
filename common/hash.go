package common

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// ChangeHash is the 32-byte SHA-256 digest identifying a change (§3.3).
type ChangeHash [32]byte

// HashBytes computes the ChangeHash of the canonical bytes of a change
// chunk (chunk-type || length || body, per §6.2).
func HashBytes(canonical []byte) ChangeHash {
	return sha256.Sum256(canonical)
}

// Compare gives a total order over hashes so dependency lists can be
// sorted and deduplicated (§3.3 "sorted and duplicate-free").
func (h ChangeHash) Compare(other ChangeHash) int {
	for i := range h {
		if h[i] < other[i] {
			return -1
		}
		if h[i] > other[i] {
			return 1
		}
	}
	return 0
}

// IsZero reports whether h is the zero hash (used as a not-found sentinel).
func (h ChangeHash) IsZero() bool {
	return h == ChangeHash{}
}

func (h ChangeHash) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalJSON implements json.Marshaler.
func (h ChangeHash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *ChangeHash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return ErrDecoding{Reason: "malformed change hash"}
	}
	copy(h[:], b)
	return nil
}

// SortHashes sorts a slice of hashes in place, ascending.
func SortHashes(hs []ChangeHash) {
	// insertion sort: dependency lists are small (single digits in the
	// overwhelming majority of real changes), so this skips sort.Slice's
	// overhead for a handful of comparisons; fall back to sort.Slice for
	// larger lists.
	if len(hs) <= 12 {
		for i := 1; i < len(hs); i++ {
			for j := i; j > 0 && hs[j-1].Compare(hs[j]) > 0; j-- {
				hs[j-1], hs[j] = hs[j], hs[j-1]
			}
		}
		return
	}
	sortHashesLarge(hs)
}
