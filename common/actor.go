package common

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ActorID is the opaque replica identifier of §3.1: 16 bytes, ordered
// byte-lexicographically. It is generated as a UUIDv7 so that actor ids
// sort roughly in creation order, matching the teacher's SessionID
// convention (luvjson/common/types.go) down to the UUID version choice.
type ActorID [16]byte

// NewActorID creates a fresh actor identifier.
func NewActorID() ActorID {
	id, err := uuid.NewV7()
	if err != nil {
		// uuid.NewV7 only fails if the system clock/random source is
		// broken beyond repair; there is no sane recovery.
		panic(fmt.Sprintf("crdtdoc: failed to create actor id: %v", err))
	}
	return ActorID(id)
}

// ActorIDFromBytes wraps 16 raw bytes as an ActorID.
func ActorIDFromBytes(b []byte) (ActorID, error) {
	var a ActorID
	if len(b) != 16 {
		return a, ErrInvalidActorID{Reason: fmt.Sprintf("expected 16 bytes, got %d", len(b))}
	}
	copy(a[:], b)
	return a, nil
}

// Bytes returns the raw 16-byte representation.
func (a ActorID) Bytes() []byte {
	out := make([]byte, 16)
	copy(out, a[:])
	return out
}

// Compare returns -1, 0 or 1 comparing two actor ids byte-lexicographically.
func (a ActorID) Compare(other ActorID) int {
	for i := 0; i < 16; i++ {
		if a[i] < other[i] {
			return -1
		}
		if a[i] > other[i] {
			return 1
		}
	}
	return 0
}

// String returns the canonical UUID string form.
func (a ActorID) String() string {
	return uuid.UUID(a).String()
}

// MarshalText implements encoding.TextMarshaler.
func (a ActorID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *ActorID) UnmarshalText(text []byte) error {
	u, err := uuid.Parse(string(text))
	if err != nil {
		return ErrInvalidActorID{Reason: err.Error()}
	}
	*a = ActorID(u)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (a ActorID) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *ActorID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return a.UnmarshalText([]byte(s))
}

// ActorTable is the append-only, insertion-order-preserving interning
// table of §4.1: actor id -> small integer index. Lookups are O(1)
// amortized via the backing map; insertion of an already-present actor
// returns its existing index rather than erroring, per §4.1.
type ActorTable struct {
	byIndex []ActorID
	byActor map[ActorID]int
}

// NewActorTable creates an empty actor table.
func NewActorTable() *ActorTable {
	return &ActorTable{byActor: make(map[ActorID]int)}
}

// Insert interns actor, returning its index. Re-inserting the same actor
// is idempotent and returns the original index.
func (t *ActorTable) Insert(actor ActorID) int {
	if idx, ok := t.byActor[actor]; ok {
		return idx
	}
	idx := len(t.byIndex)
	t.byIndex = append(t.byIndex, actor)
	t.byActor[actor] = idx
	return idx
}

// Index looks up the index of an already-interned actor.
func (t *ActorTable) Index(actor ActorID) (int, bool) {
	idx, ok := t.byActor[actor]
	return idx, ok
}

// Actor returns the actor id at idx. It panics on an out-of-range index,
// which indicates a corrupt in-memory index rather than untrusted input
// (callers validate indices against Len before this is reached).
func (t *ActorTable) Actor(idx int) ActorID {
	return t.byIndex[idx]
}

// Len returns the number of interned actors.
func (t *ActorTable) Len() int {
	return len(t.byIndex)
}

// All returns the actors in insertion order. The returned slice is owned
// by the caller.
func (t *ActorTable) All() []ActorID {
	out := make([]ActorID, len(t.byIndex))
	copy(out, t.byIndex)
	return out
}
