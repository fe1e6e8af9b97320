package clock

import (
	"sort"

	"github.com/nullctx/crdtdoc/common"
)

// ChangeMeta is the subset of a change's header the graph needs to place
// it in the DAG and fold it into a clock: everything except the encoded
// ops themselves (those live in package change).
type ChangeMeta struct {
	Hash    common.ChangeHash
	Actor   int // actor-table index, scoped to whichever Graph holds this meta
	Author  common.ActorID
	Seq     uint64
	StartOp uint64
	NumOps  uint64
	Time    int64
	Message string
	Deps    []common.ChangeHash
}

// MaxOp is the counter of the last op the change carries.
func (m ChangeMeta) MaxOp() uint64 {
	if m.NumOps == 0 {
		return m.StartOp - 1
	}
	return m.StartOp + m.NumOps - 1
}

type node struct {
	meta  ChangeMeta
	clock Clock
}

// Graph is the change dependency DAG of §3.5: one node per change hash,
// edges from a change to the changes in its dependency list.
type Graph struct {
	nodes         map[common.ChangeHash]*node
	hasDescendant map[common.ChangeHash]bool
	order         []common.ChangeHash // insertion order, for deterministic iteration
	lastSeq       map[int]uint64       // last sequence number seen per actor
}

// NewGraph returns an empty change graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:         make(map[common.ChangeHash]*node),
		hasDescendant: make(map[common.ChangeHash]bool),
		lastSeq:       make(map[int]uint64),
	}
}

// Has reports whether hash has already been incorporated.
func (g *Graph) Has(hash common.ChangeHash) bool {
	_, ok := g.nodes[hash]
	return ok
}

// Len returns the number of changes in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// AddChange validates meta's dependencies are already present, derives
// its clock, and inserts it (§4.2 add_change). It returns ErrMissingDep
// if any dependency is absent, or ErrChangeGraph if sequence/start-op
// invariants of §3.3 are violated. On any error the graph is unchanged.
func (g *Graph) AddChange(meta ChangeMeta) error {
	if g.Has(meta.Hash) {
		return nil // idempotent re-application of an already-known change
	}

	parentClock := New()
	var maxDepEnd uint64
	for _, dep := range meta.Deps {
		n, ok := g.nodes[dep]
		if !ok {
			return common.ErrMissingDep{Hash: dep}
		}
		parentClock = parentClock.Merge(n.clock)
		if end := n.meta.StartOp + n.meta.NumOps; end > maxDepEnd {
			maxDepEnd = end
		}
	}

	if len(meta.Deps) > 0 && meta.StartOp < maxDepEnd {
		return common.ErrChangeGraph{Reason: "start-op does not exceed dependency closure"}
	}
	if expected := g.lastSeq[meta.Actor] + 1; meta.Seq != expected {
		return common.ErrChangeGraph{Reason: "non-contiguous sequence number for actor"}
	}
	if !sort.SliceIsSorted(meta.Deps, func(i, j int) bool { return meta.Deps[i].Compare(meta.Deps[j]) < 0 }) {
		return common.ErrChangeGraph{Reason: "dependency list is not sorted"}
	}
	for i := 1; i < len(meta.Deps); i++ {
		if meta.Deps[i].Compare(meta.Deps[i-1]) == 0 {
			return common.ErrChangeGraph{Reason: "duplicate dependency"}
		}
	}

	parentClock.Include(meta.Actor, meta.MaxOp(), meta.Seq)

	g.nodes[meta.Hash] = &node{meta: meta, clock: parentClock}
	for _, dep := range meta.Deps {
		g.hasDescendant[dep] = true
	}
	g.order = append(g.order, meta.Hash)
	g.lastSeq[meta.Actor] = meta.Seq
	return nil
}

// ClockAt returns the clock that results from including hash, i.e. the
// causal state as of that change.
func (g *Graph) ClockAt(hash common.ChangeHash) (Clock, bool) {
	n, ok := g.nodes[hash]
	if !ok {
		return Clock{}, false
	}
	return n.clock, true
}

// ClockForHeads merges the clocks of the named changes (§4.2
// clock_for_heads).
func (g *Graph) ClockForHeads(hashes []common.ChangeHash) Clock {
	out := New()
	for _, h := range hashes {
		if n, ok := g.nodes[h]; ok {
			out = out.Merge(n.clock)
		}
	}
	return out
}

// Heads returns the set of hashes with no descendants among known
// changes: the current frontier (§3.5, §4.2 heads).
func (g *Graph) Heads() []common.ChangeHash {
	out := make([]common.ChangeHash, 0)
	for _, h := range g.order {
		if !g.hasDescendant[h] {
			out = append(out, h)
		}
	}
	common.SortHashes(out)
	return out
}

// MissingDeps returns which of the given heads are not yet present in
// the graph.
func (g *Graph) MissingDeps(heads []common.ChangeHash) []common.ChangeHash {
	var missing []common.ChangeHash
	for _, h := range heads {
		if !g.Has(h) {
			missing = append(missing, h)
		}
	}
	return missing
}

// LastSeq returns the highest sequence number seen for actor, or 0 if
// none (the next change from that actor must use LastSeq(actor)+1).
func (g *Graph) LastSeq(actor int) uint64 {
	return g.lastSeq[actor]
}

// Meta returns the stored metadata for hash.
func (g *Graph) Meta(hash common.ChangeHash) (ChangeMeta, bool) {
	n, ok := g.nodes[hash]
	if !ok {
		return ChangeMeta{}, false
	}
	return n.meta, true
}

// ChangesTopo yields all changes in a topological order consistent with
// the DAG (§4.2 changes_topo).
func (g *Graph) ChangesTopo() []ChangeMeta {
	metas := make([]ChangeMeta, 0, len(g.nodes))
	for _, h := range g.order {
		metas = append(metas, g.nodes[h].meta)
	}
	return TopoSort(metas)
}

// TopoSort orders metas consistently with their Deps, breaking ties
// among changes that become ready in the same round by (author, seq).
// The tie-break compares actual actor identity rather than any Graph's
// local actor-table index, so the result is a pure function of the
// change set itself: two replicas holding the same changes compute the
// identical order regardless of the order those changes were received
// in, which is what lets document.ApplyChange rebuild a convergent
// OpSet from scratch on every incoming change (§8.2 S2).
func TopoSort(metas []ChangeMeta) []ChangeMeta {
	placed := make(map[common.ChangeHash]bool, len(metas))
	result := make([]ChangeMeta, 0, len(metas))
	remaining := append([]ChangeMeta(nil), metas...)

	for len(result) < len(metas) {
		progressed := false
		sort.Slice(remaining, func(i, j int) bool {
			if c := remaining[i].Author.Compare(remaining[j].Author); c != 0 {
				return c < 0
			}
			return remaining[i].Seq < remaining[j].Seq
		})

		next := remaining[:0]
		for _, m := range remaining {
			ready := true
			for _, dep := range m.Deps {
				if !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				result = append(result, m)
				placed[m.Hash] = true
				progressed = true
			} else {
				next = append(next, m)
			}
		}
		remaining = next
		if !progressed && len(remaining) > 0 {
			// Defensive: a well-formed graph never reaches this (every
			// dependency is validated present at AddChange time), but
			// guard against an infinite loop rather than hang.
			result = append(result, remaining...)
			break
		}
	}
	return result
}
