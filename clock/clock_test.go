package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullctx/crdtdoc/common"
)

func TestClockIncludeAndCovers(t *testing.T) {
	c := New()
	assert.False(t, c.Covers(0, 1))

	c.Include(0, 5, 1)
	assert.True(t, c.Covers(0, 5))
	assert.True(t, c.Covers(0, 3))
	assert.False(t, c.Covers(0, 6))
	assert.True(t, c.Covers(1, 0)) // root sentinel always covered
}

func TestClockMergeIsPointwiseMax(t *testing.T) {
	a := New()
	a.Include(0, 5, 1)
	b := New()
	b.Include(0, 3, 1)
	b.Include(1, 9, 2)

	merged := a.Merge(b)
	assert.Equal(t, uint64(5), merged.MaxCounter(0))
	assert.Equal(t, uint64(9), merged.MaxCounter(1))

	// inputs unmodified
	assert.Equal(t, uint64(5), a.MaxCounter(0))
	assert.Equal(t, uint64(0), a.MaxCounter(1))
}

func TestClockLessEqualAndCompare(t *testing.T) {
	a := New()
	a.Include(0, 2, 1)
	b := New()
	b.Include(0, 5, 1)

	assert.True(t, a.LessEqual(b))
	assert.False(t, b.LessEqual(a))
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a.Clone()))

	c := New()
	c.Include(1, 1, 1)
	assert.Equal(t, 2, a.Compare(c)) // concurrent
}

func hash(b byte) common.ChangeHash {
	var h common.ChangeHash
	h[0] = b
	return h
}

func TestGraphAddChangeAndHeads(t *testing.T) {
	g := NewGraph()

	c1 := ChangeMeta{Hash: hash(1), Actor: 0, Seq: 1, StartOp: 1, NumOps: 2}
	require.NoError(t, g.AddChange(c1))

	heads := g.Heads()
	require.Len(t, heads, 1)
	assert.Equal(t, c1.Hash, heads[0])

	c2 := ChangeMeta{Hash: hash(2), Actor: 0, Seq: 2, StartOp: 3, NumOps: 1, Deps: []common.ChangeHash{c1.Hash}}
	require.NoError(t, g.AddChange(c2))

	heads = g.Heads()
	require.Len(t, heads, 1)
	assert.Equal(t, c2.Hash, heads[0])

	clk := g.ClockForHeads(heads)
	assert.True(t, clk.Covers(0, 3))
}

func TestGraphMissingDep(t *testing.T) {
	g := NewGraph()
	c2 := ChangeMeta{Hash: hash(2), Actor: 0, Seq: 1, StartOp: 1, NumOps: 1, Deps: []common.ChangeHash{hash(1)}}

	err := g.AddChange(c2)
	require.Error(t, err)
	var missing common.ErrMissingDep
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, hash(1), missing.Hash)
	assert.Equal(t, 0, g.Len())
}

func TestGraphRejectsNonContiguousSeq(t *testing.T) {
	g := NewGraph()
	c1 := ChangeMeta{Hash: hash(1), Actor: 0, Seq: 2, StartOp: 1, NumOps: 1}
	err := g.AddChange(c1)
	require.Error(t, err)
}

func TestChangesTopoOrdersByDependency(t *testing.T) {
	g := NewGraph()
	c1 := ChangeMeta{Hash: hash(1), Actor: 0, Seq: 1, StartOp: 1, NumOps: 1}
	c2 := ChangeMeta{Hash: hash(2), Actor: 0, Seq: 2, StartOp: 2, NumOps: 1, Deps: []common.ChangeHash{c1.Hash}}
	require.NoError(t, g.AddChange(c1))
	require.NoError(t, g.AddChange(c2))

	topo := g.ChangesTopo()
	require.Len(t, topo, 2)
	assert.Equal(t, c1.Hash, topo[0].Hash)
	assert.Equal(t, c2.Hash, topo[1].Hash)
}
