package crdtstorage

import (
	"github.com/bwmarrin/snowflake"
)

// idGenerator mints document ids for Store.Create. Grounded on the
// teacher's use of a dedicated id-allocation helper alongside its
// persistence adapters (luvjson/crdtstorage/key.go), generalized from
// that package's string-concatenation keys to snowflake ids so ids
// remain roughly time-ordered and collision-free across processes
// without a shared sequence counter.
type idGenerator struct {
	node *snowflake.Node
}

func newIDGenerator(nodeID int64) (*idGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &idGenerator{node: node}, nil
}

func (g *idGenerator) next() string {
	return g.node.Generate().Base58()
}
