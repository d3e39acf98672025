package node

import "github.com/dashpay/grovedb-go/cost"

// Source fetches a previously-committed node by its storage key, scoped to
// one subtree — merk.Merk binds one Source per handle against the subtree's
// storage prefix. Returning ErrKeyNotFound for an
// absent key is a LinkFetch-class failure only when the caller expected the
// key to exist; ordinary descent treats "not found" as reaching a leaf.
type Source interface {
	Get(key []byte) (*Node, cost.OperationCost, error)
}

// materialize ensures l.Node is populated, fetching through src exactly once
// for a Reference link; Loaded/Modified/Uncommitted links already have a
// Node and are returned as-is.
func (l *Link) materialize(src Source) (cost.OperationCost, error) {
	switch l.State {
	case LinkNil:
		return cost.Zero, nil
	case LinkReference:
		n, c, err := src.Get(l.Key)
		if err != nil {
			return c, err
		}
		n.cachedHeight = l.Height
		n.feature = l.Feature
		n.nodeHash = &l.Hash
		l.Node = n
		l.State = LinkLoaded
		return c, nil
	default:
		return cost.Zero, nil
	}
}
