package node

import (
	"github.com/dashpay/grovedb-go/element"
	"github.com/dashpay/grovedb-go/khash"
)

// LinkState is the materialisation state machine a child slot moves through
//:
// Reference → Loaded on first traversal; Loaded → Modified on mutation; any
// state → Uncommitted{hash} after commit's hash pass; Uncommitted →
// Reference once the parent has persisted the child-ref entry.
type LinkState uint8

const (
	// LinkNil is an absent child (a leaf's missing side).
	LinkNil LinkState = iota
	// LinkReference is an unmaterialised child known only by its committed
	// hash, height and aggregate — traversal fetches it from Source on demand.
	LinkReference
	// LinkLoaded is a materialised, unmodified child.
	LinkLoaded
	// LinkModified is a materialised child with pending changes not yet
	// written to storage.
	LinkModified
	// LinkUncommitted is a child whose bytes have been handed to the commit
	// batch this pass but whose parent hasn't yet persisted the reference.
	LinkUncommitted
)

// Link is one child slot of a Node. Reference/Uncommitted links carry the
// child's committed storage Key plus the cached Height/Hash/Feature the
// parent needs to rebalance and rehash without fetching; Loaded/Modified
// links additionally carry the materialised Node.
type Link struct {
	State   LinkState
	Key     []byte
	Hash    khash.Hash
	Height  uint8
	Feature element.FeatureType
	Node    *Node
}

// NilLink is the zero value, representing an absent child.
var NilLink = Link{State: LinkNil}

// IsNil reports whether this slot has no child.
func (l Link) IsNil() bool { return l.State == LinkNil }

// height returns the cached subtree height without requiring materialisation.
func (l Link) height() uint8 {
	if l.State == LinkNil {
		return 0
	}
	if l.Node != nil {
		return l.Node.cachedHeight
	}
	return l.Height
}

// hash returns the cached node_hash this link publishes to its parent.
// Unmaterialised children contribute their stored hash directly — no
// re-fetch needed.
func (l Link) hash(hasher khash.Hasher) khash.Hash {
	if l.State == LinkNil {
		return khash.Hash{}
	}
	if l.Node != nil {
		return l.Node.NodeHash(hasher)
	}
	return l.Hash
}

func (l Link) feature() element.FeatureType {
	if l.State == LinkNil {
		return element.FeatureType{}
	}
	if l.Node != nil {
		return l.Node.feature
	}
	return l.Feature
}

// fromNode wraps a freshly materialised/modified Node as a Modified link.
func fromNode(n *Node) Link {
	if n == nil {
		return NilLink
	}
	return Link{State: LinkModified, Node: n}
}
