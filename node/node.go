// Package node implements the AVL-balanced tree node: the single-key
// insert/delete/rebalance/hash primitives every Merk subtree is built from.
// It has no notion of storage — Source is the only seam to the
// outside world — so it can be unit-tested as a pure in-memory structure.
package node

import (
	"errors"

	"github.com/dashpay/grovedb-go/element"
	"github.com/dashpay/grovedb-go/khash"
)

// Failure kinds for node-level operations.
var (
	ErrKeyNotFound   = errors.New("node: key not found")
	ErrCorruptedData = errors.New("node: corrupted data")
)

// Node is one AVL node: a key, its Element payload, and its two children.
// Left/Right are Links rather than bare *Node so an unmaterialised child can
// sit in memory as just its hash/height/aggregate until something actually
// walks into it.
type Node struct {
	Key   []byte
	Value element.Element

	Left  Link
	Right Link

	feature      element.FeatureType
	cachedHeight uint8
	kvHash       *khash.Hash
	nodeHash     *khash.Hash
}

// NewLeaf creates a node with no children. feature is the node's own
// elemental contribution already combined with (empty) child aggregates —
// callers use Contribution to derive it from Value and the tree's FeatureKind.
func NewLeaf(key []byte, value element.Element, feature element.FeatureType) *Node {
	return &Node{Key: key, Value: value, feature: feature, cachedHeight: 1}
}

// Height returns this node's cached subtree height (leaves are height 1).
func (n *Node) Height() uint8 { return n.cachedHeight }

// Balance returns left height minus right height; AVL invariant keeps this
// in [-1, 1] after every insert/delete.
func (n *Node) Balance() int { return int(n.Left.height()) - int(n.Right.height()) }

// Feature returns the aggregate this node publishes (combination of its own
// elemental contribution and both children's published aggregates).
func (n *Node) Feature() element.FeatureType { return n.feature }

// invalidate clears cached hashes and recomputes height/feature from the
// current Left/Right links. Called after any structural change (new child,
// rotation, value replacement).
func (n *Node) invalidate(kind element.FeatureKind) {
	n.kvHash = nil
	n.nodeHash = nil
	n.cachedHeight = 1 + max8(n.Left.height(), n.Right.height())

	selfSum, selfCount, selfBig := Contribution(n.Value)
	n.feature = element.Combine(kind, selfSum, selfCount, selfBig, n.Left.feature(), n.Right.feature())
}

func max8(a, b uint8) uint8 {
	if a > b {
		return a
	}
	return b
}

// Contribution derives a node's own elemental aggregate contribution from
// its Value, independent of its children. Every element contributes 1
// towards Counted/CountedSum's count except nested Count/ProvableCount
// trees, which instead contribute their own already-aggregated Count (so
// counting nests correctly across subtree boundaries); SumItem/SumItem-
// WithBackwardsReferences contribute their Value, and a nested SumTree
// contributes its own Sum.
func Contribution(v element.Element) (sum int64, count uint64, big element.Int128) {
	switch e := v.(type) {
	case element.SumItem:
		return e.Value, 1, element.FromInt64(e.Value)
	case element.SumItemWithBackwardsReferences:
		return e.Value, 1, element.FromInt64(e.Value)
	case element.SumTree:
		return e.Sum, 1, element.FromInt64(e.Sum)
	case element.CountTree:
		return 0, e.Count, element.Int128{}
	case element.ProvableCountTree:
		return 0, e.Count, element.Int128{}
	default:
		return 0, 1, element.Int128{}
	}
}

// KVHash computes kv_hash = H(len(k)‖k‖len(v)‖v), caching the
// result until the node is next invalidated.
func (n *Node) KVHash(hasher khash.Hasher) (khash.Hash, error) {
	if n.kvHash != nil {
		return *n.kvHash, nil
	}
	encoded, err := element.Encode(n.Value)
	if err != nil {
		return khash.Hash{}, err
	}
	klen := khash.PutUint64(nil, uint64(len(n.Key)))
	vlen := khash.PutUint64(nil, uint64(len(encoded)))
	h := hasher.Sum(klen, n.Key, vlen, encoded)
	n.kvHash = &h
	return h, nil
}

// NodeHash computes node_hash = H(kv_hash‖left_hash‖right_hash‖
// encode(feature_type)), caching the result until invalidated.
// Panics only if KVHash's encode fails, which would mean a corrupted Value
// already accepted past insert — callers needing an error-returning variant
// should call KVHash themselves first.
func (n *Node) NodeHash(hasher khash.Hasher) khash.Hash {
	if n.nodeHash != nil {
		return *n.nodeHash
	}
	kv, err := n.KVHash(hasher)
	if err != nil {
		panic("node: NodeHash: " + err.Error())
	}
	left := n.Left.hash(hasher)
	right := n.Right.hash(hasher)
	h := hasher.Sum(kv.Bytes(), left.Bytes(), right.Bytes(), n.feature.Encode())
	n.nodeHash = &h
	return h
}
