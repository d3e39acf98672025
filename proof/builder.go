package proof

import (
	"github.com/dashpay/grovedb-go/cost"
	"github.com/dashpay/grovedb-go/element"
	"github.com/dashpay/grovedb-go/khash"
	"github.com/dashpay/grovedb-go/node"
)

// Limits caps how many matched elements a single BuildProof call will
// disclose and how many it skips before starting to disclose, mirroring a
// query's (limit, offset). Either may be left nil for
// unbounded.
type Limits struct {
	Limit  *uint64
	Offset *uint64
}

func (l *Limits) consume() bool {
	if l == nil {
		return true
	}
	if l.Offset != nil && *l.Offset > 0 {
		*l.Offset--
		return false
	}
	if l.Limit != nil {
		if *l.Limit == 0 {
			return false
		}
		*l.Limit--
	}
	return true
}

func (l *Limits) exhausted() bool {
	return l != nil && l.Limit != nil && *l.Limit == 0 && (l.Offset == nil || *l.Offset == 0)
}

// Consume is consume's exported form, used by the query engine to
// apply the same limit/offset bookkeeping BuildProof uses internally when
// it needs to charge a unit of limit for a result row the builder itself
// never saw (a subquery that matched zero elements still consumes one
// unit under the decrease_limit_on_range_with_no_sub_elements policy).
func (l *Limits) Consume() bool { return l.consume() }

// Exhausted is exhausted's exported form.
func (l *Limits) Exhausted() bool { return l.exhausted() }

// BuildProof walks tree against items (sorted, non-overlapping query
// bounds) and emits the minimal proof-op stream a verifier needs to
// recompute tree's root hash while learning only the matched elements
// plus whatever sibling hashes are required to bridge the gaps.
// leftToRight false builds the mirrored (descending) stream using
// the Inverted op variants.
func BuildProof(tree *node.Tree, items []QueryItem, leftToRight bool, limits *Limits) ([]Op, cost.OperationCost, error) {
	return buildSubtree(tree, tree.Root, items, leftToRight, limits)
}

// BuildProofFromLink is BuildProof starting from an arbitrary link instead
// of tree.Root, used by the chunk producer to take a full
// proof of the subtree hanging off one trunk exit.
func BuildProofFromLink(tree *node.Tree, link node.Link, items []QueryItem, leftToRight bool, limits *Limits) ([]Op, cost.OperationCost, error) {
	return buildSubtree(tree, link, items, leftToRight, limits)
}

func buildSubtree(tree *node.Tree, link node.Link, items []QueryItem, leftToRight bool, limits *Limits) ([]Op, cost.OperationCost, error) {
	var total cost.OperationCost

	if link.IsNil() {
		return nil, total, nil
	}

	if len(items) == 0 || (limits != nil && limits.exhausted()) {
		return []Op{Push{Node: NodeHash{Hash: linkHashOf(link, tree.Hasher)}, Inverted: !leftToRight}}, total, nil
	}

	n, c, err := tree.Materialize(link)
	total.AddInPlace(c)
	if err != nil {
		return nil, total, err
	}

	leftItems, rightItems, matched := partition(items, n.Key)

	first, firstItems := n.Left, leftItems
	second, secondItems := n.Right, rightItems
	parentTag, childTag := Op(Parent{}), Op(Child{})
	if !leftToRight {
		first, firstItems = n.Right, rightItems
		second, secondItems = n.Left, leftItems
		parentTag, childTag = ParentInverted{}, ChildInverted{}
	}

	// The first-visited side is built before n's own match is counted, so
	// limit/offset are consumed in traversal (key) order even though n's
	// push precedes that side's ops in the stream.
	firstOps, c2, err := buildSubtree(tree, first, firstItems, leftToRight, limits)
	total.AddInPlace(c2)
	if err != nil {
		return nil, total, err
	}

	disclose := matched && limits.consume()

	pushOp, err := pushForNode(n, disclose, tree.Hasher, !leftToRight)
	if err != nil {
		return nil, total, err
	}
	ops := []Op{pushOp}
	if !first.IsNil() {
		ops = append(ops, firstOps...)
		ops = append(ops, parentTag)
	}

	secondOps, c3, err := buildSubtree(tree, second, secondItems, leftToRight, limits)
	total.AddInPlace(c3)
	if err != nil {
		return nil, total, err
	}
	if !second.IsNil() {
		ops = append(ops, secondOps...)
		ops = append(ops, childTag)
	}

	return ops, total, nil
}

// linkHashOf returns the node_hash a link publishes without forcing a
// materialisation Source fetch — cheap sibling pruning never touches
// storage for subtrees the query doesn't intersect.
func linkHashOf(l node.Link, hasher khash.Hasher) khash.Hash {
	if l.Node != nil {
		return l.Node.NodeHash(hasher)
	}
	return l.Hash
}

// pushForNode picks the tightest Node representation for n: a bare
// node_hash when n isn't itself a query match (the verifier only needs
// to recombine it into an ancestor's hash), or the full KV plus whatever
// feature bytes are needed to recompute node_hash when it is.
func pushForNode(n *node.Node, disclose bool, hasher khash.Hasher, inverted bool) (Op, error) {
	if !disclose {
		return Push{Node: NodeHash{Hash: n.NodeHash(hasher)}, Inverted: inverted}, nil
	}
	return PushNodeKV(n, inverted)
}

// PushNodeKV builds the Push that unconditionally discloses n's key and
// value (plus feature bytes when n's tree isn't FeatureBasic), the
// representation used for every node a full-subtree proof reveals — the
// matched branch of pushForNode, and the chunk producer's trunk/leaf
// walks, share this.
func PushNodeKV(n *node.Node, inverted bool) (Op, error) {
	encoded, err := element.Encode(n.Value)
	if err != nil {
		return nil, err
	}

	feature := n.Feature()
	if feature.Kind == element.FeatureBasic {
		return Push{Node: NodeKV{Key: n.Key, Value: encoded}, Inverted: inverted}, nil
	}
	return Push{
		Node: NodeKVValueHashFeatureType{
			Key:     n.Key,
			Value:   encoded,
			Feature: feature,
		},
		Inverted: inverted,
	}, nil
}
