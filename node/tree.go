package node

import (
	"bytes"

	"github.com/dashpay/grovedb-go/cost"
	"github.com/dashpay/grovedb-go/element"
	"github.com/dashpay/grovedb-go/khash"
)

// Tree is one AVL-balanced subtree: its root Link, the Source it
// materialises unvisited children through, the Hasher it's parametric over
//, and the FeatureKind every node's aggregate is combined under.
type Tree struct {
	Root   Link
	Source Source
	Hasher khash.Hasher
	Kind   element.FeatureKind
}

// Height returns the tree's current height (0 for an empty tree).
func (t *Tree) Height() uint8 { return t.Root.height() }

// RootHash returns the node_hash the root publishes (the zero hash for an
// empty tree).
func (t *Tree) RootHash() khash.Hash {
	if t.Root.IsNil() {
		return khash.Hash{}
	}
	return t.Root.hash(t.Hasher)
}

// Get descends to key and returns its Element, or ErrKeyNotFound.
func (t *Tree) Get(key []byte) (element.Element, cost.OperationCost, error) {
	var total cost.OperationCost
	link := t.Root
	for {
		if link.IsNil() {
			return nil, total, ErrKeyNotFound
		}
		c, err := (&link).materialize(t.Source)
		total.AddInPlace(c)
		if err != nil {
			return nil, total, err
		}
		total.SeekCount++
		n := link.Node
		switch bytes.Compare(key, n.Key) {
		case 0:
			return n.Value, total, nil
		case -1:
			link = n.Left
		default:
			link = n.Right
		}
	}
}

// Insert adds or overwrites key with value, rebalancing on the way back up.
func (t *Tree) Insert(key []byte, value element.Element) (cost.OperationCost, error) {
	newRoot, c, err := t.insert(t.Root, key, value)
	if err != nil {
		return c, err
	}
	t.Root = newRoot
	return c, nil
}

// Delete removes key, promoting the in-order neighbour on the taller side
// (tie→left) if the deleted node had two children, and returns
// ErrKeyNotFound if key wasn't present.
func (t *Tree) Delete(key []byte) (cost.OperationCost, error) {
	newRoot, found, c, err := t.delete(t.Root, key)
	if err != nil {
		return c, err
	}
	if !found {
		return c, ErrKeyNotFound
	}
	t.Root = newRoot
	return c, nil
}

func (t *Tree) insert(link Link, key []byte, value element.Element) (Link, cost.OperationCost, error) {
	var total cost.OperationCost

	if link.IsNil() {
		selfSum, selfCount, selfBig := Contribution(value)
		feature := element.Combine(t.Kind, selfSum, selfCount, selfBig, element.FeatureType{}, element.FeatureType{})
		return fromNode(NewLeaf(key, value, feature)), total, nil
	}

	c, err := (&link).materialize(t.Source)
	total.AddInPlace(c)
	if err != nil {
		return link, total, err
	}
	total.SeekCount++
	n := link.Node

	switch bytes.Compare(key, n.Key) {
	case 0:
		n.Value = value
		n.invalidate(t.Kind)
	case -1:
		newLeft, c2, err := t.insert(n.Left, key, value)
		total.AddInPlace(c2)
		if err != nil {
			return link, total, err
		}
		n.Left = newLeft
		n.invalidate(t.Kind)
	default:
		newRight, c2, err := t.insert(n.Right, key, value)
		total.AddInPlace(c2)
		if err != nil {
			return link, total, err
		}
		n.Right = newRight
		n.invalidate(t.Kind)
	}

	newNode, c3, err := t.rebalance(n)
	total.AddInPlace(c3)
	if err != nil {
		return link, total, err
	}
	return fromNode(newNode), total, nil
}

func (t *Tree) delete(link Link, key []byte) (Link, bool, cost.OperationCost, error) {
	var total cost.OperationCost

	if link.IsNil() {
		return link, false, total, nil
	}

	c, err := (&link).materialize(t.Source)
	total.AddInPlace(c)
	if err != nil {
		return link, false, total, err
	}
	total.SeekCount++
	n := link.Node

	switch bytes.Compare(key, n.Key) {
	case -1:
		newLeft, found, c2, err := t.delete(n.Left, key)
		total.AddInPlace(c2)
		if err != nil || !found {
			return link, found, total, err
		}
		n.Left = newLeft
		n.invalidate(t.Kind)
	case 1:
		newRight, found, c2, err := t.delete(n.Right, key)
		total.AddInPlace(c2)
		if err != nil || !found {
			return link, found, total, err
		}
		n.Right = newRight
		n.invalidate(t.Kind)
	default:
		switch {
		case n.Left.IsNil() && n.Right.IsNil():
			return NilLink, true, total, nil
		case n.Left.IsNil():
			return n.Right, true, total, nil
		case n.Right.IsNil():
			return n.Left, true, total, nil
		case n.Left.height() >= n.Right.height():
			predKey, predVal, c2, err := t.max(n.Left)
			total.AddInPlace(c2)
			if err != nil {
				return link, true, total, err
			}
			newLeft, _, c3, err := t.delete(n.Left, predKey)
			total.AddInPlace(c3)
			if err != nil {
				return link, true, total, err
			}
			n.Key, n.Value = predKey, predVal
			n.Left = newLeft
			n.invalidate(t.Kind)
		default:
			succKey, succVal, c2, err := t.min(n.Right)
			total.AddInPlace(c2)
			if err != nil {
				return link, true, total, err
			}
			newRight, _, c3, err := t.delete(n.Right, succKey)
			total.AddInPlace(c3)
			if err != nil {
				return link, true, total, err
			}
			n.Key, n.Value = succKey, succVal
			n.Right = newRight
			n.invalidate(t.Kind)
		}
	}

	newNode, c4, err := t.rebalance(n)
	total.AddInPlace(c4)
	if err != nil {
		return link, true, total, err
	}
	return fromNode(newNode), true, total, nil
}

// max returns the rightmost (key, value) reachable from link.
func (t *Tree) max(link Link) ([]byte, element.Element, cost.OperationCost, error) {
	var total cost.OperationCost
	c, err := (&link).materialize(t.Source)
	total.AddInPlace(c)
	if err != nil {
		return nil, nil, total, err
	}
	n := link.Node
	if n.Right.IsNil() {
		return n.Key, n.Value, total, nil
	}
	k, v, c2, err := t.max(n.Right)
	total.AddInPlace(c2)
	return k, v, total, err
}

// min returns the leftmost (key, value) reachable from link.
func (t *Tree) min(link Link) ([]byte, element.Element, cost.OperationCost, error) {
	var total cost.OperationCost
	c, err := (&link).materialize(t.Source)
	total.AddInPlace(c)
	if err != nil {
		return nil, nil, total, err
	}
	n := link.Node
	if n.Left.IsNil() {
		return n.Key, n.Value, total, nil
	}
	k, v, c2, err := t.min(n.Left)
	total.AddInPlace(c2)
	return k, v, total, err
}

// rebalance applies the standard AVL rotation cases at n, fetching the heavier child through Source if it
// isn't already materialised.
func (t *Tree) rebalance(n *Node) (*Node, cost.OperationCost, error) {
	var total cost.OperationCost
	switch {
	case n.Balance() > 1:
		leftNode, c, err := t.forceNode(n.Left)
		total.AddInPlace(c)
		if err != nil {
			return n, total, err
		}
		if leftNode.Balance() < 0 {
			n.Left = fromNode(rotateLeft(leftNode, t.Kind))
			n.invalidate(t.Kind)
		} else {
			// No inner rotation is needed. This Loaded link is replaced by
			// rotateRight below, which makes leftNode the new subtree root
			// that the caller wraps as Modified.
			n.Left = Link{State: LinkLoaded, Node: leftNode}
		}
		return rotateRight(n, t.Kind), total, nil

	case n.Balance() < -1:
		rightNode, c, err := t.forceNode(n.Right)
		total.AddInPlace(c)
		if err != nil {
			return n, total, err
		}
		if rightNode.Balance() > 0 {
			n.Right = fromNode(rotateRight(rightNode, t.Kind))
			n.invalidate(t.Kind)
		} else {
			n.Right = Link{State: LinkLoaded, Node: rightNode}
		}
		return rotateLeft(n, t.Kind), total, nil

	default:
		return n, total, nil
	}
}

// forceNode materialises l if necessary and returns its Node.
func (t *Tree) forceNode(l Link) (*Node, cost.OperationCost, error) {
	if l.Node != nil {
		return l.Node, cost.Zero, nil
	}
	c, err := (&l).materialize(t.Source)
	return l.Node, c, err
}

// Materialize exposes forceNode to callers outside this package (the
// proof builder) that need to walk a committed subtree
// without going through Get/Insert/Delete.
func (t *Tree) Materialize(l Link) (*Node, cost.OperationCost, error) {
	return t.forceNode(l)
}

// rotateLeft performs a standard AVL left rotation: n's right child
// becomes the new subtree root, n becomes its left child.
func rotateLeft(n *Node, kind element.FeatureKind) *Node {
	pivot := n.Right.Node
	n.Right = pivot.Left
	pivot.Left = fromNode(n)
	n.invalidate(kind)
	pivot.invalidate(kind)
	return pivot
}

// rotateRight performs a standard AVL right rotation: n's left child
// becomes the new subtree root, n becomes its right child.
func rotateRight(n *Node, kind element.FeatureKind) *Node {
	pivot := n.Left.Node
	n.Left = pivot.Right
	pivot.Right = fromNode(n)
	n.invalidate(kind)
	pivot.invalidate(kind)
	return pivot
}
