package proof

import (
	"bytes"
	"errors"

	"github.com/dashpay/grovedb-go/element"
	"github.com/dashpay/grovedb-go/khash"
)

var (
	ErrStackUnderflow  = errors.New("proof: stack underflow")
	ErrStackNotSingle  = errors.New("proof: proof left more than one tree on the stack")
	ErrRootMismatch    = errors.New("proof: computed root hash does not match expected root")
	ErrOutOfOrder      = errors.New("proof: disclosed entries are not in query order")
	ErrEntryNotInQuery = errors.New("proof: disclosed entry falls outside every query item")
)

// MatchedEntry is a (key, element) pair the verifier observed disclosed by
// a KV-bearing push, in the builder's traversal order.
type MatchedEntry struct {
	Key     []byte
	Element element.Element
}

// stackTree is one entry on the verifier's stack automaton: either an
// already-known opaque node_hash (a Hash push), or a node's kv_hash/feature
// (from a KVHash push or a disclosed KV push) waiting to be combined with
// 0, 1 or 2 child hashes attached by later Parent/Child ops. entries
// accumulates this subtree's disclosed (key, element) pairs in the
// builder's traversal order, merged across attachments as children are
// folded in — so the root's final entries slice comes out in the same
// order BuildProof visited them in, not raw op-stream order (the node
// itself is pushed before its first-recursed child's ops appear in the
// stream, so stream order and key order aren't the same thing).
type stackTree struct {
	opaque   khash.Hash
	isOpaque bool

	kvHash  khash.Hash
	feature element.FeatureType
	left    *khash.Hash
	right   *khash.Hash
	entries []MatchedEntry
}

func (t *stackTree) hash(hasher khash.Hasher) khash.Hash {
	if t.isOpaque {
		return t.opaque
	}
	var left, right khash.Hash
	if t.left != nil {
		left = *t.left
	}
	if t.right != nil {
		right = *t.right
	}
	return hasher.Sum(t.kvHash.Bytes(), left.Bytes(), right.Bytes(), t.feature.Encode())
}

// Verify executes ops through the stack automaton: Push grows
// the stack with evidence for one node, Parent/Child/ParentInverted/
// ChildInverted each pop the two most recently produced trees and
// re-attach the first as a child of the second. It succeeds only if
// exactly one tree remains and its hash equals expectedRoot, and returns
// every (key, element) pair disclosed along the way, reassembled into the
// builder's traversal order (ascending key order for a left-to-right
// proof) rather than raw op-stream order.
func Verify(ops []Op, hasher khash.Hasher, expectedRoot khash.Hash) ([]MatchedEntry, error) {
	var stack []*stackTree

	pop := func() (*stackTree, error) {
		if len(stack) == 0 {
			return nil, ErrStackUnderflow
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return top, nil
	}

	// physicalLeft selects which of parent's child-hash slots to fill.
	// childFirst selects whether child's disclosed entries precede or
	// follow parent's already-accumulated ones: Parent/ParentInverted
	// always close the first-recursed side (so its entries sort first),
	// Child/ChildInverted always close the second (so they sort last) —
	// independent of which physical side that first/second side maps to.
	attach := func(physicalLeft, childFirst bool) error {
		child, err := pop()
		if err != nil {
			return err
		}
		parent, err := pop()
		if err != nil {
			return err
		}
		h := child.hash(hasher)
		if physicalLeft {
			parent.left = &h
		} else {
			parent.right = &h
		}
		if childFirst {
			parent.entries = append(append([]MatchedEntry{}, child.entries...), parent.entries...)
		} else {
			parent.entries = append(parent.entries, child.entries...)
		}
		stack = append(stack, parent)
		return nil
	}

	for _, op := range ops {
		switch p := op.(type) {
		case Parent:
			if err := attach(true, true); err != nil {
				return nil, err
			}
		case Child:
			if err := attach(false, false); err != nil {
				return nil, err
			}
		case ParentInverted:
			if err := attach(false, true); err != nil {
				return nil, err
			}
		case ChildInverted:
			if err := attach(true, false); err != nil {
				return nil, err
			}
		case Push:
			tree, entry, err := pushToStackTree(p, hasher)
			if err != nil {
				return nil, err
			}
			if entry != nil {
				tree.entries = []MatchedEntry{*entry}
			}
			stack = append(stack, tree)
		default:
			return nil, ErrUnknownTag
		}
	}

	if len(stack) == 0 {
		return nil, ErrStackUnderflow
	}
	if len(stack) > 1 {
		return nil, ErrStackNotSingle
	}
	if stack[0].hash(hasher) != expectedRoot {
		return nil, ErrRootMismatch
	}
	return stack[0].entries, nil
}

func kvHashOf(hasher khash.Hasher, key, value []byte) khash.Hash {
	klen := khash.PutUint64(nil, uint64(len(key)))
	vlen := khash.PutUint64(nil, uint64(len(value)))
	return hasher.Sum(klen, key, vlen, value)
}

// pushToStackTree interprets one Push's Node payload, recomputing
// kv_hash from the raw key/value whenever both are disclosed (kv_hash is
// a pure function of them, so the wire's ValueHash/Count fields never
// need to be trusted for that purpose) and decoding the Element when a
// value is present.
func pushToStackTree(p Push, hasher khash.Hasher) (*stackTree, *MatchedEntry, error) {
	switch n := p.Node.(type) {
	case NodeHash:
		return &stackTree{isOpaque: true, opaque: n.Hash}, nil, nil

	case NodeKVHash:
		return &stackTree{kvHash: n.Hash}, nil, nil

	case NodeKV:
		el, err := element.Decode(n.Value)
		if err != nil {
			return nil, nil, err
		}
		return &stackTree{kvHash: kvHashOf(hasher, n.Key, n.Value)},
			&MatchedEntry{Key: n.Key, Element: el}, nil

	case NodeKVValueHash:
		el, err := element.Decode(n.Value)
		if err != nil {
			return nil, nil, err
		}
		return &stackTree{kvHash: kvHashOf(hasher, n.Key, n.Value)},
			&MatchedEntry{Key: n.Key, Element: el}, nil

	case NodeKVDigest:
		// The value itself isn't disclosed;
		// ValueHash stands in directly for kv_hash.
		return &stackTree{kvHash: n.ValueHash}, nil, nil

	case NodeKVRefValueHash:
		el, err := element.Decode(n.Value)
		if err != nil {
			return nil, nil, err
		}
		return &stackTree{kvHash: kvHashOf(hasher, n.Key, n.Value)},
			&MatchedEntry{Key: n.Key, Element: el}, nil

	case NodeKVValueHashFeatureType:
		el, err := element.Decode(n.Value)
		if err != nil {
			return nil, nil, err
		}
		return &stackTree{kvHash: kvHashOf(hasher, n.Key, n.Value), feature: n.Feature},
			&MatchedEntry{Key: n.Key, Element: el}, nil

	case NodeKVCount:
		el, err := element.Decode(n.Value)
		if err != nil {
			return nil, nil, err
		}
		return &stackTree{kvHash: kvHashOf(hasher, n.Key, n.Value)},
			&MatchedEntry{Key: n.Key, Element: el}, nil

	case NodeKVHashCount:
		return &stackTree{kvHash: n.Hash}, nil, nil

	case NodeKVRefValueHashCount:
		el, err := element.Decode(n.Value)
		if err != nil {
			return nil, nil, err
		}
		return &stackTree{kvHash: kvHashOf(hasher, n.Key, n.Value)},
			&MatchedEntry{Key: n.Key, Element: el}, nil

	case NodeKVDigestCount:
		return &stackTree{kvHash: n.ValueHash}, nil, nil

	default:
		return nil, nil, ErrUnknownTag
	}
}

// CheckQueryConsistency verifies entries (as returned by Verify, already
// reassembled into traversal order) are strictly ordered by key and each
// falls inside at least one of items — catching a prover that disclosed
// real, correctly hashed nodes that nonetheless don't answer the query
// that was asked.
func CheckQueryConsistency(entries []MatchedEntry, items []QueryItem, ascending bool) error {
	for i, e := range entries {
		if i > 0 {
			cmp := bytes.Compare(e.Key, entries[i-1].Key)
			if ascending && cmp <= 0 {
				return ErrOutOfOrder
			}
			if !ascending && cmp >= 0 {
				return ErrOutOfOrder
			}
		}
		inAny := false
		for _, it := range items {
			if it.Contains(e.Key) {
				inAny = true
				break
			}
		}
		if !inAny {
			return ErrEntryNotInQuery
		}
	}
	return nil
}
