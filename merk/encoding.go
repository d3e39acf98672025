package merk

import (
	"github.com/dashpay/grovedb-go/element"
	"github.com/dashpay/grovedb-go/khash"
	"github.com/dashpay/grovedb-go/node"
	"github.com/dashpay/grovedb-go/rlp"
)

// nodeRecord is the on-disk shape of one committed node, keyed by its own
// Key within the subtree's storage prefix: besides the node's own Value, it
// carries just enough about each child link to resume traversal and
// rehashing without a second round-trip — the child's own storage Key,
// its node_hash, its cached height, and its cached FeatureType bytes.
type nodeRecord struct {
	Value []byte

	HasLeft     bool
	LeftKey     []byte
	LeftHash    khash.Hash
	LeftHeight  uint8
	LeftFeature []byte

	HasRight     bool
	RightKey     []byte
	RightHash    khash.Hash
	RightHeight  uint8
	RightFeature []byte
}

// encodeNode serializes n's own Value plus both child Links' reference
// metadata (not n's own Key — the caller already knows it, since it's the
// storage key this record is filed under).
func encodeNode(n *node.Node, hasher khash.Hasher) ([]byte, error) {
	encodedValue, err := element.Encode(n.Value)
	if err != nil {
		return nil, err
	}
	rec := nodeRecord{Value: encodedValue}

	if !n.Left.IsNil() {
		rec.HasLeft = true
		rec.LeftKey = linkKey(n.Left)
		rec.LeftHash = linkHash(n.Left, hasher)
		rec.LeftHeight = linkHeight(n.Left)
		rec.LeftFeature = linkFeature(n.Left).Encode()
	}
	if !n.Right.IsNil() {
		rec.HasRight = true
		rec.RightKey = linkKey(n.Right)
		rec.RightHash = linkHash(n.Right, hasher)
		rec.RightHeight = linkHeight(n.Right)
		rec.RightFeature = linkFeature(n.Right).Encode()
	}
	return rlp.EncodeToBytes(rec)
}

// decodeNode reconstructs a Node from a stored record, given the key it was
// filed under. Children come back as Reference links — materialising them is Source's job.
func decodeNode(key []byte, data []byte) (*node.Node, error) {
	var rec nodeRecord
	if err := rlp.DecodeBytes(data, &rec); err != nil {
		return nil, err
	}
	value, err := element.Decode(rec.Value)
	if err != nil {
		return nil, err
	}

	n := node.NewLeaf(key, value, element.FeatureType{})
	if rec.HasLeft {
		feature, _, err := element.DecodeFeature(rec.LeftFeature)
		if err != nil {
			return nil, err
		}
		n.Left = node.Link{State: node.LinkReference, Key: rec.LeftKey, Hash: rec.LeftHash, Height: rec.LeftHeight, Feature: feature}
	}
	if rec.HasRight {
		feature, _, err := element.DecodeFeature(rec.RightFeature)
		if err != nil {
			return nil, err
		}
		n.Right = node.Link{State: node.LinkReference, Key: rec.RightKey, Hash: rec.RightHash, Height: rec.RightHeight, Feature: feature}
	}
	return n, nil
}

func linkKey(l node.Link) []byte {
	if l.Node != nil {
		return l.Node.Key
	}
	return l.Key
}

func linkHash(l node.Link, hasher khash.Hasher) khash.Hash {
	if l.Node != nil {
		return l.Node.NodeHash(hasher)
	}
	return l.Hash
}

func linkHeight(l node.Link) uint8 {
	if l.Node != nil {
		return l.Node.Height()
	}
	return l.Height
}

func linkFeature(l node.Link) element.FeatureType {
	if l.Node != nil {
		return l.Node.Feature()
	}
	return l.Feature
}
