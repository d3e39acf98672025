// Package proof implements the proof-op grammar and codec, the proof
// builder and the stack-automaton verifier.
package proof

import (
	"encoding/binary"
	"errors"

	"github.com/dashpay/grovedb-go/element"
	"github.com/dashpay/grovedb-go/khash"
)

// Tag is the single-byte op discriminant at the front of every proof-op
//, matching the byte values the original
// GroveDB proof encoding uses so a proof produced by one is legible to
// the other (original_source/grovedb-query/src/proofs/encoding.rs).
type Tag byte

const (
	TagHash   Tag = 0x01
	TagKVHash Tag = 0x02
	TagKV     Tag = 0x03
	TagKVValueHash           Tag = 0x04
	TagKVDigest              Tag = 0x05
	TagKVRefValueHash        Tag = 0x06
	TagKVValueHashFeatureType Tag = 0x07

	TagHashInverted   Tag = 0x08
	TagKVHashInverted Tag = 0x09
	TagKVInverted     Tag = 0x0a
	TagKVValueHashInverted           Tag = 0x0b
	TagKVDigestInverted              Tag = 0x0c
	TagKVRefValueHashInverted        Tag = 0x0d
	TagKVValueHashFeatureTypeInverted Tag = 0x0e

	TagParent         Tag = 0x10
	TagChild          Tag = 0x11
	TagParentInverted Tag = 0x12
	TagChildInverted  Tag = 0x13

	TagKVCount             Tag = 0x14
	TagKVHashCount         Tag = 0x15
	TagKVCountInverted     Tag = 0x16
	TagKVHashCountInverted Tag = 0x17

	TagKVRefValueHashCount         Tag = 0x18
	TagKVRefValueHashCountInverted Tag = 0x19
	TagKVDigestCount               Tag = 0x1a
	TagKVDigestCountInverted       Tag = 0x1b

	TagKVLarge                     Tag = 0x20
	TagKVValueHashLarge            Tag = 0x21
	TagKVRefValueHashLarge         Tag = 0x22
	TagKVValueHashFeatureTypeLarge Tag = 0x23
	TagKVCountLarge                Tag = 0x24
	TagKVRefValueHashCountLarge    Tag = 0x25

	TagKVInvertedLarge                     Tag = 0x28
	TagKVValueHashInvertedLarge            Tag = 0x29
	TagKVRefValueHashInvertedLarge         Tag = 0x2a
	TagKVValueHashFeatureTypeInvertedLarge Tag = 0x2b
	TagKVCountInvertedLarge                Tag = 0x2c
	TagKVRefValueHashCountInvertedLarge    Tag = 0x2d
)

// smallValueLimit is the threshold below which a value-bearing push uses
// its small (u16 length) tag; at or above it, the large (u32 length) tag
// is used instead.
const smallValueLimit = 65536

// MaxLargeValue is the hard decode-time ceiling on a large variant's
// value length — guards a malicious proof from claiming an
// unreasonable allocation.
const MaxLargeValue = 64 * 1024 * 1024

var (
	ErrShortOp       = errors.New("proof: truncated op")
	ErrUnknownTag    = errors.New("proof: unknown op tag")
	ErrValueTooLarge = errors.New("proof: value exceeds 64 MiB hard limit")
	ErrKeyTooLong    = errors.New("proof: key longer than 255 bytes")
)

// Op is one token in the proof stream: a Push (leaf evidence for the
// stack automaton) or a Parent/Child/ParentInverted/ChildInverted
// stitching instruction.
type Op interface {
	encode(dst []byte) ([]byte, error)
	tag() Tag
}

// Node is the evidence payload of a Push op.
// Exactly one concrete type below is wrapped per Push.
type Node interface {
	isNode()
}

type NodeHash struct{ Hash khash.Hash }
type NodeKVHash struct{ Hash khash.Hash }
type NodeKV struct{ Key, Value []byte }
type NodeKVValueHash struct {
	Key, Value []byte
	ValueHash  khash.Hash
}
type NodeKVDigest struct {
	Key       []byte
	ValueHash khash.Hash
}
type NodeKVRefValueHash struct {
	Key, Value []byte
	ValueHash  khash.Hash
}
type NodeKVValueHashFeatureType struct {
	Key, Value []byte
	ValueHash  khash.Hash
	Feature    element.FeatureType
}
type NodeKVCount struct {
	Key, Value []byte
	Count      uint64
}
type NodeKVHashCount struct {
	Hash  khash.Hash
	Count uint64
}
type NodeKVRefValueHashCount struct {
	Key, Value []byte
	ValueHash  khash.Hash
	Count      uint64
}
type NodeKVDigestCount struct {
	Key       []byte
	ValueHash khash.Hash
	Count     uint64
}

func (NodeHash) isNode()                   {}
func (NodeKVHash) isNode()                 {}
func (NodeKV) isNode()                     {}
func (NodeKVValueHash) isNode()            {}
func (NodeKVDigest) isNode()               {}
func (NodeKVRefValueHash) isNode()         {}
func (NodeKVValueHashFeatureType) isNode() {}
func (NodeKVCount) isNode()                {}
func (NodeKVHashCount) isNode()            {}
func (NodeKVRefValueHashCount) isNode()    {}
func (NodeKVDigestCount) isNode()          {}

// Push carries a Node of evidence; Inverted selects the mirrored tag
// range used when the builder walked the subtree right-to-left.
type Push struct {
	Node     Node
	Inverted bool
}

// Parent pops the two most recent stack trees and attaches the first
// (the one just finished) as the second's left child.
type Parent struct{}

// Child mirrors Parent, attaching as the right child.
type Child struct{}

// ParentInverted mirrors Parent for a right-to-left walk: attaches as
// the right child instead of the left.
type ParentInverted struct{}

// ChildInverted mirrors Child for a right-to-left walk: attaches as the
// left child instead of the right.
type ChildInverted struct{}

func (Parent) tag() Tag         { return TagParent }
func (Child) tag() Tag          { return TagChild }
func (ParentInverted) tag() Tag { return TagParentInverted }
func (ChildInverted) tag() Tag  { return TagChildInverted }

func (Parent) encode(dst []byte) ([]byte, error)         { return append(dst, byte(TagParent)), nil }
func (Child) encode(dst []byte) ([]byte, error)          { return append(dst, byte(TagChild)), nil }
func (ParentInverted) encode(dst []byte) ([]byte, error) { return append(dst, byte(TagParentInverted)), nil }
func (ChildInverted) encode(dst []byte) ([]byte, error)  { return append(dst, byte(TagChildInverted)), nil }

func putKey(dst, key []byte) ([]byte, error) {
	if len(key) > 255 {
		return nil, ErrKeyTooLong
	}
	dst = append(dst, byte(len(key)))
	return append(dst, key...), nil
}

func putCount(dst []byte, count uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], count)
	return append(dst, buf[:]...)
}

func (p Push) tag() Tag {
	switch n := p.Node.(type) {
	case NodeHash:
		if p.Inverted {
			return TagHashInverted
		}
		return TagHash
	case NodeKVHash:
		if p.Inverted {
			return TagKVHashInverted
		}
		return TagKVHash
	case NodeKV:
		small, large := TagKV, TagKVLarge
		if p.Inverted {
			small, large = TagKVInverted, TagKVInvertedLarge
		}
		if len(n.Value) < smallValueLimit {
			return small
		}
		return large
	case NodeKVValueHash:
		small, large := TagKVValueHash, TagKVValueHashLarge
		if p.Inverted {
			small, large = TagKVValueHashInverted, TagKVValueHashInvertedLarge
		}
		if len(n.Value) < smallValueLimit {
			return small
		}
		return large
	case NodeKVDigest:
		if p.Inverted {
			return TagKVDigestInverted
		}
		return TagKVDigest
	case NodeKVRefValueHash:
		small, large := TagKVRefValueHash, TagKVRefValueHashLarge
		if p.Inverted {
			small, large = TagKVRefValueHashInverted, TagKVRefValueHashInvertedLarge
		}
		if len(n.Value) < smallValueLimit {
			return small
		}
		return large
	case NodeKVValueHashFeatureType:
		small, large := TagKVValueHashFeatureType, TagKVValueHashFeatureTypeLarge
		if p.Inverted {
			small, large = TagKVValueHashFeatureTypeInverted, TagKVValueHashFeatureTypeInvertedLarge
		}
		if len(n.Value) < smallValueLimit {
			return small
		}
		return large
	case NodeKVCount:
		small, large := TagKVCount, TagKVCountLarge
		if p.Inverted {
			small, large = TagKVCountInverted, TagKVCountInvertedLarge
		}
		if len(n.Value) < smallValueLimit {
			return small
		}
		return large
	case NodeKVHashCount:
		if p.Inverted {
			return TagKVHashCountInverted
		}
		return TagKVHashCount
	case NodeKVRefValueHashCount:
		small, large := TagKVRefValueHashCount, TagKVRefValueHashCountLarge
		if p.Inverted {
			small, large = TagKVRefValueHashCountInverted, TagKVRefValueHashCountInvertedLarge
		}
		if len(n.Value) < smallValueLimit {
			return small
		}
		return large
	case NodeKVDigestCount:
		if p.Inverted {
			return TagKVDigestCountInverted
		}
		return TagKVDigestCount
	default:
		return 0
	}
}

func (p Push) encode(dst []byte) ([]byte, error) {
	switch n := p.Node.(type) {
	case NodeHash:
		dst = append(dst, byte(p.tag()))
		return append(dst, n.Hash[:]...), nil
	case NodeKVHash:
		dst = append(dst, byte(p.tag()))
		return append(dst, n.Hash[:]...), nil
	case NodeKV:
		return putKeyThenValue(dst, n.Key, n.Value, p)
	case NodeKVValueHash:
		dst, err := putKeyThenValue(dst, n.Key, n.Value, p)
		if err != nil {
			return nil, err
		}
		return append(dst, n.ValueHash[:]...), nil
	case NodeKVDigest:
		dst = append(dst, byte(p.tag()))
		var err error
		dst, err = putKey(dst, n.Key)
		if err != nil {
			return nil, err
		}
		return append(dst, n.ValueHash[:]...), nil
	case NodeKVRefValueHash:
		dst, err := putKeyThenValue(dst, n.Key, n.Value, p)
		if err != nil {
			return nil, err
		}
		return append(dst, n.ValueHash[:]...), nil
	case NodeKVValueHashFeatureType:
		dst, err := putKeyThenValue(dst, n.Key, n.Value, p)
		if err != nil {
			return nil, err
		}
		dst = append(dst, n.ValueHash[:]...)
		return append(dst, n.Feature.Encode()...), nil
	case NodeKVCount:
		dst, err := putKeyThenValue(dst, n.Key, n.Value, p)
		if err != nil {
			return nil, err
		}
		return putCount(dst, n.Count), nil
	case NodeKVHashCount:
		dst = append(dst, byte(p.tag()))
		dst = append(dst, n.Hash[:]...)
		return putCount(dst, n.Count), nil
	case NodeKVRefValueHashCount:
		dst, err := putKeyThenValue(dst, n.Key, n.Value, p)
		if err != nil {
			return nil, err
		}
		dst = append(dst, n.ValueHash[:]...)
		return putCount(dst, n.Count), nil
	case NodeKVDigestCount:
		dst = append(dst, byte(p.tag()))
		var err error
		dst, err = putKey(dst, n.Key)
		if err != nil {
			return nil, err
		}
		dst = append(dst, n.ValueHash[:]...)
		return putCount(dst, n.Count), nil
	default:
		return nil, ErrUnknownTag
	}
}

func putKeyThenValue(dst, key, value []byte, p Push) ([]byte, error) {
	if len(key) > 255 {
		return nil, ErrKeyTooLong
	}
	if len(value) > MaxLargeValue {
		return nil, ErrValueTooLarge
	}
	dst = append(dst, byte(p.tag()))
	dst = append(dst, byte(len(key)))
	dst = append(dst, key...)
	if len(value) < smallValueLimit {
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(value)))
		dst = append(dst, lenBuf[:]...)
	} else {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(value)))
		dst = append(dst, lenBuf[:]...)
	}
	return append(dst, value...), nil
}

// Encode serializes ops in order into a single byte stream.
func Encode(ops []Op) ([]byte, error) {
	var buf []byte
	for _, op := range ops {
		var err error
		buf, err = op.encode(buf)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}
