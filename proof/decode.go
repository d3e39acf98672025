package proof

import (
	"encoding/binary"

	"github.com/dashpay/grovedb-go/element"
	"github.com/dashpay/grovedb-go/khash"
)

// Decode reads one op from the front of data, returning it alongside the
// number of bytes consumed: the decoder is a pure iterator, advancing
// exactly encoding_length(op) per call.
func Decode(data []byte) (Op, int, error) {
	if len(data) == 0 {
		return nil, 0, ErrShortOp
	}
	tag := Tag(data[0])
	switch tag {
	case TagParent:
		return Parent{}, 1, nil
	case TagChild:
		return Child{}, 1, nil
	case TagParentInverted:
		return ParentInverted{}, 1, nil
	case TagChildInverted:
		return ChildInverted{}, 1, nil
	}

	inverted, large := tagShape(tag)
	n, consumed, err := decodeNode(tag, data[1:], large)
	if err != nil {
		return nil, 0, err
	}
	return Push{Node: n, Inverted: inverted}, 1 + consumed, nil
}

// tagShape reports whether tag belongs to the Inverted mirror range and/or
// the large-value range, independent of which push kind it encodes.
func tagShape(tag Tag) (inverted, large bool) {
	switch tag {
	case TagHashInverted, TagKVHashInverted, TagKVInverted, TagKVValueHashInverted,
		TagKVDigestInverted, TagKVRefValueHashInverted, TagKVValueHashFeatureTypeInverted,
		TagKVCountInverted, TagKVHashCountInverted, TagKVRefValueHashCountInverted,
		TagKVDigestCountInverted,
		TagKVInvertedLarge, TagKVValueHashInvertedLarge, TagKVRefValueHashInvertedLarge,
		TagKVValueHashFeatureTypeInvertedLarge, TagKVCountInvertedLarge,
		TagKVRefValueHashCountInvertedLarge:
		inverted = true
	}
	switch tag {
	case TagKVLarge, TagKVValueHashLarge, TagKVRefValueHashLarge, TagKVValueHashFeatureTypeLarge,
		TagKVCountLarge, TagKVRefValueHashCountLarge,
		TagKVInvertedLarge, TagKVValueHashInvertedLarge, TagKVRefValueHashInvertedLarge,
		TagKVValueHashFeatureTypeInvertedLarge, TagKVCountInvertedLarge,
		TagKVRefValueHashCountInvertedLarge:
		large = true
	}
	return inverted, large
}

// nodeKind identifies which Node shape a tag (ignoring its inverted/large
// flavour) decodes to.
type nodeKind uint8

const (
	kindHash nodeKind = iota
	kindKVHash
	kindKV
	kindKVValueHash
	kindKVDigest
	kindKVRefValueHash
	kindKVValueHashFeatureType
	kindKVCount
	kindKVHashCount
	kindKVRefValueHashCount
	kindKVDigestCount
	kindUnknown
)

func classify(tag Tag) nodeKind {
	switch tag {
	case TagHash, TagHashInverted:
		return kindHash
	case TagKVHash, TagKVHashInverted:
		return kindKVHash
	case TagKV, TagKVInverted, TagKVLarge, TagKVInvertedLarge:
		return kindKV
	case TagKVValueHash, TagKVValueHashInverted, TagKVValueHashLarge, TagKVValueHashInvertedLarge:
		return kindKVValueHash
	case TagKVDigest, TagKVDigestInverted:
		return kindKVDigest
	case TagKVRefValueHash, TagKVRefValueHashInverted, TagKVRefValueHashLarge, TagKVRefValueHashInvertedLarge:
		return kindKVRefValueHash
	case TagKVValueHashFeatureType, TagKVValueHashFeatureTypeInverted,
		TagKVValueHashFeatureTypeLarge, TagKVValueHashFeatureTypeInvertedLarge:
		return kindKVValueHashFeatureType
	case TagKVCount, TagKVCountInverted, TagKVCountLarge, TagKVCountInvertedLarge:
		return kindKVCount
	case TagKVHashCount, TagKVHashCountInverted:
		return kindKVHashCount
	case TagKVRefValueHashCount, TagKVRefValueHashCountInverted,
		TagKVRefValueHashCountLarge, TagKVRefValueHashCountInvertedLarge:
		return kindKVRefValueHashCount
	case TagKVDigestCount, TagKVDigestCountInverted:
		return kindKVDigestCount
	default:
		return kindUnknown
	}
}

func takeHash(data []byte) (khash.Hash, []byte, error) {
	if len(data) < khash.Size {
		return khash.Hash{}, nil, ErrShortOp
	}
	return khash.BytesToHash(data[:khash.Size]), data[khash.Size:], nil
}

func takeKey(data []byte) ([]byte, []byte, error) {
	if len(data) < 1 {
		return nil, nil, ErrShortOp
	}
	n := int(data[0])
	data = data[1:]
	if len(data) < n {
		return nil, nil, ErrShortOp
	}
	return data[:n], data[n:], nil
}

func takeValue(data []byte, large bool) ([]byte, []byte, error) {
	if large {
		if len(data) < 4 {
			return nil, nil, ErrShortOp
		}
		n := binary.BigEndian.Uint32(data[:4])
		if n > MaxLargeValue {
			return nil, nil, ErrValueTooLarge
		}
		data = data[4:]
		if uint32(len(data)) < n {
			return nil, nil, ErrShortOp
		}
		return data[:n], data[n:], nil
	}
	if len(data) < 2 {
		return nil, nil, ErrShortOp
	}
	n := binary.BigEndian.Uint16(data[:2])
	data = data[2:]
	if len(data) < int(n) {
		return nil, nil, ErrShortOp
	}
	return data[:n], data[n:], nil
}

func takeCount(data []byte) (uint64, []byte, error) {
	if len(data) < 8 {
		return 0, nil, ErrShortOp
	}
	return binary.BigEndian.Uint64(data[:8]), data[8:], nil
}

// decodeNode decodes a single Node's payload (everything after the tag
// byte), returning it and how many payload bytes it consumed.
func decodeNode(tag Tag, data []byte, large bool) (Node, int, error) {
	start := len(data)
	switch classify(tag) {
	case kindHash:
		h, rest, err := takeHash(data)
		if err != nil {
			return nil, 0, err
		}
		return NodeHash{Hash: h}, start - len(rest), nil
	case kindKVHash:
		h, rest, err := takeHash(data)
		if err != nil {
			return nil, 0, err
		}
		return NodeKVHash{Hash: h}, start - len(rest), nil
	case kindKV:
		key, rest, err := takeKey(data)
		if err != nil {
			return nil, 0, err
		}
		value, rest, err := takeValue(rest, large)
		if err != nil {
			return nil, 0, err
		}
		return NodeKV{Key: key, Value: value}, start - len(rest), nil
	case kindKVValueHash:
		key, rest, err := takeKey(data)
		if err != nil {
			return nil, 0, err
		}
		value, rest, err := takeValue(rest, large)
		if err != nil {
			return nil, 0, err
		}
		vh, rest, err := takeHash(rest)
		if err != nil {
			return nil, 0, err
		}
		return NodeKVValueHash{Key: key, Value: value, ValueHash: vh}, start - len(rest), nil
	case kindKVDigest:
		key, rest, err := takeKey(data)
		if err != nil {
			return nil, 0, err
		}
		vh, rest, err := takeHash(rest)
		if err != nil {
			return nil, 0, err
		}
		return NodeKVDigest{Key: key, ValueHash: vh}, start - len(rest), nil
	case kindKVRefValueHash:
		key, rest, err := takeKey(data)
		if err != nil {
			return nil, 0, err
		}
		value, rest, err := takeValue(rest, large)
		if err != nil {
			return nil, 0, err
		}
		vh, rest, err := takeHash(rest)
		if err != nil {
			return nil, 0, err
		}
		return NodeKVRefValueHash{Key: key, Value: value, ValueHash: vh}, start - len(rest), nil
	case kindKVValueHashFeatureType:
		key, rest, err := takeKey(data)
		if err != nil {
			return nil, 0, err
		}
		value, rest, err := takeValue(rest, large)
		if err != nil {
			return nil, 0, err
		}
		vh, rest, err := takeHash(rest)
		if err != nil {
			return nil, 0, err
		}
		feature, n, err := element.DecodeFeature(rest)
		if err != nil {
			return nil, 0, err
		}
		rest = rest[n:]
		return NodeKVValueHashFeatureType{Key: key, Value: value, ValueHash: vh, Feature: feature}, start - len(rest), nil
	case kindKVCount:
		key, rest, err := takeKey(data)
		if err != nil {
			return nil, 0, err
		}
		value, rest, err := takeValue(rest, large)
		if err != nil {
			return nil, 0, err
		}
		count, rest, err := takeCount(rest)
		if err != nil {
			return nil, 0, err
		}
		return NodeKVCount{Key: key, Value: value, Count: count}, start - len(rest), nil
	case kindKVHashCount:
		h, rest, err := takeHash(data)
		if err != nil {
			return nil, 0, err
		}
		count, rest, err := takeCount(rest)
		if err != nil {
			return nil, 0, err
		}
		return NodeKVHashCount{Hash: h, Count: count}, start - len(rest), nil
	case kindKVRefValueHashCount:
		key, rest, err := takeKey(data)
		if err != nil {
			return nil, 0, err
		}
		value, rest, err := takeValue(rest, large)
		if err != nil {
			return nil, 0, err
		}
		vh, rest, err := takeHash(rest)
		if err != nil {
			return nil, 0, err
		}
		count, rest, err := takeCount(rest)
		if err != nil {
			return nil, 0, err
		}
		return NodeKVRefValueHashCount{Key: key, Value: value, ValueHash: vh, Count: count}, start - len(rest), nil
	case kindKVDigestCount:
		key, rest, err := takeKey(data)
		if err != nil {
			return nil, 0, err
		}
		vh, rest, err := takeHash(rest)
		if err != nil {
			return nil, 0, err
		}
		count, rest, err := takeCount(rest)
		if err != nil {
			return nil, 0, err
		}
		return NodeKVDigestCount{Key: key, ValueHash: vh, Count: count}, start - len(rest), nil
	default:
		return nil, 0, ErrUnknownTag
	}
}

// DecodeStream decodes every op in data in order.
func DecodeStream(data []byte) ([]Op, error) {
	var ops []Op
	for len(data) > 0 {
		op, n, err := Decode(data)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		data = data[n:]
	}
	return ops, nil
}
