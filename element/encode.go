package element

import (
	"errors"

	"github.com/dashpay/grovedb-go/rlp"
)

// ErrUnknownKind is returned when decoding encounters a tag byte outside
// the known Kind range.
var ErrUnknownKind = errors.New("element: unknown kind tag")

// refPathWire is RefPath's RLP-friendly shape (struct fields must all be
// RLP-encodable; *uint8 MaxHop fields live on the wrapping wire structs
// below, not here).
type refPathWire struct {
	Kind            uint8
	Absolute        [][]byte
	Height          uint8
	Suffix          [][]byte
	SiblingKey      []byte
	CousinParentKey []byte
	CousinKey       []byte
}

func toWire(r RefPath) refPathWire {
	return refPathWire{
		Kind:            uint8(r.Kind),
		Absolute:        r.Absolute,
		Height:          r.Height,
		Suffix:          r.Suffix,
		SiblingKey:      r.SiblingKey,
		CousinParentKey: r.CousinParentKey,
		CousinKey:       r.CousinKey,
	}
}

func fromWire(w refPathWire) RefPath {
	return RefPath{
		Kind:            RefPathKind(w.Kind),
		Absolute:        w.Absolute,
		Height:          w.Height,
		Suffix:          w.Suffix,
		SiblingKey:      w.SiblingKey,
		CousinParentKey: w.CousinParentKey,
		CousinKey:       w.CousinKey,
	}
}

// maxHopOf returns (0, false) for nil, else (*p, true) — used to flatten
// the optional MaxHop into an RLP-encodable (present, value) pair, since
// RLP has no dedicated "option" type.
func maxHopOf(p *uint8) (uint8, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

func maxHopPtr(v uint8, present bool) *uint8 {
	if !present {
		return nil
	}
	h := v
	return &h
}

type itemWire struct {
	Data  []byte
	Flags []byte
}

type referenceWire struct {
	Path      refPathWire
	HasMaxHop bool
	MaxHop    uint8
	ValueHash []byte
	Flags     []byte
}

type treeWire struct {
	RootKey []byte
	Flags   []byte
}

type sumTreeWire struct {
	RootKey []byte
	Sum     int64
	Flags   []byte
}

type sumItemWire struct {
	Value int64
	Flags []byte
}

type countTreeWire struct {
	RootKey []byte
	Count   uint64
	Flags   []byte
}

type bidirectionalReferenceWire struct {
	Forward         refPathWire
	BackSlotIndex   uint8
	CascadeOnUpdate bool
	HasMaxHop       bool
	MaxHop          uint8
	ValueHash       []byte
	Flags           []byte
}

// Encode serializes an Element as a one-byte Kind tag followed by its
// RLP-encoded body. This is the "encode(v)" referenced by node §4.1's
// kv_hash = H(len(k)||k||len(v)||v) formula.
func Encode(e Element) ([]byte, error) {
	var body []byte
	var err error

	switch v := e.(type) {
	case Item:
		body, err = rlp.EncodeToBytes(itemWire{Data: v.Data, Flags: v.Flags})
	case Reference:
		hop, present := maxHopOf(v.MaxHop)
		body, err = rlp.EncodeToBytes(referenceWire{Path: toWire(v.Path), HasMaxHop: present, MaxHop: hop, ValueHash: v.ValueHash, Flags: v.Flags})
	case Tree:
		body, err = rlp.EncodeToBytes(treeWire{RootKey: v.RootKey, Flags: v.Flags})
	case SumTree:
		body, err = rlp.EncodeToBytes(sumTreeWire{RootKey: v.RootKey, Sum: v.Sum, Flags: v.Flags})
	case SumItem:
		body, err = rlp.EncodeToBytes(sumItemWire{Value: v.Value, Flags: v.Flags})
	case CountTree:
		body, err = rlp.EncodeToBytes(countTreeWire{RootKey: v.RootKey, Count: v.Count, Flags: v.Flags})
	case ProvableCountTree:
		body, err = rlp.EncodeToBytes(countTreeWire{RootKey: v.RootKey, Count: v.Count, Flags: v.Flags})
	case ItemWithBackwardsReferences:
		body, err = rlp.EncodeToBytes(itemWire{Data: v.Data, Flags: v.Flags})
	case SumItemWithBackwardsReferences:
		body, err = rlp.EncodeToBytes(sumItemWire{Value: v.Value, Flags: v.Flags})
	case BidirectionalReference:
		hop, present := maxHopOf(v.MaxHop)
		body, err = rlp.EncodeToBytes(bidirectionalReferenceWire{
			Forward: toWire(v.Forward), BackSlotIndex: v.BackSlotIndex,
			CascadeOnUpdate: v.CascadeOnUpdate, HasMaxHop: present, MaxHop: hop,
			ValueHash: v.ValueHash, Flags: v.Flags,
		})
	default:
		return nil, ErrUnknownKind
	}
	if err != nil {
		return nil, err
	}
	return append([]byte{byte(e.Kind())}, body...), nil
}

// Decode parses bytes previously produced by Encode.
func Decode(data []byte) (Element, error) {
	if len(data) == 0 {
		return nil, ErrUnknownKind
	}
	kind := Kind(data[0])
	body := data[1:]

	switch kind {
	case KindItem:
		var w itemWire
		if err := rlp.DecodeBytes(body, &w); err != nil {
			return nil, err
		}
		return Item{Data: w.Data, Flags: w.Flags}, nil

	case KindReference:
		var w referenceWire
		if err := rlp.DecodeBytes(body, &w); err != nil {
			return nil, err
		}
		return Reference{Path: fromWire(w.Path), MaxHop: maxHopPtr(w.MaxHop, w.HasMaxHop), ValueHash: w.ValueHash, Flags: w.Flags}, nil

	case KindTree:
		var w treeWire
		if err := rlp.DecodeBytes(body, &w); err != nil {
			return nil, err
		}
		return Tree{RootKey: w.RootKey, Flags: w.Flags}, nil

	case KindSumTree:
		var w sumTreeWire
		if err := rlp.DecodeBytes(body, &w); err != nil {
			return nil, err
		}
		return SumTree{RootKey: w.RootKey, Sum: w.Sum, Flags: w.Flags}, nil

	case KindSumItem:
		var w sumItemWire
		if err := rlp.DecodeBytes(body, &w); err != nil {
			return nil, err
		}
		return SumItem{Value: w.Value, Flags: w.Flags}, nil

	case KindCountTree:
		var w countTreeWire
		if err := rlp.DecodeBytes(body, &w); err != nil {
			return nil, err
		}
		return CountTree{RootKey: w.RootKey, Count: w.Count, Flags: w.Flags}, nil

	case KindProvableCountTree:
		var w countTreeWire
		if err := rlp.DecodeBytes(body, &w); err != nil {
			return nil, err
		}
		return ProvableCountTree{RootKey: w.RootKey, Count: w.Count, Flags: w.Flags}, nil

	case KindItemWithBackwardsReferences:
		var w itemWire
		if err := rlp.DecodeBytes(body, &w); err != nil {
			return nil, err
		}
		return ItemWithBackwardsReferences{Data: w.Data, Flags: w.Flags}, nil

	case KindSumItemWithBackwardsReferences:
		var w sumItemWire
		if err := rlp.DecodeBytes(body, &w); err != nil {
			return nil, err
		}
		return SumItemWithBackwardsReferences{Value: w.Value, Flags: w.Flags}, nil

	case KindBidirectionalReference:
		var w bidirectionalReferenceWire
		if err := rlp.DecodeBytes(body, &w); err != nil {
			return nil, err
		}
		return BidirectionalReference{
			Forward: fromWire(w.Forward), BackSlotIndex: w.BackSlotIndex,
			CascadeOnUpdate: w.CascadeOnUpdate, MaxHop: maxHopPtr(w.MaxHop, w.HasMaxHop),
			ValueHash: w.ValueHash, Flags: w.Flags,
		}, nil

	default:
		return nil, ErrUnknownKind
	}
}
