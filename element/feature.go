package element

import (
	"encoding/binary"
	"errors"
)

// ErrShortFeatureEncoding is returned by DecodeFeature when the input is
// too short for the tag byte's expected payload.
var ErrShortFeatureEncoding = errors.New("element: short feature encoding")

// FeatureKind is the per-node aggregation flavour a subtree is opened with.
type FeatureKind uint8

const (
	FeatureBasic FeatureKind = iota
	FeatureSummed
	FeatureCountedSum
	FeatureBigSummed
	FeatureCounted
)

// FeatureType carries whatever aggregate a node publishes in addition to
// its plain kv_hash: nothing (Basic), a signed sum (Summed), a count plus a
// sum (CountedSum), a signed 128-bit sum (BigSummed), or a plain count
// (Counted). node_hash incorporates encode(feature_type), so
// tampering the aggregate changes the hash — this is what makes
// ProvableCountTree's count tamper-evident.
type FeatureType struct {
	Kind FeatureKind

	Sum         int64   // FeatureSummed
	Count       uint64  // FeatureCounted, FeatureCountedSum
	CountedSum  int64   // FeatureCountedSum
	BigSum      Int128  // FeatureBigSummed
}

// Encode serializes the feature type for inclusion in node_hash. Basic
// encodes to a single tag byte; the others append their fixed-width payload
// after the tag, so encoding length is a pure function of Kind (needed
// because node_hash = H(kv_hash||left||right||encode(feature_type)) must be
// unambiguous about where the feature bytes end).
func (f FeatureType) Encode() []byte {
	switch f.Kind {
	case FeatureBasic:
		return []byte{byte(FeatureBasic)}
	case FeatureSummed:
		buf := make([]byte, 9)
		buf[0] = byte(FeatureSummed)
		binary.BigEndian.PutUint64(buf[1:], uint64(f.Sum))
		return buf
	case FeatureCountedSum:
		buf := make([]byte, 17)
		buf[0] = byte(FeatureCountedSum)
		binary.BigEndian.PutUint64(buf[1:9], f.Count)
		binary.BigEndian.PutUint64(buf[9:17], uint64(f.CountedSum))
		return buf
	case FeatureBigSummed:
		buf := make([]byte, 17)
		buf[0] = byte(FeatureBigSummed)
		b := f.BigSum.Bytes()
		copy(buf[1:], b[:])
		return buf
	case FeatureCounted:
		buf := make([]byte, 9)
		buf[0] = byte(FeatureCounted)
		binary.BigEndian.PutUint64(buf[1:], f.Count)
		return buf
	default:
		return []byte{byte(FeatureBasic)}
	}
}

// DecodeFeature parses bytes previously produced by Encode, returning the
// number of bytes consumed alongside the decoded FeatureType — used by
// merk's node records, which store a feature encoding inline ahead of
// other fields rather than length-prefixed (Encode's length is a pure
// function of the tag byte, so the caller always knows where it ends).
func DecodeFeature(b []byte) (FeatureType, int, error) {
	if len(b) == 0 {
		return FeatureType{}, 0, ErrShortFeatureEncoding
	}
	kind := FeatureKind(b[0])
	switch kind {
	case FeatureBasic:
		return FeatureType{Kind: FeatureBasic}, 1, nil
	case FeatureSummed:
		if len(b) < 9 {
			return FeatureType{}, 0, ErrShortFeatureEncoding
		}
		return FeatureType{Kind: FeatureSummed, Sum: int64(binary.BigEndian.Uint64(b[1:9]))}, 9, nil
	case FeatureCountedSum:
		if len(b) < 17 {
			return FeatureType{}, 0, ErrShortFeatureEncoding
		}
		return FeatureType{
			Kind:       FeatureCountedSum,
			Count:      binary.BigEndian.Uint64(b[1:9]),
			CountedSum: int64(binary.BigEndian.Uint64(b[9:17])),
		}, 17, nil
	case FeatureBigSummed:
		if len(b) < 17 {
			return FeatureType{}, 0, ErrShortFeatureEncoding
		}
		var raw [16]byte
		copy(raw[:], b[1:17])
		return FeatureType{Kind: FeatureBigSummed, BigSum: Int128FromBytes(raw)}, 17, nil
	case FeatureCounted:
		if len(b) < 9 {
			return FeatureType{}, 0, ErrShortFeatureEncoding
		}
		return FeatureType{Kind: FeatureCounted, Count: binary.BigEndian.Uint64(b[1:9])}, 9, nil
	default:
		return FeatureType{}, 0, ErrShortFeatureEncoding
	}
}

// FeatureKindForTreeElement returns the FeatureKind the nodes of the
// subtree e points at (via its RootKey) are combined under: Tree nodes
// carry no aggregate, SumTree nodes fold a signed sum into node_hash,
// ProvableCountTree nodes fold a count into node_hash (what makes its
// count tamper-evident), and CountTree nodes deliberately don't — its
// Count field is bookkept by the parent element only, out of band, so a
// CountTree subtree's own nodes use FeatureBasic like a plain Tree's.
func FeatureKindForTreeElement(e Element) FeatureKind {
	switch e.(type) {
	case SumTree:
		return FeatureSummed
	case ProvableCountTree:
		return FeatureCounted
	default:
		return FeatureBasic
	}
}

// Combine recomputes this node's feature aggregate from its own elemental
// contribution (selfSum/selfCount, drawn from the Element stored at this
// node — an Item contributes nothing, a SumItem contributes its value, etc)
// plus the two children's published aggregates.
func Combine(kind FeatureKind, selfSum int64, selfCount uint64, selfBig Int128, left, right FeatureType) FeatureType {
	switch kind {
	case FeatureSummed:
		return FeatureType{Kind: FeatureSummed, Sum: selfSum + left.Sum + right.Sum}
	case FeatureCounted:
		return FeatureType{Kind: FeatureCounted, Count: selfCount + left.Count + right.Count}
	case FeatureCountedSum:
		return FeatureType{
			Kind:       FeatureCountedSum,
			Count:      selfCount + left.Count + right.Count,
			CountedSum: selfSum + left.CountedSum + right.CountedSum,
		}
	case FeatureBigSummed:
		sum, _ := selfBig.Add(left.BigSum)
		sum, _ = sum.Add(right.BigSum)
		return FeatureType{Kind: FeatureBigSummed, BigSum: sum}
	default:
		return FeatureType{Kind: FeatureBasic}
	}
}
