package proof

import (
	"bytes"
	"testing"

	"github.com/dashpay/grovedb-go/element"
	"github.com/dashpay/grovedb-go/khash"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ops := []Op{
		Push{Node: NodeHash{Hash: khash.Keccak256.Sum([]byte("a"))}},
		Push{Node: NodeKV{Key: []byte("k1"), Value: []byte("v1")}},
		Parent{},
		Push{Node: NodeKVDigest{Key: []byte("k2"), ValueHash: khash.Keccak256.Sum([]byte("v2"))}},
		Child{},
		Push{Node: NodeKVValueHashFeatureType{
			Key:     []byte("k3"),
			Value:   []byte("v3"),
			Feature: element.FeatureType{Kind: element.FeatureCounted, Count: 7},
		}, Inverted: true},
		ParentInverted{},
		Push{Node: NodeKVCount{Key: []byte("k4"), Value: []byte("v4"), Count: 3}},
		ChildInverted{},
	}

	encoded, err := Encode(ops)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := DecodeStream(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != len(ops) {
		t.Fatalf("decoded %d ops, want %d", len(decoded), len(ops))
	}
	for i := range ops {
		reencoded, err := Encode(decoded[i : i+1])
		if err != nil {
			t.Fatalf("re-encode op %d: %v", i, err)
		}
		original, err := Encode(ops[i : i+1])
		if err != nil {
			t.Fatalf("encode original op %d: %v", i, err)
		}
		if !bytes.Equal(reencoded, original) {
			t.Fatalf("op %d round-trip mismatch: got % x, want % x", i, reencoded, original)
		}
	}
}

func TestEncodeLargeValueUsesLargeTag(t *testing.T) {
	big := make([]byte, smallValueLimit+10)
	ops := []Op{Push{Node: NodeKV{Key: []byte("k"), Value: big}}}
	encoded, err := Encode(ops)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if Tag(encoded[0]) != TagKVLarge {
		t.Fatalf("tag = 0x%02x, want TagKVLarge", encoded[0])
	}
	decoded, n, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n != len(encoded) {
		t.Fatalf("consumed %d bytes, want %d", n, len(encoded))
	}
	push, ok := decoded.(Push)
	if !ok {
		t.Fatalf("decoded = %T, want Push", decoded)
	}
	kv, ok := push.Node.(NodeKV)
	if !ok || !bytes.Equal(kv.Value, big) {
		t.Fatalf("decoded value mismatch")
	}
}

func TestDecodeTruncatedOpFails(t *testing.T) {
	encoded, _ := Encode([]Op{Push{Node: NodeHash{Hash: khash.Keccak256.Sum([]byte("x"))}}})
	if _, _, err := Decode(encoded[:len(encoded)-1]); err != ErrShortOp {
		t.Fatalf("err = %v, want ErrShortOp", err)
	}
}

func TestDecodeOversizedLargeValueFails(t *testing.T) {
	var dst []byte
	dst = append(dst, byte(TagKVLarge))
	dst = append(dst, 1, 'k')
	var lenBuf [4]byte
	lenBuf[0] = 0xff
	lenBuf[1] = 0xff
	lenBuf[2] = 0xff
	lenBuf[3] = 0xff
	dst = append(dst, lenBuf[:]...)
	if _, _, err := Decode(dst); err != ErrValueTooLarge {
		t.Fatalf("err = %v, want ErrValueTooLarge", err)
	}
}
