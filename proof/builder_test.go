package proof

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/dashpay/grovedb-go/element"
	"github.com/dashpay/grovedb-go/khash"
	"github.com/dashpay/grovedb-go/node"
)

func newTestTree(t *testing.T, keys []string) *node.Tree {
	t.Helper()
	tr := &node.Tree{Hasher: khash.Keccak256, Kind: element.FeatureBasic}
	for _, k := range keys {
		if _, err := tr.Insert([]byte(k), element.Item{Data: []byte("val-" + k)}); err != nil {
			t.Fatalf("insert %q: %v", k, err)
		}
	}
	return tr
}

func allKeys() []string {
	keys := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		keys = append(keys, fmt.Sprintf("k%02d", i))
	}
	return keys
}

func TestBuildProofSingleKeyVerifies(t *testing.T) {
	tr := newTestTree(t, allKeys())
	root := tr.RootHash()

	items := []QueryItem{Key([]byte("k07"))}
	ops, _, err := BuildProof(tr, items, true, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	entries, err := Verify(ops, khash.Keccak256, root)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if !bytes.Equal(entries[0].Key, []byte("k07")) {
		t.Fatalf("entry key = %q, want k07", entries[0].Key)
	}
	item, ok := entries[0].Element.(element.Item)
	if !ok || string(item.Data) != "val-k07" {
		t.Fatalf("entry element = %v, want val-k07", entries[0].Element)
	}

	if err := CheckQueryConsistency(entries, items, true); err != nil {
		t.Fatalf("query consistency: %v", err)
	}
}

func TestBuildProofRangeVerifies(t *testing.T) {
	tr := newTestTree(t, allKeys())
	root := tr.RootHash()

	items := []QueryItem{RangeInclusive([]byte("k05"), []byte("k09"))}
	ops, _, err := BuildProof(tr, items, true, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	entries, err := Verify(ops, khash.Keccak256, root)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("got %d entries, want 5", len(entries))
	}
	for i, e := range entries {
		want := fmt.Sprintf("k%02d", 5+i)
		if !bytes.Equal(e.Key, []byte(want)) {
			t.Fatalf("entries[%d].Key = %q, want %q", i, e.Key, want)
		}
	}
	if err := CheckQueryConsistency(entries, items, true); err != nil {
		t.Fatalf("query consistency: %v", err)
	}
}

func TestBuildProofRespectsLimit(t *testing.T) {
	tr := newTestTree(t, allKeys())
	root := tr.RootHash()

	limit := uint64(2)
	items := []QueryItem{RangeFrom([]byte("k10"))}
	ops, _, err := BuildProof(tr, items, true, &Limits{Limit: &limit})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	entries, err := Verify(ops, khash.Keccak256, root)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (limit)", len(entries))
	}
	if !bytes.Equal(entries[0].Key, []byte("k10")) || !bytes.Equal(entries[1].Key, []byte("k11")) {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestVerifyRejectsTamperedRoot(t *testing.T) {
	tr := newTestTree(t, allKeys())
	root := tr.RootHash()
	root[0] ^= 0xff

	ops, _, err := BuildProof(tr, []QueryItem{Key([]byte("k07"))}, true, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := Verify(ops, khash.Keccak256, root); err != ErrRootMismatch {
		t.Fatalf("err = %v, want ErrRootMismatch", err)
	}
}

func TestVerifyRejectsTamperedOp(t *testing.T) {
	tr := newTestTree(t, allKeys())
	root := tr.RootHash()

	ops, _, err := BuildProof(tr, []QueryItem{Key([]byte("k07"))}, true, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	encoded, err := Encode(ops)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	encoded[len(encoded)-1] ^= 0xff

	tampered, err := DecodeStream(encoded)
	if err != nil {
		// A flipped length/tag byte is also an acceptable rejection.
		return
	}
	if _, err := Verify(tampered, khash.Keccak256, root); err == nil {
		t.Fatalf("expected verification failure on tampered proof")
	}
}
