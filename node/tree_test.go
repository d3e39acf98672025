package node

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/dashpay/grovedb-go/element"
	"github.com/dashpay/grovedb-go/khash"
)

func newTree() *Tree {
	return &Tree{Hasher: khash.Keccak256, Kind: element.FeatureBasic}
}

func TestTreeInsertGet(t *testing.T) {
	tr := newTree()
	items := map[string]string{"a": "ayya", "b": "ayyb", "c": "ayyc"}
	for k, v := range items {
		if _, err := tr.Insert([]byte(k), element.Item{Data: []byte(v)}); err != nil {
			t.Fatalf("insert %q: %v", k, err)
		}
	}
	for k, v := range items {
		got, _, err := tr.Get([]byte(k))
		if err != nil {
			t.Fatalf("get %q: %v", k, err)
		}
		item, ok := got.(element.Item)
		if !ok || string(item.Data) != v {
			t.Fatalf("get %q = %v, want %q", k, got, v)
		}
	}
}

func TestTreeGetMissing(t *testing.T) {
	tr := newTree()
	if _, err := tr.Insert([]byte("a"), element.Item{Data: []byte("x")}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := tr.Get([]byte("z")); err != ErrKeyNotFound {
		t.Fatalf("Get(missing) err = %v, want ErrKeyNotFound", err)
	}
}

func TestTreeStaysBalanced(t *testing.T) {
	tr := newTree()
	for i := 0; i < 200; i++ {
		k := []byte(fmt.Sprintf("key-%04d", i))
		if _, err := tr.Insert(k, element.Item{Data: k}); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	h := int(tr.Height())
	// A balanced tree of 200 nodes has height close to log2(200) ~= 7.6;
	// an unbalanced (degenerate) insertion order would give height 200.
	if h > 12 {
		t.Fatalf("height = %d, tree is not staying AVL-balanced", h)
	}
	if tr.Root.Node.Balance() < -1 || tr.Root.Node.Balance() > 1 {
		t.Fatalf("root balance factor = %d, want in [-1,1]", tr.Root.Node.Balance())
	}
}

func TestTreeDeleteTwoChildrenPromotesTallerSide(t *testing.T) {
	tr := newTree()
	for _, k := range []string{"d", "b", "f", "a", "c", "e", "g"} {
		if _, err := tr.Insert([]byte(k), element.Item{Data: []byte(k)}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := tr.Delete([]byte("d")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := tr.Get([]byte("d")); err != ErrKeyNotFound {
		t.Fatalf("d should be gone, err = %v", err)
	}
	// Both subtrees of d have height 2, so the tie goes left and d's
	// in-order predecessor c takes its place.
	if got := string(tr.Root.Node.Key); got != "c" {
		t.Fatalf("root key after delete = %q, want c (promoted from the left)", got)
	}
	for _, k := range []string{"a", "b", "c", "e", "f", "g"} {
		if _, _, err := tr.Get([]byte(k)); err != nil {
			t.Fatalf("get %q after delete: %v", k, err)
		}
	}
}

func TestTreeDeleteMissingReturnsErr(t *testing.T) {
	tr := newTree()
	if _, err := tr.Insert([]byte("a"), element.Item{Data: []byte("x")}); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Delete([]byte("z")); err != ErrKeyNotFound {
		t.Fatalf("delete missing err = %v, want ErrKeyNotFound", err)
	}
}

func TestRootHashDeterministic(t *testing.T) {
	build := func() khash.Hash {
		tr := newTree()
		for _, k := range []string{"a", "b", "c", "d", "e"} {
			if _, err := tr.Insert([]byte(k), element.Item{Data: []byte(k)}); err != nil {
				t.Fatal(err)
			}
		}
		return tr.RootHash()
	}
	h1 := build()
	h2 := build()
	if h1 != h2 {
		t.Fatalf("root hash not deterministic across identical insert sequences: %x != %x", h1, h2)
	}
}

func TestNodeHashChangesOnValueTamper(t *testing.T) {
	tr := newTree()
	for _, k := range []string{"a", "b", "c"} {
		if _, err := tr.Insert([]byte(k), element.Item{Data: []byte(k)}); err != nil {
			t.Fatal(err)
		}
	}
	before := tr.RootHash()
	if _, err := tr.Insert([]byte("b"), element.Item{Data: []byte("tampered")}); err != nil {
		t.Fatal(err)
	}
	after := tr.RootHash()
	if bytes.Equal(before[:], after[:]) {
		t.Fatalf("root hash did not change after tampering a leaf value")
	}
}

func TestSumTreeAggregatesAcrossChildren(t *testing.T) {
	tr := &Tree{Hasher: khash.Keccak256, Kind: element.FeatureSummed}
	values := map[string]int64{"a": 10, "b": -3, "c": 7}
	for k, v := range values {
		if _, err := tr.Insert([]byte(k), element.SumItem{Value: v}); err != nil {
			t.Fatal(err)
		}
	}
	want := int64(0)
	for _, v := range values {
		want += v
	}
	if got := tr.Root.Node.Feature().Sum; got != want {
		t.Fatalf("root sum = %d, want %d", got, want)
	}
}
