package reference

import (
	"errors"
	"testing"

	"github.com/dashpay/grovedb-go/cost"
	"github.com/dashpay/grovedb-go/element"
	"github.com/dashpay/grovedb-go/khash"
)

var errTestNotFound = errors.New("reference_test: key not found")

// mapStore is a minimal in-memory ElementStore for exercising the
// resolution/insert/overwrite algorithms without a real merk.Cache.
type mapStore struct {
	elems map[string]element.Element
	meta  map[string][]byte
}

func newMapStore() *mapStore {
	return &mapStore{elems: make(map[string]element.Element), meta: make(map[string][]byte)}
}

func addrKey(path [][]byte, key []byte) string {
	s := ""
	for _, p := range path {
		s += string(p) + "/"
	}
	return s + "\x00" + string(key)
}

func metaAddrKey(path [][]byte, metaKey []byte) string {
	s := ""
	for _, p := range path {
		s += string(p) + "/"
	}
	return s + "\x01" + string(metaKey)
}

func (m *mapStore) Get(path [][]byte, key []byte) (element.Element, cost.OperationCost, error) {
	e, ok := m.elems[addrKey(path, key)]
	if !ok {
		return nil, cost.Zero, errTestNotFound
	}
	return e, cost.Zero, nil
}

func (m *mapStore) Put(path [][]byte, key []byte, e element.Element) (cost.OperationCost, error) {
	m.elems[addrKey(path, key)] = e
	return cost.Zero, nil
}

func (m *mapStore) Delete(path [][]byte, key []byte) (cost.OperationCost, error) {
	delete(m.elems, addrKey(path, key))
	return cost.Zero, nil
}

func (m *mapStore) GetMeta(path [][]byte, metaKey []byte) ([]byte, error) {
	return m.meta[metaAddrKey(path, metaKey)], nil
}

func (m *mapStore) PutMeta(path [][]byte, metaKey []byte, value []byte) error {
	m.meta[metaAddrKey(path, metaKey)] = value
	return nil
}

func (m *mapStore) DeleteMeta(path [][]byte, metaKey []byte) error {
	delete(m.meta, metaAddrKey(path, metaKey))
	return nil
}

func pathOf(segments ...string) [][]byte {
	out := make([][]byte, len(segments))
	for i, s := range segments {
		out[i] = []byte(s)
	}
	return out
}

func TestInsertForwardRegistersBackSlot(t *testing.T) {
	store := newMapStore()
	root := pathOf("T")
	store.elems[addrKey(root, []byte("target"))] = element.ItemWithBackwardsReferences{Data: []byte("v1")}

	forward := element.RefPath{Kind: element.RefAbsolute, Absolute: [][]byte{[]byte("T"), []byte("target")}}
	if _, err := InsertForward(store, khash.Keccak256, root, []byte("ref"), forward, true, nil, 8); err != nil {
		t.Fatalf("insert forward: %v", err)
	}

	got, _, err := store.Get(root, []byte("ref"))
	if err != nil {
		t.Fatalf("get ref: %v", err)
	}
	bidi, ok := got.(element.BidirectionalReference)
	if !ok {
		t.Fatalf("got %T, want BidirectionalReference", got)
	}
	if bidi.BackSlotIndex != 0 {
		t.Fatalf("back slot = %d, want 0", bidi.BackSlotIndex)
	}

	bitmapRaw, _ := store.GetMeta(root, metaBaseKey([]byte("target")))
	if decodeBitmap(bitmapRaw) != 1 {
		t.Fatalf("target bitmap = %d, want 1", decodeBitmap(bitmapRaw))
	}
}

func TestInsertForwardRejectsNonRefCompatibleTarget(t *testing.T) {
	store := newMapStore()
	root := pathOf("T")
	store.elems[addrKey(root, []byte("target"))] = element.Item{Data: []byte("v1")}

	forward := element.RefPath{Kind: element.RefAbsolute, Absolute: [][]byte{[]byte("T"), []byte("target")}}
	if _, err := InsertForward(store, khash.Keccak256, root, []byte("ref"), forward, true, nil, 8); err != ErrInvalidTarget {
		t.Fatalf("err = %v, want ErrInvalidTarget", err)
	}
}

func TestOverwritePropagatesValueHash(t *testing.T) {
	store := newMapStore()
	root := pathOf("T")
	store.elems[addrKey(root, []byte("target"))] = element.ItemWithBackwardsReferences{Data: []byte("v1")}

	forward := element.RefPath{Kind: element.RefAbsolute, Absolute: [][]byte{[]byte("T"), []byte("target")}}
	if _, err := InsertForward(store, khash.Keccak256, root, []byte("ref"), forward, true, nil, 8); err != nil {
		t.Fatalf("insert forward: %v", err)
	}

	oldTarget := store.elems[addrKey(root, []byte("target"))]
	newTarget := element.ItemWithBackwardsReferences{Data: []byte("v2")}
	if _, err := Overwrite(store, khash.Keccak256, root, []byte("target"), oldTarget, newTarget); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, _, _ := store.Get(root, []byte("ref"))
	bidi := got.(element.BidirectionalReference)
	wantHash, _ := valueHash(khash.Keccak256, newTarget)
	if string(bidi.ValueHash) != string(wantHash[:]) {
		t.Fatalf("ref's value hash wasn't propagated to the new target value")
	}
}

func TestOverwriteCascadesWhenNewKindIsIncompatible(t *testing.T) {
	store := newMapStore()
	root := pathOf("T")
	store.elems[addrKey(root, []byte("target"))] = element.ItemWithBackwardsReferences{Data: []byte("v1")}

	forward := element.RefPath{Kind: element.RefAbsolute, Absolute: [][]byte{[]byte("T"), []byte("target")}}
	if _, err := InsertForward(store, khash.Keccak256, root, []byte("ref"), forward, true, nil, 8); err != nil {
		t.Fatalf("insert forward: %v", err)
	}

	oldTarget := store.elems[addrKey(root, []byte("target"))]
	if _, err := Overwrite(store, khash.Keccak256, root, []byte("target"), oldTarget, element.Item{Data: []byte("plain")}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	if _, ok := store.elems[addrKey(root, []byte("ref"))]; ok {
		t.Fatalf("back-referencing element should have been cascade-deleted")
	}
}

func TestOverwriteRejectsCascadeWithoutFlag(t *testing.T) {
	store := newMapStore()
	root := pathOf("T")
	store.elems[addrKey(root, []byte("target"))] = element.ItemWithBackwardsReferences{Data: []byte("v1")}

	forward := element.RefPath{Kind: element.RefAbsolute, Absolute: [][]byte{[]byte("T"), []byte("target")}}
	if _, err := InsertForward(store, khash.Keccak256, root, []byte("ref"), forward, false, nil, 8); err != nil {
		t.Fatalf("insert forward: %v", err)
	}

	oldTarget := store.elems[addrKey(root, []byte("target"))]
	_, err := Overwrite(store, khash.Keccak256, root, []byte("target"), oldTarget, element.Item{Data: []byte("plain")})
	if err != ErrBidirectionalReferenceRule {
		t.Fatalf("err = %v, want ErrBidirectionalReferenceRule", err)
	}
	if _, ok := store.elems[addrKey(root, []byte("ref"))]; !ok {
		t.Fatalf("rejected cascade must leave the back-referencing element untouched")
	}
}
