package merk

import (
	"bytes"
	"testing"

	"github.com/dashpay/grovedb-go/element"
	"github.com/dashpay/grovedb-go/khash"
	"github.com/dashpay/grovedb-go/storage"
)

func openTop(t *testing.T, store storage.Store) *Merk {
	t.Helper()
	m, _, err := Open(store, nil, Standalone, element.FeatureBasic, khash.Keccak256)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return m
}

func TestMerkInsertCommitReopen(t *testing.T) {
	store := storage.NewMemStore()
	m := openTop(t, store)

	if _, err := m.Insert([]byte("alpha"), element.Item{Data: []byte("1")}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := m.Insert([]byte("beta"), element.Item{Data: []byte("2")}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	wantHash := m.RootHash()

	batch := storage.NewCostBatch(store)
	if _, err := m.Commit(batch); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := batch.Write(); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if m.Dirty() {
		t.Fatalf("Merk still dirty after Commit")
	}

	reopened := openTop(t, store)
	if reopened.RootHash() != wantHash {
		t.Fatalf("root hash mismatch after reopen: got %x want %x", reopened.RootHash(), wantHash)
	}

	v, _, err := reopened.Get([]byte("alpha"))
	if err != nil {
		t.Fatalf("Get alpha: %v", err)
	}
	item, ok := v.(element.Item)
	if !ok || !bytes.Equal(item.Data, []byte("1")) {
		t.Fatalf("Get alpha returned %#v", v)
	}
}

func TestMerkCommitNoopWhenClean(t *testing.T) {
	store := storage.NewMemStore()
	m := openTop(t, store)
	batch := storage.NewCostBatch(store)
	c, err := m.Commit(batch)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if c.Storage.Added != 0 || c.Storage.Replaced != 0 {
		t.Fatalf("expected zero cost commit on a clean Merk, got %+v", c)
	}
}

func TestMerkDeletePersists(t *testing.T) {
	store := storage.NewMemStore()
	m := openTop(t, store)

	for _, k := range []string{"a", "b", "c", "d", "e"} {
		if _, err := m.Insert([]byte(k), element.Item{Data: []byte(k)}); err != nil {
			t.Fatalf("Insert %s: %v", k, err)
		}
	}
	batch := storage.NewCostBatch(store)
	if _, err := m.Commit(batch); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := batch.Write(); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if _, err := m.Delete([]byte("c")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	batch2 := storage.NewCostBatch(store)
	if _, err := m.Commit(batch2); err != nil {
		t.Fatalf("Commit 2: %v", err)
	}
	if _, err := batch2.Write(); err != nil {
		t.Fatalf("Write 2: %v", err)
	}

	reopened := openTop(t, store)
	if _, _, err := reopened.Get([]byte("c")); err == nil {
		t.Fatalf("expected deleted key to stay deleted across reopen")
	}
	if _, _, err := reopened.Get([]byte("a")); err != nil {
		t.Fatalf("Get a after unrelated delete: %v", err)
	}
}

func TestMerkCacheCommitsLexicographicOrder(t *testing.T) {
	store := storage.NewMemStore()
	cache := NewCache(store, khash.Keccak256)

	pathB, _, err := cache.GetOrOpen([][]byte{[]byte("b")}, Standalone, element.FeatureBasic)
	if err != nil {
		t.Fatalf("GetOrOpen b: %v", err)
	}
	pathA, _, err := cache.GetOrOpen([][]byte{[]byte("a")}, Standalone, element.FeatureBasic)
	if err != nil {
		t.Fatalf("GetOrOpen a: %v", err)
	}

	if _, err := pathB.Insert([]byte("k"), element.Item{Data: []byte("v")}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := pathA.Insert([]byte("k"), element.Item{Data: []byte("v")}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	dirty := cache.Dirty()
	if len(dirty) != 2 {
		t.Fatalf("expected 2 dirty merks, got %d", len(dirty))
	}
	if !bytes.Equal(EncodePath(dirty[0].Path), EncodePath([][]byte{[]byte("a")})) {
		t.Fatalf("expected path \"a\" to sort first")
	}

	batch := storage.NewCostBatch(store)
	if _, err := cache.CommitAll(batch); err != nil {
		t.Fatalf("CommitAll: %v", err)
	}
	if _, err := batch.Write(); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(cache.Dirty()) != 0 {
		t.Fatalf("expected no dirty merks after CommitAll")
	}
}
