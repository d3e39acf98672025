package grovedb

import (
	"testing"

	"github.com/dashpay/grovedb-go/element"
	"github.com/dashpay/grovedb-go/proof"
	"github.com/dashpay/grovedb-go/query"
	"github.com/dashpay/grovedb-go/storage"
)

func newTestDB(t *testing.T) *GroveDb {
	t.Helper()
	return Open(storage.NewMemStore(), nil, DefaultOptions())
}

func TestInsertGetAcrossCommit(t *testing.T) {
	db := newTestDB(t)
	tx := db.Begin()

	if _, err := tx.Insert(nil, []byte("alpha"), element.Item{Data: []byte("1")}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	tx2 := db.Begin()
	got, _, err := tx2.Get(nil, []byte("alpha"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	item, ok := got.(element.Item)
	if !ok || string(item.Data) != "1" {
		t.Fatalf("got %+v, want Item(1)", got)
	}
}

func TestNestedSubtreeInsertAndQuery(t *testing.T) {
	db := newTestDB(t)
	tx := db.Begin()

	if _, err := tx.Insert(nil, []byte("child"), element.Tree{}); err != nil {
		t.Fatalf("insert tree: %v", err)
	}
	childPath := [][]byte{[]byte("child")}
	if _, err := tx.Insert(childPath, []byte("x"), element.Item{Data: []byte("X")}); err != nil {
		t.Fatalf("insert x: %v", err)
	}
	if _, err := tx.Insert(childPath, []byte("y"), element.Item{Data: []byte("Y")}); err != nil {
		t.Fatalf("insert y: %v", err)
	}

	q := &query.Query{Items: []proof.QueryItem{proof.RangeFull()}, LeftToRight: true}
	results, _, err := tx.Query(childPath, q, nil, nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2: %+v", len(results), results)
	}
	if string(results[0].Key) != "x" || string(results[1].Key) != "y" {
		t.Fatalf("unexpected order: %+v", results)
	}

	if _, err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestBidirectionalReferenceInsertAndCascade(t *testing.T) {
	db := newTestDB(t)
	tx := db.Begin()

	if _, err := tx.Insert(nil, []byte("target"), element.ItemWithBackwardsReferences{Data: []byte("v1")}); err != nil {
		t.Fatalf("insert target: %v", err)
	}

	forward := element.RefPath{Kind: element.RefAbsolute, Absolute: [][]byte{[]byte("target")}}
	if _, err := tx.InsertBidirectionalReference(nil, []byte("ref"), forward, true, nil); err != nil {
		t.Fatalf("insert bidi ref: %v", err)
	}

	refElem, _, err := tx.Get(nil, []byte("ref"))
	if err != nil {
		t.Fatalf("get ref: %v", err)
	}
	bidi, ok := refElem.(element.BidirectionalReference)
	if !ok {
		t.Fatalf("ref element = %+v, want BidirectionalReference", refElem)
	}
	if bidi.BackSlotIndex != 0 {
		t.Fatalf("back slot = %d, want 0", bidi.BackSlotIndex)
	}

	if _, err := tx.DeleteKey(nil, []byte("target")); err != nil {
		t.Fatalf("delete target: %v", err)
	}
	if _, _, err := tx.Get(nil, []byte("ref")); err == nil {
		t.Fatal("expected ref to be cascade-deleted along with its target")
	}

	if _, err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestChunkProducerOverCommittedSubtree(t *testing.T) {
	db := newTestDB(t)
	tx := db.Begin()

	for i := 0; i < 20; i++ {
		k := []byte{byte('a' + i%26), byte(i)}
		if _, err := tx.Insert(nil, k, element.Item{Data: k}); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	if _, err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tx2 := db.Begin()
	p, _, err := tx2.NewChunkProducer(nil)
	if err != nil {
		t.Fatalf("NewChunkProducer: %v", err)
	}
	if p.Len() == 0 {
		t.Fatal("expected at least one chunk")
	}
}
