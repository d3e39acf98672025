package query

import (
	"testing"

	"github.com/dashpay/grovedb-go/cost"
	"github.com/dashpay/grovedb-go/element"
	"github.com/dashpay/grovedb-go/khash"
	"github.com/dashpay/grovedb-go/node"
	"github.com/dashpay/grovedb-go/proof"
)

type fakeEngine struct {
	elems map[string]element.Element
	trees map[string]*node.Tree
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{elems: make(map[string]element.Element), trees: make(map[string]*node.Tree)}
}

func pathKeyStr(path [][]byte, key []byte) string {
	s := ""
	for _, p := range path {
		s += string(p) + "/"
	}
	return s + "\x00" + string(key)
}

func pathStr(path [][]byte) string {
	s := ""
	for _, p := range path {
		s += string(p) + "/"
	}
	return s
}

func (f *fakeEngine) Get(path [][]byte, key []byte) (element.Element, cost.OperationCost, error) {
	e, ok := f.elems[pathKeyStr(path, key)]
	if !ok {
		return nil, cost.Zero, errNotFound
	}
	return e, cost.Zero, nil
}

func (f *fakeEngine) Put(path [][]byte, key []byte, e element.Element) (cost.OperationCost, error) {
	f.elems[pathKeyStr(path, key)] = e
	return cost.Zero, nil
}

func (f *fakeEngine) Delete(path [][]byte, key []byte) (cost.OperationCost, error) {
	delete(f.elems, pathKeyStr(path, key))
	return cost.Zero, nil
}

func (f *fakeEngine) GetMeta(path [][]byte, metaKey []byte) ([]byte, error) { return nil, nil }
func (f *fakeEngine) PutMeta(path [][]byte, metaKey []byte, value []byte) error { return nil }
func (f *fakeEngine) DeleteMeta(path [][]byte, metaKey []byte) error            { return nil }

func (f *fakeEngine) OpenSubtree(path [][]byte, rootElem element.Element) (*node.Tree, cost.OperationCost, error) {
	tr, ok := f.trees[pathStr(path)]
	if !ok {
		return nil, cost.Zero, errNotFound
	}
	return tr, cost.Zero, nil
}

var errNotFound = fakeNotFoundError{}

type fakeNotFoundError struct{}

func (fakeNotFoundError) Error() string { return "query_test: not found" }

func newLeafTree(t *testing.T, entries map[string]string) *node.Tree {
	t.Helper()
	tr := &node.Tree{Hasher: khash.Keccak256, Kind: element.FeatureBasic}
	for k, v := range entries {
		if _, err := tr.Insert([]byte(k), element.Item{Data: []byte(v)}); err != nil {
			t.Fatalf("insert %q: %v", k, err)
		}
	}
	return tr
}

func TestExecuteDescendsIntoSubtree(t *testing.T) {
	engine := newFakeEngine()

	child := newLeafTree(t, map[string]string{"x": "X", "y": "Y"})
	engine.trees[pathStr([][]byte{[]byte("b")})] = child

	root := &node.Tree{Hasher: khash.Keccak256, Kind: element.FeatureBasic}
	if _, err := root.Insert([]byte("a"), element.Item{Data: []byte("A")}); err != nil {
		t.Fatal(err)
	}
	if _, err := root.Insert([]byte("b"), element.Tree{RootKey: []byte("childroot")}); err != nil {
		t.Fatal(err)
	}
	if _, err := root.Insert([]byte("c"), element.Item{Data: []byte("C")}); err != nil {
		t.Fatal(err)
	}

	q := &Query{
		Items:       []proof.QueryItem{proof.RangeFull()},
		LeftToRight: true,
		Default:     SubqueryBranch{Subquery: &Query{Items: []proof.QueryItem{proof.RangeFull()}, LeftToRight: true}},
	}
	pq := PathQuery{Query: q}

	results, _, err := Execute(engine, root, pq, Options{Hasher: khash.Keccak256, DefaultMaxHop: 8})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	want := []struct {
		key  string
		data string
	}{
		{"a", "A"}, {"x", "X"}, {"y", "Y"}, {"c", "C"},
	}
	if len(results) != len(want) {
		t.Fatalf("got %d results, want %d: %+v", len(results), len(want), results)
	}
	for i, w := range want {
		if string(results[i].Key) != w.key {
			t.Fatalf("result %d key = %q, want %q", i, results[i].Key, w.key)
		}
		item, ok := results[i].Element.(element.Item)
		if !ok || string(item.Data) != w.data {
			t.Fatalf("result %d element = %+v, want Item(%q)", i, results[i].Element, w.data)
		}
	}
}

func TestExecuteRespectsLimit(t *testing.T) {
	engine := newFakeEngine()
	root := newLeafTree(t, map[string]string{"a": "A", "b": "B", "c": "C"})

	q := &Query{Items: []proof.QueryItem{proof.RangeFull()}, LeftToRight: true}
	limit := uint64(2)
	pq := PathQuery{Query: q, Limit: &limit}

	results, _, err := Execute(engine, root, pq, Options{Hasher: khash.Keccak256, DefaultMaxHop: 8})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
}

func TestMergeRejectsNonNilLimits(t *testing.T) {
	limit := uint64(1)
	_, err := Merge([]PathQuery{{Query: &Query{}, Limit: &limit}})
	if err != ErrQueryMergeRequiresBareLimits {
		t.Fatalf("err = %v, want ErrQueryMergeRequiresBareLimits", err)
	}
}

func TestMergeFoldsSuffixesIntoConditionalBranches(t *testing.T) {
	q1 := PathQuery{Base: [][]byte{[]byte("T"), []byte("1")}, Query: &Query{Items: []proof.QueryItem{proof.RangeFull()}}}
	q2 := PathQuery{Base: [][]byte{[]byte("T"), []byte("2")}, Query: &Query{Items: []proof.QueryItem{proof.RangeFull()}}}

	merged, err := Merge([]PathQuery{q1, q2})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(merged.Base) != 1 || string(merged.Base[0]) != "T" {
		t.Fatalf("merged base = %v, want [T]", merged.Base)
	}
	if len(merged.Query.Conditional) != 2 {
		t.Fatalf("got %d conditional branches, want 2", len(merged.Query.Conditional))
	}
}
