package grovedb

import (
	"bytes"
	"errors"

	"github.com/dashpay/grovedb-go/chunk"
	"github.com/dashpay/grovedb-go/cost"
	"github.com/dashpay/grovedb-go/element"
	"github.com/dashpay/grovedb-go/merk"
	"github.com/dashpay/grovedb-go/node"
	"github.com/dashpay/grovedb-go/proof"
	"github.com/dashpay/grovedb-go/query"
	"github.com/dashpay/grovedb-go/reference"
	"github.com/dashpay/grovedb-go/storage"
)

// ErrNotATree is returned when a path walk needs an intermediate element
// to be a subtree (Tree/SumTree/CountTree/ProvableCountTree) and it isn't.
var ErrNotATree = errors.New("grovedb: path component is not a subtree")

// Transaction is one unit of work against a GroveDb: a merk.Cache (one
// open Merk per subtree path touched) plus a storage.CostBatch collecting
// every queued write, flushed atomically on Commit.
//
// Transaction implements both reference.ElementStore and query.Engine, so
// it is passed directly as the store/engine argument to those packages'
// entry points.
type Transaction struct {
	db    *GroveDb
	cache *merk.Cache
	batch *storage.CostBatch

	metaPuts    map[string][]byte
	metaDeletes map[string]bool
}

func newTransaction(db *GroveDb) *Transaction {
	return &Transaction{
		db:          db,
		cache:       merk.NewCache(db.store, db.hasher),
		batch:       storage.NewCostBatch(db.store),
		metaPuts:    make(map[string][]byte),
		metaDeletes: make(map[string]bool),
	}
}

// openMerk returns the cached Merk bound to path, opening every
// not-yet-cached ancestor in turn: the root as Standalone, every other
// subtree as Layered beneath its parent's Tree-bearing element.
func (tx *Transaction) openMerk(path [][]byte) (*merk.Merk, cost.OperationCost, error) {
	var total cost.OperationCost

	if len(path) == 0 {
		m, c, err := tx.cache.GetOrOpen(nil, tx.db.opts.DefaultRootKeyMode, element.FeatureBasic)
		total.AddInPlace(c)
		return m, total, err
	}

	parentPath := path[:len(path)-1]
	key := path[len(path)-1]

	parent, c, err := tx.openMerk(parentPath)
	total.AddInPlace(c)
	if err != nil {
		return nil, total, err
	}

	parentElem, c, err := parent.Get(key)
	total.AddInPlace(c)
	if err != nil {
		return nil, total, err
	}
	if !element.IsTree(parentElem) {
		return nil, total, ErrNotATree
	}

	rootKey, _ := element.TreeRootKey(parentElem)
	kind := element.FeatureKindForTreeElement(parentElem)
	m, c, err := tx.cache.GetOrOpenLayered(path, rootKey, kind)
	total.AddInPlace(c)
	return m, total, err
}

// ---------------------------------------------------------------------------
// reference.ElementStore / query.Engine
// ---------------------------------------------------------------------------

// Get reads key's Element out of the subtree at path.
func (tx *Transaction) Get(path [][]byte, key []byte) (element.Element, cost.OperationCost, error) {
	m, total, err := tx.openMerk(path)
	if err != nil {
		return nil, total, err
	}
	e, c, err := m.Get(key)
	total.AddInPlace(c)
	return e, total, err
}

// Put writes e at (path,key) directly, with no bidirectional-reference
// bookkeeping. Used internally by reference.InsertForward/Overwrite and by
// Insert below for plain elements.
func (tx *Transaction) Put(path [][]byte, key []byte, e element.Element) (cost.OperationCost, error) {
	m, total, err := tx.openMerk(path)
	if err != nil {
		return total, err
	}
	c, err := m.Insert(key, e)
	total.AddInPlace(c)
	if err != nil {
		return total, err
	}
	c, err = tx.foldRootKey(path, m)
	total.AddInPlace(c)
	return total, err
}

// Delete removes (path,key) directly, with no bidirectional-reference
// bookkeeping.
func (tx *Transaction) Delete(path [][]byte, key []byte) (cost.OperationCost, error) {
	m, total, err := tx.openMerk(path)
	if err != nil {
		return total, err
	}
	c, err := m.Delete(key)
	total.AddInPlace(c)
	if err != nil {
		return total, err
	}
	c, err = tx.foldRootKey(path, m)
	total.AddInPlace(c)
	return total, err
}

// foldRootKey folds m's current root key up into the Tree/SumTree/
// CountTree/ProvableCountTree element its parent holds, recursively, so a
// mutation several levels deep is visible from the top of the path the
// next time anything re-opens an ancestor subtree (merk.Merk's RootKey
// doc: "Layered parents read this after a child Commit to fold the new
// root key into their own element" — done here, eagerly, rather than
// deferred to Commit, since any later read in the same transaction needs
// to see it too).
func (tx *Transaction) foldRootKey(path [][]byte, m *merk.Merk) (cost.OperationCost, error) {
	var total cost.OperationCost
	if len(path) == 0 || m.Mode != merk.Layered {
		return total, nil
	}

	parentPath := path[:len(path)-1]
	key := path[len(path)-1]

	parent, c, err := tx.openMerk(parentPath)
	total.AddInPlace(c)
	if err != nil {
		return total, err
	}
	parentElem, c, err := parent.Get(key)
	total.AddInPlace(c)
	if err != nil {
		return total, err
	}

	updated, changed := withRootKey(parentElem, m.RootKey())
	if !changed {
		return total, nil
	}
	c, err = parent.Insert(key, updated)
	total.AddInPlace(c)
	if err != nil {
		return total, err
	}
	c, err = tx.foldRootKey(parentPath, parent)
	total.AddInPlace(c)
	return total, err
}

// withRootKey returns e with its RootKey field set to rootKey (and
// whether that changed anything), for the tree-bearing Element variants;
// any other Element is returned unchanged with changed=false.
func withRootKey(e element.Element, rootKey []byte) (element.Element, bool) {
	switch t := e.(type) {
	case element.Tree:
		if bytes.Equal(t.RootKey, rootKey) {
			return e, false
		}
		t.RootKey = rootKey
		return t, true
	case element.SumTree:
		if bytes.Equal(t.RootKey, rootKey) {
			return e, false
		}
		t.RootKey = rootKey
		return t, true
	case element.CountTree:
		if bytes.Equal(t.RootKey, rootKey) {
			return e, false
		}
		t.RootKey = rootKey
		return t, true
	case element.ProvableCountTree:
		if bytes.Equal(t.RootKey, rootKey) {
			return e, false
		}
		t.RootKey = rootKey
		return t, true
	default:
		return e, false
	}
}

func metaStorageKey(path [][]byte, metaKey []byte) []byte {
	out := append([]byte("B:"), merk.EncodePath(path)...)
	return append(out, metaKey...)
}

// GetMeta returns (nil, nil) for an absent key: every record the
// reference package reads through this (bitmaps, slot records) is
// legitimately absent until the first reference into that key is made.
// It checks this transaction's own uncommitted meta writes first, so a
// read observes a write made earlier in the same transaction before
// Commit flushes it to the Store.
func (tx *Transaction) GetMeta(path [][]byte, metaKey []byte) ([]byte, error) {
	k := string(metaStorageKey(path, metaKey))
	if tx.metaDeletes[k] {
		return nil, nil
	}
	if v, ok := tx.metaPuts[k]; ok {
		return v, nil
	}
	v, err := tx.db.store.Get(storage.NamespaceMeta, []byte(k))
	if err == storage.ErrNotFound {
		return nil, nil
	}
	return v, err
}

// PutMeta queues value at (path,metaKey) in this transaction's batch and
// makes it immediately visible to subsequent GetMeta calls on the same
// transaction.
func (tx *Transaction) PutMeta(path [][]byte, metaKey []byte, value []byte) error {
	k := metaStorageKey(path, metaKey)
	tx.batch.Put(storage.NamespaceMeta, k, value)
	tx.metaPuts[string(k)] = value
	delete(tx.metaDeletes, string(k))
	return nil
}

// DeleteMeta queues (path,metaKey)'s removal and makes the deletion
// immediately visible to subsequent GetMeta calls on the same
// transaction.
func (tx *Transaction) DeleteMeta(path [][]byte, metaKey []byte) error {
	k := metaStorageKey(path, metaKey)
	tx.batch.Delete(storage.NamespaceMeta, k)
	tx.metaDeletes[string(k)] = true
	delete(tx.metaPuts, string(k))
	return nil
}

// OpenSubtree returns the *node.Tree rootElem (found at path's parent)
// points at, opening it as a Layered child if it isn't already cached
// (query.Engine's contract).
func (tx *Transaction) OpenSubtree(path [][]byte, rootElem element.Element) (*node.Tree, cost.OperationCost, error) {
	rootKey, ok := element.TreeRootKey(rootElem)
	if !ok {
		return nil, cost.Zero, ErrNotATree
	}
	kind := element.FeatureKindForTreeElement(rootElem)
	m, total, err := tx.cache.GetOrOpenLayered(path, rootKey, kind)
	if err != nil {
		return nil, total, err
	}
	return m.Tree, total, nil
}

// ---------------------------------------------------------------------------
// High-level operations
// ---------------------------------------------------------------------------

// Insert writes newElem at (path,key), routing through reference.Overwrite
// when a value already sits there so bidirectional-reference propagation/
// cascade rules apply, or a plain Put for a fresh
// key. Use InsertBidirectionalReference to create a new forward reference
// — Insert rejects a bare BidirectionalReference value since allocating
// its back-slot requires that dedicated algorithm.
func (tx *Transaction) Insert(path [][]byte, key []byte, newElem element.Element) (cost.OperationCost, error) {
	if _, ok := newElem.(element.BidirectionalReference); ok {
		return cost.Zero, newErr("Insert", KindInvalidInput, reference.ErrBidirectionalReferenceRule)
	}

	oldElem, total, err := tx.Get(path, key)
	if err != nil {
		if errors.Is(err, node.ErrKeyNotFound) {
			c, err := tx.Put(path, key, newElem)
			total.AddInPlace(c)
			return total, err
		}
		return total, err
	}

	c, err := reference.Overwrite(tx, tx.db.hasher, path, key, oldElem, newElem)
	total.AddInPlace(c)
	return total, err
}

// InsertBidirectionalReference creates a new forward reference at
// (path,key) pointing through forward, allocating the target's lowest
// free back-slot.
func (tx *Transaction) InsertBidirectionalReference(path [][]byte, key []byte, forward element.RefPath, cascadeOnUpdate bool, maxHop *uint8) (cost.OperationCost, error) {
	return reference.InsertForward(tx, tx.db.hasher, path, key, forward, cascadeOnUpdate, maxHop, tx.db.opts.DefaultMaxHop)
}

// DeleteKey removes (path,key), cascading through any back-references it
// holds before the key itself is removed.
func (tx *Transaction) DeleteKey(path [][]byte, key []byte) (cost.OperationCost, error) {
	oldElem, total, err := tx.Get(path, key)
	if err != nil {
		return total, err
	}
	c, err := reference.Delete(tx, path, key, oldElem)
	total.AddInPlace(c)
	return total, err
}

// ResolveReference follows a reference chain rooted at (path,key,e) to its
// terminal non-reference element.
func (tx *Transaction) ResolveReference(path [][]byte, key []byte, e element.Element) ([][]byte, []byte, element.Element, cost.OperationCost, error) {
	return reference.Resolve(tx, path, key, e, tx.db.hasher, tx.db.opts.DefaultMaxHop)
}

// Query runs q against the subtree at path, labelling results with path
// as their base.
func (tx *Transaction) Query(path [][]byte, q *query.Query, limit, offset *uint64) ([]query.Result, cost.OperationCost, error) {
	tree, total, err := tx.openMerk(path)
	if err != nil {
		return nil, total, err
	}
	pq := query.PathQuery{Base: path, Query: q, Limit: limit, Offset: offset}
	results, c, err := query.Execute(tx, tree.Tree, pq, query.Options{
		Hasher:        tx.db.hasher,
		DefaultMaxHop: tx.db.opts.DefaultMaxHop,
	})
	total.AddInPlace(c)
	return results, total, err
}

// NewChunkProducer opens the subtree at path and returns a chunk.Producer
// over its committed state, for state-sync.
func (tx *Transaction) NewChunkProducer(path [][]byte) (*chunk.Producer, cost.OperationCost, error) {
	m, total, err := tx.openMerk(path)
	if err != nil {
		return nil, total, err
	}
	p, c, err := chunk.NewProducer(m.Tree)
	total.AddInPlace(c)
	return p, total, err
}

// ApplyRestoredEntries writes every (key, element) pair a chunk.Restorer
// verified directly into the subtree at path, bypassing bidirectional-
// reference bookkeeping — a restore reconstructs an already-authenticated
// snapshot verbatim rather than performing fresh inserts.
func (tx *Transaction) ApplyRestoredEntries(path [][]byte, entries []proof.MatchedEntry) (cost.OperationCost, error) {
	var total cost.OperationCost
	for _, e := range entries {
		c, err := tx.Put(path, e.Key, e.Element)
		total.AddInPlace(c)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ---------------------------------------------------------------------------
// Commit / Rollback
// ---------------------------------------------------------------------------

// Commit flushes every dirty Merk (in lexicographic path order) and every
// queued meta write into the underlying Store atomically.
func (tx *Transaction) Commit() (cost.OperationCost, error) {
	total, err := tx.cache.CommitAll(tx.batch)
	if err != nil {
		return total, err
	}
	wc, err := tx.batch.Write()
	total.AddInPlace(wc)
	if err != nil {
		return total, err
	}
	tx.db.metrics.Commits.Inc()
	tx.db.metrics.CommitBytes.Add(float64(total.Storage.Added + total.Storage.Replaced))
	tx.db.metrics.SeekCount.Add(float64(total.SeekCount))
	tx.db.metrics.HashNodeCalls.Add(float64(total.HashNodeCalls))
	tx.db.metrics.StorageAdded.Add(float64(total.Storage.Added))
	tx.db.metrics.StorageReplaced.Add(float64(total.Storage.Replaced))
	tx.db.metrics.StorageRemoved.Add(float64(total.Storage.Removed.Total()))
	return total, nil
}

// Rollback discards every queued write without touching the Store.
func (tx *Transaction) Rollback() {
	tx.cache = merk.NewCache(tx.db.store, tx.db.hasher)
	tx.batch.Reset()
	tx.metaPuts = make(map[string][]byte)
	tx.metaDeletes = make(map[string]bool)
}
