package merk

import (
	"sort"
	"sync"

	"github.com/dashpay/grovedb-go/cost"
	"github.com/dashpay/grovedb-go/element"
	"github.com/dashpay/grovedb-go/khash"
	"github.com/dashpay/grovedb-go/storage"
)

// Cache is a per-transaction path→*Merk map: a
// transaction opens at most one Merk per subtree path, mutates it in
// place across however many operations touch that subtree, and commits
// every entry it touched in one pass when the transaction finishes.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Merk
	order   map[string][][]byte
	store   storage.Store
	hasher  khash.Hasher
}

// NewCache opens an empty cache bound to store and hasher.
func NewCache(store storage.Store, hasher khash.Hasher) *Cache {
	return &Cache{
		entries: make(map[string]*Merk),
		order:   make(map[string][][]byte),
		store:   store,
		hasher:  hasher,
	}
}

// GetOrOpen returns the cached Merk for path, opening a Standalone/Base one
// on first access (per mode/kind) if none is cached yet.
func (c *Cache) GetOrOpen(path [][]byte, mode RootKeyMode, kind element.FeatureKind) (*Merk, cost.OperationCost, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := string(EncodePath(path))
	if m, ok := c.entries[k]; ok {
		return m, cost.Zero, nil
	}
	m, total, err := Open(c.store, path, mode, kind, c.hasher)
	if err != nil {
		return nil, total, err
	}
	c.entries[k] = m
	c.order[k] = path
	return m, total, nil
}

// GetOrOpenLayered is GetOrOpen's counterpart for Layered subtrees, whose
// root key the caller supplies explicitly (it lives in a parent element,
// not a meta-namespace record).
func (c *Cache) GetOrOpenLayered(path [][]byte, rootKey []byte, kind element.FeatureKind) (*Merk, cost.OperationCost, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := string(EncodePath(path))
	if m, ok := c.entries[k]; ok {
		return m, cost.Zero, nil
	}
	m, total, err := OpenLayered(c.store, path, rootKey, kind, c.hasher)
	if err != nil {
		return nil, total, err
	}
	c.entries[k] = m
	c.order[k] = path
	return m, total, nil
}

// Put installs an already-open Merk into the cache (used when a subtree is
// newly created mid-transaction rather than loaded from storage).
func (c *Cache) Put(m *Merk) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := string(EncodePath(m.Path))
	c.entries[k] = m
	c.order[k] = m.Path
}

// Dirty returns every cached Merk with pending mutations, ordered
// lexicographically by its encoded path.
func (c *Cache) Dirty() []*Merk {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for k, m := range c.entries {
		if m.Dirty() {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([]*Merk, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.entries[k])
	}
	return out
}

// CommitAll commits every dirty Merk in lexicographic path order into
// batch and clears the cache's view of which entries are dirty. Callers
// still own calling batch.Write to flush to the underlying Store.
func (c *Cache) CommitAll(batch *storage.CostBatch) (cost.OperationCost, error) {
	var total cost.OperationCost
	for _, m := range c.Dirty() {
		cc, err := m.Commit(batch)
		total.AddInPlace(cc)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
