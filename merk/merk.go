// Package merk implements the per-subtree handle over an AVL tree and
// its commit pipeline: one Merk binds a root Link, a Source scoped to
// one subtree's storage prefix, a root-key persistence discipline, and a
// dirty flag tracking whether Commit has unflushed work to do.
package merk

import (
	"github.com/dashpay/grovedb-go/cost"
	"github.com/dashpay/grovedb-go/element"
	"github.com/dashpay/grovedb-go/khash"
	"github.com/dashpay/grovedb-go/node"
	"github.com/dashpay/grovedb-go/storage"
)

// RootKeyMode selects how a Merk's root key is discovered and persisted.
type RootKeyMode uint8

const (
	// Standalone subtrees own a self-contained root-key record under the
	// meta namespace, keyed by their own path — there is no parent element
	// pointing at them (the top-level subtree is always Standalone).
	Standalone RootKeyMode = iota
	// Base subtrees are like Standalone but are also the base of a larger
	// structure (reserved for future sum/count root bookkeeping); they
	// persist their own meta-namespace record exactly like Standalone.
	Base
	// Layered subtrees are nested inside a parent AVL tree: their root key
	// lives in the parent Tree/SumTree/CountTree element's RootKey field,
	// not in their own meta-namespace record.
	Layered
)

// Merk is one subtree's handle: its AVL Tree, the path it's rooted at, the
// Store it persists through, its RootKeyMode, and whether it has pending
// (uncommitted) mutations.
type Merk struct {
	Path  [][]byte
	Tree  *node.Tree
	Store storage.Store
	Mode  RootKeyMode

	dirty bool
}

// rootMetaKey is the meta-namespace key a Standalone/Base Merk's root
// pointer is filed under: the reserved literal "r" for the top-level
// subtree, or "r:"+EncodePath(path) for any other
// self-owning subtree.
func rootMetaKey(path [][]byte) []byte {
	if len(path) == 0 {
		return []byte("r")
	}
	out := append([]byte("r:"), EncodePath(path)...)
	return out
}

// Open binds a Standalone or Base Merk at path, loading its root node (if
// any) from the meta-namespace root record. An absent record means an
// empty subtree, not an error.
func Open(store storage.Store, path [][]byte, mode RootKeyMode, kind element.FeatureKind, hasher khash.Hasher) (*Merk, cost.OperationCost, error) {
	var total cost.OperationCost
	src := newStorageSource(store, path)
	tree := &node.Tree{Source: src, Hasher: hasher, Kind: kind}

	total.SeekCount++
	rootKey, err := store.Get(storage.NamespaceMeta, rootMetaKey(path))
	if err != nil && err != storage.ErrNotFound {
		return nil, total, err
	}
	if err == nil && len(rootKey) > 0 {
		n, c, err := src.Get(rootKey)
		total.AddInPlace(c)
		if err != nil {
			return nil, total, err
		}
		tree.Root = node.Link{State: node.LinkLoaded, Node: n}
	}
	return &Merk{Path: path, Tree: tree, Store: store, Mode: mode}, total, nil
}

// OpenLayered binds a Layered Merk nested inside a parent AVL tree: its
// root key is supplied by the caller (the parent's Tree/SumTree/CountTree
// element's RootKey field) rather than read from a meta-namespace record.
// A nil/empty rootKey means an empty subtree.
func OpenLayered(store storage.Store, path [][]byte, rootKey []byte, kind element.FeatureKind, hasher khash.Hasher) (*Merk, cost.OperationCost, error) {
	var total cost.OperationCost
	src := newStorageSource(store, path)
	tree := &node.Tree{Source: src, Hasher: hasher, Kind: kind}

	if len(rootKey) > 0 {
		n, c, err := src.Get(rootKey)
		total.AddInPlace(c)
		if err != nil {
			return nil, total, err
		}
		tree.Root = node.Link{State: node.LinkLoaded, Node: n}
	}
	return &Merk{Path: path, Tree: tree, Store: store, Mode: Layered}, total, nil
}

// Get reads key's Element out of the bound tree.
func (m *Merk) Get(key []byte) (element.Element, cost.OperationCost, error) {
	return m.Tree.Get(key)
}

// Insert adds or overwrites key, marking the Merk dirty on success.
func (m *Merk) Insert(key []byte, value element.Element) (cost.OperationCost, error) {
	c, err := m.Tree.Insert(key, value)
	if err == nil {
		m.dirty = true
	}
	return c, err
}

// Delete removes key, marking the Merk dirty on success.
func (m *Merk) Delete(key []byte) (cost.OperationCost, error) {
	c, err := m.Tree.Delete(key)
	if err == nil {
		m.dirty = true
	}
	return c, err
}

// RootHash returns the subtree's current root node_hash.
func (m *Merk) RootHash() khash.Hash { return m.Tree.RootHash() }

// RootKey returns the storage key of the current root node, or nil for an
// empty subtree. Layered parents read this after a child Commit to fold
// the new root key into their own Tree/SumTree/CountTree element.
func (m *Merk) RootKey() []byte {
	if m.Tree.Root.IsNil() {
		return nil
	}
	return linkKey(m.Tree.Root)
}

// Dirty reports whether Insert/Delete have touched this Merk since its
// last Commit.
func (m *Merk) Dirty() bool { return m.dirty }
