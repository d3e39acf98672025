// Package storage implements the external key-value contract GroveDB is
// built on: a namespaced Store/Batch/Iterator/Snapshot contract
// with two concrete backends, plus a cost-recording batch wrapper.
package storage

import "errors"

// ErrNotFound is returned by Get/Snapshot.Get when the key is absent.
var ErrNotFound = errors.New("storage: key not found")

// ErrBatchApplied is returned if Write is called on an already-written batch.
var ErrBatchApplied = errors.New("storage: batch already written")

// Namespace partitions a Store into the four logical regions GroveDB's
// engine addresses independently: committed tree nodes, subtree metadata
// (root keys, back-reference slot bitmaps), auxiliary application data that
// rides alongside the tree but isn't part of it, and the top-level root
// table. PebbleStore maps each to a distinct key prefix; MemStore maps each
// to a distinct map.
type Namespace uint8

const (
	NamespaceData Namespace = iota
	NamespaceMeta
	NamespaceAux
	NamespaceRoot
)

func (n Namespace) prefixByte() byte {
	switch n {
	case NamespaceData:
		return 'd'
	case NamespaceMeta:
		return 'm'
	case NamespaceAux:
		return 'a'
	case NamespaceRoot:
		return 'r'
	default:
		return 'x'
	}
}

// Store is the storage contract every GroveDB transaction is built on top
// of. Implementations must make Put/Delete visible to subsequent
// Get/Has/NewIterator calls on the same Store only after a Batch carrying
// them is Written — direct Put/Delete below are a convenience for
// single-key, auto-committed writes.
type Store interface {
	Get(ns Namespace, key []byte) ([]byte, error)
	Put(ns Namespace, key, value []byte) error
	Delete(ns Namespace, key []byte) error
	Has(ns Namespace, key []byte) (bool, error)
	NewBatch() Batch
	NewIterator(ns Namespace, prefix, start []byte, reverse bool) Iterator
	Snapshot() (Snapshot, error)
	Close() error
}

// Batch buffers puts/deletes, across any mix of namespaces, for atomic
// application via Write.
type Batch interface {
	Put(ns Namespace, key, value []byte)
	Delete(ns Namespace, key []byte)
	Write() error
	Reset()
	Len() int
}

// Iterator walks key-value pairs within a namespace in lexicographic (or,
// if constructed with reverse=true, reverse-lexicographic) key order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
}

// Snapshot is a read-only, point-in-time view of a Store, used by the chunk
// producer so a long-running sync session isn't disturbed by
// concurrent writes.
type Snapshot interface {
	Get(ns Namespace, key []byte) ([]byte, error)
	Has(ns Namespace, key []byte) (bool, error)
	NewIterator(ns Namespace, prefix, start []byte, reverse bool) Iterator
	Release()
}
