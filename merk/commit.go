package merk

import (
	"github.com/dashpay/grovedb-go/cost"
	"github.com/dashpay/grovedb-go/node"
	"github.com/dashpay/grovedb-go/storage"
)

// Commit walks the dirty part of the tree bottom-up, encoding and queuing
// each Modified node into batch as a put of its encoded record under its
// storage key — then, for Standalone/Base subtrees, queues the
// updated root-key record. The returned cost counts one HashNodeCalls per
// node written; storage byte deltas are left to the CostBatch. It is a no-op if nothing was inserted or
// deleted since the last Commit. The caller is responsible for calling
// batch.Write to actually flush the queued operations.
func (m *Merk) Commit(batch *storage.CostBatch) (cost.OperationCost, error) {
	var total cost.OperationCost
	if !m.dirty {
		return total, nil
	}

	newRoot, c, err := m.commitLink(m.Tree.Root, batch)
	total.AddInPlace(c)
	if err != nil {
		return total, err
	}

	if m.Mode != Layered {
		key := rootMetaKey(m.Path)
		if newRoot.IsNil() {
			batch.Delete(storage.NamespaceMeta, key)
		} else {
			batch.Put(storage.NamespaceMeta, key, linkKey(newRoot))
		}
	}

	m.Tree.Root = demote(newRoot)
	m.dirty = false
	return total, nil
}

// commitLink recursively persists a Modified subtree in post-order (both
// children are written before their parent, so the parent's record can
// carry each child's final committed key/hash), leaving already-committed
// links (Reference/Uncommitted/Nil) untouched.
func (m *Merk) commitLink(link node.Link, batch *storage.CostBatch) (node.Link, cost.OperationCost, error) {
	var total cost.OperationCost

	switch link.State {
	case node.LinkNil, node.LinkReference, node.LinkUncommitted, node.LinkLoaded:
		return link, total, nil
	}

	n := link.Node

	newLeft, c, err := m.commitLink(n.Left, batch)
	total.AddInPlace(c)
	if err != nil {
		return link, total, err
	}
	n.Left = newLeft

	newRight, c, err := m.commitLink(n.Right, batch)
	total.AddInPlace(c)
	if err != nil {
		return link, total, err
	}
	n.Right = newRight

	data, err := encodeNode(n, m.Tree.Hasher)
	if err != nil {
		return link, total, err
	}
	storageKey := m.storageSrc().storageKey(n.Key)
	batch.Put(storage.NamespaceData, storageKey, data)
	total.HashNodeCalls++

	// n's own record now carries both children's final refs, so they're
	// persisted from its parent's perspective: demote them from
	// Uncommitted to Reference.
	n.Left = demote(n.Left)
	n.Right = demote(n.Right)

	committedHash := n.NodeHash(m.Tree.Hasher)
	return node.Link{
		State:   node.LinkUncommitted,
		Key:     n.Key,
		Hash:    committedHash,
		Height:  n.Height(),
		Feature: n.Feature(),
		Node:    n,
	}, total, nil
}

func (m *Merk) storageSrc() *storageSource {
	return m.Tree.Source.(*storageSource)
}

// demote moves an Uncommitted link to Reference once its parent record has
// been queued; any other state passes through.
func demote(l node.Link) node.Link {
	if l.State == node.LinkUncommitted {
		l.State = node.LinkReference
	}
	return l
}
