package storage

import "github.com/dashpay/grovedb-go/cost"

// CostBatch wraps a Batch and a Store, recording a cost.StorageCost delta
// for every queued operation by comparing against the value (if any)
// already visible in the underlying Store. This makes the storage-cost
// invariant — sum(added) - sum(removed) equals the observed KV-size delta —
// hold structurally rather than by caller discipline.
type CostBatch struct {
	store Store
	batch Batch
	cost  cost.OperationCost
}

// NewCostBatch opens a cost-tracking batch against store.
func NewCostBatch(store Store) *CostBatch {
	return &CostBatch{store: store, batch: store.NewBatch()}
}

// Put queues a write and folds its storage-cost effect into the running
// total: a brand-new key contributes to Added, an overwrite to Replaced
// (using the size of the new value — the old value's bytes are freed but
// GroveDB's cost model charges replacement by the newly-stored size, per
// the commit-cost accounting).
func (b *CostBatch) Put(ns Namespace, key, value []byte) {
	b.cost.SeekCount++
	existing, err := b.store.Get(ns, key)
	if err == nil {
		b.cost.Storage.Replaced += uint64(len(value))
		b.cost.StorageLoadedBytes += uint64(len(existing))
	} else {
		b.cost.Storage.Added += uint64(len(value))
	}
	b.batch.Put(ns, key, value)
}

// Delete queues a removal and folds its freed-bytes effect into
// Storage.Removed.Basic. Sectioned removal accounting (for flags-based
// costed-removal regions) is layered on by callers via AddSectioned.
func (b *CostBatch) Delete(ns Namespace, key []byte) {
	b.cost.SeekCount++
	existing, err := b.store.Get(ns, key)
	if err == nil {
		b.cost.Storage.Removed.Basic += uint64(len(existing))
		b.cost.StorageLoadedBytes += uint64(len(existing))
	}
	b.batch.Delete(ns, key)
}

// AddSectioned folds an additional sectioned-removal charge (e.g. from a
// flags-addressed cost region) into the running cost without touching the
// underlying batch.
func (b *CostBatch) AddSectioned(key cost.SectionKey, bytes uint64) {
	if b.cost.Storage.Removed.Sectioned == nil {
		b.cost.Storage.Removed.Sectioned = make(map[cost.SectionKey]uint64)
	}
	b.cost.Storage.Removed.Sectioned[key] += bytes
}

// Write commits the buffered operations and returns the accumulated cost.
func (b *CostBatch) Write() (cost.OperationCost, error) {
	if err := b.batch.Write(); err != nil {
		return cost.Zero, err
	}
	return b.cost, nil
}

// Reset clears both the batch and the accumulated cost.
func (b *CostBatch) Reset() {
	b.batch.Reset()
	b.cost = cost.Zero
}

// Len returns the number of buffered operations.
func (b *CostBatch) Len() int { return b.batch.Len() }

// Cost returns the cost accumulated so far without committing.
func (b *CostBatch) Cost() cost.OperationCost { return b.cost }
