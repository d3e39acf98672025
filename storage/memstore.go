package storage

import (
	"bytes"
	"sort"
	"sync"
)

// MemStore is an in-memory Store, namespace-scoped. Adapted from the
// teacher's MemoryKVStore/WriteBatch/kvIterator trio (core/rawdb's
// key_value_store.go), generalized from a single flat map to one map per
// Namespace.
type MemStore struct {
	mu   sync.RWMutex
	data [4]map[string][]byte
}

// NewMemStore creates an empty in-memory Store.
func NewMemStore() *MemStore {
	m := &MemStore{}
	for i := range m.data {
		m.data[i] = make(map[string][]byte)
	}
	return m
}

func (m *MemStore) Get(ns Namespace, key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.data[ns][string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(val))
	copy(cp, val)
	return cp, nil
}

func (m *MemStore) Put(ns Namespace, key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[ns][string(key)] = cp
	return nil
}

func (m *MemStore) Delete(ns Namespace, key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[ns], string(key))
	return nil
}

func (m *MemStore) Has(ns Namespace, key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[ns][string(key)]
	return ok, nil
}

func (m *MemStore) Close() error { return nil }

func (m *MemStore) NewBatch() Batch {
	return &memBatch{store: m}
}

func (m *MemStore) NewIterator(ns Namespace, prefix, start []byte, reverse bool) Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newMemIterator(m.data[ns], prefix, start, reverse)
}

// Snapshot copies every namespace's map; fine for the data volumes GroveDB's
// in-memory backend is meant for (tests, small embedders).
func (m *MemStore) Snapshot() (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := &memSnapshot{}
	for i := range m.data {
		cp := make(map[string][]byte, len(m.data[i]))
		for k, v := range m.data[i] {
			vc := make([]byte, len(v))
			copy(vc, v)
			cp[k] = vc
		}
		snap.data[i] = cp
	}
	return snap, nil
}

type memSnapshot struct {
	data [4]map[string][]byte
}

func (s *memSnapshot) Get(ns Namespace, key []byte) ([]byte, error) {
	val, ok := s.data[ns][string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(val))
	copy(cp, val)
	return cp, nil
}

func (s *memSnapshot) Has(ns Namespace, key []byte) (bool, error) {
	_, ok := s.data[ns][string(key)]
	return ok, nil
}

func (s *memSnapshot) NewIterator(ns Namespace, prefix, start []byte, reverse bool) Iterator {
	return newMemIterator(s.data[ns], prefix, start, reverse)
}

func (s *memSnapshot) Release() {}

type memBatchOp struct {
	ns     Namespace
	key    []byte
	value  []byte
	delete bool
}

// memBatch buffers operations for atomic application to a MemStore.
type memBatch struct {
	store   *MemStore
	ops     []memBatchOp
	written bool
}

func (b *memBatch) Put(ns Namespace, key, value []byte) {
	kc := append([]byte{}, key...)
	vc := append([]byte{}, value...)
	b.ops = append(b.ops, memBatchOp{ns: ns, key: kc, value: vc})
}

func (b *memBatch) Delete(ns Namespace, key []byte) {
	kc := append([]byte{}, key...)
	b.ops = append(b.ops, memBatchOp{ns: ns, key: kc, delete: true})
}

func (b *memBatch) Write() error {
	if b.written {
		return ErrBatchApplied
	}
	b.written = true

	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	for _, op := range b.ops {
		if op.delete {
			delete(b.store.data[op.ns], string(op.key))
		} else {
			b.store.data[op.ns][string(op.key)] = op.value
		}
	}
	return nil
}

func (b *memBatch) Reset() {
	b.ops = b.ops[:0]
	b.written = false
}

func (b *memBatch) Len() int { return len(b.ops) }

type memKV struct {
	key   []byte
	value []byte
}

// memIterator walks a snapshot of a namespace's keys in ascending or
// descending lexicographic order.
type memIterator struct {
	items []memKV
	pos   int
}

func newMemIterator(data map[string][]byte, prefix, start []byte, reverse bool) *memIterator {
	var keys []string
	for k := range data {
		kb := []byte(k)
		if len(prefix) > 0 && !bytes.HasPrefix(kb, prefix) {
			continue
		}
		if len(start) > 0 {
			if reverse && bytes.Compare(kb, start) > 0 {
				continue
			}
			if !reverse && bytes.Compare(kb, start) < 0 {
				continue
			}
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if reverse {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
	}

	items := make([]memKV, len(keys))
	for i, k := range keys {
		v := data[k]
		vc := make([]byte, len(v))
		copy(vc, v)
		items[i] = memKV{key: []byte(k), value: vc}
	}
	return &memIterator{items: items, pos: -1}
}

func (it *memIterator) Next() bool {
	it.pos++
	return it.pos < len(it.items)
}

func (it *memIterator) Key() []byte {
	if it.pos < 0 || it.pos >= len(it.items) {
		return nil
	}
	return it.items[it.pos].key
}

func (it *memIterator) Value() []byte {
	if it.pos < 0 || it.pos >= len(it.items) {
		return nil
	}
	return it.items[it.pos].value
}

func (it *memIterator) Release() {}
