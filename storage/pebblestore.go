package storage

import (
	"github.com/cockroachdb/pebble"
)

// PebbleStore is a Store backed by cockroachdb/pebble, an embedded ordered
// KV engine. Namespaces are distinguished by a one-byte prefix plus a
// separator (`d:`, `m:`, `a:`, `r:`) rather than separate column families,
// so one pebble instance serves the whole GroveDB.
type PebbleStore struct {
	db *pebble.DB
}

// OpenPebbleStore opens (creating if absent) a pebble database at dir.
func OpenPebbleStore(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

func namespacedKey(ns Namespace, key []byte) []byte {
	out := make([]byte, 0, len(key)+2)
	out = append(out, ns.prefixByte(), ':')
	out = append(out, key...)
	return out
}

func (s *PebbleStore) Get(ns Namespace, key []byte) ([]byte, error) {
	val, closer, err := s.db.Get(namespacedKey(ns, key))
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	cp := make([]byte, len(val))
	copy(cp, val)
	_ = closer.Close()
	return cp, nil
}

func (s *PebbleStore) Put(ns Namespace, key, value []byte) error {
	return s.db.Set(namespacedKey(ns, key), value, pebble.NoSync)
}

func (s *PebbleStore) Delete(ns Namespace, key []byte) error {
	return s.db.Delete(namespacedKey(ns, key), pebble.NoSync)
}

func (s *PebbleStore) Has(ns Namespace, key []byte) (bool, error) {
	_, closer, err := s.db.Get(namespacedKey(ns, key))
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_ = closer.Close()
	return true, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

func (s *PebbleStore) NewBatch() Batch {
	return &pebbleBatch{batch: s.db.NewBatch()}
}

func (s *PebbleStore) NewIterator(ns Namespace, prefix, start []byte, reverse bool) Iterator {
	lower, upper := namespaceBounds(ns, prefix)
	if len(start) > 0 {
		sk := namespacedKey(ns, start)
		if reverse {
			upper = append(append([]byte{}, sk...), 0x00)
		} else {
			lower = sk
		}
	}
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return &errIterator{err: err}
	}
	return newPebbleIterator(it, reverse)
}

func (s *PebbleStore) Snapshot() (Snapshot, error) {
	return &pebbleSnapshot{snap: s.db.NewSnapshot()}, nil
}

// namespaceBounds returns the [lower, upper) key range covering every key
// in ns with the given sub-prefix.
func namespaceBounds(ns Namespace, prefix []byte) ([]byte, []byte) {
	lower := namespacedKey(ns, prefix)
	upper := append([]byte{}, lower...)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return lower, upper[:i+1]
		}
	}
	return lower, nil
}

type pebbleBatch struct {
	batch *pebble.Batch
}

func (b *pebbleBatch) Put(ns Namespace, key, value []byte) {
	_ = b.batch.Set(namespacedKey(ns, key), value, nil)
}

func (b *pebbleBatch) Delete(ns Namespace, key []byte) {
	_ = b.batch.Delete(namespacedKey(ns, key), nil)
}

func (b *pebbleBatch) Write() error {
	return b.batch.Commit(pebble.NoSync)
}

func (b *pebbleBatch) Reset() {
	b.batch.Reset()
}

func (b *pebbleBatch) Len() int {
	return int(b.batch.Count())
}

// pebbleIterator adapts *pebble.Iterator to the Iterator contract, which
// separates "advance" from "read current" rather than pebble's own
// Valid()-after-First/Next style.
type pebbleIterator struct {
	it      *pebble.Iterator
	reverse bool
	started bool
}

func newPebbleIterator(it *pebble.Iterator, reverse bool) *pebbleIterator {
	return &pebbleIterator{it: it, reverse: reverse}
}

func (it *pebbleIterator) Next() bool {
	if !it.started {
		it.started = true
		if it.reverse {
			return it.it.Last()
		}
		return it.it.First()
	}
	if it.reverse {
		return it.it.Prev()
	}
	return it.it.Next()
}

func (it *pebbleIterator) Key() []byte {
	k := it.it.Key()
	if len(k) < 2 {
		return k
	}
	return k[2:] // strip "x:" namespace prefix
}

func (it *pebbleIterator) Value() []byte {
	return it.it.Value()
}

func (it *pebbleIterator) Release() { _ = it.it.Close() }

type pebbleSnapshot struct {
	snap *pebble.Snapshot
}

func (s *pebbleSnapshot) Get(ns Namespace, key []byte) ([]byte, error) {
	val, closer, err := s.snap.Get(namespacedKey(ns, key))
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	cp := make([]byte, len(val))
	copy(cp, val)
	_ = closer.Close()
	return cp, nil
}

func (s *pebbleSnapshot) Has(ns Namespace, key []byte) (bool, error) {
	_, closer, err := s.snap.Get(namespacedKey(ns, key))
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_ = closer.Close()
	return true, nil
}

func (s *pebbleSnapshot) NewIterator(ns Namespace, prefix, start []byte, reverse bool) Iterator {
	lower, upper := namespaceBounds(ns, prefix)
	if len(start) > 0 {
		sk := namespacedKey(ns, start)
		if reverse {
			upper = append(append([]byte{}, sk...), 0x00)
		} else {
			lower = sk
		}
	}
	it, err := s.snap.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return &errIterator{err: err}
	}
	return newPebbleIterator(it, reverse)
}

func (s *pebbleSnapshot) Release() { _ = s.snap.Close() }

// errIterator is an always-empty Iterator carrying a construction error;
// callers that care inspect it via the Err method.
type errIterator struct{ err error }

func (e *errIterator) Next() bool    { return false }
func (e *errIterator) Key() []byte   { return nil }
func (e *errIterator) Value() []byte { return nil }
func (e *errIterator) Release()      {}
func (e *errIterator) Err() error    { return e.err }
