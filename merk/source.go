package merk

import (
	"github.com/dashpay/grovedb-go/cost"
	"github.com/dashpay/grovedb-go/node"
	"github.com/dashpay/grovedb-go/storage"
)

// storageSource implements node.Source by reading committed node records
// from a Store, scoped to one subtree's prefix (built from its path via
// EncodePath). It is the seam node.Tree uses to materialise Reference links.
type storageSource struct {
	store  storage.Store
	prefix []byte
}

func newStorageSource(store storage.Store, path [][]byte) *storageSource {
	return &storageSource{store: store, prefix: EncodePath(path)}
}

func (s *storageSource) storageKey(key []byte) []byte {
	out := make([]byte, 0, len(s.prefix)+len(key))
	out = append(out, s.prefix...)
	out = append(out, key...)
	return out
}

func (s *storageSource) Get(key []byte) (*node.Node, cost.OperationCost, error) {
	var c cost.OperationCost
	c.SeekCount++
	data, err := s.store.Get(storage.NamespaceData, s.storageKey(key))
	if err != nil {
		return nil, c, err
	}
	c.StorageLoadedBytes += uint64(len(data))
	n, err := decodeNode(key, data)
	if err != nil {
		return nil, c, node.ErrCorruptedData
	}
	return n, c, nil
}
