package merk

import "github.com/dashpay/grovedb-go/khash"

// EncodePath joins a subtree path into an unambiguous byte string via a
// length-prefixed scheme, used both as the MerkCache
// key and as the storage key prefix scoping one subtree's nodes away from
// every other subtree's.
func EncodePath(path [][]byte) []byte {
	var buf []byte
	for _, p := range path {
		buf = khash.PutUint64(buf, uint64(len(p)))
		buf = append(buf, p...)
	}
	return buf
}
