// Package khash provides the 32-byte cryptographic hash primitive GroveDB's
// authenticated tree is parametric over. The node/merk/proof packages depend only
// on the Hash and Hasher types here, never on a concrete hash function, so
// swapping the default is a one-line change.
package khash

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Size is the fixed digest length every hash in GroveDB produces.
const Size = 32

// Hash is a 32-byte digest: a kv_hash, a node_hash, or the global root hash.
type Hash [Size]byte

// IsZero reports whether h is the all-zero hash, used as the sentinel for
// "no child" / "empty subtree".
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Bytes returns h as a freshly allocated slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, h[:])
	return b
}

// BytesToHash truncates or zero-extends b into a Hash.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > Size {
		b = b[len(b)-Size:]
	}
	copy(h[Size-len(b):], b)
	return h
}

// Hasher is the pluggable 32-byte hash function GroveDB's tree is built
// against. Keccak256 (below) is the default; Blake2b256 is the alternative
// golang.org/x/crypto also makes available, wired in for callers who want a
// faster non-Keccak option without forking node/proof code.
type Hasher interface {
	// Sum computes the hash of the concatenation of all chunks.
	Sum(chunks ...[]byte) Hash
}

// keccak256Hasher hashes with Keccak-256 (the legacy, pre-NIST-finalization
// variant, matching Ethereum's convention).
type keccak256Hasher struct{}

// Keccak256 is the default Hasher.
var Keccak256 Hasher = keccak256Hasher{}

func (keccak256Hasher) Sum(chunks ...[]byte) Hash {
	d := sha3.NewLegacyKeccak256()
	for _, c := range chunks {
		d.Write(c)
	}
	var h Hash
	d.Sum(h[:0])
	return h
}

// blake2b256Hasher hashes with BLAKE2b-256.
type blake2b256Hasher struct{}

// Blake2b256 is an alternative Hasher, useful where BLAKE2b's speed
// advantage over Keccak matters more than Ethereum-ecosystem familiarity.
var Blake2b256 Hasher = blake2b256Hasher{}

func (blake2b256Hasher) Sum(chunks ...[]byte) Hash {
	d, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only errors on a bad key length, and we pass nil.
		panic("khash: blake2b.New256: " + err.Error())
	}
	for _, c := range chunks {
		d.Write(c)
	}
	var h Hash
	d.Sum(h[:0])
	return h
}

// PutUint64 appends the big-endian encoding of v to dst, a small helper the
// node/proof packages use when hashing length-prefixed fields (e.g.
// kv_hash = H(len(k) || k || len(v) || v)).
func PutUint64(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}
