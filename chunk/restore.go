package chunk

import (
	"errors"

	"github.com/dashpay/grovedb-go/khash"
	"github.com/dashpay/grovedb-go/proof"
)

var ErrExitCountMismatch = errors.New("chunk: trunk chunk's exit count doesn't match supplied ids")

// Restorer reassembles a subtree from a producer's chunk stream: the
// trunk chunk pins every exit to
// the hash the trunk's own verified structure implies, and each leaf
// chunk is then verified against that pinned hash rather than the
// overall root directly — so a single root hash, known up front,
// transitively anchors every chunk applied afterwards.
type Restorer struct {
	hasher khash.Hasher
	root   khash.Hash

	trunkApplied bool
	exitHash     map[string]khash.Hash
	pending      map[string]bool
	entries      []proof.MatchedEntry
}

// NewRestorer starts a restore session expecting the final reconstructed
// root hash to equal root.
func NewRestorer(hasher khash.Hasher, root khash.Hash) *Restorer {
	return &Restorer{
		hasher:   hasher,
		root:     root,
		exitHash: make(map[string]khash.Hash),
		pending:  make(map[string]bool),
	}
}

// ApplyTrunk verifies ops (the trunk chunk) against the expected root and
// pins exitIDs, in the order the producer's pre-order walk discovered
// them, to each Push(Hash) placeholder's disclosed hash. exitIDs must be
// supplied in the same order the chunk transfer protocol delivered them
// (the trunk ops alone carry no id information).
func (r *Restorer) ApplyTrunk(ops []proof.Op, exitIDs []ChunkID) error {
	entries, err := proof.Verify(ops, r.hasher, r.root)
	if err != nil {
		return err
	}

	var hashes []khash.Hash
	for _, op := range ops {
		push, ok := op.(proof.Push)
		if !ok {
			continue
		}
		if h, ok := push.Node.(proof.NodeHash); ok {
			hashes = append(hashes, h.Hash)
		}
	}
	if len(hashes) != len(exitIDs) {
		return ErrExitCountMismatch
	}

	for i, id := range exitIDs {
		key := string(id.Bytes())
		r.exitHash[key] = hashes[i]
		r.pending[key] = true
	}
	r.trunkApplied = true
	r.entries = append(r.entries, entries...)
	return nil
}

// ApplyLeaf verifies ops (one leaf chunk) against the hash the trunk
// pinned for id.
func (r *Restorer) ApplyLeaf(id ChunkID, ops []proof.Op) error {
	key := string(id.Bytes())
	expected, ok := r.exitHash[key]
	if !ok {
		return ErrChunkNotFound
	}
	entries, err := proof.Verify(ops, r.hasher, expected)
	if err != nil {
		return err
	}
	r.entries = append(r.entries, entries...)
	delete(r.pending, key)
	return nil
}

// Done reports whether the trunk has been applied and every exit it
// declared has since been filled by a matching leaf chunk.
func (r *Restorer) Done() bool {
	return r.trunkApplied && len(r.pending) == 0
}

// Entries returns every (key, element) pair disclosed across the trunk
// and every leaf chunk applied so far.
func (r *Restorer) Entries() []proof.MatchedEntry {
	return r.entries
}
