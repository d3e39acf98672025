// Package chunk implements the state-sync chunk producer and restorer:
// decomposing a committed subtree into bounded-size chunk proofs
// and reassembling them on the far side.
package chunk

import (
	"errors"

	"github.com/dashpay/grovedb-go/cost"
	"github.com/dashpay/grovedb-go/khash"
	"github.com/dashpay/grovedb-go/node"
	"github.com/dashpay/grovedb-go/proof"
)

var (
	ErrChunkNotFound = errors.New("chunk: unknown chunk id")
	ErrLimitTooSmall = errors.New("chunk: byte_limit too small for the first chunk")
)

// ChunkID identifies one chunk by the left/right traversal path from the
// subtree's root to its boundary node; the trunk chunk's id is the empty
// path. Bits[i] is true for a right step, false for left: a sequence of
// traversal-instruction bits packed into bytes.
type ChunkID struct {
	Bits []bool
}

// Bytes packs Bits MSB-first into bytes, left=0, right=1.
func (id ChunkID) Bytes() []byte {
	n := (len(id.Bits) + 7) / 8
	buf := make([]byte, n)
	for i, right := range id.Bits {
		if right {
			buf[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	return buf
}

// Equal reports whether id and other name the same traversal path.
func (id ChunkID) Equal(other ChunkID) bool {
	if len(id.Bits) != len(other.Bits) {
		return false
	}
	for i := range id.Bits {
		if id.Bits[i] != other.Bits[i] {
			return false
		}
	}
	return true
}

// Producer decomposes a committed subtree into a single trunk chunk
// covering its top ⌈H/2⌉ levels, followed by one leaf chunk (a full
// subtree proof) per trunk exit, in pre-order.
type Producer struct {
	tree  *node.Tree
	ids   []ChunkID
	exits []node.Link
	trunk []proof.Op
}

// NewProducer walks tree's trunk once, up front, caching the trunk ops
// and the ordered exit links chunk_with_index later expands into full
// subtree proofs on demand.
func NewProducer(tree *node.Tree) (*Producer, cost.OperationCost, error) {
	trunkHeight := (tree.Height() + 1) / 2
	trunkOps, exits, exitIDs, c, err := walkTrunk(tree, tree.Root, trunkHeight, nil)
	if err != nil {
		return nil, c, err
	}
	ids := append([]ChunkID{{}}, exitIDs...)
	return &Producer{tree: tree, ids: ids, exits: exits, trunk: trunkOps}, c, nil
}

// Len returns the total chunk count: one trunk chunk plus one per exit.
func (p *Producer) Len() int { return len(p.ids) }

// ChunkIDAt returns the i-th chunk's id in pre-order.
func (p *Producer) ChunkIDAt(i int) (ChunkID, error) {
	if i < 0 || i >= len(p.ids) {
		return ChunkID{}, ErrChunkNotFound
	}
	return p.ids[i], nil
}

// ChunkWithIndex returns the i-th chunk's ops: the cached
// trunk ops for i==0, or a full proof of the (i-1)-th exit's subtree
// otherwise.
func (p *Producer) ChunkWithIndex(i int) ([]proof.Op, cost.OperationCost, error) {
	if i < 0 || i >= len(p.ids) {
		return nil, cost.Zero, ErrChunkNotFound
	}
	if i == 0 {
		return p.trunk, cost.Zero, nil
	}
	return proof.BuildProofFromLink(p.tree, p.exits[i-1], []proof.QueryItem{proof.RangeFull()}, true, nil)
}

func (p *Producer) indexOfID(id ChunkID) (int, bool) {
	for i, cand := range p.ids {
		if cand.Equal(id) {
			return i, true
		}
	}
	return -1, false
}

// ChunkPair is one (ChunkID, ops) pair returned by MultiChunkWithLimit.
type ChunkPair struct {
	ID  ChunkID
	Ops []proof.Op
}

// MultiChunkWithLimit packs consecutive (ChunkID, ops) pairs starting at
// startID until the next chunk's encoded size would push the running
// total past byteLimit, returning the pairs gathered and the id to
// resume from (nil once the producer is exhausted). Fails with
// ErrLimitTooSmall if even the first chunk alone would exceed byteLimit,
// so the caller can grow its buffer instead of getting an empty response
// back.
func (p *Producer) MultiChunkWithLimit(startID ChunkID, byteLimit int) ([]ChunkPair, *ChunkID, error) {
	start, ok := p.indexOfID(startID)
	if !ok {
		return nil, nil, ErrChunkNotFound
	}

	var pairs []ChunkPair
	total := 0
	for i := start; i < p.Len(); i++ {
		ops, _, err := p.ChunkWithIndex(i)
		if err != nil {
			return nil, nil, err
		}
		encoded, err := proof.Encode(ops)
		if err != nil {
			return nil, nil, err
		}
		if total+len(encoded) > byteLimit {
			if i == start {
				return nil, nil, ErrLimitTooSmall
			}
			next := p.ids[i]
			return pairs, &next, nil
		}
		total += len(encoded)
		pairs = append(pairs, ChunkPair{ID: p.ids[i], Ops: ops})
	}
	return pairs, nil, nil
}

// walkTrunk descends tree from link down to trunkHeight levels, pushing
// the full KV of every node it passes through and a bare node_hash for
// each node at depth == trunkHeight (an "exit", left to the matching
// leaf chunk to fill in). It returns the trunk ops for this subtree, the
// exit links in pre-order, and each exit's ChunkID.
func walkTrunk(tree *node.Tree, link node.Link, trunkHeight uint8, path []bool) ([]proof.Op, []node.Link, []ChunkID, cost.OperationCost, error) {
	var total cost.OperationCost

	if link.IsNil() {
		return nil, nil, nil, total, nil
	}

	if uint8(len(path)) == trunkHeight {
		h := linkHash(link, tree.Hasher)
		id := ChunkID{Bits: append([]bool{}, path...)}
		return []proof.Op{proof.Push{Node: proof.NodeHash{Hash: h}}}, []node.Link{link}, []ChunkID{id}, total, nil
	}

	n, c, err := tree.Materialize(link)
	total.AddInPlace(c)
	if err != nil {
		return nil, nil, nil, total, err
	}

	pushOp, err := proof.PushNodeKV(n, false)
	if err != nil {
		return nil, nil, nil, total, err
	}
	ops := []proof.Op{pushOp}
	var exits []node.Link
	var ids []ChunkID

	leftPath := append(append([]bool{}, path...), false)
	leftOps, leftExits, leftIDs, c2, err := walkTrunk(tree, n.Left, trunkHeight, leftPath)
	total.AddInPlace(c2)
	if err != nil {
		return nil, nil, nil, total, err
	}
	if !n.Left.IsNil() {
		ops = append(ops, leftOps...)
		ops = append(ops, proof.Parent{})
	}
	exits = append(exits, leftExits...)
	ids = append(ids, leftIDs...)

	rightPath := append(append([]bool{}, path...), true)
	rightOps, rightExits, rightIDs, c3, err := walkTrunk(tree, n.Right, trunkHeight, rightPath)
	total.AddInPlace(c3)
	if err != nil {
		return nil, nil, nil, total, err
	}
	if !n.Right.IsNil() {
		ops = append(ops, rightOps...)
		ops = append(ops, proof.Child{})
	}
	exits = append(exits, rightExits...)
	ids = append(ids, rightIDs...)

	return ops, exits, ids, total, nil
}

// linkHash returns the node_hash a link publishes without forcing a
// materialisation fetch for links that are already resolved in memory.
func linkHash(l node.Link, hasher khash.Hasher) khash.Hash {
	if l.Node != nil {
		return l.Node.NodeHash(hasher)
	}
	return l.Hash
}
