package chunk

import (
	"fmt"
	"testing"

	"github.com/dashpay/grovedb-go/element"
	"github.com/dashpay/grovedb-go/khash"
	"github.com/dashpay/grovedb-go/node"
	"github.com/dashpay/grovedb-go/proof"
)

func buildFullTree(t *testing.T, n int) *node.Tree {
	t.Helper()
	tr := &node.Tree{Hasher: khash.Keccak256, Kind: element.FeatureBasic}
	for i := 0; i < n; i++ {
		k := []byte(fmt.Sprintf("k%03d", i))
		if _, err := tr.Insert(k, element.Item{Data: k}); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	return tr
}

func TestProducerChunkCountAndRestore(t *testing.T) {
	tr := buildFullTree(t, 31) // enough to get a height > 1, multiple exits
	root := tr.RootHash()

	p, _, err := NewProducer(tr)
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}
	if p.Len() < 2 {
		t.Fatalf("producer has %d chunks, want at least a trunk plus one leaf", p.Len())
	}

	restorer := NewRestorer(khash.Keccak256, root)

	trunkOps, _, err := p.ChunkWithIndex(0)
	if err != nil {
		t.Fatalf("trunk chunk: %v", err)
	}
	exitIDs := make([]ChunkID, p.Len()-1)
	for i := 1; i < p.Len(); i++ {
		id, err := p.ChunkIDAt(i)
		if err != nil {
			t.Fatalf("chunk id %d: %v", i, err)
		}
		exitIDs[i-1] = id
	}
	if err := restorer.ApplyTrunk(trunkOps, exitIDs); err != nil {
		t.Fatalf("apply trunk: %v", err)
	}

	for i := 1; i < p.Len(); i++ {
		ops, _, err := p.ChunkWithIndex(i)
		if err != nil {
			t.Fatalf("leaf chunk %d: %v", i, err)
		}
		id, _ := p.ChunkIDAt(i)
		if err := restorer.ApplyLeaf(id, ops); err != nil {
			t.Fatalf("apply leaf %d: %v", i, err)
		}
	}

	if !restorer.Done() {
		t.Fatalf("restorer not done after applying every chunk")
	}
	if len(restorer.Entries()) != 31 {
		t.Fatalf("restorer collected %d entries, want 31", len(restorer.Entries()))
	}
}

func TestMultiChunkWithLimitTooSmall(t *testing.T) {
	tr := buildFullTree(t, 31)
	p, _, err := NewProducer(tr)
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}
	if _, _, err := p.MultiChunkWithLimit(ChunkID{}, 1); err != ErrLimitTooSmall {
		t.Fatalf("err = %v, want ErrLimitTooSmall", err)
	}
}

func TestMultiChunkWithLimitPaces(t *testing.T) {
	tr := buildFullTree(t, 31)
	p, _, err := NewProducer(tr)
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}

	trunkOps, _, err := p.ChunkWithIndex(0)
	if err != nil {
		t.Fatalf("trunk chunk: %v", err)
	}
	trunkSize, err := proof.Encode(trunkOps)
	if err != nil {
		t.Fatalf("encode trunk: %v", err)
	}

	pairs, next, err := p.MultiChunkWithLimit(ChunkID{}, len(trunkSize))
	if err != nil {
		t.Fatalf("multi chunk: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("got %d pairs, want 1 (exactly the trunk)", len(pairs))
	}
	if next == nil {
		t.Fatalf("expected a next id, producer has more chunks")
	}

	var total int
	id := ChunkID{}
	for {
		pairs, next, err := p.MultiChunkWithLimit(id, 1<<20)
		if err != nil {
			t.Fatalf("multi chunk resume: %v", err)
		}
		total += len(pairs)
		if next == nil {
			break
		}
		id = *next
	}
	if total != p.Len() {
		t.Fatalf("resumed transfer covered %d chunks, want %d", total, p.Len())
	}
}
