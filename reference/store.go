// Package reference implements bidirectional-reference bookkeeping:
// forward reference resolution, the forward-insert algorithm that wires
// up a target's back-slot bitmap, and the overwrite/delete cascade rules
// for a target whose value changes underneath its references.
package reference

import (
	"errors"

	"github.com/dashpay/grovedb-go/cost"
	"github.com/dashpay/grovedb-go/element"
)

// MaxBackSlots is the number of bits in a target's back-reference
// slot bitmap.
const MaxBackSlots = 32

var (
	// ErrBidirectionalReferenceRule covers every rule violation the case
	// table names: slot overflow, a cascade hitting an edge with
	// cascade_on_update=false, or overwriting a ref-compatible item
	// with a BidirectionalReference.
	ErrBidirectionalReferenceRule = errors.New("reference: bidirectional reference rule violation")
	// ErrInvalidTarget is returned when a forward reference's resolved
	// target isn't ItemWith…References, SumItemWith…References, or
	// another BidirectionalReference.
	ErrInvalidTarget = errors.New("reference: target is not a valid bidirectional-reference target")
	// ErrCycleExceeded is returned when resolving a reference chain walks
	// more hops than its MaxHop (or the resolver's default) allows.
	ErrCycleExceeded = errors.New("reference: max_hop exceeded while resolving")
)

// ElementStore is the narrow slice of the engine the reference package
// needs: element reads/writes addressed by (path,key), plus a small
// per-subtree meta namespace for the back-reference bitmap and slot
// records. grovedb's top-level
// package implements this over a merk.Cache; tests implement it directly.
type ElementStore interface {
	Get(path [][]byte, key []byte) (element.Element, cost.OperationCost, error)
	Put(path [][]byte, key []byte, e element.Element) (cost.OperationCost, error)
	Delete(path [][]byte, key []byte) (cost.OperationCost, error)
	// GetMeta returns (nil, nil) for an absent metaKey rather than an
	// error — every meta record this package reads (bitmaps, slots) is
	// legitimately absent until the first reference targeting that key
	// is inserted.
	GetMeta(path [][]byte, metaKey []byte) ([]byte, error)
	PutMeta(path [][]byte, metaKey []byte, value []byte) error
	DeleteMeta(path [][]byte, metaKey []byte) error
}

// ErrNoFreeSlot names the case where every one of MaxBackSlots bits is
// already set. Nothing in this package returns it: InsertForward reports
// a full bitmap as ErrBidirectionalReferenceRule.
var ErrNoFreeSlot = errors.New("reference: target's back-reference slots are full")
