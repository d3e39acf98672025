package reference

import (
	"github.com/dashpay/grovedb-go/cost"
	"github.com/dashpay/grovedb-go/element"
	"github.com/dashpay/grovedb-go/khash"
)

// InsertForward implements the four-step forward reference insert
// algorithm for writing a BidirectionalReference at
// (path,key) pointing through forward. It resolves the target, allocates
// a back-slot on it, persists the BackwardReference bookkeeping, and
// finally writes the BidirectionalReference element itself.
func InsertForward(store ElementStore, hasher khash.Hasher, path [][]byte, key []byte, forward element.RefPath, cascadeOnUpdate bool, maxHop *uint8, defaultMaxHop uint8) (cost.OperationCost, error) {
	var total cost.OperationCost

	// Step 1: resolve the target, following at most one reference hop.
	targetPath, targetKey, target, c, err := resolveTargetOnce(store, path, key, forward)
	total.AddInPlace(c)
	if err != nil {
		return total, err
	}
	if !element.IsBackReferenceTarget(target) {
		return total, ErrInvalidTarget
	}

	// Step 2: if the closest target is itself a bidirectional reference,
	// its own back-slot bitmap must have at most one bit set, and the
	// value hash this insert records comes from the terminal item.
	var terminal element.Element
	if bidi, ok := target.(element.BidirectionalReference); ok {
		bitmapRaw, err := store.GetMeta(targetPath, metaBaseKey(targetKey))
		if err != nil {
			return total, err
		}
		if popCount(decodeBitmap(bitmapRaw)) > 1 {
			return total, ErrBidirectionalReferenceRule
		}
		_, _, term, c2, err := Resolve(store, targetPath, targetKey, bidi, hasher, defaultMaxHop)
		total.AddInPlace(c2)
		if err != nil {
			return total, err
		}
		terminal = term
	} else {
		terminal = target
	}

	vh, err := valueHash(hasher, terminal)
	if err != nil {
		return total, err
	}

	// Step 3: compute the inverted path, allocate the lowest free slot,
	// and persist the BackwardReference at the target.
	inverted := element.RefPath{Kind: element.RefAbsolute, Absolute: append(append([][]byte{}, path...), key)}

	bitmapRaw, err := store.GetMeta(targetPath, metaBaseKey(targetKey))
	if err != nil {
		return total, err
	}
	bitmap := decodeBitmap(bitmapRaw)
	slot, ok := lowestFreeSlot(bitmap)
	if !ok {
		return total, ErrBidirectionalReferenceRule
	}

	backRef, err := encodeBackwardReference(BackwardReference{InvertedPath: inverted, CascadeOnUpdate: cascadeOnUpdate})
	if err != nil {
		return total, err
	}
	if err := store.PutMeta(targetPath, metaSlotKey(targetKey, slot), backRef); err != nil {
		return total, err
	}
	if err := store.PutMeta(targetPath, metaBaseKey(targetKey), encodeBitmap(bitmap|(1<<slot))); err != nil {
		return total, err
	}

	// Step 4: write the forward reference element itself.
	elem := element.BidirectionalReference{
		Forward:         forward,
		BackSlotIndex:   slot,
		CascadeOnUpdate: cascadeOnUpdate,
		MaxHop:          maxHop,
		ValueHash:       vh[:],
	}
	c3, err := store.Put(path, key, elem)
	total.AddInPlace(c3)
	return total, err
}
