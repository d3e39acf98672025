package reference

import (
	"github.com/dashpay/grovedb-go/cost"
	"github.com/dashpay/grovedb-go/element"
	"github.com/dashpay/grovedb-go/khash"
)

// backEdge is one hop in a back-reference graph walk: the referencing
// element's own (path,key) plus the cascade flag its BackwardReference
// was written with.
type backEdge struct {
	path            [][]byte
	key             []byte
	cascadeOnUpdate bool
}

func collectBackEdges(store ElementStore, path [][]byte, key []byte) ([]backEdge, cost.OperationCost, error) {
	var total cost.OperationCost

	bitmapRaw, err := store.GetMeta(path, metaBaseKey(key))
	if err != nil {
		return nil, total, err
	}
	bitmap := decodeBitmap(bitmapRaw)

	var edges []backEdge
	for i := uint8(0); i < MaxBackSlots; i++ {
		if bitmap&(1<<i) == 0 {
			continue
		}
		raw, err := store.GetMeta(path, metaSlotKey(key, i))
		if err != nil {
			return nil, total, err
		}
		if raw == nil {
			continue
		}
		br, err := decodeBackwardReference(raw)
		if err != nil {
			return nil, total, err
		}
		refPath, refKey, err := br.InvertedPath.Resolve(path, key)
		if err != nil {
			return nil, total, err
		}
		edges = append(edges, backEdge{path: refPath, key: refKey, cascadeOnUpdate: br.CascadeOnUpdate})
	}
	return edges, total, nil
}

// propagateValueHash walks (path,key)'s back-reference graph breadth-first,
// rewriting every referencing BidirectionalReference's recorded ValueHash
// to newHash — propagation never fails on a cascade_on_update=false edge,
// only cascade does.
func propagateValueHash(store ElementStore, path [][]byte, key []byte, newHash khash.Hash) (cost.OperationCost, error) {
	var total cost.OperationCost
	queue := []backEdge{{path: path, key: key}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		edges, c, err := collectBackEdges(store, cur.path, cur.key)
		total.AddInPlace(c)
		if err != nil {
			return total, err
		}
		for _, e := range edges {
			refElem, c, err := store.Get(e.path, e.key)
			total.AddInPlace(c)
			if err != nil {
				return total, err
			}
			bref, ok := refElem.(element.BidirectionalReference)
			if !ok {
				return total, ErrBidirectionalReferenceRule
			}
			bref.ValueHash = append([]byte(nil), newHash[:]...)
			c2, err := store.Put(e.path, e.key, bref)
			total.AddInPlace(c2)
			if err != nil {
				return total, err
			}
			queue = append(queue, e)
		}
	}
	return total, nil
}

// cascadeDelete walks (path,key)'s back-reference graph breadth-first,
// first validating that every edge allows a cascade (cascade_on_update
// true), then — only if the whole transitive closure is clear — deleting
// every referencing element and its own back-slot bookkeeping; any such
// element lacking cascade_on_update aborts the whole operation.
func cascadeDelete(store ElementStore, path [][]byte, key []byte) (cost.OperationCost, error) {
	var total cost.OperationCost

	closure, c, err := transitiveBackEdges(store, path, key)
	total.AddInPlace(c)
	if err != nil {
		return total, err
	}
	for _, e := range closure {
		if !e.cascadeOnUpdate {
			return total, ErrBidirectionalReferenceRule
		}
	}

	for _, e := range closure {
		refElem, c, err := store.Get(e.path, e.key)
		total.AddInPlace(c)
		if err != nil {
			return total, err
		}
		if bidi, ok := refElem.(element.BidirectionalReference); ok {
			c2, err := unregisterSlot(store, e.path, e.key, bidi)
			total.AddInPlace(c2)
			if err != nil {
				return total, err
			}
		}
		c3, err := store.Delete(e.path, e.key)
		total.AddInPlace(c3)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// transitiveBackEdges gathers every element transitively back-referencing
// (path,key), breadth-first, each edge appearing once.
func transitiveBackEdges(store ElementStore, path [][]byte, key []byte) ([]backEdge, cost.OperationCost, error) {
	var total cost.OperationCost
	var closure []backEdge
	queue := []backEdge{{path: path, key: key}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		edges, c, err := collectBackEdges(store, cur.path, cur.key)
		total.AddInPlace(c)
		if err != nil {
			return nil, total, err
		}
		closure = append(closure, edges...)
		queue = append(queue, edges...)
	}
	return closure, total, nil
}

// unregisterSlot clears the back-slot bit a BidirectionalReference
// currently at (path,key) holds at its own target, and removes the
// BackwardReference record filed there.
func unregisterSlot(store ElementStore, path [][]byte, key []byte, bidi element.BidirectionalReference) (cost.OperationCost, error) {
	var total cost.OperationCost

	targetPath, targetKey, _, c, err := resolveTargetOnce(store, path, key, bidi.Forward)
	total.AddInPlace(c)
	if err != nil {
		return total, err
	}

	bitmapRaw, err := store.GetMeta(targetPath, metaBaseKey(targetKey))
	if err != nil {
		return total, err
	}
	bitmap := decodeBitmap(bitmapRaw)
	bitmap &^= 1 << bidi.BackSlotIndex

	if err := store.DeleteMeta(targetPath, metaSlotKey(targetKey, bidi.BackSlotIndex)); err != nil {
		return total, err
	}
	if err := store.PutMeta(targetPath, metaBaseKey(targetKey), encodeBitmap(bitmap)); err != nil {
		return total, err
	}
	return total, nil
}

// isRefCompatibleItemKind reports whether e is one of the two element
// kinds a BidirectionalReference may legally target directly.
func isRefCompatibleItemKind(e element.Element) bool {
	switch e.Kind() {
	case element.KindItemWithBackwardsReferences, element.KindSumItemWithBackwardsReferences:
		return true
	default:
		return false
	}
}

// Overwrite performs the case-table dispatch for writing newElem at
// (path,key) in place of oldElem, propagating or cascading through
// (path,key)'s back-reference graph as the old/new
// kind pairing requires, before finally writing newElem itself. Callers
// use Delete (below) instead when there's no replacement value.
func Overwrite(store ElementStore, hasher khash.Hasher, path [][]byte, key []byte, oldElem, newElem element.Element) (cost.OperationCost, error) {
	var total cost.OperationCost

	if isRefCompatibleItemKind(oldElem) {
		if _, ok := newElem.(element.BidirectionalReference); ok {
			return total, ErrBidirectionalReferenceRule
		}
		if newElem.Kind() == oldElem.Kind() {
			vh, err := valueHash(hasher, newElem)
			if err != nil {
				return total, err
			}
			c, err := propagateValueHash(store, path, key, vh)
			total.AddInPlace(c)
			if err != nil {
				return total, err
			}
		} else {
			c, err := cascadeDelete(store, path, key)
			total.AddInPlace(c)
			if err != nil {
				return total, err
			}
		}
	} else if oldBidi, ok := oldElem.(element.BidirectionalReference); ok {
		if isRefCompatibleItemKind(newElem) {
			vh, err := valueHash(hasher, newElem)
			if err != nil {
				return total, err
			}
			c, err := propagateValueHash(store, path, key, vh)
			total.AddInPlace(c)
			if err != nil {
				return total, err
			}
		} else {
			c, err := cascadeDelete(store, path, key)
			total.AddInPlace(c)
			if err != nil {
				return total, err
			}
		}
		c, err := unregisterSlot(store, path, key, oldBidi)
		total.AddInPlace(c)
		if err != nil {
			return total, err
		}
	}

	c, err := store.Put(path, key, newElem)
	total.AddInPlace(c)
	return total, err
}

// Delete removes (path,key) holding oldElem, applying the same
// cascade/unregister bookkeeping Overwrite would for a non-ref-compatible
// replacement, then deleting (path,key) itself.
func Delete(store ElementStore, path [][]byte, key []byte, oldElem element.Element) (cost.OperationCost, error) {
	var total cost.OperationCost

	if isRefCompatibleItemKind(oldElem) {
		c, err := cascadeDelete(store, path, key)
		total.AddInPlace(c)
		if err != nil {
			return total, err
		}
	} else if oldBidi, ok := oldElem.(element.BidirectionalReference); ok {
		c, err := cascadeDelete(store, path, key)
		total.AddInPlace(c)
		if err != nil {
			return total, err
		}
		c2, err := unregisterSlot(store, path, key, oldBidi)
		total.AddInPlace(c2)
		if err != nil {
			return total, err
		}
	}

	c, err := store.Delete(path, key)
	total.AddInPlace(c)
	return total, err
}
