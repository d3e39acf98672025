package reference

import (
	"github.com/dashpay/grovedb-go/cost"
	"github.com/dashpay/grovedb-go/element"
	"github.com/dashpay/grovedb-go/khash"
)

// maxAbsoluteHops is a hard backstop against a degenerate reference cycle
// where every hop's own MaxHop is large enough that following each one
// individually never trips — independent of any MaxHop the data carries.
const maxAbsoluteHops = 64

// Resolve follows e's reference chain (Reference and BidirectionalReference
// hops alike) from (path,key) until it reaches a non-reference element,
// substituting at each hop the same way the path-query engine does when it
// walks through a reference. defaultMaxHop bounds any hop whose
// own MaxHop is nil.
func Resolve(store ElementStore, path [][]byte, key []byte, e element.Element, hasher khash.Hasher, defaultMaxHop uint8) ([][]byte, []byte, element.Element, cost.OperationCost, error) {
	var total cost.OperationCost
	curPath, curKey, cur := path, key, e

	for hops := 0; ; hops++ {
		if hops >= maxAbsoluteHops {
			return nil, nil, nil, total, ErrCycleExceeded
		}

		var refPath element.RefPath
		var maxHop *uint8
		switch v := cur.(type) {
		case element.Reference:
			refPath, maxHop = v.Path, v.MaxHop
		case element.BidirectionalReference:
			refPath, maxHop = v.Forward, v.MaxHop
		default:
			return curPath, curKey, cur, total, nil
		}

		limit := defaultMaxHop
		if maxHop != nil {
			limit = *maxHop
		}
		if uint8(hops) >= limit {
			return nil, nil, nil, total, ErrCycleExceeded
		}

		nextPath, nextKey, err := refPath.Resolve(curPath, curKey)
		if err != nil {
			return nil, nil, nil, total, err
		}
		next, c, err := store.Get(nextPath, nextKey)
		total.AddInPlace(c)
		if err != nil {
			return nil, nil, nil, total, err
		}
		curPath, curKey, cur = nextPath, nextKey, next
	}
}

// valueHash hashes e's encoded form the same way node.KVHash folds in a
// value — H(len(v)‖v) — so a reference's recorded ValueHash changes
// exactly when the same node's kv_hash would.
func valueHash(hasher khash.Hasher, e element.Element) (khash.Hash, error) {
	encoded, err := element.Encode(e)
	if err != nil {
		return khash.Hash{}, err
	}
	vlen := khash.PutUint64(nil, uint64(len(encoded)))
	return hasher.Sum(vlen, encoded), nil
}
