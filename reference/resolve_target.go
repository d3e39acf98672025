package reference

import (
	"github.com/dashpay/grovedb-go/cost"
	"github.com/dashpay/grovedb-go/element"
)

// resolveTargetOnce resolves forward from (path,key), following at most
// one further Reference hop, and returns the resulting (path,key,element)
// regardless of what kind it turns out to be — callers check
// element.IsBackReferenceTarget themselves.
func resolveTargetOnce(store ElementStore, path [][]byte, key []byte, forward element.RefPath) ([][]byte, []byte, element.Element, cost.OperationCost, error) {
	var total cost.OperationCost

	targetPath, targetKey, err := forward.Resolve(path, key)
	if err != nil {
		return nil, nil, nil, total, err
	}
	target, c, err := store.Get(targetPath, targetKey)
	total.AddInPlace(c)
	if err != nil {
		return nil, nil, nil, total, err
	}
	if plain, ok := target.(element.Reference); ok {
		targetPath, targetKey, err = plain.Path.Resolve(targetPath, targetKey)
		if err != nil {
			return nil, nil, nil, total, err
		}
		target, c, err = store.Get(targetPath, targetKey)
		total.AddInPlace(c)
		if err != nil {
			return nil, nil, nil, total, err
		}
	}
	return targetPath, targetKey, target, total, nil
}
