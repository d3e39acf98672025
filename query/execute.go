package query

import (
	"github.com/dashpay/grovedb-go/cost"
	"github.com/dashpay/grovedb-go/element"
	"github.com/dashpay/grovedb-go/khash"
	"github.com/dashpay/grovedb-go/node"
	"github.com/dashpay/grovedb-go/proof"
	"github.com/dashpay/grovedb-go/reference"
)

// Engine is everything Execute needs from the rest of the system: reading
// and (reference resolution's own storage-contract needs aside) opening
// a child subtree given the element that points at it. grovedb's
// top-level package implements this over a merk.Cache.
type Engine interface {
	reference.ElementStore
	// OpenSubtree returns the *node.Tree backing the subtree rootElem
	// points at (its RootKey, under the FeatureKind its own element kind
	// implies), given the path that subtree lives at.
	OpenSubtree(path [][]byte, rootElem element.Element) (*node.Tree, cost.OperationCost, error)
}

// Result is one row a PathQuery produced: the absolute (path,key) it was
// found at, and its element — a reference result carries its resolved
// target's element, not the Reference itself.
type Result struct {
	Path    [][]byte
	Key     []byte
	Element element.Element
}

// Options bundles the knobs Execute needs beyond the PathQuery itself.
type Options struct {
	Hasher khash.Hasher
	// DefaultMaxHop bounds reference resolution when a Reference's own
	// MaxHop is nil.
	DefaultMaxHop uint8
	// ErrorIfIntermediatePathTreeNotPresent controls whether a missing
	// intermediate subtree while walking a SubqueryBranch's SubqueryPath
	// fails the whole query or is silently skipped.
	ErrorIfIntermediatePathTreeNotPresent bool
}

// Execute runs pq against engine, starting from the subtree at pq.Base.
func Execute(engine Engine, tree *node.Tree, pq PathQuery, opts Options) ([]Result, cost.OperationCost, error) {
	limits := &proof.Limits{Limit: pq.Limit, Offset: pq.Offset}
	return executeLevel(engine, pq.Base, tree, pq.Query, limits, opts)
}

func executeLevel(engine Engine, path [][]byte, tree *node.Tree, q *Query, limits *proof.Limits, opts Options) ([]Result, cost.OperationCost, error) {
	var total cost.OperationCost
	var results []Result

	ops, c, err := proof.BuildProof(tree, q.Items, q.LeftToRight, nil)
	total.AddInPlace(c)
	if err != nil {
		return nil, total, err
	}
	entries, err := proof.Verify(ops, opts.Hasher, tree.RootHash())
	if err != nil {
		return nil, total, err
	}

	for _, entry := range entries {
		if limits.Exhausted() {
			break
		}

		branch := q.branchFor(entry.Key)

		switch {
		case element.IsTree(entry.Element) && branch.Subquery != nil:
			childResults, c, err := descendSubtree(engine, path, entry.Key, entry.Element, branch, limits, opts)
			total.AddInPlace(c)
			if err != nil {
				return nil, total, err
			}
			if len(childResults) == 0 {
				limits.Consume()
			}
			results = append(results, childResults...)

		case isReferenceKind(entry.Element):
			_, _, resolved, c, err := reference.Resolve(engine, path, entry.Key, entry.Element, opts.Hasher, opts.DefaultMaxHop)
			total.AddInPlace(c)
			if err != nil {
				return nil, total, err
			}
			if limits.Consume() {
				results = append(results, Result{Path: path, Key: entry.Key, Element: resolved})
			}

		default:
			if limits.Consume() {
				results = append(results, Result{Path: path, Key: entry.Key, Element: entry.Element})
			}
		}
	}

	return results, total, nil
}

// descendSubtree opens the subtree entryElem points at, walks
// branch.SubqueryPath's chain of plain intermediate lookups, and
// recurses branch.Subquery against wherever that chain ends.
func descendSubtree(engine Engine, path [][]byte, key []byte, entryElem element.Element, branch SubqueryBranch, limits *proof.Limits, opts Options) ([]Result, cost.OperationCost, error) {
	var total cost.OperationCost

	childPath := append(append([][]byte{}, path...), key)
	tree, c, err := engine.OpenSubtree(childPath, entryElem)
	total.AddInPlace(c)
	if err != nil {
		if opts.ErrorIfIntermediatePathTreeNotPresent {
			return nil, total, err
		}
		return nil, total, nil
	}

	for _, step := range branch.SubqueryPath {
		stepElem, c, err := engine.Get(childPath, step)
		total.AddInPlace(c)
		if err != nil {
			if opts.ErrorIfIntermediatePathTreeNotPresent {
				return nil, total, err
			}
			return nil, total, nil
		}
		childPath = append(append([][]byte{}, childPath...), step)
		tree, c, err = engine.OpenSubtree(childPath, stepElem)
		total.AddInPlace(c)
		if err != nil {
			if opts.ErrorIfIntermediatePathTreeNotPresent {
				return nil, total, err
			}
			return nil, total, nil
		}
	}

	results, c, err := executeLevel(engine, childPath, tree, branch.Subquery, limits, opts)
	total.AddInPlace(c)
	return results, total, err
}

func isReferenceKind(e element.Element) bool {
	switch e.Kind() {
	case element.KindReference, element.KindBidirectionalReference:
		return true
	default:
		return false
	}
}
