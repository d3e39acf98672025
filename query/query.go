// Package query implements the path-query engine: a recursive
// descent through nested subtrees driven by a sorted QueryItem list plus
// optional per-key subqueries, with reference substitution and a single
// limit/offset pair shared across the whole descent.
package query

import (
	"bytes"
	"errors"
	"sort"

	"github.com/dashpay/grovedb-go/proof"
)

// ErrQueryMergeRequiresBareLimits is returned by Merge when any input
// PathQuery carries a non-nil Limit/Offset: limits and offsets must all
// be absent from merge inputs, otherwise the merge is rejected.
var ErrQueryMergeRequiresBareLimits = errors.New("query: merge inputs must have nil Limit and Offset")

// SubqueryBranch names what to do when a matched key's element is a
// subtree: open SubqueryPath's chain of intermediate subtrees
// (each a plain child lookup, no further filtering), then recurse with
// Subquery against the subtree that chain ends at. A nil Subquery means
// "don't descend" — the tree element itself is returned as a result.
type SubqueryBranch struct {
	SubqueryPath [][]byte
	Subquery     *Query
}

// ConditionalBranch pairs a QueryItem with the SubqueryBranch that
// applies when a matched key falls inside it. Query.branchFor checks
// Conditional in order and uses the first match, falling back to
// Default.
type ConditionalBranch struct {
	Item   proof.QueryItem
	Branch SubqueryBranch
}

// Query is one level of a path query: a sorted, non-overlapping
// QueryItem list, a default subquery branch, and an ordered list of
// conditional branches that override the default for specific keys.
type Query struct {
	Items       []proof.QueryItem
	Default     SubqueryBranch
	Conditional []ConditionalBranch
	LeftToRight bool
}

// branchFor returns the SubqueryBranch that applies to key: the first
// Conditional entry whose Item contains key, or Default.
func (q *Query) branchFor(key []byte) SubqueryBranch {
	for _, c := range q.Conditional {
		if c.Item.Contains(key) {
			return c.Branch
		}
	}
	return q.Default
}

// PathQuery is a complete query: where to start (Base), what to match
// there (Query), and an optional result-count Limit/Offset shared across
// the whole recursive descent.
type PathQuery struct {
	Base   [][]byte
	Query  *Query
	Limit  *uint64
	Offset *uint64
}

// Merge computes queries' longest common base-path prefix P, then folds
// each input's suffix beyond P into either same-level QueryItems (when
// the suffix is empty — the whole input applies at P itself) or a
// conditional branch keyed by the suffix's first path component. Every
// input must carry nil Limit and Offset.
func Merge(queries []PathQuery) (PathQuery, error) {
	for _, q := range queries {
		if q.Limit != nil || q.Offset != nil {
			return PathQuery{}, ErrQueryMergeRequiresBareLimits
		}
	}
	if len(queries) == 0 {
		return PathQuery{Query: &Query{}}, nil
	}

	prefix := commonPrefix(queries)
	merged := &Query{LeftToRight: queries[0].Query.LeftToRight}

	for _, q := range queries {
		suffix := q.Base[len(prefix):]
		if len(suffix) == 0 {
			merged.Items = append(merged.Items, q.Query.Items...)
			merged.Conditional = append(merged.Conditional, q.Query.Conditional...)
			if q.Query.Default.Subquery != nil {
				merged.Default = q.Query.Default
			}
			continue
		}
		head := suffix[0]
		branch := SubqueryBranch{Subquery: q.Query}
		if len(suffix) > 1 {
			branch = SubqueryBranch{SubqueryPath: suffix[1:], Subquery: q.Query}
		}
		merged.Items = append(merged.Items, proof.Key(head))
		merged.Conditional = append(merged.Conditional, ConditionalBranch{Item: proof.Key(head), Branch: branch})
	}

	sortQueryItems(merged.Items)
	return PathQuery{Base: prefix, Query: merged}, nil
}

func commonPrefix(queries []PathQuery) [][]byte {
	prefix := queries[0].Base
	for _, q := range queries[1:] {
		prefix = commonPrefixOf(prefix, q.Base)
	}
	return prefix
}

func commonPrefixOf(a, b [][]byte) [][]byte {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && bytes.Equal(a[i], b[i]) {
		i++
	}
	return a[:i]
}

// sortQueryItems orders items by their lower bound so Merge's output
// satisfies BuildProof/Execute's "sorted" precondition. Key items (the
// only shape Merge emits) sort unambiguously by Low.
func sortQueryItems(items []proof.QueryItem) {
	sort.Slice(items, func(i, j int) bool {
		return bytes.Compare(items[i].Low, items[j].Low) < 0
	})
}
