package proof

import "bytes"

// ItemKind names one of the range shapes a QueryItem can take: Key(k),
// Range(a,b), RangeInclusive, RangeFrom, RangeTo[Inclusive],
// RangeAfter[...], RangeFull.
type ItemKind uint8

const (
	ItemKey ItemKind = iota
	ItemRange
	ItemRangeInclusive
	ItemRangeFrom
	ItemRangeTo
	ItemRangeToInclusive
	ItemRangeAfter
	ItemRangeAfterTo
	ItemRangeAfterToInclusive
	ItemRangeFull
)

// QueryItem is one member of a sorted, unique query item list the proof
// builder (and, through it, the path-query engine) walks a subtree
// against. Low/High are used or ignored depending on Kind.
type QueryItem struct {
	Kind       ItemKind
	Low, High  []byte
}

func Key(k []byte) QueryItem                  { return QueryItem{Kind: ItemKey, Low: k, High: k} }
func Range(a, b []byte) QueryItem             { return QueryItem{Kind: ItemRange, Low: a, High: b} }
func RangeInclusive(a, b []byte) QueryItem    { return QueryItem{Kind: ItemRangeInclusive, Low: a, High: b} }
func RangeFrom(a []byte) QueryItem            { return QueryItem{Kind: ItemRangeFrom, Low: a} }
func RangeTo(b []byte) QueryItem              { return QueryItem{Kind: ItemRangeTo, High: b} }
func RangeToInclusive(b []byte) QueryItem     { return QueryItem{Kind: ItemRangeToInclusive, High: b} }
func RangeAfter(a []byte) QueryItem           { return QueryItem{Kind: ItemRangeAfter, Low: a} }
func RangeAfterTo(a, b []byte) QueryItem      { return QueryItem{Kind: ItemRangeAfterTo, Low: a, High: b} }
func RangeAfterToInclusive(a, b []byte) QueryItem {
	return QueryItem{Kind: ItemRangeAfterToInclusive, Low: a, High: b}
}
func RangeFull() QueryItem { return QueryItem{Kind: ItemRangeFull} }

// lower returns the item's lower bound, whether it's inclusive, and
// whether the lower side is unbounded.
func (q QueryItem) lower() (key []byte, inclusive, unbounded bool) {
	switch q.Kind {
	case ItemKey, ItemRange, ItemRangeInclusive, ItemRangeFrom:
		return q.Low, true, false
	case ItemRangeAfter, ItemRangeAfterTo, ItemRangeAfterToInclusive:
		return q.Low, false, false
	default: // ItemRangeTo, ItemRangeToInclusive, ItemRangeFull
		return nil, false, true
	}
}

// upper returns the item's upper bound, whether it's inclusive, and
// whether the upper side is unbounded.
func (q QueryItem) upper() (key []byte, inclusive, unbounded bool) {
	switch q.Kind {
	case ItemKey, ItemRangeInclusive, ItemRangeToInclusive, ItemRangeAfterToInclusive:
		return q.High, true, false
	case ItemRange, ItemRangeTo, ItemRangeAfterTo:
		return q.High, false, false
	default: // ItemRangeFrom, ItemRangeAfter, ItemRangeFull
		return nil, false, true
	}
}

// Contains reports whether key falls within q's bounds.
func (q QueryItem) Contains(key []byte) bool {
	if lo, incl, unbounded := q.lower(); !unbounded {
		cmp := bytes.Compare(key, lo)
		if incl && cmp < 0 {
			return false
		}
		if !incl && cmp <= 0 {
			return false
		}
	}
	if hi, incl, unbounded := q.upper(); !unbounded {
		cmp := bytes.Compare(key, hi)
		if incl && cmp > 0 {
			return false
		}
		if !incl && cmp >= 0 {
			return false
		}
	}
	return true
}

// strictlyBelow reports whether every key q could match is < pivot.
func (q QueryItem) strictlyBelow(pivot []byte) bool {
	hi, incl, unbounded := q.upper()
	if unbounded {
		return false
	}
	cmp := bytes.Compare(hi, pivot)
	if incl {
		return cmp < 0
	}
	return cmp <= 0
}

// strictlyAbove reports whether every key q could match is > pivot.
func (q QueryItem) strictlyAbove(pivot []byte) bool {
	lo, incl, unbounded := q.lower()
	if unbounded {
		return false
	}
	cmp := bytes.Compare(lo, pivot)
	if incl {
		return cmp > 0
	}
	return cmp >= 0
}

// partition splits items into the subset relevant to pivot's left
// subtree and the subset relevant to its right subtree (an item
// straddling pivot goes to both, since its sub-ranges can still overlap
// descendants on either side), and reports whether pivot's own key is
// itself covered by any item.
// Partition is partition's exported form. The query engine does not call
// it; its per-side pruning happens inside BuildProof.
func Partition(items []QueryItem, pivot []byte) (left, right []QueryItem, matched bool) {
	return partition(items, pivot)
}

func partition(items []QueryItem, pivot []byte) (left, right []QueryItem, matched bool) {
	for _, it := range items {
		switch {
		case it.strictlyBelow(pivot):
			left = append(left, it)
		case it.strictlyAbove(pivot):
			right = append(right, it)
		default:
			if it.Contains(pivot) {
				matched = true
			}
			left = append(left, it)
			right = append(right, it)
		}
	}
	return left, right, matched
}
