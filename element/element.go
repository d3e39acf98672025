// Package element implements the tagged Element payload types stored at
// every GroveDB key, the reference-path resolution strategies
// they can carry, and the per-subtree FeatureType aggregation flavours.
package element

// Kind tags which Element variant a value holds.
type Kind uint8

const (
	KindItem Kind = iota
	KindReference
	KindTree
	KindSumTree
	KindSumItem
	KindCountTree
	KindProvableCountTree
	KindItemWithBackwardsReferences
	KindSumItemWithBackwardsReferences
	KindBidirectionalReference
)

// Element is the tagged payload stored at a key.
// Concrete variants below implement it; callers type-switch on Kind()
// rather than using a type switch directly on the interface.
type Element interface {
	Kind() Kind
	GetFlags() []byte
}

// Item is an opaque byte value.
type Item struct {
	Data  []byte
	Flags []byte
}

func (Item) Kind() Kind           { return KindItem }
func (e Item) GetFlags() []byte   { return e.Flags }

// Reference is an alias pointing at another element via one of the
// RefPath resolution strategies. MaxHop bounds the number
// of reference hops resolution will follow before failing with a cycle
// error; nil means "use the engine's configured default". ValueHash is
// the target's value hash at the time the reference was written, letting
// a proof disclose a reference node's target hash without the builder
// re-resolving the target.
type Reference struct {
	Path      RefPath
	MaxHop    *uint8
	ValueHash []byte
	Flags     []byte
}

func (Reference) Kind() Kind          { return KindReference }
func (e Reference) GetFlags() []byte  { return e.Flags }

// Tree is a nested subtree. RootKey is nil when the subtree is empty.
type Tree struct {
	RootKey []byte
	Flags   []byte
}

func (Tree) Kind() Kind          { return KindTree }
func (e Tree) GetFlags() []byte  { return e.Flags }
func (e Tree) Empty() bool       { return e.RootKey == nil }

// SumTree is a subtree whose root additionally carries an aggregated
// signed sum of every SumItem beneath it.
type SumTree struct {
	RootKey []byte
	Sum     int64
	Flags   []byte
}

func (SumTree) Kind() Kind          { return KindSumTree }
func (e SumTree) GetFlags() []byte  { return e.Flags }
func (e SumTree) Empty() bool       { return e.RootKey == nil }

// SumItem is a leaf contributing its Value to the enclosing SumTree's
// aggregate.
type SumItem struct {
	Value int64
	Flags []byte
}

func (SumItem) Kind() Kind          { return KindSumItem }
func (e SumItem) GetFlags() []byte  { return e.Flags }

// CountTree aggregates the number of descendant elements. Unlike
// ProvableCountTree, a tampered count isn't detectable from the node hash
// alone (the count isn't folded into node_hash).
type CountTree struct {
	RootKey []byte
	Count   uint64
	Flags   []byte
}

func (CountTree) Kind() Kind          { return KindCountTree }
func (e CountTree) GetFlags() []byte  { return e.Flags }
func (e CountTree) Empty() bool       { return e.RootKey == nil }

// ProvableCountTree is a CountTree whose count is bound into its node hash
// (via FeatureType.Encode in the node's feature bytes), so a proof that
// lies about the count fails verification.
type ProvableCountTree struct {
	RootKey []byte
	Count   uint64
	Flags   []byte
}

func (ProvableCountTree) Kind() Kind          { return KindProvableCountTree }
func (e ProvableCountTree) GetFlags() []byte  { return e.Flags }
func (e ProvableCountTree) Empty() bool       { return e.RootKey == nil }

// ItemWithBackwardsReferences is an Item that may legally be the target of
// up to 32 BidirectionalReferences.
type ItemWithBackwardsReferences struct {
	Data  []byte
	Flags []byte
}

func (ItemWithBackwardsReferences) Kind() Kind         { return KindItemWithBackwardsReferences }
func (e ItemWithBackwardsReferences) GetFlags() []byte { return e.Flags }

// SumItemWithBackwardsReferences is a SumItem that may legally be the
// target of up to 32 BidirectionalReferences.
type SumItemWithBackwardsReferences struct {
	Value int64
	Flags []byte
}

func (SumItemWithBackwardsReferences) Kind() Kind         { return KindSumItemWithBackwardsReferences }
func (e SumItemWithBackwardsReferences) GetFlags() []byte { return e.Flags }

// BidirectionalReference is a forward pointer whose target's meta
// namespace holds a matching BackwardReference at BackSlotIndex.
// CascadeOnUpdate controls whether overwriting/deleting the target
// with an incompatible element cascades through this reference or aborts
// the whole operation. ValueHash is the terminal target's value hash at
// insert time, carried the same way Reference.ValueHash
// is.
type BidirectionalReference struct {
	Forward         RefPath
	BackSlotIndex   uint8
	CascadeOnUpdate bool
	MaxHop          *uint8
	ValueHash       []byte
	Flags           []byte
}

func (BidirectionalReference) Kind() Kind         { return KindBidirectionalReference }
func (e BidirectionalReference) GetFlags() []byte { return e.Flags }

// IsBackReferenceTarget reports whether e is a legal target of a
// BidirectionalReference: an Item/SumItem with backwards-reference support,
// or another BidirectionalReference.
func IsBackReferenceTarget(e Element) bool {
	switch e.Kind() {
	case KindItemWithBackwardsReferences, KindSumItemWithBackwardsReferences, KindBidirectionalReference:
		return true
	default:
		return false
	}
}

// IsTree reports whether e is one of the subtree-bearing variants
// (Tree/SumTree/CountTree/ProvableCountTree).
func IsTree(e Element) bool {
	switch e.Kind() {
	case KindTree, KindSumTree, KindCountTree, KindProvableCountTree:
		return true
	default:
		return false
	}
}

// TreeRootKey returns the root key of a tree-bearing element, or (nil,
// false) if e isn't one.
func TreeRootKey(e Element) ([]byte, bool) {
	switch t := e.(type) {
	case Tree:
		return t.RootKey, true
	case SumTree:
		return t.RootKey, true
	case CountTree:
		return t.RootKey, true
	case ProvableCountTree:
		return t.RootKey, true
	default:
		return nil, false
	}
}
