package element

import "errors"

// ErrReferenceOutOfBounds is returned when a reference path can't be
// resolved against the current (path, key) — e.g. an upstream reference
// asking to climb further than the current path has ancestors.
var ErrReferenceOutOfBounds = errors.New("element: reference path out of bounds")

// RefPathKind selects one of the four reference-path resolution strategies.
type RefPathKind uint8

const (
	RefAbsolute RefPathKind = iota
	RefUpstreamFromElementHeight
	RefSibling
	RefCousin
)

// RefPath is a reference-path variant. Exactly the fields relevant to Kind
// are populated; the rest are left zero. Resolve is deterministic given the
// (path, key) of the element holding this RefPath.
type RefPath struct {
	Kind RefPathKind

	// RefAbsolute: the full path+key, Absolute[0:len-1] is the subtree path,
	// Absolute[len-1] is the key.
	Absolute [][]byte

	// RefUpstreamFromElementHeight: climb Height ancestors from the current
	// element's path, then append Suffix (a path+key tail).
	Height uint8
	Suffix [][]byte

	// RefSibling: same subtree, different key.
	SiblingKey []byte

	// RefCousin: parent's parent subtree, sibling key of the parent, then
	// this key — i.e. same depth, different branch one level up.
	CousinParentKey []byte
	CousinKey       []byte
}

// Resolve computes the absolute (path, key) this reference points at, given
// the (path, key) of the element holding the reference.
func (r RefPath) Resolve(currentPath [][]byte, currentKey []byte) ([][]byte, []byte, error) {
	switch r.Kind {
	case RefAbsolute:
		if len(r.Absolute) == 0 {
			return nil, nil, ErrReferenceOutOfBounds
		}
		path := make([][]byte, len(r.Absolute)-1)
		copy(path, r.Absolute[:len(r.Absolute)-1])
		return path, r.Absolute[len(r.Absolute)-1], nil

	case RefUpstreamFromElementHeight:
		if int(r.Height) > len(currentPath) {
			return nil, nil, ErrReferenceOutOfBounds
		}
		base := currentPath[:len(currentPath)-int(r.Height)]
		if len(r.Suffix) == 0 {
			return nil, nil, ErrReferenceOutOfBounds
		}
		full := append(append([][]byte{}, base...), r.Suffix...)
		path := full[:len(full)-1]
		key := full[len(full)-1]
		return path, key, nil

	case RefSibling:
		if len(r.SiblingKey) == 0 {
			return nil, nil, ErrReferenceOutOfBounds
		}
		path := append([][]byte{}, currentPath...)
		return path, r.SiblingKey, nil

	case RefCousin:
		if len(currentPath) == 0 {
			return nil, nil, ErrReferenceOutOfBounds
		}
		parent := currentPath[:len(currentPath)-1]
		path := append(append([][]byte{}, parent...), r.CousinParentKey)
		return path, r.CousinKey, nil

	default:
		return nil, nil, ErrReferenceOutOfBounds
	}
}
