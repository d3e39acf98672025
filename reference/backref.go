package reference

import (
	"encoding/binary"
	"strconv"

	"github.com/dashpay/grovedb-go/element"
	"github.com/dashpay/grovedb-go/rlp"
)

// BackwardReference is what a target's meta namespace holds per occupied
// slot: the inverted path (resolves back from the target's own viewpoint
// to the element holding the forward reference) and the cascade flag
// that forward reference was written with.
type BackwardReference struct {
	InvertedPath    element.RefPath
	CascadeOnUpdate bool
}

type backwardReferenceWire struct {
	InvertedPath refPathWire
	Cascade      bool
}

type refPathWire struct {
	Kind            uint8
	Absolute        [][]byte
	Height          uint8
	Suffix          [][]byte
	SiblingKey      []byte
	CousinParentKey []byte
	CousinKey       []byte
}

func toWire(r element.RefPath) refPathWire {
	return refPathWire{
		Kind:            uint8(r.Kind),
		Absolute:        r.Absolute,
		Height:          r.Height,
		Suffix:          r.Suffix,
		SiblingKey:      r.SiblingKey,
		CousinParentKey: r.CousinParentKey,
		CousinKey:       r.CousinKey,
	}
}

func fromWire(w refPathWire) element.RefPath {
	return element.RefPath{
		Kind:            element.RefPathKind(w.Kind),
		Absolute:        w.Absolute,
		Height:          w.Height,
		Suffix:          w.Suffix,
		SiblingKey:      w.SiblingKey,
		CousinParentKey: w.CousinParentKey,
		CousinKey:       w.CousinKey,
	}
}

// encodeBackwardReference serializes a BackwardReference for storage at
// metaSlotKey(key, index).
func encodeBackwardReference(b BackwardReference) ([]byte, error) {
	return rlp.EncodeToBytes(backwardReferenceWire{InvertedPath: toWire(b.InvertedPath), Cascade: b.CascadeOnUpdate})
}

func decodeBackwardReference(data []byte) (BackwardReference, error) {
	var w backwardReferenceWire
	if err := rlp.DecodeBytes(data, &w); err != nil {
		return BackwardReference{}, err
	}
	return BackwardReference{InvertedPath: fromWire(w.InvertedPath), CascadeOnUpdate: w.Cascade}, nil
}

// metaBaseKey is the bitmap key a target's back-references are filed
// under: "R"‖len(key)‖key.
func metaBaseKey(key []byte) []byte {
	out := make([]byte, 0, 1+4+len(key))
	out = append(out, 'R')
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(key)))
	out = append(out, lenBuf[:]...)
	out = append(out, key...)
	return out
}

// metaSlotKey is base‖ascii(index), the key one occupied slot's
// BackwardReference is stored at.
func metaSlotKey(key []byte, index uint8) []byte {
	return append(metaBaseKey(key), []byte(strconv.Itoa(int(index)))...)
}

// decodeBitmap reads a 4-byte little-endian bitmap, treating an absent or
// short record as an all-zero (no slots occupied) bitmap.
func decodeBitmap(raw []byte) uint32 {
	if len(raw) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(raw)
}

func encodeBitmap(bitmap uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], bitmap)
	return buf[:]
}

// lowestFreeSlot returns the lowest unset bit index in bitmap below
// MaxBackSlots, or (0, false) if every slot is occupied.
func lowestFreeSlot(bitmap uint32) (uint8, bool) {
	for i := uint8(0); i < MaxBackSlots; i++ {
		if bitmap&(1<<i) == 0 {
			return i, true
		}
	}
	return 0, false
}

// popCount counts occupied slots.
func popCount(bitmap uint32) int {
	n := 0
	for bitmap != 0 {
		bitmap &= bitmap - 1
		n++
	}
	return n
}
