package element

import "math/bits"

// Int128 is a signed 128-bit integer, two's-complement, stored as two
// uint64 halves. It exists because the BigSummed feature type
// needs signed 128-bit aggregation with overflow detection across both
// children on every modification, and holiman/uint256.Int — the pack's one
// large-integer library — only models *unsigned* 256-bit values: it has no
// sign bit and no notion of a 128-bit width, so wrapping it would still
// leave the signed-overflow-detection logic to hand-write. A direct,
// self-contained signed-128 type following uint256's own technique (plain
// math/bits carry propagation) is the smaller and clearer option.
type Int128 struct {
	Hi int64  // sign-extended high 64 bits
	Lo uint64 // low 64 bits
}

// FromInt64 widens a plain int64 into an Int128.
func FromInt64(v int64) Int128 {
	hi := int64(0)
	if v < 0 {
		hi = -1
	}
	return Int128{Hi: hi, Lo: uint64(v)}
}

// Add returns a+b and whether the addition overflowed 128-bit signed range.
func (a Int128) Add(b Int128) (Int128, bool) {
	lo, carry := bits.Add64(a.Lo, b.Lo, 0)
	hi, _ := bits.Add64(uint64(a.Hi), uint64(b.Hi), carry)
	result := Int128{Hi: int64(hi), Lo: lo}

	// Signed overflow: operands share a sign and the result's sign differs.
	aNeg := a.Hi < 0
	bNeg := b.Hi < 0
	rNeg := result.Hi < 0
	overflow := aNeg == bNeg && rNeg != aNeg
	return result, overflow
}

// Neg returns -a (two's complement negation across both halves).
func (a Int128) Neg() Int128 {
	lo, carry := bits.Sub64(0, a.Lo, 0)
	hi, _ := bits.Sub64(0, uint64(a.Hi), carry)
	return Int128{Hi: int64(hi), Lo: lo}
}

// Sub returns a-b and whether the subtraction overflowed.
func (a Int128) Sub(b Int128) (Int128, bool) {
	return a.Add(b.Neg())
}

// IsZero reports whether a is zero.
func (a Int128) IsZero() bool {
	return a.Hi == 0 && a.Lo == 0
}

// Bytes encodes a as 16 big-endian bytes (two's complement).
func (a Int128) Bytes() [16]byte {
	var b [16]byte
	for i := 0; i < 8; i++ {
		b[7-i] = byte(uint64(a.Hi) >> (8 * i))
		b[15-i] = byte(a.Lo >> (8 * i))
	}
	return b
}

// Int128FromBytes decodes 16 big-endian bytes into an Int128.
func Int128FromBytes(b [16]byte) Int128 {
	var hi, lo uint64
	for i := 0; i < 8; i++ {
		hi = hi<<8 | uint64(b[i])
	}
	for i := 8; i < 16; i++ {
		lo = lo<<8 | uint64(b[i])
	}
	return Int128{Hi: int64(hi), Lo: lo}
}
