package fixedpoint

import (
	"github.com/holiman/uint256"
	"lukechampine.com/uint128"
)

// Sqrt returns the integer square root of n using Newton's method, the same
// algorithm the bonding curve's original implementation used on a widened
// 128-bit accumulator for q1^2 + term. When n fits in 128 bits we run the
// iteration on uint128.Uint128, which is cheaper and matches the widening
// the curve inverse actually needs (token and BASE amounts are at most
// 64-bit; their squared sum is at most 128-bit). Larger operands fall back
// to a uint256 Newton iteration.
func Sqrt(n *uint256.Int) *uint256.Int {
	if n.IsZero() {
		return Zero()
	}
	if n.BitLen() <= 128 {
		root := sqrt128(toUint128(n))
		return fromUint128(root)
	}
	return sqrt256(n)
}

func toUint128(n *uint256.Int) uint128.Uint128 {
	lo := n.Uint64()
	hi := new(uint256.Int).Rsh(n, 64).Uint64()
	return uint128.New(lo, hi)
}

func fromUint128(v uint128.Uint128) *uint256.Int {
	result := new(uint256.Int).SetUint64(v.Hi)
	result = result.Lsh(result, 64)
	return result.Or(result, new(uint256.Int).SetUint64(v.Lo))
}

// sqrt128 runs integer Newton's method on a 128-bit operand, mirroring the
// original Rust integer_sqrt exactly (same initial guess, same convergence
// test).
func sqrt128(n uint128.Uint128) uint128.Uint128 {
	if n.IsZero() {
		return uint128.Zero
	}
	two := uint128.From64(2)
	x := n.Div(two).Add64(1)
	y := x.Add(n.Div(x)).Div(two)
	for y.Cmp(x) < 0 {
		x = y
		y = x.Add(n.Div(x)).Div(two)
	}
	return x
}

// sqrt256 is the same algorithm widened to a full 256-bit accumulator for the
// rare case a squared intermediate overflows 128 bits (e.g. a pool with
// reserves well beyond the default curve targets).
func sqrt256(n *uint256.Int) *uint256.Int {
	two := uint256.NewInt(2)
	x := new(uint256.Int).Div(n, two)
	x = x.AddUint64(x, 1)
	y := new(uint256.Int).Div(n, x)
	y = y.Add(y, x)
	y = y.Div(y, two)
	for y.Lt(x) {
		x.Set(y)
		y = new(uint256.Int).Div(n, x)
		y = y.Add(y, x)
		y = y.Div(y, two)
	}
	return x
}
