// Package fixedpoint implements the checked, integer-only arithmetic that
// every reserve, price, and funding calculation in the engine is built on.
// Nothing here uses floating point; every operation that could overflow,
// underflow, or divide by zero returns an error instead of panicking or
// wrapping silently.
package fixedpoint

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	// ErrOverflow is returned by any multiply or add that would not fit in
	// 256 bits.
	ErrOverflow = errors.New("fixedpoint: arithmetic overflow")
	// ErrUnderflow is returned by a subtract whose result would be negative.
	ErrUnderflow = errors.New("fixedpoint: arithmetic underflow")
	// ErrDivByZero is returned by any division whose denominator is zero.
	ErrDivByZero = errors.New("fixedpoint: division by zero")
)

// Precision is the Q-format scale used for ratios, prices, slopes, and the
// funding accumulator. One whole unit is represented as Precision.
var Precision = uint256.NewInt(1_000_000_000_000)

// One returns a fresh Q-format value equal to 1.0.
func One() *uint256.Int { return new(uint256.Int).Set(Precision) }

// Zero returns a fresh zero-valued uint256.
func Zero() *uint256.Int { return new(uint256.Int) }

// FromUint64 widens a uint64 amount into a uint256 for use in checked math.
func FromUint64(v uint64) *uint256.Int { return new(uint256.Int).SetUint64(v) }

// Add returns a+b, or ErrOverflow if the sum does not fit in 256 bits.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return sum, nil
}

// Sub returns a-b, or ErrUnderflow if b > a.
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	if a.Lt(b) {
		return nil, ErrUnderflow
	}
	diff, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, ErrUnderflow
	}
	return diff, nil
}

// Mul returns a*b, or ErrOverflow if the product does not fit in 256 bits.
func Mul(a, b *uint256.Int) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return product, nil
}

// Div returns a/b (integer division, truncating), or ErrDivByZero if b is
// zero.
func Div(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivByZero
	}
	return new(uint256.Int).Div(a, b), nil
}

// MulDiv computes (a*b)/denom with the intermediate product checked for
// overflow and the division checked for a zero denominator. This is the
// workhorse behind every reserve/price calculation in the engine: the
// constant-product swap formula, the funding credit conversion, and the
// Q-format multiply/divide used by the accumulator all reduce to it.
func MulDiv(a, b, denom *uint256.Int) (*uint256.Int, error) {
	product, err := Mul(a, b)
	if err != nil {
		return nil, err
	}
	return Div(product, denom)
}

// QMul multiplies two Q-format (Precision-scaled) values, returning a
// Q-format result: (a*b)/Precision.
func QMul(a, b *uint256.Int) (*uint256.Int, error) {
	return MulDiv(a, b, Precision)
}

// QDiv divides two Q-format values, returning a Q-format ratio:
// (a*Precision)/b.
func QDiv(a, b *uint256.Int) (*uint256.Int, error) {
	return MulDiv(a, Precision, b)
}

// Min returns the smaller of a and b without mutating either.
func Min(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int).Set(b)
}

// Clamp returns v clamped into [lo, hi].
func Clamp(v, lo, hi *uint256.Int) *uint256.Int {
	if v.Lt(lo) {
		return new(uint256.Int).Set(lo)
	}
	if v.Gt(hi) {
		return new(uint256.Int).Set(hi)
	}
	return new(uint256.Int).Set(v)
}
