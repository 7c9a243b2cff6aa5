// Package rational provides bounded-precision fraction math over
// arbitrarily large balances, rounding toward zero. It exists because
// percentage splits of mint amounts and reward shares must not lose
// precision the way a float64 would at token-supply scale.
package rational

import "math/big"

// Fraction is a non-negative rational number num/den, den > 0.
type Fraction struct {
	Num *big.Int
	Den *big.Int
}

// New builds a Fraction from integer numerator and denominator.
func New(num, den int64) Fraction {
	return Fraction{Num: big.NewInt(num), Den: big.NewInt(den)}
}

// FromPercent builds a Fraction representing pct/100.
func FromPercent(pct uint32) Fraction {
	return New(int64(pct), 100)
}

// Share returns share = num/den as a Fraction of whole, usable
// directly by MulFloor.
func Share(num, den *big.Int) Fraction {
	return Fraction{Num: new(big.Int).Set(num), Den: new(big.Int).Set(den)}
}

// MulFloor computes floor(f * amount), rounding toward zero. Returns
// zero if f.Den is zero (no active total to share against).
func (f Fraction) MulFloor(amount *big.Int) *big.Int {
	if f.Den.Sign() == 0 {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(f.Num, amount)
	result := new(big.Int).Quo(product, f.Den) // Quo truncates toward zero
	return result
}
