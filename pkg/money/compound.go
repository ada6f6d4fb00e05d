package money

import "github.com/shopspring/decimal"

// factorScale bounds the precision of growth factors so repeated compounding
// stays reproducible across runs and platforms.
const factorScale = 18

var one = decimal.NewFromInt(1)

// CompoundFactor returns (1+rate)^periods for periods >= 0 by repeated
// squaring, rounding half-to-even at every step.
func CompoundFactor(rate decimal.Decimal, periods int) decimal.Decimal {
	result := one
	base := one.Add(rate)
	for n := periods; n > 0; n >>= 1 {
		if n&1 == 1 {
			result = result.Mul(base).RoundBank(factorScale)
		}
		base = base.Mul(base).RoundBank(factorScale)
	}
	return result
}

// Grow returns m × (1+rate)^periods.
func (m Money) Grow(rate decimal.Decimal, periods int) (Money, error) {
	return m.Mul(CompoundFactor(rate, periods))
}
