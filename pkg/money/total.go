package money

import "github.com/shopspring/decimal"

// Total accumulates amounts of one currency. The first failing operation is
// remembered and every later call becomes a no-op, so a chain of additions
// needs a single error check at Result.
type Total struct {
	sum Money
	err error
}

// NewTotal starts an accumulator at zero.
func NewTotal(currency string) *Total {
	return &Total{sum: Zero(currency)}
}

// Add adds each amount in order.
func (t *Total) Add(ms ...Money) *Total {
	for _, m := range ms {
		if t.err != nil {
			return t
		}
		t.sum, t.err = t.sum.Add(m)
	}
	return t
}

// Sub subtracts each amount in order.
func (t *Total) Sub(ms ...Money) *Total {
	for _, m := range ms {
		if t.err != nil {
			return t
		}
		t.sum, t.err = t.sum.Sub(m)
	}
	return t
}

// Mul scales the running sum.
func (t *Total) Mul(factor decimal.Decimal) *Total {
	if t.err == nil {
		t.sum, t.err = t.sum.Mul(factor)
	}
	return t
}

// Result returns the sum or the first error.
func (t *Total) Result() (Money, error) {
	if t.err != nil {
		return Money{}, t.err
	}
	return t.sum, nil
}

// Sum adds amounts that must all be in currency.
func Sum(currency string, ms ...Money) (Money, error) {
	return NewTotal(currency).Add(ms...).Result()
}
