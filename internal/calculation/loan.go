package calculation

import (
	"github.com/rpgo/wealth-simulator/pkg/money"
	"github.com/shopspring/decimal"
)

var (
	twelve = decimal.NewFromInt(12)
	two    = decimal.NewFromInt(2)
	one    = decimal.NewFromInt(1)
)

// MonthlyPayment is the level payment that retires balance over months at
// annualRate compounded monthly: P·r/(1−(1+r)^−n).
func MonthlyPayment(balance money.Money, annualRate decimal.Decimal, months int) (money.Money, error) {
	if months <= 0 || !balance.IsPositive() {
		return money.Zero(balance.Currency()), nil
	}
	if annualRate.IsZero() {
		return balance.Div(decimal.NewFromInt(int64(months)))
	}
	r := annualRate.DivRound(twelve, 18)
	f := money.CompoundFactor(r, months)
	return balance.Mul(r.Mul(f).DivRound(f.Sub(one), 18))
}

// amortizeYear advances a principal-and-interest loan by up to twelve
// monthly payments. The split is derived in closed form from the balance at
// the start of the year, so no per-month rounding accumulates across years.
func amortizeYear(balance money.Money, annualRate decimal.Decimal, remainingMonths int) (interest, principal money.Money, months int, err error) {
	zero := money.Zero(balance.Currency())
	if remainingMonths <= 0 || !balance.IsPositive() {
		return zero, zero, 0, nil
	}
	months = remainingMonths
	if months > 12 {
		months = 12
	}
	payment, err := MonthlyPayment(balance, annualRate, remainingMonths)
	if err != nil {
		return zero, zero, 0, err
	}
	paid, err := payment.Mul(decimal.NewFromInt(int64(months)))
	if err != nil {
		return zero, zero, 0, err
	}
	if months == remainingMonths {
		// Final year retires the loan exactly.
		interest, err = paid.Sub(balance)
		return money.Max0(interest), balance, months, err
	}
	if annualRate.IsZero() {
		return zero, paid, months, nil
	}
	r := annualRate.DivRound(twelve, 18)
	f := money.CompoundFactor(r, months)
	grown, err := balance.Mul(f)
	if err != nil {
		return zero, zero, 0, err
	}
	repaid, err := payment.Mul(f.Sub(one).DivRound(r, 18))
	if err != nil {
		return zero, zero, 0, err
	}
	remaining, err := grown.Sub(repaid)
	if err != nil {
		return zero, zero, 0, err
	}
	if principal, err = balance.Sub(remaining); err != nil {
		return zero, zero, 0, err
	}
	interest, err = paid.Sub(principal)
	return interest, principal, months, err
}
