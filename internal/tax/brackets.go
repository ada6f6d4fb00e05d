package tax

import (
	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/rpgo/wealth-simulator/pkg/money"
	"github.com/shopspring/decimal"
)

// sliceTax applies a schedule to the band of income (lower, upper]. A
// bracket covers income above its From up to and including the next From,
// so a value sitting exactly on a threshold is taxed at the lower rate.
// Thresholds are compared as plain decimals and only the total becomes
// Money; each portion rounds exactly as Money.Mul does.
func sliceTax(brackets []domain.Bracket, lower, upper money.Money, rules *domain.TaxYearRules) (money.Money, error) {
	if c, err := upper.Cmp(lower); err != nil || c <= 0 {
		if err != nil {
			return money.Money{}, domain.FromMoney(err)
		}
		return money.Zero(rules.Currency), nil
	}
	if _, err := upper.Cmp(money.Zero(rules.Currency)); err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	lo, hi := lower.Amount(), upper.Amount()
	sum := decimal.Zero
	for i, b := range brackets {
		low := decimal.Max(lo, b.From)
		high := hi
		if i+1 < len(brackets) {
			high = decimal.Min(hi, brackets[i+1].From)
		}
		width := high.Sub(low)
		if !width.IsPositive() {
			continue
		}
		sum = sum.Add(width.Mul(b.Rate).RoundBank(money.InternalScale))
	}
	total, err := rules.Amount(sum)
	return total, domain.FromMoney(err)
}

// progressiveTax taxes income from zero.
func progressiveTax(brackets []domain.Bracket, income money.Money, rules *domain.TaxYearRules) (money.Money, error) {
	return sliceTax(brackets, money.Zero(rules.Currency), income, rules)
}

// marginalRate returns the rate applied to the last unit of income. At a
// threshold the lower bracket still applies.
func marginalRate(brackets []domain.Bracket, income decimal.Decimal) decimal.Decimal {
	if len(brackets) == 0 {
		return decimal.Zero
	}
	rate := brackets[0].Rate
	for _, b := range brackets[1:] {
		if income.GreaterThan(b.From) {
			rate = b.Rate
		}
	}
	return rate
}
