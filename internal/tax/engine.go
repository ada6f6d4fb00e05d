// Package tax implements the per-jurisdiction tax engines.
package tax

import (
	"fmt"

	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/rpgo/wealth-simulator/pkg/money"
	"github.com/shopspring/decimal"
)

// TAX ENGINE ASSUMPTIONS:
//
// 1. One individual taxpayer; AU resident, US single filer, UK outside Scotland.
//
// 2. The rules snapshot supplied for the scenario's tax year is applied to
//    every projection year. Thresholds are not indexed.
//
// 3. Capital losses offset gains realized in the same year only; they are not
//    carried forward.
//
// 4. Earnings inside sheltered accounts (super, 401(k), IRA, HSA, ISA,
//    pension) are untaxed while held and withdrawals are tax free.

// Engine computes one jurisdiction's taxes. Implementations are stateless and
// safe for concurrent use; every input arrives through the arguments.
type Engine interface {
	Jurisdiction() domain.Jurisdiction

	// IncomeTax applies the progressive schedule and levies to assessable
	// income. Jurisdiction allowances are applied internally.
	IncomeTax(income money.Money, rules *domain.TaxYearRules) (money.Money, error)

	// MarginalRate is the schedule rate applied to the last unit of income.
	MarginalRate(income money.Money, rules *domain.TaxYearRules) (decimal.Decimal, error)

	// TaxableGain is the part of a single gain that enters the tax base.
	TaxableGain(gain money.Money, holdingMonths int, rules *domain.TaxYearRules) (money.Money, error)

	// CapitalGainsTax is the extra tax caused by realizing gain on top of
	// otherIncome.
	CapitalGainsTax(gain money.Money, holdingMonths int, otherIncome money.Money, rules *domain.TaxYearRules) (money.Money, error)

	// RealizedGainsTax nets all of a year's disposals and taxes the result
	// on top of otherIncome.
	RealizedGainsTax(gains []domain.RealizedGain, otherIncome money.Money, rules *domain.TaxYearRules) (money.Money, error)

	// InvestmentTax is the extra tax caused by dividends on top of
	// otherIncome. A negative result is a refundable credit.
	InvestmentTax(dividends money.Money, franked bool, otherIncome money.Money, rules *domain.TaxYearRules) (money.Money, error)

	// ContributionLimit returns the annual cap for an account type at a given
	// age. capped is false for accounts without a cap.
	ContributionLimit(account domain.AccountType, age int, rules *domain.TaxYearRules) (limit money.Money, capped bool, err error)

	// AccountTreatment describes how contributions and earnings are taxed.
	AccountTreatment(account domain.AccountType) (AccountTreatment, error)

	// SuggestOptimizations returns advice for a finished year. It has no
	// side effects.
	SuggestOptimizations(state domain.YearState, rules *domain.TaxYearRules) []domain.Optimization
}

// AccountTreatment is the tax character of an account type. Accounts in the
// same CapGroup share one annual cap.
type AccountTreatment struct {
	Deductible bool
	Sheltered  bool
	CapGroup   string
}

// For returns the engine for a jurisdiction.
func For(j domain.Jurisdiction) (Engine, error) {
	switch j {
	case domain.Australia:
		return auEngine{}, nil
	case domain.UnitedStates:
		return usEngine{}, nil
	case domain.UnitedKingdom:
		return ukEngine{}, nil
	}
	return nil, &domain.Error{
		Kind:    domain.KindUnsupportedJurisdiction,
		Message: fmt.Sprintf("no tax engine for jurisdiction %q", j),
	}
}

// DeductionBenefit is the tax saved by a deduction at the marginal rate of
// the income it is claimed against.
func DeductionBenefit(e Engine, deduction, income money.Money, rules *domain.TaxYearRules) (money.Money, error) {
	if deduction.IsNegative() {
		return money.Money{}, negative("deduction")
	}
	rate, err := e.MarginalRate(income, rules)
	if err != nil {
		return money.Money{}, err
	}
	benefit, err := deduction.Mul(rate)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	return benefit.Round(), nil
}

func checkRules(j domain.Jurisdiction, rules *domain.TaxYearRules) error {
	if rules == nil {
		return &domain.Error{Kind: domain.KindRulesNotFound, Message: fmt.Sprintf("no %s rules supplied", j)}
	}
	if rules.Jurisdiction != j {
		return &domain.Error{
			Kind:    domain.KindInvalidInput,
			Message: fmt.Sprintf("%s rules passed to %s engine", rules.Jurisdiction, j),
		}
	}
	return nil
}

func checkAmount(name string, m money.Money, rules *domain.TaxYearRules) error {
	if m.Currency() != rules.Currency {
		return &domain.Error{
			Kind:    domain.KindCurrencyMismatch,
			Message: fmt.Sprintf("%s in %s, rules in %s", name, m.Currency(), rules.Currency),
		}
	}
	if m.IsNegative() {
		return negative(name)
	}
	return nil
}

func negative(name string) error {
	return &domain.Error{Kind: domain.KindNegativeInput, Message: name + " cannot be negative"}
}

// incremental is the tax on income+extra minus the tax on income alone.
func incremental(e Engine, income, extra money.Money, rules *domain.TaxYearRules) (money.Money, error) {
	with, err := income.Add(extra)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	base, err := e.IncomeTax(income, rules)
	if err != nil {
		return money.Money{}, err
	}
	withTax, err := e.IncomeTax(money.Max0(with), rules)
	if err != nil {
		return money.Money{}, err
	}
	diff, err := withTax.Sub(base)
	return diff, domain.FromMoney(err)
}

// splitGains nets losses against gains, short-term gains first, and returns
// the remaining short- and long-term totals.
func splitGains(gains []domain.RealizedGain, longMonths int, rules *domain.TaxYearRules) (short, long money.Money, err error) {
	short, long = money.Zero(rules.Currency), money.Zero(rules.Currency)
	losses := money.Zero(rules.Currency)
	for _, g := range gains {
		if g.Amount.Currency() != rules.Currency {
			return short, long, checkAmount("gain", g.Amount, rules)
		}
		switch {
		case g.Amount.IsNegative():
			losses, err = losses.Add(g.Amount.Abs())
		case g.HoldingMonths >= longMonths:
			long, err = long.Add(g.Amount)
		default:
			short, err = short.Add(g.Amount)
		}
		if err != nil {
			return short, long, domain.FromMoney(err)
		}
	}
	absorbed, err := money.Min(short, losses)
	if err != nil {
		return short, long, domain.FromMoney(err)
	}
	if short, err = short.Sub(absorbed); err != nil {
		return short, long, domain.FromMoney(err)
	}
	if losses, err = losses.Sub(absorbed); err != nil {
		return short, long, domain.FromMoney(err)
	}
	long, err = long.Sub(losses)
	return short, money.Max0(long), domain.FromMoney(err)
}
