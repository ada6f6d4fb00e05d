package tax

import (
	"fmt"

	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/rpgo/wealth-simulator/pkg/money"
	"github.com/shopspring/decimal"
)

type usEngine struct{}

func (usEngine) Jurisdiction() domain.Jurisdiction { return domain.UnitedStates }

func (e usEngine) rules(r *domain.TaxYearRules) (*domain.USRules, error) {
	if err := checkRules(domain.UnitedStates, r); err != nil {
		return nil, err
	}
	if r.US == nil {
		return nil, &domain.Error{Kind: domain.KindRulesNotFound, Message: fmt.Sprintf("%s has no US section", r.Version())}
	}
	return r.US, nil
}

// ordinaryTaxable is income after the standard deduction.
func (usEngine) ordinaryTaxable(us *domain.USRules, income money.Money, r *domain.TaxYearRules) (money.Money, error) {
	std, err := r.Amount(us.StandardDeduction)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	taxable, err := income.Sub(std)
	return money.Max0(taxable), domain.FromMoney(err)
}

func (e usEngine) IncomeTax(income money.Money, r *domain.TaxYearRules) (money.Money, error) {
	us, err := e.rules(r)
	if err != nil {
		return money.Money{}, err
	}
	if err := checkAmount("income", income, r); err != nil {
		return money.Money{}, err
	}
	taxable, err := e.ordinaryTaxable(us, income, r)
	if err != nil {
		return money.Money{}, err
	}
	tax, err := progressiveTax(r.IncomeBrackets, taxable, r)
	if err != nil {
		return money.Money{}, err
	}
	return tax.Round(), nil
}

// MarginalRate is zero while income is covered by the standard deduction.
func (e usEngine) MarginalRate(income money.Money, r *domain.TaxYearRules) (decimal.Decimal, error) {
	us, err := e.rules(r)
	if err != nil {
		return decimal.Zero, err
	}
	if err := checkAmount("income", income, r); err != nil {
		return decimal.Zero, err
	}
	taxable, err := e.ordinaryTaxable(us, income, r)
	if err != nil {
		return decimal.Zero, err
	}
	if taxable.IsZero() {
		return decimal.Zero, nil
	}
	return marginalRate(r.IncomeBrackets, taxable.Amount()), nil
}

// TaxableGain has no discount; the holding period only selects the rate
// schedule.
func (e usEngine) TaxableGain(gain money.Money, holdingMonths int, r *domain.TaxYearRules) (money.Money, error) {
	if _, err := e.rules(r); err != nil {
		return money.Money{}, err
	}
	if err := checkAmount("gain", gain, r); err != nil {
		return money.Money{}, err
	}
	if holdingMonths < 0 {
		return money.Money{}, negative("holding months")
	}
	return gain, nil
}

func (e usEngine) CapitalGainsTax(gain money.Money, holdingMonths int, otherIncome money.Money, r *domain.TaxYearRules) (money.Money, error) {
	if _, err := e.TaxableGain(gain, holdingMonths, r); err != nil {
		return money.Money{}, err
	}
	return e.RealizedGainsTax([]domain.RealizedGain{{Amount: gain, HoldingMonths: holdingMonths}}, otherIncome, r)
}

// RealizedGainsTax taxes short-term gains as ordinary income and stacks
// long-term gains on top at the preferential schedule.
func (e usEngine) RealizedGainsTax(gains []domain.RealizedGain, otherIncome money.Money, r *domain.TaxYearRules) (money.Money, error) {
	us, err := e.rules(r)
	if err != nil {
		return money.Money{}, err
	}
	if err := checkAmount("other income", otherIncome, r); err != nil {
		return money.Money{}, err
	}
	short, long, err := splitGains(gains, us.LongTermMonths, r)
	if err != nil {
		return money.Money{}, err
	}
	shortTax := money.Zero(r.Currency)
	if short.IsPositive() {
		if shortTax, err = incremental(e, otherIncome, short, r); err != nil {
			return money.Money{}, err
		}
	}
	ordinary, err := otherIncome.Add(short)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	longTax, err := e.preferential(us, long, ordinary, r)
	if err != nil {
		return money.Money{}, err
	}
	total, err := shortTax.Add(longTax)
	return total.Round(), domain.FromMoney(err)
}

// preferential stacks amount on top of ordinary income and applies the
// long-term gain schedule to the slice it occupies. Unused standard
// deduction absorbs the bottom of the slice first.
func (e usEngine) preferential(us *domain.USRules, amount, ordinary money.Money, r *domain.TaxYearRules) (money.Money, error) {
	if !amount.IsPositive() {
		return money.Zero(r.Currency), nil
	}
	ordinaryTaxable, err := e.ordinaryTaxable(us, ordinary, r)
	if err != nil {
		return money.Money{}, err
	}
	all, err := ordinary.Add(amount)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	top, err := e.ordinaryTaxable(us, all, r)
	if err != nil {
		return money.Money{}, err
	}
	tax, err := sliceTax(us.LongTermGainBrackets, ordinaryTaxable, top, r)
	if err != nil {
		return money.Money{}, err
	}
	return tax.Round(), nil
}

// InvestmentTax taxes qualified dividends at the long-term gain schedule
// and ordinary dividends as income.
func (e usEngine) InvestmentTax(dividends money.Money, qualified bool, otherIncome money.Money, r *domain.TaxYearRules) (money.Money, error) {
	us, err := e.rules(r)
	if err != nil {
		return money.Money{}, err
	}
	if err := checkAmount("dividends", dividends, r); err != nil {
		return money.Money{}, err
	}
	if err := checkAmount("other income", otherIncome, r); err != nil {
		return money.Money{}, err
	}
	if !qualified {
		return incremental(e, otherIncome, dividends, r)
	}
	return e.preferential(us, dividends, otherIncome, r)
}

func (e usEngine) ContributionLimit(account domain.AccountType, age int, r *domain.TaxYearRules) (money.Money, bool, error) {
	us, err := e.rules(r)
	if err != nil {
		return money.Money{}, false, err
	}
	var base, catchUp decimal.Decimal
	catchUpAge := us.CatchUpAge
	switch account {
	case domain.AccountTraditional401k:
		base, catchUp = us.Limit401k, us.CatchUp401k
	case domain.AccountTraditionalIRA, domain.AccountRothIRA:
		base, catchUp = us.LimitIRA, us.CatchUpIRA
	case domain.AccountHSA:
		base, catchUp = us.LimitHSA, us.CatchUpHSA
		catchUpAge = us.HSACatchUpAge
	case domain.AccountBrokerage:
		return money.Zero(r.Currency), false, nil
	default:
		return money.Money{}, false, unsupportedAccount(domain.UnitedStates, account)
	}
	if catchUpAge > 0 && age >= catchUpAge {
		base = base.Add(catchUp)
	}
	limit, err := r.Amount(base)
	return limit, true, domain.FromMoney(err)
}

func (usEngine) AccountTreatment(account domain.AccountType) (AccountTreatment, error) {
	switch account {
	case domain.AccountTraditional401k:
		return AccountTreatment{Deductible: true, Sheltered: true, CapGroup: "401k"}, nil
	case domain.AccountTraditionalIRA:
		return AccountTreatment{Deductible: true, Sheltered: true, CapGroup: "ira"}, nil
	case domain.AccountRothIRA:
		return AccountTreatment{Sheltered: true, CapGroup: "ira"}, nil
	case domain.AccountHSA:
		return AccountTreatment{Deductible: true, Sheltered: true, CapGroup: "hsa"}, nil
	case domain.AccountBrokerage:
		return AccountTreatment{}, nil
	}
	return AccountTreatment{}, unsupportedAccount(domain.UnitedStates, account)
}

// SuggestOptimizations points at unused pre-tax 401(k) room and at taxable
// dividends that do not qualify for the lower schedule.
func (e usEngine) SuggestOptimizations(state domain.YearState, r *domain.TaxYearRules) []domain.Optimization {
	if _, err := e.rules(r); err != nil {
		return nil
	}
	var out []domain.Optimization
	rate, err := e.MarginalRate(state.TaxableIncome, r)
	if err != nil {
		return nil
	}
	if limit, capped, err := e.ContributionLimit(domain.AccountTraditional401k, state.Age, r); err == nil && capped && rate.IsPositive() {
		used := state.ContributionsByGroup["401k"]
		if used.Currency() == "" {
			used = money.Zero(r.Currency)
		}
		if headroom, err := limit.Sub(used); err == nil && headroom.IsPositive() {
			headroom = money.Max0(minMoney(headroom, state.TaxableIncome))
			if saving, err := headroom.Mul(rate); err == nil && saving.IsPositive() {
				out = append(out, domain.Optimization{
					Kind:            "401k_headroom",
					Year:            state.Year,
					Message:         fmt.Sprintf("%s of 401(k) limit unused at a %s%% marginal rate", headroom.Round(), pct(rate)),
					EstimatedSaving: saving.Round(),
				})
			}
		}
	}
	if state.OrdinaryDividends.IsPositive() {
		ordinary, err := e.InvestmentTax(state.OrdinaryDividends, false, state.TaxableIncome, r)
		if err == nil {
			qualified, err := e.InvestmentTax(state.OrdinaryDividends, true, state.TaxableIncome, r)
			if err == nil {
				if gap, err := ordinary.Sub(qualified); err == nil && gap.IsPositive() {
					out = append(out, domain.Optimization{
						Kind:            "qualified_dividends",
						Year:            state.Year,
						Message:         "holding dividend payers past the qualifying period taxes dividends at long-term gain rates",
						EstimatedSaving: gap.Round(),
					})
				}
			}
		}
	}
	return out
}
