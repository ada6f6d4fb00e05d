package tax

import (
	"fmt"

	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/rpgo/wealth-simulator/pkg/money"
	"github.com/shopspring/decimal"
)

type ukEngine struct{}

func (ukEngine) Jurisdiction() domain.Jurisdiction { return domain.UnitedKingdom }

func (e ukEngine) rules(r *domain.TaxYearRules) (*domain.UKRules, error) {
	if err := checkRules(domain.UnitedKingdom, r); err != nil {
		return nil, err
	}
	if r.UK == nil {
		return nil, &domain.Error{Kind: domain.KindRulesNotFound, Message: fmt.Sprintf("%s has no UK section", r.Version())}
	}
	return r.UK, nil
}

// allowance is the personal allowance after the taper for adjusted net
// income above the taper threshold.
func (ukEngine) allowance(uk *domain.UKRules, income money.Money, r *domain.TaxYearRules) (money.Money, error) {
	pa, err := r.Amount(uk.PersonalAllowance)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	if uk.AllowanceTaperFrom.IsZero() || !income.Amount().GreaterThan(uk.AllowanceTaperFrom) {
		return pa, nil
	}
	from, err := r.Amount(uk.AllowanceTaperFrom)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	over, err := income.Sub(from)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	cut, err := over.Mul(uk.AllowanceTaperRate)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	left, err := pa.Sub(cut)
	return money.Max0(left), domain.FromMoney(err)
}

// bandPosition is where income ends in the rate bands: income after the
// allowance that total income would receive.
func (e ukEngine) bandPosition(uk *domain.UKRules, income, total money.Money, r *domain.TaxYearRules) (money.Money, error) {
	pa, err := e.allowance(uk, total, r)
	if err != nil {
		return money.Money{}, err
	}
	pos, err := income.Sub(pa)
	return money.Max0(pos), domain.FromMoney(err)
}

func (e ukEngine) IncomeTax(income money.Money, r *domain.TaxYearRules) (money.Money, error) {
	uk, err := e.rules(r)
	if err != nil {
		return money.Money{}, err
	}
	if err := checkAmount("income", income, r); err != nil {
		return money.Money{}, err
	}
	taxable, err := e.bandPosition(uk, income, income, r)
	if err != nil {
		return money.Money{}, err
	}
	tax, err := progressiveTax(r.IncomeBrackets, taxable, r)
	if err != nil {
		return money.Money{}, err
	}
	return tax.Round(), nil
}

// MarginalRate is the band rate; the allowance taper is not folded in.
func (e ukEngine) MarginalRate(income money.Money, r *domain.TaxYearRules) (decimal.Decimal, error) {
	uk, err := e.rules(r)
	if err != nil {
		return decimal.Zero, err
	}
	if err := checkAmount("income", income, r); err != nil {
		return decimal.Zero, err
	}
	taxable, err := e.bandPosition(uk, income, income, r)
	if err != nil {
		return decimal.Zero, err
	}
	if taxable.IsZero() {
		return decimal.Zero, nil
	}
	return marginalRate(r.IncomeBrackets, taxable.Amount()), nil
}

// TaxableGain deducts the annual exempt amount; there is no holding-period
// discount.
func (e ukEngine) TaxableGain(gain money.Money, holdingMonths int, r *domain.TaxYearRules) (money.Money, error) {
	uk, err := e.rules(r)
	if err != nil {
		return money.Money{}, err
	}
	if err := checkAmount("gain", gain, r); err != nil {
		return money.Money{}, err
	}
	if holdingMonths < 0 {
		return money.Money{}, negative("holding months")
	}
	return e.overExemption(uk, gain, r)
}

func (ukEngine) overExemption(uk *domain.UKRules, gain money.Money, r *domain.TaxYearRules) (money.Money, error) {
	exempt, err := r.Amount(uk.CGTAnnualExemption)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	taxable, err := gain.Sub(exempt)
	return money.Max0(taxable), domain.FromMoney(err)
}

func (e ukEngine) CapitalGainsTax(gain money.Money, holdingMonths int, otherIncome money.Money, r *domain.TaxYearRules) (money.Money, error) {
	if _, err := e.TaxableGain(gain, holdingMonths, r); err != nil {
		return money.Money{}, err
	}
	return e.RealizedGainsTax([]domain.RealizedGain{{Amount: gain, HoldingMonths: holdingMonths}}, otherIncome, r)
}

// RealizedGainsTax applies the annual exempt amount once to the year's net
// gains. Gains falling within unused basic-rate band pay the basic CGT rate
// and the rest pay the higher rate.
func (e ukEngine) RealizedGainsTax(gains []domain.RealizedGain, otherIncome money.Money, r *domain.TaxYearRules) (money.Money, error) {
	uk, err := e.rules(r)
	if err != nil {
		return money.Money{}, err
	}
	if err := checkAmount("other income", otherIncome, r); err != nil {
		return money.Money{}, err
	}
	short, long, err := splitGains(gains, 0, r)
	if err != nil {
		return money.Money{}, err
	}
	net, err := short.Add(long)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	taxable, err := e.overExemption(uk, net, r)
	if err != nil || taxable.IsZero() {
		return money.Zero(r.Currency), err
	}
	used, err := e.bandPosition(uk, otherIncome, otherIncome, r)
	if err != nil {
		return money.Money{}, err
	}
	basicBand, err := e.basicBandTop(r)
	if err != nil {
		return money.Money{}, err
	}
	room, err := basicBand.Sub(used)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	atBasic := money.Max0(minMoney(money.Max0(room), taxable))
	atHigher, err := taxable.Sub(atBasic)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	basicTax, err := atBasic.Mul(uk.CGTBasicRate)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	higherTax, err := atHigher.Mul(uk.CGTHigherRate)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	total, err := basicTax.Add(higherTax)
	return total.Round(), domain.FromMoney(err)
}

// basicBandTop is the upper edge of the first rate band.
func (ukEngine) basicBandTop(r *domain.TaxYearRules) (money.Money, error) {
	if len(r.IncomeBrackets) < 2 {
		return r.Amount(money.MaxAmount)
	}
	top, err := r.Amount(r.IncomeBrackets[1].From)
	return top, domain.FromMoney(err)
}

// InvestmentTax stacks dividends on top of other income. Unused personal
// allowance covers them first, then the dividend allowance, and the rest is
// taxed at the dividend rate of the band it falls in.
func (e ukEngine) InvestmentTax(dividends money.Money, _ bool, otherIncome money.Money, r *domain.TaxYearRules) (money.Money, error) {
	uk, err := e.rules(r)
	if err != nil {
		return money.Money{}, err
	}
	if err := checkAmount("dividends", dividends, r); err != nil {
		return money.Money{}, err
	}
	if err := checkAmount("other income", otherIncome, r); err != nil {
		return money.Money{}, err
	}
	total, err := otherIncome.Add(dividends)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	start, err := e.bandPosition(uk, otherIncome, total, r)
	if err != nil {
		return money.Money{}, err
	}
	end, err := e.bandPosition(uk, total, total, r)
	if err != nil {
		return money.Money{}, err
	}
	allowance, err := r.Amount(uk.DividendAllowance)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	taxedFrom, err := start.Add(allowance)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	tax, err := sliceTax(uk.DividendRates, taxedFrom, end, r)
	if err != nil {
		return money.Money{}, err
	}
	return tax.Round(), nil
}

func (e ukEngine) ContributionLimit(account domain.AccountType, age int, r *domain.TaxYearRules) (money.Money, bool, error) {
	uk, err := e.rules(r)
	if err != nil {
		return money.Money{}, false, err
	}
	var amount decimal.Decimal
	switch account {
	case domain.AccountISA:
		if age >= uk.ISAMinAge {
			amount = uk.ISAAllowance
		}
	case domain.AccountPension:
		if uk.PensionReliefMaxAge == 0 || age < uk.PensionReliefMaxAge {
			amount = uk.PensionAnnualAllowance
		}
	case domain.AccountBrokerage:
		return money.Zero(r.Currency), false, nil
	default:
		return money.Money{}, false, unsupportedAccount(domain.UnitedKingdom, account)
	}
	limit, err := r.Amount(amount)
	return limit, true, domain.FromMoney(err)
}

func (ukEngine) AccountTreatment(account domain.AccountType) (AccountTreatment, error) {
	switch account {
	case domain.AccountISA:
		return AccountTreatment{Sheltered: true, CapGroup: "isa"}, nil
	case domain.AccountPension:
		return AccountTreatment{Deductible: true, Sheltered: true, CapGroup: "pension"}, nil
	case domain.AccountBrokerage:
		return AccountTreatment{}, nil
	}
	return AccountTreatment{}, unsupportedAccount(domain.UnitedKingdom, account)
}

// SuggestOptimizations points at ISA room when taxable dividends exceed the
// dividend allowance, and at pension room for higher-rate taxpayers.
func (e ukEngine) SuggestOptimizations(state domain.YearState, r *domain.TaxYearRules) []domain.Optimization {
	uk, err := e.rules(r)
	if err != nil {
		return nil
	}
	var out []domain.Optimization
	if state.Dividends.Amount().GreaterThan(uk.DividendAllowance) {
		if tax, err := e.InvestmentTax(state.Dividends, false, state.TaxableIncome, r); err == nil && tax.IsPositive() {
			out = append(out, domain.Optimization{
				Kind:            "isa_headroom",
				Year:            state.Year,
				Message:         fmt.Sprintf("dividends of %s exceed the dividend allowance; holding them in an ISA removes the tax", state.Dividends.Round()),
				EstimatedSaving: tax,
			})
		}
	}
	rate, err := e.MarginalRate(state.TaxableIncome, r)
	if err != nil || len(r.IncomeBrackets) == 0 || !rate.GreaterThan(r.IncomeBrackets[0].Rate) {
		return out
	}
	if limit, capped, err := e.ContributionLimit(domain.AccountPension, state.Age, r); err == nil && capped {
		used := state.ContributionsByGroup["pension"]
		if used.Currency() == "" {
			used = money.Zero(r.Currency)
		}
		if headroom, err := limit.Sub(used); err == nil && headroom.IsPositive() {
			headroom = money.Max0(minMoney(headroom, state.TaxableIncome))
			if saving, err := headroom.Mul(rate); err == nil && saving.IsPositive() {
				out = append(out, domain.Optimization{
					Kind:            "pension_headroom",
					Year:            state.Year,
					Message:         fmt.Sprintf("%s of pension annual allowance unused at a %s%% marginal rate", headroom.Round(), pct(rate)),
					EstimatedSaving: saving.Round(),
				})
			}
		}
	}
	return out
}
