package tax

import (
	"fmt"

	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/rpgo/wealth-simulator/pkg/money"
	"github.com/shopspring/decimal"
)

type auEngine struct{}

func (auEngine) Jurisdiction() domain.Jurisdiction { return domain.Australia }

func (e auEngine) rules(r *domain.TaxYearRules) (*domain.AURules, error) {
	if err := checkRules(domain.Australia, r); err != nil {
		return nil, err
	}
	if r.AU == nil {
		return nil, &domain.Error{Kind: domain.KindRulesNotFound, Message: fmt.Sprintf("%s has no AU section", r.Version())}
	}
	return r.AU, nil
}

// IncomeTax is the resident schedule plus the Medicare levy, shaded in above
// the low-income threshold.
func (e auEngine) IncomeTax(income money.Money, r *domain.TaxYearRules) (money.Money, error) {
	au, err := e.rules(r)
	if err != nil {
		return money.Money{}, err
	}
	if err := checkAmount("income", income, r); err != nil {
		return money.Money{}, err
	}
	tax, err := progressiveTax(r.IncomeBrackets, income, r)
	if err != nil {
		return money.Money{}, err
	}
	levy, err := medicareLevy(au, income, r)
	if err != nil {
		return money.Money{}, err
	}
	total, err := tax.Add(levy)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	return total.Round(), nil
}

func medicareLevy(au *domain.AURules, income money.Money, r *domain.TaxYearRules) (money.Money, error) {
	if !income.Amount().GreaterThan(au.MedicareLevyThreshold) {
		return money.Zero(r.Currency), nil
	}
	full, err := income.Mul(au.MedicareLevyRate)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	if au.MedicareShadeInRate.IsZero() {
		return full, nil
	}
	threshold, err := r.Amount(au.MedicareLevyThreshold)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	over, err := income.Sub(threshold)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	shaded, err := over.Mul(au.MedicareShadeInRate)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	levy, err := money.Min(full, shaded)
	return levy, domain.FromMoney(err)
}

func (e auEngine) MarginalRate(income money.Money, r *domain.TaxYearRules) (decimal.Decimal, error) {
	if _, err := e.rules(r); err != nil {
		return decimal.Zero, err
	}
	if err := checkAmount("income", income, r); err != nil {
		return decimal.Zero, err
	}
	return marginalRate(r.IncomeBrackets, income.Amount()), nil
}

// TaxableGain applies the CGT discount to assets held at least the
// qualifying number of months.
func (e auEngine) TaxableGain(gain money.Money, holdingMonths int, r *domain.TaxYearRules) (money.Money, error) {
	au, err := e.rules(r)
	if err != nil {
		return money.Money{}, err
	}
	if err := checkAmount("gain", gain, r); err != nil {
		return money.Money{}, err
	}
	if holdingMonths < 0 {
		return money.Money{}, negative("holding months")
	}
	return e.discounted(au, gain, holdingMonths)
}

func (auEngine) discounted(au *domain.AURules, gain money.Money, holdingMonths int) (money.Money, error) {
	if holdingMonths < au.CGTDiscountMonths {
		return gain, nil
	}
	taxable, err := gain.Mul(decimal.NewFromInt(1).Sub(au.CGTDiscount))
	return taxable, domain.FromMoney(err)
}

func (e auEngine) CapitalGainsTax(gain money.Money, holdingMonths int, otherIncome money.Money, r *domain.TaxYearRules) (money.Money, error) {
	if _, err := e.rules(r); err != nil {
		return money.Money{}, err
	}
	if err := checkAmount("gain", gain, r); err != nil {
		return money.Money{}, err
	}
	if holdingMonths < 0 {
		return money.Money{}, negative("holding months")
	}
	return e.RealizedGainsTax([]domain.RealizedGain{{Amount: gain, HoldingMonths: holdingMonths}}, otherIncome, r)
}

// RealizedGainsTax nets losses against non-discountable gains first, then
// discounts what remains of the long-held gains.
func (e auEngine) RealizedGainsTax(gains []domain.RealizedGain, otherIncome money.Money, r *domain.TaxYearRules) (money.Money, error) {
	au, err := e.rules(r)
	if err != nil {
		return money.Money{}, err
	}
	if err := checkAmount("other income", otherIncome, r); err != nil {
		return money.Money{}, err
	}
	short, long, err := splitGains(gains, au.CGTDiscountMonths, r)
	if err != nil {
		return money.Money{}, err
	}
	discountedLong, err := e.discounted(au, long, au.CGTDiscountMonths)
	if err != nil {
		return money.Money{}, err
	}
	base, err := short.Add(discountedLong)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	if base.IsZero() {
		return money.Zero(r.Currency), nil
	}
	return incremental(e, otherIncome, base, r)
}

// InvestmentTax grosses franked dividends up by the attached company tax
// credit, taxes the grossed-up amount at marginal rates and then offsets the
// credit. Excess credits are refundable, so the result can be negative.
func (e auEngine) InvestmentTax(dividends money.Money, franked bool, otherIncome money.Money, r *domain.TaxYearRules) (money.Money, error) {
	au, err := e.rules(r)
	if err != nil {
		return money.Money{}, err
	}
	if err := checkAmount("dividends", dividends, r); err != nil {
		return money.Money{}, err
	}
	if err := checkAmount("other income", otherIncome, r); err != nil {
		return money.Money{}, err
	}
	if !franked {
		return incremental(e, otherIncome, dividends, r)
	}
	credit, err := FrankingCredit(dividends, au.CorporateTaxRate)
	if err != nil {
		return money.Money{}, err
	}
	grossed, err := dividends.Add(credit)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	tax, err := incremental(e, otherIncome, grossed, r)
	if err != nil {
		return money.Money{}, err
	}
	net, err := tax.Sub(credit)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	return net.Round(), nil
}

// FrankingCredit is the company tax attached to a fully franked dividend:
// dividend × rate / (1 − rate).
func FrankingCredit(dividend money.Money, corporateRate decimal.Decimal) (money.Money, error) {
	credit, err := dividend.Mul(corporateRate)
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	credit, err = credit.Div(decimal.NewFromInt(1).Sub(corporateRate))
	if err != nil {
		return money.Money{}, domain.FromMoney(err)
	}
	return credit.Round(), nil
}

func (e auEngine) ContributionLimit(account domain.AccountType, age int, r *domain.TaxYearRules) (money.Money, bool, error) {
	au, err := e.rules(r)
	if err != nil {
		return money.Money{}, false, err
	}
	var amount decimal.Decimal
	switch account {
	case domain.AccountSuperConcessional:
		amount = au.ConcessionalCap
	case domain.AccountSuperNonConcessional:
		amount = au.NonConcessionalCap
	case domain.AccountBrokerage:
		return money.Zero(r.Currency), false, nil
	default:
		return money.Money{}, false, unsupportedAccount(domain.Australia, account)
	}
	if au.ContributionMaxAge > 0 && age >= au.ContributionMaxAge {
		return money.Zero(r.Currency), true, nil
	}
	limit, err := r.Amount(amount)
	return limit, true, domain.FromMoney(err)
}

func (auEngine) AccountTreatment(account domain.AccountType) (AccountTreatment, error) {
	switch account {
	case domain.AccountSuperConcessional:
		return AccountTreatment{Deductible: true, Sheltered: true, CapGroup: "concessional"}, nil
	case domain.AccountSuperNonConcessional:
		return AccountTreatment{Sheltered: true, CapGroup: "non_concessional"}, nil
	case domain.AccountBrokerage:
		return AccountTreatment{}, nil
	}
	return AccountTreatment{}, unsupportedAccount(domain.Australia, account)
}

// SuggestOptimizations flags unused concessional cap room worth more than the
// contributions tax and reports the value of negative gearing deductions.
func (e auEngine) SuggestOptimizations(state domain.YearState, r *domain.TaxYearRules) []domain.Optimization {
	au, err := e.rules(r)
	if err != nil {
		return nil
	}
	var out []domain.Optimization
	rate := marginalRate(r.IncomeBrackets, state.TaxableIncome.Amount())

	if limit, capped, err := e.ContributionLimit(domain.AccountSuperConcessional, state.Age, r); err == nil && capped && limit.IsPositive() {
		used := state.ContributionsByGroup["concessional"]
		if used.Currency() == "" {
			used = money.Zero(r.Currency)
		}
		headroom, err := limit.Sub(used)
		if err == nil && headroom.IsPositive() && rate.GreaterThan(au.SuperContributionsTax) {
			headroom = money.Max0(minMoney(headroom, state.TaxableIncome))
			saving, err := headroom.Mul(rate.Sub(au.SuperContributionsTax))
			if err == nil && saving.IsPositive() {
				out = append(out, domain.Optimization{
					Kind:            "concessional_headroom",
					Year:            state.Year,
					Message:         fmt.Sprintf("%s of concessional cap unused; salary sacrifice is taxed at %s%% instead of %s%%", headroom.Round(), pct(au.SuperContributionsTax), pct(rate)),
					EstimatedSaving: saving.Round(),
				})
			}
		}
	}

	if state.RentalShortfall.IsPositive() {
		before, err := state.TaxableIncome.Add(state.RentalShortfall)
		if err == nil {
			if benefit, err := DeductionBenefit(e, state.RentalShortfall, before, r); err == nil {
				out = append(out, domain.Optimization{
					Kind:            "negative_gearing",
					Year:            state.Year,
					Message:         fmt.Sprintf("rental loss of %s deducted against other income", state.RentalShortfall.Round()),
					EstimatedSaving: benefit,
				})
			}
		}
	}
	return out
}

func unsupportedAccount(j domain.Jurisdiction, account domain.AccountType) error {
	return &domain.Error{
		Kind:    domain.KindInvalidComponentConfig,
		Message: fmt.Sprintf("account type %q is not available in %s", account, j),
	}
}

func minMoney(a, b money.Money) money.Money {
	m, err := money.Min(a, b)
	if err != nil {
		return a
	}
	return m
}

func pct(rate decimal.Decimal) string {
	return rate.Shift(2).StringFixedBank(1)
}
