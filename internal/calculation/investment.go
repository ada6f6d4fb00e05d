package calculation

import (
	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/rpgo/wealth-simulator/internal/tax"
	"github.com/rpgo/wealth-simulator/pkg/money"
)

// InvestmentState carries a portfolio's running balances between years.
type InvestmentState struct {
	Opened   bool
	Sold     bool
	Balance  money.Money
	CostBase money.Money
}

// InvestmentResult is one year's output plus the state to carry forward.
type InvestmentResult struct {
	Year      domain.InvestmentYear
	State     InvestmentState
	Treatment tax.AccountTreatment
	// Limit is the cap applied to the contribution when Capped is set.
	Limit  money.Money
	Capped bool
}

// InvestmentCalculator projects a portfolio one year at a time.
//
// Contributions arrive evenly through the year, so on average half of the
// year's contribution earns the year's return. Dividends are the yield
// portion of that return; they are reinvested and, outside sheltered
// accounts, added to the cost base because they are taxed as received.
type InvestmentCalculator struct{}

// CalculateYear returns the component's figures for sc.Year. The requested
// contribution is clamped to sc.CapRoom for the account's cap group.
func (InvestmentCalculator) CalculateYear(c *domain.InvestmentComponent, sc *ScenarioContext, prev InvestmentState) (InvestmentResult, error) {
	y := sc.Year
	state := prev
	zero := sc.zero()
	out := domain.InvestmentYear{
		ComponentID: c.ID, AccountType: c.AccountType,
		RequestedContribution: zero, Contribution: zero, DeductibleContribution: zero,
		Growth: zero, Dividends: zero, TaxableDividends: zero, Fees: zero,
		Balance: zero, CostBase: zero, CashFlow: zero, Withdrawal: zero, CapitalGain: zero,
	}
	treatment, err := sc.Engine.AccountTreatment(c.AccountType)
	if err != nil {
		return InvestmentResult{}, accountError(c, err)
	}
	result := InvestmentResult{Treatment: treatment, Limit: zero}
	if !c.Active(y, sc.Horizon) || state.Sold {
		out.Balance = state.Balance.Round()
		out.CostBase = state.CostBase.Round()
		result.Year, result.State = out, state
		return result, nil
	}

	cash := money.NewTotal(sc.currency())
	if !state.Opened {
		initial, err := sc.Input.Money(c.InitialBalance)
		if err != nil {
			return InvestmentResult{}, err
		}
		state = InvestmentState{Opened: true, Balance: initial, CostBase: initial}
		if y > 0 {
			// Balances opened later are funded from savings.
			cash.Sub(initial)
		}
	}

	requested, err := annualContribution(sc, c)
	if err != nil {
		return InvestmentResult{}, err
	}
	contribution := requested
	limit, capped, err := sc.Engine.ContributionLimit(c.AccountType, sc.Age, sc.Rules)
	if err != nil {
		return InvestmentResult{}, accountError(c, err)
	}
	if capped {
		room := limit
		if r, ok := sc.CapRoom[treatment.CapGroup]; ok {
			room = r
		}
		if contribution, err = money.Min(requested, money.Max0(room)); err != nil {
			return InvestmentResult{}, err
		}
		result.Limit, result.Capped = limit, true
		out.Clamped = !contribution.Equal(requested)
	}
	cash.Sub(contribution)

	half, err := contribution.Div(two)
	if err != nil {
		return InvestmentResult{}, err
	}
	earning, err := state.Balance.Add(half)
	if err != nil {
		return InvestmentResult{}, err
	}
	rate := sc.returns().Return(y, c.Class(), c.ExpectedReturn)
	growth, err := earning.Mul(rate)
	if err != nil {
		return InvestmentResult{}, err
	}
	dividends, err := money.Max0(earning).Mul(c.DividendYield)
	if err != nil {
		return InvestmentResult{}, err
	}
	gross, err := money.Sum(sc.currency(), state.Balance, contribution, growth)
	if err != nil {
		return InvestmentResult{}, err
	}
	fees, err := money.Max0(gross).Mul(c.FeeRate)
	if err != nil {
		return InvestmentResult{}, err
	}
	balance, err := gross.Sub(fees)
	if err != nil {
		return InvestmentResult{}, err
	}
	state.Balance = money.Max0(balance)

	costBase := money.NewTotal(sc.currency()).Add(state.CostBase, contribution)
	if !treatment.Sheltered {
		costBase.Add(dividends)
		out.TaxableDividends = dividends.Round()
		out.Franked = c.Franked
	}
	if state.CostBase, err = costBase.Result(); err != nil {
		return InvestmentResult{}, err
	}

	if y == c.End(sc.Horizon) && c.Disposed(sc.Horizon) {
		gain, err := state.Balance.Sub(state.CostBase)
		if err != nil {
			return InvestmentResult{}, err
		}
		cash.Add(state.Balance)
		out.Sold = true
		out.Withdrawal = state.Balance.Round()
		out.HoldingMonths = (c.End(sc.Horizon) - c.StartYear + 1) * 12
		if !treatment.Sheltered {
			out.CapitalGain = gain.Round()
		}
		state = InvestmentState{Opened: true, Sold: true, Balance: zero, CostBase: zero}
	}

	flow, err := cash.Result()
	if err != nil {
		return InvestmentResult{}, err
	}
	out.RequestedContribution = requested.Round()
	out.Contribution = contribution.Round()
	if treatment.Deductible {
		out.DeductibleContribution = contribution.Round()
	}
	out.Growth = growth.Round()
	out.Dividends = dividends.Round()
	out.Fees = fees.Round()
	out.Balance = state.Balance.Round()
	out.CostBase = state.CostBase.Round()
	out.CashFlow = flow.Round()
	result.Year, result.State = out, state
	return result, nil
}

// annualContribution is monthly × 12 × (1+growth)^year.
func annualContribution(sc *ScenarioContext, c *domain.InvestmentComponent) (money.Money, error) {
	monthly, err := sc.Input.Money(c.MonthlyContribution)
	if err != nil {
		return money.Money{}, err
	}
	return monthly.Mul(twelve.Mul(sc.schedules.factor(&c.ContributionGrowth, sc.Year)))
}

// capRoomAfter reduces a group's remaining room by an accepted contribution.
func capRoomAfter(room map[string]money.Money, r InvestmentResult) error {
	if !r.Capped {
		return nil
	}
	left, ok := room[r.Treatment.CapGroup]
	if !ok {
		left = r.Limit
	}
	next, err := left.Sub(r.Year.Contribution)
	if err != nil {
		return err
	}
	room[r.Treatment.CapGroup] = money.Max0(next)
	return nil
}

func accountError(c *domain.InvestmentComponent, err error) error {
	return &domain.Error{
		Kind:      domain.KindInvalidComponentConfig,
		Component: c.ID,
		Message:   "account type " + string(c.AccountType),
		Cause:     err,
	}
}
