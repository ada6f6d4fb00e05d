package calculation

import (
	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/rpgo/wealth-simulator/pkg/money"
	"github.com/shopspring/decimal"
)

// HousingState carries a property's running balances between years.
type HousingState struct {
	Purchased       bool
	Sold            bool
	Value           money.Money
	Loan            money.Money
	CostBase        money.Money
	RemainingMonths int
}

// HousingResult is one year's output plus the state to carry forward.
type HousingResult struct {
	Year  domain.HousingYear
	State HousingState
}

// HousingCalculator projects a property one year at a time.
type HousingCalculator struct{}

// CalculateYear returns the component's figures for sc.Year given the state
// left by the previous year. Configuration problems surface here, on first
// use, as InvalidComponentConfig errors.
func (HousingCalculator) CalculateYear(c *domain.HousingComponent, sc *ScenarioContext, prev HousingState) (HousingResult, error) {
	y := sc.Year
	state := prev
	zero := sc.zero()
	out := domain.HousingYear{
		ComponentID: c.ID, PropertyValue: zero, LoanBalance: zero, Equity: zero,
		InterestPaid: zero, PrincipalPaid: zero, GrossRent: zero, VacancyAllowance: zero,
		PropertyExpenses: zero, NetRentalIncome: zero, Deduction: zero, TaxBenefit: zero,
		CashFlow: zero, SaleProceeds: zero, CapitalGain: zero,
	}
	if !c.Active(y, sc.Horizon) || state.Sold {
		return HousingResult{Year: out, State: state}, nil
	}

	cash := money.NewTotal(sc.currency())
	if !state.Purchased {
		var outlay money.Money
		var err error
		if state, outlay, err = purchase(c, sc); err != nil {
			return HousingResult{}, err
		}
		cash.Sub(outlay)
	}

	interest, principal := zero, zero
	if state.Loan.IsPositive() {
		var months int
		var err error
		if c.InterestOnly {
			interest, err = state.Loan.Mul(*c.MortgageRate)
		} else {
			interest, principal, months, err = sc.schedules.amortize(c, state.Loan, state.RemainingMonths)
		}
		if err != nil {
			return HousingResult{}, err
		}
		if state.Loan, err = state.Loan.Sub(principal); err != nil {
			return HousingResult{}, err
		}
		state.RemainingMonths -= months
	}
	cash.Sub(interest, principal)

	growth := sc.returns().Return(y, c.Class(), c.AppreciationRate)
	value, err := state.Value.Mul(one.Add(growth))
	if err != nil {
		return HousingResult{}, err
	}
	state.Value = value

	elapsed := y - c.StartYear
	expenses, err := grow(sc, &c.AnnualExpenses, &c.ExpenseGrowth, elapsed)
	if err != nil {
		return HousingResult{}, err
	}
	cash.Sub(expenses)

	if c.Investment {
		gross, err := grow(sc, &c.AnnualRent, &c.RentGrowth, elapsed)
		if err != nil {
			return HousingResult{}, err
		}
		vacancy, err := gross.Mul(c.VacancyRate)
		if err != nil {
			return HousingResult{}, err
		}
		net, err := money.NewTotal(sc.currency()).Add(gross).Sub(vacancy, interest, expenses).Result()
		if err != nil {
			return HousingResult{}, err
		}
		cash.Add(gross).Sub(vacancy)
		out.GrossRent = gross.Round()
		out.VacancyAllowance = vacancy.Round()
		out.NetRentalIncome = net.Round()
		if net.IsNegative() && c.NegativeGearing {
			out.Deduction = net.Neg().Round()
		}
	}

	if y == c.End(sc.Horizon) && c.Disposed(sc.Horizon) {
		sale, err := sell(c, sc, &state)
		if err != nil {
			return HousingResult{}, err
		}
		cash.Add(sale.proceeds)
		out.Sold = true
		out.SaleProceeds = sale.proceeds.Round()
		out.HoldingMonths = sale.months
		if c.Investment {
			out.CapitalGain = sale.gain.Round()
		}
	}

	flow, err := cash.Result()
	if err != nil {
		return HousingResult{}, err
	}
	equity, err := state.Value.Sub(state.Loan)
	if err != nil {
		return HousingResult{}, err
	}
	out.PropertyValue = state.Value.Round()
	out.LoanBalance = state.Loan.Round()
	out.Equity = equity.Round()
	out.InterestPaid = interest.Round()
	out.PrincipalPaid = principal.Round()
	out.PropertyExpenses = expenses.Round()
	out.CashFlow = flow.Round()
	return HousingResult{Year: out, State: state}, nil
}

func purchase(c *domain.HousingComponent, sc *ScenarioContext) (HousingState, money.Money, error) {
	if c.NegativeGearing && sc.Input.Jurisdiction != domain.Australia {
		return HousingState{}, money.Money{}, domain.ComponentError(c.ID, "negative gearing is not available in %s", sc.Input.Jurisdiction)
	}
	if c.NegativeGearing && !c.Investment {
		return HousingState{}, money.Money{}, domain.ComponentError(c.ID, "negative gearing requires an investment property")
	}
	if c.Financed() {
		if c.MortgageRate == nil {
			return HousingState{}, money.Money{}, domain.ComponentError(c.ID, "mortgage rate required for a financed purchase")
		}
		if !c.InterestOnly && c.LoanTermYears <= 0 {
			return HousingState{}, money.Money{}, domain.ComponentError(c.ID, "loan term required for a principal and interest loan")
		}
	}
	price, err := sc.Input.Money(c.PurchasePrice)
	if err != nil {
		return HousingState{}, money.Money{}, err
	}
	deposit, err := sc.Input.Money(c.Deposit)
	if err != nil {
		return HousingState{}, money.Money{}, err
	}
	costs, err := sc.Input.Money(c.PurchaseCosts)
	if err != nil {
		return HousingState{}, money.Money{}, err
	}
	loan, err := price.Sub(deposit)
	if err != nil {
		return HousingState{}, money.Money{}, err
	}
	costBase, err := price.Add(costs)
	if err != nil {
		return HousingState{}, money.Money{}, err
	}
	outlay, err := deposit.Add(costs)
	if err != nil {
		return HousingState{}, money.Money{}, err
	}
	return HousingState{
		Purchased:       true,
		Value:           price,
		Loan:            loan,
		CostBase:        costBase,
		RemainingMonths: c.LoanTermYears * 12,
	}, outlay, nil
}

type saleResult struct {
	proceeds money.Money
	gain     money.Money
	months   int
}

// sell realizes the property at its end-of-year value, repays the loan and
// clears the state.
func sell(c *domain.HousingComponent, sc *ScenarioContext, state *HousingState) (saleResult, error) {
	costs, err := state.Value.Mul(c.SellingCostRate)
	if err != nil {
		return saleResult{}, err
	}
	proceeds, err := money.NewTotal(sc.currency()).Add(state.Value).Sub(costs, state.Loan).Result()
	if err != nil {
		return saleResult{}, err
	}
	gain, err := money.NewTotal(sc.currency()).Add(state.Value).Sub(costs, state.CostBase).Result()
	if err != nil {
		return saleResult{}, err
	}
	state.Sold = true
	state.Value = sc.zero()
	state.Loan = sc.zero()
	return saleResult{
		proceeds: proceeds,
		gain:     gain,
		months:   (c.End(sc.Horizon) - c.StartYear + 1) * 12,
	}, nil
}

// grow returns base × (1+rate)^years in the scenario currency. base and rate
// point into the scenario input.
func grow(sc *ScenarioContext, base, rate *decimal.Decimal, years int) (money.Money, error) {
	return sc.schedules.grown(sc.Input, base, rate, years)
}
