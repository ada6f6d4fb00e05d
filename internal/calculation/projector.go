package calculation

import (
	"context"
	"fmt"

	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/rpgo/wealth-simulator/internal/tax"
	"github.com/rpgo/wealth-simulator/pkg/money"
	"github.com/shopspring/decimal"
)

// ProjectorState is the lifecycle of a single projection run.
type ProjectorState int

const (
	StateInitialized ProjectorState = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s ProjectorState) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Projector drives one scenario through years 0..horizon. A Projector runs
// exactly once; create a new one for every run.
type Projector struct {
	input   *domain.ScenarioInput
	rules   *domain.TaxYearRules
	engine  tax.Engine
	returns ReturnSource
	horizon int
	lean    bool
	logger  Logger

	// Forks share the deterministic schedules of their parent.
	schedules *schedules

	state ProjectorState
	year  int
}

// ProjectorOption customises a Projector.
type ProjectorOption func(*Projector)

// WithReturns substitutes the source of annual returns.
func WithReturns(src ReturnSource) ProjectorOption {
	return func(p *Projector) { p.returns = src }
}

// WithHorizon overrides the scenario horizon. It must still cover every
// component's window.
func WithHorizon(years int) ProjectorOption {
	return func(p *Projector) {
		if years > 0 {
			p.horizon = years
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l Logger) ProjectorOption {
	return func(p *Projector) {
		if l != nil {
			p.logger = l
		}
	}
}

// Lean keeps only each year's net worth and cash. Per-component rows,
// warnings, optimization advice and the summary are skipped; Monte Carlo
// iterations only need the net worth path.
func Lean() ProjectorOption {
	return func(p *Projector) { p.lean = true }
}

// NewProjector validates the input against the rules and returns a projector
// ready to run. Validation failures are returned here, before any year is
// computed.
func NewProjector(input *domain.ScenarioInput, rules *domain.TaxYearRules, opts ...ProjectorOption) (*Projector, error) {
	if input == nil {
		return nil, domain.NewError(domain.KindInvalidInput, "scenario input is required")
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if rules == nil {
		return nil, domain.NewError(domain.KindRulesNotFound, "no tax rules for %s", input.RulesKey())
	}
	if rules.Jurisdiction != input.Jurisdiction {
		return nil, domain.NewError(domain.KindInvalidInput, "rules %s do not apply to jurisdiction %s", rules.Version(), input.Jurisdiction)
	}
	engine, err := tax.For(input.Jurisdiction)
	if err != nil {
		return nil, err
	}
	p := &Projector{
		input:   input,
		rules:   rules,
		engine:  engine,
		returns: ExpectedReturns{},
		horizon: input.HorizonYears,
		logger:  NopLogger{},

		schedules: newSchedules(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.horizon != input.HorizonYears {
		if err := checkHorizon(input, p.horizon); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func checkHorizon(in *domain.ScenarioInput, horizon int) error {
	if horizon > domain.MaxHorizonYears {
		return domain.FieldError("horizon_years", "must be at most %d", domain.MaxHorizonYears)
	}
	for i := range in.Housing {
		if h := &in.Housing[i]; h.StartYear > horizon || (h.EndYear != nil && *h.EndYear > horizon) {
			return domain.FieldError(fmt.Sprintf("housing[%d]", i), "window exceeds horizon %d", horizon)
		}
	}
	for i := range in.Investments {
		if c := &in.Investments[i]; c.StartYear > horizon || (c.EndYear != nil && *c.EndYear > horizon) {
			return domain.FieldError(fmt.Sprintf("investments[%d]", i), "window exceeds horizon %d", horizon)
		}
	}
	return nil
}

// Fork returns a fresh projector over the same validated input and rules.
// Options apply to the fork only.
func (p *Projector) Fork(opts ...ProjectorOption) *Projector {
	f := &Projector{
		input:   p.input,
		rules:   p.rules,
		engine:  p.engine,
		returns: p.returns,
		horizon: p.horizon,
		lean:    p.lean,
		logger:  p.logger,

		schedules: p.schedules,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// State reports where the projector is in its lifecycle.
func (p *Projector) State() ProjectorState { return p.state }

// Year is the year being computed while running, and the last year reached
// otherwise.
func (p *Projector) Year() int { return p.year }

// Run computes the projection. Any failure aborts the run with a
// ScenarioCalculationError naming the year and, where known, the component;
// no partial result is returned.
func (p *Projector) Run(ctx context.Context) (*domain.ScenarioResult, error) {
	if p.state != StateInitialized {
		return nil, domain.NewError(domain.KindInternal, "projector already %s", p.state)
	}
	p.state = StateRunning
	res, err := p.run(ctx)
	if err != nil {
		p.state = StateFailed
		p.logger.Debugf("scenario %s failed in year %d: %v", p.input.ID, p.year, err)
		return nil, err
	}
	p.state = StateCompleted
	return res, nil
}

// runState is everything carried from one year to the next.
type runState struct {
	cash        money.Money
	debt        money.Money
	taxPayable  money.Money
	housing     []HousingState
	investments []InvestmentState
}

func (p *Projector) run(ctx context.Context) (*domain.ScenarioResult, error) {
	in := p.input
	cur := in.Currency
	zero := money.Zero(cur)

	st := runState{
		housing:     make([]HousingState, len(in.Housing)),
		investments: make([]InvestmentState, len(in.Investments)),
		taxPayable:  zero,
	}
	var err error
	if st.cash, err = in.Money(in.StartingSavings); err != nil {
		return nil, domain.CalculationError(0, "", err)
	}
	if st.debt, err = in.Money(in.StartingDebt); err != nil {
		return nil, domain.CalculationError(0, "", err)
	}

	res := &domain.ScenarioResult{
		ScenarioID:   in.ID,
		Name:         in.Name,
		Jurisdiction: in.Jurisdiction,
		Currency:     cur,
		RulesVersion: p.rules.Version(),
		HorizonYears: p.horizon,
		Years:        make([]domain.YearlyProjection, 0, p.horizon+1),
	}
	var sum *summaryBuilder
	if !p.lean {
		sum = newSummaryBuilder(cur, in)
	}

	for y := 0; y <= p.horizon; y++ {
		p.year = y
		if err := ctx.Err(); err != nil {
			return nil, domain.Wrap(domain.KindCancelled, "projection cancelled", err)
		}
		out, err := p.step(y, &st)
		if err != nil {
			return nil, err
		}
		res.Years = append(res.Years, out.projection)
		if sum == nil {
			continue
		}
		res.Warnings = append(res.Warnings, out.warnings...)
		res.Optimizations = append(res.Optimizations, out.advice...)
		sum.add(out)
	}

	if sum != nil {
		if res.Summary, err = sum.build(); err != nil {
			return nil, domain.CalculationError(p.horizon, "", err)
		}
	}
	return res, nil
}

// yearTotals aggregates the component results of one year.
type yearTotals struct {
	flows         *money.Total
	otherIncome   *money.Total
	rentalIncome  *money.Total
	deductions    *money.Total
	shortfall     *money.Total
	equity        *money.Total
	portfolio     *money.Total
	contributions *money.Total
	franked       *money.Total
	unfranked     *money.Total
	contributed   map[string]money.Money
	gains         []domain.RealizedGain
	accounts      []domain.AccountType
}

func newYearTotals(cur string) *yearTotals {
	return &yearTotals{
		flows:         money.NewTotal(cur),
		otherIncome:   money.NewTotal(cur),
		rentalIncome:  money.NewTotal(cur),
		deductions:    money.NewTotal(cur),
		shortfall:     money.NewTotal(cur),
		equity:        money.NewTotal(cur),
		portfolio:     money.NewTotal(cur),
		contributions: money.NewTotal(cur),
		franked:       money.NewTotal(cur),
		unfranked:     money.NewTotal(cur),
		contributed:   make(map[string]money.Money),
	}
}

// yearOutcome is what one step adds to the result.
type yearOutcome struct {
	projection  domain.YearlyProjection
	warnings    []domain.Warning
	advice      []domain.Optimization
	contributed money.Money
}

// step computes year y and advances st.
func (p *Projector) step(y int, st *runState) (yearOutcome, error) {
	in := p.input
	cur := in.Currency
	fail := func(component string, err error) (yearOutcome, error) {
		return yearOutcome{}, domain.CalculationError(y, component, err)
	}

	sc := &ScenarioContext{
		Input:   in,
		Rules:   p.rules,
		Engine:  p.engine,
		Returns: p.returns,
		Horizon: p.horizon,
		Year:    y,
		Age:     in.StartAge + y,
		CapRoom: make(map[string]money.Money),

		schedules: p.schedules,
	}

	salary, err := grow(sc, &in.AnnualIncome, &in.IncomeGrowth, y)
	if err != nil {
		return fail("", err)
	}
	expenses, err := grow(sc, &in.AnnualExpenses, &in.ExpenseInflation, y)
	if err != nil {
		return fail("", err)
	}
	debtService, err := p.serviceDebt(st)
	if err != nil {
		return fail("", err)
	}
	interest, err := money.Max0(st.cash).Mul(in.SavingsRate)
	if err != nil {
		return fail("", err)
	}

	t := newYearTotals(cur)
	t.otherIncome.Add(interest)
	var warnings []domain.Warning

	housingRows := make([]domain.HousingYear, 0, len(in.Housing))
	for i := range in.Housing {
		c := &in.Housing[i]
		r, err := HousingCalculator{}.CalculateYear(c, sc, st.housing[i])
		if err != nil {
			return fail(c.ID, err)
		}
		st.housing[i] = r.State
		hy := r.Year
		t.flows.Add(hy.CashFlow)
		t.equity.Add(hy.Equity)
		if c.Investment {
			received, err := hy.GrossRent.Sub(hy.VacancyAllowance)
			if err != nil {
				return fail(c.ID, err)
			}
			t.otherIncome.Add(received)
			if hy.NetRentalIncome.IsPositive() {
				t.rentalIncome.Add(hy.NetRentalIncome)
			}
			// Losses on properties that are not negatively geared are
			// quarantined and never reach the tax engine.
			t.deductions.Add(hy.Deduction)
			t.shortfall.Add(hy.Deduction)
			if hy.Sold {
				t.gains = append(t.gains, domain.RealizedGain{Component: c.ID, Amount: hy.CapitalGain, HoldingMonths: hy.HoldingMonths})
			}
		}
		if c.Active(y, p.horizon) {
			housingRows = append(housingRows, hy)
		}
	}

	investmentRows := make([]domain.InvestmentYear, 0, len(in.Investments))
	for i := range in.Investments {
		c := &in.Investments[i]
		r, err := InvestmentCalculator{}.CalculateYear(c, sc, st.investments[i])
		if err != nil {
			return fail(c.ID, err)
		}
		st.investments[i] = r.State
		iy := r.Year
		if err := capRoomAfter(sc.CapRoom, r); err != nil {
			return fail(c.ID, err)
		}
		if iy.Clamped && !p.lean {
			w, err := clampWarning(y, c.ID, iy, r.Limit)
			if err != nil {
				return fail(c.ID, err)
			}
			warnings = append(warnings, w)
			p.logger.Debugf("year %d: %s contribution clamped to %s", y, c.ID, iy.Contribution)
		}
		t.flows.Add(iy.CashFlow)
		t.contributions.Add(iy.Contribution)
		t.portfolio.Add(iy.Balance)
		t.otherIncome.Add(iy.TaxableDividends)
		t.deductions.Add(iy.DeductibleContribution)
		if iy.Franked {
			t.franked.Add(iy.TaxableDividends)
		} else {
			t.unfranked.Add(iy.TaxableDividends)
		}
		if r.Treatment.CapGroup != "" && iy.Contribution.IsPositive() {
			prev, ok := t.contributed[r.Treatment.CapGroup]
			if !ok {
				prev = money.Zero(cur)
			}
			if t.contributed[r.Treatment.CapGroup], err = prev.Add(iy.Contribution); err != nil {
				return fail(c.ID, err)
			}
		}
		if iy.Sold && !r.Treatment.Sheltered {
			t.gains = append(t.gains, domain.RealizedGain{Component: c.ID, Amount: iy.CapitalGain, HoldingMonths: iy.HoldingMonths})
		}
		if c.Active(y, p.horizon) {
			t.accounts = append(t.accounts, c.AccountType)
			investmentRows = append(investmentRows, iy)
		}
	}

	yp, err := p.assess(y, sc, st, t, salary, expenses, debtService, interest)
	if err != nil {
		return fail("", err)
	}
	if p.lean {
		return yearOutcome{projection: yp}, nil
	}
	if yp.Cash.IsNegative() {
		warnings = append(warnings, domain.Warning{
			Kind:      domain.WarningCashShortfall,
			Year:      y,
			Message:   fmt.Sprintf("cash balance falls to %s", yp.Cash),
			Requested: money.Zero(cur),
			Limit:     money.Zero(cur),
			Excess:    yp.Cash.Neg(),
		})
	}

	yp.Housing = housingRows
	yp.Investments = investmentRows
	for i, hy := range yp.Housing {
		if !hy.Deduction.IsPositive() {
			continue
		}
		before, err := yp.TaxableIncome.Add(yp.Deductions)
		if err != nil {
			return fail(hy.ComponentID, err)
		}
		benefit, err := tax.DeductionBenefit(p.engine, hy.Deduction, before, p.rules)
		if err != nil {
			return fail(hy.ComponentID, err)
		}
		yp.Housing[i].TaxBenefit = benefit
	}
	state, err := t.yearState(y, sc.Age, yp)
	if err != nil {
		return fail("", err)
	}
	advice := p.engine.SuggestOptimizations(state, p.rules)

	contributed, err := t.contributions.Result()
	if err != nil {
		return fail("", err)
	}
	return yearOutcome{projection: yp, warnings: warnings, advice: advice, contributed: contributed}, nil
}

// serviceDebt accrues a year's interest on personal debt and applies the
// scheduled repayment, never paying more than is owed.
func (p *Projector) serviceDebt(st *runState) (money.Money, error) {
	in := p.input
	interest, err := st.debt.Mul(in.DebtInterestRate)
	if err != nil {
		return money.Money{}, err
	}
	owed, err := st.debt.Add(interest)
	if err != nil {
		return money.Money{}, err
	}
	scheduled, err := in.Money(in.DebtRepayment)
	if err != nil {
		return money.Money{}, err
	}
	repayment, err := money.Min(scheduled, owed)
	if err != nil {
		return money.Money{}, err
	}
	if st.debt, err = owed.Sub(repayment); err != nil {
		return money.Money{}, err
	}
	return repayment, nil
}

// assess runs the tax engine over the year's totals, pays last year's tax
// from cash and settles the balance sheet.
func (p *Projector) assess(y int, sc *ScenarioContext, st *runState, t *yearTotals, salary, expenses, debtService, interest money.Money) (domain.YearlyProjection, error) {
	cur := p.input.Currency
	var yp domain.YearlyProjection

	other, err := t.otherIncome.Result()
	if err != nil {
		return yp, err
	}
	deductions, err := t.deductions.Result()
	if err != nil {
		return yp, err
	}
	rental, err := t.rentalIncome.Result()
	if err != nil {
		return yp, err
	}
	assessable, err := money.Sum(cur, salary, interest, rental)
	if err != nil {
		return yp, err
	}
	taxable, err := assessable.Sub(deductions)
	if err != nil {
		return yp, err
	}
	taxable = money.Max0(taxable)

	incomeTax, err := p.engine.IncomeTax(taxable, p.rules)
	if err != nil {
		return yp, err
	}
	franked, err := t.franked.Result()
	if err != nil {
		return yp, err
	}
	unfranked, err := t.unfranked.Result()
	if err != nil {
		return yp, err
	}
	frankedTax, err := p.engine.InvestmentTax(franked, true, taxable, p.rules)
	if err != nil {
		return yp, err
	}
	stacked, err := taxable.Add(franked)
	if err != nil {
		return yp, err
	}
	unfrankedTax, err := p.engine.InvestmentTax(unfranked, false, stacked, p.rules)
	if err != nil {
		return yp, err
	}
	investmentTax, err := frankedTax.Add(unfrankedTax)
	if err != nil {
		return yp, err
	}
	if stacked, err = stacked.Add(unfranked); err != nil {
		return yp, err
	}
	gainsTax := money.Zero(cur)
	if len(t.gains) > 0 {
		if gainsTax, err = p.engine.RealizedGainsTax(t.gains, stacked, p.rules); err != nil {
			return yp, err
		}
	}
	payable, err := money.Sum(cur, incomeTax, investmentTax, gainsTax)
	if err != nil {
		return yp, err
	}

	// Last year's liability is settled from this year's cash.
	paid := st.taxPayable
	flows, err := t.flows.Result()
	if err != nil {
		return yp, err
	}
	cash, err := money.NewTotal(cur).Add(st.cash, salary, interest, flows).Sub(expenses, debtService, paid).Result()
	if err != nil {
		return yp, err
	}
	st.cash = cash
	st.taxPayable = payable

	equity, err := t.equity.Result()
	if err != nil {
		return yp, err
	}
	portfolio, err := t.portfolio.Result()
	if err != nil {
		return yp, err
	}
	netWorth, err := money.NewTotal(cur).Add(cash, equity, portfolio).Sub(st.debt, payable).Result()
	if err != nil {
		return yp, err
	}
	if p.lean {
		return domain.YearlyProjection{Year: y, Age: sc.Age, Cash: cash.Round(), NetWorth: netWorth.Round()}, nil
	}
	total, err := salary.Add(other)
	if err != nil {
		return yp, err
	}

	return domain.YearlyProjection{
		Year:            y,
		Age:             sc.Age,
		Salary:          salary.Round(),
		OtherIncome:     other.Round(),
		TotalIncome:     total.Round(),
		Expenses:        expenses.Round(),
		DebtService:     debtService.Round(),
		Deductions:      deductions.Round(),
		TaxableIncome:   taxable.Round(),
		IncomeTax:       incomeTax.Round(),
		InvestmentTax:   investmentTax.Round(),
		CapitalGainsTax: gainsTax.Round(),
		TaxPayable:      payable.Round(),
		TaxPaid:         paid.Round(),
		Cash:            cash.Round(),
		PropertyEquity:  equity.Round(),
		PortfolioValue:  portfolio.Round(),
		Debt:            st.debt.Round(),
		NetWorth:        netWorth.Round(),
	}, nil
}

func (t *yearTotals) yearState(y, age int, yp domain.YearlyProjection) (domain.YearState, error) {
	shortfall, err := t.shortfall.Result()
	if err != nil {
		return domain.YearState{}, err
	}
	franked, err := t.franked.Result()
	if err != nil {
		return domain.YearState{}, err
	}
	unfranked, err := t.unfranked.Result()
	if err != nil {
		return domain.YearState{}, err
	}
	dividends, err := franked.Add(unfranked)
	if err != nil {
		return domain.YearState{}, err
	}
	gains := money.NewTotal(yp.TaxableIncome.Currency())
	for _, g := range t.gains {
		gains.Add(g.Amount)
	}
	realized, err := gains.Result()
	if err != nil {
		return domain.YearState{}, err
	}
	return domain.YearState{
		Year:                 y,
		Age:                  age,
		TaxableIncome:        yp.TaxableIncome,
		Dividends:            dividends,
		OrdinaryDividends:    unfranked,
		RentalShortfall:      shortfall,
		RealizedGains:        realized,
		ContributionsByGroup: t.contributed,
		Accounts:             t.accounts,
	}, nil
}

func clampWarning(y int, component string, iy domain.InvestmentYear, limit money.Money) (domain.Warning, error) {
	excess, err := iy.RequestedContribution.Sub(iy.Contribution)
	if err != nil {
		return domain.Warning{}, err
	}
	return domain.Warning{
		Kind:      domain.WarningContributionLimitExceeded,
		Year:      y,
		Component: component,
		Message: fmt.Sprintf("requested %s exceeds the %s cap of %s; contributed %s",
			iy.RequestedContribution, iy.AccountType, limit.Round(), iy.Contribution),
		Requested: iy.RequestedContribution,
		Limit:     limit.Round(),
		Excess:    excess,
	}, nil
}

// summaryBuilder condenses the trajectory as years are appended.
type summaryBuilder struct {
	goal          money.Money
	hasGoal       bool
	first         bool
	s             domain.Summary
	tax           *money.Total
	income        *money.Total
	contributions *money.Total
}

func newSummaryBuilder(cur string, in *domain.ScenarioInput) *summaryBuilder {
	b := &summaryBuilder{
		first:         true,
		tax:           money.NewTotal(cur),
		income:        money.NewTotal(cur),
		contributions: money.NewTotal(cur),
		s:             domain.Summary{GoalReachedYear: -1},
	}
	if in.GoalAmount.IsPositive() {
		b.goal, _ = in.Money(in.GoalAmount)
		b.hasGoal = true
	}
	return b
}

func (b *summaryBuilder) add(out yearOutcome) {
	yp := out.projection
	b.tax.Add(yp.TaxPayable)
	b.income.Add(yp.TotalIncome)
	b.contributions.Add(out.contributed)
	b.s.FinalNetWorth = yp.NetWorth
	if b.first || yp.NetWorth.Amount().GreaterThan(b.s.PeakNetWorth.Amount()) {
		b.s.PeakNetWorth = yp.NetWorth
		b.s.PeakYear = yp.Year
		b.first = false
	}
	if yp.Cash.IsNegative() {
		b.s.ShortfallYears++
	}
	if b.hasGoal && !b.s.GoalReached && !yp.NetWorth.Amount().LessThan(b.goal.Amount()) {
		b.s.GoalReached = true
		b.s.GoalReachedYear = yp.Year
	}
}

func (b *summaryBuilder) build() (domain.Summary, error) {
	var err error
	if b.s.TotalTax, err = b.tax.Result(); err != nil {
		return domain.Summary{}, err
	}
	if b.s.TotalContributions, err = b.contributions.Result(); err != nil {
		return domain.Summary{}, err
	}
	income, err := b.income.Result()
	if err != nil {
		return domain.Summary{}, err
	}
	b.s.EffectiveTaxRate = decimal.Zero
	if income.IsPositive() {
		b.s.EffectiveTaxRate = b.s.TotalTax.Amount().DivRound(income.Amount(), 4)
	}
	return b.s, nil
}
