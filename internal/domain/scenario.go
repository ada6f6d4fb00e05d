package domain

import (
	"fmt"

	"github.com/rpgo/wealth-simulator/pkg/money"
	"github.com/shopspring/decimal"
)

// MaxHorizonYears bounds the projection horizon.
const MaxHorizonYears = 60

// ScenarioInput is one strategy to project. Amounts are in Currency; rates
// are annual fractions (0.05 = 5%). Components are not modified once a run
// starts.
type ScenarioInput struct {
	ID           string       `yaml:"id" json:"id"`
	Name         string       `yaml:"name" json:"name"`
	Jurisdiction Jurisdiction `yaml:"jurisdiction" json:"jurisdiction"`
	Currency     string       `yaml:"currency" json:"currency"`
	TaxYear      int          `yaml:"tax_year" json:"tax_year"`
	HorizonYears int          `yaml:"horizon_years" json:"horizon_years"`
	StartAge     int          `yaml:"start_age" json:"start_age"`

	AnnualIncome     decimal.Decimal `yaml:"annual_income" json:"annual_income"`
	IncomeGrowth     decimal.Decimal `yaml:"income_growth" json:"income_growth"`
	AnnualExpenses   decimal.Decimal `yaml:"annual_expenses" json:"annual_expenses"`
	ExpenseInflation decimal.Decimal `yaml:"expense_inflation" json:"expense_inflation"`
	StartingSavings  decimal.Decimal `yaml:"starting_savings" json:"starting_savings"`
	SavingsRate      decimal.Decimal `yaml:"savings_rate" json:"savings_rate"`
	StartingDebt     decimal.Decimal `yaml:"starting_debt" json:"starting_debt"`
	DebtInterestRate decimal.Decimal `yaml:"debt_interest_rate" json:"debt_interest_rate"`
	DebtRepayment    decimal.Decimal `yaml:"debt_repayment" json:"debt_repayment"`
	GoalAmount       decimal.Decimal `yaml:"goal_amount" json:"goal_amount"`

	Housing     []HousingComponent    `yaml:"housing,omitempty" json:"housing,omitempty"`
	Investments []InvestmentComponent `yaml:"investments,omitempty" json:"investments,omitempty"`
}

// HousingComponent is a property purchased at StartYear. A financed purchase
// (deposit below price) needs MortgageRate and LoanTermYears; that is checked
// when the component is first projected so templates can omit them.
type HousingComponent struct {
	ID               string           `yaml:"id" json:"id"`
	Name             string           `yaml:"name,omitempty" json:"name,omitempty"`
	StartYear        int              `yaml:"start_year" json:"start_year"`
	EndYear          *int             `yaml:"end_year,omitempty" json:"end_year,omitempty"`
	PurchasePrice    decimal.Decimal  `yaml:"purchase_price" json:"purchase_price"`
	Deposit          decimal.Decimal  `yaml:"deposit" json:"deposit"`
	PurchaseCosts    decimal.Decimal  `yaml:"purchase_costs" json:"purchase_costs"`
	MortgageRate     *decimal.Decimal `yaml:"mortgage_rate,omitempty" json:"mortgage_rate,omitempty"`
	LoanTermYears    int              `yaml:"loan_term_years,omitempty" json:"loan_term_years,omitempty"`
	InterestOnly     bool             `yaml:"interest_only,omitempty" json:"interest_only,omitempty"`
	AppreciationRate decimal.Decimal  `yaml:"appreciation_rate" json:"appreciation_rate"`
	Investment       bool             `yaml:"investment,omitempty" json:"investment,omitempty"`
	AnnualRent       decimal.Decimal  `yaml:"annual_rent" json:"annual_rent"`
	RentGrowth       decimal.Decimal  `yaml:"rent_growth" json:"rent_growth"`
	VacancyRate      decimal.Decimal  `yaml:"vacancy_rate" json:"vacancy_rate"`
	AnnualExpenses   decimal.Decimal  `yaml:"annual_expenses" json:"annual_expenses"`
	ExpenseGrowth    decimal.Decimal  `yaml:"expense_growth" json:"expense_growth"`
	NegativeGearing  bool             `yaml:"negative_gearing,omitempty" json:"negative_gearing,omitempty"`
	SellAtEnd        bool             `yaml:"sell_at_end,omitempty" json:"sell_at_end,omitempty"`
	SellingCostRate  decimal.Decimal  `yaml:"selling_cost_rate" json:"selling_cost_rate"`
	AssetClass       AssetClass       `yaml:"asset_class,omitempty" json:"asset_class,omitempty"`
}

// InvestmentComponent is a portfolio held in one account type. Franked means
// franked dividends in AU and qualified dividends in the US; UK ignores it.
type InvestmentComponent struct {
	ID                  string          `yaml:"id" json:"id"`
	Name                string          `yaml:"name,omitempty" json:"name,omitempty"`
	AccountType         AccountType     `yaml:"account_type" json:"account_type"`
	StartYear           int             `yaml:"start_year" json:"start_year"`
	EndYear             *int            `yaml:"end_year,omitempty" json:"end_year,omitempty"`
	InitialBalance      decimal.Decimal `yaml:"initial_balance" json:"initial_balance"`
	MonthlyContribution decimal.Decimal `yaml:"monthly_contribution" json:"monthly_contribution"`
	ContributionGrowth  decimal.Decimal `yaml:"contribution_growth" json:"contribution_growth"`
	ExpectedReturn      decimal.Decimal `yaml:"expected_return" json:"expected_return"`
	DividendYield       decimal.Decimal `yaml:"dividend_yield" json:"dividend_yield"`
	FeeRate             decimal.Decimal `yaml:"fee_rate" json:"fee_rate"`
	Franked             bool            `yaml:"franked,omitempty" json:"franked,omitempty"`
	SellAtEnd           bool            `yaml:"sell_at_end,omitempty" json:"sell_at_end,omitempty"`
	AssetClass          AssetClass      `yaml:"asset_class,omitempty" json:"asset_class,omitempty"`
}

// Money lifts an input amount into the scenario currency.
func (s *ScenarioInput) Money(d decimal.Decimal) (money.Money, error) {
	return money.New(d, s.Currency)
}

// RulesKey is the rules snapshot the scenario is projected under.
func (s *ScenarioInput) RulesKey() RulesKey {
	return RulesKey{Jurisdiction: s.Jurisdiction, Year: s.TaxYear}
}

// End resolves the last active year; an unset EndYear runs to the horizon.
func (h *HousingComponent) End(horizon int) int { return endYear(h.EndYear, horizon) }

// Class defaults to property.
func (h *HousingComponent) Class() AssetClass {
	if h.AssetClass == "" {
		return AssetProperty
	}
	return h.AssetClass
}

// Financed reports whether the purchase needs a loan.
func (h *HousingComponent) Financed() bool { return h.Deposit.LessThan(h.PurchasePrice) }

// Active reports whether the property is held during year.
func (h *HousingComponent) Active(year, horizon int) bool {
	return year >= h.StartYear && year <= h.End(horizon)
}

// End resolves the last active year; an unset EndYear runs to the horizon.
func (c *InvestmentComponent) End(horizon int) int { return endYear(c.EndYear, horizon) }

// Class defaults to equity.
func (c *InvestmentComponent) Class() AssetClass {
	if c.AssetClass == "" {
		return AssetEquity
	}
	return c.AssetClass
}

// Active reports whether the portfolio is held during year.
func (c *InvestmentComponent) Active(year, horizon int) bool {
	return year >= c.StartYear && year <= c.End(horizon)
}

// Components ending before the horizon are always sold.
func disposed(end, horizon int, sellAtEnd bool) bool { return end < horizon || sellAtEnd }

// Disposed reports whether the property is sold at the end of its window.
func (h *HousingComponent) Disposed(horizon int) bool {
	return disposed(h.End(horizon), horizon, h.SellAtEnd)
}

// Disposed reports whether the holding is liquidated at the end of its window.
func (c *InvestmentComponent) Disposed(horizon int) bool {
	return disposed(c.End(horizon), horizon, c.SellAtEnd)
}

func endYear(end *int, horizon int) int {
	if end == nil {
		return horizon
	}
	return *end
}

var (
	zero    = decimal.Zero
	one     = decimal.NewFromInt(1)
	minRate = decimal.NewFromInt(-1)
)

// Validate rejects malformed input before any computation starts. The first
// problem found is returned with its field path.
func (s *ScenarioInput) Validate() error {
	if !s.Jurisdiction.Valid() {
		return &Error{Kind: KindUnsupportedJurisdiction, Field: "jurisdiction", Message: fmt.Sprintf("unsupported jurisdiction %q", s.Jurisdiction)}
	}
	if _, err := money.New(zero, s.Currency); err != nil {
		return &Error{Kind: KindInvalidInput, Field: "currency", Message: "unknown currency", Cause: err}
	}
	if s.Currency != s.Jurisdiction.Currency() {
		return &Error{
			Kind:    KindCurrencyMismatch,
			Field:   "currency",
			Message: fmt.Sprintf("%s rules are expressed in %s, scenario uses %s", s.Jurisdiction, s.Jurisdiction.Currency(), s.Currency),
		}
	}
	if s.TaxYear <= 0 {
		return FieldError("tax_year", "must be set")
	}
	if s.HorizonYears < 1 || s.HorizonYears > MaxHorizonYears {
		return FieldError("horizon_years", "must be between 1 and %d, got %d", MaxHorizonYears, s.HorizonYears)
	}
	if s.StartAge < 0 || s.StartAge > 120 {
		return FieldError("start_age", "must be between 0 and 120")
	}

	amounts := []struct {
		field string
		value decimal.Decimal
	}{
		{"annual_income", s.AnnualIncome},
		{"annual_expenses", s.AnnualExpenses},
		{"starting_savings", s.StartingSavings},
		{"starting_debt", s.StartingDebt},
		{"debt_repayment", s.DebtRepayment},
		{"goal_amount", s.GoalAmount},
	}
	for _, a := range amounts {
		if err := nonNegative(a.field, a.value, s.Currency); err != nil {
			return err
		}
	}
	growth := []struct {
		field string
		value decimal.Decimal
	}{
		{"income_growth", s.IncomeGrowth},
		{"expense_inflation", s.ExpenseInflation},
		{"savings_rate", s.SavingsRate},
		{"debt_interest_rate", s.DebtInterestRate},
	}
	for _, g := range growth {
		if err := rateAbove(g.field, g.value, minRate); err != nil {
			return err
		}
	}

	ids := make(map[string]string)
	for i := range s.Housing {
		if err := s.validateHousing(i, ids); err != nil {
			return err
		}
	}
	for i := range s.Investments {
		if err := s.validateInvestment(i, ids); err != nil {
			return err
		}
	}
	return nil
}

func (s *ScenarioInput) validateHousing(i int, ids map[string]string) error {
	h := &s.Housing[i]
	path := fmt.Sprintf("housing[%d]", i)
	if err := s.validateWindow(path, h.ID, h.StartYear, h.EndYear, ids); err != nil {
		return err
	}
	if !h.PurchasePrice.IsPositive() {
		return FieldError(path+".purchase_price", "must be positive")
	}
	for _, a := range []struct {
		field string
		value decimal.Decimal
	}{
		{".deposit", h.Deposit},
		{".purchase_costs", h.PurchaseCosts},
		{".annual_rent", h.AnnualRent},
		{".annual_expenses", h.AnnualExpenses},
	} {
		if err := nonNegative(path+a.field, a.value, s.Currency); err != nil {
			return err
		}
	}
	if h.Deposit.GreaterThan(h.PurchasePrice) {
		return FieldError(path+".deposit", "cannot exceed purchase price")
	}
	if h.MortgageRate != nil && h.MortgageRate.IsNegative() {
		return FieldError(path+".mortgage_rate", "cannot be negative")
	}
	if h.LoanTermYears < 0 {
		return FieldError(path+".loan_term_years", "cannot be negative")
	}
	if err := unitRate(path+".vacancy_rate", h.VacancyRate); err != nil {
		return err
	}
	if err := unitRate(path+".selling_cost_rate", h.SellingCostRate); err != nil {
		return err
	}
	for _, g := range []struct {
		field string
		value decimal.Decimal
	}{
		{".appreciation_rate", h.AppreciationRate},
		{".rent_growth", h.RentGrowth},
		{".expense_growth", h.ExpenseGrowth},
	} {
		if err := rateAbove(path+g.field, g.value, minRate); err != nil {
			return err
		}
	}
	if h.AssetClass != "" && !h.AssetClass.Valid() {
		return FieldError(path+".asset_class", "unknown asset class %q", h.AssetClass)
	}
	return nil
}

func (s *ScenarioInput) validateInvestment(i int, ids map[string]string) error {
	c := &s.Investments[i]
	path := fmt.Sprintf("investments[%d]", i)
	if err := s.validateWindow(path, c.ID, c.StartYear, c.EndYear, ids); err != nil {
		return err
	}
	if c.AccountType == "" {
		return FieldError(path+".account_type", "required")
	}
	for _, a := range []struct {
		field string
		value decimal.Decimal
	}{
		{".initial_balance", c.InitialBalance},
		{".monthly_contribution", c.MonthlyContribution},
	} {
		if err := nonNegative(path+a.field, a.value, s.Currency); err != nil {
			return err
		}
	}
	if err := rateAbove(path+".contribution_growth", c.ContributionGrowth, minRate); err != nil {
		return err
	}
	if err := rateAbove(path+".expected_return", c.ExpectedReturn, minRate); err != nil {
		return err
	}
	if err := unitRate(path+".dividend_yield", c.DividendYield); err != nil {
		return err
	}
	if err := unitRate(path+".fee_rate", c.FeeRate); err != nil {
		return err
	}
	if c.AssetClass != "" && !c.AssetClass.Valid() {
		return FieldError(path+".asset_class", "unknown asset class %q", c.AssetClass)
	}
	return nil
}

func (s *ScenarioInput) validateWindow(path, id string, start int, end *int, ids map[string]string) error {
	if id == "" {
		return FieldError(path+".id", "required")
	}
	if prev, dup := ids[id]; dup {
		return FieldError(path+".id", "duplicate component id %q (also %s)", id, prev)
	}
	ids[id] = path
	if start < 0 || start > s.HorizonYears {
		return FieldError(path+".start_year", "must be within [0, %d], got %d", s.HorizonYears, start)
	}
	last := endYear(end, s.HorizonYears)
	if last < start || last > s.HorizonYears {
		return FieldError(path+".end_year", "must be within [%d, %d], got %d", start, s.HorizonYears, last)
	}
	return nil
}

func nonNegative(field string, v decimal.Decimal, currency string) error {
	if v.IsNegative() {
		return FieldError(field, "cannot be negative")
	}
	if _, err := money.New(v, currency); err != nil {
		return &Error{Kind: KindInvalidInput, Field: field, Message: "out of range", Cause: err}
	}
	return nil
}

func rateAbove(field string, v, floor decimal.Decimal) error {
	if !v.GreaterThan(floor) {
		return FieldError(field, "must be greater than %s", floor.String())
	}
	return nil
}

func unitRate(field string, v decimal.Decimal) error {
	if v.IsNegative() || v.GreaterThan(one) {
		return FieldError(field, "must be between 0 and 1")
	}
	return nil
}
