package domain

import (
	"github.com/rpgo/wealth-simulator/pkg/money"
	"github.com/shopspring/decimal"
)

// HousingYear is one property's figures for one projection year.
type HousingYear struct {
	ComponentID      string      `json:"component_id"`
	PropertyValue    money.Money `json:"property_value"`
	LoanBalance      money.Money `json:"loan_balance"`
	Equity           money.Money `json:"equity"`
	InterestPaid     money.Money `json:"interest_paid"`
	PrincipalPaid    money.Money `json:"principal_paid"`
	GrossRent        money.Money `json:"gross_rent"`
	VacancyAllowance money.Money `json:"vacancy_allowance"`
	PropertyExpenses money.Money `json:"property_expenses"`
	NetRentalIncome  money.Money `json:"net_rental_income"`
	// Deduction is a negative-gearing loss offered to the tax engine.
	Deduction     money.Money `json:"deduction"`
	TaxBenefit    money.Money `json:"tax_benefit"`
	CashFlow      money.Money `json:"cash_flow"`
	Sold          bool        `json:"sold,omitempty"`
	SaleProceeds  money.Money `json:"sale_proceeds"`
	CapitalGain   money.Money `json:"capital_gain"`
	HoldingMonths int         `json:"holding_months,omitempty"`
}

// InvestmentYear is one portfolio's figures for one projection year.
type InvestmentYear struct {
	ComponentID           string      `json:"component_id"`
	AccountType           AccountType `json:"account_type"`
	RequestedContribution money.Money `json:"requested_contribution"`
	Contribution          money.Money `json:"contribution"`
	Clamped               bool        `json:"clamped,omitempty"`
	// DeductibleContribution reduces assessable income.
	DeductibleContribution money.Money `json:"deductible_contribution"`
	Growth                 money.Money `json:"growth"`
	Dividends              money.Money `json:"dividends"`
	// TaxableDividends are dividends received outside a sheltered account.
	TaxableDividends money.Money `json:"taxable_dividends"`
	Franked          bool        `json:"franked,omitempty"`
	Fees             money.Money `json:"fees"`
	Balance          money.Money `json:"balance"`
	CostBase         money.Money `json:"cost_base"`
	CashFlow         money.Money `json:"cash_flow"`
	Sold             bool        `json:"sold,omitempty"`
	Withdrawal       money.Money `json:"withdrawal"`
	CapitalGain      money.Money `json:"capital_gain"`
	HoldingMonths    int         `json:"holding_months,omitempty"`
}

// YearlyProjection is the computed state at the end of one projection year.
// Tax assessed in a year is paid from cash the following year; until then it
// is carried as a liability against net worth.
type YearlyProjection struct {
	Year int `json:"year"`
	Age  int `json:"age"`

	Salary        money.Money `json:"salary"`
	OtherIncome   money.Money `json:"other_income"`
	TotalIncome   money.Money `json:"total_income"`
	Expenses      money.Money `json:"expenses"`
	DebtService   money.Money `json:"debt_service"`
	Deductions    money.Money `json:"deductions"`
	TaxableIncome money.Money `json:"taxable_income"`

	IncomeTax       money.Money `json:"income_tax"`
	InvestmentTax   money.Money `json:"investment_tax"`
	CapitalGainsTax money.Money `json:"capital_gains_tax"`
	TaxPayable      money.Money `json:"tax_payable"`
	TaxPaid         money.Money `json:"tax_paid"`

	Cash           money.Money `json:"cash"`
	PropertyEquity money.Money `json:"property_equity"`
	PortfolioValue money.Money `json:"portfolio_value"`
	Debt           money.Money `json:"debt"`
	NetWorth       money.Money `json:"net_worth"`

	Housing     []HousingYear    `json:"housing,omitempty"`
	Investments []InvestmentYear `json:"investments,omitempty"`
}

// RealizedGain is a disposal handed to the tax engine. Amount is negative for
// a loss.
type RealizedGain struct {
	Component     string
	Amount        money.Money
	HoldingMonths int
}

// YearState is the view of a finished year handed to optimization advice.
type YearState struct {
	Year                 int
	Age                  int
	TaxableIncome        money.Money
	Dividends            money.Money // taxable dividends received
	OrdinaryDividends    money.Money // part that is neither franked nor qualified
	RentalShortfall      money.Money
	RealizedGains        money.Money
	ContributionsByGroup map[string]money.Money
	Accounts             []AccountType
}

// WarningKind classifies non-fatal conditions found during a run.
type WarningKind string

const (
	WarningContributionLimitExceeded WarningKind = "contribution_limit_exceeded"
	WarningCashShortfall             WarningKind = "cash_shortfall"
)

// Warning is attached to a result; it never aborts a run.
type Warning struct {
	Kind      WarningKind `json:"kind"`
	Year      int         `json:"year"`
	Component string      `json:"component,omitempty"`
	Message   string      `json:"message"`
	Requested money.Money `json:"requested"`
	Limit     money.Money `json:"limit"`
	Excess    money.Money `json:"excess"`
}

// Optimization is advisory output of the tax engine.
type Optimization struct {
	Kind            string      `json:"kind"`
	Year            int         `json:"year"`
	Component       string      `json:"component,omitempty"`
	Message         string      `json:"message"`
	EstimatedSaving money.Money `json:"estimated_saving"`
}

// Summary condenses a projection.
type Summary struct {
	FinalNetWorth      money.Money     `json:"final_net_worth"`
	PeakNetWorth       money.Money     `json:"peak_net_worth"`
	PeakYear           int             `json:"peak_year"`
	TotalTax           money.Money     `json:"total_tax"`
	TotalContributions money.Money     `json:"total_contributions"`
	EffectiveTaxRate   decimal.Decimal `json:"effective_tax_rate"`
	GoalReached        bool            `json:"goal_reached"`
	GoalReachedYear    int             `json:"goal_reached_year"`
	ShortfallYears     int             `json:"shortfall_years"`
}

// ScenarioResult is a complete deterministic projection.
type ScenarioResult struct {
	RunID         string             `json:"run_id"`
	ScenarioID    string             `json:"scenario_id"`
	Name          string             `json:"name"`
	Jurisdiction  Jurisdiction       `json:"jurisdiction"`
	Currency      string             `json:"currency"`
	RulesVersion  string             `json:"rules_version"`
	HorizonYears  int                `json:"horizon_years"`
	Years         []YearlyProjection `json:"years"`
	Summary       Summary            `json:"summary"`
	Optimizations []Optimization     `json:"optimizations,omitempty"`
	Warnings      []Warning          `json:"warnings,omitempty"`
	// Provisional marks an estimate returned ahead of a full computation.
	Provisional bool `json:"provisional,omitempty"`
}

// FinalYear returns the last projected year.
func (r *ScenarioResult) FinalYear() YearlyProjection {
	return r.Years[len(r.Years)-1]
}

// WarningsOf filters warnings by kind.
func (r *ScenarioResult) WarningsOf(kind WarningKind) []Warning {
	var out []Warning
	for _, w := range r.Warnings {
		if w.Kind == kind {
			out = append(out, w)
		}
	}
	return out
}
