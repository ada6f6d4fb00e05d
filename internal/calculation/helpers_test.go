package calculation

import (
	"testing"

	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/rpgo/wealth-simulator/internal/tax"
	"github.com/rpgo/wealth-simulator/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func intPtr(v int) *int { return &v }

func aud(s string) money.Money { return money.MustNew(dec(s), "AUD") }

// salaryOnly is an AU scenario with no components: 100k income, 50k
// expenses, 10k starting cash earning nothing.
func salaryOnly() *domain.ScenarioInput {
	return &domain.ScenarioInput{
		ID:              "salary",
		Name:            "Salary only",
		Jurisdiction:    domain.Australia,
		Currency:        "AUD",
		TaxYear:         2024,
		HorizonYears:    2,
		StartAge:        40,
		AnnualIncome:    dec("100000"),
		AnnualExpenses:  dec("50000"),
		StartingSavings: dec("10000"),
	}
}

func rentalProperty() domain.HousingComponent {
	return domain.HousingComponent{
		ID:               "rental",
		PurchasePrice:    dec("500000"),
		Deposit:          dec("100000"),
		PurchaseCosts:    dec("20000"),
		MortgageRate:     decPtr("0.06"),
		LoanTermYears:    30,
		AppreciationRate: dec("0.05"),
		Investment:       true,
		AnnualRent:       dec("26000"),
		VacancyRate:      dec("0.05"),
		AnnualExpenses:   dec("5000"),
		NegativeGearing:  true,
		SellingCostRate:  dec("0.02"),
	}
}

func contextFor(t *testing.T, in *domain.ScenarioInput, year int) *ScenarioContext {
	t.Helper()
	rules, err := tax.DefaultRulesBook().Lookup(in.Jurisdiction, in.TaxYear)
	require.NoError(t, err)
	engine, err := tax.For(in.Jurisdiction)
	require.NoError(t, err)
	return &ScenarioContext{
		Input:   in,
		Rules:   rules,
		Engine:  engine,
		Horizon: in.HorizonYears,
		Year:    year,
		Age:     in.StartAge + year,
		CapRoom: map[string]money.Money{},
	}
}

func project(t *testing.T, in *domain.ScenarioInput) *domain.ScenarioResult {
	t.Helper()
	res, err := NewCalculationEngine(nil).RunScenario(t.Context(), in)
	require.NoError(t, err)
	return res
}
