package domain

import (
	"errors"
	"testing"

	"github.com/rpgo/wealth-simulator/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func validInput() ScenarioInput {
	return ScenarioInput{
		ID:             "base",
		Jurisdiction:   Australia,
		Currency:       "AUD",
		TaxYear:        2024,
		HorizonYears:   10,
		StartAge:       35,
		AnnualIncome:   decimal.NewFromInt(120000),
		AnnualExpenses: decimal.NewFromInt(50000),
		Housing: []HousingComponent{{
			ID:            "home",
			PurchasePrice: decimal.NewFromInt(800000),
			Deposit:       decimal.NewFromInt(160000),
		}},
		Investments: []InvestmentComponent{{
			ID:          "super",
			AccountType: AccountSuperConcessional,
			EndYear:     intPtr(10),
		}},
	}
}

func TestScenarioInputValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ScenarioInput)
		kind   ErrorKind
		field  string
	}{
		{"valid", func(*ScenarioInput) {}, "", ""},
		{"zero horizon", func(s *ScenarioInput) { s.HorizonYears = 0 }, KindInvalidInput, "horizon_years"},
		{"horizon too long", func(s *ScenarioInput) { s.HorizonYears = 61 }, KindInvalidInput, "horizon_years"},
		{"negative income", func(s *ScenarioInput) { s.AnnualIncome = decimal.NewFromInt(-1) }, KindInvalidInput, "annual_income"},
		{"unknown jurisdiction", func(s *ScenarioInput) { s.Jurisdiction = "NZ" }, KindUnsupportedJurisdiction, "jurisdiction"},
		{"currency differs from rules", func(s *ScenarioInput) { s.Currency = "USD" }, KindCurrencyMismatch, "currency"},
		{"unknown currency", func(s *ScenarioInput) { s.Currency = "ZZZ" }, KindInvalidInput, "currency"},
		{"missing tax year", func(s *ScenarioInput) { s.TaxYear = 0 }, KindInvalidInput, "tax_year"},
		{"component starts after horizon", func(s *ScenarioInput) { s.Housing[0].StartYear = 11 }, KindInvalidInput, "housing[0].start_year"},
		{"component ends after horizon", func(s *ScenarioInput) { s.Investments[0].EndYear = intPtr(12) }, KindInvalidInput, "investments[0].end_year"},
		{"component ends before it starts", func(s *ScenarioInput) {
			s.Investments[0].StartYear = 5
			s.Investments[0].EndYear = intPtr(4)
		}, KindInvalidInput, "investments[0].end_year"},
		{"duplicate ids", func(s *ScenarioInput) { s.Investments[0].ID = "home" }, KindInvalidInput, "investments[0].id"},
		{"deposit above price", func(s *ScenarioInput) { s.Housing[0].Deposit = decimal.NewFromInt(900000) }, KindInvalidInput, "housing[0].deposit"},
		{"vacancy above one", func(s *ScenarioInput) { s.Housing[0].VacancyRate = decimal.NewFromInt(2) }, KindInvalidInput, "housing[0].vacancy_rate"},
		{"missing account type", func(s *ScenarioInput) { s.Investments[0].AccountType = "" }, KindInvalidInput, "investments[0].account_type"},
		{"return at minus one", func(s *ScenarioInput) { s.Investments[0].ExpectedReturn = decimal.NewFromInt(-1) }, KindInvalidInput, "investments[0].expected_return"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			err := in.Validate()
			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var de *Error
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.kind, de.Kind)
			assert.Equal(t, tt.field, de.Field)
		})
	}
}

func TestMissingMortgageRateIsNotAValidationError(t *testing.T) {
	in := validInput()
	in.Housing[0].MortgageRate = nil
	assert.NoError(t, in.Validate())
}

func TestComponentWindow(t *testing.T) {
	h := HousingComponent{StartYear: 2}
	assert.Equal(t, 10, h.End(10))
	assert.False(t, h.Active(1, 10))
	assert.True(t, h.Active(10, 10))
	assert.False(t, h.Disposed(10))
	h.EndYear = intPtr(6)
	assert.True(t, h.Disposed(10))
	assert.Equal(t, AssetProperty, h.Class())

	c := InvestmentComponent{EndYear: intPtr(10), SellAtEnd: true}
	assert.True(t, c.Disposed(10))
	assert.Equal(t, AssetEquity, c.Class())
}

func TestErrorMatching(t *testing.T) {
	err := CalculationError(7, "rental", ComponentError("rental", "mortgage rate required"))
	assert.True(t, errors.Is(err, ErrScenarioCalculation))
	assert.True(t, errors.Is(err, ErrInvalidComponentConfig))
	assert.False(t, errors.Is(err, ErrRulesNotFound))
	assert.Equal(t, KindScenarioCalculation, KindOf(err))
	assert.Contains(t, err.Error(), "year 7")
	assert.Contains(t, err.Error(), "mortgage rate required")

	_, merr := money.FromInt(1, "AUD").Add(money.FromInt(1, "USD"))
	assert.Equal(t, KindCurrencyMismatch, KindOf(merr))
	assert.True(t, errors.Is(FromMoney(merr), ErrCurrencyMismatch))
	assert.True(t, errors.Is(FromMoney(merr), money.ErrCurrencyMismatch))
}

func TestParseJurisdiction(t *testing.T) {
	j, err := ParseJurisdiction("gb")
	require.NoError(t, err)
	assert.Equal(t, UnitedKingdom, j)

	_, err = ParseJurisdiction("fr")
	assert.True(t, errors.Is(err, ErrUnsupportedJurisdiction))
}

func TestMonteCarloConfigValidate(t *testing.T) {
	in := validInput()
	cfg := MonteCarloConfig{Iterations: 100, HorizonYears: 5}
	err := cfg.Validate(&in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	in.Investments[0].EndYear = nil
	in.Housing[0].StartYear = 0
	cfg = MonteCarloConfig{Iterations: 100, AssetClasses: map[AssetClass]ReturnModel{"crypto": {}}}
	assert.Error(t, cfg.Validate(&in))
}
