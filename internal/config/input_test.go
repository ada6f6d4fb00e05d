package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalDocument = `scenarios:
  - id: base
    name: Base case
    jurisdiction: AU
    currency: AUD
    tax_year: 2024
    horizon_years: 10
    start_age: 30
    annual_income: 95000
    income_growth: 0.03
    annual_expenses: 50000
    starting_savings: 20000
    investments:
      - id: etf
        account_type: brokerage
        monthly_contribution: 800
        expected_return: 0.07
        dividend_yield: 0.03
        franked: true
monte_carlo:
  iterations: 500
  seed: 7
  asset_classes:
    equity:
      volatility: 0.18
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewInputParser(t *testing.T) {
	assert.NotNil(t, NewInputParser())
}

func TestLoadFromFile_Success(t *testing.T) {
	doc, err := NewInputParser().LoadFromFile(writeFile(t, "scenarios.yaml", minimalDocument))
	require.NoError(t, err)

	require.Len(t, doc.Scenarios, 1)
	s := doc.Scenarios[0]
	assert.Equal(t, domain.Australia, s.Jurisdiction)
	assert.True(t, s.AnnualIncome.Equal(decimal.NewFromInt(95000)))
	assert.True(t, s.IncomeGrowth.Equal(decimal.RequireFromString("0.03")))
	require.Len(t, s.Investments, 1)
	assert.Equal(t, domain.AccountBrokerage, s.Investments[0].AccountType)
	assert.True(t, s.Investments[0].Franked)

	require.NotNil(t, doc.MonteCarlo)
	assert.Equal(t, 500, doc.MonteCarlo.Iterations)
	require.NotNil(t, doc.MonteCarlo.Seed)
	assert.EqualValues(t, 7, *doc.MonteCarlo.Seed)
	assert.True(t, doc.MonteCarlo.AssetClasses[domain.AssetEquity].Volatility.Equal(decimal.RequireFromString("0.18")))

	found, ok := doc.Scenario("base")
	require.True(t, ok)
	assert.Same(t, &doc.Scenarios[0], found)
	assert.Len(t, doc.Inputs(), 1)
}

func TestLoadFromFile_FileNotFound(t *testing.T) {
	doc, err := NewInputParser().LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	assert.Nil(t, doc)
	assert.Contains(t, err.Error(), "failed to read file")
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	_, err := NewInputParser().LoadFromFile(writeFile(t, "bad.yaml", "scenarios: [\n  - id: x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Document)
		kind   error
		field  string
	}{
		{"no scenarios", func(d *Document) { d.Scenarios = nil }, domain.ErrInvalidInput, ""},
		{"missing id", func(d *Document) { d.Scenarios[0].ID = "" }, domain.ErrInvalidInput, "scenarios[0].id"},
		{"duplicate id", func(d *Document) { d.Scenarios[1].ID = d.Scenarios[0].ID }, domain.ErrInvalidInput, "scenarios[1].id"},
		{"bad scenario", func(d *Document) { d.Scenarios[2].HorizonYears = 0 }, domain.ErrInvalidInput, "horizon_years"},
		{"currency mismatch", func(d *Document) { d.Scenarios[3].Currency = "AUD" }, domain.ErrCurrencyMismatch, "currency"},
		{"monte carlo horizon", func(d *Document) { d.MonteCarlo.HorizonYears = 10 }, domain.ErrInvalidInput, "monte_carlo.horizon_years"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewInputParser()
			doc := parser.CreateExampleConfiguration()
			tt.mutate(doc)
			err := parser.ValidateDocument(doc)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
			if tt.field != "" {
				var de *domain.Error
				require.True(t, errors.As(err, &de))
				assert.Equal(t, tt.field, de.Field)
			}
		})
	}
}

func TestCreateExampleConfiguration(t *testing.T) {
	parser := NewInputParser()
	doc := parser.CreateExampleConfiguration()
	require.NoError(t, parser.ValidateDocument(doc))

	jurisdictions := map[domain.Jurisdiction]bool{}
	for _, s := range doc.Scenarios {
		jurisdictions[s.Jurisdiction] = true
	}
	assert.Len(t, jurisdictions, 3)

	// The example survives a round trip through YAML.
	path := filepath.Join(t.TempDir(), "example.yaml")
	require.NoError(t, parser.Save(path, doc))
	loaded, err := parser.LoadFromFile(path)
	require.NoError(t, err)
	require.Len(t, loaded.Scenarios, len(doc.Scenarios))
	prop, ok := loaded.Scenario("au-investment-property")
	require.True(t, ok)
	require.Len(t, prop.Housing, 1)
	require.NotNil(t, prop.Housing[0].MortgageRate)
	assert.True(t, prop.Housing[0].MortgageRate.Equal(decimal.RequireFromString("0.062")))
	assert.Equal(t, 15, *prop.Housing[0].EndYear)
	assert.EqualValues(t, 42, *loaded.MonteCarlo.Seed)
}
