package config

import (
	"fmt"
	"os"

	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Document is a scenario file: one or more strategies to compare, plus
// optional Monte Carlo settings shared by all of them.
type Document struct {
	Scenarios  []domain.ScenarioInput   `yaml:"scenarios"`
	MonteCarlo *domain.MonteCarloConfig `yaml:"monte_carlo,omitempty"`
}

// Inputs returns pointers to the document's scenarios.
func (d *Document) Inputs() []*domain.ScenarioInput {
	out := make([]*domain.ScenarioInput, len(d.Scenarios))
	for i := range d.Scenarios {
		out[i] = &d.Scenarios[i]
	}
	return out
}

// Scenario finds a scenario by ID.
func (d *Document) Scenario(id string) (*domain.ScenarioInput, bool) {
	for i := range d.Scenarios {
		if d.Scenarios[i].ID == id {
			return &d.Scenarios[i], true
		}
	}
	return nil, false
}

// InputParser handles parsing of scenario documents
type InputParser struct{}

// NewInputParser creates a new input parser
func NewInputParser() *InputParser {
	return &InputParser{}
}

// LoadFromFile loads and validates a YAML scenario document
func (ip *InputParser) LoadFromFile(filename string) (*Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return ip.Parse(data)
}

// Parse decodes and validates a YAML scenario document
func (ip *InputParser) Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := ip.ValidateDocument(&doc); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &doc, nil
}

// ValidateDocument checks every scenario and the Monte Carlo settings
// against each scenario they will run with. Domain error kinds survive the
// wrapping, so callers can still test with errors.Is.
func (ip *InputParser) ValidateDocument(doc *Document) error {
	if len(doc.Scenarios) == 0 {
		return domain.NewError(domain.KindInvalidInput, "no scenarios provided")
	}
	seen := make(map[string]int, len(doc.Scenarios))
	for i := range doc.Scenarios {
		s := &doc.Scenarios[i]
		if s.ID == "" {
			return domain.FieldError(fmt.Sprintf("scenarios[%d].id", i), "required")
		}
		if prev, dup := seen[s.ID]; dup {
			return domain.FieldError(fmt.Sprintf("scenarios[%d].id", i), "duplicate scenario id %q (also scenarios[%d])", s.ID, prev)
		}
		seen[s.ID] = i
		if err := s.Validate(); err != nil {
			return fmt.Errorf("scenario %s: %w", s.ID, err)
		}
		if doc.MonteCarlo != nil {
			if err := doc.MonteCarlo.Validate(s); err != nil {
				return fmt.Errorf("scenario %s: %w", s.ID, err)
			}
		}
	}
	return nil
}

// Save writes doc as YAML.
func (ip *InputParser) Save(filename string, doc *Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", filename, err)
	}
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// CreateExampleConfiguration returns a document comparing renting with an
// investment property in Australia, plus US and UK savers.
func (ip *InputParser) CreateExampleConfiguration() *Document {
	seed := int64(42)
	sellYear := 15
	base := domain.ScenarioInput{
		ID:               "au-rent-and-invest",
		Name:             "Rent and invest",
		Jurisdiction:     domain.Australia,
		Currency:         "AUD",
		TaxYear:          2024,
		HorizonYears:     20,
		StartAge:         32,
		AnnualIncome:     dec("120000"),
		IncomeGrowth:     dec("0.03"),
		AnnualExpenses:   dec("55000"),
		ExpenseInflation: dec("0.025"),
		StartingSavings:  dec("150000"),
		SavingsRate:      dec("0.04"),
		GoalAmount:       dec("1500000"),
		Investments: []domain.InvestmentComponent{
			{
				ID:                  "etf",
				Name:                "Index ETF",
				AccountType:         domain.AccountBrokerage,
				InitialBalance:      dec("50000"),
				MonthlyContribution: dec("1500"),
				ContributionGrowth:  dec("0.02"),
				ExpectedReturn:      dec("0.07"),
				DividendYield:       dec("0.04"),
				FeeRate:             dec("0.002"),
				Franked:             true,
			},
			{
				ID:                  "super",
				Name:                "Salary sacrifice",
				AccountType:         domain.AccountSuperConcessional,
				MonthlyContribution: dec("1000"),
				ExpectedReturn:      dec("0.065"),
				FeeRate:             dec("0.005"),
			},
		},
	}

	property := base
	property.ID = "au-investment-property"
	property.Name = "Geared investment property"
	property.Investments = base.Investments[1:]
	property.Housing = []domain.HousingComponent{{
		ID:               "unit",
		Name:             "Investment unit",
		EndYear:          &sellYear,
		PurchasePrice:    dec("650000"),
		Deposit:          dec("130000"),
		PurchaseCosts:    dec("30000"),
		MortgageRate:     decPtr("0.062"),
		LoanTermYears:    30,
		AppreciationRate: dec("0.05"),
		Investment:       true,
		AnnualRent:       dec("31200"),
		RentGrowth:       dec("0.03"),
		VacancyRate:      dec("0.04"),
		AnnualExpenses:   dec("7500"),
		ExpenseGrowth:    dec("0.03"),
		NegativeGearing:  true,
		SellingCostRate:  dec("0.025"),
	}}

	us := domain.ScenarioInput{
		ID:               "us-retirement-accounts",
		Name:             "401(k) and Roth",
		Jurisdiction:     domain.UnitedStates,
		Currency:         "USD",
		TaxYear:          2025,
		HorizonYears:     20,
		StartAge:         45,
		AnnualIncome:     dec("140000"),
		IncomeGrowth:     dec("0.03"),
		AnnualExpenses:   dec("70000"),
		ExpenseInflation: dec("0.025"),
		StartingSavings:  dec("40000"),
		SavingsRate:      dec("0.045"),
		GoalAmount:       dec("2000000"),
		Investments: []domain.InvestmentComponent{
			{ID: "401k", AccountType: domain.AccountTraditional401k, InitialBalance: dec("180000"), MonthlyContribution: dec("2000"), ExpectedReturn: dec("0.07"), FeeRate: dec("0.001")},
			{ID: "roth", AccountType: domain.AccountRothIRA, InitialBalance: dec("35000"), MonthlyContribution: dec("600"), ExpectedReturn: dec("0.07")},
			{ID: "taxable", AccountType: domain.AccountBrokerage, MonthlyContribution: dec("500"), ExpectedReturn: dec("0.06"), DividendYield: dec("0.015"), Franked: true},
		},
	}

	uk := domain.ScenarioInput{
		ID:               "uk-isa-and-pension",
		Name:             "ISA and pension",
		Jurisdiction:     domain.UnitedKingdom,
		Currency:         "GBP",
		TaxYear:          2024,
		HorizonYears:     20,
		StartAge:         38,
		AnnualIncome:     dec("72000"),
		IncomeGrowth:     dec("0.025"),
		AnnualExpenses:   dec("38000"),
		ExpenseInflation: dec("0.02"),
		StartingSavings:  dec("25000"),
		SavingsRate:      dec("0.04"),
		GoalAmount:       dec("900000"),
		Investments: []domain.InvestmentComponent{
			{ID: "isa", AccountType: domain.AccountISA, InitialBalance: dec("30000"), MonthlyContribution: dec("1000"), ExpectedReturn: dec("0.065"), DividendYield: dec("0.03")},
			{ID: "pension", AccountType: domain.AccountPension, InitialBalance: dec("90000"), MonthlyContribution: dec("800"), ExpectedReturn: dec("0.06")},
		},
	}

	return &Document{
		Scenarios: []domain.ScenarioInput{base, property, us, uk},
		MonteCarlo: &domain.MonteCarloConfig{
			Iterations: 2000,
			Seed:       &seed,
		},
	}
}
