package domain

import (
	"github.com/rpgo/wealth-simulator/pkg/money"
	"github.com/shopspring/decimal"
)

// DefaultIterations is used when a Monte Carlo config leaves Iterations unset.
const DefaultIterations = 10000

// ReturnModel parameterizes annual returns for one asset class. When Mean is
// nil each component keeps its own expected return and only the shock is
// shared across the class.
type ReturnModel struct {
	Mean       *decimal.Decimal `yaml:"mean,omitempty" json:"mean,omitempty"`
	Volatility decimal.Decimal  `yaml:"volatility" json:"volatility"`
}

// DefaultReturnModels are long-run annual volatilities per asset class.
func DefaultReturnModels() map[AssetClass]ReturnModel {
	return map[AssetClass]ReturnModel{
		AssetEquity:   {Volatility: decimal.RequireFromString("0.16")},
		AssetBonds:    {Volatility: decimal.RequireFromString("0.06")},
		AssetProperty: {Volatility: decimal.RequireFromString("0.10")},
		AssetCash:     {Volatility: decimal.RequireFromString("0.01")},
	}
}

// ProgressFunc receives completed and total iteration counts. It is called
// from a single goroutine and may be skipped for intermediate updates.
type ProgressFunc func(completed, total int)

// MonteCarloConfig controls a simulation run.
type MonteCarloConfig struct {
	Iterations   int                        `yaml:"iterations" json:"iterations"`
	HorizonYears int                        `yaml:"horizon_years,omitempty" json:"horizon_years,omitempty"`
	Seed         *int64                     `yaml:"seed,omitempty" json:"seed,omitempty"`
	Workers      int                        `yaml:"workers,omitempty" json:"-"`
	AssetClasses map[AssetClass]ReturnModel `yaml:"asset_classes,omitempty" json:"asset_classes,omitempty"`
	Progress     ProgressFunc               `yaml:"-" json:"-"`
}

// Validate checks the config against the scenario it will run.
func (c *MonteCarloConfig) Validate(in *ScenarioInput) error {
	if c.Iterations < 0 {
		return FieldError("monte_carlo.iterations", "cannot be negative")
	}
	if c.HorizonYears < 0 || c.HorizonYears > MaxHorizonYears {
		return FieldError("monte_carlo.horizon_years", "must be between 1 and %d", MaxHorizonYears)
	}
	if c.HorizonYears > 0 {
		for i := range in.Housing {
			if in.Housing[i].StartYear > c.HorizonYears || (in.Housing[i].EndYear != nil && *in.Housing[i].EndYear > c.HorizonYears) {
				return FieldError("monte_carlo.horizon_years", "shorter than housing component %s", in.Housing[i].ID)
			}
		}
		for i := range in.Investments {
			if in.Investments[i].StartYear > c.HorizonYears || (in.Investments[i].EndYear != nil && *in.Investments[i].EndYear > c.HorizonYears) {
				return FieldError("monte_carlo.horizon_years", "shorter than investment component %s", in.Investments[i].ID)
			}
		}
	}
	for class, m := range c.AssetClasses {
		if !class.Valid() {
			return FieldError("monte_carlo.asset_classes", "unknown asset class %q", class)
		}
		if m.Volatility.IsNegative() {
			return FieldError("monte_carlo.asset_classes."+string(class)+".volatility", "cannot be negative")
		}
	}
	return nil
}

// PercentileBand is the spread of net worth across iterations for one year.
type PercentileBand struct {
	Year int         `json:"year"`
	P10  money.Money `json:"p10"`
	P25  money.Money `json:"p25"`
	P50  money.Money `json:"p50"`
	P75  money.Money `json:"p75"`
	P90  money.Money `json:"p90"`
}

// IterationFailure records an iteration excluded from aggregation.
type IterationFailure struct {
	Iteration int    `json:"iteration"`
	Error     string `json:"error"`
}

// MonteCarloResult aggregates completed iterations. A cancelled run still
// reports the iterations it finished.
type MonteCarloResult struct {
	RunID        string `json:"run_id"`
	ScenarioID   string `json:"scenario_id"`
	Currency     string `json:"currency"`
	RulesVersion string `json:"rules_version"`
	HorizonYears int    `json:"horizon_years"`
	Seed         int64  `json:"seed"`
	Seeded       bool   `json:"seeded"`

	Iterations int                `json:"iterations"`
	Completed  int                `json:"completed"`
	Failed     int                `json:"failed"`
	Failures   []IterationFailure `json:"failures,omitempty"`
	Cancelled  bool               `json:"cancelled,omitempty"`

	Years              []PercentileBand `json:"years"`
	Final              PercentileBand   `json:"final"`
	Goal               money.Money      `json:"goal"`
	SuccessProbability decimal.Decimal  `json:"success_probability"`
	ValueAtRisk95      money.Money      `json:"value_at_risk_95"`
	ConditionalVaR95   money.Money      `json:"conditional_var_95"`
	MaxDrawdown        decimal.Decimal  `json:"max_drawdown"`
	WorstDrawdown      decimal.Decimal  `json:"worst_drawdown"`
}
