package calculation

import (
	"context"

	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/rpgo/wealth-simulator/internal/tax"
)

// CalculationEngine resolves rules for a scenario and runs deterministic
// projections and Monte Carlo simulations over them.
type CalculationEngine struct {
	Rules  tax.RulesProvider
	Logger Logger
	// Workers bounds Monte Carlo parallelism; zero means runtime.NumCPU().
	Workers int
}

// NewCalculationEngine creates an engine over a rules provider. A nil
// provider uses the built-in rules.
func NewCalculationEngine(rules tax.RulesProvider) *CalculationEngine {
	if rules == nil {
		rules = tax.DefaultRulesBook()
	}
	return &CalculationEngine{
		Rules:  rules,
		Logger: NopLogger{},
	}
}

// SetLogger sets the logger for the calculation engine. If nil is provided, a no-op logger is used.
func (ce *CalculationEngine) SetLogger(l Logger) {
	if l == nil {
		ce.Logger = NopLogger{}
		return
	}
	ce.Logger = l
}

// ResolveRules validates the input and returns the rules it runs under.
// Nothing is computed for input that fails here.
func (ce *CalculationEngine) ResolveRules(input *domain.ScenarioInput) (*domain.TaxYearRules, error) {
	if input == nil {
		return nil, domain.NewError(domain.KindInvalidInput, "scenario input is required")
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return ce.Rules.Lookup(input.Jurisdiction, input.TaxYear)
}

// RunScenario calculates a complete deterministic projection.
func (ce *CalculationEngine) RunScenario(ctx context.Context, input *domain.ScenarioInput) (*domain.ScenarioResult, error) {
	rules, err := ce.ResolveRules(input)
	if err != nil {
		return nil, err
	}
	return ce.Project(ctx, input, rules)
}

// Project runs a deterministic projection under the given rules.
func (ce *CalculationEngine) Project(ctx context.Context, input *domain.ScenarioInput, rules *domain.TaxYearRules) (*domain.ScenarioResult, error) {
	p, err := NewProjector(input, rules, WithLogger(ce.Logger))
	if err != nil {
		return nil, err
	}
	res, err := p.Run(ctx)
	if err != nil {
		return nil, err
	}
	res.RunID = runIDFunc()
	ce.Logger.Infof("projected scenario %s over %d years under %s", input.ID, res.HorizonYears, res.RulesVersion)
	for _, w := range res.Warnings {
		ce.Logger.Warnf("scenario %s year %d: %s", input.ID, w.Year, w.Message)
	}
	return res, nil
}

// RunMonteCarlo resolves rules and simulates the scenario.
func (ce *CalculationEngine) RunMonteCarlo(ctx context.Context, input *domain.ScenarioInput, cfg domain.MonteCarloConfig) (*domain.MonteCarloResult, error) {
	rules, err := ce.ResolveRules(input)
	if err != nil {
		return nil, err
	}
	return ce.Simulate(ctx, input, rules, cfg)
}

// RunAll simulates several scenarios in turn with the same config. Each run
// is parallel internally. It stops at the first error; results gathered so
// far are returned with it.
func (ce *CalculationEngine) RunAll(ctx context.Context, inputs []*domain.ScenarioInput, cfg domain.MonteCarloConfig) ([]*domain.MonteCarloResult, error) {
	results := make([]*domain.MonteCarloResult, 0, len(inputs))
	for _, in := range inputs {
		res, err := ce.RunMonteCarlo(ctx, in, cfg)
		if err != nil {
			if res != nil {
				results = append(results, res)
			}
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
