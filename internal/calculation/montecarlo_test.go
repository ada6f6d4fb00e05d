package calculation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/rpgo/wealth-simulator/internal/tax"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(v int64) *int64 { return &v }

func growthScenario() *domain.ScenarioInput {
	in := salaryOnly()
	in.HorizonYears = 10
	in.GoalAmount = dec("400000")
	in.Investments = []domain.InvestmentComponent{brokerage()}
	h := rentalProperty()
	h.NegativeGearing = false
	in.Housing = []domain.HousingComponent{h}
	in.StartingSavings = dec("150000")
	return in
}

func TestMonteCarloSeededRunsAreIdentical(t *testing.T) {
	engine := NewCalculationEngine(nil)
	cfg := domain.MonteCarloConfig{Iterations: 200, Seed: seed(42), Workers: 4}

	first, err := engine.RunMonteCarlo(context.Background(), growthScenario(), cfg)
	require.NoError(t, err)
	cfg.Workers = 1
	second, err := engine.RunMonteCarlo(context.Background(), growthScenario(), cfg)
	require.NoError(t, err)

	assert.Equal(t, first.Years, second.Years, "worker count must not change a seeded result")
	assert.Equal(t, first.SuccessProbability, second.SuccessProbability)
	assert.Equal(t, first.ValueAtRisk95, second.ValueAtRisk95)
	assert.Equal(t, first.MaxDrawdown, second.MaxDrawdown)
	assert.True(t, first.Seeded)
	assert.Equal(t, int64(42), first.Seed)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestMonteCarloPercentilesOrdered(t *testing.T) {
	res, err := NewCalculationEngine(nil).RunMonteCarlo(context.Background(), growthScenario(),
		domain.MonteCarloConfig{Iterations: 300, Seed: seed(7)})
	require.NoError(t, err)

	require.Len(t, res.Years, 11)
	for _, b := range res.Years {
		bands := []decimal.Decimal{b.P10.Amount(), b.P25.Amount(), b.P50.Amount(), b.P75.Amount(), b.P90.Amount()}
		for i := 1; i < len(bands); i++ {
			assert.False(t, bands[i].LessThan(bands[i-1]), "year %d band %d", b.Year, i)
		}
	}
	assert.Equal(t, res.Years[10], res.Final)
	assert.Equal(t, 300, res.Completed)
	assert.Zero(t, res.Failed)
	assert.False(t, res.Cancelled)
	assert.True(t, res.SuccessProbability.GreaterThanOrEqual(decimal.Zero))
	assert.True(t, res.SuccessProbability.LessThanOrEqual(decimal.NewFromInt(1)))
	assert.False(t, res.ValueAtRisk95.IsNegative())
	assert.True(t, res.ConditionalVaR95.Amount().GreaterThanOrEqual(res.ValueAtRisk95.Amount()))
	assert.True(t, res.WorstDrawdown.GreaterThanOrEqual(res.MaxDrawdown))
}

func TestMonteCarloZeroVolatilityMatchesProjection(t *testing.T) {
	engine := NewCalculationEngine(nil)
	in := growthScenario()
	det, err := engine.RunScenario(context.Background(), in)
	require.NoError(t, err)

	flat := map[domain.AssetClass]domain.ReturnModel{}
	for _, c := range []domain.AssetClass{domain.AssetEquity, domain.AssetBonds, domain.AssetProperty, domain.AssetCash} {
		flat[c] = domain.ReturnModel{Volatility: decimal.Zero}
	}
	res, err := engine.RunMonteCarlo(context.Background(), in,
		domain.MonteCarloConfig{Iterations: 20, Seed: seed(1), AssetClasses: flat})
	require.NoError(t, err)

	final := det.FinalYear().NetWorth
	assert.True(t, res.Final.P10.Equal(final))
	assert.True(t, res.Final.P90.Equal(final))
	assert.True(t, res.ValueAtRisk95.IsZero())
}

func TestMonteCarloHorizonOverride(t *testing.T) {
	res, err := NewCalculationEngine(nil).RunMonteCarlo(context.Background(), growthScenario(),
		domain.MonteCarloConfig{Iterations: 10, HorizonYears: 30, Seed: seed(3)})
	require.NoError(t, err)
	assert.Equal(t, 30, res.HorizonYears)
	assert.Len(t, res.Years, 31)
}

func TestMonteCarloProgress(t *testing.T) {
	var mu sync.Mutex
	var seen []int
	cfg := domain.MonteCarloConfig{
		Iterations: 100,
		Seed:       seed(9),
		Progress: func(completed, total int) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, 100, total)
			seen = append(seen, completed)
		},
	}
	_, err := NewCalculationEngine(nil).RunMonteCarlo(context.Background(), growthScenario(), cfg)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.Equal(t, 100, seen[len(seen)-1])
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1])
	}
}

func TestMonteCarloCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const total = 5000
	cfg := domain.MonteCarloConfig{
		Iterations: total,
		Seed:       seed(11),
		Workers:    2,
		Progress: func(completed, _ int) {
			if completed >= 10 {
				cancel()
			}
		},
	}
	res, err := NewCalculationEngine(nil).RunMonteCarlo(ctx, growthScenario(), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCancelled))
	require.NotNil(t, res)
	assert.True(t, res.Cancelled)
	assert.GreaterOrEqual(t, res.Completed, 10)
	assert.Less(t, res.Completed, total)
	assert.Equal(t, total, res.Iterations)
}

func TestMonteCarloCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := NewCalculationEngine(nil).RunMonteCarlo(ctx, growthScenario(), domain.MonteCarloConfig{Iterations: 10})
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, domain.ErrCancelled))
}

func TestMonteCarloAllIterationsFail(t *testing.T) {
	in := growthScenario()
	in.Housing[0].MortgageRate = nil
	res, err := NewCalculationEngine(nil).RunMonteCarlo(context.Background(), in, domain.MonteCarloConfig{Iterations: 8, Seed: seed(2)})
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, domain.ErrScenarioCalculation))
	assert.True(t, errors.Is(err, domain.ErrInvalidComponentConfig))
}

func TestMonteCarloRejectsInvalidConfig(t *testing.T) {
	_, err := NewCalculationEngine(nil).RunMonteCarlo(context.Background(), growthScenario(), domain.MonteCarloConfig{Iterations: -1})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestRunAll(t *testing.T) {
	us := salaryOnly()
	us.ID, us.Jurisdiction, us.Currency = "us", domain.UnitedStates, "USD"
	results, err := NewCalculationEngine(nil).RunAll(context.Background(),
		[]*domain.ScenarioInput{growthScenario(), us},
		domain.MonteCarloConfig{Iterations: 20, Seed: seed(5)})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "USD", results[1].Currency)
}

func TestUnseededRunUsesSeedFunc(t *testing.T) {
	orig := seedFunc
	SetSeedFunc(func() int64 { return 99 })
	defer SetSeedFunc(orig)
	res, err := NewCalculationEngine(nil).RunMonteCarlo(context.Background(), salaryOnly(), domain.MonteCarloConfig{Iterations: 5})
	require.NoError(t, err)
	assert.False(t, res.Seeded)
	assert.Equal(t, int64(99), res.Seed)
}

// recordingLogger keeps error lines.
type recordingLogger struct {
	NopLogger
	mu     sync.Mutex
	errors []string
}

func (l *recordingLogger) Errorf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

// explosiveReturns grows every holding past the largest representable
// amount.
type explosiveReturns struct{}

func (explosiveReturns) Return(int, domain.AssetClass, decimal.Decimal) decimal.Decimal {
	return decimal.New(1, 12)
}

func TestMonteCarloPartialFailure(t *testing.T) {
	sampled := iterationReturns
	defer func() { iterationReturns = sampled }()
	failing := func(s int64) bool { return s%5 == 0 }
	iterationReturns = func(s int64, horizon int, models map[domain.AssetClass]domain.ReturnModel) ReturnSource {
		if failing(s) {
			return explosiveReturns{}
		}
		return sampled(s, horizon, models)
	}

	logger := &recordingLogger{}
	engine := NewCalculationEngine(nil)
	engine.SetLogger(logger)
	in := growthScenario()
	const n, first = 50, int64(100)
	res, err := engine.RunMonteCarlo(context.Background(), in,
		domain.MonteCarloConfig{Iterations: n, Seed: seed(first), Workers: 3})
	require.NoError(t, err)

	assert.Equal(t, n, res.Iterations)
	assert.Equal(t, 10, res.Failed)
	assert.Equal(t, n-10, res.Completed)
	assert.False(t, res.Cancelled)
	require.Len(t, res.Failures, 10)
	for _, f := range res.Failures {
		assert.True(t, failing(first+int64(f.Iteration)), "iteration %d", f.Iteration)
		assert.Contains(t, f.Error, "overflow")
	}

	// Statistics come from the surviving iterations alone.
	rules := tax.AU2024()
	var finals []decimal.Decimal
	for i := 0; i < n; i++ {
		s := first + int64(i)
		if failing(s) {
			continue
		}
		p, err := NewProjector(in, rules, WithReturns(sampled(s, in.HorizonYears, domain.DefaultReturnModels())))
		require.NoError(t, err)
		r, err := p.Run(context.Background())
		require.NoError(t, err)
		finals = append(finals, r.FinalYear().NetWorth.Amount())
	}
	sort.Slice(finals, func(i, j int) bool { return finals[i].LessThan(finals[j]) })
	for _, tc := range []struct {
		p   int
		got decimal.Decimal
	}{
		{10, res.Final.P10.Amount()},
		{50, res.Final.P50.Amount()},
		{90, res.Final.P90.Amount()},
	} {
		assert.True(t, tc.got.Equal(Percentile(finals, tc.p)), "p%d: got %s want %s", tc.p, tc.got, Percentile(finals, tc.p))
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()
	require.Len(t, logger.errors, 1)
	assert.Contains(t, logger.errors[0], "10 of 50 iterations failed")
}

func TestMonteCarloConvergesAsVolatilityFalls(t *testing.T) {
	engine := NewCalculationEngine(nil)
	in := growthScenario()
	det, err := engine.RunScenario(context.Background(), in)
	require.NoError(t, err)
	deterministic := det.FinalYear().NetWorth.Amount()

	tests := []struct {
		volatility string
	}{
		{"0.25"},
		{"0.05"},
		{"0.01"},
		{"0"},
	}
	var prevGap, prevWidth decimal.Decimal
	for i, tt := range tests {
		models := map[domain.AssetClass]domain.ReturnModel{}
		for _, c := range []domain.AssetClass{domain.AssetEquity, domain.AssetBonds, domain.AssetProperty, domain.AssetCash} {
			models[c] = domain.ReturnModel{Volatility: dec(tt.volatility)}
		}
		res, err := engine.RunMonteCarlo(context.Background(), in,
			domain.MonteCarloConfig{Iterations: 200, Seed: seed(31), AssetClasses: models})
		require.NoError(t, err, tt.volatility)

		gap := res.Final.P50.Amount().Sub(deterministic).Abs()
		width := res.Final.P90.Amount().Sub(res.Final.P10.Amount())
		assert.False(t, width.IsNegative(), tt.volatility)
		if i > 0 {
			assert.True(t, gap.LessThanOrEqual(prevGap), "volatility %s: median gap %s, previous %s", tt.volatility, gap, prevGap)
			assert.True(t, width.LessThan(prevWidth), "volatility %s: p90-p10 width %s, previous %s", tt.volatility, width, prevWidth)
		}
		prevGap, prevWidth = gap, width
	}
	assert.True(t, prevGap.IsZero())
	assert.True(t, prevWidth.IsZero())
}

func BenchmarkSimulate(b *testing.B) {
	in := growthScenario()
	rules, err := tax.DefaultRulesBook().Lookup(in.Jurisdiction, in.TaxYear)
	if err != nil {
		b.Fatal(err)
	}
	engine := NewCalculationEngine(nil)
	cfg := domain.MonteCarloConfig{Iterations: 100, HorizonYears: 30, Seed: seed(1), Workers: 1}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Simulate(context.Background(), in, rules, cfg); err != nil {
			b.Fatal(err)
		}
	}
}
