package calculation

import (
	"context"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/shopspring/decimal"
)

// iterationPath is one completed iteration's net worth per year.
type iterationPath []decimal.Decimal

// Simulate runs cfg.Iterations independent projections with sampled
// returns and aggregates their net worth paths.
//
// Iteration i draws from its own source seeded with seed+i, so a seeded run
// is reproducible regardless of worker count or scheduling. Workers check
// ctx before starting each iteration; an iteration already started always
// finishes. When ctx is cancelled the result covering the finished
// iterations is returned together with a Cancelled error. A failing
// iteration is recorded and left out of the statistics.
func (ce *CalculationEngine) Simulate(ctx context.Context, input *domain.ScenarioInput, rules *domain.TaxYearRules, cfg domain.MonteCarloConfig) (*domain.MonteCarloResult, error) {
	if err := cfg.Validate(input); err != nil {
		return nil, err
	}
	iterations := cfg.Iterations
	if iterations == 0 {
		iterations = domain.DefaultIterations
	}
	base, err := NewProjector(input, rules, WithHorizon(cfg.HorizonYears), Lean())
	if err != nil {
		return nil, err
	}
	horizon := base.horizon

	seed, seeded := seedFunc(), false
	if cfg.Seed != nil {
		seed, seeded = *cfg.Seed, true
	}
	models := domain.DefaultReturnModels()
	for class, m := range cfg.AssetClasses {
		models[class] = m
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = ce.Workers
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > iterations {
		workers = iterations
	}

	paths := make([]iterationPath, iterations)
	errs := make([]error, iterations)
	var next, done atomic.Int64

	tick := make(chan struct{}, 1)
	reported := make(chan struct{})
	go func() {
		defer close(reported)
		for range tick {
			if cfg.Progress != nil {
				cfg.Progress(int(done.Load()), iterations)
			}
		}
		if cfg.Progress != nil {
			cfg.Progress(int(done.Load()), iterations)
		}
	}()

	// Iterations run to completion once started.
	iterCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				i := int(next.Add(1) - 1)
				if i >= iterations {
					return
				}
				paths[i], errs[i] = runIteration(iterCtx, base, seed+int64(i), horizon, models)
				done.Add(1)
				select {
				case tick <- struct{}{}:
				default:
				}
			}
		}()
	}
	wg.Wait()
	close(tick)
	<-reported

	res := &domain.MonteCarloResult{
		RunID:        runIDFunc(),
		ScenarioID:   input.ID,
		Currency:     input.Currency,
		RulesVersion: rules.Version(),
		HorizonYears: horizon,
		Seed:         seed,
		Seeded:       seeded,
		Iterations:   iterations,
	}
	completed := make([]iterationPath, 0, iterations)
	for i := range paths {
		switch {
		case errs[i] != nil:
			res.Failed++
			res.Failures = append(res.Failures, domain.IterationFailure{Iteration: i, Error: errs[i].Error()})
		case paths[i] != nil:
			completed = append(completed, paths[i])
		}
	}
	res.Completed = len(completed)
	res.Cancelled = res.Completed+res.Failed < iterations
	if res.Failed > 0 {
		ce.Logger.Errorf("scenario %s: %d of %d iterations failed; first: %s",
			input.ID, res.Failed, iterations, res.Failures[0].Error)
	}

	if res.Completed == 0 {
		if res.Cancelled {
			return nil, domain.Wrap(domain.KindCancelled, "monte carlo run cancelled before any iteration completed", ctx.Err())
		}
		return nil, domain.Wrap(domain.KindScenarioCalculation, "every monte carlo iteration failed", firstError(errs))
	}
	if err := aggregate(res, completed, input); err != nil {
		return nil, err
	}
	ce.Logger.Infof("simulated scenario %s: %d/%d iterations, success %s",
		input.ID, res.Completed, iterations, res.SuccessProbability)
	if res.Cancelled {
		return res, domain.Wrap(domain.KindCancelled, "monte carlo run cancelled", ctx.Err())
	}
	return res, nil
}

// iterationReturns builds the return source for one iteration (override in
// tests).
var iterationReturns = func(seed int64, horizon int, models map[domain.AssetClass]domain.ReturnModel) ReturnSource {
	return NewSampledReturns(rand.New(rand.NewSource(seed)), horizon, models)
}

// runIteration projects one sampled path.
func runIteration(ctx context.Context, base *Projector, seed int64, horizon int, models map[domain.AssetClass]domain.ReturnModel) (iterationPath, error) {
	p := base.Fork(WithReturns(iterationReturns(seed, horizon, models)))
	res, err := p.Run(ctx)
	if err != nil {
		return nil, err
	}
	path := make(iterationPath, len(res.Years))
	for y, yp := range res.Years {
		path[y] = yp.NetWorth.Amount()
	}
	return path, nil
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// sortedColumn returns every path's value for one year, ascending.
func sortedColumn(paths []iterationPath, year int) []decimal.Decimal {
	col := make([]decimal.Decimal, len(paths))
	for i, p := range paths {
		col[i] = p[year]
	}
	sort.Slice(col, func(i, j int) bool { return col[i].LessThan(col[j]) })
	return col
}
