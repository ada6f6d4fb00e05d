// Package orchestrator fronts the calculation engine with a result cache.
//
// Every request is fingerprinted from its input, the version of the rules it
// runs under, its kind and its Monte Carlo settings. At most one computation
// per fingerprint is in flight; concurrent callers share its outcome. Results
// are kept in memory under a byte budget, optionally backed by a shared
// ResultStore, and dropped when the rules they were computed under are
// superseded. Provisional estimates, failures and cancelled runs are never
// cached.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rpgo/wealth-simulator/internal/calculation"
	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/rpgo/wealth-simulator/internal/tax"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// Kind is the type of computation requested.
type Kind string

const (
	KindScenario   Kind = "scenario"
	KindMonteCarlo Kind = "monte_carlo"
)

// DefaultMaxBytes is the memory ceiling used when Options leaves it unset.
const DefaultMaxBytes = 256 << 20

// Request asks for one computation.
type Request struct {
	Kind       Kind
	Input      *domain.ScenarioInput
	MonteCarlo *domain.MonteCarloConfig
}

// Result carries exactly one of Scenario or MonteCarlo, matching Kind.
// Results may be shared between callers and must not be modified.
type Result struct {
	Kind        Kind                     `json:"kind"`
	Fingerprint Fingerprint              `json:"fingerprint"`
	Scenario    *domain.ScenarioResult   `json:"scenario,omitempty"`
	MonteCarlo  *domain.MonteCarloResult `json:"monte_carlo,omitempty"`
	// Cached is set when the result was served without computing it.
	Cached bool `json:"-"`
}

// Runner performs the computations; calculation.CalculationEngine
// satisfies it.
type Runner interface {
	Project(ctx context.Context, input *domain.ScenarioInput, rules *domain.TaxYearRules) (*domain.ScenarioResult, error)
	Simulate(ctx context.Context, input *domain.ScenarioInput, rules *domain.TaxYearRules, cfg domain.MonteCarloConfig) (*domain.MonteCarloResult, error)
}

// Options configures an Orchestrator.
type Options struct {
	// MaxBytes bounds the in-memory cache; zero uses DefaultMaxBytes.
	MaxBytes int64
	// MaxConcurrent bounds computations running at once; zero uses
	// runtime.NumCPU().
	MaxConcurrent int
	Store         ResultStore
	Logger        calculation.Logger
	Tracer        trace.Tracer
}

// Stats is a snapshot of cache activity.
type Stats struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	StoreHits     int64 `json:"store_hits"`
	Computations  int64 `json:"computations"`
	Shared        int64 `json:"shared"`
	Evictions     int64 `json:"evictions"`
	Invalidations int64 `json:"invalidations"`
	Entries       int   `json:"entries"`
	Bytes         int64 `json:"bytes"`

	// OldestEntry is when the longest-held cached result was stored.
	OldestEntry time.Time `json:"oldest_entry"`
}

// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	rules  tax.RulesProvider
	runner Runner
	cache  *resultCache
	store  ResultStore
	flight singleflight.Group
	slots  *semaphore.Weighted
	logger calculation.Logger
	tracer trace.Tracer

	hits, misses, storeHits, computations, shared, invalidations atomic.Int64
}

// supersedable is implemented by rules providers that announce replaced
// snapshots, such as tax.RulesBook.
type supersedable interface {
	OnSuperseded(fn tax.SupersededFunc)
}

// New creates an orchestrator. When rules announces superseded snapshots the
// orchestrator subscribes and invalidates the affected results.
func New(rules tax.RulesProvider, runner Runner, opts Options) *Orchestrator {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = runtime.NumCPU()
	}
	if opts.Logger == nil {
		opts.Logger = calculation.NopLogger{}
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("github.com/rpgo/wealth-simulator/internal/orchestrator")
	}
	o := &Orchestrator{
		rules:  rules,
		runner: runner,
		cache:  newResultCache(opts.MaxBytes),
		store:  opts.Store,
		slots:  semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		logger: opts.Logger,
		tracer: opts.Tracer,
	}
	if s, ok := rules.(supersedable); ok {
		s.OnSuperseded(func(previous, _ *domain.TaxYearRules) {
			o.InvalidateRules(previous.Key())
		})
	}
	return o
}

// ComputeScenario returns the deterministic projection for input.
func (o *Orchestrator) ComputeScenario(ctx context.Context, input *domain.ScenarioInput) (*domain.ScenarioResult, error) {
	r, err := o.Compute(ctx, Request{Kind: KindScenario, Input: input})
	if err != nil {
		return nil, err
	}
	return r.Scenario, nil
}

// RunMonteCarlo returns the simulation for input. A cancelled run returns
// its partial result together with a Cancelled error.
func (o *Orchestrator) RunMonteCarlo(ctx context.Context, input *domain.ScenarioInput, cfg domain.MonteCarloConfig) (*domain.MonteCarloResult, error) {
	r, err := o.Compute(ctx, Request{Kind: KindMonteCarlo, Input: input, MonteCarlo: &cfg})
	if r == nil {
		return nil, err
	}
	return r.MonteCarlo, err
}

// Compute serves req from cache or computes it. Invalid input and missing
// rules are rejected before anything is looked up or computed.
func (o *Orchestrator) Compute(ctx context.Context, req Request) (res *Result, err error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.compute",
		trace.WithAttributes(attribute.String("wealthsim.kind", string(req.Kind))))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	rules, err := o.prepare(req)
	if err != nil {
		return nil, err
	}
	fp, err := FingerprintOf(req, rules.Version())
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "fingerprint request", err)
	}
	span.SetAttributes(
		attribute.String("wealthsim.fingerprint", string(fp)),
		attribute.String("wealthsim.rules_version", rules.Version()),
	)

	if e, ok := o.cache.get(fp); ok {
		o.hits.Add(1)
		span.SetAttributes(attribute.Bool("wealthsim.cache_hit", true))
		o.logger.Debugf("cache hit %s, computed %s ago", fp, o.cache.now().Sub(e.created).Round(time.Millisecond))
		return cachedCopy(e.result), nil
	}
	o.misses.Add(1)
	span.SetAttributes(attribute.Bool("wealthsim.cache_hit", false))

	// The first caller's context drives the computation; later callers
	// stop waiting when their own context ends. A cancelled leader still
	// waits so it receives whatever its run finished. A follower whose
	// context is live does not inherit the leader's cancellation: it joins
	// or starts the next flight instead.
	for {
		var leader atomic.Bool
		ch := o.flight.DoChan(string(fp), func() (any, error) {
			leader.Store(true)
			return o.load(ctx, req, rules, fp)
		})
		var out singleflight.Result
		select {
		case <-ctx.Done():
			if !leader.Load() {
				return nil, domain.Wrap(domain.KindCancelled, "compute cancelled", ctx.Err())
			}
			out = <-ch
		case out = <-ch:
		}
		if !leader.Load() && IsCancelled(out.Err) && ctx.Err() == nil {
			o.logger.Debugf("shared computation %s was cancelled by another caller, retrying", fp)
			continue
		}
		return o.received(out)
	}
}

func (o *Orchestrator) received(out singleflight.Result) (*Result, error) {
	if out.Shared {
		o.shared.Add(1)
	}
	r, _ := out.Val.(*Result)
	return r, out.Err
}

// prepare validates req and resolves its rules.
func (o *Orchestrator) prepare(req Request) (*domain.TaxYearRules, error) {
	if req.Input == nil {
		return nil, domain.NewError(domain.KindInvalidInput, "scenario input is required")
	}
	if err := req.Input.Validate(); err != nil {
		return nil, err
	}
	switch req.Kind {
	case KindScenario:
	case KindMonteCarlo:
		if req.MonteCarlo != nil {
			if err := req.MonteCarlo.Validate(req.Input); err != nil {
				return nil, err
			}
		}
	default:
		return nil, domain.NewError(domain.KindInvalidInput, "unknown computation kind %q", req.Kind)
	}
	return o.rules.Lookup(req.Input.Jurisdiction, req.Input.TaxYear)
}

// load runs once per fingerprint at a time: store, then computation.
func (o *Orchestrator) load(ctx context.Context, req Request, rules *domain.TaxYearRules, fp Fingerprint) (*Result, error) {
	// A flight that finished just before this one started has filled the
	// cache already.
	if e, ok := o.cache.get(fp); ok {
		return cachedCopy(e.result), nil
	}
	if r, ok := o.fromStore(ctx, req.Kind, fp, rules); ok {
		return r, nil
	}

	if err := o.slots.Acquire(ctx, 1); err != nil {
		return nil, domain.Wrap(domain.KindCancelled, "waiting for a computation slot", err)
	}
	defer o.slots.Release(1)

	o.computations.Add(1)
	r := &Result{Kind: req.Kind, Fingerprint: fp}
	var err error
	switch req.Kind {
	case KindScenario:
		r.Scenario, err = o.runner.Project(ctx, req.Input, rules)
	case KindMonteCarlo:
		cfg := domain.MonteCarloConfig{}
		if req.MonteCarlo != nil {
			cfg = *req.MonteCarlo
		}
		r.MonteCarlo, err = o.runner.Simulate(ctx, req.Input, rules, cfg)
	}
	if err != nil {
		if r.MonteCarlo != nil {
			// A cancelled simulation still reports what it finished.
			return r, err
		}
		return nil, err
	}
	o.remember(ctx, fp, rules, r)
	return r, nil
}

func (o *Orchestrator) fromStore(ctx context.Context, kind Kind, fp Fingerprint, rules *domain.TaxYearRules) (*Result, bool) {
	if o.store == nil {
		return nil, false
	}
	data, ok, err := o.store.Get(ctx, fp)
	if err != nil {
		o.logger.Warnf("result store lookup for %s failed: %v", fp, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil || r.Kind != kind {
		o.logger.Warnf("discarding unreadable stored result %s: %v", fp, err)
		return nil, false
	}
	o.storeHits.Add(1)
	o.cache.put(fp, rules.Key(), &r, int64(len(data)))
	return cachedCopy(&r), true
}

// remember caches a fresh result unless its rules were superseded while it
// was computed.
func (o *Orchestrator) remember(ctx context.Context, fp Fingerprint, rules *domain.TaxYearRules, r *Result) {
	if current, err := o.rules.Lookup(rules.Jurisdiction, rules.Year); err != nil || current.Version() != rules.Version() {
		o.logger.Debugf("not caching %s: rules %s superseded", fp, rules.Version())
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		o.logger.Warnf("not caching %s: %v", fp, err)
		return
	}
	if !o.cache.put(fp, rules.Key(), r, int64(len(data))) {
		o.logger.Debugf("result %s (%d bytes) exceeds the cache budget", fp, len(data))
	}
	if o.store != nil {
		if err := o.store.Put(ctx, fp, data); err != nil {
			o.logger.Warnf("result store write for %s failed: %v", fp, err)
		}
	}
}

func cachedCopy(r *Result) *Result {
	c := *r
	c.Cached = true
	return &c
}

// Progressive pairs an immediate provisional estimate with the final result.
type Progressive struct {
	// Estimate is a deterministic projection marked Provisional. It is nil
	// when the final result was already cached.
	Estimate *domain.ScenarioResult
	// Final delivers exactly one outcome and is then closed.
	Final <-chan Outcome
}

// Outcome is the final result of a progressive computation.
type Outcome struct {
	Result *Result
	Err    error
}

// ComputeProgressive returns a provisional estimate straight away and
// completes req in the background. The estimate never enters the cache.
func (o *Orchestrator) ComputeProgressive(ctx context.Context, req Request) (*Progressive, error) {
	rules, err := o.prepare(req)
	if err != nil {
		return nil, err
	}
	fp, err := FingerprintOf(req, rules.Version())
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "fingerprint request", err)
	}
	final := make(chan Outcome, 1)
	if e, ok := o.cache.get(fp); ok {
		o.hits.Add(1)
		final <- Outcome{Result: cachedCopy(e.result)}
		close(final)
		return &Progressive{Final: final}, nil
	}

	estimate, err := o.runner.Project(ctx, req.Input, rules)
	if err != nil {
		return nil, err
	}
	estimate.Provisional = true

	go func() {
		defer close(final)
		r, err := o.Compute(ctx, req)
		final <- Outcome{Result: r, Err: err}
	}()
	return &Progressive{Estimate: estimate, Final: final}, nil
}

// InvalidateRules drops every cached result computed under the snapshot and
// returns how many were dropped.
func (o *Orchestrator) InvalidateRules(key domain.RulesKey) int {
	n := o.cache.invalidate(key)
	o.invalidations.Add(int64(n))
	if n > 0 {
		o.logger.Infof("invalidated %d cached results for rules %s", n, key)
	}
	return n
}

// Stats returns a snapshot of cache activity.
func (o *Orchestrator) Stats() Stats {
	u := o.cache.usage()
	return Stats{
		Hits:          o.hits.Load(),
		Misses:        o.misses.Load(),
		StoreHits:     o.storeHits.Load(),
		Computations:  o.computations.Load(),
		Shared:        o.shared.Load(),
		Evictions:     u.evictions,
		Invalidations: o.invalidations.Load(),
		Entries:       u.entries,
		Bytes:         u.bytes,
		OldestEntry:   u.oldest,
	}
}

// String renders the stats on one line.
func (s Stats) String() string {
	line := fmt.Sprintf("hits=%d misses=%d store_hits=%d computations=%d shared=%d evictions=%d invalidations=%d entries=%d bytes=%d",
		s.Hits, s.Misses, s.StoreHits, s.Computations, s.Shared, s.Evictions, s.Invalidations, s.Entries, s.Bytes)
	if !s.OldestEntry.IsZero() {
		line += " oldest=" + s.OldestEntry.UTC().Format(time.RFC3339)
	}
	return line
}

var _ Runner = (*calculation.CalculationEngine)(nil)

// IsCancelled reports whether err ended a computation early.
func IsCancelled(err error) bool {
	return errors.Is(err, domain.ErrCancelled)
}
