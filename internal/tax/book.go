package tax

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rpgo/wealth-simulator/internal/domain"
)

// RulesProvider supplies rules snapshots. It never extrapolates: a missing
// year is reported as RulesNotFound.
type RulesProvider interface {
	Lookup(j domain.Jurisdiction, year int) (*domain.TaxYearRules, error)
}

// SupersededFunc is notified after a newer revision replaces a snapshot.
// Notifications for a slot arrive one at a time in increasing revision
// order; one overtaken by a newer revision is dropped. A watcher must not
// publish.
type SupersededFunc func(previous, current *domain.TaxYearRules)

// RulesBook is an in-memory RulesProvider keyed by jurisdiction and tax
// year. Every revision ever published is retained for historical replay.
// Published snapshots are deep copies and are never modified, so callers may
// read them concurrently without locking.
type RulesBook struct {
	mu       sync.RWMutex
	current  map[domain.RulesKey]*domain.TaxYearRules
	history  map[domain.RulesKey][]*domain.TaxYearRules
	watchers []SupersededFunc

	notifyMu sync.Mutex
	notified map[domain.RulesKey]int
}

// NewRulesBook creates a book holding the given snapshots.
func NewRulesBook(snapshots ...*domain.TaxYearRules) (*RulesBook, error) {
	b := &RulesBook{
		current:  make(map[domain.RulesKey]*domain.TaxYearRules),
		history:  make(map[domain.RulesKey][]*domain.TaxYearRules),
		notified: make(map[domain.RulesKey]int),
	}
	for _, r := range snapshots {
		if err := b.Publish(r); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// DefaultRulesBook holds the compiled-in snapshots.
func DefaultRulesBook() *RulesBook {
	b, err := NewRulesBook(BuiltinRules()...)
	if err != nil {
		panic(fmt.Sprintf("builtin rules invalid: %v", err))
	}
	return b
}

// Publish adds a snapshot. A snapshot for an occupied slot must carry a
// higher revision; it supersedes the previous one and watchers are told.
func (b *RulesBook) Publish(r *domain.TaxYearRules) error {
	if r == nil {
		return domain.NewError(domain.KindInvalidInput, "nil rules snapshot")
	}
	if err := r.Validate(); err != nil {
		return fmt.Errorf("rules %s: %w", r.Version(), err)
	}
	snapshot := cloneRules(r)
	key := snapshot.Key()

	b.mu.Lock()
	previous := b.current[key]
	if previous != nil && snapshot.Revision <= previous.Revision {
		b.mu.Unlock()
		return &domain.Error{
			Kind:    domain.KindInvalidInput,
			Field:   "revision",
			Message: fmt.Sprintf("%s already published at revision %d", key, previous.Revision),
		}
	}
	b.current[key] = snapshot
	b.history[key] = append(b.history[key], snapshot)
	watchers := append([]SupersededFunc(nil), b.watchers...)
	b.mu.Unlock()

	if previous != nil {
		b.notify(key, previous, snapshot, watchers)
	}
	return nil
}

// notify runs outside mu, so concurrent publishers can get here out of
// order. The highest revision delivered per slot is remembered and anything
// older is dropped.
func (b *RulesBook) notify(key domain.RulesKey, previous, current *domain.TaxYearRules, watchers []SupersededFunc) {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()
	if b.notified[key] >= current.Revision {
		return
	}
	b.notified[key] = current.Revision
	for _, w := range watchers {
		w(previous, current)
	}
}

// Lookup returns the current snapshot for a jurisdiction and tax year.
func (b *RulesBook) Lookup(j domain.Jurisdiction, year int) (*domain.TaxYearRules, error) {
	if !j.Valid() {
		return nil, &domain.Error{Kind: domain.KindUnsupportedJurisdiction, Message: fmt.Sprintf("unsupported jurisdiction %q", j)}
	}
	b.mu.RLock()
	r, ok := b.current[domain.RulesKey{Jurisdiction: j, Year: year}]
	b.mu.RUnlock()
	if !ok {
		return nil, &domain.Error{
			Kind:     domain.KindRulesNotFound,
			Message:  fmt.Sprintf("no %s rules for tax year %d", j, year),
			Metadata: map[string]string{"jurisdiction": string(j), "year": fmt.Sprint(year)},
		}
	}
	return r, nil
}

// LookupRevision returns a specific, possibly superseded, revision.
func (b *RulesBook) LookupRevision(j domain.Jurisdiction, year, revision int) (*domain.TaxYearRules, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, r := range b.history[domain.RulesKey{Jurisdiction: j, Year: year}] {
		if r.Revision == revision {
			return r, nil
		}
	}
	return nil, &domain.Error{
		Kind:    domain.KindRulesNotFound,
		Message: fmt.Sprintf("no %s rules for tax year %d revision %d", j, year, revision),
	}
}

// OnSuperseded registers a watcher.
func (b *RulesBook) OnSuperseded(fn SupersededFunc) {
	b.mu.Lock()
	b.watchers = append(b.watchers, fn)
	b.mu.Unlock()
}

// Keys lists occupied slots ordered by jurisdiction then year.
func (b *RulesBook) Keys() []domain.RulesKey {
	b.mu.RLock()
	keys := make([]domain.RulesKey, 0, len(b.current))
	for k := range b.current {
		keys = append(keys, k)
	}
	b.mu.RUnlock()
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Jurisdiction != keys[j].Jurisdiction {
			return keys[i].Jurisdiction < keys[j].Jurisdiction
		}
		return keys[i].Year < keys[j].Year
	})
	return keys
}

// Years lists the tax years available for a jurisdiction, ascending.
func (b *RulesBook) Years(j domain.Jurisdiction) []int {
	var years []int
	for _, k := range b.Keys() {
		if k.Jurisdiction == j {
			years = append(years, k.Year)
		}
	}
	return years
}

func cloneRules(r *domain.TaxYearRules) *domain.TaxYearRules {
	c := *r
	c.IncomeBrackets = append([]domain.Bracket(nil), r.IncomeBrackets...)
	if r.AU != nil {
		au := *r.AU
		c.AU = &au
	}
	if r.US != nil {
		us := *r.US
		us.LongTermGainBrackets = append([]domain.Bracket(nil), r.US.LongTermGainBrackets...)
		c.US = &us
	}
	if r.UK != nil {
		uk := *r.UK
		uk.DividendRates = append([]domain.Bracket(nil), r.UK.DividendRates...)
		c.UK = &uk
	}
	return &c
}
