package calculation

import (
	"sync"

	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/rpgo/wealth-simulator/pkg/money"
	"github.com/shopspring/decimal"
)

// schedules memoizes the parts of a projection that never depend on sampled
// returns. Income, expenses, rents and contributions grow at fixed rates and
// loans amortize on fixed terms, so a projector and all of its forks share
// one table. A nil table computes everything afresh.
type schedules struct {
	amounts sync.Map // growthKey -> money.Money
	factors sync.Map // factorKey -> decimal.Decimal
	loans   sync.Map // loanKey -> loanYear
}

// Keys point at fields of the scenario input, which is never modified once
// validated.
type growthKey struct {
	base, rate *decimal.Decimal
	years      int
}

type factorKey struct {
	rate  *decimal.Decimal
	years int
}

type loanKey struct {
	component *domain.HousingComponent
	remaining int
}

type loanYear struct {
	balance   money.Money
	interest  money.Money
	principal money.Money
	months    int
}

func newSchedules() *schedules { return &schedules{} }

// grown returns base × (1+rate)^years in the scenario currency.
func (s *schedules) grown(in *domain.ScenarioInput, base, rate *decimal.Decimal, years int) (money.Money, error) {
	if s == nil {
		return growAmount(in, *base, *rate, years)
	}
	k := growthKey{base: base, rate: rate, years: years}
	if v, ok := s.amounts.Load(k); ok {
		return v.(money.Money), nil
	}
	m, err := growAmount(in, *base, *rate, years)
	if err != nil {
		return money.Money{}, err
	}
	s.amounts.Store(k, m)
	return m, nil
}

// factor returns (1+rate)^years.
func (s *schedules) factor(rate *decimal.Decimal, years int) decimal.Decimal {
	if s == nil {
		return money.CompoundFactor(*rate, years)
	}
	k := factorKey{rate: rate, years: years}
	if v, ok := s.factors.Load(k); ok {
		return v.(decimal.Decimal)
	}
	f := money.CompoundFactor(*rate, years)
	s.factors.Store(k, f)
	return f
}

// amortize advances c's loan by a year. The stored year is reused only when
// the balance matches the one it was computed from.
func (s *schedules) amortize(c *domain.HousingComponent, balance money.Money, remaining int) (interest, principal money.Money, months int, err error) {
	if s == nil {
		return amortizeYear(balance, *c.MortgageRate, remaining)
	}
	k := loanKey{component: c, remaining: remaining}
	if v, ok := s.loans.Load(k); ok {
		if ly := v.(loanYear); ly.balance.Equal(balance) {
			return ly.interest, ly.principal, ly.months, nil
		}
	}
	if interest, principal, months, err = amortizeYear(balance, *c.MortgageRate, remaining); err != nil {
		return
	}
	s.loans.Store(k, loanYear{balance: balance, interest: interest, principal: principal, months: months})
	return
}

func growAmount(in *domain.ScenarioInput, base, rate decimal.Decimal, years int) (money.Money, error) {
	m, err := in.Money(base)
	if err != nil {
		return money.Money{}, err
	}
	return m.Grow(rate, years)
}
