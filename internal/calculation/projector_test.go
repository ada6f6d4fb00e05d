package calculation

import (
	"context"
	"errors"
	"testing"

	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/rpgo/wealth-simulator/internal/tax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectorSalaryOnly(t *testing.T) {
	res := project(t, salaryOnly())
	require.Len(t, res.Years, 3)
	assert.Equal(t, "AU-2024-r1", res.RulesVersion)
	assert.NotEmpty(t, res.RunID)

	want := []struct {
		paid, cash, netWorth string
	}{
		{"0", "60000", "37212"},
		{"22788", "87212", "64424"},
		{"22788", "114424", "91636"},
	}
	for i, w := range want {
		y := res.Years[i]
		assert.Equal(t, i, y.Year)
		assert.Equal(t, 40+i, y.Age)
		assert.True(t, y.TaxPayable.Equal(aud("22788")), "year %d payable %s", i, y.TaxPayable)
		assert.True(t, y.TaxPaid.Equal(aud(w.paid)), "year %d paid %s", i, y.TaxPaid)
		assert.True(t, y.Cash.Equal(aud(w.cash)), "year %d cash %s", i, y.Cash)
		assert.True(t, y.NetWorth.Equal(aud(w.netWorth)), "year %d net worth %s", i, y.NetWorth)
	}

	s := res.Summary
	assert.True(t, s.FinalNetWorth.Equal(aud("91636")))
	assert.True(t, s.TotalTax.Equal(aud("68364")))
	assert.Equal(t, 2, s.PeakYear)
	assert.Equal(t, "0.2279", s.EffectiveTaxRate.String())
	assert.False(t, s.GoalReached)
	assert.Equal(t, -1, s.GoalReachedYear)
}

func TestProjectorGoal(t *testing.T) {
	in := salaryOnly()
	in.GoalAmount = dec("60000")
	s := project(t, in).Summary
	assert.True(t, s.GoalReached)
	assert.Equal(t, 1, s.GoalReachedYear)
}

func TestProjectorDeterministic(t *testing.T) {
	in := salaryOnly()
	in.HorizonYears = 20
	in.IncomeGrowth = dec("0.03")
	in.ExpenseInflation = dec("0.025")
	in.SavingsRate = dec("0.04")
	in.StartingDebt = dec("20000")
	in.DebtInterestRate = dec("0.08")
	in.DebtRepayment = dec("5000")
	in.Housing = []domain.HousingComponent{rentalProperty()}
	in.Investments = []domain.InvestmentComponent{brokerage()}

	first := project(t, in)
	second := project(t, in)
	assert.Equal(t, first.Years, second.Years)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.Warnings, second.Warnings)
}

func TestProjectorRunsOnce(t *testing.T) {
	p, err := NewProjector(salaryOnly(), tax.AU2024())
	require.NoError(t, err)
	assert.Equal(t, StateInitialized, p.State())

	_, err = p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, p.State())

	_, err = p.Run(context.Background())
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))

	fork := p.Fork()
	assert.Equal(t, StateInitialized, fork.State())
}

func TestProjectorRejectsBeforeRunning(t *testing.T) {
	in := salaryOnly()
	in.HorizonYears = 0
	_, err := NewProjector(in, tax.AU2024())
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = NewProjector(salaryOnly(), tax.US2024())
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = NewProjector(salaryOnly(), nil)
	assert.True(t, errors.Is(err, domain.ErrRulesNotFound))

	_, err = NewProjector(salaryOnly(), tax.AU2024(), WithHorizon(61))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestProjectorComponentFailureAbortsRun(t *testing.T) {
	in := salaryOnly()
	h := rentalProperty()
	h.StartYear = 1
	h.MortgageRate = nil
	in.Housing = []domain.HousingComponent{h}

	p, err := NewProjector(in, tax.AU2024())
	require.NoError(t, err, "a missing mortgage rate is caught at first use")

	res, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, StateFailed, p.State())
	assert.True(t, errors.Is(err, domain.ErrScenarioCalculation))
	assert.True(t, errors.Is(err, domain.ErrInvalidComponentConfig))

	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 1, de.Year)
	assert.Equal(t, "rental", de.Component)
}

func TestProjectorContributionClampWarning(t *testing.T) {
	in := salaryOnly()
	in.Investments = []domain.InvestmentComponent{{
		ID:                  "super",
		AccountType:         domain.AccountSuperConcessional,
		MonthlyContribution: dec("3000"),
		ExpectedReturn:      dec("0.07"),
	}}
	res := project(t, in)

	warnings := res.WarningsOf(domain.WarningContributionLimitExceeded)
	require.Len(t, warnings, 3)
	w := warnings[0]
	assert.Equal(t, "super", w.Component)
	assert.Equal(t, 0, w.Year)
	assert.True(t, w.Requested.Equal(aud("36000")))
	assert.True(t, w.Limit.Equal(aud("30000")))
	assert.True(t, w.Excess.Equal(aud("6000")))

	y := res.Years[0]
	assert.True(t, y.Deductions.Equal(aud("30000")))
	assert.True(t, y.TaxableIncome.Equal(aud("70000")))
	assert.True(t, res.Summary.TotalContributions.Equal(aud("90000")))
}

func TestProjectorNegativeGearing(t *testing.T) {
	in := salaryOnly()
	in.StartingSavings = dec("200000")
	in.Housing = []domain.HousingComponent{rentalProperty()}
	res := project(t, in)

	y := res.Years[0]
	require.Len(t, y.Housing, 1)
	assert.True(t, y.Deductions.Equal(aud("4166.38")))
	assert.True(t, y.TaxableIncome.Equal(aud("95833.62")))
	assert.True(t, y.IncomeTax.Equal(aud("21454.76")), y.IncomeTax.String())
	assert.True(t, y.Housing[0].TaxBenefit.Equal(aud("1249.91")))

	var kinds []string
	for _, o := range res.Optimizations {
		if o.Year == 0 {
			kinds = append(kinds, o.Kind)
		}
	}
	assert.Contains(t, kinds, "negative_gearing")
}

func TestProjectorCashShortfall(t *testing.T) {
	in := salaryOnly()
	in.AnnualExpenses = dec("150000")
	res := project(t, in)

	assert.NotEmpty(t, res.WarningsOf(domain.WarningCashShortfall))
	assert.Equal(t, 3, res.Summary.ShortfallYears)
}

func TestProjectorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, err := NewProjector(salaryOnly(), tax.AU2024())
	require.NoError(t, err)
	_, err = p.Run(ctx)
	assert.True(t, errors.Is(err, domain.ErrCancelled))
}

func TestProjectorLean(t *testing.T) {
	in := salaryOnly()
	in.Investments = []domain.InvestmentComponent{brokerage()}
	in.Housing = []domain.HousingComponent{rentalProperty()}
	full := project(t, in)

	p, err := NewProjector(in, tax.AU2024(), Lean())
	require.NoError(t, err)
	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Years, len(full.Years))
	for y, yp := range res.Years {
		assert.Empty(t, yp.Investments)
		assert.Empty(t, yp.Housing)
		assert.True(t, yp.NetWorth.Equal(full.Years[y].NetWorth), "year %d", y)
		assert.True(t, yp.Cash.Equal(full.Years[y].Cash), "year %d", y)
	}
	assert.Empty(t, res.Optimizations)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, domain.Summary{}, res.Summary)
}

func TestForksShareSchedules(t *testing.T) {
	in := salaryOnly()
	in.Investments = []domain.InvestmentComponent{brokerage()}
	h := rentalProperty()
	in.Housing = []domain.HousingComponent{h}
	want := project(t, in)

	base, err := NewProjector(in, tax.AU2024())
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		res, err := base.Fork().Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want.Years, res.Years, "fork %d", i)
	}
	_, ok := base.schedules.loans.Load(loanKey{component: &in.Housing[0], remaining: h.LoanTermYears * 12})
	assert.True(t, ok, "first loan year memoized")
}
