package calculation

import (
	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/rpgo/wealth-simulator/pkg/money"
	"github.com/shopspring/decimal"
)

// ratioScale is the precision of reported probabilities and drawdowns.
const ratioScale = 4

// aggregate fills the statistical fields of res from completed paths.
func aggregate(res *domain.MonteCarloResult, paths []iterationPath, input *domain.ScenarioInput) error {
	cur := input.Currency
	res.Years = make([]domain.PercentileBand, 0, res.HorizonYears+1)
	var final []decimal.Decimal
	for y := 0; y <= res.HorizonYears; y++ {
		col := sortedColumn(paths, y)
		band, err := percentileBand(y, col, cur)
		if err != nil {
			return err
		}
		res.Years = append(res.Years, band)
		final = col
	}
	res.Final = res.Years[len(res.Years)-1]

	goal, err := input.Money(input.GoalAmount)
	if err != nil {
		return err
	}
	res.Goal = goal.Round()
	res.SuccessProbability = successProbability(final, goal.Amount())

	if res.ValueAtRisk95, res.ConditionalVaR95, err = valueAtRisk(final, cur); err != nil {
		return err
	}
	res.MaxDrawdown, res.WorstDrawdown = drawdowns(paths)
	return nil
}

// Percentile returns the nearest-rank p-th percentile of ascending values.
func Percentile(sorted []decimal.Decimal, p int) decimal.Decimal {
	if len(sorted) == 0 {
		return decimal.Zero
	}
	i := p * len(sorted) / 100
	if i >= len(sorted) {
		i = len(sorted) - 1
	}
	return sorted[i]
}

func percentileBand(year int, sorted []decimal.Decimal, cur string) (domain.PercentileBand, error) {
	band := domain.PercentileBand{Year: year}
	for _, f := range []struct {
		p   int
		dst *money.Money
	}{
		{10, &band.P10}, {25, &band.P25}, {50, &band.P50}, {75, &band.P75}, {90, &band.P90},
	} {
		m, err := money.New(Percentile(sorted, f.p), cur)
		if err != nil {
			return band, err
		}
		*f.dst = m.Round()
	}
	return band, nil
}

// successProbability is the share of final values at or above goal.
func successProbability(final []decimal.Decimal, goal decimal.Decimal) decimal.Decimal {
	if len(final) == 0 {
		return decimal.Zero
	}
	hits := 0
	for _, v := range final {
		if !v.LessThan(goal) {
			hits++
		}
	}
	return decimal.NewFromInt(int64(hits)).DivRound(decimal.NewFromInt(int64(len(final))), ratioScale)
}

// valueAtRisk measures the 5% tail of final outcomes against the median.
// VaR is the median less the 5th percentile. CVaR is the median less the
// mean of the outcomes at or below the 5th percentile. Both are floored at
// zero.
func valueAtRisk(sorted []decimal.Decimal, cur string) (money.Money, money.Money, error) {
	median := Percentile(sorted, 50)
	p5 := Percentile(sorted, 5)

	tail := len(sorted) * 5 / 100
	if tail < 1 {
		tail = 1
	}
	sum := decimal.Zero
	for _, v := range sorted[:tail] {
		sum = sum.Add(v)
	}
	tailMean := sum.DivRound(decimal.NewFromInt(int64(tail)), money.InternalScale)

	v, err := money.New(decimal.Max(median.Sub(p5), decimal.Zero), cur)
	if err != nil {
		return money.Money{}, money.Money{}, err
	}
	cv, err := money.New(decimal.Max(median.Sub(tailMean), decimal.Zero), cur)
	if err != nil {
		return money.Money{}, money.Money{}, err
	}
	return v.Round(), cv.Round(), nil
}

// MaxDrawdown is the largest fractional fall from a running peak along one
// path. Declines before the path first turns positive are not counted.
func MaxDrawdown(path []decimal.Decimal) decimal.Decimal {
	worst := decimal.Zero
	peak := decimal.Zero
	for _, v := range path {
		if v.GreaterThan(peak) {
			peak = v
			continue
		}
		if !peak.IsPositive() {
			continue
		}
		if dd := peak.Sub(v).DivRound(peak, money.InternalScale); dd.GreaterThan(worst) {
			worst = dd
		}
	}
	return worst
}

// drawdowns returns the mean and the largest per-path max drawdown.
func drawdowns(paths []iterationPath) (mean, worst decimal.Decimal) {
	if len(paths) == 0 {
		return decimal.Zero, decimal.Zero
	}
	sum := decimal.Zero
	for _, p := range paths {
		dd := MaxDrawdown(p)
		sum = sum.Add(dd)
		if dd.GreaterThan(worst) {
			worst = dd
		}
	}
	mean = sum.DivRound(decimal.NewFromInt(int64(len(paths))), ratioScale)
	return mean, worst.Round(ratioScale)
}
