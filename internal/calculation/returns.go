package calculation

import (
	"math"
	"math/rand"
	"sort"

	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/shopspring/decimal"
)

// ReturnSource supplies the annual return a component earns in a year.
// expected is the component's configured rate.
type ReturnSource interface {
	Return(year int, class domain.AssetClass, expected decimal.Decimal) decimal.Decimal
}

// ExpectedReturns is the deterministic source: every component earns its
// configured rate.
type ExpectedReturns struct{}

func (ExpectedReturns) Return(_ int, _ domain.AssetClass, expected decimal.Decimal) decimal.Decimal {
	return expected
}

// returnFloor keeps a sampled return from wiping out more than the whole
// holding in one year.
var returnFloor = decimal.RequireFromString("-0.95")

// rateScale is the precision sampled rates are rounded to before they enter
// decimal arithmetic.
const rateScale = 8

// SampledReturns holds one iteration's pre-drawn standard normal shocks,
// one per asset class per year. Classes sharing a year are drawn
// independently; no cross-asset correlation is modelled.
type SampledReturns struct {
	models map[domain.AssetClass]domain.ReturnModel
	shocks map[domain.AssetClass][]float64
}

// NewSampledReturns draws shocks for years 0..horizon from rng. Classes are
// drawn in sorted order so a seed always maps to the same path.
func NewSampledReturns(rng *rand.Rand, horizon int, models map[domain.AssetClass]domain.ReturnModel) *SampledReturns {
	classes := make([]string, 0, len(models))
	for c := range models {
		classes = append(classes, string(c))
	}
	sort.Strings(classes)

	s := &SampledReturns{models: models, shocks: make(map[domain.AssetClass][]float64, len(models))}
	for _, c := range classes {
		s.shocks[domain.AssetClass(c)] = make([]float64, horizon+1)
	}
	for y := 0; y <= horizon; y++ {
		for _, c := range classes {
			s.shocks[domain.AssetClass(c)][y] = standardNormal(rng)
		}
	}
	return s
}

// Return is mean + z × volatility, where mean is the class override when
// set and the component's expected rate otherwise.
func (s *SampledReturns) Return(year int, class domain.AssetClass, expected decimal.Decimal) decimal.Decimal {
	model, ok := s.models[class]
	if !ok {
		return expected
	}
	shocks := s.shocks[class]
	if year < 0 || year >= len(shocks) {
		return expected
	}
	mean := expected
	if model.Mean != nil {
		mean = *model.Mean
	}
	z := decimal.NewFromFloat(shocks[year]).Round(rateScale)
	r := mean.Add(z.Mul(model.Volatility)).Round(rateScale)
	if r.LessThan(returnFloor) {
		return returnFloor
	}
	return r
}

// standardNormal draws from N(0,1) with the Box-Muller transform.
func standardNormal(rng *rand.Rand) float64 {
	u1 := 1 - rng.Float64() // (0, 1], keeps the log finite
	u2 := rng.Float64()
	return boxMullerTransform(u1, u2)
}

func boxMullerTransform(u1, u2 float64) float64 {
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}
