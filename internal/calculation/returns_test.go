package calculation

import (
	"math"
	"math/rand"
	"testing"

	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBoxMullerTransform(t *testing.T) {
	assert.Equal(t, 0.0, boxMullerTransform(1, 0.3))
	assert.InDelta(t, math.Sqrt(-2*math.Log(0.5)), boxMullerTransform(0.5, 0), 1e-12)
}

func TestStandardNormalMoments(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	const n = 200000
	var sum, sq float64
	for i := 0; i < n; i++ {
		z := standardNormal(rng)
		sum += z
		sq += z * z
	}
	mean := sum / n
	assert.InDelta(t, 0, mean, 0.01)
	assert.InDelta(t, 1, sq/n-mean*mean, 0.02)
}

func TestSampledReturns(t *testing.T) {
	models := map[domain.AssetClass]domain.ReturnModel{
		domain.AssetEquity: {Volatility: dec("0.2")},
		domain.AssetCash:   {Mean: decPtr("0.03"), Volatility: decimal.Zero},
	}
	a := NewSampledReturns(rand.New(rand.NewSource(5)), 10, models)
	b := NewSampledReturns(rand.New(rand.NewSource(5)), 10, models)

	for y := 0; y <= 10; y++ {
		assert.True(t, a.Return(y, domain.AssetEquity, dec("0.07")).Equal(b.Return(y, domain.AssetEquity, dec("0.07"))))
		assert.True(t, a.Return(y, domain.AssetCash, dec("0.01")).Equal(dec("0.03")), "mean override wins")
		assert.True(t, a.Return(y, domain.AssetEquity, dec("0.07")).GreaterThanOrEqual(returnFloor))
	}
	assert.True(t, a.Return(3, domain.AssetProperty, dec("0.05")).Equal(dec("0.05")), "unmodelled class keeps its expected rate")
	assert.True(t, a.Return(11, domain.AssetEquity, dec("0.07")).Equal(dec("0.07")), "beyond the drawn horizon")
}

func TestSampledReturnsFloor(t *testing.T) {
	models := map[domain.AssetClass]domain.ReturnModel{domain.AssetEquity: {Volatility: dec("50")}}
	s := NewSampledReturns(rand.New(rand.NewSource(8)), 60, models)
	for y := 0; y <= 60; y++ {
		assert.True(t, s.Return(y, domain.AssetEquity, decimal.Zero).GreaterThanOrEqual(returnFloor))
	}
}
