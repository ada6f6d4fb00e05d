package calculation

import (
	"errors"
	"testing"

	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHousingPurchaseYear(t *testing.T) {
	in := salaryOnly()
	in.Housing = []domain.HousingComponent{rentalProperty()}
	sc := contextFor(t, in, 0)

	r, err := HousingCalculator{}.CalculateYear(&in.Housing[0], sc, HousingState{})
	require.NoError(t, err)
	y := r.Year

	assert.True(t, y.PropertyValue.Equal(aud("525000")))
	assert.True(t, y.InterestPaid.Equal(aud("23866.38")))
	assert.True(t, y.PrincipalPaid.Equal(aud("4912.05")))
	assert.True(t, y.LoanBalance.Equal(aud("395087.95")))
	assert.True(t, y.Equity.Equal(aud("129912.05")))
	assert.True(t, y.VacancyAllowance.Equal(aud("1300")))
	assert.True(t, y.NetRentalIncome.Equal(aud("-4166.38")))
	assert.True(t, y.Deduction.Equal(aud("4166.38")))
	assert.True(t, y.CashFlow.Equal(aud("-129078.43")))
	assert.False(t, y.Sold)

	assert.True(t, r.State.Purchased)
	assert.Equal(t, 348, r.State.RemainingMonths)
}

func TestHousingInactiveBeforeStart(t *testing.T) {
	in := salaryOnly()
	h := rentalProperty()
	h.StartYear = 1
	in.Housing = []domain.HousingComponent{h}

	r, err := HousingCalculator{}.CalculateYear(&in.Housing[0], contextFor(t, in, 0), HousingState{})
	require.NoError(t, err)
	assert.False(t, r.State.Purchased)
	assert.True(t, r.Year.CashFlow.IsZero())
}

func TestHousingSale(t *testing.T) {
	in := salaryOnly()
	h := rentalProperty()
	h.EndYear = intPtr(1)
	in.Housing = []domain.HousingComponent{h}

	calc := HousingCalculator{}
	first, err := calc.CalculateYear(&in.Housing[0], contextFor(t, in, 0), HousingState{})
	require.NoError(t, err)
	second, err := calc.CalculateYear(&in.Housing[0], contextFor(t, in, 1), first.State)
	require.NoError(t, err)

	y := second.Year
	assert.True(t, y.Sold)
	assert.Equal(t, 24, y.HoldingMonths)
	// 551250 less 2% selling costs less the 520000 cost base.
	assert.True(t, y.CapitalGain.Equal(aud("20225")), y.CapitalGain.String())
	assert.True(t, y.Equity.IsZero())
	assert.True(t, second.State.Sold)

	after, err := calc.CalculateYear(&in.Housing[0], contextFor(t, in, 2), second.State)
	require.NoError(t, err)
	assert.True(t, after.Year.CashFlow.IsZero())
}

func TestHousingConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		j      domain.Jurisdiction
		mutate func(*domain.HousingComponent)
	}{
		{"missing mortgage rate", domain.Australia, func(h *domain.HousingComponent) { h.MortgageRate = nil }},
		{"missing loan term", domain.Australia, func(h *domain.HousingComponent) { h.LoanTermYears = 0 }},
		{"gearing on owner occupied", domain.Australia, func(h *domain.HousingComponent) { h.Investment = false }},
		{"gearing outside australia", domain.UnitedStates, func(*domain.HousingComponent) {}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := salaryOnly()
			if tt.j == domain.UnitedStates {
				in.Jurisdiction, in.Currency = domain.UnitedStates, "USD"
			}
			h := rentalProperty()
			tt.mutate(&h)
			in.Housing = []domain.HousingComponent{h}

			_, err := HousingCalculator{}.CalculateYear(&in.Housing[0], contextFor(t, in, 0), HousingState{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidComponentConfig))
		})
	}
}

func TestHousingInterestOnly(t *testing.T) {
	in := salaryOnly()
	h := rentalProperty()
	h.InterestOnly = true
	h.LoanTermYears = 0
	in.Housing = []domain.HousingComponent{h}

	r, err := HousingCalculator{}.CalculateYear(&in.Housing[0], contextFor(t, in, 0), HousingState{})
	require.NoError(t, err)
	assert.True(t, r.Year.InterestPaid.Equal(aud("24000")))
	assert.True(t, r.Year.PrincipalPaid.IsZero())
	assert.True(t, r.Year.LoanBalance.Equal(aud("400000")))
}
