package calculation

import (
	"testing"

	"github.com/rpgo/wealth-simulator/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthlyPayment(t *testing.T) {
	p, err := MonthlyPayment(aud("400000"), dec("0.06"), 360)
	require.NoError(t, err)
	assert.Equal(t, "2398.20", p.Round().Amount().StringFixed(2))

	p, err = MonthlyPayment(aud("12000"), dec("0"), 12)
	require.NoError(t, err)
	assert.True(t, p.Equal(aud("1000")))
}

func TestAmortizeFirstYear(t *testing.T) {
	interest, principal, months, err := amortizeYear(aud("400000"), dec("0.06"), 360)
	require.NoError(t, err)
	assert.Equal(t, 12, months)
	assert.Equal(t, "23866.38", interest.Round().Amount().StringFixed(2))
	assert.Equal(t, "4912.05", principal.Round().Amount().StringFixed(2))
}

func TestAmortizeRetiresLoan(t *testing.T) {
	balance := aud("250000")
	remaining := 25 * 12
	repaid := money.NewTotal("AUD")
	for remaining > 0 {
		_, principal, months, err := amortizeYear(balance, dec("0.055"), remaining)
		require.NoError(t, err)
		repaid.Add(principal)
		balance, err = balance.Sub(principal)
		require.NoError(t, err)
		remaining -= months
	}
	total, err := repaid.Result()
	require.NoError(t, err)
	assert.True(t, balance.Round().IsZero(), "left %s", balance)
	assert.True(t, total.Round().Equal(aud("250000")))
}
