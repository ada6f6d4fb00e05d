package output

import (
	"strconv"

	"github.com/rpgo/wealth-simulator/pkg/money"
	"github.com/shopspring/decimal"
)

var decimalHundred = decimal.NewFromInt(100)

// FormatCurrency renders an amount with its currency symbol and grouping.
func FormatCurrency(m money.Money) string { return m.Format() }

// FormatPercentage renders a fraction (0.0525) as a percentage ("5.25%").
func FormatPercentage(ratio decimal.Decimal) string {
	return ratio.Mul(decimalHundred).StringFixed(2) + "%"
}

// amount renders a plain fixed-point amount for machine-readable output.
func amount(m money.Money) string { return m.Round().Amount().StringFixed(2) }

func intToString(i int) string { return strconv.Itoa(i) }

func boolToString(b bool) string { return strconv.FormatBool(b) }

func int64ToString(i int64) string { return strconv.FormatInt(i, 10) }
