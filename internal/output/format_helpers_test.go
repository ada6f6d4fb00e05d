package output

import (
	"testing"

	"github.com/rpgo/wealth-simulator/pkg/money"
	"github.com/shopspring/decimal"
)

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		amount, currency, want string
	}{
		{"1234.5", "AUD", "$1,234.50"},
		{"1234.5", "USD", "$1,234.50"},
		{"1234.505", "GBP", "£1,234.50"},
		{"-250", "AUD", "-$250.00"},
	}
	for _, tt := range tests {
		m := money.MustNew(decimal.RequireFromString(tt.amount), tt.currency)
		if got := FormatCurrency(m); got != tt.want {
			t.Errorf("FormatCurrency(%s %s) = %q, want %q", tt.amount, tt.currency, got, tt.want)
		}
	}
}

func TestFormatPercentage(t *testing.T) {
	if got, want := FormatPercentage(decimal.RequireFromString("0.0525")), "5.25%"; got != want {
		t.Errorf("FormatPercentage = %q, want %q", got, want)
	}
	if got, want := FormatPercentage(decimal.Zero), "0.00%"; got != want {
		t.Errorf("FormatPercentage(0) = %q, want %q", got, want)
	}
}

func TestIntToString(t *testing.T) {
	if got, want := intToString(42), "42"; got != want {
		t.Errorf("intToString(42) = %q, want %q", got, want)
	}
	if got, want := boolToString(true), "true"; got != want {
		t.Errorf("boolToString(true) = %q, want %q", got, want)
	}
}
