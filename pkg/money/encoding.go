package money

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

type wire struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// MarshalJSON encodes {"amount":"123.45","currency":"AUD"}.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(wire{Amount: m.amount, Currency: m.currency})
}

// UnmarshalJSON accepts the object form or a "123.45 AUD" string. A zero
// amount without a currency decodes to the zero Money.
func (m *Money) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return m.UnmarshalText([]byte(s))
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Currency == "" && w.Amount.IsZero() {
		*m = Money{}
		return nil
	}
	parsed, err := New(w.Amount, w.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MarshalText encodes "123.45 AUD" at full precision.
func (m Money) MarshalText() ([]byte, error) {
	return []byte(m.amount.String() + " " + m.currency), nil
}

// UnmarshalText parses "123.45 AUD".
func (m *Money) UnmarshalText(text []byte) error {
	fields := strings.Fields(string(text))
	if len(fields) != 2 {
		return fmt.Errorf("money %q: want \"<amount> <currency>\"", string(text))
	}
	parsed, err := FromString(fields[0], fields[1])
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
