// Package money provides a currency-tagged fixed-point amount.
//
// Every amount carries an ISO 4217 code. Arithmetic between two amounts is
// only defined for matching codes; a mismatch is reported as an error and
// neither operand is changed. Products and quotients are rounded half-to-even
// to InternalScale places, display rounding uses the currency's minor unit.
package money

import (
	"errors"
	"fmt"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// InternalScale is the number of decimal places retained between operations.
const InternalScale = 10

// MaxAmount is the largest magnitude any Money may hold.
var MaxAmount = decimal.New(1, 15)

var (
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrOverflow         = errors.New("amount overflow")
	ErrUnknownCurrency  = errors.New("unknown currency")
	ErrDivisionByZero   = errors.New("division by zero")
)

// Money is an immutable amount in a single currency.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// New creates a Money after validating the currency code and magnitude.
func New(amount decimal.Decimal, currency string) (Money, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if gomoney.GetCurrency(code) == nil {
		return Money{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, currency)
	}
	return checked(amount, code)
}

// MustNew is New for literal tables; it panics on invalid input.
func MustNew(amount decimal.Decimal, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// FromString parses a decimal string such as "1234.56".
func FromString(value, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return Money{}, fmt.Errorf("parse amount %q: %w", value, err)
	}
	return New(d, currency)
}

// FromInt is a convenience for whole-unit literals.
func FromInt(units int64, currency string) Money {
	return MustNew(decimal.NewFromInt(units), currency)
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{amount: decimal.Zero, currency: strings.ToUpper(currency)}
}

func checked(amount decimal.Decimal, currency string) (Money, error) {
	if amount.Abs().GreaterThan(MaxAmount) {
		return Money{}, fmt.Errorf("%w: %s %s", ErrOverflow, amount.String(), currency)
	}
	return Money{amount: amount, currency: currency}, nil
}

func (m Money) same(o Money) error {
	if m.currency != o.currency {
		return fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.currency, o.currency)
	}
	return nil
}

// Amount returns the full-precision decimal amount.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the ISO 4217 code.
func (m Money) Currency() string { return m.currency }

// Add returns m + o.
func (m Money) Add(o Money) (Money, error) {
	if err := m.same(o); err != nil {
		return Money{}, err
	}
	return checked(m.amount.Add(o.amount), m.currency)
}

// Sub returns m - o.
func (m Money) Sub(o Money) (Money, error) {
	if err := m.same(o); err != nil {
		return Money{}, err
	}
	return checked(m.amount.Sub(o.amount), m.currency)
}

// Mul scales the amount by a rate or factor.
func (m Money) Mul(factor decimal.Decimal) (Money, error) {
	return checked(m.amount.Mul(factor).RoundBank(InternalScale), m.currency)
}

// Div divides the amount by a scalar.
func (m Money) Div(divisor decimal.Decimal) (Money, error) {
	if divisor.IsZero() {
		return Money{}, ErrDivisionByZero
	}
	return checked(m.amount.Div(divisor).RoundBank(InternalScale), m.currency)
}

// Ratio returns m / o as a plain decimal.
func (m Money) Ratio(o Money) (decimal.Decimal, error) {
	if err := m.same(o); err != nil {
		return decimal.Zero, err
	}
	if o.amount.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}
	return m.amount.Div(o.amount).RoundBank(InternalScale), nil
}

// Cmp compares two amounts of the same currency.
func (m Money) Cmp(o Money) (int, error) {
	if err := m.same(o); err != nil {
		return 0, err
	}
	return m.amount.Cmp(o.amount), nil
}

// Equal reports whether both currency and amount match.
func (m Money) Equal(o Money) bool {
	return m.currency == o.currency && m.amount.Equal(o.amount)
}

// Neg returns -m.
func (m Money) Neg() Money { return Money{amount: m.amount.Neg(), currency: m.currency} }

// Abs returns |m|.
func (m Money) Abs() Money { return Money{amount: m.amount.Abs(), currency: m.currency} }

func (m Money) Sign() int        { return m.amount.Sign() }
func (m Money) IsZero() bool     { return m.amount.IsZero() }
func (m Money) IsNegative() bool { return m.amount.IsNegative() }
func (m Money) IsPositive() bool { return m.amount.IsPositive() }

// Float64 is for charting and statistics only; never feed it back into Money.
func (m Money) Float64() float64 {
	f, _ := m.amount.Float64()
	return f
}

// Max0 returns m when positive, zero otherwise.
func Max0(m Money) Money {
	if m.amount.IsNegative() {
		return Money{amount: decimal.Zero, currency: m.currency}
	}
	return m
}

// Min returns the smaller of a and b.
func Min(a, b Money) (Money, error) {
	c, err := a.Cmp(b)
	if err != nil {
		return Money{}, err
	}
	if c <= 0 {
		return a, nil
	}
	return b, nil
}

// Max returns the larger of a and b.
func Max(a, b Money) (Money, error) {
	c, err := a.Cmp(b)
	if err != nil {
		return Money{}, err
	}
	if c >= 0 {
		return a, nil
	}
	return b, nil
}

// Round rounds half-to-even to the currency's minor unit.
func (m Money) Round() Money {
	return Money{amount: m.amount.RoundBank(fraction(m.currency)), currency: m.currency}
}

// String renders the rounded amount followed by the code, e.g. "1234.50 AUD".
func (m Money) String() string {
	if m.currency == "" {
		return m.amount.String()
	}
	return m.amount.RoundBank(fraction(m.currency)).StringFixed(fraction(m.currency)) + " " + m.currency
}

// Format renders the rounded amount with the currency's symbol and grouping.
func (m Money) Format() string {
	cur := gomoney.GetCurrency(m.currency)
	if cur == nil {
		return m.String()
	}
	minor := m.amount.Shift(int32(cur.Fraction)).RoundBank(0).IntPart()
	return cur.Formatter().Format(minor)
}

func fraction(code string) int32 {
	if cur := gomoney.GetCurrency(code); cur != nil {
		return int32(cur.Fraction)
	}
	return 2
}
