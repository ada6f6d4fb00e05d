package domain

import (
	"errors"
	"fmt"

	"github.com/rpgo/wealth-simulator/pkg/money"
)

// ErrorKind classifies failures crossing the library boundary.
type ErrorKind string

const (
	KindInvalidInput              ErrorKind = "invalid_input"
	KindUnsupportedJurisdiction   ErrorKind = "unsupported_jurisdiction"
	KindRulesNotFound             ErrorKind = "rules_not_found"
	KindCurrencyMismatch          ErrorKind = "currency_mismatch"
	KindOverflow                  ErrorKind = "overflow"
	KindNegativeInput             ErrorKind = "negative_input"
	KindInvalidComponentConfig    ErrorKind = "invalid_component_config"
	KindContributionLimitExceeded ErrorKind = "contribution_limit_exceeded"
	KindScenarioCalculation       ErrorKind = "scenario_calculation"
	KindCancelled                 ErrorKind = "cancelled"
	KindInternal                  ErrorKind = "internal"
)

// Error is the typed error returned by the tax engine, calculators,
// projector, Monte Carlo engine and orchestrator.
type Error struct {
	Kind      ErrorKind
	Message   string
	Field     string // offending input field for validation failures
	Year      int    // projection year for scenario calculation failures
	Component string // component ID for component and calculation failures
	Metadata  map[string]string
	Cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	switch {
	case e.Kind == KindScenarioCalculation && e.Component != "":
		msg = fmt.Sprintf("%s (year %d, component %s)", msg, e.Year, e.Component)
	case e.Kind == KindScenarioCalculation:
		msg = fmt.Sprintf("%s (year %d)", msg, e.Year)
	case e.Field != "":
		msg = e.Field + ": " + msg
	case e.Component != "":
		msg = "component " + e.Component + ": " + msg
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidInput              = &Error{Kind: KindInvalidInput}
	ErrUnsupportedJurisdiction   = &Error{Kind: KindUnsupportedJurisdiction}
	ErrRulesNotFound             = &Error{Kind: KindRulesNotFound}
	ErrCurrencyMismatch          = &Error{Kind: KindCurrencyMismatch}
	ErrOverflow                  = &Error{Kind: KindOverflow}
	ErrNegativeInput             = &Error{Kind: KindNegativeInput}
	ErrInvalidComponentConfig    = &Error{Kind: KindInvalidComponentConfig}
	ErrContributionLimitExceeded = &Error{Kind: KindContributionLimitExceeded}
	ErrScenarioCalculation       = &Error{Kind: KindScenarioCalculation}
	ErrCancelled                 = &Error{Kind: KindCancelled}
)

// NewError creates an error of the given kind.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// FieldError reports a validation failure on a named input field.
func FieldError(field, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Field: field, Message: fmt.Sprintf(format, args...)}
}

// ComponentError reports a component configuration problem found at first use.
func ComponentError(componentID, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidComponentConfig, Component: componentID, Message: fmt.Sprintf(format, args...)}
}

// CalculationError wraps a failure at a specific projection year.
func CalculationError(year int, componentID string, cause error) *Error {
	return &Error{
		Kind:      KindScenarioCalculation,
		Message:   "scenario calculation failed",
		Year:      year,
		Component: componentID,
		Cause:     cause,
	}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the kind of the outermost typed error in err's chain.
// Money arithmetic failures are mapped to their domain kinds.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, money.ErrCurrencyMismatch):
		return KindCurrencyMismatch
	case errors.Is(err, money.ErrOverflow):
		return KindOverflow
	}
	return KindInternal
}

// FromMoney lifts a money package error into a typed domain error.
func FromMoney(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, money.ErrCurrencyMismatch):
		return Wrap(KindCurrencyMismatch, "currency mismatch", err)
	case errors.Is(err, money.ErrOverflow):
		return Wrap(KindOverflow, "amount overflow", err)
	}
	return err
}
