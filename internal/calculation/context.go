package calculation

import (
	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/rpgo/wealth-simulator/internal/tax"
	"github.com/rpgo/wealth-simulator/pkg/money"
)

// ScenarioContext is the read-only view of a run that calculators receive
// for one year.
type ScenarioContext struct {
	Input   *domain.ScenarioInput
	Rules   *domain.TaxYearRules
	Engine  tax.Engine
	Returns ReturnSource
	Horizon int
	Year    int
	Age     int
	// CapRoom is the unused contribution cap per cap group for the year.
	// Groups not yet present have their full cap available.
	CapRoom map[string]money.Money

	schedules *schedules
}

func (sc *ScenarioContext) currency() string { return sc.Input.Currency }

func (sc *ScenarioContext) zero() money.Money { return money.Zero(sc.Input.Currency) }

func (sc *ScenarioContext) returns() ReturnSource {
	if sc.Returns == nil {
		return ExpectedReturns{}
	}
	return sc.Returns
}
