package output

import (
	"sort"

	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/rpgo/wealth-simulator/pkg/money"
	"github.com/shopspring/decimal"
)

// Recommendation is the strongest scenario among those sharing a currency.
type Recommendation struct {
	Currency      string
	ScenarioID    string
	Name          string
	FinalNetWorth money.Money
	// Lead is the margin in final net worth over the runner-up; zero when
	// the scenario has no competitor.
	Lead money.Money
	// SuccessProbability is set when every competitor has a Monte Carlo run
	// and the ranking used it.
	SuccessProbability *decimal.Decimal
}

// AnalyzeScenarios picks the best scenario per currency. Scenarios are
// ranked by Monte Carlo success probability when every scenario in the
// currency has a simulation, otherwise by deterministic final net worth.
// Amounts in different currencies are never compared.
func AnalyzeScenarios(report *Report) []Recommendation {
	groups := make(map[string][]*domain.ScenarioResult)
	for _, sc := range report.Scenarios {
		groups[sc.Currency] = append(groups[sc.Currency], sc)
	}
	currencies := make([]string, 0, len(groups))
	for c := range groups {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	out := make([]Recommendation, 0, len(currencies))
	for _, cur := range currencies {
		out = append(out, recommend(report, cur, groups[cur]))
	}
	return out
}

func recommend(report *Report, cur string, scenarios []*domain.ScenarioResult) Recommendation {
	ranked := append([]*domain.ScenarioResult(nil), scenarios...)
	bySuccess := true
	for _, sc := range ranked {
		if report.SimulationFor(sc.ScenarioID) == nil {
			bySuccess = false
			break
		}
	}
	final := func(sc *domain.ScenarioResult) decimal.Decimal { return sc.Summary.FinalNetWorth.Amount() }
	sort.SliceStable(ranked, func(i, j int) bool {
		if bySuccess {
			pi := report.SimulationFor(ranked[i].ScenarioID).SuccessProbability
			pj := report.SimulationFor(ranked[j].ScenarioID).SuccessProbability
			if !pi.Equal(pj) {
				return pi.GreaterThan(pj)
			}
		}
		return final(ranked[i]).GreaterThan(final(ranked[j]))
	})

	best := ranked[0]
	rec := Recommendation{
		Currency:      cur,
		ScenarioID:    best.ScenarioID,
		Name:          best.Name,
		FinalNetWorth: best.Summary.FinalNetWorth,
		Lead:          money.Zero(cur),
	}
	if len(ranked) > 1 {
		if lead, err := best.Summary.FinalNetWorth.Sub(ranked[1].Summary.FinalNetWorth); err == nil {
			rec.Lead = lead
		}
	}
	if bySuccess {
		p := report.SimulationFor(best.ScenarioID).SuccessProbability
		rec.SuccessProbability = &p
	}
	return rec
}
