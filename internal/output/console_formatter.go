package output

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/rpgo/wealth-simulator/internal/domain"
)

// ConsoleFormatter provides a concise console summary via the formatter interface.
type ConsoleFormatter struct{}

func (c ConsoleFormatter) Name() string { return "console-lite" }

func (c ConsoleFormatter) Format(report *Report) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "WEALTH SCENARIO SUMMARY")
	fmt.Fprintln(&buf, "================================")
	for _, sc := range sortedScenarios(report) {
		s := sc.Summary
		fmt.Fprintf(&buf, "%s (%s, %s): FinalNetWorth=%s Peak=%s@%d TotalTax=%s EffectiveRate=%s\n",
			displayName(sc), sc.ScenarioID, sc.RulesVersion,
			FormatCurrency(s.FinalNetWorth), FormatCurrency(s.PeakNetWorth), s.PeakYear,
			FormatCurrency(s.TotalTax), FormatPercentage(s.EffectiveTaxRate))
		fmt.Fprintf(&buf, "  Goal=%s ShortfallYears=%d Warnings=%d\n", goalText(s), s.ShortfallYears, len(sc.Warnings))
		if mc := report.SimulationFor(sc.ScenarioID); mc != nil {
			fmt.Fprintf(&buf, "  MonteCarlo: P10=%s P50=%s P90=%s Success=%s\n",
				FormatCurrency(mc.Final.P10), FormatCurrency(mc.Final.P50), FormatCurrency(mc.Final.P90),
				FormatPercentage(mc.SuccessProbability))
		}
	}
	for _, mc := range unmatchedSimulations(report) {
		fmt.Fprintf(&buf, "%s (%s): P10=%s P50=%s P90=%s Success=%s\n", mc.ScenarioID, mc.RulesVersion,
			FormatCurrency(mc.Final.P10), FormatCurrency(mc.Final.P50), FormatCurrency(mc.Final.P90),
			FormatPercentage(mc.SuccessProbability))
	}
	for _, rec := range AnalyzeScenarios(report) {
		fmt.Fprintln(&buf)
		fmt.Fprintf(&buf, "Recommended (%s): %s (lead %s)\n", rec.Currency, rec.Name, FormatCurrency(rec.Lead))
	}
	return buf.Bytes(), nil
}

func goalText(s domain.Summary) string {
	if s.GoalReached {
		return fmt.Sprintf("reached in year %d", s.GoalReachedYear)
	}
	return "not reached"
}

func displayName(sc *domain.ScenarioResult) string {
	if sc.Name != "" {
		return sc.Name
	}
	return sc.ScenarioID
}

// sortedScenarios orders scenarios by ID so output is stable.
func sortedScenarios(report *Report) []*domain.ScenarioResult {
	out := append([]*domain.ScenarioResult(nil), report.Scenarios...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScenarioID < out[j].ScenarioID })
	return out
}

// unmatchedSimulations are Monte Carlo runs without a deterministic
// projection in the report.
func unmatchedSimulations(report *Report) []*domain.MonteCarloResult {
	seen := make(map[string]bool, len(report.Scenarios))
	for _, sc := range report.Scenarios {
		seen[sc.ScenarioID] = true
	}
	var out []*domain.MonteCarloResult
	for _, mc := range report.MonteCarlo {
		if !seen[mc.ScenarioID] {
			out = append(out, mc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScenarioID < out[j].ScenarioID })
	return out
}
