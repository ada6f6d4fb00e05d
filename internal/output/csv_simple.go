package output

import (
	"bytes"
	"encoding/csv"
)

// CSVSummarizer implements the summary CSV output (one row per scenario).
type CSVSummarizer struct{}

func (c CSVSummarizer) Name() string { return "csv" }

func (c CSVSummarizer) Format(report *Report) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{"Scenario", "Name", "Currency", "RulesVersion", "FinalNetWorth", "PeakNetWorth", "PeakYear", "TotalTax", "EffectiveTaxRate", "TotalContributions", "GoalReachedYear", "ShortfallYears", "SuccessProbability", "P10", "P50", "P90"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, sc := range sortedScenarios(report) {
		s := sc.Summary
		row := []string{
			sc.ScenarioID,
			sc.Name,
			sc.Currency,
			sc.RulesVersion,
			amount(s.FinalNetWorth),
			amount(s.PeakNetWorth),
			intToString(s.PeakYear),
			amount(s.TotalTax),
			s.EffectiveTaxRate.String(),
			amount(s.TotalContributions),
			intToString(s.GoalReachedYear),
			intToString(s.ShortfallYears),
			"", "", "", "",
		}
		if mc := report.SimulationFor(sc.ScenarioID); mc != nil {
			copy(row[12:], []string{mc.SuccessProbability.String(), amount(mc.Final.P10), amount(mc.Final.P50), amount(mc.Final.P90)})
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

