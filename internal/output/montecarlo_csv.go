package output

import (
	"bytes"
	"encoding/csv"
	"sort"

	"github.com/rpgo/wealth-simulator/internal/domain"
)

// MonteCarloCSV exports percentile bands per scenario and year, followed by
// one risk row per scenario with Year set to "final".
type MonteCarloCSV struct{}

func (m MonteCarloCSV) Name() string { return "montecarlo-csv" }

func (m MonteCarloCSV) Format(report *Report) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{"Scenario", "Year", "P10", "P25", "P50", "P75", "P90", "SuccessProbability", "ValueAtRisk95", "ConditionalVaR95", "MaxDrawdown", "WorstDrawdown", "Completed", "Failed", "Seed"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	runs := append([]*domain.MonteCarloResult(nil), report.MonteCarlo...)
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].ScenarioID < runs[j].ScenarioID })
	for _, mc := range runs {
		for _, b := range mc.Years {
			row := append(bandRow(mc.ScenarioID, intToString(b.Year), b), "", "", "", "", "", "", "", "")
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
		row := append(bandRow(mc.ScenarioID, "final", mc.Final),
			mc.SuccessProbability.String(),
			amount(mc.ValueAtRisk95),
			amount(mc.ConditionalVaR95),
			mc.MaxDrawdown.String(),
			mc.WorstDrawdown.String(),
			intToString(mc.Completed),
			intToString(mc.Failed),
			int64ToString(mc.Seed),
		)
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func bandRow(scenario, year string, b domain.PercentileBand) []string {
	return []string{scenario, year, amount(b.P10), amount(b.P25), amount(b.P50), amount(b.P75), amount(b.P90)}
}
