package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/rpgo/wealth-simulator/internal/domain"
)

// ConsoleVerboseFormatter renders the detailed per-year report.
type ConsoleVerboseFormatter struct{}

func (c ConsoleVerboseFormatter) Name() string { return "console" }

func (c ConsoleVerboseFormatter) Format(report *Report) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintln(&buf, strings.Repeat("=", 81))
	fmt.Fprintln(&buf, "DETAILED WEALTH PROJECTION")
	fmt.Fprintln(&buf, strings.Repeat("=", 81))
	fmt.Fprintln(&buf)
	fmt.Fprintln(&buf, "KEY ASSUMPTIONS:")
	assumptions := report.Assumptions
	if len(assumptions) == 0 {
		assumptions = DefaultAssumptions
	}
	for _, a := range assumptions {
		fmt.Fprintf(&buf, "• %s\n", a)
	}
	fmt.Fprintln(&buf)

	for i, sc := range sortedScenarios(report) {
		fmt.Fprintf(&buf, "SCENARIO %d: %s [%s]\n", i+1, displayName(sc), sc.RulesVersion)
		fmt.Fprintln(&buf, strings.Repeat("=", 50))
		if sc.Provisional {
			fmt.Fprintln(&buf, "(provisional estimate)")
		}
		writeYearTable(&buf, sc)
		writeSummary(&buf, sc.Summary)
		writeAdvice(&buf, sc)
		if mc := report.SimulationFor(sc.ScenarioID); mc != nil {
			writeSimulation(&buf, mc)
		}
		fmt.Fprintln(&buf)
	}
	for _, mc := range unmatchedSimulations(report) {
		fmt.Fprintf(&buf, "SIMULATION: %s [%s]\n", mc.ScenarioID, mc.RulesVersion)
		fmt.Fprintln(&buf, strings.Repeat("=", 50))
		writeSimulation(&buf, mc)
		fmt.Fprintln(&buf)
	}

	recs := AnalyzeScenarios(report)
	if len(recs) > 0 {
		fmt.Fprintln(&buf, "RECOMMENDATION")
		fmt.Fprintln(&buf, strings.Repeat("-", 40))
		for _, rec := range recs {
			line := fmt.Sprintf("%s: %s, final net worth %s, lead %s", rec.Currency, rec.Name,
				FormatCurrency(rec.FinalNetWorth), FormatCurrency(rec.Lead))
			if rec.SuccessProbability != nil {
				line += ", success " + FormatPercentage(*rec.SuccessProbability)
			}
			fmt.Fprintln(&buf, line)
		}
	}
	return buf.Bytes(), nil
}

func writeYearTable(buf *bytes.Buffer, sc *domain.ScenarioResult) {
	tw := tabwriter.NewWriter(buf, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Year\tAge\tIncome\tExpenses\tTaxable\tTax\tCash\tProperty\tPortfolio\tDebt\tNet Worth\t")
	for _, y := range sc.Years {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			y.Year, y.Age,
			FormatCurrency(y.TotalIncome), FormatCurrency(y.Expenses), FormatCurrency(y.TaxableIncome),
			FormatCurrency(y.TaxPayable), FormatCurrency(y.Cash), FormatCurrency(y.PropertyEquity),
			FormatCurrency(y.PortfolioValue), FormatCurrency(y.Debt), FormatCurrency(y.NetWorth))
	}
	tw.Flush()
}

func writeSummary(buf *bytes.Buffer, s domain.Summary) {
	fmt.Fprintln(buf)
	fmt.Fprintf(buf, "Final net worth:      %s\n", FormatCurrency(s.FinalNetWorth))
	fmt.Fprintf(buf, "Peak net worth:       %s (year %d)\n", FormatCurrency(s.PeakNetWorth), s.PeakYear)
	fmt.Fprintf(buf, "Total tax:            %s (effective %s)\n", FormatCurrency(s.TotalTax), FormatPercentage(s.EffectiveTaxRate))
	fmt.Fprintf(buf, "Total contributions:  %s\n", FormatCurrency(s.TotalContributions))
	fmt.Fprintf(buf, "Goal:                 %s\n", goalText(s))
	if s.ShortfallYears > 0 {
		fmt.Fprintf(buf, "Cash shortfall years: %d\n", s.ShortfallYears)
	}
}

func writeAdvice(buf *bytes.Buffer, sc *domain.ScenarioResult) {
	if len(sc.Warnings) > 0 {
		fmt.Fprintln(buf)
		fmt.Fprintln(buf, "WARNINGS:")
		for _, w := range sc.Warnings {
			fmt.Fprintf(buf, "  year %d: %s\n", w.Year, w.Message)
		}
	}
	if len(sc.Optimizations) > 0 {
		fmt.Fprintln(buf)
		fmt.Fprintln(buf, "OPTIMIZATIONS:")
		for _, o := range sc.Optimizations {
			fmt.Fprintf(buf, "  year %d: %s (est. saving %s)\n", o.Year, o.Message, FormatCurrency(o.EstimatedSaving))
		}
	}
}

func writeSimulation(buf *bytes.Buffer, mc *domain.MonteCarloResult) {
	fmt.Fprintln(buf)
	status := ""
	if mc.Cancelled {
		status = " (cancelled)"
	}
	fmt.Fprintf(buf, "MONTE CARLO: %d/%d iterations%s, seed %d\n", mc.Completed, mc.Iterations, status, mc.Seed)
	tw := tabwriter.NewWriter(buf, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Year\tP10\tP25\tP50\tP75\tP90\t")
	for _, b := range mc.Years {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t\n", b.Year,
			FormatCurrency(b.P10), FormatCurrency(b.P25), FormatCurrency(b.P50), FormatCurrency(b.P75), FormatCurrency(b.P90))
	}
	tw.Flush()
	fmt.Fprintf(buf, "Success probability:  %s (goal %s)\n", FormatPercentage(mc.SuccessProbability), FormatCurrency(mc.Goal))
	fmt.Fprintf(buf, "Value at risk (95%%):  %s\n", FormatCurrency(mc.ValueAtRisk95))
	fmt.Fprintf(buf, "Conditional VaR:      %s\n", FormatCurrency(mc.ConditionalVaR95))
	fmt.Fprintf(buf, "Max drawdown:         %s mean, %s worst\n", FormatPercentage(mc.MaxDrawdown), FormatPercentage(mc.WorstDrawdown))
	if mc.Failed > 0 {
		fmt.Fprintf(buf, "Failed iterations:    %d\n", mc.Failed)
	}
}
