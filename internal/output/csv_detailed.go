package output

import (
	"bytes"
	"encoding/csv"
)

// CSVDetailedExporter provides annual projection detail per scenario/year.
type CSVDetailedExporter struct{}

func (c CSVDetailedExporter) Name() string { return "detailed-csv" }

func (c CSVDetailedExporter) Format(report *Report) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{"Scenario", "Year", "Age", "Salary", "OtherIncome", "TotalIncome", "Expenses", "DebtService", "Deductions", "TaxableIncome", "IncomeTax", "InvestmentTax", "CapitalGainsTax", "TaxPayable", "TaxPaid", "Cash", "PropertyEquity", "PortfolioValue", "Debt", "NetWorth"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, sc := range sortedScenarios(report) {
		for _, y := range sc.Years {
			row := []string{
				sc.ScenarioID,
				intToString(y.Year),
				intToString(y.Age),
				amount(y.Salary),
				amount(y.OtherIncome),
				amount(y.TotalIncome),
				amount(y.Expenses),
				amount(y.DebtService),
				amount(y.Deductions),
				amount(y.TaxableIncome),
				amount(y.IncomeTax),
				amount(y.InvestmentTax),
				amount(y.CapitalGainsTax),
				amount(y.TaxPayable),
				amount(y.TaxPaid),
				amount(y.Cash),
				amount(y.PropertyEquity),
				amount(y.PortfolioValue),
				amount(y.Debt),
				amount(y.NetWorth),
			}
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
