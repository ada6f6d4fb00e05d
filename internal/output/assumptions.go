package output

import (
	"fmt"

	"github.com/rpgo/wealth-simulator/internal/domain"
)

// DefaultAssumptions lists key modeling assumptions rendered in detailed outputs.
var DefaultAssumptions = []string{
	"Tax rules for the scenario's tax year are held constant over the horizon",
	"Tax assessed in a year is paid from cash the following year",
	"Contributions and withdrawals happen mid-year; half of a year's contribution earns that year's return",
	"Rental losses reduce taxable income only for negatively geared properties in Australia",
	"Retirement account balances are reported before any tax due on withdrawal",
}

// GenerateAssumptions describes the growth settings of each scenario.
func GenerateAssumptions(inputs []*domain.ScenarioInput) []string {
	out := append([]string(nil), DefaultAssumptions...)
	for _, in := range inputs {
		out = append(out, fmt.Sprintf("%s: income growth %s, expense inflation %s, cash return %s, %s %d rules",
			in.ID,
			FormatPercentage(in.IncomeGrowth),
			FormatPercentage(in.ExpenseInflation),
			FormatPercentage(in.SavingsRate),
			in.Jurisdiction, in.TaxYear))
	}
	return out
}
