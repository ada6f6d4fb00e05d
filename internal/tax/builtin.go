package tax

import (
	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func brackets(pairs ...string) []domain.Bracket {
	out := make([]domain.Bracket, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.Bracket{From: d(pairs[i]), Rate: d(pairs[i+1])})
	}
	return out
}

// AU2023 is the 2023-24 resident schedule.
func AU2023() *domain.TaxYearRules {
	return &domain.TaxYearRules{
		Jurisdiction:   domain.Australia,
		Year:           2023,
		Revision:       1,
		Label:          "2023-24",
		Currency:       "AUD",
		IncomeBrackets: brackets("0", "0", "18200", "0.19", "45000", "0.325", "120000", "0.37", "180000", "0.45"),
		AU: &domain.AURules{
			MedicareLevyRate:      d("0.02"),
			MedicareLevyThreshold: d("26000"),
			MedicareShadeInRate:   d("0.10"),
			CGTDiscount:           d("0.5"),
			CGTDiscountMonths:     12,
			CorporateTaxRate:      d("0.30"),
			ConcessionalCap:       d("27500"),
			NonConcessionalCap:    d("110000"),
			ContributionMaxAge:    75,
			SuperContributionsTax: d("0.15"),
		},
	}
}

// AU2024 is the 2024-25 resident schedule with the revised stage 3 rates.
func AU2024() *domain.TaxYearRules {
	return &domain.TaxYearRules{
		Jurisdiction:   domain.Australia,
		Year:           2024,
		Revision:       1,
		Label:          "2024-25",
		Currency:       "AUD",
		IncomeBrackets: brackets("0", "0", "18200", "0.16", "45000", "0.30", "135000", "0.37", "190000", "0.45"),
		AU: &domain.AURules{
			MedicareLevyRate:      d("0.02"),
			MedicareLevyThreshold: d("27222"),
			MedicareShadeInRate:   d("0.10"),
			CGTDiscount:           d("0.5"),
			CGTDiscountMonths:     12,
			CorporateTaxRate:      d("0.30"),
			ConcessionalCap:       d("30000"),
			NonConcessionalCap:    d("120000"),
			ContributionMaxAge:    75,
			SuperContributionsTax: d("0.15"),
		},
	}
}

// US2024 is the 2024 single-filer federal schedule.
func US2024() *domain.TaxYearRules {
	return &domain.TaxYearRules{
		Jurisdiction:   domain.UnitedStates,
		Year:           2024,
		Revision:       1,
		Label:          "2024",
		Currency:       "USD",
		IncomeBrackets: brackets("0", "0.10", "11600", "0.12", "47150", "0.22", "100525", "0.24", "191950", "0.32", "243725", "0.35", "609350", "0.37"),
		US: &domain.USRules{
			StandardDeduction:    d("14600"),
			LongTermGainBrackets: brackets("0", "0", "47025", "0.15", "518900", "0.20"),
			LongTermMonths:       12,
			Limit401k:            d("23000"),
			CatchUp401k:          d("7500"),
			LimitIRA:             d("7000"),
			CatchUpIRA:           d("1000"),
			LimitHSA:             d("4150"),
			CatchUpHSA:           d("1000"),
			CatchUpAge:           50,
			HSACatchUpAge:        55,
		},
	}
}

// US2025 is the 2025 single-filer federal schedule.
func US2025() *domain.TaxYearRules {
	return &domain.TaxYearRules{
		Jurisdiction:   domain.UnitedStates,
		Year:           2025,
		Revision:       1,
		Label:          "2025",
		Currency:       "USD",
		IncomeBrackets: brackets("0", "0.10", "11925", "0.12", "48475", "0.22", "103350", "0.24", "197300", "0.32", "250525", "0.35", "626350", "0.37"),
		US: &domain.USRules{
			StandardDeduction:    d("15000"),
			LongTermGainBrackets: brackets("0", "0", "48350", "0.15", "533400", "0.20"),
			LongTermMonths:       12,
			Limit401k:            d("23500"),
			CatchUp401k:          d("7500"),
			LimitIRA:             d("7000"),
			CatchUpIRA:           d("1000"),
			LimitHSA:             d("4300"),
			CatchUpHSA:           d("1000"),
			CatchUpAge:           50,
			HSACatchUpAge:        55,
		},
	}
}

// UK2024 is the 2024-25 rest-of-UK schedule, with CGT at the rates in force
// from 30 October 2024.
func UK2024() *domain.TaxYearRules {
	return &domain.TaxYearRules{
		Jurisdiction:   domain.UnitedKingdom,
		Year:           2024,
		Revision:       1,
		Label:          "2024-25",
		Currency:       "GBP",
		IncomeBrackets: brackets("0", "0.20", "37700", "0.40", "125140", "0.45"),
		UK: &domain.UKRules{
			PersonalAllowance:      d("12570"),
			AllowanceTaperFrom:     d("100000"),
			AllowanceTaperRate:     d("0.5"),
			CGTAnnualExemption:     d("3000"),
			CGTBasicRate:           d("0.18"),
			CGTHigherRate:          d("0.24"),
			DividendAllowance:      d("500"),
			DividendRates:          brackets("0", "0.0875", "37700", "0.3375", "125140", "0.3935"),
			ISAAllowance:           d("20000"),
			ISAMinAge:              18,
			PensionAnnualAllowance: d("60000"),
			PensionReliefMaxAge:    75,
		},
	}
}

// BuiltinRules returns fresh copies of every compiled-in snapshot.
func BuiltinRules() []*domain.TaxYearRules {
	return []*domain.TaxYearRules{AU2023(), AU2024(), US2024(), US2025(), UK2024()}
}
