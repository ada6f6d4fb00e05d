package domain

import (
	"fmt"

	"github.com/rpgo/wealth-simulator/pkg/money"
	"github.com/shopspring/decimal"
)

// Bracket is one step of a progressive schedule. Rate applies to the slice
// of income above From up to and including the next bracket's From.
type Bracket struct {
	From decimal.Decimal `yaml:"from" json:"from"`
	Rate decimal.Decimal `yaml:"rate" json:"rate"`
}

// RulesKey identifies a rules snapshot slot.
type RulesKey struct {
	Jurisdiction Jurisdiction
	Year         int
}

func (k RulesKey) String() string { return fmt.Sprintf("%s-%d", k.Jurisdiction, k.Year) }

// TaxYearRules is an immutable snapshot of one jurisdiction's tables for one
// tax year. Year is the calendar year the tax year starts in. A correction
// is published as a new snapshot with a higher Revision; published values are
// never modified.
type TaxYearRules struct {
	Jurisdiction   Jurisdiction `yaml:"jurisdiction" json:"jurisdiction"`
	Year           int          `yaml:"year" json:"year"`
	Revision       int          `yaml:"revision" json:"revision"`
	Label          string       `yaml:"label" json:"label"`
	Currency       string       `yaml:"currency" json:"currency"`
	IncomeBrackets []Bracket    `yaml:"income_brackets" json:"income_brackets"`

	AU *AURules `yaml:"au,omitempty" json:"au,omitempty"`
	US *USRules `yaml:"us,omitempty" json:"us,omitempty"`
	UK *UKRules `yaml:"uk,omitempty" json:"uk,omitempty"`
}

// AURules holds Australian resident settings.
type AURules struct {
	MedicareLevyRate      decimal.Decimal `yaml:"medicare_levy_rate" json:"medicare_levy_rate"`
	MedicareLevyThreshold decimal.Decimal `yaml:"medicare_levy_threshold" json:"medicare_levy_threshold"`
	MedicareShadeInRate   decimal.Decimal `yaml:"medicare_shade_in_rate" json:"medicare_shade_in_rate"`
	CGTDiscount           decimal.Decimal `yaml:"cgt_discount" json:"cgt_discount"`
	CGTDiscountMonths     int             `yaml:"cgt_discount_months" json:"cgt_discount_months"`
	CorporateTaxRate      decimal.Decimal `yaml:"corporate_tax_rate" json:"corporate_tax_rate"`
	ConcessionalCap       decimal.Decimal `yaml:"concessional_cap" json:"concessional_cap"`
	NonConcessionalCap    decimal.Decimal `yaml:"non_concessional_cap" json:"non_concessional_cap"`
	ContributionMaxAge    int             `yaml:"contribution_max_age" json:"contribution_max_age"`
	SuperContributionsTax decimal.Decimal `yaml:"super_contributions_tax" json:"super_contributions_tax"`
}

// USRules holds federal single-filer settings.
type USRules struct {
	StandardDeduction    decimal.Decimal `yaml:"standard_deduction" json:"standard_deduction"`
	LongTermGainBrackets []Bracket       `yaml:"long_term_gain_brackets" json:"long_term_gain_brackets"`
	LongTermMonths       int             `yaml:"long_term_months" json:"long_term_months"`
	Limit401k            decimal.Decimal `yaml:"limit_401k" json:"limit_401k"`
	CatchUp401k          decimal.Decimal `yaml:"catch_up_401k" json:"catch_up_401k"`
	LimitIRA             decimal.Decimal `yaml:"limit_ira" json:"limit_ira"`
	CatchUpIRA           decimal.Decimal `yaml:"catch_up_ira" json:"catch_up_ira"`
	LimitHSA             decimal.Decimal `yaml:"limit_hsa" json:"limit_hsa"`
	CatchUpHSA           decimal.Decimal `yaml:"catch_up_hsa" json:"catch_up_hsa"`
	CatchUpAge           int             `yaml:"catch_up_age" json:"catch_up_age"`
	HSACatchUpAge        int             `yaml:"hsa_catch_up_age" json:"hsa_catch_up_age"`
}

// UKRules holds rest-of-UK (non-Scottish) settings. IncomeBrackets apply to
// income after the personal allowance.
type UKRules struct {
	PersonalAllowance      decimal.Decimal `yaml:"personal_allowance" json:"personal_allowance"`
	AllowanceTaperFrom     decimal.Decimal `yaml:"allowance_taper_from" json:"allowance_taper_from"`
	AllowanceTaperRate     decimal.Decimal `yaml:"allowance_taper_rate" json:"allowance_taper_rate"`
	CGTAnnualExemption     decimal.Decimal `yaml:"cgt_annual_exemption" json:"cgt_annual_exemption"`
	CGTBasicRate           decimal.Decimal `yaml:"cgt_basic_rate" json:"cgt_basic_rate"`
	CGTHigherRate          decimal.Decimal `yaml:"cgt_higher_rate" json:"cgt_higher_rate"`
	DividendAllowance      decimal.Decimal `yaml:"dividend_allowance" json:"dividend_allowance"`
	DividendRates          []Bracket       `yaml:"dividend_rates" json:"dividend_rates"`
	ISAAllowance           decimal.Decimal `yaml:"isa_allowance" json:"isa_allowance"`
	ISAMinAge              int             `yaml:"isa_min_age" json:"isa_min_age"`
	PensionAnnualAllowance decimal.Decimal `yaml:"pension_annual_allowance" json:"pension_annual_allowance"`
	PensionReliefMaxAge    int             `yaml:"pension_relief_max_age" json:"pension_relief_max_age"`
}

// Key returns the snapshot slot.
func (r *TaxYearRules) Key() RulesKey { return RulesKey{Jurisdiction: r.Jurisdiction, Year: r.Year} }

// Version is the identity used for cache dependencies, e.g. "AU-2024-r1".
func (r *TaxYearRules) Version() string {
	return fmt.Sprintf("%s-%d-r%d", r.Jurisdiction, r.Year, r.Revision)
}

// Amount lifts a table value into the rules currency.
func (r *TaxYearRules) Amount(d decimal.Decimal) (money.Money, error) {
	return money.New(d, r.Currency)
}

// Validate checks structural consistency of a snapshot before publication.
func (r *TaxYearRules) Validate() error {
	if !r.Jurisdiction.Valid() {
		return &Error{Kind: KindUnsupportedJurisdiction, Message: fmt.Sprintf("unsupported jurisdiction %q", r.Jurisdiction)}
	}
	if r.Year <= 0 {
		return FieldError("year", "must be positive")
	}
	if r.Currency != r.Jurisdiction.Currency() {
		return FieldError("currency", "must be %s for %s", r.Jurisdiction.Currency(), r.Jurisdiction)
	}
	if err := validateBrackets("income_brackets", r.IncomeBrackets); err != nil {
		return err
	}
	switch r.Jurisdiction {
	case Australia:
		if r.AU == nil {
			return FieldError("au", "required for AU rules")
		}
	case UnitedStates:
		if r.US == nil {
			return FieldError("us", "required for US rules")
		}
		return validateBrackets("us.long_term_gain_brackets", r.US.LongTermGainBrackets)
	case UnitedKingdom:
		if r.UK == nil {
			return FieldError("uk", "required for UK rules")
		}
		return validateBrackets("uk.dividend_rates", r.UK.DividendRates)
	}
	return nil
}

func validateBrackets(field string, bs []Bracket) error {
	if len(bs) == 0 {
		return FieldError(field, "at least one bracket required")
	}
	if !bs[0].From.IsZero() {
		return FieldError(field, "first bracket must start at zero")
	}
	for i, b := range bs {
		if b.Rate.IsNegative() || b.Rate.GreaterThan(decimal.NewFromInt(1)) {
			return FieldError(fmt.Sprintf("%s[%d].rate", field, i), "must be between 0 and 1")
		}
		if i > 0 && !b.From.GreaterThan(bs[i-1].From) {
			return FieldError(fmt.Sprintf("%s[%d].from", field, i), "thresholds must increase")
		}
	}
	return nil
}
