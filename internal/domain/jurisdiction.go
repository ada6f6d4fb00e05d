package domain

import (
	"fmt"
	"strings"
)

// Jurisdiction selects a tax engine and its rules tables.
type Jurisdiction string

const (
	Australia     Jurisdiction = "AU"
	UnitedStates  Jurisdiction = "US"
	UnitedKingdom Jurisdiction = "UK"
)

// Jurisdictions lists every supported jurisdiction in display order.
var Jurisdictions = []Jurisdiction{Australia, UnitedStates, UnitedKingdom}

// ParseJurisdiction accepts the two-letter code in any case; "GB" is read as UK.
func ParseJurisdiction(s string) (Jurisdiction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AU":
		return Australia, nil
	case "US":
		return UnitedStates, nil
	case "UK", "GB":
		return UnitedKingdom, nil
	}
	return "", &Error{Kind: KindUnsupportedJurisdiction, Message: fmt.Sprintf("unsupported jurisdiction %q", s)}
}

// Valid reports whether j is one of the supported jurisdictions.
func (j Jurisdiction) Valid() bool {
	switch j {
	case Australia, UnitedStates, UnitedKingdom:
		return true
	}
	return false
}

// Currency is the currency the jurisdiction's rules tables are expressed in.
func (j Jurisdiction) Currency() string {
	switch j {
	case Australia:
		return "AUD"
	case UnitedStates:
		return "USD"
	case UnitedKingdom:
		return "GBP"
	}
	return ""
}

// AccountType identifies the tax wrapper an investment is held in.
// Availability depends on the jurisdiction.
type AccountType string

const (
	AccountBrokerage AccountType = "brokerage"

	// AU superannuation
	AccountSuperConcessional    AccountType = "super_concessional"
	AccountSuperNonConcessional AccountType = "super_non_concessional"

	// US retirement accounts
	AccountTraditional401k AccountType = "traditional_401k"
	AccountTraditionalIRA  AccountType = "traditional_ira"
	AccountRothIRA         AccountType = "roth_ira"
	AccountHSA             AccountType = "hsa"

	// UK wrappers
	AccountISA     AccountType = "isa"
	AccountPension AccountType = "pension"
)

// AssetClass groups components that share a return shock in Monte Carlo runs.
type AssetClass string

const (
	AssetEquity   AssetClass = "equity"
	AssetBonds    AssetClass = "bonds"
	AssetProperty AssetClass = "property"
	AssetCash     AssetClass = "cash"
)

// Valid reports whether c is a known asset class.
func (c AssetClass) Valid() bool {
	switch c {
	case AssetEquity, AssetBonds, AssetProperty, AssetCash:
		return true
	}
	return false
}
