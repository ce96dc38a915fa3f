// Package verificationrule defines VerificationRule: per (tenant_id,
// rule_type) enablement and priority used by the verification engine.
package verificationrule

import (
	"time"

	"github.com/hedgehog/ivdmiddleware/internal/domain/domainerr"
)

type RuleType string

const (
	RuleReferenceRange RuleType = "reference_range"
	RuleCriticalRange  RuleType = "critical_range"
	RuleInstrumentFlag RuleType = "instrument_flag"
	RuleDeltaCheck     RuleType = "delta_check"
)

// Valid reports whether s names one of the four known rule types.
func Valid(s string) bool {
	switch RuleType(s) {
	case RuleReferenceRange, RuleCriticalRange, RuleInstrumentFlag, RuleDeltaCheck:
		return true
	}
	return false
}

// Rule is the per-(tenant_id, rule_type) enablement record.
type Rule struct {
	ID          string    `json:"id" db:"id"`
	TenantID    string    `json:"tenant_id" db:"tenant_id"`
	RuleType    RuleType  `json:"rule_type" db:"rule_type"`
	Enabled     bool      `json:"enabled" db:"enabled"`
	Priority    int       `json:"priority" db:"priority"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

func (r *Rule) Validate() error {
	if !Valid(string(r.RuleType)) {
		return domainerr.New("rule_type must be one of reference_range, critical_range, instrument_flag, delta_check")
	}
	return nil
}

// DefaultSeed is the tenant bootstrap table
var DefaultSeed = []Rule{
	{RuleType: RuleReferenceRange, Enabled: true, Priority: 1, Description: "reject values outside the configured reference range"},
	{RuleType: RuleCriticalRange, Enabled: true, Priority: 2, Description: "reject values inside the clinically dangerous critical range"},
	{RuleType: RuleInstrumentFlag, Enabled: true, Priority: 3, Description: "reject results carrying a blocked instrument flag"},
	{RuleType: RuleDeltaCheck, Enabled: false, Priority: 4, Description: "reject results that deviate too far from the most recent prior result"},
}
