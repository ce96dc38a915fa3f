// Package verificationsettings defines AutoVerificationSettings: per
// (tenant_id, test_code) thresholds consumed by the verification engine.
package verificationsettings

import (
	"time"

	"github.com/hedgehog/ivdmiddleware/internal/domain/domainerr"
)

// Settings is the per-(tenant_id, test_code) configuration record.
type Settings struct {
	ID                        string    `json:"id" db:"id"`
	TenantID                  string    `json:"tenant_id" db:"tenant_id"`
	TestCode                  string    `json:"test_code" db:"test_code"`
	ReferenceRangeLow         *float64  `json:"reference_range_low,omitempty" db:"reference_range_low"`
	ReferenceRangeHigh        *float64  `json:"reference_range_high,omitempty" db:"reference_range_high"`
	CriticalRangeLow          *float64  `json:"critical_range_low,omitempty" db:"critical_range_low"`
	CriticalRangeHigh         *float64  `json:"critical_range_high,omitempty" db:"critical_range_high"`
	InstrumentFlagsToBlock    []string  `json:"instrument_flags_to_block" db:"instrument_flags_to_block"`
	DeltaCheckThresholdPercent *float64 `json:"delta_check_threshold_percent,omitempty" db:"delta_check_threshold_percent"`
	DeltaCheckLookbackDays    int       `json:"delta_check_lookback_days" db:"delta_check_lookback_days"`
	CreatedAt                 time.Time `json:"created_at" db:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at" db:"updated_at"`
}

// Patch carries the partial-update shape: only non-nil inputs override.
type Patch struct {
	ReferenceRangeLow          *float64
	ReferenceRangeHigh         *float64
	CriticalRangeLow           *float64
	CriticalRangeHigh          *float64
	InstrumentFlagsToBlock     []string
	DeltaCheckThresholdPercent *float64
	DeltaCheckLookbackDays     *int
}

func (p Patch) apply(s *Settings) {
	if p.ReferenceRangeLow != nil {
		s.ReferenceRangeLow = p.ReferenceRangeLow
	}
	if p.ReferenceRangeHigh != nil {
		s.ReferenceRangeHigh = p.ReferenceRangeHigh
	}
	if p.CriticalRangeLow != nil {
		s.CriticalRangeLow = p.CriticalRangeLow
	}
	if p.CriticalRangeHigh != nil {
		s.CriticalRangeHigh = p.CriticalRangeHigh
	}
	if p.InstrumentFlagsToBlock != nil {
		s.InstrumentFlagsToBlock = p.InstrumentFlagsToBlock
	}
	if p.DeltaCheckThresholdPercent != nil {
		s.DeltaCheckThresholdPercent = p.DeltaCheckThresholdPercent
	}
	if p.DeltaCheckLookbackDays != nil {
		s.DeltaCheckLookbackDays = *p.DeltaCheckLookbackDays
	}
}

// Apply performs a partial update and re-validates the result.
func (s *Settings) Apply(p Patch) error {
	patched := *s
	p.apply(&patched)
	if err := patched.Validate(); err != nil {
		return err
	}
	*s = patched
	return nil
}

func (s *Settings) Validate() error {
	if s.TestCode == "" {
		return domainerr.New("test_code is required")
	}
	if s.ReferenceRangeLow != nil && s.ReferenceRangeHigh != nil && *s.ReferenceRangeLow >= *s.ReferenceRangeHigh {
		return domainerr.New("reference_range_low must be < reference_range_high")
	}
	if s.CriticalRangeLow != nil && s.CriticalRangeHigh != nil && *s.CriticalRangeLow >= *s.CriticalRangeHigh {
		return domainerr.New("critical_range_low must be < critical_range_high")
	}
	if s.DeltaCheckThresholdPercent != nil && (*s.DeltaCheckThresholdPercent < 0 || *s.DeltaCheckThresholdPercent > 1000) {
		return domainerr.New("delta_check_threshold_percent must be within [0, 1000]")
	}
	if s.DeltaCheckLookbackDays != 0 && (s.DeltaCheckLookbackDays < 1 || s.DeltaCheckLookbackDays > 365) {
		return domainerr.New("delta_check_lookback_days must be within [1, 365]")
	}
	return nil
}

// DefaultLookbackDays is applied when a caller omits lookback_days.
const DefaultLookbackDays = 30
