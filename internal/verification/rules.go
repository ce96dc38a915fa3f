package verification

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hedgehog/ivdmiddleware/internal/domain/result"
	"github.com/hedgehog/ivdmiddleware/internal/domain/verificationrule"
	"github.com/hedgehog/ivdmiddleware/internal/domain/verificationsettings"
)

// enabledSortedByPriority filters to enabled rules and orders them lowest
// priority number first, per the engine's evaluation order.
func enabledSortedByPriority(rules []*verificationrule.Rule) []*verificationrule.Rule {
	var out []*verificationrule.Rule
	for _, r := range rules {
		if r.Enabled {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

func (e *Engine) applyRule(ctx context.Context, rule *verificationrule.Rule, r *result.Result, tenantID string, settings *verificationsettings.Settings) (bool, string) {
	switch rule.RuleType {
	case verificationrule.RuleReferenceRange:
		value, ok := parseNumeric(r.Value)
		if !ok {
			return false, fmt.Sprintf("cannot apply reference_range check to non-numeric value: %s", r.Value)
		}
		return checkReferenceRange(value, settings)

	case verificationrule.RuleCriticalRange:
		value, ok := parseNumeric(r.Value)
		if !ok {
			return false, fmt.Sprintf("cannot apply critical_range check to non-numeric value: %s", r.Value)
		}
		return checkCriticalRange(value, settings)

	case verificationrule.RuleInstrumentFlag:
		return checkInstrumentFlags(r.LISFlags, settings)

	case verificationrule.RuleDeltaCheck:
		return e.checkDelta(ctx, r, tenantID, settings)

	default:
		return true, ""
	}
}

func parseNumeric(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// checkReferenceRange passes if no range is configured, or the value falls
// within [low, high].
func checkReferenceRange(value float64, settings *verificationsettings.Settings) (bool, string) {
	if settings.ReferenceRangeLow == nil && settings.ReferenceRangeHigh == nil {
		return true, ""
	}
	if settings.ReferenceRangeLow != nil && value < *settings.ReferenceRangeLow {
		return false, fmt.Sprintf("value %v below reference range minimum %v", value, *settings.ReferenceRangeLow)
	}
	if settings.ReferenceRangeHigh != nil && value > *settings.ReferenceRangeHigh {
		return false, fmt.Sprintf("value %v above reference range maximum %v", value, *settings.ReferenceRangeHigh)
	}
	return true, ""
}

// checkCriticalRange fails (blocks auto-verify) if the value falls at or
// beyond a configured critical boundary — critical ranges represent
// clinically dangerous values that always require manual review.
func checkCriticalRange(value float64, settings *verificationsettings.Settings) (bool, string) {
	if settings.CriticalRangeLow == nil && settings.CriticalRangeHigh == nil {
		return true, ""
	}
	if settings.CriticalRangeLow != nil && value <= *settings.CriticalRangeLow {
		return false, fmt.Sprintf("value %v in critical range (critically low, <= %v)", value, *settings.CriticalRangeLow)
	}
	if settings.CriticalRangeHigh != nil && value >= *settings.CriticalRangeHigh {
		return false, fmt.Sprintf("value %v in critical range (critically high, >= %v)", value, *settings.CriticalRangeHigh)
	}
	return true, ""
}

// checkInstrumentFlags parses lisFlags (comma/semicolon/space separated)
// and fails if any parsed flag is in the blocked list.
func checkInstrumentFlags(lisFlags string, settings *verificationsettings.Settings) (bool, string) {
	if lisFlags == "" || len(settings.InstrumentFlagsToBlock) == 0 {
		return true, ""
	}

	replacer := strings.NewReplacer(";", ",", " ", ",")
	var resultFlags []string
	for _, f := range strings.Split(replacer.Replace(lisFlags), ",") {
		f = strings.ToUpper(strings.TrimSpace(f))
		if f != "" {
			resultFlags = append(resultFlags, f)
		}
	}

	blocked := make(map[string]bool, len(settings.InstrumentFlagsToBlock))
	for _, f := range settings.InstrumentFlagsToBlock {
		blocked[strings.ToUpper(f)] = true
	}

	var found []string
	for _, f := range resultFlags {
		if blocked[f] {
			found = append(found, f)
		}
	}
	if len(found) > 0 {
		return false, fmt.Sprintf("result has blocked instrument flags: %s", strings.Join(found, ", "))
	}
	return true, ""
}

// checkDelta compares the current value against the most recent prior
// result for the same sample/test_code within the configured lookback,
// failing if the percentage change exceeds the threshold. Passes
// unconditionally if no threshold is configured, the repository is unset,
// the value is non-numeric, or there is no qualifying prior result —
// matching the Python engine's fail-open behavior on missing data.
func (e *Engine) checkDelta(ctx context.Context, r *result.Result, tenantID string, settings *verificationsettings.Settings) (bool, string) {
	if settings.DeltaCheckThresholdPercent == nil {
		return true, ""
	}
	if e.Results == nil {
		return true, ""
	}
	currentValue, ok := parseNumeric(r.Value)
	if !ok {
		return true, ""
	}

	lookbackDays := settings.DeltaCheckLookbackDays
	if lookbackDays == 0 {
		lookbackDays = verificationsettings.DefaultLookbackDays
	}
	lookback := time.Duration(lookbackDays) * 24 * time.Hour

	prior, err := e.Results.ListPriorByTestCode(ctx, tenantID, r.SampleID, r.TestCode, r.ID, lookback, time.Now())
	if err != nil || len(prior) == 0 {
		return true, ""
	}
	previousValue, ok := parseNumeric(prior[0].Value)
	if !ok {
		return true, ""
	}

	var percentChange float64
	if previousValue == 0 {
		if currentValue == 0 {
			percentChange = 0
		} else {
			return false, fmt.Sprintf("value changed from %v to %v (infinite change from zero)", previousValue, currentValue)
		}
	} else {
		percentChange = ((currentValue - previousValue) / previousValue) * 100
		if percentChange < 0 {
			percentChange = -percentChange
		}
	}

	if percentChange > *settings.DeltaCheckThresholdPercent {
		return false, fmt.Sprintf("value changed by %.1f%% (from %v to %v), exceeds threshold of %v%%",
			percentChange, previousValue, currentValue, *settings.DeltaCheckThresholdPercent)
	}
	return true, ""
}
