// Package verification implements the auto-verification rule engine:
// short-circuit evaluation of enabled VerificationRules, in priority order,
// against a Result and its tenant's AutoVerificationSettings. The rule
// semantics (reference range, critical range, instrument flag, delta check)
// and the short-circuit/priority-order evaluation strategy use explicit
// error returns rather than exceptions, and a single Decide/DecideBatch
// pair in place of separate verify_result/verify_batch entry points.
package verification

import (
	"context"
	"fmt"

	"github.com/hedgehog/ivdmiddleware/internal/domain/result"
	"github.com/hedgehog/ivdmiddleware/internal/domain/verificationrule"
	"github.com/hedgehog/ivdmiddleware/internal/domain/verificationsettings"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

// Decision is the outcome of evaluating one Result against the enabled rule
// set: CanAutoVerify is true only if every enabled rule passed.
type Decision struct {
	CanAutoVerify   bool
	FailedRules     []string
	FailureReasons  []string
}

// pseudoRuleSettingsMissing and pseudoRuleEngineError are synthetic rule
// names used in Decision.FailedRules when a result cannot be evaluated at
// all (as opposed to failing an actual rule), mirroring the Python engine's
// "settings_missing"/"verification_error" sentinels.
const (
	pseudoRuleSettingsMissing = "settings_missing"
	pseudoRuleEngineError     = "verification_error"
)

// Engine evaluates Results against a tenant's configured verification
// rules. ResultRepository is optional (nil) — supplying it enables the
// delta-check rule's historical lookup; with it nil, delta check passes
// unconditionally, mirroring the Python engine's "no repository available"
// fallback.
type Engine struct {
	Settings repository.AutoVerificationSettingsRepository
	Rules    repository.VerificationRuleRepository
	Results  repository.ResultRepository
}

func NewEngine(settings repository.AutoVerificationSettingsRepository, rules repository.VerificationRuleRepository, results repository.ResultRepository) *Engine {
	return &Engine{Settings: settings, Rules: rules, Results: results}
}

// Decide evaluates a single result, fetching settings and rules itself.
func (e *Engine) Decide(ctx context.Context, tenantID string, r *result.Result) (Decision, error) {
	settings, err := e.Settings.GetByTestCode(ctx, tenantID, r.TestCode)
	if err != nil {
		return Decision{}, fmt.Errorf("load verification settings: %w", err)
	}
	rules, err := e.Rules.List(ctx, tenantID)
	if err != nil {
		return Decision{}, fmt.Errorf("load verification rules: %w", err)
	}
	return e.decideWith(ctx, tenantID, r, settings, rules), nil
}

// DecideBatch evaluates many results for one tenant, loading rules once and
// settings once per distinct test code, mirroring verify_batch's caching.
func (e *Engine) DecideBatch(ctx context.Context, tenantID string, results []*result.Result) (map[string]Decision, error) {
	decisions := make(map[string]Decision, len(results))
	if len(results) == 0 {
		return decisions, nil
	}

	rules, err := e.Rules.List(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load verification rules: %w", err)
	}

	testCodes := make([]string, 0, len(results))
	seen := make(map[string]bool)
	for _, r := range results {
		if !seen[r.TestCode] {
			seen[r.TestCode] = true
			testCodes = append(testCodes, r.TestCode)
		}
	}
	settingsByCode, err := e.Settings.GetByTestCodes(ctx, tenantID, testCodes)
	if err != nil {
		return nil, fmt.Errorf("load verification settings: %w", err)
	}

	for _, r := range results {
		settings, ok := settingsByCode[r.TestCode]
		if !ok {
			decisions[r.ID] = Decision{
				CanAutoVerify:  false,
				FailedRules:    []string{pseudoRuleSettingsMissing},
				FailureReasons: []string{fmt.Sprintf("no verification settings configured for test %s", r.TestCode)},
			}
			continue
		}
		decisions[r.ID] = e.decideWithRecover(ctx, tenantID, r, settings, rules)
	}
	return decisions, nil
}

// decideWithRecover isolates a panic in rule evaluation to the offending
// result, so one bad rule/result pair can't abort decisions for the rest of
// the batch.
func (e *Engine) decideWithRecover(ctx context.Context, tenantID string, r *result.Result, settings *verificationsettings.Settings, rules []*verificationrule.Rule) (decision Decision) {
	defer func() {
		if rec := recover(); rec != nil {
			decision = Decision{
				CanAutoVerify:  false,
				FailedRules:    []string{pseudoRuleEngineError},
				FailureReasons: []string{fmt.Sprintf("rule evaluation panicked: %v", rec)},
			}
		}
	}()
	return e.decideWith(ctx, tenantID, r, settings, rules)
}

func (e *Engine) decideWith(ctx context.Context, tenantID string, r *result.Result, settings *verificationsettings.Settings, rules []*verificationrule.Rule) Decision {
	enabled := enabledSortedByPriority(rules)

	for _, rule := range enabled {
		passes, reason := e.applyRule(ctx, rule, r, tenantID, settings)
		if !passes {
			return Decision{
				CanAutoVerify:  false,
				FailedRules:    []string{string(rule.RuleType)},
				FailureReasons: []string{reason},
			}
		}
	}
	return Decision{CanAutoVerify: true}
}
