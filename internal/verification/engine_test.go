package verification_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedgehog/ivdmiddleware/internal/domain/result"
	"github.com/hedgehog/ivdmiddleware/internal/domain/verificationrule"
	"github.com/hedgehog/ivdmiddleware/internal/domain/verificationsettings"
	"github.com/hedgehog/ivdmiddleware/internal/repository/memory"
	"github.com/hedgehog/ivdmiddleware/internal/verification"
)

const tenantID = "tenant-a"

// panickyResultRepository satisfies repository.ResultRepository but panics
// on ListPriorByTestCode for one specific sample, simulating a rule blowing
// up mid-batch.
type panickyResultRepository struct {
	*memory.ResultRepository
	panicForSampleID string
}

func (p *panickyResultRepository) ListPriorByTestCode(ctx context.Context, tenantID, sampleID, testCode, excludeID string, lookback time.Duration, asOf time.Time) ([]*result.Result, error) {
	if sampleID == p.panicForSampleID {
		panic("simulated rule failure")
	}
	return p.ResultRepository.ListPriorByTestCode(ctx, tenantID, sampleID, testCode, excludeID, lookback, asOf)
}

func newResult(sampleID, value string) *result.Result {
	return &result.Result{
		ID:                   "result-" + sampleID,
		TenantID:             tenantID,
		ExternalLISResultID:  "ext-" + sampleID,
		SampleID:             sampleID,
		TestCode:             "WBC",
		Value:                value,
		VerificationStatus:   result.VerificationNeedsReview,
	}
}

func TestDecideBatchIsolatesPanicToOffendingResult(t *testing.T) {
	ctx := context.Background()

	settingsRepo := memory.NewVerificationSettingsRepository()
	rulesRepo := memory.NewVerificationRuleRepository()

	threshold := 10.0
	require.NoError(t, settingsRepo.Create(ctx, &verificationsettings.Settings{
		TenantID:                   tenantID,
		TestCode:                   "WBC",
		DeltaCheckThresholdPercent: &threshold,
	}))
	require.NoError(t, rulesRepo.Create(ctx, &verificationrule.Rule{
		TenantID: tenantID,
		RuleType: verificationrule.RuleDeltaCheck,
		Enabled:  true,
		Priority: 1,
	}))

	results := &panickyResultRepository{
		ResultRepository: memory.NewResultRepository(),
		panicForSampleID: "sample-bad",
	}
	engine := verification.NewEngine(settingsRepo, rulesRepo, results)

	good := newResult("sample-good", "5.0")
	bad := newResult("sample-bad", "5.0")

	decisions, err := engine.DecideBatch(ctx, tenantID, []*result.Result{good, bad})
	require.NoError(t, err)

	require.Contains(t, decisions, good.ID)
	require.Contains(t, decisions, bad.ID)

	assert.True(t, decisions[good.ID].CanAutoVerify)

	badDecision := decisions[bad.ID]
	assert.False(t, badDecision.CanAutoVerify)
	require.Len(t, badDecision.FailedRules, 1)
	assert.Equal(t, "verification_error", badDecision.FailedRules[0])
}

func TestDecideBatchFlagsMissingSettingsWithoutTouchingOtherResults(t *testing.T) {
	ctx := context.Background()

	settingsRepo := memory.NewVerificationSettingsRepository()
	rulesRepo := memory.NewVerificationRuleRepository()
	require.NoError(t, rulesRepo.Create(ctx, &verificationrule.Rule{
		TenantID: tenantID,
		RuleType: verificationrule.RuleReferenceRange,
		Enabled:  true,
		Priority: 1,
	}))

	configured := newResult("sample-configured", "5.0")
	unconfigured := newResult("sample-unconfigured", "5.0")
	unconfigured.TestCode = "HGB"

	low, high := 1.0, 10.0
	require.NoError(t, settingsRepo.Create(ctx, &verificationsettings.Settings{
		TenantID:           tenantID,
		TestCode:           "WBC",
		ReferenceRangeLow:  &low,
		ReferenceRangeHigh: &high,
	}))

	engine := verification.NewEngine(settingsRepo, rulesRepo, memory.NewResultRepository())
	decisions, err := engine.DecideBatch(ctx, tenantID, []*result.Result{configured, unconfigured})
	require.NoError(t, err)

	assert.True(t, decisions[configured.ID].CanAutoVerify)
	assert.False(t, decisions[unconfigured.ID].CanAutoVerify)
	assert.Equal(t, "settings_missing", decisions[unconfigured.ID].FailedRules[0])
}
