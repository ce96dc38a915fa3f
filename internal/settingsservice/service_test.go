package settingsservice_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/verificationrule"
	"github.com/hedgehog/ivdmiddleware/internal/domain/verificationsettings"
	"github.com/hedgehog/ivdmiddleware/internal/repository/memory"
	"github.com/hedgehog/ivdmiddleware/internal/settingsservice"
)

const tenantID = "tenant-a"

func newService() *settingsservice.Service {
	return settingsservice.NewService(memory.NewVerificationSettingsRepository(), memory.NewVerificationRuleRepository())
}

func TestSeedDefaultRulesIsIdempotent(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	first, err := svc.SeedDefaultRules(ctx, tenantID)
	require.NoError(t, err)
	assert.Len(t, first, 4)

	second, err := svc.SeedDefaultRules(ctx, tenantID)
	require.NoError(t, err)
	assert.Len(t, second, 4)

	rules, err := svc.ListRules(ctx, tenantID)
	require.NoError(t, err)
	assert.Len(t, rules, 4)
}

func TestUpdateSettingsIsPartial(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	low, high := 4.0, 11.0
	_, err := svc.CreateSettings(ctx, settingsservice.CreateSettingsInput{
		TenantID:           tenantID,
		TestCode:           "WBC",
		ReferenceRangeLow:  &low,
		ReferenceRangeHigh: &high,
	})
	require.NoError(t, err)

	newHigh := 12.0
	updated, err := svc.UpdateSettings(ctx, tenantID, "WBC", verificationsettings.Patch{ReferenceRangeHigh: &newHigh})
	require.NoError(t, err)
	assert.Equal(t, low, *updated.ReferenceRangeLow)
	assert.Equal(t, newHigh, *updated.ReferenceRangeHigh)
}

func TestEnableDisableRuleRejectsUnknownType(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	_, err := svc.SeedDefaultRules(ctx, tenantID)
	require.NoError(t, err)

	_, err = svc.DisableRule(ctx, tenantID, verificationrule.RuleType("not_a_real_rule"))
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalidInput, apperrors.KindOf(err))

	rule, err := svc.DisableRule(ctx, tenantID, verificationrule.RuleDeltaCheck)
	require.NoError(t, err)
	assert.False(t, rule.Enabled)
}

func TestDeleteSettingsIsHardDelete(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	_, err := svc.CreateSettings(ctx, settingsservice.CreateSettingsInput{TenantID: tenantID, TestCode: "GLU"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSettings(ctx, tenantID, "GLU"))

	_, err = svc.GetSettings(ctx, tenantID, "GLU")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}
