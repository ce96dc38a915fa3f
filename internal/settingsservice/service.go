// Package settingsservice implements per-(tenant_id, test_code)
// AutoVerificationSettings CRUD, VerificationRule enablement toggles, and
// idempotent per-tenant default rule seeding — the same
// create/update/delete shape as lisintegration's ConfigService, since both
// are thin tenant-configuration services.
package settingsservice

import (
	"context"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/verificationrule"
	"github.com/hedgehog/ivdmiddleware/internal/domain/verificationsettings"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

type Service struct {
	Settings repository.AutoVerificationSettingsRepository
	Rules    repository.VerificationRuleRepository
}

func NewService(settings repository.AutoVerificationSettingsRepository, rules repository.VerificationRuleRepository) *Service {
	return &Service{Settings: settings, Rules: rules}
}

type CreateSettingsInput struct {
	TenantID                   string
	TestCode                   string
	ReferenceRangeLow          *float64
	ReferenceRangeHigh         *float64
	CriticalRangeLow           *float64
	CriticalRangeHigh          *float64
	InstrumentFlagsToBlock     []string
	DeltaCheckThresholdPercent *float64
	DeltaCheckLookbackDays     int
}

func (s *Service) CreateSettings(ctx context.Context, in CreateSettingsInput) (*verificationsettings.Settings, error) {
	settings := &verificationsettings.Settings{
		TenantID:                   in.TenantID,
		TestCode:                   in.TestCode,
		ReferenceRangeLow:          in.ReferenceRangeLow,
		ReferenceRangeHigh:         in.ReferenceRangeHigh,
		CriticalRangeLow:           in.CriticalRangeLow,
		CriticalRangeHigh:          in.CriticalRangeHigh,
		InstrumentFlagsToBlock:     in.InstrumentFlagsToBlock,
		DeltaCheckThresholdPercent: in.DeltaCheckThresholdPercent,
		DeltaCheckLookbackDays:     in.DeltaCheckLookbackDays,
	}
	if settings.DeltaCheckLookbackDays == 0 {
		settings.DeltaCheckLookbackDays = verificationsettings.DefaultLookbackDays
	}
	if err := settings.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, "invalid settings", err)
	}
	if err := s.Settings.Create(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *Service) GetSettings(ctx context.Context, tenantID, testCode string) (*verificationsettings.Settings, error) {
	return s.Settings.GetByTestCode(ctx, tenantID, testCode)
}

func (s *Service) ListSettings(ctx context.Context, tenantID string) ([]*verificationsettings.Settings, error) {
	return s.Settings.List(ctx, tenantID)
}

// UpdateSettings is a partial update: only non-nil patch fields override.
func (s *Service) UpdateSettings(ctx context.Context, tenantID, testCode string, patch verificationsettings.Patch) (*verificationsettings.Settings, error) {
	return s.Settings.Update(ctx, tenantID, testCode, patch)
}

func (s *Service) DeleteSettings(ctx context.Context, tenantID, testCode string) error {
	return s.Settings.Delete(ctx, tenantID, testCode)
}

// SeedDefaultRules idempotently seeds the four default rules for a tenant
// table. If any rule already exists for the tenant, the
// existing set is returned unchanged.
func (s *Service) SeedDefaultRules(ctx context.Context, tenantID string) ([]*verificationrule.Rule, error) {
	existing, err := s.Rules.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	seeded := make([]*verificationrule.Rule, 0, len(verificationrule.DefaultSeed))
	for _, tmpl := range verificationrule.DefaultSeed {
		rule := tmpl
		rule.TenantID = tenantID
		if err := s.Rules.Create(ctx, &rule); err != nil {
			return nil, err
		}
		seeded = append(seeded, &rule)
	}
	return seeded, nil
}

func (s *Service) ListRules(ctx context.Context, tenantID string) ([]*verificationrule.Rule, error) {
	return s.Rules.List(ctx, tenantID)
}

// EnableRule and DisableRule toggle a rule's enabled flag. An unknown
// rule_type is rejected before it ever reaches the repository.
func (s *Service) EnableRule(ctx context.Context, tenantID string, ruleType verificationrule.RuleType) (*verificationrule.Rule, error) {
	return s.setRuleEnabled(ctx, tenantID, ruleType, true)
}

func (s *Service) DisableRule(ctx context.Context, tenantID string, ruleType verificationrule.RuleType) (*verificationrule.Rule, error) {
	return s.setRuleEnabled(ctx, tenantID, ruleType, false)
}

func (s *Service) setRuleEnabled(ctx context.Context, tenantID string, ruleType verificationrule.RuleType, enabled bool) (*verificationrule.Rule, error) {
	if !verificationrule.Valid(string(ruleType)) {
		return nil, apperrors.InvalidInput("rule_type must be one of reference_range, critical_range, instrument_flag, delta_check")
	}
	return s.Rules.SetEnabled(ctx, tenantID, ruleType, enabled)
}
