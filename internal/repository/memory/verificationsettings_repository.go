package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/verificationsettings"
)

type VerificationSettingsRepository struct {
	mu       sync.RWMutex
	settings map[string]*verificationsettings.Settings
}

func NewVerificationSettingsRepository() *VerificationSettingsRepository {
	return &VerificationSettingsRepository{settings: make(map[string]*verificationsettings.Settings)}
}

func (r *VerificationSettingsRepository) Create(ctx context.Context, s *verificationsettings.Settings) error {
	if err := s.Validate(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "invalid settings", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.settings {
		if existing.TenantID == s.TenantID && existing.TestCode == s.TestCode {
			return apperrors.Conflict("settings for this test_code already exist for tenant")
		}
	}

	now := time.Now()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.DeltaCheckLookbackDays == 0 {
		s.DeltaCheckLookbackDays = verificationsettings.DefaultLookbackDays
	}
	s.CreatedAt = now
	s.UpdatedAt = now

	cp := *s
	r.settings[s.ID] = &cp
	return nil
}

func (r *VerificationSettingsRepository) GetByTestCode(ctx context.Context, tenantID, testCode string) (*verificationsettings.Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.settings {
		if s.TenantID == tenantID && s.TestCode == testCode {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("verification_settings", testCode)
}

func (r *VerificationSettingsRepository) GetByTestCodes(ctx context.Context, tenantID string, testCodes []string) (map[string]*verificationsettings.Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]bool, len(testCodes))
	for _, tc := range testCodes {
		wanted[tc] = true
	}

	out := make(map[string]*verificationsettings.Settings)
	for _, s := range r.settings {
		if s.TenantID == tenantID && wanted[s.TestCode] {
			cp := *s
			out[s.TestCode] = &cp
		}
	}
	return out, nil
}

func (r *VerificationSettingsRepository) List(ctx context.Context, tenantID string) ([]*verificationsettings.Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*verificationsettings.Settings
	for _, s := range r.settings {
		if s.TenantID == tenantID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *VerificationSettingsRepository) Update(ctx context.Context, tenantID, testCode string, patch verificationsettings.Patch) (*verificationsettings.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.settings {
		if s.TenantID != tenantID || s.TestCode != testCode {
			continue
		}
		patched := *s
		if err := patched.Apply(patch); err != nil {
			return nil, apperrors.Wrap(apperrors.KindInvalidInput, "invalid settings update", err)
		}
		patched.UpdatedAt = time.Now()
		r.settings[id] = &patched
		cp := patched
		return &cp, nil
	}
	return nil, apperrors.NotFound("verification_settings", testCode)
}

func (r *VerificationSettingsRepository) Delete(ctx context.Context, tenantID, testCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.settings {
		if s.TenantID == tenantID && s.TestCode == testCode {
			delete(r.settings, id)
			return nil
		}
	}
	return apperrors.NotFound("verification_settings", testCode)
}
