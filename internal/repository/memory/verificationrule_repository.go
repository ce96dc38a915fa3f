package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/verificationrule"
)

type VerificationRuleRepository struct {
	mu    sync.RWMutex
	rules map[string]*verificationrule.Rule
}

func NewVerificationRuleRepository() *VerificationRuleRepository {
	return &VerificationRuleRepository{rules: make(map[string]*verificationrule.Rule)}
}

func (r *VerificationRuleRepository) Create(ctx context.Context, rule *verificationrule.Rule) error {
	if err := rule.Validate(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "invalid rule", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.rules {
		if existing.TenantID == rule.TenantID && existing.RuleType == rule.RuleType {
			return apperrors.Conflict("a rule of this type already exists for tenant")
		}
	}

	now := time.Now()
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	rule.CreatedAt = now
	rule.UpdatedAt = now

	cp := *rule
	r.rules[rule.ID] = &cp
	return nil
}

func (r *VerificationRuleRepository) GetByType(ctx context.Context, tenantID string, ruleType verificationrule.RuleType) (*verificationrule.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rule := range r.rules {
		if rule.TenantID == tenantID && rule.RuleType == ruleType {
			cp := *rule
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("verification_rule", string(ruleType))
}

func (r *VerificationRuleRepository) List(ctx context.Context, tenantID string) ([]*verificationrule.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*verificationrule.Rule
	for _, rule := range r.rules {
		if rule.TenantID == tenantID {
			cp := *rule
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *VerificationRuleRepository) SetEnabled(ctx context.Context, tenantID string, ruleType verificationrule.RuleType, enabled bool) (*verificationrule.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, rule := range r.rules {
		if rule.TenantID == tenantID && rule.RuleType == ruleType {
			patched := *rule
			patched.Enabled = enabled
			patched.UpdatedAt = time.Now()
			r.rules[id] = &patched
			cp := patched
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("verification_rule", string(ruleType))
}
