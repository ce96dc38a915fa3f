package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/verificationrule"
)

type VerificationRuleRepository struct {
	db *sql.DB
}

func NewVerificationRuleRepository(db *sql.DB) *VerificationRuleRepository {
	return &VerificationRuleRepository{db: db}
}

const verificationRuleColumns = `id, tenant_id, rule_type, enabled, priority, description, created_at, updated_at`

func scanVerificationRule(row rowScanner) (*verificationrule.Rule, error) {
	var r verificationrule.Rule
	err := row.Scan(&r.ID, &r.TenantID, &r.RuleType, &r.Enabled, &r.Priority, &r.Description, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *VerificationRuleRepository) Create(ctx context.Context, rule *verificationrule.Rule) error {
	if err := rule.Validate(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "invalid verification rule", err)
	}
	now := time.Now()
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	rule.CreatedAt, rule.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO verification_rules (`+verificationRuleColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rule.ID, rule.TenantID, rule.RuleType, rule.Enabled, rule.Priority, rule.Description,
		rule.CreatedAt, rule.UpdatedAt)
	return wrapErr("create", "verification_rule", rule.ID, err)
}

func (r *VerificationRuleRepository) GetByType(ctx context.Context, tenantID string, ruleType verificationrule.RuleType) (*verificationrule.Rule, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+verificationRuleColumns+` FROM verification_rules WHERE tenant_id=$1 AND rule_type=$2`, tenantID, ruleType)
	rule, err := scanVerificationRule(row)
	if err != nil {
		return nil, wrapErr("get_by_type", "verification_rule", string(ruleType), err)
	}
	return rule, nil
}

func (r *VerificationRuleRepository) List(ctx context.Context, tenantID string) ([]*verificationrule.Rule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+verificationRuleColumns+` FROM verification_rules WHERE tenant_id=$1 ORDER BY priority ASC`, tenantID)
	if err != nil {
		return nil, wrapErr("list", "verification_rule", "", err)
	}
	defer rows.Close()

	var out []*verificationrule.Rule
	for rows.Next() {
		rule, err := scanVerificationRule(rows)
		if err != nil {
			return nil, wrapErr("list_scan", "verification_rule", "", err)
		}
		out = append(out, rule)
	}
	return out, nil
}

func (r *VerificationRuleRepository) SetEnabled(ctx context.Context, tenantID string, ruleType verificationrule.RuleType, enabled bool) (*verificationrule.Rule, error) {
	rule, err := r.GetByType(ctx, tenantID, ruleType)
	if err != nil {
		return nil, err
	}
	rule.Enabled = enabled
	rule.UpdatedAt = time.Now()

	_, err = r.db.ExecContext(ctx, `
		UPDATE verification_rules SET enabled=$1, updated_at=$2 WHERE id=$3 AND tenant_id=$4`,
		rule.Enabled, rule.UpdatedAt, rule.ID, tenantID)
	if err != nil {
		return nil, wrapErr("set_enabled", "verification_rule", rule.ID, err)
	}
	return rule, nil
}
