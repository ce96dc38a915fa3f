package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/resultdecision"
)

type ResultDecisionRepository struct {
	db *sql.DB
}

func NewResultDecisionRepository(db *sql.DB) *ResultDecisionRepository {
	return &ResultDecisionRepository{db: db}
}

const resultDecisionColumns = `id, tenant_id, review_id, result_id, decision, comments, decided_at`

func scanResultDecision(row rowScanner) (*resultdecision.ResultDecision, error) {
	var d resultdecision.ResultDecision
	err := row.Scan(&d.ID, &d.TenantID, &d.ReviewID, &d.ResultID, &d.Decision, &d.Comments, &d.DecidedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *ResultDecisionRepository) Create(ctx context.Context, d *resultdecision.ResultDecision) error {
	if err := d.Validate(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "invalid result decision", err)
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.DecidedAt.IsZero() {
		d.DecidedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO result_decisions (`+resultDecisionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		d.ID, d.TenantID, d.ReviewID, d.ResultID, d.Decision, d.Comments, d.DecidedAt)
	return wrapErr("create", "result_decision", d.ID, err)
}

func (r *ResultDecisionRepository) ListByReview(ctx context.Context, tenantID, reviewID string) ([]*resultdecision.ResultDecision, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+resultDecisionColumns+` FROM result_decisions
		WHERE tenant_id=$1 AND review_id=$2 ORDER BY decided_at ASC`, tenantID, reviewID)
	if err != nil {
		return nil, wrapErr("list_by_review", "result_decision", "", err)
	}
	defer rows.Close()

	var out []*resultdecision.ResultDecision
	for rows.Next() {
		d, err := scanResultDecision(rows)
		if err != nil {
			return nil, wrapErr("list_scan", "result_decision", "", err)
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *ResultDecisionRepository) GetByReviewAndResult(ctx context.Context, tenantID, reviewID, resultID string) (*resultdecision.ResultDecision, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+resultDecisionColumns+` FROM result_decisions
		WHERE tenant_id=$1 AND review_id=$2 AND result_id=$3`, tenantID, reviewID, resultID)
	d, err := scanResultDecision(row)
	if err != nil {
		return nil, wrapErr("get_by_review_and_result", "result_decision", resultID, err)
	}
	return d, nil
}
