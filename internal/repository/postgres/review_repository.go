package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/review"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

type ReviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

const reviewColumns = `id, tenant_id, sample_id, state, decision, reviewer_user_id,
	comments, escalation_reason, submitted_at, completed_at, created_at, updated_at`

func scanReview(row rowScanner) (*review.Review, error) {
	var v review.Review
	err := row.Scan(&v.ID, &v.TenantID, &v.SampleID, &v.State, &v.Decision, &v.ReviewerUserID,
		&v.Comments, &v.EscalationReason, &v.SubmittedAt, &v.CompletedAt, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *ReviewRepository) Create(ctx context.Context, v *review.Review) error {
	if err := v.Validate(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "invalid review", err)
	}
	now := time.Now()
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.State == "" {
		v.State = review.StatePending
	}
	v.CreatedAt, v.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reviews (`+reviewColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		v.ID, v.TenantID, v.SampleID, v.State, v.Decision, v.ReviewerUserID,
		v.Comments, v.EscalationReason, v.SubmittedAt, v.CompletedAt, v.CreatedAt, v.UpdatedAt)
	return wrapErr("create", "review", v.ID, err)
}

func (r *ReviewRepository) GetByID(ctx context.Context, tenantID, id string) (*review.Review, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	v, err := scanReview(row)
	if err != nil {
		return nil, wrapErr("get_by_id", "review", id, err)
	}
	return v, nil
}

func (r *ReviewRepository) GetBySampleID(ctx context.Context, tenantID, sampleID string) (*review.Review, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE tenant_id=$1 AND sample_id=$2`, tenantID, sampleID)
	v, err := scanReview(row)
	if err != nil {
		return nil, wrapErr("get_by_sample_id", "review", sampleID, err)
	}
	return v, nil
}

func (r *ReviewRepository) List(ctx context.Context, tenantID string, filter repository.ReviewFilter, page repository.Page) ([]*review.Review, int, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE tenant_id=$1`
	args := []interface{}{tenantID}
	if filter.State != nil {
		args = append(args, *filter.State)
		query += " AND state=$" + strconv.Itoa(len(args))
	}
	if filter.ReviewerUserID != nil {
		args = append(args, *filter.ReviewerUserID)
		query += " AND reviewer_user_id=$" + strconv.Itoa(len(args))
	}
	if filter.EscalatedOnly {
		query += " AND state='escalated'"
	}
	query += " ORDER BY created_at DESC"
	if page.Limit > 0 {
		args = append(args, page.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}
	if page.Offset > 0 {
		args = append(args, page.Offset)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, wrapErr("list", "review", "", err)
	}
	defer rows.Close()

	var out []*review.Review
	for rows.Next() {
		v, err := scanReview(rows)
		if err != nil {
			return nil, 0, wrapErr("list_scan", "review", "", err)
		}
		out = append(out, v)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews WHERE tenant_id=$1`, tenantID).Scan(&total); err != nil {
		return nil, 0, wrapErr("count", "review", "", err)
	}
	return out, total, nil
}

func (r *ReviewRepository) Update(ctx context.Context, v *review.Review) error {
	existing, err := r.GetByID(ctx, v.TenantID, v.ID)
	if err != nil {
		return err
	}
	if existing.State.Terminal() && v.State != existing.State {
		return apperrors.Immutable("review is in a terminal state and cannot be modified")
	}
	v.UpdatedAt = time.Now()

	_, err = r.db.ExecContext(ctx, `
		UPDATE reviews SET state=$1, decision=$2, reviewer_user_id=$3, comments=$4,
			escalation_reason=$5, submitted_at=$6, completed_at=$7, updated_at=$8
		WHERE id=$9 AND tenant_id=$10`,
		v.State, v.Decision, v.ReviewerUserID, v.Comments, v.EscalationReason,
		v.SubmittedAt, v.CompletedAt, v.UpdatedAt, v.ID, v.TenantID)
	return wrapErr("update", "review", v.ID, err)
}
