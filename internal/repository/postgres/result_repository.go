package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/result"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

type ResultRepository struct {
	db *sql.DB
}

func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

const resultColumns = `id, tenant_id, external_lis_result_id, sample_id, order_id, test_code,
	test_name, value, unit, reference_range_low, reference_range_high, lis_flags,
	verification_status, verification_method, upload_status, upload_failure_count,
	upload_failure_reason, sent_to_lis_at, created_at, updated_at`

func scanResult(row rowScanner) (*result.Result, error) {
	var r result.Result
	err := row.Scan(&r.ID, &r.TenantID, &r.ExternalLISResultID, &r.SampleID, &r.OrderID, &r.TestCode,
		&r.TestName, &r.Value, &r.Unit, &r.ReferenceRangeLow, &r.ReferenceRangeHigh, &r.LISFlags,
		&r.VerificationStatus, &r.VerificationMethod, &r.UploadStatus, &r.UploadFailureCount,
		&r.UploadFailureReason, &r.SentToLISAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *ResultRepository) Create(ctx context.Context, res *result.Result) error {
	if err := res.Validate(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "invalid result", err)
	}
	now := time.Now()
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if res.VerificationStatus == "" {
		res.VerificationStatus = result.VerificationPending
	}
	if res.UploadStatus == "" {
		res.UploadStatus = result.UploadPending
	}
	res.CreatedAt, res.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO results (`+resultColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		res.ID, res.TenantID, res.ExternalLISResultID, res.SampleID, res.OrderID, res.TestCode,
		res.TestName, res.Value, res.Unit, res.ReferenceRangeLow, res.ReferenceRangeHigh, res.LISFlags,
		res.VerificationStatus, res.VerificationMethod, res.UploadStatus, res.UploadFailureCount,
		res.UploadFailureReason, res.SentToLISAt, res.CreatedAt, res.UpdatedAt)
	return wrapErr("create", "result", res.ID, err)
}

func (r *ResultRepository) GetByID(ctx context.Context, tenantID, id string) (*result.Result, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+resultColumns+` FROM results WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	res, err := scanResult(row)
	if err != nil {
		return nil, wrapErr("get_by_id", "result", id, err)
	}
	return res, nil
}

func (r *ResultRepository) GetByExternalLISResultID(ctx context.Context, tenantID, externalID string) (*result.Result, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+resultColumns+` FROM results WHERE tenant_id=$1 AND external_lis_result_id=$2`, tenantID, externalID)
	res, err := scanResult(row)
	if err != nil {
		return nil, wrapErr("get_by_external_id", "result", externalID, err)
	}
	return res, nil
}

func (r *ResultRepository) ListBySample(ctx context.Context, tenantID, sampleID string) ([]*result.Result, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+resultColumns+` FROM results WHERE tenant_id=$1 AND sample_id=$2`, tenantID, sampleID)
	if err != nil {
		return nil, wrapErr("list_by_sample", "result", "", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

func scanResults(rows *sql.Rows) ([]*result.Result, error) {
	var out []*result.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, wrapErr("scan", "result", "", err)
		}
		out = append(out, res)
	}
	return out, nil
}

// ListPriorByTestCode matches the delta-check rule's "most recent prior
// result within lookback" read, ordered newest first.
func (r *ResultRepository) ListPriorByTestCode(ctx context.Context, tenantID, sampleID, testCode, excludeID string, lookback time.Duration, asOf time.Time) ([]*result.Result, error) {
	cutoff := asOf.Add(-lookback)
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+resultColumns+` FROM results
		WHERE tenant_id=$1 AND sample_id=$2 AND test_code=$3 AND id<>$4
			AND created_at BETWEEN $5 AND $6
		ORDER BY created_at DESC`,
		tenantID, sampleID, testCode, excludeID, cutoff, asOf)
	if err != nil {
		return nil, wrapErr("list_prior", "result", "", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

func (r *ResultRepository) List(ctx context.Context, tenantID string, filter repository.ResultFilter, page repository.Page) ([]*result.Result, int, error) {
	where := ` WHERE tenant_id=$1`
	args := []interface{}{tenantID}
	if filter.VerificationStatus != nil {
		args = append(args, *filter.VerificationStatus)
		where += " AND verification_status=$" + strconv.Itoa(len(args))
	}
	if filter.UploadStatus != nil {
		args = append(args, *filter.UploadStatus)
		where += " AND upload_status=$" + strconv.Itoa(len(args))
	}
	if filter.SampleID != nil {
		args = append(args, *filter.SampleID)
		where += " AND sample_id=$" + strconv.Itoa(len(args))
	}
	if filter.TestCode != nil {
		args = append(args, *filter.TestCode)
		where += " AND test_code=$" + strconv.Itoa(len(args))
	}
	countArgs := append([]interface{}(nil), args...)
	query := `SELECT ` + resultColumns + ` FROM results` + where + " ORDER BY created_at DESC"
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
		return nil, 0, wrapErr("list", "result", "", err)
	}
	defer rows.Close()
	out, err := scanResults(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM results`+where, countArgs...).Scan(&total); err != nil {
		return nil, 0, wrapErr("count", "result", "", err)
	}
	return out, total, nil
}

func (r *ResultRepository) ListUploadEligible(ctx context.Context, tenantID string, uploadVerified, uploadRejected bool, limit int) ([]*result.Result, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+resultColumns+` FROM results
		WHERE tenant_id=$1 AND upload_status='pending'
			AND ((verification_status='verified' AND $2) OR (verification_status='rejected' AND $3))
		ORDER BY created_at ASC
		LIMIT $4`,
		tenantID, uploadVerified, uploadRejected, limit)
	if err != nil {
		return nil, wrapErr("list_upload_eligible", "result", "", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

func (r *ResultRepository) Update(ctx context.Context, res *result.Result) error {
	existing, err := r.GetByID(ctx, res.TenantID, res.ID)
	if err != nil {
		return err
	}
	if existing.VerificationStatus.Terminal() && res.VerificationStatus != existing.VerificationStatus {
		return apperrors.Immutable("result verification_status is terminal and cannot be modified")
	}
	res.UpdatedAt = time.Now()

	_, err = r.db.ExecContext(ctx, `
		UPDATE results SET value=$1, unit=$2, lis_flags=$3, verification_status=$4,
			verification_method=$5, upload_status=$6, upload_failure_count=$7,
			upload_failure_reason=$8, sent_to_lis_at=$9, updated_at=$10
		WHERE id=$11 AND tenant_id=$12`,
		res.Value, res.Unit, res.LISFlags, res.VerificationStatus, res.VerificationMethod,
		res.UploadStatus, res.UploadFailureCount, res.UploadFailureReason, res.SentToLISAt,
		res.UpdatedAt, res.ID, res.TenantID)
	return wrapErr("update", "result", res.ID, err)
}
