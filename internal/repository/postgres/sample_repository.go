package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/sample"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

type SampleRepository struct {
	db *sql.DB
}

func NewSampleRepository(db *sql.DB) *SampleRepository {
	return &SampleRepository{db: db}
}

func (r *SampleRepository) Create(ctx context.Context, s *sample.Sample) error {
	if err := s.Validate(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "invalid sample", err)
	}
	now := time.Now()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = sample.StatusPending
	}
	s.CreatedAt, s.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO samples (id, tenant_id, external_lis_id, patient_id, specimen_type,
			collection_date, received_date, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		s.ID, s.TenantID, s.ExternalLISID, s.PatientID, s.SpecimenType,
		s.CollectionDate, s.ReceivedDate, s.Status, s.CreatedAt, s.UpdatedAt)
	return wrapErr("create", "sample", s.ID, err)
}

func (r *SampleRepository) scanRow(row *sql.Row) (*sample.Sample, error) {
	var s sample.Sample
	err := row.Scan(&s.ID, &s.TenantID, &s.ExternalLISID, &s.PatientID, &s.SpecimenType,
		&s.CollectionDate, &s.ReceivedDate, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SampleRepository) GetByID(ctx context.Context, tenantID, id string) (*sample.Sample, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, external_lis_id, patient_id, specimen_type,
			collection_date, received_date, status, created_at, updated_at
		FROM samples WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	s, err := r.scanRow(row)
	if err != nil {
		return nil, wrapErr("get_by_id", "sample", id, err)
	}
	return s, nil
}

func (r *SampleRepository) GetByExternalLISID(ctx context.Context, tenantID, externalLISID string) (*sample.Sample, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, external_lis_id, patient_id, specimen_type,
			collection_date, received_date, status, created_at, updated_at
		FROM samples WHERE tenant_id=$1 AND external_lis_id=$2`, tenantID, externalLISID)
	s, err := r.scanRow(row)
	if err != nil {
		return nil, wrapErr("get_by_external_lis_id", "sample", externalLISID, err)
	}
	return s, nil
}

func (r *SampleRepository) List(ctx context.Context, tenantID string, status *sample.Status, page repository.Page) ([]*sample.Sample, int, error) {
	query := `SELECT id, tenant_id, external_lis_id, patient_id, specimen_type,
		collection_date, received_date, status, created_at, updated_at
		FROM samples WHERE tenant_id=$1`
	args := []interface{}{tenantID}
	if status != nil {
		query += " AND status=$2"
		args = append(args, *status)
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
		return nil, 0, wrapErr("list", "sample", "", err)
	}
	defer rows.Close()

	var out []*sample.Sample
	for rows.Next() {
		var s sample.Sample
		if err := rows.Scan(&s.ID, &s.TenantID, &s.ExternalLISID, &s.PatientID, &s.SpecimenType,
			&s.CollectionDate, &s.ReceivedDate, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, wrapErr("list_scan", "sample", "", err)
		}
		out = append(out, &s)
	}

	var total int
	countArgs := []interface{}{tenantID}
	countQuery := "SELECT COUNT(*) FROM samples WHERE tenant_id=$1"
	if status != nil {
		countQuery += " AND status=$2"
		countArgs = append(countArgs, *status)
	}
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, wrapErr("count", "sample", "", err)
	}
	return out, total, nil
}

func (r *SampleRepository) Update(ctx context.Context, tenantID, id string, patch sample.Patch) (*sample.Sample, error) {
	existing, err := r.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	existing.Apply(patch)
	if err := existing.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, "invalid sample update", err)
	}
	existing.UpdatedAt = time.Now()

	_, err = r.db.ExecContext(ctx, `
		UPDATE samples SET patient_id=$1, specimen_type=$2, collection_date=$3,
			received_date=$4, status=$5, updated_at=$6
		WHERE id=$7 AND tenant_id=$8`,
		existing.PatientID, existing.SpecimenType, existing.CollectionDate,
		existing.ReceivedDate, existing.Status, existing.UpdatedAt, id, tenantID)
	if err != nil {
		return nil, wrapErr("update", "sample", id, err)
	}
	return existing, nil
}

func (r *SampleRepository) Delete(ctx context.Context, tenantID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM samples WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	if err != nil {
		return wrapErr("delete", "sample", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperrors.NotFound("sample", id)
	}
	return nil
}
