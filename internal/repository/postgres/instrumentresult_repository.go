package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/instrumentresult"
)

type InstrumentResultRepository struct {
	db *sql.DB
}

func NewInstrumentResultRepository(db *sql.DB) *InstrumentResultRepository {
	return &InstrumentResultRepository{db: db}
}

const instrumentResultColumns = `id, tenant_id, instrument_id, external_instrument_result_id,
	test_code, test_name, value, unit, reference_range_low, reference_range_high,
	collection_timestamp, status, mapped_result_id, created_at`

func scanInstrumentResult(row rowScanner) (*instrumentresult.InstrumentResult, error) {
	var r instrumentresult.InstrumentResult
	err := row.Scan(&r.ID, &r.TenantID, &r.InstrumentID, &r.ExternalInstrumentResultID,
		&r.TestCode, &r.TestName, &r.Value, &r.Unit, &r.ReferenceRangeLow, &r.ReferenceRangeHigh,
		&r.CollectionTimestamp, &r.Status, &r.MappedResultID, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *InstrumentResultRepository) Create(ctx context.Context, ir *instrumentresult.InstrumentResult) error {
	if err := ir.Validate(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "invalid instrument result", err)
	}
	if ir.ID == "" {
		ir.ID = uuid.NewString()
	}
	if ir.Status == "" {
		ir.Status = instrumentresult.StatusReceived
	}
	if ir.CreatedAt.IsZero() {
		ir.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO instrument_results (`+instrumentResultColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		ir.ID, ir.TenantID, ir.InstrumentID, ir.ExternalInstrumentResultID,
		ir.TestCode, ir.TestName, ir.Value, ir.Unit, ir.ReferenceRangeLow, ir.ReferenceRangeHigh,
		ir.CollectionTimestamp, ir.Status, ir.MappedResultID, ir.CreatedAt)
	return wrapErr("create", "instrument_result", ir.ID, err)
}

func (r *InstrumentResultRepository) GetByExternalID(ctx context.Context, tenantID, instrumentID, externalID string) (*instrumentresult.InstrumentResult, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+instrumentResultColumns+` FROM instrument_results
		WHERE tenant_id=$1 AND instrument_id=$2 AND external_instrument_result_id=$3`,
		tenantID, instrumentID, externalID)
	ir, err := scanInstrumentResult(row)
	if err != nil {
		return nil, wrapErr("get_by_external_id", "instrument_result", externalID, err)
	}
	return ir, nil
}

func (r *InstrumentResultRepository) Update(ctx context.Context, ir *instrumentresult.InstrumentResult) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE instrument_results SET status=$1, mapped_result_id=$2
		WHERE id=$3 AND tenant_id=$4`,
		ir.Status, ir.MappedResultID, ir.ID, ir.TenantID)
	return wrapErr("update", "instrument_result", ir.ID, err)
}
