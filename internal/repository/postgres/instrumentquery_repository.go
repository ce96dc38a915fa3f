package postgres

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/google/uuid"

	"github.com/hedgehog/ivdmiddleware/internal/domain/instrumentquery"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

type InstrumentQueryRepository struct {
	db *sql.DB
}

func NewInstrumentQueryRepository(db *sql.DB) *InstrumentQueryRepository {
	return &InstrumentQueryRepository{db: db}
}

const instrumentQueryColumns = `id, tenant_id, instrument_id, query_timestamp, response_timestamp,
	response_time_ms, orders_returned_count, response_status, query_patient_id,
	query_sample_barcode, error_reason`

func (r *InstrumentQueryRepository) Create(ctx context.Context, q *instrumentquery.InstrumentQuery) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO instrument_queries (`+instrumentQueryColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		q.ID, q.TenantID, q.InstrumentID, q.QueryTimestamp, q.ResponseTimestamp,
		q.ResponseTimeMS, q.OrdersReturnedCount, q.ResponseStatus, q.QueryPatientID,
		q.QuerySampleBarcode, q.ErrorReason)
	return wrapErr("create", "instrument_query", q.ID, err)
}

func (r *InstrumentQueryRepository) ListByInstrument(ctx context.Context, tenantID, instrumentID string, page repository.Page) ([]*instrumentquery.InstrumentQuery, int, error) {
	query := `SELECT ` + instrumentQueryColumns + ` FROM instrument_queries
		WHERE tenant_id=$1 AND instrument_id=$2 ORDER BY query_timestamp DESC`
	args := []interface{}{tenantID, instrumentID}
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
		return nil, 0, wrapErr("list_by_instrument", "instrument_query", "", err)
	}
	defer rows.Close()

	var out []*instrumentquery.InstrumentQuery
	for rows.Next() {
		var q instrumentquery.InstrumentQuery
		if err := rows.Scan(&q.ID, &q.TenantID, &q.InstrumentID, &q.QueryTimestamp, &q.ResponseTimestamp,
			&q.ResponseTimeMS, &q.OrdersReturnedCount, &q.ResponseStatus, &q.QueryPatientID,
			&q.QuerySampleBarcode, &q.ErrorReason); err != nil {
			return nil, 0, wrapErr("list_scan", "instrument_query", "", err)
		}
		out = append(out, &q)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM instrument_queries WHERE tenant_id=$1 AND instrument_id=$2`,
		tenantID, instrumentID).Scan(&total); err != nil {
		return nil, 0, wrapErr("count", "instrument_query", "", err)
	}
	return out, total, nil
}
