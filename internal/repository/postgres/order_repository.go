package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/order"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	if err := o.Validate(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "invalid order", err)
	}
	now := time.Now()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = order.StatusPending
	}
	o.CreatedAt, o.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (id, tenant_id, external_lis_order_id, sample_id, patient_id,
			test_codes, priority, assigned_instrument_id, assigned_at, completed_at,
			status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		o.ID, o.TenantID, o.ExternalLISOrderID, o.SampleID, o.PatientID,
		pq.Array(o.TestCodes), o.Priority, o.AssignedInstrumentID, o.AssignedAt,
		o.CompletedAt, o.Status, o.CreatedAt, o.UpdatedAt)
	return wrapErr("create", "order", o.ID, err)
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var o order.Order
	err := row.Scan(&o.ID, &o.TenantID, &o.ExternalLISOrderID, &o.SampleID, &o.PatientID,
		pq.Array(&o.TestCodes), &o.Priority, &o.AssignedInstrumentID, &o.AssignedAt,
		&o.CompletedAt, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

const orderColumns = `id, tenant_id, external_lis_order_id, sample_id, patient_id,
	test_codes, priority, assigned_instrument_id, assigned_at, completed_at,
	status, created_at, updated_at`

func (r *OrderRepository) GetByID(ctx context.Context, tenantID, id string) (*order.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	o, err := scanOrder(row)
	if err != nil {
		return nil, wrapErr("get_by_id", "order", id, err)
	}
	return o, nil
}

func (r *OrderRepository) GetByExternalLISOrderID(ctx context.Context, tenantID, externalID string) (*order.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE tenant_id=$1 AND external_lis_order_id=$2`, tenantID, externalID)
	o, err := scanOrder(row)
	if err != nil {
		return nil, wrapErr("get_by_external_id", "order", externalID, err)
	}
	return o, nil
}

func (r *OrderRepository) listWhere(ctx context.Context, clause string, args ...interface{}) ([]*order.Order, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+clause+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, wrapErr("list", "order", "", err)
	}
	defer rows.Close()
	var out []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, wrapErr("list_scan", "order", "", err)
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *OrderRepository) ListBySample(ctx context.Context, tenantID, sampleID string) ([]*order.Order, error) {
	return r.listWhere(ctx, "tenant_id=$1 AND sample_id=$2", tenantID, sampleID)
}

func (r *OrderRepository) ListPending(ctx context.Context, tenantID string) ([]*order.Order, error) {
	return r.listWhere(ctx, "tenant_id=$1 AND status=$2", tenantID, order.StatusPending)
}

func (r *OrderRepository) Update(ctx context.Context, tenantID, id string, patch order.Patch) (*order.Order, error) {
	existing, err := r.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	existing.Apply(patch)
	existing.UpdatedAt = time.Now()

	_, err = r.db.ExecContext(ctx, `
		UPDATE orders SET priority=$1, assigned_instrument_id=$2, assigned_at=$3,
			completed_at=$4, status=$5, updated_at=$6
		WHERE id=$7 AND tenant_id=$8`,
		existing.Priority, existing.AssignedInstrumentID, existing.AssignedAt,
		existing.CompletedAt, existing.Status, existing.UpdatedAt, id, tenantID)
	if err != nil {
		return nil, wrapErr("update", "order", id, err)
	}
	return existing, nil
}

func (r *OrderRepository) Delete(ctx context.Context, tenantID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	if err != nil {
		return wrapErr("delete", "order", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperrors.NotFound("order", id)
	}
	return nil
}

// rowScanner abstracts over *sql.Row and *sql.Rows, grounded on the
// teacher's RowScanner abstraction in its PostgreSQL repository.
type rowScanner interface {
	Scan(dest ...interface{}) error
}
