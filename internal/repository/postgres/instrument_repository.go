package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/instrument"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

type InstrumentRepository struct {
	db *sql.DB
}

func NewInstrumentRepository(db *sql.DB) *InstrumentRepository {
	return &InstrumentRepository{db: db}
}

const instrumentColumns = `id, tenant_id, name, api_token, api_token_created_at, instrument_type,
	status, connection_failure_count, last_successful_query_at, last_successful_result_at,
	last_failure_at, last_failure_reason, created_at, updated_at`

func scanInstrument(row rowScanner) (*instrument.Instrument, error) {
	var i instrument.Instrument
	err := row.Scan(&i.ID, &i.TenantID, &i.Name, &i.APIToken, &i.APITokenCreatedAt, &i.InstrumentType,
		&i.Status, &i.ConnectionFailureCount, &i.LastSuccessfulQueryAt, &i.LastSuccessfulResultAt,
		&i.LastFailureAt, &i.LastFailureReason, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *InstrumentRepository) Create(ctx context.Context, i *instrument.Instrument) error {
	if err := i.Validate(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "invalid instrument", err)
	}
	now := time.Now()
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Status == "" {
		i.Status = instrument.StatusActive
	}
	if i.APITokenCreatedAt.IsZero() {
		i.APITokenCreatedAt = now
	}
	i.CreatedAt, i.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO instruments (`+instrumentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		i.ID, i.TenantID, i.Name, i.APIToken, i.APITokenCreatedAt, i.InstrumentType,
		i.Status, i.ConnectionFailureCount, i.LastSuccessfulQueryAt, i.LastSuccessfulResultAt,
		i.LastFailureAt, i.LastFailureReason, i.CreatedAt, i.UpdatedAt)
	return wrapErr("create", "instrument", i.ID, err)
}

func (r *InstrumentRepository) GetByID(ctx context.Context, tenantID, id string) (*instrument.Instrument, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+instrumentColumns+` FROM instruments WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	i, err := scanInstrument(row)
	if err != nil {
		return nil, wrapErr("get_by_id", "instrument", id, err)
	}
	return i, nil
}

func (r *InstrumentRepository) GetByName(ctx context.Context, tenantID, name string) (*instrument.Instrument, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+instrumentColumns+` FROM instruments WHERE tenant_id=$1 AND name=$2`, tenantID, name)
	i, err := scanInstrument(row)
	if err != nil {
		return nil, wrapErr("get_by_name", "instrument", name, err)
	}
	return i, nil
}

func (r *InstrumentRepository) GetByAPIToken(ctx context.Context, token string) (*instrument.Instrument, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+instrumentColumns+` FROM instruments WHERE api_token=$1`, token)
	i, err := scanInstrument(row)
	if err != nil {
		return nil, wrapErr("get_by_api_token", "instrument", "", err)
	}
	return i, nil
}

func (r *InstrumentRepository) List(ctx context.Context, tenantID string, page repository.Page) ([]*instrument.Instrument, int, error) {
	query := `SELECT ` + instrumentColumns + ` FROM instruments WHERE tenant_id=$1 ORDER BY created_at DESC`
	args := []interface{}{tenantID}
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
		return nil, 0, wrapErr("list", "instrument", "", err)
	}
	defer rows.Close()

	var out []*instrument.Instrument
	for rows.Next() {
		i, err := scanInstrument(rows)
		if err != nil {
			return nil, 0, wrapErr("list_scan", "instrument", "", err)
		}
		out = append(out, i)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM instruments WHERE tenant_id=$1`, tenantID).Scan(&total); err != nil {
		return nil, 0, wrapErr("count", "instrument", "", err)
	}
	return out, total, nil
}

// ListAllActive returns every active instrument across every tenant, for the
// health reaper's periodic staleness sweep.
func (r *InstrumentRepository) ListAllActive(ctx context.Context) ([]*instrument.Instrument, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+instrumentColumns+` FROM instruments WHERE status=$1`, instrument.StatusActive)
	if err != nil {
		return nil, wrapErr("list_all_active", "instrument", "", err)
	}
	defer rows.Close()

	var out []*instrument.Instrument
	for rows.Next() {
		i, err := scanInstrument(rows)
		if err != nil {
			return nil, wrapErr("list_all_active_scan", "instrument", "", err)
		}
		out = append(out, i)
	}
	return out, nil
}

func (r *InstrumentRepository) Update(ctx context.Context, i *instrument.Instrument) error {
	i.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, `
		UPDATE instruments SET name=$1, api_token=$2, api_token_created_at=$3, instrument_type=$4,
			status=$5, connection_failure_count=$6, last_successful_query_at=$7,
			last_successful_result_at=$8, last_failure_at=$9, last_failure_reason=$10, updated_at=$11
		WHERE id=$12 AND tenant_id=$13`,
		i.Name, i.APIToken, i.APITokenCreatedAt, i.InstrumentType, i.Status,
		i.ConnectionFailureCount, i.LastSuccessfulQueryAt, i.LastSuccessfulResultAt,
		i.LastFailureAt, i.LastFailureReason, i.UpdatedAt, i.ID, i.TenantID)
	return wrapErr("update", "instrument", i.ID, err)
}

func (r *InstrumentRepository) Delete(ctx context.Context, tenantID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM instruments WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	if err != nil {
		return wrapErr("delete", "instrument", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperrors.NotFound("instrument", id)
	}
	return nil
}
