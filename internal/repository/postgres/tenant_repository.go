package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/tenant"
)

type TenantRepository struct {
	db *sql.DB
}

func NewTenantRepository(db *sql.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	if err := t.Validate(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "invalid tenant", err)
	}
	now := time.Now()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt, t.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tenants (id, name, created_at, updated_at) VALUES ($1,$2,$3,$4)`,
		t.ID, t.Name, t.CreatedAt, t.UpdatedAt)
	return wrapErr("create", "tenant", t.ID, err)
}

func (r *TenantRepository) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at FROM tenants WHERE id=$1`, id).
		Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, wrapErr("get_by_id", "tenant", id, err)
	}
	return &t, nil
}
