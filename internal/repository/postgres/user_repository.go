package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/user"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, tenant_id, email, password_hash, role, created_at, updated_at`

func scanUser(row rowScanner) (*user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	if err := u.Validate(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "invalid user", err)
	}
	now := time.Now()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt, u.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		u.ID, u.TenantID, u.Email, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt)
	return wrapErr("create", "user", u.ID, err)
}

func (r *UserRepository) GetByID(ctx context.Context, tenantID, id string) (*user.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	u, err := scanUser(row)
	if err != nil {
		return nil, wrapErr("get_by_id", "user", id, err)
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, tenantID, email string) (*user.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE tenant_id=$1 AND lower(email)=lower($2)`, tenantID, email)
	u, err := scanUser(row)
	if err != nil {
		return nil, wrapErr("get_by_email", "user", email, err)
	}
	return u, nil
}
