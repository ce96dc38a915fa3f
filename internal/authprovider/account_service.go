package authprovider

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/tenant"
	"github.com/hedgehog/ivdmiddleware/internal/domain/user"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

// AccountService backs the tenant-bootstrap and login surface: POST
// /tenants/with-admin, POST /users, POST /auth/login, GET /auth/me.
type AccountService struct {
	Tenants  repository.TenantRepository
	Users    repository.UserRepository
	Provider AuthProvider
}

func NewAccountService(tenants repository.TenantRepository, users repository.UserRepository, provider AuthProvider) *AccountService {
	return &AccountService{Tenants: tenants, Users: users, Provider: provider}
}

// CreateTenantWithAdmin provisions a tenant and its first admin user in one
// call — the only way a tenant is ever bootstrapped, since there is no
// self-service signup in scope.
func (s *AccountService) CreateTenantWithAdmin(ctx context.Context, tenantName, adminEmail, adminPassword string) (*tenant.Tenant, *user.User, error) {
	t := &tenant.Tenant{Name: tenantName}
	if err := t.Validate(); err != nil {
		return nil, nil, apperrors.Wrap(apperrors.KindInvalidInput, "invalid tenant", err)
	}
	if err := s.Tenants.Create(ctx, t); err != nil {
		return nil, nil, err
	}

	admin, err := s.CreateUser(ctx, t.ID, adminEmail, adminPassword, user.RoleAdmin)
	if err != nil {
		return nil, nil, err
	}
	return t, admin, nil
}

func (s *AccountService) CreateUser(ctx context.Context, tenantID, email, password string, role user.Role) (*user.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal("hash password", err)
	}

	u := &user.User{
		TenantID:     tenantID,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := u.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, "invalid user", err)
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies email/password for a tenant and issues a bearer token.
func (s *AccountService) Login(ctx context.Context, tenantID, email, password string) (string, error) {
	u, err := s.Users.GetByEmail(ctx, tenantID, email)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return "", apperrors.Unauthorized("invalid email or password")
		}
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", apperrors.Unauthorized("invalid email or password")
	}
	return s.Provider.IssueToken(ctx, u.TenantID, u.ID, u.Role)
}

// Me resolves the full User record behind an already-authenticated
// Principal, for GET /auth/me.
func (s *AccountService) Me(ctx context.Context, p Principal) (*user.User, error) {
	return s.Users.GetByID(ctx, p.TenantID, p.UserID)
}
