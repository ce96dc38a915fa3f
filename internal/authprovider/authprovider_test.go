package authprovider_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedgehog/ivdmiddleware/internal/authprovider"
	"github.com/hedgehog/ivdmiddleware/internal/domain/user"
	"github.com/hedgehog/ivdmiddleware/internal/repository/memory"
)

func TestLoginIssuesTokenThatAuthenticatesBack(t *testing.T) {
	ctx := context.Background()
	provider := authprovider.NewJWTProvider([]byte("test-secret"), time.Hour)
	svc := authprovider.NewAccountService(memory.NewTenantRepository(), memory.NewUserRepository(), provider)

	tn, admin, err := svc.CreateTenantWithAdmin(ctx, "Acme Labs", "admin@acme.test", "hunter22")
	require.NoError(t, err)

	token, err := svc.Login(ctx, tn.ID, "admin@acme.test", "hunter22")
	require.NoError(t, err)

	principal, err := provider.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, principal.UserID)
	assert.Equal(t, tn.ID, principal.TenantID)
	assert.Equal(t, user.RoleAdmin, principal.Role)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	ctx := context.Background()
	provider := authprovider.NewJWTProvider([]byte("test-secret"), time.Hour)
	svc := authprovider.NewAccountService(memory.NewTenantRepository(), memory.NewUserRepository(), provider)

	tn, _, err := svc.CreateTenantWithAdmin(ctx, "Acme Labs", "admin@acme.test", "hunter22")
	require.NoError(t, err)

	_, err = svc.Login(ctx, tn.ID, "admin@acme.test", "wrong-password")
	require.Error(t, err)
}

func TestAuthenticateRejectsTamperedToken(t *testing.T) {
	provider := authprovider.NewJWTProvider([]byte("test-secret"), time.Hour)
	_, err := provider.Authenticate(context.Background(), "not-a-real-token")
	require.Error(t, err)
}
