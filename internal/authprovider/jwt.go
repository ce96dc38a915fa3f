// Package authprovider implements the authenticate(token) -> principal
// capability: JWT issuance and verification for the HTTP surface's
// bearer-token auth, backed by minimal Tenant/User records. Claims carry
// {sub, tenant_id, role}.
package authprovider

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/user"
)

// Principal is the authenticated identity recovered from a bearer token.
type Principal struct {
	TenantID string
	UserID   string
	Role     user.Role
}

// AuthProvider is the port the HTTP authentication middleware depends on.
type AuthProvider interface {
	Authenticate(ctx context.Context, token string) (Principal, error)
	IssueToken(ctx context.Context, tenantID, userID string, role user.Role) (string, error)
}

type claims struct {
	TenantID string    `json:"tenant_id"`
	Role     user.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTProvider is the default AuthProvider: HS256-signed tokens with a
// configurable TTL, keyed by the SECRET_KEY setting. Tokens are always
// signed with HS256; the JWT_ALGORITHM setting is not consulted.
type JWTProvider struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTProvider(secret []byte, ttl time.Duration) *JWTProvider {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &JWTProvider{secret: secret, ttl: ttl}
}

func (p *JWTProvider) IssueToken(ctx context.Context, tenantID, userID string, role user.Role) (string, error) {
	now := time.Now()
	c := claims{
		TenantID: tenantID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", apperrors.Internal("sign jwt", err)
	}
	return signed, nil
}

func (p *JWTProvider) Authenticate(ctx context.Context, tokenString string) (Principal, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Principal{}, apperrors.Unauthorized("invalid or expired token")
	}
	c, ok := parsed.Claims.(*claims)
	if !ok {
		return Principal{}, apperrors.Unauthorized("invalid token claims")
	}
	return Principal{TenantID: c.TenantID, UserID: c.Subject, Role: c.Role}, nil
}
