package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/authprovider"
	"github.com/hedgehog/ivdmiddleware/internal/domain/user"
)

type principalKey struct{}

// Authentication validates the bearer token against an AuthProvider and
// stores the resolved Principal in the request context.
func Authentication(provider authprovider.AuthProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				writeAuthError(w, apperrors.Unauthorized("missing bearer token"))
				return
			}
			principal, err := provider.Authenticate(r.Context(), strings.TrimPrefix(header, prefix))
			if err != nil {
				writeAuthError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), principalKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Principal retrieves the authenticated caller from context, set by
// Authentication.
func Principal(ctx context.Context) (authprovider.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(authprovider.Principal)
	return p, ok
}

// RequireRole rejects requests whose Principal role does not meet the
// given minimum on the role ladder (technician < reviewer < pathologist <
// admin).
func RequireRole(min user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := Principal(r.Context())
			if !ok {
				writeAuthError(w, apperrors.Unauthorized("not authenticated"))
				return
			}
			if !p.Role.AtLeast(min) {
				writeAuthError(w, apperrors.Forbidden("insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, err error) {
	status := http.StatusUnauthorized
	if apperrors.KindOf(err) == apperrors.KindForbidden {
		status = http.StatusForbidden
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + string(apperrors.KindOf(err)) + `"}`))
}
