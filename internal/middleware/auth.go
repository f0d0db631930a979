package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/crickpick/contest-backend/internal/api/httpx"
	"github.com/crickpick/contest-backend/internal/auth"
)

type ctxKey string

const (
	ctxAccountIDKey ctxKey = "account_id"
	ctxRoleKey      ctxKey = "role"
)

// AccountID returns the authenticated account id. Handlers thread this id
// explicitly into every service call; nothing below the HTTP layer reads it
// from context.
func AccountID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxAccountIDKey).(string)
	return v, ok
}

func Role(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxRoleKey).(string)
	return v, ok
}

type AuthMiddleware struct {
	TM *auth.TokenManager
}

func NewAuthMiddleware(tm *auth.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{TM: tm}
}

func (m *AuthMiddleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ah := r.Header.Get("Authorization")
		if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token", nil)
			return
		}
		token := strings.TrimSpace(ah[len("Bearer "):])

		claims, isRefresh, err := m.TM.ParseAny(token)
		if err != nil || isRefresh {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid access token", nil)
			return
		}
		ctx := context.WithValue(r.Context(), ctxAccountIDKey, claims.AccountID)
		ctx = context.WithValue(ctx, ctxRoleKey, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole allows only the given role past. Must sit behind Auth.
func RequireRole(need string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := Role(r.Context())
			if !ok || role != need {
				httpx.WriteError(w, http.StatusForbidden, "forbidden", "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
