// internal/middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/baharkarakas/crowdfund-backend/internal/api/httpx"
	"github.com/baharkarakas/crowdfund-backend/internal/apperr"
	"github.com/baharkarakas/crowdfund-backend/internal/auth"
)

const TokenHeader = "x-access-token"

type AuthMiddleware struct {
	TM *auth.TokenManager
}

func NewAuthMiddleware(tm *auth.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{TM: tm}
}

// tokenFrom reads x-access-token, falling back to "Authorization: Bearer".
func tokenFrom(r *http.Request) string {
	if t := strings.TrimSpace(r.Header.Get(TokenHeader)); t != "" {
		return t
	}
	ah := r.Header.Get("Authorization")
	if len(ah) > 7 && strings.EqualFold(ah[:7], "bearer ") {
		return strings.TrimSpace(ah[7:])
	}
	return ""
}

// Authenticate verifies raw and returns the identity it carries.
func (m *AuthMiddleware) Authenticate(raw string) (auth.Identity, error) {
	if raw == "" {
		return auth.Identity{}, apperr.Unauthorized("Invalid::No token in header")
	}
	id, err := m.TM.Verify(raw)
	if err != nil {
		return auth.Identity{}, apperr.Wrap(err, apperr.KindUnauthorized, "invalid access token")
	}
	return id, nil
}

// Auth rejects requests without a valid token and attaches the identity otherwise.
func (m *AuthMiddleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := m.Authenticate(tokenFrom(r))
		if err != nil {
			httpx.WriteAppError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}
