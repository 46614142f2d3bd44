package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/NordCoder/fintrack/internal/auth"
	"github.com/NordCoder/fintrack/internal/domain/account"
)

type accountCtxKey struct{}

func bearer(r *http.Request) string {
	v := r.Header.Get("Authorization")
	if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return ""
}

// RequireAccount rejects requests without a valid access token and puts the
// caller's account into the request context.
func (s *Server) RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearer(r)
		if raw == "" {
			s.writeErr(w, r, "auth.authenticate", auth.ErrTokenInvalid)
			return
		}
		a, err := s.uc.Authenticate(r.Context(), raw)
		if err != nil {
			s.writeErr(w, r, "auth.authenticate", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountCtxKey{}, a)))
	})
}

// RequireAdmin must run after RequireAccount.
func (s *Server) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := AccountFromContext(r.Context())
		if a == nil || !a.IsAdmin() {
			s.writeErr(w, r, "auth.admin", ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func AccountFromContext(ctx context.Context) *account.Account {
	a, _ := ctx.Value(accountCtxKey{}).(*account.Account)
	return a
}
