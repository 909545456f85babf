// Package auth is the gate in front of every owner-scoped route. Identity
// tokens come from an external provider; we only verify them through the
// TokenVerifier contract and resolve the local user record.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/engineerapp/backoffice/internal/httpx"
	"github.com/engineerapp/backoffice/internal/models"
)

// Identity is what the provider attests about a caller.
type Identity struct {
	UID     string
	Email   string
	Name    string
	Picture string
}

// TokenVerifier checks a bearer identity token. Implementations: the dev
// HMACVerifier here, or an adapter over the real provider's SDK.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

type ctxKey string

const userCtxKey = ctxKey("authUser")

// WithUser stores the resolved user in context.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userCtxKey, u)
}

// UserFromContext extracts the resolved user.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userCtxKey).(*models.User)
	return u, ok
}

// Gate verifies Authorization: Bearer tokens and resolves the local user.
// No cookie fallback.
type Gate struct {
	DB       *gorm.DB
	Verifier TokenVerifier
	Log      *logrus.Logger
}

func NewGate(db *gorm.DB, v TokenVerifier, log *logrus.Logger) *Gate {
	return &Gate{DB: db, Verifier: v, Log: log}
}

func (g *Gate) deny(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	g.Log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path, "code": code}).Warn("auth blocked")
	httpx.JSON(w, status, httpx.ErrorResponse{Error: code, Message: msg})
}

// Require wraps a handler so it only runs for an authenticated, active user.
func (g *Gate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			g.deny(w, r, http.StatusUnauthorized, "NO_TOKEN", "Authentication required. No token provided.")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" {
			g.deny(w, r, http.StatusUnauthorized, "NO_TOKEN", "Authentication required. No token provided.")
			return
		}
		identity, err := g.Verifier.Verify(r.Context(), token)
		if err != nil {
			if err == ErrTokenExpired {
				g.deny(w, r, http.StatusUnauthorized, "TOKEN_EXPIRED", "Authentication token expired. Please refresh.")
				return
			}
			g.deny(w, r, http.StatusUnauthorized, "AUTH_ERROR", "Authentication failed. Invalid token.")
			return
		}
		var user models.User
		if err := g.DB.Where("provider_uid = ?", identity.UID).First(&user).Error; err != nil {
			g.deny(w, r, http.StatusUnauthorized, "USER_NOT_FOUND", "User account not found.")
			return
		}
		if !user.Active {
			g.deny(w, r, http.StatusForbidden, "ACCOUNT_DEACTIVATED", "Account is deactivated. Please contact support.")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), &user)))
	})
}

// RequireFunc is Require for plain handler funcs.
func (g *Gate) RequireFunc(next http.HandlerFunc) http.Handler { return g.Require(next) }
