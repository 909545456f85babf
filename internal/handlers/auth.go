package handlers

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/engineerapp/backoffice/internal/auth"
	"github.com/engineerapp/backoffice/internal/httpx"
	"github.com/engineerapp/backoffice/internal/models"
)

type AuthHandler struct {
	DB       *gorm.DB
	Verifier auth.TokenVerifier
	// Issuer is set when the dev HMAC verifier is active; email/password
	// login is unavailable against an external provider.
	Issuer *auth.HMACVerifier
	TTL    time.Duration
	Log    *logrus.Logger
}

func NewAuthHandler(db *gorm.DB, v auth.TokenVerifier, issuer *auth.HMACVerifier, ttl time.Duration, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{DB: db, Verifier: v, Issuer: issuer, TTL: ttl, Log: log}
}

// Exchange verifies a provider identity token and upserts the local user.
// First sight of a provider UID is sign-up; later calls refresh the
// display name and photo.
func (h *AuthHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	var in struct {
		IDToken string `json:"idToken"`
	}
	if !decode(w, r, &in) {
		return
	}
	if in.IDToken == "" {
		httpx.JSONError(w, http.StatusBadRequest, "ID token is required.", nil)
		return
	}

	identity, err := h.Verifier.Verify(r.Context(), in.IDToken)
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "Authentication failed.", nil)
		return
	}

	var user models.User
	err = h.DB.Where("provider_uid = ?", identity.UID).First(&user).Error
	switch {
	case err == nil:
		updates := map[string]any{}
		if identity.Name != "" {
			updates["display_name"] = identity.Name
		}
		if identity.Picture != "" {
			updates["photo_url"] = identity.Picture
		}
		if len(updates) > 0 {
			if err := h.DB.Model(&user).Updates(updates).Error; err != nil {
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
				return
			}
		}
	case err == gorm.ErrRecordNotFound:
		user = models.User{
			ProviderUID: identity.UID,
			Email:       identity.Email,
			DisplayName: identity.Name,
			PhotoURL:    identity.Picture,
			Active:      true,
		}
		if err := h.DB.Create(&user).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			return
		}
		h.Log.WithField("email", user.Email).Info("new user created")
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Authentication successful.",
		"user":    user,
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "user": u})
}

// Logout is an acknowledgement only. Tokens are bearer credentials with a
// built-in expiry; there is no server-side session to destroy.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out successfully."})
}

// SetPassword lets a provider-authenticated user attach a local password
// for email/password login.
func (h *AuthHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	var in struct {
		Password string `json:"password"`
	}
	if !decode(w, r, &in) {
		return
	}
	if len(in.Password) < 6 {
		httpx.JSONError(w, http.StatusBadRequest, "Password must be at least 6 characters.", nil)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	err = h.DB.Model(u).Updates(map[string]any{
		"password_hash": string(hash),
		"password_set":  true,
	}).Error
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Password set successfully."})
}

// Login authenticates by email and password and issues a bearer token.
// Only available with the built-in token issuer.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.Issuer == nil {
		httpx.JSONError(w, http.StatusNotImplemented, "Password login is handled by the identity provider.", nil)
		return
	}
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &in) {
		return
	}
	if in.Email == "" || in.Password == "" {
		httpx.JSONError(w, http.StatusBadRequest, "Email and password are required.", nil)
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", in.Email).First(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "Invalid email or password.", nil)
		return
	}
	if !user.PasswordSet || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "Invalid email or password.", nil)
		return
	}
	if !user.Active {
		httpx.JSONError(w, http.StatusForbidden, "Account is deactivated. Please contact support.", nil)
		return
	}

	token := h.Issuer.Issue(auth.Identity{
		UID:   user.ProviderUID,
		Email: user.Email,
		Name:  user.DisplayName,
	}, h.TTL)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"user":    user,
	})
}
