package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/engineerapp/backoffice/internal/httpx"
	"github.com/engineerapp/backoffice/internal/models"
)

type NotificationHandler struct {
	DB *gorm.DB
}

func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{DB: db}
}

// RegisterToken records a device push token. Registering the same token
// twice is acknowledged, not duplicated.
func (h *NotificationHandler) RegisterToken(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	var in struct {
		Token  string `json:"token"`
		Device string `json:"device"`
	}
	if !decode(w, r, &in) {
		return
	}
	token := strings.TrimSpace(in.Token)
	if token == "" {
		httpx.JSONError(w, http.StatusBadRequest, "Push token is required", nil)
		return
	}

	var existing models.DeviceToken
	err := h.DB.Where("user_id = ? AND token = ?", u.ID, token).First(&existing).Error
	if err == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Token already registered"})
		return
	}
	if err != gorm.ErrRecordNotFound {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	device := in.Device
	if device == "" {
		device = "web"
	}
	dt := models.DeviceToken{
		UserID:         u.ID,
		Token:          token,
		Device:         device,
		RegistrationID: uuid.NewString(),
		LastSeenAt:     time.Now(),
	}
	if err := h.DB.Create(&dt).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Push token registered successfully"})
}

func (h *NotificationHandler) RemoveToken(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	var in struct {
		Token string `json:"token"`
	}
	if !decode(w, r, &in) {
		return
	}
	token := strings.TrimSpace(in.Token)
	if token == "" {
		httpx.JSONError(w, http.StatusBadRequest, "Push token is required", nil)
		return
	}

	if err := h.DB.Where("user_id = ? AND token = ?", u.ID, token).Delete(&models.DeviceToken{}).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Push token removed successfully"})
}
