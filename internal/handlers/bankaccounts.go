package handlers

import (
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/engineerapp/backoffice/internal/httpx"
	"github.com/engineerapp/backoffice/internal/models"
	"github.com/engineerapp/backoffice/internal/validation"
)

type BankAccountHandler struct {
	DB *gorm.DB
}

func NewBankAccountHandler(db *gorm.DB) *BankAccountHandler {
	return &BankAccountHandler{DB: db}
}

type bankAccountInput struct {
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	IFSCCode      string `json:"ifscCode"`
	HolderName    string `json:"accountHolderName"`
	UPIID         string `json:"upiId"`
	Primary       bool   `json:"isPrimary"`
}

// Create adds a bank account. The owner's first account becomes primary
// regardless of the flag; an explicit primary demotes the current one.
func (h *BankAccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	var in bankAccountInput
	if !decode(w, r, &in) {
		return
	}

	v := validation.Violations{}
	validation.Required("bankName", in.BankName, v)
	validation.Required("accountNumber", in.AccountNumber, v)
	validation.Required("ifscCode", in.IFSCCode, v)
	validation.Required("accountHolderName", in.HolderName, v)
	validation.Required("upiId", in.UPIID, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "All fields are required", v)
		return
	}

	var account models.BankAccount
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.BankAccount{}).
			Where("owner_id = ? AND deleted = ?", u.ID, false).
			Count(&count).Error; err != nil {
			return err
		}
		primary := in.Primary || count == 0
		if in.Primary {
			if err := tx.Model(&models.BankAccount{}).
				Where("owner_id = ? AND \"primary\" = ?", u.ID, true).
				UpdateColumn("primary", false).Error; err != nil {
				return err
			}
		}
		account = models.BankAccount{
			OwnerID:       u.ID,
			BankName:      strings.TrimSpace(in.BankName),
			AccountNumber: strings.TrimSpace(in.AccountNumber),
			IFSCCode:      strings.ToUpper(strings.TrimSpace(in.IFSCCode)),
			HolderName:    strings.TrimSpace(in.HolderName),
			UPIID:         strings.TrimSpace(in.UPIID),
			Primary:       primary,
		}
		return tx.Create(&account).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"success":     true,
		"message":     "Bank account added successfully",
		"bankAccount": account,
	})
}

func (h *BankAccountHandler) List(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	var accounts []models.BankAccount
	err := h.DB.Where("owner_id = ? AND deleted = ?", u.ID, false).
		Order("\"primary\" desc, created_at desc").
		Find(&accounts).Error
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "bankAccounts": accounts})
}

func (h *BankAccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in bankAccountInput
	if !decode(w, r, &in) {
		return
	}

	var account models.BankAccount
	err := h.DB.Where("id = ? AND owner_id = ? AND deleted = ?", id, u.ID, false).First(&account).Error
	if err != nil {
		httpx.JSONError(w, http.StatusNotFound, "Bank account not found", nil)
		return
	}

	if s := strings.TrimSpace(in.BankName); s != "" {
		account.BankName = s
	}
	if s := strings.TrimSpace(in.AccountNumber); s != "" {
		account.AccountNumber = s
	}
	if s := strings.TrimSpace(in.IFSCCode); s != "" {
		account.IFSCCode = strings.ToUpper(s)
	}
	if s := strings.TrimSpace(in.HolderName); s != "" {
		account.HolderName = s
	}
	if s := strings.TrimSpace(in.UPIID); s != "" {
		account.UPIID = s
	}

	if err := h.DB.Save(&account).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "Bank account updated successfully",
		"bankAccount": account,
	})
}

// Delete soft-deletes an account. If the primary goes away the newest
// surviving account is promoted.
func (h *BankAccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var account models.BankAccount
		if err := tx.Where("id = ? AND owner_id = ? AND deleted = ?", id, u.ID, false).First(&account).Error; err != nil {
			return err
		}
		if err := tx.Model(&account).UpdateColumn("deleted", true).Error; err != nil {
			return err
		}
		if account.Primary {
			var next models.BankAccount
			err := tx.Where("owner_id = ? AND deleted = ?", u.ID, false).
				Order("created_at desc").First(&next).Error
			if err == nil {
				return tx.Model(&next).UpdateColumn("primary", true).Error
			}
			if err != gorm.ErrRecordNotFound {
				return err
			}
		}
		return nil
	})
	if err == gorm.ErrRecordNotFound {
		httpx.JSONError(w, http.StatusNotFound, "Bank account not found", nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Bank account deleted successfully"})
}

// SetPrimary promotes one account and demotes the rest.
func (h *BankAccountHandler) SetPrimary(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var account models.BankAccount
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND owner_id = ? AND deleted = ?", id, u.ID, false).First(&account).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.BankAccount{}).
			Where("owner_id = ? AND \"primary\" = ?", u.ID, true).
			UpdateColumn("primary", false).Error; err != nil {
			return err
		}
		account.Primary = true
		return tx.Model(&account).UpdateColumn("primary", true).Error
	})
	if err == gorm.ErrRecordNotFound {
		httpx.JSONError(w, http.StatusNotFound, "Bank account not found", nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "Primary account updated successfully",
		"bankAccount": account,
	})
}
