package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/engineerapp/backoffice/internal/billing"
	"github.com/engineerapp/backoffice/internal/httpx"
)

type BillHandler struct {
	DB      *gorm.DB
	Billing *billing.Service
}

func NewBillHandler(db *gorm.DB, svc *billing.Service) *BillHandler {
	return &BillHandler{DB: db, Billing: svc}
}

func (h *BillHandler) Create(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	var in billing.CreateBillInput
	if !decode(w, r, &in) {
		return
	}
	in.OwnerID = u.ID

	bill, err := h.Billing.CreateBill(in)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Bill created successfully",
		"bill":    bill,
	})
}

func (h *BillHandler) List(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	bills, err := h.Billing.ListBills(u.ID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "bills": bills})
}

func (h *BillHandler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	customerID, ok := pathID(w, r, "customerId")
	if !ok {
		return
	}
	bills, err := h.Billing.ListBillsByCustomer(u.ID, customerID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "bills": bills})
}

func (h *BillHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	bill, err := h.Billing.GetBill(u.ID, id)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "bill": bill})
}

func (h *BillHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in struct {
		Amount decimal.Decimal `json:"amount"`
		Note   string          `json:"note"`
	}
	if !decode(w, r, &in) {
		return
	}

	bill, err := h.Billing.RecordPayment(u.ID, id, in.Amount, in.Note)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Payment updated successfully",
		"bill":    bill,
	})
}

// PayCustomerDue applies one payment across the customer's unpaid bills,
// oldest first.
func (h *BillHandler) PayCustomerDue(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	customerID, ok := pathID(w, r, "customerId")
	if !ok {
		return
	}
	var in struct {
		Amount decimal.Decimal `json:"amount"`
		Note   string          `json:"note"`
	}
	if !decode(w, r, &in) {
		return
	}

	bills, applied, err := h.Billing.PayCustomerDue(u.ID, customerID, in.Amount, in.Note)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       "Payment applied successfully",
		"amountApplied": applied,
		"updatedBills":  bills,
	})
}
