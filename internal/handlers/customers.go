package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/engineerapp/backoffice/internal/customers"
	"github.com/engineerapp/backoffice/internal/httpx"
	"github.com/engineerapp/backoffice/internal/models"
	"github.com/engineerapp/backoffice/internal/validation"
)

type CustomerHandler struct {
	DB    *gorm.DB
	Store *customers.Store
}

func NewCustomerHandler(db *gorm.DB) *CustomerHandler {
	return &CustomerHandler{DB: db, Store: customers.NewStore(db)}
}

type customerInput struct {
	Name     string `json:"customerName"`
	Phone    string `json:"phoneNumber"`
	Whatsapp string `json:"whatsappNumber"`
	Address  string `json:"address"`
}

func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	var in customerInput
	if !decode(w, r, &in) {
		return
	}

	v := validation.Violations{}
	validation.Required("customerName", in.Name, v)
	validation.Required("phoneNumber", in.Phone, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	phone := strings.TrimSpace(in.Phone)
	var existing models.Customer
	err := h.DB.Where("owner_id = ? AND phone = ? AND deleted = ?", u.ID, phone, false).First(&existing).Error
	if err == nil {
		httpx.JSONError(w, http.StatusConflict, "A customer with this phone number already exists.", nil)
		return
	}
	if err != gorm.ErrRecordNotFound {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	c := models.Customer{
		OwnerID:  u.ID,
		Name:     strings.TrimSpace(in.Name),
		Phone:    phone,
		Whatsapp: strings.TrimSpace(in.Whatsapp),
		Address:  strings.TrimSpace(in.Address),
	}
	if err := h.DB.Create(&c).Error; err != nil {
		// unique index backstop for a concurrent create with the same phone
		if strings.Contains(strings.ToLower(err.Error()), "unique") || strings.Contains(strings.ToLower(err.Error()), "duplicate") {
			httpx.JSONError(w, http.StatusConflict, "A customer with this phone number already exists.", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"success":  true,
		"message":  "Customer added successfully",
		"customer": c,
	})
}

// List returns a page of customers sorted by outstanding due, highest
// first, so the most indebted customers surface on top.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 5
	}

	var total int64
	if err := h.DB.Model(&models.Customer{}).
		Where("owner_id = ? AND deleted = ?", u.ID, false).Count(&total).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	var list []models.Customer
	err := h.DB.Where("owner_id = ? AND deleted = ?", u.ID, false).
		Order("created_at desc").
		Limit(limit).Offset((page - 1) * limit).
		Find(&list).Error
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	type withDue struct {
		models.Customer
		TotalDue decimal.Decimal `json:"totalDue"`
	}
	out := make([]withDue, 0, len(list))
	for _, c := range list {
		due, err := h.Store.OutstandingDue(u.ID, c.ID)
		if err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			return
		}
		out = append(out, withDue{Customer: c, TotalDue: due})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalDue.GreaterThan(out[j].TotalDue)
	})

	httpx.JSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"customers":  out,
		"totalCount": total,
		"page":       page,
		"limit":      limit,
	})
}

// Get returns one customer with their billing totals.
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	c, err := h.Store.Find(u.ID, id)
	if err != nil {
		httpx.Fail(w, err)
		return
	}

	var bills []models.Bill
	err = h.DB.Where("owner_id = ? AND customer_id = ? AND deleted = ?", u.ID, id, false).
		Order("created_at desc").Find(&bills).Error
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	totalBilled, totalReceived, totalDue := decimal.Zero, decimal.Zero, decimal.Zero
	for _, b := range bills {
		totalBilled = totalBilled.Add(b.TotalAmount)
		totalReceived = totalReceived.Add(b.ReceivedPayment)
		totalDue = totalDue.Add(b.DueAmount)
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"customer": c,
		"bills":    bills,
		"summary": map[string]any{
			"totalBilled":   totalBilled,
			"totalReceived": totalReceived,
			"totalDue":      totalDue,
			"billCount":     len(bills),
		},
	})
}

func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in customerInput
	if !decode(w, r, &in) {
		return
	}

	c, err := h.Store.Find(u.ID, id)
	if err != nil {
		httpx.Fail(w, err)
		return
	}

	phone := strings.TrimSpace(in.Phone)
	if phone != "" && phone != c.Phone {
		var other models.Customer
		err := h.DB.Where("owner_id = ? AND phone = ? AND deleted = ? AND id <> ?", u.ID, phone, false, c.ID).
			First(&other).Error
		if err == nil {
			httpx.JSONError(w, http.StatusConflict, "A customer with this phone number already exists.", nil)
			return
		}
		if err != gorm.ErrRecordNotFound {
			httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			return
		}
		c.Phone = phone
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		c.Name = name
	}
	c.Whatsapp = strings.TrimSpace(in.Whatsapp)
	c.Address = strings.TrimSpace(in.Address)

	if err := h.DB.Save(c).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Customer updated successfully",
		"customer": c,
	})
}

// Delete soft-deletes a customer. Refused while any bill references them.
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var billCount int64
	err := h.DB.Model(&models.Bill{}).
		Where("owner_id = ? AND customer_id = ? AND deleted = ?", u.ID, id, false).
		Count(&billCount).Error
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	if billCount > 0 {
		httpx.JSONError(w, http.StatusBadRequest,
			fmt.Sprintf("Cannot delete customer with %d bill(s). Delete bills first.", billCount), nil)
		return
	}

	res := h.DB.Model(&models.Customer{}).
		Where("id = ? AND owner_id = ? AND deleted = ?", id, u.ID, false).
		UpdateColumn("deleted", true)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "Customer not found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Customer deleted successfully"})
}

// Search matches name or phone, case-insensitive substring.
func (h *CustomerHandler) Search(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		httpx.JSONError(w, http.StatusBadRequest, "Search query is required", nil)
		return
	}

	like := "%" + strings.ToLower(q) + "%"
	var list []models.Customer
	err := h.DB.Where("owner_id = ? AND deleted = ?", u.ID, false).
		Where("lower(name) LIKE ? OR phone LIKE ?", like, like).
		Order("created_at desc").
		Find(&list).Error
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "customers": list})
}
