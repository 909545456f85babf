package handlers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/engineerapp/backoffice/internal/catalog"
	"github.com/engineerapp/backoffice/internal/httpx"
	"github.com/engineerapp/backoffice/internal/models"
	"github.com/engineerapp/backoffice/internal/validation"
)

type InventoryHandler struct {
	DB      *gorm.DB
	Catalog *catalog.Store
}

func NewInventoryHandler(db *gorm.DB) *InventoryHandler {
	return &InventoryHandler{DB: db, Catalog: catalog.NewStore(db)}
}

// CheckSerial reports whether a serial number is already registered on
// any item, for duplicate detection in the client before stock entry.
func (h *InventoryHandler) CheckSerial(w http.ResponseWriter, r *http.Request) {
	if _, ok := owner(w, r); !ok {
		return
	}
	serial := strings.TrimSpace(r.PathValue("serialNumber"))
	if serial == "" {
		httpx.JSONError(w, http.StatusBadRequest, "Serial number is required", nil)
		return
	}

	item, exists, err := h.Catalog.SerialOwner(serial)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	if exists {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"exists":   true,
			"message":  "Serial number already exists in stock",
			"itemName": item.Name,
			"itemId":   item.ID,
		})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"exists":  false,
		"message": "Serial number is available",
	})
}

type itemInput struct {
	Type          models.ItemType `json:"itemType"`
	Name          string          `json:"itemName"`
	Unit          string          `json:"unit"`
	Warranty      string          `json:"warranty"`
	MRP           decimal.Decimal `json:"mrp"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	SalePrice     decimal.Decimal `json:"salePrice"`
}

func (h *InventoryHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	var in itemInput
	if !decode(w, r, &in) {
		return
	}

	v := validation.Violations{}
	validation.Required("itemName", in.Name, v)
	if in.Type != models.ItemGeneric && in.Type != models.ItemSerialized {
		v["itemType"] = "must_be_generic_or_serialized"
	}
	validation.NonNegativeAmount("mrp", in.MRP, v)
	validation.NonNegativeAmount("purchasePrice", in.PurchasePrice, v)
	validation.NonNegativeAmount("salePrice", in.SalePrice, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	warranty := in.Warranty
	if warranty == "" {
		warranty = "no_warranty"
	}
	item := models.Item{
		OwnerID:       u.ID,
		Type:          in.Type,
		Name:          strings.TrimSpace(in.Name),
		Unit:          in.Unit,
		Warranty:      warranty,
		MRP:           in.MRP,
		PurchasePrice: in.PurchasePrice,
		SalePrice:     in.SalePrice,
	}
	if err := h.DB.Create(&item).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Item added successfully",
		"item":    item,
	})
}

func (h *InventoryHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	var items []models.Item
	err := h.DB.Preload("SerialNumbers").Preload("StockHistory").
		Where("owner_id = ? AND deleted = ?", u.ID, false).
		Order("created_at desc").
		Find(&items).Error
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "items": items})
}

func (h *InventoryHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	item, err := h.Catalog.ItemWithChildren(u.ID, id)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "item": item})
}

// UpdateItem edits catalog attributes. Item type and stock are immutable
// here; stock moves through the stock endpoint and billing only.
func (h *InventoryHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in itemInput
	if !decode(w, r, &in) {
		return
	}

	item, err := h.Catalog.FindItem(u.ID, id)
	if err != nil {
		httpx.Fail(w, err)
		return
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		item.Name = name
	}
	if in.Unit != "" {
		item.Unit = in.Unit
	}
	if in.Warranty != "" {
		item.Warranty = in.Warranty
	}
	if !in.MRP.IsNegative() && !in.MRP.IsZero() {
		item.MRP = in.MRP
	}
	if in.PurchasePrice.IsPositive() {
		item.PurchasePrice = in.PurchasePrice
	}
	if in.SalePrice.IsPositive() {
		item.SalePrice = in.SalePrice
	}

	if err := h.DB.Save(item).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Item updated successfully",
		"item":    item,
	})
}

func (h *InventoryHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	res := h.DB.Model(&models.Item{}).
		Where("id = ? AND owner_id = ? AND deleted = ?", id, u.ID, false).
		UpdateColumn("deleted", true)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "Item not found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Item deleted successfully"})
}

// UpdateStock adds stock: a quantity for generic items, a serial batch
// for serialized items.
func (h *InventoryHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in struct {
		StockQty      int      `json:"stockQty"`
		SerialNumbers []string `json:"serialNumbers"`
	}
	if !decode(w, r, &in) {
		return
	}

	item, err := h.Catalog.FindItem(u.ID, id)
	if err != nil {
		httpx.Fail(w, err)
		return
	}

	if item.Type == models.ItemGeneric {
		updated, err := h.Catalog.AddStock(u.ID, id, in.StockQty)
		if err != nil {
			httpx.Fail(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Stock updated successfully",
			"item":    updated,
		})
		return
	}

	updated, err := h.Catalog.AddSerials(u.ID, id, in.SerialNumbers)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Stock updated successfully",
		"item":    updated,
	})
}

type serviceInput struct {
	Name  string          `json:"serviceName"`
	Price decimal.Decimal `json:"servicePrice"`
}

func (h *InventoryHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	var in serviceInput
	if !decode(w, r, &in) {
		return
	}

	v := validation.Violations{}
	validation.Required("serviceName", in.Name, v)
	validation.PositiveAmount("servicePrice", in.Price, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	svc := models.Service{OwnerID: u.ID, Name: strings.TrimSpace(in.Name), Price: in.Price}
	if err := h.DB.Create(&svc).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Service added successfully",
		"service": svc,
	})
}

func (h *InventoryHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	var services []models.Service
	err := h.DB.Where("owner_id = ? AND deleted = ?", u.ID, false).
		Order("created_at desc").
		Find(&services).Error
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "services": services})
}

func (h *InventoryHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in serviceInput
	if !decode(w, r, &in) {
		return
	}

	svc, err := h.Catalog.FindService(u.ID, id)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		svc.Name = name
	}
	if in.Price.IsPositive() {
		svc.Price = in.Price
	}
	if err := h.DB.Save(svc).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Service updated successfully",
		"service": svc,
	})
}

func (h *InventoryHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	res := h.DB.Model(&models.Service{}).
		Where("id = ? AND owner_id = ? AND deleted = ?", id, u.ID, false).
		UpdateColumn("deleted", true)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "Service not found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Service deleted successfully"})
}
