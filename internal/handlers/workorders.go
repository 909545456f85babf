package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/engineerapp/backoffice/internal/customers"
	"github.com/engineerapp/backoffice/internal/httpx"
	"github.com/engineerapp/backoffice/internal/models"
	"github.com/engineerapp/backoffice/internal/sequence"
)

type WorkOrderHandler struct {
	DB  *gorm.DB
	Log *logrus.Logger
}

func NewWorkOrderHandler(db *gorm.DB, log *logrus.Logger) *WorkOrderHandler {
	return &WorkOrderHandler{DB: db, Log: log}
}

func (h *WorkOrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	var in struct {
		CustomerID   uint   `json:"customerId"`
		Note         string `json:"note"`
		ScheduleDate string `json:"scheduleDate"`
		ScheduleTime string `json:"scheduleTime"`
	}
	if !decode(w, r, &in) {
		return
	}

	customer, err := customers.NewStore(h.DB).Find(u.ID, in.CustomerID)
	if err != nil {
		httpx.Fail(w, err)
		return
	}

	scheduleDate, err := time.ParseInLocation("2006-01-02", in.ScheduleDate, time.Local)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Schedule date must be YYYY-MM-DD", nil)
		return
	}
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	if scheduleDate.Before(today) {
		httpx.JSONError(w, http.StatusBadRequest, "Schedule date cannot be in the past", nil)
		return
	}

	scheduleTime := strings.TrimSpace(in.ScheduleTime)
	if scheduleTime != "" {
		if _, err := time.Parse("15:04", scheduleTime); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "Schedule time must be HH:MM", nil)
			return
		}
	}

	var wo models.WorkOrder
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		n, err := sequence.Next(tx, u.ID, sequence.WorkOrder)
		if err != nil {
			return err
		}
		wo = models.WorkOrder{
			OwnerID:          u.ID,
			CustomerID:       customer.ID,
			Number:           sequence.Format("WO", now, n),
			Note:             strings.TrimSpace(in.Note),
			ScheduleDate:     scheduleDate,
			HasScheduledTime: scheduleTime != "",
			ScheduleTime:     scheduleTime,
			Status:           models.WorkOrderPending,
		}
		return tx.Create(&wo).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	wo.Customer = customer

	httpx.JSON(w, http.StatusCreated, map[string]any{
		"success":   true,
		"message":   "Work order created successfully",
		"workOrder": wo,
	})
}

func (h *WorkOrderHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	var orders []models.WorkOrder
	err := h.DB.Preload("Customer").
		Where("owner_id = ? AND status = ?", u.ID, models.WorkOrderPending).
		Order("schedule_date asc, schedule_time asc").
		Find(&orders).Error
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "workOrders": orders})
}

func (h *WorkOrderHandler) ListCompleted(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	var orders []models.WorkOrder
	err := h.DB.Preload("Customer").
		Where("owner_id = ? AND status = ?", u.ID, models.WorkOrderCompleted).
		Order("completed_at desc").
		Find(&orders).Error
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "workOrders": orders})
}

func (h *WorkOrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var wo models.WorkOrder
	err := h.DB.Preload("Customer").Where("id = ? AND owner_id = ?", id, u.ID).First(&wo).Error
	if err != nil {
		httpx.JSONError(w, http.StatusNotFound, "Work order not found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "workOrder": wo})
}

// Update edits the note and schedule of a pending work order.
func (h *WorkOrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in struct {
		Note         string `json:"note"`
		ScheduleDate string `json:"scheduleDate"`
		ScheduleTime string `json:"scheduleTime"`
	}
	if !decode(w, r, &in) {
		return
	}

	var wo models.WorkOrder
	if err := h.DB.Where("id = ? AND owner_id = ?", id, u.ID).First(&wo).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "Work order not found", nil)
		return
	}
	if wo.Status == models.WorkOrderCompleted {
		httpx.JSONError(w, http.StatusBadRequest, "Completed work orders cannot be edited", nil)
		return
	}

	if note := strings.TrimSpace(in.Note); note != "" {
		wo.Note = note
	}
	if in.ScheduleDate != "" {
		d, err := time.ParseInLocation("2006-01-02", in.ScheduleDate, time.Local)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "Schedule date must be YYYY-MM-DD", nil)
			return
		}
		now := time.Now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
		if d.Before(today) {
			httpx.JSONError(w, http.StatusBadRequest, "Schedule date cannot be in the past", nil)
			return
		}
		wo.ScheduleDate = d
		// reschedule re-arms the reminder
		wo.NotificationSent = false
	}
	if st := strings.TrimSpace(in.ScheduleTime); st != "" {
		if _, err := time.Parse("15:04", st); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "Schedule time must be HH:MM", nil)
			return
		}
		wo.ScheduleTime = st
		wo.HasScheduledTime = true
		wo.NotificationSent = false
	}

	if err := h.DB.Save(&wo).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Work order updated successfully",
		"workOrder": wo,
	})
}

func (h *WorkOrderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var wo models.WorkOrder
	if err := h.DB.Where("id = ? AND owner_id = ?", id, u.ID).First(&wo).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "Work order not found", nil)
		return
	}
	if wo.Status == models.WorkOrderCompleted {
		httpx.JSONError(w, http.StatusBadRequest, "Work order is already completed", nil)
		return
	}

	now := time.Now()
	err := h.DB.Model(&wo).Updates(map[string]any{
		"status":       models.WorkOrderCompleted,
		"completed_at": now,
	}).Error
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	var updated models.WorkOrder
	if err := h.DB.Preload("Customer").First(&updated, wo.ID).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Work order marked as completed",
		"workOrder": updated,
	})
}

func (h *WorkOrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	res := h.DB.Where("id = ? AND owner_id = ?", id, u.ID).Delete(&models.WorkOrder{})
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "Work order not found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Work order deleted successfully"})
}

func (h *WorkOrderHandler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	customerID, ok := pathID(w, r, "customerId")
	if !ok {
		return
	}
	var orders []models.WorkOrder
	err := h.DB.Preload("Customer").
		Where("owner_id = ? AND customer_id = ?", u.ID, customerID).
		Order("created_at desc").
		Find(&orders).Error
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "workOrders": orders})
}

// LinkBill attaches an existing bill to a work order and completes it.
func (h *WorkOrderHandler) LinkBill(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	var in struct {
		WorkOrderID uint `json:"workOrderId"`
		BillID      uint `json:"billId"`
	}
	if !decode(w, r, &in) {
		return
	}
	if in.WorkOrderID == 0 || in.BillID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "workOrderId and billId are required", nil)
		return
	}

	var wo models.WorkOrder
	if err := h.DB.Where("id = ? AND owner_id = ?", in.WorkOrderID, u.ID).First(&wo).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "Work order not found", nil)
		return
	}
	var bill models.Bill
	if err := h.DB.Where("id = ? AND owner_id = ? AND deleted = ?", in.BillID, u.ID, false).First(&bill).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "Bill not found", nil)
		return
	}

	now := time.Now()
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&wo).Updates(map[string]any{
			"bill_id":      bill.ID,
			"status":       models.WorkOrderCompleted,
			"completed_at": now,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&bill).UpdateColumn("work_order_id", wo.ID).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Work order linked with bill successfully",
	})
}
