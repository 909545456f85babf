package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/engineerapp/backoffice/internal/models"
)

func newWorkOrderHandler(t *testing.T) (*WorkOrderHandler, *models.User) {
	t.Helper()
	conn := setupHandlerTestDB(t)
	u := seedOwner(t, conn)
	return NewWorkOrderHandler(conn, quietLogger()), u
}

func seedWorkOrderCustomer(t *testing.T, h *WorkOrderHandler, u *models.User) models.Customer {
	t.Helper()
	c := models.Customer{OwnerID: u.ID, Name: "Sunita Devi", Phone: "9000000002"}
	if err := h.DB.Create(&c).Error; err != nil {
		t.Fatalf("customer: %v", err)
	}
	return c
}

func TestWorkOrderCreateValidation(t *testing.T) {
	h, u := newWorkOrderHandler(t)
	c := seedWorkOrderCustomer(t, h, u)

	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	body := fmt.Sprintf(`{"customerId":%d,"note":"AC service","scheduleDate":"%s"}`, c.ID, yesterday)
	rec := httptest.NewRecorder()
	h.Create(rec, authedRequest(t, u, http.MethodPost, "/api/workorder", body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("past date status = %d body=%s", rec.Code, rec.Body.String())
	}

	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	body = fmt.Sprintf(`{"customerId":%d,"note":"AC service","scheduleDate":"%s","scheduleTime":"99:99"}`, c.ID, tomorrow)
	rec = httptest.NewRecorder()
	h.Create(rec, authedRequest(t, u, http.MethodPost, "/api/workorder", body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad time status = %d", rec.Code)
	}

	body = fmt.Sprintf(`{"customerId":%d,"note":"AC service","scheduleDate":"%s","scheduleTime":"10:30"}`, c.ID, tomorrow)
	rec = httptest.NewRecorder()
	h.Create(rec, authedRequest(t, u, http.MethodPost, "/api/workorder", body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	var wo models.WorkOrder
	if err := h.DB.Where("owner_id = ?", u.ID).First(&wo).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !wo.HasScheduledTime || wo.ScheduleTime != "10:30" {
		t.Fatalf("scheduled time not recorded: %+v", wo)
	}
	if wo.Number == "" {
		t.Fatalf("work order number missing")
	}
}

func TestWorkOrderCompleteTwice(t *testing.T) {
	h, u := newWorkOrderHandler(t)
	c := seedWorkOrderCustomer(t, h, u)

	wo := models.WorkOrder{
		OwnerID: u.ID, CustomerID: c.ID, Number: "WO-2608-0001",
		ScheduleDate: time.Now(), Status: models.WorkOrderPending,
	}
	if err := h.DB.Create(&wo).Error; err != nil {
		t.Fatalf("workorder: %v", err)
	}

	req := authedRequest(t, u, http.MethodPut, fmt.Sprintf("/api/workorder/%d/complete", wo.ID), "")
	req.SetPathValue("id", fmt.Sprint(wo.ID))
	rec := httptest.NewRecorder()
	h.Complete(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	req = authedRequest(t, u, http.MethodPut, fmt.Sprintf("/api/workorder/%d/complete", wo.ID), "")
	req.SetPathValue("id", fmt.Sprint(wo.ID))
	rec = httptest.NewRecorder()
	h.Complete(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("second complete status = %d, want 400", rec.Code)
	}

	h.DB.First(&wo, wo.ID)
	if wo.CompletedAt == nil {
		t.Fatalf("completed_at not set")
	}
}

func TestWorkOrderUpdateRearmsReminder(t *testing.T) {
	h, u := newWorkOrderHandler(t)
	c := seedWorkOrderCustomer(t, h, u)

	wo := models.WorkOrder{
		OwnerID: u.ID, CustomerID: c.ID, Number: "WO-2608-0002",
		ScheduleDate: time.Now(), HasScheduledTime: true, ScheduleTime: "09:00",
		Status: models.WorkOrderPending, NotificationSent: true,
	}
	if err := h.DB.Create(&wo).Error; err != nil {
		t.Fatalf("workorder: %v", err)
	}

	next := time.Now().AddDate(0, 0, 2).Format("2006-01-02")
	req := authedRequest(t, u, http.MethodPut, fmt.Sprintf("/api/workorder/%d", wo.ID),
		fmt.Sprintf(`{"scheduleDate":"%s","scheduleTime":"11:15"}`, next))
	req.SetPathValue("id", fmt.Sprint(wo.ID))
	rec := httptest.NewRecorder()
	h.Update(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	h.DB.First(&wo, wo.ID)
	if wo.NotificationSent {
		t.Fatalf("reschedule did not re-arm reminder")
	}
	if wo.ScheduleTime != "11:15" {
		t.Fatalf("time = %s", wo.ScheduleTime)
	}
}

func TestWorkOrderLinkBill(t *testing.T) {
	h, u := newWorkOrderHandler(t)
	c := seedWorkOrderCustomer(t, h, u)

	wo := models.WorkOrder{
		OwnerID: u.ID, CustomerID: c.ID, Number: "WO-2608-0003",
		ScheduleDate: time.Now(), Status: models.WorkOrderPending,
	}
	if err := h.DB.Create(&wo).Error; err != nil {
		t.Fatalf("workorder: %v", err)
	}
	bill := models.Bill{
		OwnerID: u.ID, CustomerID: c.ID, BillNumber: "BILL-2608-0001",
		Subtotal: dec("100"), TotalAmount: dec("100"), ReceivedPayment: dec("100"), Status: models.BillPaid,
	}
	if err := h.DB.Create(&bill).Error; err != nil {
		t.Fatalf("bill: %v", err)
	}

	body := fmt.Sprintf(`{"workOrderId":%d,"billId":%d}`, wo.ID, bill.ID)
	rec := httptest.NewRecorder()
	h.LinkBill(rec, authedRequest(t, u, http.MethodPost, "/api/workorder/link-bill", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	h.DB.First(&wo, wo.ID)
	h.DB.First(&bill, bill.ID)
	if wo.Status != models.WorkOrderCompleted || wo.BillID == nil || *wo.BillID != bill.ID {
		t.Fatalf("work order not linked: %+v", wo)
	}
	if bill.WorkOrderID == nil || *bill.WorkOrderID != wo.ID {
		t.Fatalf("bill not linked back: %+v", bill)
	}
}
