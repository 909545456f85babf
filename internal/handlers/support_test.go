package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/engineerapp/backoffice/internal/models"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
	done chan struct{}
}

func newRecordingMailer(expected int) *recordingMailer {
	m := &recordingMailer{done: make(chan struct{}, expected)}
	return m
}

func (m *recordingMailer) Send(_ context.Context, to, _, _ string) error {
	m.mu.Lock()
	m.sent = append(m.sent, to)
	m.mu.Unlock()
	m.done <- struct{}{}
	return nil
}

func (m *recordingMailer) wait(t *testing.T, n int) []string {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-m.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for mail %d of %d", i+1, n)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

func TestSupportTicketSubmit(t *testing.T) {
	conn := setupHandlerTestDB(t)
	u := seedOwner(t, conn)
	mailer := newRecordingMailer(2)
	h := NewSupportHandler(conn, mailer, quietLogger())

	body := `{"ownerName":"Prakash","email":"prakash@test","phone":"9000000004","alternateEmail":"backup@test","selectedIssues":["Billing","Other"],"customReason":"App crashes on sync"}`
	rec := httptest.NewRecorder()
	h.Submit(rec, authedRequest(t, u, http.MethodPost, "/api/support/ticket", body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	resp := decodeBody(t, rec)
	number, _ := resp["ticketNumber"].(string)
	pattern := fmt.Sprintf(`^TICK-%s-\d{4}$`, time.Now().Format("20060102"))
	if !regexp.MustCompile(pattern).MatchString(number) {
		t.Fatalf("ticketNumber = %q, want match for %s", number, pattern)
	}

	sent := mailer.wait(t, 2)
	if len(sent) != 2 || sent[0] != "prakash@test" || sent[1] != "backup@test" {
		t.Fatalf("confirmations sent to %v", sent)
	}

	var ticket models.SupportTicket
	if err := conn.Where("user_id = ?", u.ID).First(&ticket).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if ticket.Issues != "Billing,Other" || ticket.CustomReason != "App crashes on sync" {
		t.Fatalf("ticket row = %+v", ticket)
	}
}

func TestSupportTicketValidation(t *testing.T) {
	conn := setupHandlerTestDB(t)
	u := seedOwner(t, conn)
	h := NewSupportHandler(conn, newRecordingMailer(0), quietLogger())

	// no issues selected
	rec := httptest.NewRecorder()
	h.Submit(rec, authedRequest(t, u, http.MethodPost, "/api/support/ticket",
		`{"ownerName":"Prakash","email":"prakash@test","phone":"9000000004","selectedIssues":[]}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("no issues status = %d", rec.Code)
	}

	// "Other" requires a custom reason
	rec = httptest.NewRecorder()
	h.Submit(rec, authedRequest(t, u, http.MethodPost, "/api/support/ticket",
		`{"ownerName":"Prakash","email":"prakash@test","phone":"9000000004","selectedIssues":["Other"]}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("other without reason status = %d", rec.Code)
	}

	// contact details required
	rec = httptest.NewRecorder()
	h.Submit(rec, authedRequest(t, u, http.MethodPost, "/api/support/ticket",
		`{"ownerName":"","email":"","phone":"","selectedIssues":["Billing"]}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing contact status = %d", rec.Code)
	}
}

func TestSupportTicketsPerDaySequence(t *testing.T) {
	conn := setupHandlerTestDB(t)
	u := seedOwner(t, conn)
	mailer := newRecordingMailer(2)
	h := NewSupportHandler(conn, mailer, quietLogger())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.Submit(rec, authedRequest(t, u, http.MethodPost, "/api/support/ticket",
			`{"ownerName":"Prakash","email":"prakash@test","phone":"9000000004","selectedIssues":["Billing"]}`))
		if rec.Code != http.StatusCreated {
			t.Fatalf("submit %d status = %d", i, rec.Code)
		}
	}
	mailer.wait(t, 2)

	rec := httptest.NewRecorder()
	h.Tickets(rec, authedRequest(t, u, http.MethodGet, "/api/support/tickets", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}

	var tickets []models.SupportTicket
	conn.Where("user_id = ?", u.ID).Order("id asc").Find(&tickets)
	if len(tickets) != 2 {
		t.Fatalf("tickets = %d", len(tickets))
	}
	day := time.Now().Format("20060102")
	if tickets[0].TicketNumber != "TICK-"+day+"-0001" || tickets[1].TicketNumber != "TICK-"+day+"-0002" {
		t.Fatalf("numbers = %s, %s", tickets[0].TicketNumber, tickets[1].TicketNumber)
	}
}
