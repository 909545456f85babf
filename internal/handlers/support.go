package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/engineerapp/backoffice/internal/httpx"
	"github.com/engineerapp/backoffice/internal/models"
	"github.com/engineerapp/backoffice/internal/notify"
	"github.com/engineerapp/backoffice/internal/sequence"
)

type SupportHandler struct {
	DB     *gorm.DB
	Mailer notify.Mailer
	Log    *logrus.Logger
}

func NewSupportHandler(db *gorm.DB, mailer notify.Mailer, log *logrus.Logger) *SupportHandler {
	return &SupportHandler{DB: db, Mailer: mailer, Log: log}
}

// Submit files a support ticket and mails a confirmation to the given
// address (and the alternate one, if any). Mail delivery is best-effort
// and never fails the request.
func (h *SupportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	var in struct {
		OwnerName      string   `json:"ownerName"`
		Email          string   `json:"email"`
		Phone          string   `json:"phone"`
		AlternateEmail string   `json:"alternateEmail"`
		AlternatePhone string   `json:"alternatePhone"`
		SelectedIssues []string `json:"selectedIssues"`
		CustomReason   string   `json:"customReason"`
	}
	if !decode(w, r, &in) {
		return
	}

	if in.OwnerName == "" || in.Email == "" || in.Phone == "" {
		httpx.JSONError(w, http.StatusBadRequest, "Owner name, email, and phone are required", nil)
		return
	}
	if len(in.SelectedIssues) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "Please select at least one issue", nil)
		return
	}
	for _, issue := range in.SelectedIssues {
		if issue == "Other" && strings.TrimSpace(in.CustomReason) == "" {
			httpx.JSONError(w, http.StatusBadRequest, `Please provide details for "Other" issue`, nil)
			return
		}
	}

	now := time.Now()
	var ticket models.SupportTicket
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		// tickets number globally per day, not per owner
		n, err := sequence.Next(tx, 0, "ticket:"+now.Format("20060102"))
		if err != nil {
			return err
		}
		ticket = models.SupportTicket{
			UserID:       u.ID,
			TicketNumber: fmt.Sprintf("TICK-%s-%04d", now.Format("20060102"), n),
			OwnerName:    strings.TrimSpace(in.OwnerName),
			Email:        strings.TrimSpace(in.Email),
			Phone:        strings.TrimSpace(in.Phone),
			AltEmail:     strings.TrimSpace(in.AlternateEmail),
			AltPhone:     strings.TrimSpace(in.AlternatePhone),
			Issues:       strings.Join(in.SelectedIssues, ","),
			CustomReason: strings.TrimSpace(in.CustomReason),
		}
		return tx.Create(&ticket).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	go h.sendConfirmations(ticket)

	httpx.JSON(w, http.StatusCreated, map[string]any{
		"success":      true,
		"message":      "Support ticket submitted successfully",
		"ticketNumber": ticket.TicketNumber,
	})
}

func (h *SupportHandler) sendConfirmations(t models.SupportTicket) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	subject := "Support Request Received - " + t.TicketNumber
	body := notify.TicketConfirmationHTML(t.OwnerName, t.TicketNumber)
	if err := h.Mailer.Send(ctx, t.Email, subject, body); err != nil {
		h.Log.WithError(err).WithField("ticket", t.TicketNumber).Warn("send ticket confirmation")
	}
	if t.AltEmail != "" {
		if err := h.Mailer.Send(ctx, t.AltEmail, subject, body); err != nil {
			h.Log.WithError(err).WithField("ticket", t.TicketNumber).Warn("send ticket confirmation (alternate)")
		}
	}
}

// Tickets lists the caller's submitted tickets, newest first.
func (h *SupportHandler) Tickets(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}
	var tickets []models.SupportTicket
	err := h.DB.Where("user_id = ?", u.ID).Order("created_at desc").Find(&tickets).Error
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "tickets": tickets})
}
