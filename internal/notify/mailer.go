package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Mailer sends transactional mail. Support ticket confirmations are the
// only current caller; delivery failures are logged, never surfaced to
// the API client.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// ResendMailer posts through the Resend HTTP API.
type ResendMailer struct {
	APIKey string
	From   string
	Client *http.Client
}

func NewResendMailer(apiKey, from string) *ResendMailer {
	return &ResendMailer{
		APIKey: apiKey,
		From:   from,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

const resendEndpoint = "https://api.resend.com/emails"

func (m *ResendMailer) Send(ctx context.Context, to, subject, html string) error {
	payload, err := json.Marshal(map[string]any{
		"from":    m.From,
		"to":      []string{to},
		"subject": subject,
		"html":    html,
	})
	if err != nil {
		return errors.Wrap(err, "encode mail payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resendEndpoint, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build mail request")
	}
	req.Header.Set("Authorization", "Bearer "+m.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.Client.Do(req)
	if err != nil {
		return errors.Wrap(err, "send mail")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.Errorf("mail provider returned %d", resp.StatusCode)
	}
	return nil
}

// LogMailer stands in when no mail provider is configured.
type LogMailer struct {
	Log *logrus.Logger
}

func (m *LogMailer) Send(_ context.Context, to, subject, _ string) error {
	m.Log.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("mail (log mailer)")
	return nil
}

// TicketConfirmationHTML renders the confirmation body sent to the ticket
// submitter.
func TicketConfirmationHTML(name, ticketNumber string) string {
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Support Request Received</h2>
  <p>Hi %s,</p>
  <p>We have received your support request and our team is reviewing it.</p>
  <p>Your ticket number: <strong>%s</strong></p>
  <p>If you have any urgent concerns, please reply to this email.</p>
</div>`, name, ticketNumber)
}
