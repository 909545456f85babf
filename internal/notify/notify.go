// Package notify covers push notifications and the work-order reminder
// loop.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/engineerapp/backoffice/internal/models"
)

// Receipt reports the per-token outcome of one multicast send.
type Receipt struct {
	SuccessCount int
	FailureCount int
	// FailedTokens are pruned from the user's registered devices.
	FailedTokens []string
	SentTokens   []string
}

// PushSender delivers one notification to a set of device tokens.
type PushSender interface {
	Send(ctx context.Context, tokens []string, title, body string, data map[string]string) (Receipt, error)
}

// LogSender is the default sender when no push provider is configured. It
// logs instead of delivering and reports every token as reached.
type LogSender struct {
	Log *logrus.Logger
}

func (s *LogSender) Send(_ context.Context, tokens []string, title, body string, data map[string]string) (Receipt, error) {
	s.Log.WithFields(logrus.Fields{
		"tokens": len(tokens),
		"title":  title,
		"data":   data,
	}).Info("push notification (log sender)")
	return Receipt{SuccessCount: len(tokens), SentTokens: tokens}, nil
}

type Notifier struct {
	db     *gorm.DB
	sender PushSender
	log    *logrus.Logger
}

func NewNotifier(db *gorm.DB, sender PushSender, log *logrus.Logger) *Notifier {
	return &Notifier{db: db, sender: sender, log: log}
}

// Notify sends to every device the user has registered, prunes tokens the
// provider rejected and bumps LastSeenAt on the ones it reached.
func (n *Notifier) Notify(ctx context.Context, userID uint, title, body string, data map[string]string) error {
	var devices []models.DeviceToken
	if err := n.db.Where("user_id = ?", userID).Find(&devices).Error; err != nil {
		return errors.Wrap(err, "load device tokens")
	}
	if len(devices) == 0 {
		n.log.WithField("userId", userID).Debug("no device tokens registered")
		return nil
	}

	tokens := make([]string, len(devices))
	for i, d := range devices {
		tokens[i] = d.Token
	}

	receipt, err := n.sender.Send(ctx, tokens, title, body, data)
	if err != nil {
		return errors.Wrap(err, "send notification")
	}

	if len(receipt.FailedTokens) > 0 {
		if err := n.db.Where("user_id = ? AND token IN ?", userID, receipt.FailedTokens).
			Delete(&models.DeviceToken{}).Error; err != nil {
			n.log.WithError(err).Warn("prune failed device tokens")
		}
	}
	if len(receipt.SentTokens) > 0 {
		if err := n.db.Model(&models.DeviceToken{}).
			Where("user_id = ? AND token IN ?", userID, receipt.SentTokens).
			UpdateColumn("last_seen_at", time.Now()).Error; err != nil {
			n.log.WithError(err).Warn("update device token last seen")
		}
	}
	return nil
}

// SendDueReminders notifies the owner for every pending work order
// scheduled for today at the current minute. Each order is notified once;
// the sent flag latches before delivery so a provider retry cannot
// double-fire.
func (n *Notifier) SendDueReminders(ctx context.Context, now time.Time) error {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	minute := now.Format("15:04")

	var orders []models.WorkOrder
	err := n.db.Preload("Customer").
		Where("status = ? AND notification_sent = ? AND has_scheduled_time = ?",
			models.WorkOrderPending, false, true).
		Where("schedule_date >= ? AND schedule_date < ? AND schedule_time = ?", dayStart, dayEnd, minute).
		Find(&orders).Error
	if err != nil {
		return errors.Wrap(err, "load due work orders")
	}

	for _, wo := range orders {
		res := n.db.Model(&models.WorkOrder{}).
			Where("id = ? AND notification_sent = ?", wo.ID, false).
			UpdateColumn("notification_sent", true)
		if res.Error != nil {
			n.log.WithError(res.Error).WithField("workOrder", wo.Number).Warn("latch reminder flag")
			continue
		}
		if res.RowsAffected == 0 {
			continue
		}

		customerName := "Customer"
		if wo.Customer != nil {
			customerName = wo.Customer.Name
		}
		err := n.Notify(ctx, wo.OwnerID,
			"Work Order Reminder",
			fmt.Sprintf("%s\n%s", customerName, wo.Note),
			map[string]string{
				"workOrderId": fmt.Sprintf("%d", wo.ID),
				"type":        "work_order_reminder",
			})
		if err != nil {
			n.log.WithError(err).WithField("workOrder", wo.Number).Warn("send work order reminder")
		}
	}
	return nil
}

// RunReminderLoop checks for due reminders every interval until the
// context is cancelled.
func (n *Notifier) RunReminderLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	n.log.WithField("interval", interval.String()).Info("work order reminder loop started")
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := n.SendDueReminders(ctx, now); err != nil {
				n.log.WithError(err).Warn("work order reminder sweep")
			}
		}
	}
}
