package notify

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/engineerapp/backoffice/internal/db"
	"github.com/engineerapp/backoffice/internal/models"
)

type fakeSender struct {
	calls   int
	lastMsg string
	fail    map[string]bool
}

func (f *fakeSender) Send(_ context.Context, tokens []string, _, body string, _ map[string]string) (Receipt, error) {
	f.calls++
	f.lastMsg = body
	var r Receipt
	for _, tok := range tokens {
		if f.fail[tok] {
			r.FailureCount++
			r.FailedTokens = append(r.FailedTokens, tok)
			continue
		}
		r.SuccessCount++
		r.SentTokens = append(r.SentTokens, tok)
	}
	return r, nil
}

func setupNotifyTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(db.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func seedReminderOrder(t *testing.T, conn *gorm.DB, now time.Time) (models.User, models.WorkOrder) {
	t.Helper()
	u := models.User{ProviderUID: "uid-n", Email: "notify@test", Active: true}
	if err := conn.Create(&u).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	c := models.Customer{OwnerID: u.ID, Name: "Meena Traders", Phone: "9000000003"}
	if err := conn.Create(&c).Error; err != nil {
		t.Fatalf("customer: %v", err)
	}
	wo := models.WorkOrder{
		OwnerID: u.ID, CustomerID: c.ID, Number: "WO-2608-0001", Note: "Geyser install",
		ScheduleDate:     time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()),
		HasScheduledTime: true,
		ScheduleTime:     now.Format("15:04"),
		Status:           models.WorkOrderPending,
	}
	if err := conn.Create(&wo).Error; err != nil {
		t.Fatalf("workorder: %v", err)
	}
	return u, wo
}

func TestSendDueRemindersFiresOnce(t *testing.T) {
	conn := setupNotifyTestDB(t)
	now := time.Date(2026, 8, 29, 10, 30, 0, 0, time.Local)
	u, wo := seedReminderOrder(t, conn, now)

	token := models.DeviceToken{UserID: u.ID, Token: "tok-a", Device: "android", RegistrationID: "reg-a", LastSeenAt: now}
	if err := conn.Create(&token).Error; err != nil {
		t.Fatalf("token: %v", err)
	}

	sender := &fakeSender{}
	n := NewNotifier(conn, sender, quietLogger())

	if err := n.SendDueReminders(context.Background(), now); err != nil {
		t.Fatalf("SendDueReminders: %v", err)
	}
	if sender.calls != 1 {
		t.Fatalf("sends = %d, want 1", sender.calls)
	}
	want := "Meena Traders\nGeyser install"
	if sender.lastMsg != want {
		t.Fatalf("body = %q, want %q", sender.lastMsg, want)
	}

	conn.First(&wo, wo.ID)
	if !wo.NotificationSent {
		t.Fatalf("sent flag not latched")
	}

	// the next sweep for the same minute is silent
	if err := n.SendDueReminders(context.Background(), now); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if sender.calls != 1 {
		t.Fatalf("sends = %d after second sweep, want 1", sender.calls)
	}
}

func TestSendDueRemindersSkipsWrongMinute(t *testing.T) {
	conn := setupNotifyTestDB(t)
	now := time.Date(2026, 8, 29, 10, 30, 0, 0, time.Local)
	seedReminderOrder(t, conn, now)

	sender := &fakeSender{}
	n := NewNotifier(conn, sender, quietLogger())

	later := now.Add(5 * time.Minute)
	if err := n.SendDueReminders(context.Background(), later); err != nil {
		t.Fatalf("SendDueReminders: %v", err)
	}
	if sender.calls != 0 {
		t.Fatalf("sends = %d, want 0 outside the scheduled minute", sender.calls)
	}
}

func TestNotifyPrunesFailedTokens(t *testing.T) {
	conn := setupNotifyTestDB(t)
	now := time.Now()

	u := models.User{ProviderUID: "uid-p", Email: "prune@test", Active: true}
	if err := conn.Create(&u).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	for _, tok := range []string{"tok-good", "tok-dead"} {
		dt := models.DeviceToken{UserID: u.ID, Token: tok, Device: "android", RegistrationID: "reg-" + tok, LastSeenAt: now.Add(-time.Hour)}
		if err := conn.Create(&dt).Error; err != nil {
			t.Fatalf("token %s: %v", tok, err)
		}
	}

	sender := &fakeSender{fail: map[string]bool{"tok-dead": true}}
	n := NewNotifier(conn, sender, quietLogger())

	if err := n.Notify(context.Background(), u.ID, "hello", "body", nil); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	var tokens []models.DeviceToken
	conn.Where("user_id = ?", u.ID).Find(&tokens)
	if len(tokens) != 1 || tokens[0].Token != "tok-good" {
		t.Fatalf("tokens after prune = %+v", tokens)
	}
	if !tokens[0].LastSeenAt.After(now.Add(-time.Minute)) {
		t.Fatalf("last seen not bumped: %v", tokens[0].LastSeenAt)
	}
}
