package sequence

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/engineerapp/backoffice/internal/models"
)

func setupSequenceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Sequence{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestNextIsMonotonicPerOwnerAndName(t *testing.T) {
	db := setupSequenceTestDB(t)

	for want := uint64(1); want <= 3; want++ {
		got, err := Next(db, 1, Bill)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got != want {
			t.Fatalf("got %d, want %d", got, want)
		}
	}

	// independent counters per owner and per name
	if got, _ := Next(db, 2, Bill); got != 1 {
		t.Fatalf("owner 2 got %d, want 1", got)
	}
	if got, _ := Next(db, 1, WorkOrder); got != 1 {
		t.Fatalf("workorder got %d, want 1", got)
	}
	if got, _ := Next(db, 1, Bill); got != 4 {
		t.Fatalf("owner 1 bill got %d, want 4", got)
	}
}

func TestNextRollsBackWithTransaction(t *testing.T) {
	db := setupSequenceTestDB(t)

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := Next(tx, 1, Bill); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	if err == nil {
		t.Fatal("transaction should have failed")
	}

	got, err := Next(db, 1, Bill)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got != 1 {
		t.Fatalf("got %d after rollback, want 1", got)
	}
}

func TestFormat(t *testing.T) {
	at := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	if got := Format("BILL", at, 4); got != "BILL-2608-0004" {
		t.Fatalf("got %s", got)
	}
	if got := Format("WO", at, 12345); got != "WO-2608-12345" {
		t.Fatalf("wide counter got %s", got)
	}
}
