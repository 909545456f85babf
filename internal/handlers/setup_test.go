package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/engineerapp/backoffice/internal/auth"
	"github.com/engineerapp/backoffice/internal/db"
	"github.com/engineerapp/backoffice/internal/models"
)

func setupHandlerTestDB(t *testing.T) *gorm.DB {
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

func seedOwner(t *testing.T, conn *gorm.DB) *models.User {
	t.Helper()
	u := models.User{ProviderUID: "uid-h", Email: "handler@test", Active: true}
	if err := conn.Create(&u).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	return &u
}

// authedRequest builds a request with the resolved user already on the
// context, the way the gate hands it to handlers.
func authedRequest(t *testing.T, u *models.User, method, target, body string) *http.Request {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	return r.WithContext(auth.WithUser(r.Context(), u))
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func bodyReader(s string) io.Reader { return strings.NewReader(s) }

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}
