package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/engineerapp/backoffice/internal/models"
)

func setupAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.DeviceToken{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestHMACIssueAndVerify(t *testing.T) {
	v := NewHMACVerifier("secret")
	token := v.Issue(Identity{UID: "u1", Email: "a@b.c"}, time.Hour)

	id, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UID != "u1" || id.Email != "a@b.c" {
		t.Fatalf("identity = %+v", id)
	}
}

func TestHMACRejectsExpiredAndTampered(t *testing.T) {
	v := NewHMACVerifier("secret")

	expired := v.Issue(Identity{UID: "u1", Email: "a@b.c"}, -time.Minute)
	if _, err := v.Verify(context.Background(), expired); err != ErrTokenExpired {
		t.Fatalf("expired err = %v, want ErrTokenExpired", err)
	}

	token := v.Issue(Identity{UID: "u1", Email: "a@b.c"}, time.Hour)
	if _, err := v.Verify(context.Background(), token+"x"); err == nil {
		t.Fatal("tampered token accepted")
	}

	other := NewHMACVerifier("different")
	if _, err := other.Verify(context.Background(), token); err == nil {
		t.Fatal("cross-secret token accepted")
	}
}

func gateResponse(t *testing.T, gate *Gate, authorization string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		if !ok {
			t.Fatal("user missing from context")
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(u.Email))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/bills", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	gate.Require(next).ServeHTTP(rec, req)

	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestGateDenialCodes(t *testing.T) {
	db := setupAuthTestDB(t)
	v := NewHMACVerifier("secret")
	gate := NewGate(db, v, quietLogger())

	active := models.User{ProviderUID: "uid-ok", Email: "ok@test", Active: true}
	if err := db.Create(&active).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	inactive := models.User{ProviderUID: "uid-off", Email: "off@test", Active: false}
	if err := db.Create(&inactive).Error; err != nil {
		t.Fatalf("user: %v", err)
	}

	cases := []struct {
		name       string
		auth       string
		wantStatus int
		wantCode   string
	}{
		{"no header", "", http.StatusUnauthorized, "NO_TOKEN"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "NO_TOKEN"},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, "NO_TOKEN"},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized, "AUTH_ERROR"},
		{"expired", "Bearer " + v.Issue(Identity{UID: "uid-ok"}, -time.Minute), http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{"unknown user", "Bearer " + v.Issue(Identity{UID: "uid-ghost"}, time.Hour), http.StatusUnauthorized, "USER_NOT_FOUND"},
		{"deactivated", "Bearer " + v.Issue(Identity{UID: "uid-off"}, time.Hour), http.StatusForbidden, "ACCOUNT_DEACTIVATED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := gateResponse(t, gate, tc.auth)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if body["error"] != tc.wantCode {
				t.Fatalf("code = %v, want %s", body["error"], tc.wantCode)
			}
		})
	}
}

func TestGatePassesActiveUser(t *testing.T) {
	db := setupAuthTestDB(t)
	v := NewHMACVerifier("secret")
	gate := NewGate(db, v, quietLogger())

	user := models.User{ProviderUID: "uid-ok", Email: "ok@test", Active: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("user: %v", err)
	}

	rec, _ := gateResponse(t, gate, "Bearer "+v.Issue(Identity{UID: "uid-ok"}, time.Hour))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok@test") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
