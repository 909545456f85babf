package server

import (
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

	"github.com/engineerapp/backoffice/internal/auth"
	"github.com/engineerapp/backoffice/internal/db"
	"github.com/engineerapp/backoffice/internal/models"
	"github.com/engineerapp/backoffice/internal/notify"
)

func setupRouter(t *testing.T) (http.Handler, *gorm.DB, *auth.HMACVerifier) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(db.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)
	verifier := auth.NewHMACVerifier("router-test-secret")
	h := New(Deps{
		DB:       conn,
		Verifier: verifier,
		Issuer:   verifier,
		TokenTTL: time.Hour,
		Mailer:   &notify.LogMailer{Log: log},
		Log:      log,
	})
	return h, conn, verifier
}

func seedRouterUser(t *testing.T, conn *gorm.DB, verifier *auth.HMACVerifier) (*models.User, string) {
	t.Helper()
	u := models.User{ProviderUID: "uid-router", Email: "router@test", Active: true}
	if err := conn.Create(&u).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	token := verifier.Issue(auth.Identity{UID: u.ProviderUID, Email: u.Email}, time.Hour)
	return &u, token
}

func do(t *testing.T, h http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestHealthRoutesArePublic(t *testing.T) {
	h, _, _ := setupRouter(t)

	rec := do(t, h, http.MethodGet, "/api/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("/api/health status = %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("/healthz status = %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h, _, _ := setupRouter(t)

	rec := do(t, h, http.MethodGet, "/api/customers", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["error"] != "NO_TOKEN" {
		t.Fatalf("error = %v", resp["error"])
	}

	rec = do(t, h, http.MethodGet, "/api/customers", "not-a-real-token", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token status = %d", rec.Code)
	}
}

// Walks a customer through creation, billing and payment over the real
// route table with a bearer token.
func TestBillingFlowThroughRouter(t *testing.T) {
	h, conn, verifier := setupRouter(t)
	_, token := seedRouterUser(t, conn, verifier)

	rec := do(t, h, http.MethodPost, "/api/customer", token,
		`{"customerName":"Ravi Kumar","phoneNumber":"9000000011"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("customer status = %d body=%s", rec.Code, rec.Body.String())
	}
	var c models.Customer
	if err := conn.Where("phone = ?", "9000000011").First(&c).Error; err != nil {
		t.Fatalf("customer reload: %v", err)
	}

	rec = do(t, h, http.MethodPost, "/api/inventory/item", token,
		`{"itemType":"generic","itemName":"Copper Wire","unit":"meter","mrp":"120","purchasePrice":"60","salePrice":"100"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("item status = %d body=%s", rec.Code, rec.Body.String())
	}
	var item models.Item
	if err := conn.Where("name = ?", "Copper Wire").First(&item).Error; err != nil {
		t.Fatalf("item reload: %v", err)
	}

	rec = do(t, h, http.MethodPost, fmt.Sprintf("/api/inventory/item/%d/stock", item.ID), token,
		`{"stockQty":10}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("stock status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodPost, "/api/bill", token,
		fmt.Sprintf(`{"customerId":%d,"items":[{"itemType":"generic","itemId":%d,"qty":3}],"receivedPayment":"100"}`, c.ID, item.ID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("bill status = %d body=%s", rec.Code, rec.Body.String())
	}
	var bill models.Bill
	if err := conn.Where("customer_id = ?", c.ID).First(&bill).Error; err != nil {
		t.Fatalf("bill reload: %v", err)
	}
	if bill.Status != models.BillPartial {
		t.Fatalf("bill status = %s", bill.Status)
	}

	rec = do(t, h, http.MethodPut, fmt.Sprintf("/api/bill/%d/payment", bill.ID), token,
		`{"amount":"200","note":"cash"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("payment status = %d body=%s", rec.Code, rec.Body.String())
	}
	conn.First(&bill, bill.ID)
	if bill.Status != models.BillPaid || !bill.DueAmount.IsZero() {
		t.Fatalf("status=%s due=%s after settling", bill.Status, bill.DueAmount)
	}

	conn.First(&item, item.ID)
	if item.StockQty != 7 {
		t.Fatalf("stock = %d, want 7", item.StockQty)
	}
}

func TestSyncRoutesNotImplemented(t *testing.T) {
	h, conn, verifier := setupRouter(t)
	_, token := seedRouterUser(t, conn, verifier)

	for _, target := range []string{"/api/sync/pull", "/api/sync/push"} {
		rec := do(t, h, http.MethodPost, target, token, `{}`)
		if rec.Code != http.StatusNotImplemented {
			t.Fatalf("%s status = %d, want 501", target, rec.Code)
		}
	}
}
