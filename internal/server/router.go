// Package server assembles the HTTP surface: routes, middleware and the
// auth gate.
package server

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/engineerapp/backoffice/internal/auth"
	"github.com/engineerapp/backoffice/internal/billing"
	"github.com/engineerapp/backoffice/internal/dashboard"
	"github.com/engineerapp/backoffice/internal/handlers"
	"github.com/engineerapp/backoffice/internal/httpx"
	"github.com/engineerapp/backoffice/internal/notify"
)

type Deps struct {
	DB       *gorm.DB
	Verifier auth.TokenVerifier
	// Issuer enables the email/password login route when the dev HMAC
	// verifier is in use.
	Issuer   *auth.HMACVerifier
	TokenTTL time.Duration
	Mailer   notify.Mailer
	Log      *logrus.Logger
}

// New builds the full route table. Everything under /api except the auth
// entry points and health checks sits behind the gate.
func New(d Deps) http.Handler {
	gate := auth.NewGate(d.DB, d.Verifier, d.Log)

	billingSvc := billing.NewService(d.DB, d.Log)
	dashboardSvc := dashboard.NewService(d.DB, d.Log)

	authH := handlers.NewAuthHandler(d.DB, d.Verifier, d.Issuer, d.TokenTTL, d.Log)
	customerH := handlers.NewCustomerHandler(d.DB)
	inventoryH := handlers.NewInventoryHandler(d.DB)
	billH := handlers.NewBillHandler(d.DB, billingSvc)
	workOrderH := handlers.NewWorkOrderHandler(d.DB, d.Log)
	bankH := handlers.NewBankAccountHandler(d.DB)
	notificationH := handlers.NewNotificationHandler(d.DB)
	dashboardH := handlers.NewDashboardHandler(dashboardSvc)
	supportH := handlers.NewSupportHandler(d.DB, d.Mailer, d.Log)
	syncH := handlers.NewSyncHandler()

	mux := http.NewServeMux()

	// auth
	mux.HandleFunc("POST /api/auth/google", authH.Exchange)
	mux.Handle("GET /api/auth/me", gate.RequireFunc(authH.Me))
	mux.Handle("POST /api/auth/logout", gate.RequireFunc(authH.Logout))
	mux.Handle("POST /api/auth/set-password", gate.RequireFunc(authH.SetPassword))
	mux.HandleFunc("POST /api/auth/login", authH.Login)

	// inventory
	mux.Handle("GET /api/inventory/check-serial/{serialNumber}", gate.RequireFunc(inventoryH.CheckSerial))
	mux.Handle("POST /api/inventory/item", gate.RequireFunc(inventoryH.CreateItem))
	mux.Handle("GET /api/inventory/items", gate.RequireFunc(inventoryH.ListItems))
	mux.Handle("GET /api/inventory/item/{id}", gate.RequireFunc(inventoryH.GetItem))
	mux.Handle("PUT /api/inventory/item/{id}", gate.RequireFunc(inventoryH.UpdateItem))
	mux.Handle("DELETE /api/inventory/item/{id}", gate.RequireFunc(inventoryH.DeleteItem))
	mux.Handle("POST /api/inventory/item/{id}/stock", gate.RequireFunc(inventoryH.UpdateStock))
	mux.Handle("POST /api/inventory/service", gate.RequireFunc(inventoryH.CreateService))
	mux.Handle("GET /api/inventory/services", gate.RequireFunc(inventoryH.ListServices))
	mux.Handle("PUT /api/inventory/service/{id}", gate.RequireFunc(inventoryH.UpdateService))
	mux.Handle("DELETE /api/inventory/service/{id}", gate.RequireFunc(inventoryH.DeleteService))

	// customers
	mux.Handle("POST /api/customer", gate.RequireFunc(customerH.Create))
	mux.Handle("GET /api/customers", gate.RequireFunc(customerH.List))
	mux.Handle("GET /api/customer/search", gate.RequireFunc(customerH.Search))
	mux.Handle("GET /api/customer/{id}", gate.RequireFunc(customerH.Get))
	mux.Handle("PUT /api/customer/{id}", gate.RequireFunc(customerH.Update))
	mux.Handle("DELETE /api/customer/{id}", gate.RequireFunc(customerH.Delete))

	// billing
	mux.Handle("POST /api/bill", gate.RequireFunc(billH.Create))
	mux.Handle("GET /api/bills", gate.RequireFunc(billH.List))
	mux.Handle("GET /api/bills/customer/{customerId}", gate.RequireFunc(billH.ListByCustomer))
	mux.Handle("GET /api/bill/{id}", gate.RequireFunc(billH.Get))
	mux.Handle("PUT /api/bill/{id}/payment", gate.RequireFunc(billH.RecordPayment))
	mux.Handle("PUT /api/bill/customer/{customerId}/pay-due", gate.RequireFunc(billH.PayCustomerDue))

	// bank accounts
	mux.Handle("POST /api/bank-account", gate.RequireFunc(bankH.Create))
	mux.Handle("GET /api/bank-accounts", gate.RequireFunc(bankH.List))
	mux.Handle("PUT /api/bank-account/{id}", gate.RequireFunc(bankH.Update))
	mux.Handle("DELETE /api/bank-account/{id}", gate.RequireFunc(bankH.Delete))
	mux.Handle("PUT /api/bank-account/{id}/primary", gate.RequireFunc(bankH.SetPrimary))

	// work orders
	mux.Handle("POST /api/workorder", gate.RequireFunc(workOrderH.Create))
	mux.Handle("GET /api/workorders/pending", gate.RequireFunc(workOrderH.ListPending))
	mux.Handle("GET /api/workorders/completed", gate.RequireFunc(workOrderH.ListCompleted))
	mux.Handle("GET /api/workorders/customer/{customerId}", gate.RequireFunc(workOrderH.ListByCustomer))
	mux.Handle("PUT /api/workorder/link-bill", gate.RequireFunc(workOrderH.LinkBill))
	mux.Handle("GET /api/workorder/{id}", gate.RequireFunc(workOrderH.Get))
	mux.Handle("PUT /api/workorder/{id}", gate.RequireFunc(workOrderH.Update))
	mux.Handle("PUT /api/workorder/{id}/complete", gate.RequireFunc(workOrderH.Complete))
	mux.Handle("DELETE /api/workorder/{id}", gate.RequireFunc(workOrderH.Delete))

	// notifications
	mux.Handle("POST /api/notification/register-token", gate.RequireFunc(notificationH.RegisterToken))
	mux.Handle("POST /api/notification/remove-token", gate.RequireFunc(notificationH.RemoveToken))

	// dashboard
	mux.Handle("GET /api/dashboard/metrics", gate.RequireFunc(dashboardH.Metrics))

	// support
	mux.Handle("POST /api/support/ticket", gate.RequireFunc(supportH.Submit))
	mux.Handle("GET /api/support/tickets", gate.RequireFunc(supportH.Tickets))

	// sync scaffolding
	mux.Handle("POST /api/sync/pull", gate.RequireFunc(syncH.Pull))
	mux.Handle("POST /api/sync/push", gate.RequireFunc(syncH.Push))

	// health
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Server is running"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := d.DB.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	return withRecover(withLogging(mux, d.Log), d.Log)
}
