package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/engineerapp/backoffice/internal/dashboard"
	"github.com/engineerapp/backoffice/internal/httpx"
)

type DashboardHandler struct {
	Dashboard *dashboard.Service
}

func NewDashboardHandler(svc *dashboard.Service) *DashboardHandler {
	return &DashboardHandler{Dashboard: svc}
}

func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	u, ok := owner(w, r)
	if !ok {
		return
	}

	qs := r.URL.Query()
	month, _ := strconv.Atoi(qs.Get("month"))
	year, _ := strconv.Atoi(qs.Get("year"))
	q := dashboard.Query{
		FilterType: qs.Get("filterType"),
		Period:     qs.Get("period"),
		Month:      month,
		Year:       year,
	}

	report, noData, err := h.Dashboard.Metrics(u.ID, q, time.Now())
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	if noData {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"success": true,
			"noData":  true,
			"message": "This month's record is not in the database",
		})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "data": report})
}
