// Package dashboard aggregates billing, inventory and work-order data
// into the metrics report served on the dashboard endpoint.
package dashboard

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/engineerapp/backoffice/internal/errs"
	"github.com/engineerapp/backoffice/internal/models"
)

type Service struct {
	db  *gorm.DB
	log *logrus.Logger
}

func NewService(db *gorm.DB, log *logrus.Logger) *Service {
	return &Service{db: db, log: log}
}

const (
	FilterPeriod    = "period"
	FilterMonthYear = "monthYear"
)

type Query struct {
	FilterType string
	Period     string
	Month      int
	Year       int
}

type FilterInfo struct {
	FilterType string    `json:"filterType"`
	Period     string    `json:"period,omitempty"`
	Month      int       `json:"month,omitempty"`
	Year       int       `json:"year,omitempty"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
}

type CurrentMetrics struct {
	TotalStock        int64 `json:"totalStock"`
	PendingWorkOrders int64 `json:"pendingWorkOrders"`
}

type MonthMetrics struct {
	BilledAmount      decimal.Decimal `json:"billedAmount"`
	AmountCollected   decimal.Decimal `json:"amountCollected"`
	OutstandingAmount decimal.Decimal `json:"outstandingAmount"`
	TotalExpenses     decimal.Decimal `json:"totalExpenses"`
	NetProfit         decimal.Decimal `json:"netProfit"`
	ServicesAmount    decimal.Decimal `json:"servicesAmount"`
	GrossProfit       decimal.Decimal `json:"grossProfit"`
}

type MonthOption struct {
	Month int    `json:"month"`
	Year  int    `json:"year"`
	Label string `json:"label"`
}

type Report struct {
	FilterInfo      FilterInfo         `json:"filterInfo"`
	CurrentMetrics  CurrentMetrics     `json:"currentMetrics"`
	MonthMetrics    MonthMetrics       `json:"monthMetrics"`
	AvailableMonths []MonthOption      `json:"availableMonths"`
	AvailableYears  []int              `json:"availableYears"`
	PendingWorks    []models.WorkOrder `json:"pendingWorks"`
}

// ResolveRange turns the filter parameters into a concrete [start, end]
// window. Period filters end now; monthYear filters cover one calendar
// month in local time.
func ResolveRange(q Query, now time.Time) (time.Time, time.Time, error) {
	switch q.FilterType {
	case FilterMonthYear:
		if q.Month < 1 || q.Month > 12 || q.Year == 0 {
			return time.Time{}, time.Time{}, errs.InvalidInput("Month and year are required for monthYear filter type")
		}
		start := time.Date(q.Year, time.Month(q.Month), 1, 0, 0, 0, 0, now.Location())
		end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
		return start, end, nil
	case FilterPeriod, "":
		end := now
		var start time.Time
		switch q.Period {
		case "1week":
			start = now.AddDate(0, 0, -7)
		case "3months":
			start = now.AddDate(0, -3, 0)
		case "6months":
			start = now.AddDate(0, -6, 0)
		case "1year":
			start = now.AddDate(-1, 0, 0)
		default: // 1month
			start = now.AddDate(0, 0, -30)
		}
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, now.Location())
		end = time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), now.Location())
		return start, end, nil
	default:
		return time.Time{}, time.Time{}, errs.InvalidInput("Unknown filter type: " + q.FilterType)
	}
}

// Metrics builds the full dashboard report. The second return is true
// when a monthYear filter matched no bills; the caller answers with a
// no-data response instead of zeroed metrics.
func (s *Service) Metrics(ownerID uint, q Query, now time.Time) (*Report, bool, error) {
	if q.FilterType == "" {
		q.FilterType = FilterPeriod
	}
	if q.FilterType == FilterPeriod && q.Period == "" {
		q.Period = "1month"
	}
	start, end, err := ResolveRange(q, now)
	if err != nil {
		return nil, false, err
	}

	stock, err := s.CurrentStock(ownerID)
	if err != nil {
		return nil, false, err
	}
	pendingCount, pendingWorks, err := s.pendingWorkOrders(ownerID)
	if err != nil {
		return nil, false, err
	}

	var bills []models.Bill
	err = s.db.Preload("Lines").
		Where("owner_id = ? AND deleted = ? AND created_at BETWEEN ? AND ?", ownerID, false, start, end).
		Find(&bills).Error
	if err != nil {
		return nil, false, errors.Wrap(err, "load bills in range")
	}
	if q.FilterType == FilterMonthYear && len(bills) == 0 {
		return nil, true, nil
	}

	mm := s.monthMetrics(bills)

	months, years, err := s.availableMonths(ownerID, now)
	if err != nil {
		return nil, false, err
	}

	info := FilterInfo{FilterType: q.FilterType, StartDate: start, EndDate: end}
	if q.FilterType == FilterPeriod {
		info.Period = q.Period
	} else {
		info.Month, info.Year = q.Month, q.Year
	}

	return &Report{
		FilterInfo:      info,
		CurrentMetrics:  CurrentMetrics{TotalStock: stock, PendingWorkOrders: pendingCount},
		MonthMetrics:    mm,
		AvailableMonths: months,
		AvailableYears:  years,
		PendingWorks:    pendingWorks,
	}, false, nil
}

// monthMetrics folds the windowed bills into the money figures. Services
// on a fully settled bill count positive; on a bill with pending due the
// same amount counts negative until the due clears, which makes the
// metric self-correcting across reporting runs.
func (s *Service) monthMetrics(bills []models.Bill) MonthMetrics {
	var mm MonthMetrics
	for _, b := range bills {
		mm.BilledAmount = mm.BilledAmount.Add(b.TotalAmount)
		mm.AmountCollected = mm.AmountCollected.Add(b.ReceivedPayment)
		mm.OutstandingAmount = mm.OutstandingAmount.Add(b.DueAmount)

		billExpense := decimal.Zero
		billServices := decimal.Zero
		for _, line := range b.Lines {
			if line.Type == models.LineService {
				billServices = billServices.Add(line.Amount)
				continue
			}
			pp := line.PurchasePrice
			if pp.IsZero() {
				// cost snapshot missing on old lines; fall back to the catalog
				var item models.Item
				if err := s.db.Select("purchase_price").First(&item, line.ItemRef).Error; err == nil {
					pp = item.PurchasePrice
				}
			}
			billExpense = billExpense.Add(pp.Mul(decimal.NewFromInt(int64(line.Qty))))
		}

		mm.TotalExpenses = mm.TotalExpenses.Add(billExpense)
		if b.DueAmount.IsZero() {
			mm.ServicesAmount = mm.ServicesAmount.Add(billServices)
		} else {
			mm.ServicesAmount = mm.ServicesAmount.Sub(billServices)
		}
	}
	mm.NetProfit = mm.AmountCollected.Sub(mm.TotalExpenses)
	mm.GrossProfit = mm.NetProfit.Add(mm.ServicesAmount)
	return mm
}

// CurrentStock counts sellable units: generic stock quantities plus
// available serials.
func (s *Service) CurrentStock(ownerID uint) (int64, error) {
	var generic int64
	err := s.db.Model(&models.Item{}).
		Where("owner_id = ? AND type = ? AND deleted = ?", ownerID, models.ItemGeneric, false).
		Select("COALESCE(SUM(stock_qty), 0)").
		Scan(&generic).Error
	if err != nil {
		return 0, errors.Wrap(err, "sum generic stock")
	}

	var serialized int64
	err = s.db.Model(&models.SerialNumber{}).
		Joins("JOIN items ON items.id = serial_numbers.item_id").
		Where("items.owner_id = ? AND items.deleted = ? AND serial_numbers.status = ?",
			ownerID, false, models.SerialAvailable).
		Count(&serialized).Error
	if err != nil {
		return 0, errors.Wrap(err, "count available serials")
	}
	return generic + serialized, nil
}

func (s *Service) pendingWorkOrders(ownerID uint) (int64, []models.WorkOrder, error) {
	var orders []models.WorkOrder
	err := s.db.Preload("Customer").
		Where("owner_id = ? AND status = ?", ownerID, models.WorkOrderPending).
		Order("schedule_date asc, schedule_time asc").
		Find(&orders).Error
	if err != nil {
		return 0, nil, errors.Wrap(err, "load pending work orders")
	}
	return int64(len(orders)), orders, nil
}

// availableMonths lists every calendar month from the owner's earliest
// bill through now.
func (s *Service) availableMonths(ownerID uint, now time.Time) ([]MonthOption, []int, error) {
	var earliest models.Bill
	err := s.db.Where("owner_id = ?", ownerID).Order("created_at asc").First(&earliest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []MonthOption{}, []int{}, nil
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "find earliest bill")
	}

	years := []int{}
	for y := earliest.CreatedAt.Year(); y <= now.Year(); y++ {
		years = append(years, y)
	}

	months := []MonthOption{}
	cursor := time.Date(earliest.CreatedAt.Year(), earliest.CreatedAt.Month(), 1, 0, 0, 0, 0, now.Location())
	for !cursor.After(now) {
		months = append(months, MonthOption{
			Month: int(cursor.Month()),
			Year:  cursor.Year(),
			Label: cursor.Month().String() + " " + cursor.Format("2006"),
		})
		cursor = cursor.AddDate(0, 1, 0)
	}
	return months, years, nil
}
