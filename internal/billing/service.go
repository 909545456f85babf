// Package billing implements bill creation and the payment flows. All
// mutations run inside a single database transaction so a failure on any
// cart line leaves stock, serials and counters untouched.
package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/engineerapp/backoffice/internal/catalog"
	"github.com/engineerapp/backoffice/internal/customers"
	"github.com/engineerapp/backoffice/internal/errs"
	"github.com/engineerapp/backoffice/internal/models"
	"github.com/engineerapp/backoffice/internal/sequence"
)

type Service struct {
	db  *gorm.DB
	log *logrus.Logger
}

func NewService(db *gorm.DB, log *logrus.Logger) *Service {
	return &Service{db: db, log: log}
}

// CartLine is one requested entry of a new bill. Generic lines carry a
// quantity, serialized lines carry exactly one serial number, service
// lines reference a service by id.
type CartLine struct {
	Type     models.LineType `json:"itemType"`
	ItemID   uint            `json:"itemId"`
	Qty      int             `json:"qty"`
	SerialNo string          `json:"serialNumber"`
}

type CreateBillInput struct {
	OwnerID        uint
	CustomerID     uint            `json:"customerId"`
	Lines          []CartLine      `json:"items"`
	Discount       decimal.Decimal `json:"discount"`
	InitialPayment decimal.Decimal `json:"receivedPayment"`
	PaymentMethod  string          `json:"paymentMethod"`
	WorkOrderID    *uint           `json:"workOrderId"`
}

// CreateBill validates the cart, prices every line, decrements stock and
// flips serials, assigns the next bill number and persists the bill. Cart
// lines are processed in order and the first failure aborts the whole
// transaction.
func (s *Service) CreateBill(in CreateBillInput) (*models.Bill, error) {
	if len(in.Lines) == 0 {
		return nil, errs.InvalidInput("At least one item is required")
	}
	if in.Discount.IsNegative() {
		return nil, errs.InvalidInput("Discount cannot be negative")
	}
	if in.InitialPayment.IsNegative() {
		return nil, errs.InvalidInput("Received payment cannot be negative")
	}

	var bill *models.Bill
	err := s.db.Transaction(func(tx *gorm.DB) error {
		cat := catalog.NewStore(tx)
		customer, err := customers.NewStore(tx).Find(in.OwnerID, in.CustomerID)
		if err != nil {
			return err
		}

		lines := make([]models.BillLine, 0, len(in.Lines))
		type soldSerial struct {
			itemID   uint
			serialNo string
		}
		var sold []soldSerial
		subtotal := decimal.Zero

		for _, cl := range in.Lines {
			switch cl.Type {
			case models.LineService:
				svc, err := cat.FindService(in.OwnerID, cl.ItemID)
				if err != nil {
					return err
				}
				qty := cl.Qty
				if qty <= 0 {
					qty = 1
				}
				amount := svc.Price.Mul(decimal.NewFromInt(int64(qty)))
				lines = append(lines, models.BillLine{
					Type:      models.LineService,
					ItemRef:   svc.ID,
					Name:      svc.Name,
					Qty:       qty,
					UnitPrice: svc.Price,
					Amount:    amount,
				})
				subtotal = subtotal.Add(amount)

			case models.LineSerialized:
				item, err := cat.FindItem(in.OwnerID, cl.ItemID)
				if err != nil {
					return err
				}
				if item.Type != models.ItemSerialized {
					return errs.InvalidInput(fmt.Sprintf("%s is not a serialized item", item.Name))
				}
				if cl.SerialNo == "" {
					return errs.InvalidInput(fmt.Sprintf("Serial number is required for %s", item.Name))
				}
				if err := cat.MarkSerialSold(item.ID, cl.SerialNo); err != nil {
					return err
				}
				sold = append(sold, soldSerial{itemID: item.ID, serialNo: cl.SerialNo})
				lines = append(lines, models.BillLine{
					Type:          models.LineSerialized,
					ItemRef:       item.ID,
					Name:          item.Name,
					SerialNo:      cl.SerialNo,
					Qty:           1,
					UnitPrice:     item.SalePrice,
					PurchasePrice: item.PurchasePrice,
					Amount:        item.SalePrice,
				})
				subtotal = subtotal.Add(item.SalePrice)

			case models.LineGeneric:
				item, err := cat.FindItem(in.OwnerID, cl.ItemID)
				if err != nil {
					return err
				}
				if item.Type != models.ItemGeneric {
					return errs.InvalidInput(fmt.Sprintf("%s requires a serial number", item.Name))
				}
				qty := cl.Qty
				if qty <= 0 {
					qty = 1
				}
				if err := cat.DecrementStock(in.OwnerID, item.ID, qty); err != nil {
					return err
				}
				amount := item.SalePrice.Mul(decimal.NewFromInt(int64(qty)))
				lines = append(lines, models.BillLine{
					Type:          models.LineGeneric,
					ItemRef:       item.ID,
					Name:          item.Name,
					Qty:           qty,
					UnitPrice:     item.SalePrice,
					PurchasePrice: item.PurchasePrice,
					Amount:        amount,
				})
				subtotal = subtotal.Add(amount)

			default:
				return errs.InvalidInput(fmt.Sprintf("Unknown item type: %s", cl.Type))
			}
		}

		if in.Discount.GreaterThan(subtotal) {
			return errs.InvalidInput("Discount cannot exceed the subtotal")
		}

		now := time.Now()
		n, err := sequence.Next(tx, in.OwnerID, sequence.Bill)
		if err != nil {
			return err
		}
		total := subtotal.Sub(in.Discount)

		method := in.PaymentMethod
		if method == "" {
			method = "cash"
		}
		var payments []models.PaymentEntry
		if in.InitialPayment.IsPositive() {
			payments = []models.PaymentEntry{{
				Reference: uuid.NewString(),
				Amount:    in.InitialPayment,
				PaidAt:    now,
			}}
		}

		b := models.Bill{
			OwnerID:         in.OwnerID,
			CustomerID:      customer.ID,
			BillNumber:      sequence.Format("BILL", now, n),
			Lines:           lines,
			Subtotal:        subtotal,
			Discount:        in.Discount,
			TotalAmount:     total,
			ReceivedPayment: in.InitialPayment,
			DueAmount:       models.DueFor(in.InitialPayment, total),
			PaymentMethod:   method,
			Payments:        payments,
			Status:          models.StatusFor(in.InitialPayment, total),
			WorkOrderID:     in.WorkOrderID,
		}
		if err := tx.Create(&b).Error; err != nil {
			return errors.Wrap(err, "create bill")
		}

		for _, ss := range sold {
			if err := cat.AnnotateSerial(ss.itemID, ss.serialNo, customer.Name, b.BillNumber); err != nil {
				return err
			}
		}

		if in.WorkOrderID != nil {
			if err := s.completeWorkOrder(tx, in.OwnerID, *in.WorkOrderID, b.ID, now); err != nil {
				return err
			}
		}

		bill = &b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"billNumber": bill.BillNumber,
		"customerId": bill.CustomerID,
		"total":      bill.TotalAmount.String(),
	}).Info("bill created")
	return bill, nil
}

func (s *Service) completeWorkOrder(tx *gorm.DB, ownerID, workOrderID, billID uint, now time.Time) error {
	var wo models.WorkOrder
	err := tx.Where("id = ? AND owner_id = ?", workOrderID, ownerID).First(&wo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NotFound(fmt.Sprintf("Work order not found: %d", workOrderID))
		}
		return errors.Wrap(err, "find work order")
	}
	return errors.Wrap(tx.Model(&wo).Updates(map[string]any{
		"status":       models.WorkOrderCompleted,
		"completed_at": now,
		"bill_id":      billID,
	}).Error, "complete work order")
}

// RecordPayment appends one payment to a bill. Overpayment is accepted;
// the due amount clamps at zero and the bill flips to paid.
func (s *Service) RecordPayment(ownerID, billID uint, amount decimal.Decimal, note string) (*models.Bill, error) {
	if !amount.IsPositive() {
		return nil, errs.InvalidInput("Valid payment amount is required")
	}

	var out *models.Bill
	err := s.db.Transaction(func(tx *gorm.DB) error {
		bill, err := s.findBill(tx, ownerID, billID)
		if err != nil {
			return err
		}
		if err := applyPayment(tx, bill, amount, note, time.Now()); err != nil {
			return err
		}
		out = bill
		return nil
	})
	if err != nil {
		return nil, err
	}
	_ = out
	return s.GetBill(ownerID, billID)
}

// PayCustomerDue spreads one lump payment across the customer's unpaid
// bills, oldest first. Each bill is settled in full before the next one
// receives anything. The amount may not exceed the customer's total due;
// the whole payment applies or none of it does.
func (s *Service) PayCustomerDue(ownerID, customerID uint, amount decimal.Decimal, note string) ([]models.Bill, decimal.Decimal, error) {
	if !amount.IsPositive() {
		return nil, decimal.Zero, errs.InvalidInput("Valid payment amount is required")
	}

	var touched []models.Bill
	applied := decimal.Zero
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := customers.NewStore(tx).Find(ownerID, customerID); err != nil {
			return err
		}

		var unpaid []models.Bill
		err := tx.Where("owner_id = ? AND customer_id = ? AND deleted = ? AND status <> ?",
			ownerID, customerID, false, models.BillPaid).
			Order("created_at asc").
			Find(&unpaid).Error
		if err != nil {
			return errors.Wrap(err, "load unpaid bills")
		}

		totalDue := decimal.Zero
		dues := make([]decimal.Decimal, len(unpaid))
		for i, b := range unpaid {
			dues[i] = b.DueAmount
			totalDue = totalDue.Add(b.DueAmount)
		}
		if amount.GreaterThan(totalDue) {
			return errs.LimitExceeded(
				fmt.Sprintf("Payment amount (%s) exceeds total due (%s)", amount.String(), totalDue.String()),
				map[string]any{"amount": amount.String(), "totalDue": totalDue.String()})
		}

		now := time.Now()
		for i, share := range Allocate(dues, amount) {
			if !share.IsPositive() {
				continue
			}
			b := unpaid[i]
			if err := applyPayment(tx, &b, share, note, now); err != nil {
				return err
			}
			touched = append(touched, b)
			applied = applied.Add(share)
		}
		return nil
	})
	if err != nil {
		return nil, decimal.Zero, err
	}

	s.log.WithFields(logrus.Fields{
		"customerId": customerID,
		"applied":    applied.String(),
		"bills":      len(touched),
	}).Info("customer due paid")
	return touched, applied, nil
}

func applyPayment(tx *gorm.DB, bill *models.Bill, amount decimal.Decimal, note string, at time.Time) error {
	entry := models.PaymentEntry{
		BillID:    bill.ID,
		Reference: uuid.NewString(),
		Amount:    amount,
		PaidAt:    at,
		Note:      note,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return errors.Wrap(err, "append payment")
	}

	bill.ReceivedPayment = bill.ReceivedPayment.Add(amount)
	bill.DueAmount = models.DueFor(bill.ReceivedPayment, bill.TotalAmount)
	bill.Status = models.StatusFor(bill.ReceivedPayment, bill.TotalAmount)
	err := tx.Model(&models.Bill{}).Where("id = ?", bill.ID).Updates(map[string]any{
		"received_payment": bill.ReceivedPayment,
		"due_amount":       bill.DueAmount,
		"status":           bill.Status,
	}).Error
	return errors.Wrap(err, "update bill payment state")
}

func (s *Service) findBill(tx *gorm.DB, ownerID, billID uint) (*models.Bill, error) {
	var bill models.Bill
	err := tx.Where("id = ? AND owner_id = ? AND deleted = ?", billID, ownerID, false).First(&bill).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound(fmt.Sprintf("Bill not found: %d", billID))
		}
		return nil, errors.Wrap(err, "find bill")
	}
	return &bill, nil
}

// GetBill loads one bill with its lines, payments and customer.
func (s *Service) GetBill(ownerID, billID uint) (*models.Bill, error) {
	var bill models.Bill
	err := s.db.Preload("Lines").Preload("Payments").Preload("Customer").
		Where("id = ? AND owner_id = ? AND deleted = ?", billID, ownerID, false).
		First(&bill).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound(fmt.Sprintf("Bill not found: %d", billID))
		}
		return nil, errors.Wrap(err, "get bill")
	}
	return &bill, nil
}

// ListBills returns all live bills for an owner, newest first.
func (s *Service) ListBills(ownerID uint) ([]models.Bill, error) {
	var bills []models.Bill
	err := s.db.Preload("Lines").Preload("Payments").Preload("Customer").
		Where("owner_id = ? AND deleted = ?", ownerID, false).
		Order("created_at desc").
		Find(&bills).Error
	return bills, errors.Wrap(err, "list bills")
}

// ListBillsByCustomer returns a customer's live bills, newest first.
func (s *Service) ListBillsByCustomer(ownerID, customerID uint) ([]models.Bill, error) {
	var bills []models.Bill
	err := s.db.Preload("Lines").Preload("Payments").
		Where("owner_id = ? AND customer_id = ? AND deleted = ?", ownerID, customerID, false).
		Order("created_at desc").
		Find(&bills).Error
	return bills, errors.Wrap(err, "list customer bills")
}
