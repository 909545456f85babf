package customers

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/engineerapp/backoffice/internal/errs"
	"github.com/engineerapp/backoffice/internal/models"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) WithTx(tx *gorm.DB) *Store { return &Store{db: tx} }

func (s *Store) Find(ownerID, customerID uint) (*models.Customer, error) {
	var c models.Customer
	err := s.db.Where("id = ? AND owner_id = ? AND deleted = ?", customerID, ownerID, false).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound(fmt.Sprintf("Customer not found: %d", customerID))
		}
		return nil, errors.Wrap(err, "find customer")
	}
	return &c, nil
}

// OutstandingDue sums due amounts across the customer's live bills.
func (s *Store) OutstandingDue(ownerID, customerID uint) (decimal.Decimal, error) {
	var bills []models.Bill
	err := s.db.Where("owner_id = ? AND customer_id = ? AND deleted = ?", ownerID, customerID, false).
		Find(&bills).Error
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "sum customer due")
	}
	total := decimal.Zero
	for _, b := range bills {
		total = total.Add(b.DueAmount)
	}
	return total, nil
}

// HasBills reports whether any bill, live or settled, references the
// customer. Deletion of a customer with billing history is blocked.
func (s *Store) HasBills(ownerID, customerID uint) (bool, error) {
	var n int64
	err := s.db.Model(&models.Bill{}).
		Where("owner_id = ? AND customer_id = ? AND deleted = ?", ownerID, customerID, false).
		Count(&n).Error
	if err != nil {
		return false, errors.Wrap(err, "count customer bills")
	}
	return n > 0, nil
}
