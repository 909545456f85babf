// Package catalog is the inventory leaf: item and service lookups plus the
// conditional stock/serial mutation primitives the billing engine builds on.
package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/engineerapp/backoffice/internal/errs"
	"github.com/engineerapp/backoffice/internal/models"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

// WithTx returns a store bound to tx so mutations join the caller's
// transaction.
func (s *Store) WithTx(tx *gorm.DB) *Store { return &Store{db: tx} }

// FindItem resolves an item in the owner's scope. Cross-tenant references
// fail as not-found, never as an authorization error.
func (s *Store) FindItem(ownerID, itemID uint) (*models.Item, error) {
	var item models.Item
	err := s.db.Where("id = ? AND owner_id = ? AND deleted = ?", itemID, ownerID, false).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound(fmt.Sprintf("Item not found: %d", itemID))
		}
		return nil, errors.Wrap(err, "find item")
	}
	return &item, nil
}

func (s *Store) FindService(ownerID, serviceID uint) (*models.Service, error) {
	var svc models.Service
	err := s.db.Where("id = ? AND owner_id = ? AND deleted = ?", serviceID, ownerID, false).First(&svc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound(fmt.Sprintf("Service not found: %d", serviceID))
		}
		return nil, errors.Wrap(err, "find service")
	}
	return &svc, nil
}

// DecrementStock performs the check-and-decrement as one conditional
// update: decrement iff the resulting quantity stays non-negative. A failed
// condition reads back the current quantity for the error message.
func (s *Store) DecrementStock(ownerID, itemID uint, qty int) error {
	if qty <= 0 {
		return errs.InvalidInput("quantity must be positive")
	}
	res := s.db.Model(&models.Item{}).
		Where("id = ? AND owner_id = ? AND deleted = ? AND stock_qty >= ?", itemID, ownerID, false, qty).
		UpdateColumn("stock_qty", gorm.Expr("stock_qty - ?", qty))
	if res.Error != nil {
		return errors.Wrap(res.Error, "decrement stock")
	}
	if res.RowsAffected == 0 {
		item, err := s.FindItem(ownerID, itemID)
		if err != nil {
			return err
		}
		return errs.InsufficientStock(
			fmt.Sprintf("Insufficient stock for %s. Available: %d", item.Name, item.StockQty),
			item.StockQty)
	}
	return nil
}

// MarkSerialSold flips a serial to sold iff it is currently available.
// A failed condition is a Conflict: the serial is unknown or already sold.
func (s *Store) MarkSerialSold(itemID uint, serialNo string) error {
	res := s.db.Model(&models.SerialNumber{}).
		Where("item_id = ? AND serial_no = ? AND status = ?", itemID, serialNo, models.SerialAvailable).
		UpdateColumn("status", models.SerialSold)
	if res.Error != nil {
		return errors.Wrap(res.Error, "mark serial sold")
	}
	if res.RowsAffected == 0 {
		return errs.Conflict(fmt.Sprintf("Serial number %s is not available", serialNo))
	}
	return nil
}

// AnnotateSerial denormalizes the buyer and bill number onto a sold serial
// for lookup without a join.
func (s *Store) AnnotateSerial(itemID uint, serialNo, customerName, billNumber string) error {
	err := s.db.Model(&models.SerialNumber{}).
		Where("item_id = ? AND serial_no = ?", itemID, serialNo).
		Updates(map[string]any{"customer_name": customerName, "bill_number": billNumber}).Error
	return errors.Wrap(err, "annotate serial")
}

// SerialOwner reports which item (any owner) holds a serial number, if any.
func (s *Store) SerialOwner(serialNo string) (*models.Item, bool, error) {
	var sn models.SerialNumber
	err := s.db.Where("serial_no = ?", strings.TrimSpace(serialNo)).First(&sn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "lookup serial")
	}
	var item models.Item
	if err := s.db.First(&item, sn.ItemID).Error; err != nil {
		return nil, false, errors.Wrap(err, "lookup serial item")
	}
	return &item, true, nil
}

// AddStock adds quantity to a generic item and appends a history entry.
func (s *Store) AddStock(ownerID, itemID uint, qty int) (*models.Item, error) {
	if qty <= 0 {
		return nil, errs.InvalidInput("stock quantity to add must be positive")
	}
	item, err := s.FindItem(ownerID, itemID)
	if err != nil {
		return nil, err
	}
	if item.Type != models.ItemGeneric {
		return nil, errs.InvalidInput("stock quantity applies to generic items only")
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Item{}).Where("id = ?", item.ID).
			UpdateColumn("stock_qty", gorm.Expr("stock_qty + ?", qty)).Error; err != nil {
			return err
		}
		return tx.Create(&models.StockEntry{ItemID: item.ID, Qty: qty, AddedAt: time.Now()}).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "add stock")
	}
	return s.FindItem(ownerID, itemID)
}

// AddSerials registers a batch of serial numbers on a serialized item.
// Duplicates inside the batch and collisions with any serial system-wide
// are rejected as Conflict, naming the offenders.
func (s *Store) AddSerials(ownerID, itemID uint, serials []string) (*models.Item, error) {
	item, err := s.FindItem(ownerID, itemID)
	if err != nil {
		return nil, err
	}
	if item.Type != models.ItemSerialized {
		return nil, errs.InvalidInput("serial numbers apply to serialized items only")
	}

	trimmed := make([]string, 0, len(serials))
	for _, sn := range serials {
		if t := strings.TrimSpace(sn); t != "" {
			trimmed = append(trimmed, t)
		}
	}
	if len(trimmed) == 0 {
		return nil, errs.InvalidInput("Please provide at least one valid serial number")
	}

	seen := map[string]bool{}
	var dupes []string
	for _, sn := range trimmed {
		if seen[sn] {
			dupes = append(dupes, sn)
		}
		seen[sn] = true
	}
	if len(dupes) > 0 {
		return nil, errs.Conflict("Duplicate serial numbers in your input: " + strings.Join(dedupe(dupes), ", "))
	}

	var existing []models.SerialNumber
	if err := s.db.Where("serial_no IN ?", trimmed).Find(&existing).Error; err != nil {
		return nil, errors.Wrap(err, "check existing serials")
	}
	if len(existing) > 0 {
		parts := make([]string, 0, len(existing))
		for _, sn := range existing {
			var holder models.Item
			name := "unknown item"
			if err := s.db.Select("name").First(&holder, sn.ItemID).Error; err == nil {
				name = holder.Name
			}
			parts = append(parts, fmt.Sprintf("%s (in %s)", sn.SerialNo, name))
		}
		return nil, errs.Conflict("Serial numbers already exist: " + strings.Join(parts, ", "))
	}

	now := time.Now()
	rows := make([]models.SerialNumber, 0, len(trimmed))
	for _, sn := range trimmed {
		rows = append(rows, models.SerialNumber{ItemID: item.ID, SerialNo: sn, Status: models.SerialAvailable, AddedAt: now})
	}
	if err := s.db.Create(&rows).Error; err != nil {
		// unique index backstop against a concurrent insert of the same serial
		if strings.Contains(strings.ToLower(err.Error()), "unique") || strings.Contains(strings.ToLower(err.Error()), "duplicate") {
			return nil, errs.Conflict("Serial numbers already exist")
		}
		return nil, errors.Wrap(err, "insert serials")
	}
	return s.itemWithChildren(ownerID, itemID)
}

func (s *Store) itemWithChildren(ownerID, itemID uint) (*models.Item, error) {
	var item models.Item
	err := s.db.Preload("SerialNumbers").Preload("StockHistory").
		Where("id = ? AND owner_id = ? AND deleted = ?", itemID, ownerID, false).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound(fmt.Sprintf("Item not found: %d", itemID))
		}
		return nil, errors.Wrap(err, "load item")
	}
	return &item, nil
}

// ItemWithChildren is the read used by item detail endpoints.
func (s *Store) ItemWithChildren(ownerID, itemID uint) (*models.Item, error) {
	return s.itemWithChildren(ownerID, itemID)
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			out = append(out, v)
			seen[v] = true
		}
	}
	return out
}
