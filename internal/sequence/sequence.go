// Package sequence hands out owner-scoped monotonic numbers for bills and
// work orders. The increment must run inside the caller's transaction so a
// rolled-back create does not burn the race-free guarantee.
package sequence

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/engineerapp/backoffice/internal/models"
)

const (
	Bill      = "bill"
	WorkOrder = "workorder"
)

// Next atomically increments and returns the counter (ownerID, name).
// The UPDATE takes a row lock for the remainder of tx, so two concurrent
// creates cannot observe the same value.
func Next(tx *gorm.DB, ownerID uint, name string) (uint64, error) {
	res := tx.Model(&models.Sequence{}).
		Where("owner_id = ? AND name = ?", ownerID, name).
		UpdateColumn("value", gorm.Expr("value + 1"))
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "increment sequence")
	}
	if res.RowsAffected == 0 {
		seq := models.Sequence{OwnerID: ownerID, Name: name, Value: 1}
		if err := tx.Create(&seq).Error; err != nil {
			// lost the first-row race: another tx created it, retry the increment
			res = tx.Model(&models.Sequence{}).
				Where("owner_id = ? AND name = ?", ownerID, name).
				UpdateColumn("value", gorm.Expr("value + 1"))
			if res.Error != nil || res.RowsAffected == 0 {
				return 0, errors.Wrap(err, "create sequence")
			}
		} else {
			return 1, nil
		}
	}
	var seq models.Sequence
	if err := tx.Where("owner_id = ? AND name = ?", ownerID, name).First(&seq).Error; err != nil {
		return 0, errors.Wrap(err, "read sequence")
	}
	return seq.Value, nil
}

// Format renders a human-readable document number, e.g. BILL-2608-0004.
func Format(prefix string, at time.Time, n uint64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, at.Format("0601"), n)
}
