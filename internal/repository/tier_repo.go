package repository

import (
	"errors"
	"time"

	"referly/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrRateNotFound = errors.New("custom rate not found")

type TierRepository struct {
	db *gorm.DB
}

func NewTierRepository(db *gorm.DB) *TierRepository {
	return &TierRepository{db: db}
}

// ListTiers returns the platform tier table ordered by ascending threshold.
func (r *TierRepository) ListTiers() ([]models.CommissionTier, error) {
	var tiers []models.CommissionTier
	err := r.db.Order("min_paid_referrals ASC").Find(&tiers).Error
	return tiers, err
}

// GetCustomRate returns the active override for a member, or nil when none
// is set.
func (r *TierRepository) GetCustomRate(memberID uint) (*models.CustomRate, error) {
	var cr models.CustomRate
	err := r.db.Where("member_id = ?", memberID).First(&cr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cr, nil
}

// UpsertCustomRate sets or replaces the override for a member in one
// statement, so concurrent setters cannot race into a duplicate-key error
// on member_id. Clearing deleted_at on conflict revives a previously
// cleared override, which would otherwise still hold the unique index.
func (r *TierRepository) UpsertCustomRate(cr *models.CustomRate) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "member_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"rate_percent": cr.RatePercent,
			"reason":       cr.Reason,
			"set_by_id":    cr.SetByID,
			"deleted_at":   nil,
			"updated_at":   time.Now(),
		}),
	}).Create(cr).Error
}

func (r *TierRepository) DeleteCustomRate(memberID uint) error {
	res := r.db.Where("member_id = ?", memberID).Delete(&models.CustomRate{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRateNotFound
	}
	return nil
}
