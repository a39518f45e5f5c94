package repository

import (
	"errors"
	"time"

	"referly/internal/models"

	"gorm.io/gorm"
)

var ErrNoOpenClick = errors.New("no open attribution click in window")

type ClickRepository struct {
	db *gorm.DB
}

func NewClickRepository(db *gorm.DB) *ClickRepository {
	return &ClickRepository{db: db}
}

func (r *ClickRepository) Create(click *models.AttributionClick) error {
	return r.db.Create(click).Error
}

// FindConvertible returns the best candidate click for a conversion at the
// given time: unconverted, unexpired, created before the signup, most
// recent first (closest-preceding-click policy).
func (r *ClickRepository) FindConvertible(code string, at time.Time) (*models.AttributionClick, error) {
	var click models.AttributionClick
	err := r.db.Where("referral_code = ? AND converted = ? AND expires_at >= ? AND created_at <= ?",
		code, false, at, at).
		Order("created_at DESC").
		First(&click).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoOpenClick
		}
		return nil, err
	}
	return &click, nil
}

// MarkConverted flips a click to converted exactly once. The converted
// guard in the WHERE clause makes concurrent resolvers race safely: only
// one update can match.
func (r *ClickRepository) MarkConverted(id uint, at time.Time, valueCents int64) error {
	res := r.db.Model(&models.AttributionClick{}).
		Where("id = ? AND converted = ?", id, false).
		UpdateColumns(map[string]interface{}{
			"converted":              true,
			"converted_at":           at,
			"conversion_value_cents": valueCents,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoOpenClick
	}
	return nil
}

// CountConvertedByCode is used by the reconciler to compare click-level
// conversions against referred signups for a code.
func (r *ClickRepository) CountConvertedByCode(code string) (int64, error) {
	var n int64
	err := r.db.Model(&models.AttributionClick{}).
		Where("referral_code = ? AND converted = ?", code, true).
		Count(&n).Error
	return n, err
}
