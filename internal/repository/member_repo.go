package repository

import (
	"errors"
	"fmt"

	"referly/internal/models"
	"referly/pkg/refcode"

	"gorm.io/gorm"
)

var ErrMemberNotFound = errors.New("member not found")

type MemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) GetByID(id uint) (*models.Member, error) {
	var m models.Member
	if err := r.db.First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *MemberRepository) GetByMembershipID(membershipID string) (*models.Member, error) {
	var m models.Member
	err := r.db.Where("upstream_membership_id = ?", membershipID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *MemberRepository) GetByReferralCode(code string) (*models.Member, error) {
	var m models.Member
	err := r.db.Where("referral_code = ?", code).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &m, nil
}

// CreateWithCode persists a new member, issuing a referral code derived
// from the name. Collisions on the unique code index are retried with a
// fresh suffix.
func (r *MemberRepository) CreateWithCode(m *models.Member) error {
	for i := 0; i < 10; i++ {
		code, err := refcode.Generate(m.Name)
		if err != nil {
			return err
		}
		m.ReferralCode = code
		err = r.db.Create(m).Error
		if err == nil {
			return nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Could be the code or the membership/email index. Only a code
			// collision is retryable.
			var existing models.Member
			if r.db.Where("referral_code = ?", code).First(&existing).Error == nil {
				m.ID = 0
				continue
			}
			return err
		}
		return err
	}
	return fmt.Errorf("failed to issue a unique referral code after retries")
}

// CountReferredBy recomputes the referral count for a code straight from
// the members table. Reconciliation only; the hot path reads the
// denormalized counter.
func (r *MemberRepository) CountReferredBy(code string) (int64, error) {
	var n int64
	err := r.db.Model(&models.Member{}).Where("referred_by = ?", code).Count(&n).Error
	return n, err
}

func (r *MemberRepository) ListReferredBy(code string, limit, offset int) ([]models.Member, error) {
	var list []models.Member
	err := r.db.Where("referred_by = ?", code).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}

// ListAll streams every member, test accounts included. Reconciliation
// checks the whole table, not just rankable rows.
func (r *MemberRepository) ListAll() ([]models.Member, error) {
	var list []models.Member
	err := r.db.Order("id ASC").Find(&list).Error
	return list, err
}

// UpdateTier writes the resolved tier name for a member.
func (r *MemberRepository) UpdateTier(memberID uint, tier string) error {
	return r.db.Model(&models.Member{}).Where("id = ?", memberID).
		UpdateColumn("current_tier", tier).Error
}

// ResetMonthlyCounters zeroes the month-scoped aggregates for all members.
// Runs once per calendar month from the worker.
func (r *MemberRepository) ResetMonthlyCounters() (int64, error) {
	res := r.db.Model(&models.Member{}).
		Where("monthly_earnings_cents <> 0 OR monthly_referred <> 0").
		UpdateColumns(map[string]interface{}{
			"monthly_earnings_cents": 0,
			"monthly_referred":       0,
		})
	return res.RowsAffected, res.Error
}
