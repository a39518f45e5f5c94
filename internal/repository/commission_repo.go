package repository

import (
	"errors"
	"time"

	"referly/internal/domain"
	"referly/internal/models"

	"gorm.io/gorm"
)

var (
	// ErrDuplicatePayment marks an idempotent replay: a commission with the
	// same upstream payment id already exists. Not a failure.
	ErrDuplicatePayment = errors.New("duplicate upstream payment id")

	ErrCommissionNotFound = errors.New("commission not found")
	ErrAlreadyReversed    = errors.New("commission already reversed")
)

// CommissionRepository is the ledger's storage surface. Commission inserts
// and the referrer's counter updates happen inside one transaction so a
// partial write is impossible, and the unique index on upstream_payment_id
// makes the idempotency check race-safe under concurrent delivery.
type CommissionRepository struct {
	db *gorm.DB
}

func NewCommissionRepository(db *gorm.DB) *CommissionRepository {
	return &CommissionRepository{db: db}
}

func (r *CommissionRepository) GetByUpstreamPaymentID(paymentID string) (*models.Commission, error) {
	var cm models.Commission
	err := r.db.Where("upstream_payment_id = ?", paymentID).First(&cm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommissionNotFound
		}
		return nil, err
	}
	return &cm, nil
}

// RecordWithCounters inserts the commission and applies the referrer's
// counter increments atomically. On a duplicate payment id it returns
// ErrDuplicatePayment without touching counters, whether the duplicate was
// caught by the pre-check or by the unique index during a concurrent race.
func (r *CommissionRepository) RecordWithCounters(cm *models.Commission) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Commission
		err := tx.Where("upstream_payment_id = ?", cm.UpstreamPaymentID).First(&existing).Error
		if err == nil {
			*cm = existing
			return ErrDuplicatePayment
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(cm).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// Lost the race to a concurrent writer; surface its row.
				if ferr := tx.Where("upstream_payment_id = ?", cm.UpstreamPaymentID).
					First(&existing).Error; ferr == nil {
					*cm = existing
				}
				return ErrDuplicatePayment
			}
			return err
		}

		return applyCounterDelta(tx, cm, +1)
	})
}

// ReverseWithCounters transitions paid -> reversed and backs the same
// amounts out of the referrer's counters, in one transaction. Reversing an
// already-reversed commission is a no-op error so refund redelivery cannot
// double-decrement.
func (r *CommissionRepository) ReverseWithCounters(paymentID string, at time.Time) (*models.Commission, error) {
	var cm models.Commission
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("upstream_payment_id = ?", paymentID).First(&cm).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCommissionNotFound
			}
			return err
		}
		if cm.Status == domain.CommissionStatusReversed {
			return ErrAlreadyReversed
		}
		res := tx.Model(&models.Commission{}).
			Where("id = ? AND status = ?", cm.ID, domain.CommissionStatusPaid).
			UpdateColumns(map[string]interface{}{
				"status":      domain.CommissionStatusReversed,
				"reversed_at": at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyReversed
		}
		cm.Status = domain.CommissionStatusReversed
		cm.ReversedAt = &at
		return applyCounterDelta(tx, &cm, -1)
	})
	if err != nil {
		return nil, err
	}
	return &cm, nil
}

// applyCounterDelta adjusts the referrer's denormalized aggregates by the
// commission's amounts. sign is +1 on record, -1 on reversal. Increments
// are pushed into the database so concurrent commissions for one referrer
// cannot lose updates.
func applyCounterDelta(tx *gorm.DB, cm *models.Commission, sign int64) error {
	cols := map[string]interface{}{
		"lifetime_earnings_cents": gorm.Expr("lifetime_earnings_cents + ?", sign*cm.MemberShareCents),
		"monthly_earnings_cents":  gorm.Expr("monthly_earnings_cents + ?", sign*cm.MemberShareCents),
	}
	if cm.PaymentType == domain.PaymentTypeInitial {
		cols["total_referred"] = gorm.Expr("total_referred + ?", sign)
		cols["monthly_referred"] = gorm.Expr("monthly_referred + ?", sign)
	}
	res := tx.Model(&models.Member{}).Where("id = ?", cm.ReferrerMemberID).UpdateColumns(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// ListByReferrer returns a referrer's commissions since the cutoff, newest
// first. Bucketing by day or month happens in the service layer.
func (r *CommissionRepository) ListByReferrer(referrerID uint, since time.Time) ([]models.Commission, error) {
	var list []models.Commission
	err := r.db.Where("referrer_member_id = ? AND created_at >= ?", referrerID, since).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

// SumPaidMemberShare recomputes lifetime earnings from the log for one
// referrer. Reconciliation only.
func (r *CommissionRepository) SumPaidMemberShare(referrerID uint) (int64, error) {
	var sum *int64
	err := r.db.Model(&models.Commission{}).
		Select("SUM(member_share_cents)").
		Where("referrer_member_id = ? AND status = ?", referrerID, domain.CommissionStatusPaid).
		Scan(&sum).Error
	if err != nil || sum == nil {
		return 0, err
	}
	return *sum, nil
}

// CountInitialPaidByReferrer recomputes the paid-referral count from the log.
func (r *CommissionRepository) CountInitialPaidByReferrer(referrerID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.Commission{}).
		Where("referrer_member_id = ? AND payment_type = ? AND status = ?",
			referrerID, domain.PaymentTypeInitial, domain.CommissionStatusPaid).
		Count(&n).Error
	return n, err
}

// FindSplitViolations returns commissions whose three-way split does not
// sum back to the sale amount. Under the creator-absorbs-remainder rule
// this should always be empty.
func (r *CommissionRepository) FindSplitViolations() ([]models.Commission, error) {
	var list []models.Commission
	err := r.db.Where("member_share_cents + creator_share_cents + platform_share_cents <> sale_amount_cents").
		Find(&list).Error
	return list, err
}
