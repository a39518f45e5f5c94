package models

import (
	"time"

	"gorm.io/gorm"
)

// Commission is one payout record derived from an upstream payment event.
// UpstreamPaymentID carries a unique index and is the idempotency key: a
// redelivered webhook can never create a second row.
//
// Rows are immutable after creation except the Status transition
// paid -> reversed on refund.
//
// Invariant: MemberShareCents + CreatorShareCents + PlatformShareCents ==
// SaleAmountCents, exactly. Rounding remainders are absorbed into the
// creator share at split time.
type Commission struct {
	ID                   uint   `gorm:"primaryKey" json:"id"`
	UpstreamPaymentID    string `gorm:"uniqueIndex;size:64;not null" json:"upstream_payment_id"`
	UpstreamMembershipID string `gorm:"size:64;not null;index" json:"upstream_membership_id"`

	SaleAmountCents    int64   `gorm:"not null" json:"sale_amount_cents"`
	MemberShareCents   int64   `gorm:"not null" json:"member_share_cents"`
	CreatorShareCents  int64   `gorm:"not null" json:"creator_share_cents"`
	PlatformShareCents int64   `gorm:"not null" json:"platform_share_cents"`
	RatePercent        float64 `gorm:"not null" json:"rate_percent"` // member rate applied at record time

	PaymentType string `gorm:"size:16;not null;index" json:"payment_type"` // initial | recurring
	Status      string `gorm:"size:16;not null;index" json:"status"`       // pending | paid | reversed

	ReferrerMemberID uint `gorm:"not null;index" json:"referrer_member_id"`
	CreatorID        uint `gorm:"index" json:"creator_id"`

	ReversedAt *time.Time     `json:"reversed_at,omitempty"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	Referrer Member `gorm:"foreignKey:ReferrerMemberID" json:"-"`
}

func (Commission) TableName() string { return "commissions" }
