package models

import (
	"time"

	"gorm.io/gorm"
)

// Member mirrors a membership on the upstream commerce platform, extended
// with the referral program's denormalized aggregates. The aggregate columns
// are a materialized view over the commission log: only the ledger writes
// them, and the reconciler re-derives them from commissions when checking.
type Member struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	UpstreamMembershipID string     `gorm:"uniqueIndex;size:64;not null" json:"upstream_membership_id"`
	Name                 string     `gorm:"size:128;not null" json:"name"`
	Email                string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Role                 string     `gorm:"size:20;not null;default:'MEMBER';index" json:"role"` // MEMBER | CREATOR
	ReferralCode         string     `gorm:"uniqueIndex;size:32;not null" json:"referral_code"`
	ReferredBy           string     `gorm:"size:32;index" json:"referred_by"` // referral code of the referrer, empty for organic
	MemberOrigin         string     `gorm:"size:16;not null;default:'organic'" json:"member_origin"`
	CommunityID          uint       `gorm:"index" json:"community_id"`
	IsTest               bool       `gorm:"default:false" json:"-"` // test accounts are excluded from rankings

	LifetimeEarningsCents int64 `gorm:"not null;default:0" json:"lifetime_earnings_cents"`
	MonthlyEarningsCents  int64 `gorm:"not null;default:0" json:"monthly_earnings_cents"`
	TotalReferred         int   `gorm:"not null;default:0" json:"total_referred"`
	MonthlyReferred       int   `gorm:"not null;default:0" json:"monthly_referred"`

	// Ranks are derived, never authoritative. Previous values are kept so
	// the UI can show rank movement since the last recompute.
	GlobalEarningsRank      int `gorm:"default:0" json:"global_earnings_rank"`
	PrevGlobalEarningsRank  int `gorm:"default:0" json:"prev_global_earnings_rank"`
	GlobalReferralsRank     int `gorm:"default:0" json:"global_referrals_rank"`
	PrevGlobalReferralsRank int `gorm:"default:0" json:"prev_global_referrals_rank"`
	CommunityRank           int `gorm:"default:0" json:"community_rank"`
	PrevCommunityRank       int `gorm:"default:0" json:"prev_community_rank"`

	CurrentTier string `gorm:"size:32;default:'starter'" json:"current_tier"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Member) TableName() string { return "members" }

func (m *Member) IsCreator() bool { return m.Role == "CREATOR" }

// CommissionTier is one bracket of the platform-controlled rate table.
// The applicable tier is the one with the highest MinPaidReferrals not
// exceeding the referrer's paid-referral count.
type CommissionTier struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	TierName         string    `gorm:"uniqueIndex;size:32;not null" json:"tier_name"`
	MinPaidReferrals int       `gorm:"not null" json:"min_paid_referrals"`
	RatePercent      float64   `gorm:"not null" json:"rate_percent"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (CommissionTier) TableName() string { return "commission_tiers" }

// CustomRate overrides tier lookup for a single member. At most one active
// row per member; presence always wins over the tier table.
type CustomRate struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	MemberID    uint           `gorm:"uniqueIndex;not null" json:"member_id"`
	RatePercent float64        `gorm:"not null" json:"rate_percent"` // bounded [10,30]
	Reason      string         `gorm:"size:255" json:"reason"`
	SetByID     uint           `gorm:"not null" json:"set_by_id"` // creator who set it
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Member Member `gorm:"foreignKey:MemberID" json:"-"`
}

func (CustomRate) TableName() string { return "custom_rates" }
