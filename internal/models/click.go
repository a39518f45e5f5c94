package models

import "time"

// AttributionClick is one recorded hit on a referral link. Clicks are
// append-only: the conversion resolver flips Converted exactly once and
// nothing deletes them, so the log stays usable for reconciliation.
//
// There is deliberately no uniqueness across clicks; the same visitor may
// click many times and the resolver picks which one counts.
type AttributionClick struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	ReferralCode string `gorm:"size:32;not null;index" json:"referral_code"`
	Fingerprint  string `gorm:"size:128" json:"fingerprint"`
	// OriginHash is a salted one-way hash of the raw network origin. The raw
	// value is never stored.
	OriginHash string `gorm:"size:128;not null" json:"origin_hash"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"` // CreatedAt + 30 days

	Converted            bool       `gorm:"not null;default:false;index" json:"converted"`
	ConvertedAt          *time.Time `json:"converted_at,omitempty"`
	ConversionValueCents int64      `gorm:"not null;default:0" json:"conversion_value_cents"`
}

func (AttributionClick) TableName() string { return "attribution_clicks" }
