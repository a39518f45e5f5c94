package models

import "time"

// AuditLog records mutations of record: webhook receipts, reversals,
// custom-rate changes, monthly resets, and reconciler remediations.
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	MemberID   *uint     `gorm:"index" json:"member_id,omitempty"`
	Action     string    `gorm:"size:64;not null;index" json:"action"`
	Resource   string    `gorm:"size:64;not null" json:"resource"`
	ResourceID string    `gorm:"size:128" json:"resource_id"`
	Detail     string    `gorm:"type:text" json:"detail"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }
