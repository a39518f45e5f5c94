package repository

import (
	"referly/internal/models"

	"gorm.io/gorm"
)

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Create(entry *models.AuditLog) error {
	return r.db.Create(entry).Error
}

func (r *AuditLogRepository) ListByAction(action string, limit int) ([]models.AuditLog, error) {
	var list []models.AuditLog
	err := r.db.Where("action = ?", action).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
