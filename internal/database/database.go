package database

import (
	"referly/config"
	"referly/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Error),
		TranslateError: true, // duplicate-key detection relies on gorm.ErrDuplicatedKey
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Member{},
		&models.AttributionClick{},
		&models.Commission{},
		&models.CommissionTier{},
		&models.CustomRate{},
		&models.AuditLog{},
	)
}

// SeedTiers inserts the default platform tier table when it is empty.
// The table is platform-controlled; deployments tune it in place.
func SeedTiers(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.CommissionTier{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return db.Create([]models.CommissionTier{
		{TierName: "starter", MinPaidReferrals: 0, RatePercent: 10},
		{TierName: "ambassador", MinPaidReferrals: 50, RatePercent: 15},
		{TierName: "elite", MinPaidReferrals: 100, RatePercent: 18},
	}).Error
}
