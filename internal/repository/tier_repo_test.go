package repository

import (
	"testing"

	"referly/internal/database"
	"referly/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newRepoTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, database.SeedTiers(db))
	return db
}

func TestUpsertCustomRate(t *testing.T) {
	db := newRepoTestDB(t)
	repo := NewTierRepository(db)
	member := models.Member{
		UpstreamMembershipID: "mem_1",
		Name:                 "Jane",
		Email:                "jane@example.com",
		ReferralCode:         "JANE-AB12CD",
	}
	require.NoError(t, db.Create(&member).Error)

	t.Run("replaces without duplicating", func(t *testing.T) {
		require.NoError(t, repo.UpsertCustomRate(&models.CustomRate{
			MemberID: member.ID, RatePercent: 20, Reason: "pilot", SetByID: 1,
		}))
		require.NoError(t, repo.UpsertCustomRate(&models.CustomRate{
			MemberID: member.ID, RatePercent: 25, Reason: "extended", SetByID: 2,
		}))

		var count int64
		require.NoError(t, db.Unscoped().Model(&models.CustomRate{}).Count(&count).Error)
		assert.Equal(t, int64(1), count, "one row per member regardless of how many setters collide")

		got, err := repo.GetCustomRate(member.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 25.0, got.RatePercent)
		assert.Equal(t, "extended", got.Reason)
		assert.Equal(t, uint(2), got.SetByID)
	})

	t.Run("set after clear revives the row", func(t *testing.T) {
		require.NoError(t, repo.DeleteCustomRate(member.ID))
		got, err := repo.GetCustomRate(member.ID)
		require.NoError(t, err)
		require.Nil(t, got)

		// The soft-deleted row still holds the unique index; the upsert
		// must take it over rather than fail on the duplicate key.
		require.NoError(t, repo.UpsertCustomRate(&models.CustomRate{
			MemberID: member.ID, RatePercent: 12, Reason: "second run", SetByID: 1,
		}))
		got, err = repo.GetCustomRate(member.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 12.0, got.RatePercent)
	})
}
