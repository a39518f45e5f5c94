package repository

import (
	"fmt"

	"referly/internal/models"

	"gorm.io/gorm"
)

// RankAxis names one of the maintained rank orderings.
type RankAxis string

const (
	AxisGlobalEarnings  RankAxis = "global_earnings"
	AxisGlobalReferrals RankAxis = "global_referrals"
	AxisCommunity       RankAxis = "community"
)

// rankColumns maps an axis to its current/previous rank columns on members.
var rankColumns = map[RankAxis][2]string{
	AxisGlobalEarnings:  {"global_earnings_rank", "prev_global_earnings_rank"},
	AxisGlobalReferrals: {"global_referrals_rank", "prev_global_referrals_rank"},
	AxisCommunity:       {"community_rank", "prev_community_rank"},
}

type RankingRepository struct {
	db *gorm.DB
}

func NewRankingRepository(db *gorm.DB) *RankingRepository {
	return &RankingRepository{db: db}
}

// ListRankable returns all real (non-test) members with the fields the
// ranking pass needs, in a stable order.
func (r *RankingRepository) ListRankable() ([]models.Member, error) {
	var members []models.Member
	err := r.db.Where("is_test = ?", false).
		Order("id ASC").
		Find(&members).Error
	return members, err
}

// WriteRank persists a member's new rank on an axis, capturing the
// outgoing value as the previous rank. The previous-rank capture must
// happen before the new value lands, so the SET order is spelled out.
func (r *RankingRepository) WriteRank(memberID uint, axis RankAxis, rank int) error {
	cols, ok := rankColumns[axis]
	if !ok {
		return gorm.ErrInvalidField
	}
	sql := fmt.Sprintf("UPDATE members SET %s = %s, %s = ? WHERE id = ?", cols[1], cols[0], cols[0])
	return r.db.Exec(sql, rank, memberID).Error
}

// TopByEarnings returns the leaderboard slice for the earnings axis.
// Ordering must match the ranking pass exactly: metric descending, account
// age ascending on ties.
func (r *RankingRepository) TopByEarnings(limit int) ([]models.Member, error) {
	var members []models.Member
	err := r.db.Where("is_test = ?", false).
		Order("lifetime_earnings_cents DESC, created_at ASC").
		Limit(limit).
		Find(&members).Error
	return members, err
}

func (r *RankingRepository) TopByReferrals(limit int) ([]models.Member, error) {
	var members []models.Member
	err := r.db.Where("is_test = ?", false).
		Order("total_referred DESC, created_at ASC").
		Limit(limit).
		Find(&members).Error
	return members, err
}

func (r *RankingRepository) TopInCommunity(communityID uint, limit int) ([]models.Member, error) {
	var members []models.Member
	err := r.db.Where("is_test = ? AND community_id = ?", false, communityID).
		Order("lifetime_earnings_cents DESC, created_at ASC").
		Limit(limit).
		Find(&members).Error
	return members, err
}
