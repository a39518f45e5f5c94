package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"referly/config"
	"referly/internal/cache"
	"referly/internal/middleware"
	"referly/internal/models"
	"referly/internal/repository"

	"github.com/gin-gonic/gin"
)

// LeaderboardHandler serves ranked slices. Results are cached with a TTL;
// ledger commits invalidate the global keys so a fresh board follows a
// payout within one request.
type LeaderboardHandler struct {
	rankingRepo *repository.RankingRepository
	memberRepo  *repository.MemberRepository
	cache       cache.Cache
	cfg         *config.Config
}

func NewLeaderboardHandler(
	rankingRepo *repository.RankingRepository,
	memberRepo *repository.MemberRepository,
	c cache.Cache,
	cfg *config.Config,
) *LeaderboardHandler {
	return &LeaderboardHandler{rankingRepo: rankingRepo, memberRepo: memberRepo, cache: c, cfg: cfg}
}

type leaderboardRow struct {
	MemberID uint   `json:"member_id"`
	Name     string `json:"name"`
	Rank     int    `json:"rank"`
	Metric   int64  `json:"metric"`
}

// Get returns the top-N for the requested metric and scope, plus the
// caller's own rank when they fall outside the slice.
func (h *LeaderboardHandler) Get(c *gin.Context) {
	metric := c.DefaultQuery("metric", "earnings")
	scope := c.DefaultQuery("scope", "global")
	limit := h.cfg.Referral.LeaderboardSize
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}

	caller, err := h.memberRepo.GetByID(middleware.GetMemberID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}

	rows, err := h.loadRows(c.Request.Context(), metric, scope, caller, limit)
	if err != nil {
		if err == errBadLeaderboardQuery {
			c.JSON(http.StatusBadRequest, gin.H{"error": "metric must be earnings|referrals, scope global|community"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "leaderboard error"})
		return
	}

	resp := gin.H{"metric": metric, "scope": scope, "entries": rows}
	if your := h.yourRank(metric, scope, caller); your > 0 {
		inSlice := false
		for _, r := range rows {
			if r.MemberID == caller.ID {
				inSlice = true
				break
			}
		}
		if !inSlice {
			resp["your_rank"] = your
		}
	}
	c.JSON(http.StatusOK, resp)
}

var errBadLeaderboardQuery = fmt.Errorf("bad leaderboard query")

// maxLeaderboardSize caps how many rows one board query materializes.
const maxLeaderboardSize = 100

func (h *LeaderboardHandler) loadRows(ctx context.Context, metric, scope string, caller *models.Member, limit int) ([]leaderboardRow, error) {
	// Keys must line up with service.LeaderboardCacheKeys so ledger commits
	// invalidate them. The cached slice is always maxLeaderboardSize rows;
	// smaller requests slice it.
	key := fmt.Sprintf("leaderboard:%s:%s", metric, scope)
	if scope == "community" {
		key = fmt.Sprintf("leaderboard:%s:community:%d", metric, caller.CommunityID)
	}

	if cached, ok, _ := h.cache.Get(ctx, key); ok {
		var rows []leaderboardRow
		if json.Unmarshal([]byte(cached), &rows) == nil {
			if len(rows) > limit {
				rows = rows[:limit]
			}
			return rows, nil
		}
	}

	var members []models.Member
	var err error
	switch {
	case metric == "earnings" && scope == "global":
		members, err = h.rankingRepo.TopByEarnings(maxLeaderboardSize)
	case metric == "referrals" && scope == "global":
		members, err = h.rankingRepo.TopByReferrals(maxLeaderboardSize)
	case metric == "earnings" && scope == "community":
		members, err = h.rankingRepo.TopInCommunity(caller.CommunityID, maxLeaderboardSize)
	default:
		return nil, errBadLeaderboardQuery
	}
	if err != nil {
		return nil, err
	}

	rows := make([]leaderboardRow, 0, len(members))
	for i := range members {
		m := &members[i]
		row := leaderboardRow{MemberID: m.ID, Name: m.Name}
		switch metric {
		case "earnings":
			row.Metric = m.LifetimeEarningsCents
		case "referrals":
			row.Metric = int64(m.TotalReferred)
		}
		switch {
		case metric == "earnings" && scope == "global":
			row.Rank = m.GlobalEarningsRank
		case metric == "referrals" && scope == "global":
			row.Rank = m.GlobalReferralsRank
		default:
			row.Rank = m.CommunityRank
		}
		rows = append(rows, row)
	}

	if buf, merr := json.Marshal(rows); merr == nil {
		_ = h.cache.Set(ctx, key, string(buf), h.cfg.Referral.LeaderboardTTL)
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (h *LeaderboardHandler) yourRank(metric, scope string, caller *models.Member) int {
	switch {
	case metric == "earnings" && scope == "global":
		return caller.GlobalEarningsRank
	case metric == "referrals" && scope == "global":
		return caller.GlobalReferralsRank
	default:
		return caller.CommunityRank
	}
}
