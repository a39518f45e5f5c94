package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"referly/config"
	"referly/internal/cache"
	"referly/internal/middleware"
	"referly/internal/models"
	"referly/internal/repository"
	"referly/internal/service"

	"github.com/gin-gonic/gin"
)

// StatsHandler serves the read-only member aggregate surfaces. Aggregates
// are never written here; mutation is the ledger's job.
type StatsHandler struct {
	memberRepo     *repository.MemberRepository
	commissionRepo *repository.CommissionRepository
	tierRepo       *repository.TierRepository
	cache          cache.Cache
	cfg            *config.Config
}

func NewStatsHandler(
	memberRepo *repository.MemberRepository,
	commissionRepo *repository.CommissionRepository,
	tierRepo *repository.TierRepository,
	c cache.Cache,
	cfg *config.Config,
) *StatsHandler {
	return &StatsHandler{
		memberRepo:     memberRepo,
		commissionRepo: commissionRepo,
		tierRepo:       tierRepo,
		cache:          c,
		cfg:            cfg,
	}
}

// GetStats returns the caller's aggregates, tier, and rank movement. Reads
// go through the cache under the same key the ledger invalidates on
// commit, so a fresh view follows a payout within one request.
func (h *StatsHandler) GetStats(c *gin.Context) {
	memberID := middleware.GetMemberID(c)
	key := service.StatsCacheKey(memberID)
	if cached, ok, _ := h.cache.Get(c.Request.Context(), key); ok {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
		return
	}

	m, err := h.memberRepo.GetByID(memberID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	custom, _ := h.tierRepo.GetCustomRate(m.ID)

	resp := gin.H{
		"member_id":               m.ID,
		"referral_code":           m.ReferralCode,
		"lifetime_earnings_cents": m.LifetimeEarningsCents,
		"monthly_earnings_cents":  m.MonthlyEarningsCents,
		"total_referred":          m.TotalReferred,
		"monthly_referred":        m.MonthlyReferred,
		"current_tier":            m.CurrentTier,
		"ranks": gin.H{
			"global_earnings":  rankView(m.GlobalEarningsRank, m.PrevGlobalEarningsRank),
			"global_referrals": rankView(m.GlobalReferralsRank, m.PrevGlobalReferralsRank),
			"community":        rankView(m.CommunityRank, m.PrevCommunityRank),
		},
	}
	if custom != nil {
		resp["custom_rate_percent"] = custom.RatePercent
	}
	if buf, merr := json.Marshal(resp); merr == nil {
		_ = h.cache.Set(c.Request.Context(), key, string(buf), h.cfg.Referral.StatsTTL)
		c.Data(http.StatusOK, "application/json; charset=utf-8", buf)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// rankView derives movement direction from the stored previous rank. Rank
// 0 means "not yet ranked".
func rankView(current, prev int) gin.H {
	delta := 0
	if current > 0 && prev > 0 {
		delta = prev - current // positive = climbed
	}
	return gin.H{"rank": current, "previous": prev, "delta": delta}
}

// GetCommissions returns the caller's commission history bucketed by day
// for windows up to 90 days and by month for the year window.
func (h *StatsHandler) GetCommissions(c *gin.Context) {
	memberID := middleware.GetMemberID(c)
	cutoff, monthly, err := service.HistoryWindow(c.Query("window"), time.Now())
	if err != nil {
		if errors.Is(err, service.ErrUnknownWindow) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "window must be one of 30d, 90d, 1y"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history error"})
		return
	}
	list, err := h.commissionRepo.ListByReferrer(memberID, cutoff)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"window":  c.DefaultQuery("window", "30d"),
		"buckets": service.BucketCommissions(list, monthly),
	})
}

// GetReferrals lists the members the caller referred.
func (h *StatsHandler) GetReferrals(c *gin.Context) {
	m, err := h.memberRepo.GetByID(middleware.GetMemberID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	list, err := h.memberRepo.ListReferredBy(m.ReferralCode, 100, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "referrals error"})
		return
	}
	out := make([]gin.H, 0, len(list))
	for i := range list {
		out = append(out, referredView(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{"referrals": out, "total": m.TotalReferred})
}

func referredView(m *models.Member) gin.H {
	return gin.H{
		"member_id": m.ID,
		"name":      m.Name,
		"joined_at": m.CreatedAt,
	}
}
