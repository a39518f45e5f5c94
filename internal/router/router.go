package router

import (
	"time"

	"referly/config"
	"referly/internal/cache"
	"referly/internal/domain"
	"referly/internal/handler"
	"referly/internal/middleware"
	"referly/internal/repository"
	"referly/internal/service"
	"referly/pkg/privacy"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB, readCache cache.Cache, ranks service.RankScheduler) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())

	// Repositories
	memberRepo := repository.NewMemberRepository(db)
	clickRepo := repository.NewClickRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	tierRepo := repository.NewTierRepository(db)
	rankingRepo := repository.NewRankingRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Services
	hasher := privacy.NewHasher(cfg.Referral.OriginSalt)
	attributionSvc := service.NewAttributionService(clickRepo, memberRepo, hasher)
	ledgerSvc := service.NewLedgerService(commissionRepo, memberRepo, tierRepo, auditRepo, readCache, ranks)

	// Handlers
	clickHandler := handler.NewClickHandler(attributionSvc, cfg)
	paymentWebhookHandler := handler.NewPaymentWebhookHandler(ledgerSvc, cfg)
	signupWebhookHandler := handler.NewSignupWebhookHandler(attributionSvc, cfg)
	statsHandler := handler.NewStatsHandler(memberRepo, commissionRepo, tierRepo, readCache, cfg)
	leaderboardHandler := handler.NewLeaderboardHandler(rankingRepo, memberRepo, readCache, cfg)
	rateHandler := handler.NewRateHandler(tierRepo, memberRepo, auditRepo)

	authMw := middleware.AuthRequired(&cfg.JWT)
	rateLimitMw := middleware.RateLimit(middleware.NewInMemoryRateLimiter(100, 60*time.Second))

	// Click tracking sits outside the API group: referral links are shared
	// publicly and must stay short.
	r.GET("/r/:code", clickHandler.Redirect)

	api := r.Group("/api/v1")
	{
		// Webhooks are exempt from the client rate limit; the upstream
		// platform batches redeliveries.
		webhooks := api.Group("/webhooks")
		{
			webhooks.POST("/payment", paymentWebhookHandler.Handle)
			webhooks.POST("/signup", signupWebhookHandler.Handle)
		}

		me := api.Group("/me")
		me.Use(rateLimitMw, authMw)
		{
			me.GET("/stats", statsHandler.GetStats)
			me.GET("/commissions", statsHandler.GetCommissions)
			me.GET("/referrals", statsHandler.GetReferrals)
		}

		api.GET("/leaderboard", rateLimitMw, authMw, leaderboardHandler.Get)

		creator := api.Group("/creator")
		creator.Use(rateLimitMw, authMw, middleware.RequireRole(domain.RoleCreator))
		{
			creator.PUT("/members/:id/rate", rateHandler.Set)
			creator.DELETE("/members/:id/rate", rateHandler.Clear)
		}
	}

	return r
}
