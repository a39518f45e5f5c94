package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"referly/config"
	"referly/internal/database"
	"referly/internal/jobs"
	"referly/internal/repository"
	"referly/internal/service"

	"github.com/hibiken/asynq"
)

// The worker owns everything that must not run in the request path: rank
// recomputation, the reconciliation sweep, and the monthly counter reset.
func main() {
	cfg := config.Load()
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	memberRepo := repository.NewMemberRepository(db)
	clickRepo := repository.NewClickRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	tierRepo := repository.NewTierRepository(db)
	rankingRepo := repository.NewRankingRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	rankingSvc := service.NewRankingService(rankingRepo)
	verifierSvc := service.NewVerifierService(memberRepo, commissionRepo, clickRepo, rankingRepo, tierRepo, auditRepo, db)
	handlers := jobs.NewHandlers(rankingSvc, verifierSvc, memberRepo, auditRepo)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 4,
		Queues:      map[string]int{"default": 1},
	})
	mux := asynq.NewServeMux()
	handlers.Register(mux)

	scheduler := asynq.NewScheduler(redisOpt, nil)
	register := func(spec, taskType string) {
		if _, err := scheduler.Register(spec, asynq.NewTask(taskType, nil)); err != nil {
			log.Fatalf("schedule %s: %v", taskType, err)
		}
	}
	register("@every 10m", jobs.TypeRankingRecompute)
	register("@every 1h", jobs.TypeReconcileSweep)
	register("0 0 1 * *", jobs.TypeMonthlyReset)

	go func() {
		if err := scheduler.Run(); err != nil {
			log.Fatalf("scheduler: %v", err)
		}
	}()
	go func() {
		if err := srv.Run(mux); err != nil {
			log.Fatalf("worker: %v", err)
		}
	}()
	log.Println("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("worker shutting down...")
	scheduler.Shutdown()
	srv.Shutdown()
}
