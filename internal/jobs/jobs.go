// Package jobs defines the background work that runs outside the request
// path: rank recomputation, the reconciliation sweep, and the monthly
// counter reset. Tasks go through asynq so the worker can run separately
// from the API and retries are handled for us.
package jobs

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"referly/internal/models"
	"referly/internal/repository"
	"referly/internal/service"

	"github.com/hibiken/asynq"
)

const (
	TypeRankingRecompute = "ranking:recompute"
	TypeReconcileSweep   = "reconcile:sweep"
	TypeMonthlyReset     = "counters:reset_monthly"
)

// Enqueuer pushes tasks from the API process. It satisfies
// service.RankScheduler.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(redisAddr, redisPassword string, redisDB int) *Enqueuer {
	return &Enqueuer{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     redisAddr,
			Password: redisPassword,
			DB:       redisDB,
		}),
	}
}

// EnqueueRankRecompute schedules a rank rebuild. Unique-for collapses the
// burst of enqueues a busy ledger produces into one pending task.
func (e *Enqueuer) EnqueueRankRecompute() error {
	task := asynq.NewTask(TypeRankingRecompute, nil)
	_, err := e.client.Enqueue(task,
		asynq.Unique(time.Minute),
		asynq.MaxRetry(3),
	)
	if err != nil && err != asynq.ErrDuplicateTask {
		return err
	}
	return nil
}

func (e *Enqueuer) Close() error { return e.client.Close() }

// Handlers processes the background task types. Registered on the worker's
// ServeMux.
type Handlers struct {
	ranking    *service.RankingService
	verifier   *service.VerifierService
	memberRepo *repository.MemberRepository
	auditRepo  *repository.AuditLogRepository
}

func NewHandlers(
	ranking *service.RankingService,
	verifier *service.VerifierService,
	memberRepo *repository.MemberRepository,
	auditRepo *repository.AuditLogRepository,
) *Handlers {
	return &Handlers{
		ranking:    ranking,
		verifier:   verifier,
		memberRepo: memberRepo,
		auditRepo:  auditRepo,
	}
}

func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeRankingRecompute, h.HandleRankingRecompute)
	mux.HandleFunc(TypeReconcileSweep, h.HandleReconcileSweep)
	mux.HandleFunc(TypeMonthlyReset, h.HandleMonthlyReset)
}

func (h *Handlers) HandleRankingRecompute(ctx context.Context, _ *asynq.Task) error {
	return h.ranking.RecomputeAll()
}

// HandleReconcileSweep runs the verifier and logs the report. Divergences
// are reported, never silently corrected here; Repair stays a deliberate
// operator action.
func (h *Handlers) HandleReconcileSweep(ctx context.Context, _ *asynq.Task) error {
	report, err := h.verifier.Run()
	if err != nil {
		return err
	}
	if report.Clean() {
		log.Printf("[reconcile] clean: %d members checked", report.MembersChecked)
		return nil
	}
	detail, _ := json.Marshal(report.Divergences)
	log.Printf("[reconcile] %d divergences across %d members: %s",
		len(report.Divergences), report.MembersChecked, detail)
	return h.auditRepo.Create(&models.AuditLog{
		Action:   "reconcile_report",
		Resource: "ledger",
		Detail:   string(detail),
	})
}

func (h *Handlers) HandleMonthlyReset(ctx context.Context, _ *asynq.Task) error {
	n, err := h.memberRepo.ResetMonthlyCounters()
	if err != nil {
		return err
	}
	log.Printf("[jobs] monthly counters reset for %d members", n)
	return h.auditRepo.Create(&models.AuditLog{
		Action:   "monthly_counter_reset",
		Resource: "member",
		Detail:   time.Now().UTC().Format("2006-01"),
	})
}
