package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"referly/internal/domain"
	"referly/internal/models"
	"referly/internal/repository"
)

// ErrNoReferrer marks a payment with no referral relationship: nothing to
// ledger, not a failure.
var ErrNoReferrer = errors.New("payment has no referrer")

// Invalidator removes cached read models after a ledger commit.
// cache.Cache satisfies it.
type Invalidator interface {
	Delete(ctx context.Context, keys ...string) error
}

// RankScheduler requests an asynchronous rank recompute. The asynq
// enqueuer in internal/jobs satisfies it; nil disables scheduling.
type RankScheduler interface {
	EnqueueRankRecompute() error
}

// PaymentEvent is the inbound payment-succeeded notification after
// transport verification. AmountCents is already validated decimal→minor
// unit conversion output.
type PaymentEvent struct {
	PaymentID    string
	MembershipID string
	AmountCents  int64
	PaymentType  string // initial | recurring
	ReferredBy   string // present on signup payments; empty on recurring
	CreatorID    uint
}

// LedgerService turns payment events into commission records and keeps the
// referrer's aggregates in step. All writes funnel through
// CommissionRepository's single-transaction paths.
type LedgerService struct {
	commissionRepo *repository.CommissionRepository
	memberRepo     *repository.MemberRepository
	tierRepo       *repository.TierRepository
	auditRepo      *repository.AuditLogRepository
	cache          Invalidator
	ranks          RankScheduler
}

func NewLedgerService(
	commissionRepo *repository.CommissionRepository,
	memberRepo *repository.MemberRepository,
	tierRepo *repository.TierRepository,
	auditRepo *repository.AuditLogRepository,
	cache Invalidator,
	ranks RankScheduler,
) *LedgerService {
	return &LedgerService{
		commissionRepo: commissionRepo,
		memberRepo:     memberRepo,
		tierRepo:       tierRepo,
		auditRepo:      auditRepo,
		cache:          cache,
		ranks:          ranks,
	}
}

// RecordPayment computes the split and persists one commission for the
// payment, exactly once. The bool reports an idempotent replay: the
// payment id was already ledgered and the prior record is returned
// unchanged.
func (s *LedgerService) RecordPayment(ev PaymentEvent) (*models.Commission, bool, error) {
	if err := ValidateSaleCents(ev.AmountCents); err != nil {
		return nil, false, err
	}
	if ev.PaymentType != domain.PaymentTypeInitial && ev.PaymentType != domain.PaymentTypeRecurring {
		return nil, false, fmt.Errorf("unknown payment type %q", ev.PaymentType)
	}

	referrer, err := s.resolveReferrer(ev)
	if err != nil {
		return nil, false, err
	}

	custom, err := s.tierRepo.GetCustomRate(referrer.ID)
	if err != nil {
		return nil, false, err
	}
	tiers, err := s.tierRepo.ListTiers()
	if err != nil {
		return nil, false, err
	}
	rate, _ := ResolveRate(referrer.TotalReferred, tiers, custom)

	split, err := ComputeSplit(ev.AmountCents, rate)
	if err != nil {
		return nil, false, err
	}

	cm := &models.Commission{
		UpstreamPaymentID:    ev.PaymentID,
		UpstreamMembershipID: ev.MembershipID,
		SaleAmountCents:      ev.AmountCents,
		MemberShareCents:     split.MemberShareCents,
		CreatorShareCents:    split.CreatorShareCents,
		PlatformShareCents:   split.PlatformShareCents,
		RatePercent:          rate,
		PaymentType:          ev.PaymentType,
		Status:               domain.CommissionStatusPaid,
		ReferrerMemberID:     referrer.ID,
		CreatorID:            ev.CreatorID,
	}
	if err := s.commissionRepo.RecordWithCounters(cm); err != nil {
		if errors.Is(err, repository.ErrDuplicatePayment) {
			return cm, true, nil
		}
		return nil, false, err
	}

	if ev.PaymentType == domain.PaymentTypeInitial {
		s.refreshTier(referrer.ID, referrer.TotalReferred+1, referrer.CurrentTier, tiers)
	}
	s.audit(referrer.ID, "commission_recorded", ev.PaymentID,
		fmt.Sprintf("sale=%d member=%d creator=%d platform=%d rate=%.2f type=%s",
			ev.AmountCents, split.MemberShareCents, split.CreatorShareCents,
			split.PlatformShareCents, rate, ev.PaymentType))
	s.afterCommit(referrer.ID, referrer.CommunityID)
	return cm, false, nil
}

// ReversePayment handles a refund: the commission flips paid -> reversed
// and the counters are decremented by exactly what was added.
func (s *LedgerService) ReversePayment(paymentID string) (*models.Commission, error) {
	cm, err := s.commissionRepo.ReverseWithCounters(paymentID, time.Now())
	if err != nil {
		return nil, err
	}

	communityID := uint(0)
	if referrer, rerr := s.memberRepo.GetByID(cm.ReferrerMemberID); rerr == nil {
		communityID = referrer.CommunityID
		if cm.PaymentType == domain.PaymentTypeInitial {
			if tiers, terr := s.tierRepo.ListTiers(); terr == nil {
				s.refreshTier(referrer.ID, referrer.TotalReferred, referrer.CurrentTier, tiers)
			}
		}
	}
	s.audit(cm.ReferrerMemberID, "commission_reversed", paymentID,
		fmt.Sprintf("member_share=%d type=%s", cm.MemberShareCents, cm.PaymentType))
	s.afterCommit(cm.ReferrerMemberID, communityID)
	return cm, nil
}

// resolveReferrer finds who earns the commission: the explicit referredBy
// code on the event, or the payer's stored referrer on recurring payments.
func (s *LedgerService) resolveReferrer(ev PaymentEvent) (*models.Member, error) {
	code := ev.ReferredBy
	if code == "" {
		payer, err := s.memberRepo.GetByMembershipID(ev.MembershipID)
		if err != nil {
			if errors.Is(err, repository.ErrMemberNotFound) {
				return nil, ErrNoReferrer
			}
			return nil, err
		}
		code = payer.ReferredBy
	}
	if code == "" {
		return nil, ErrNoReferrer
	}
	return s.memberRepo.GetByReferralCode(code)
}

// refreshTier re-resolves CurrentTier after the paid-referral count moved.
// TotalReferred on the loaded row predates the counter update, so the
// caller passes the effective count.
func (s *LedgerService) refreshTier(memberID uint, paidReferrals int, currentTier string, tiers []models.CommissionTier) {
	name := ResolveTierName(paidReferrals, tiers)
	if name == "" || name == currentTier {
		return
	}
	if err := s.memberRepo.UpdateTier(memberID, name); err != nil {
		log.Printf("[ledger] tier refresh failed for member %d: %v", memberID, err)
	}
}

func (s *LedgerService) audit(memberID uint, action, paymentID, detail string) {
	if s.auditRepo == nil {
		return
	}
	if err := s.auditRepo.Create(&models.AuditLog{
		MemberID:   &memberID,
		Action:     action,
		Resource:   "commission",
		ResourceID: paymentID,
		Detail:     detail,
	}); err != nil {
		log.Printf("[ledger] audit write failed: %v", err)
	}
}

// afterCommit invalidates cached read models and schedules a rank
// recompute. Both are best-effort: the ledger write already committed.
func (s *LedgerService) afterCommit(memberID, communityID uint) {
	if s.cache != nil {
		if err := s.cache.Delete(context.Background(), LeaderboardCacheKeys(memberID, communityID)...); err != nil {
			log.Printf("[ledger] cache invalidation failed: %v", err)
		}
	}
	if s.ranks != nil {
		if err := s.ranks.EnqueueRankRecompute(); err != nil {
			log.Printf("[ledger] rank recompute enqueue failed: %v", err)
		}
	}
}

// StatsCacheKey is where StatsHandler caches one member's aggregate view.
func StatsCacheKey(memberID uint) string {
	return fmt.Sprintf("stats:member:%d", memberID)
}

// LeaderboardCacheKeys lists every cache key a ledger commit for the given
// member can stale out. CommunityID 0 means the member has no community;
// the key it produces is never read, deleting it is a no-op.
func LeaderboardCacheKeys(memberID, communityID uint) []string {
	return []string{
		"leaderboard:earnings:global",
		"leaderboard:referrals:global",
		fmt.Sprintf("leaderboard:earnings:community:%d", communityID),
		StatsCacheKey(memberID),
	}
}
