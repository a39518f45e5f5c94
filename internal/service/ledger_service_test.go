package service

import (
	"context"
	"testing"

	"referly/internal/domain"
	"referly/internal/models"
	"referly/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type ledgerFixture struct {
	db       *gorm.DB
	svc      *LedgerService
	referrer *models.Member
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	db := newTestDB(t)
	commissionRepo := repository.NewCommissionRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	tierRepo := repository.NewTierRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	svc := NewLedgerService(commissionRepo, memberRepo, tierRepo, auditRepo, nil, nil)

	referrer := &models.Member{
		UpstreamMembershipID: "mem_referrer",
		Name:                 "Jane",
		Email:                "jane@example.com",
		Role:                 domain.RoleMember,
		ReferralCode:         "JANE-AB12CD",
		CurrentTier:          "starter",
	}
	require.NoError(t, db.Create(referrer).Error)
	return &ledgerFixture{db: db, svc: svc, referrer: referrer}
}

func (f *ledgerFixture) reload(t *testing.T) *models.Member {
	t.Helper()
	var m models.Member
	require.NoError(t, f.db.First(&m, f.referrer.ID).Error)
	return &m
}

func initialPayment(id string, cents int64) PaymentEvent {
	return PaymentEvent{
		PaymentID:    id,
		MembershipID: "mem_new",
		AmountCents:  cents,
		PaymentType:  domain.PaymentTypeInitial,
		ReferredBy:   "JANE-AB12CD",
	}
}

func TestRecordPayment_SplitAndCounters(t *testing.T) {
	f := newLedgerFixture(t)

	cm, duplicate, err := f.svc.RecordPayment(initialPayment("pay_1", 4999))
	require.NoError(t, err)
	require.False(t, duplicate)

	assert.Equal(t, int64(500), cm.MemberShareCents)
	assert.Equal(t, int64(1000), cm.PlatformShareCents)
	assert.Equal(t, int64(3499), cm.CreatorShareCents)
	assert.Equal(t, cm.SaleAmountCents, cm.MemberShareCents+cm.CreatorShareCents+cm.PlatformShareCents)
	assert.Equal(t, domain.CommissionStatusPaid, cm.Status)

	m := f.reload(t)
	assert.Equal(t, int64(500), m.LifetimeEarningsCents)
	assert.Equal(t, int64(500), m.MonthlyEarningsCents)
	assert.Equal(t, 1, m.TotalReferred)
	assert.Equal(t, 1, m.MonthlyReferred)
}

func TestRecordPayment_IdempotentReplay(t *testing.T) {
	f := newLedgerFixture(t)

	first, duplicate, err := f.svc.RecordPayment(initialPayment("pay_dup", 4999))
	require.NoError(t, err)
	require.False(t, duplicate)

	replay, duplicate, err := f.svc.RecordPayment(initialPayment("pay_dup", 4999))
	require.NoError(t, err)
	assert.True(t, duplicate)
	assert.Equal(t, first.ID, replay.ID)

	var count int64
	require.NoError(t, f.db.Model(&models.Commission{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// Counter increment applied exactly once.
	m := f.reload(t)
	assert.Equal(t, int64(500), m.LifetimeEarningsCents)
	assert.Equal(t, 1, m.TotalReferred)
}

func TestRecordPayment_RecurringDoesNotCountReferral(t *testing.T) {
	f := newLedgerFixture(t)

	// The referred member exists so recurring payments resolve through its
	// stored referrer.
	require.NoError(t, f.db.Create(&models.Member{
		UpstreamMembershipID: "mem_new",
		Name:                 "Bob",
		Email:                "bob@example.com",
		ReferralCode:         "BOB-XY34ZW",
		ReferredBy:           "JANE-AB12CD",
		MemberOrigin:         domain.OriginReferred,
	}).Error)

	_, _, err := f.svc.RecordPayment(initialPayment("pay_first", 4999))
	require.NoError(t, err)

	recurring := PaymentEvent{
		PaymentID:    "pay_second",
		MembershipID: "mem_new",
		AmountCents:  4999,
		PaymentType:  domain.PaymentTypeRecurring,
	}
	_, duplicate, err := f.svc.RecordPayment(recurring)
	require.NoError(t, err)
	require.False(t, duplicate)

	m := f.reload(t)
	assert.Equal(t, int64(1000), m.LifetimeEarningsCents, "earnings accrue on both payment types")
	assert.Equal(t, 1, m.TotalReferred, "only the initial payment counts a referral")
	assert.Equal(t, 1, m.MonthlyReferred)
}

func TestRecordPayment_CustomRateOverridesTier(t *testing.T) {
	f := newLedgerFixture(t)
	require.NoError(t, f.db.Create(&models.CustomRate{
		MemberID:    f.referrer.ID,
		RatePercent: 25,
		Reason:      "launch partner",
		SetByID:     1,
	}).Error)

	cm, _, err := f.svc.RecordPayment(initialPayment("pay_custom", 10000))
	require.NoError(t, err)
	assert.Equal(t, int64(2500), cm.MemberShareCents)
	assert.Equal(t, 25.0, cm.RatePercent)
}

func TestRecordPayment_TierRateByReferralCount(t *testing.T) {
	f := newLedgerFixture(t)
	require.NoError(t, f.db.Model(&models.Member{}).
		Where("id = ?", f.referrer.ID).
		UpdateColumn("total_referred", 50).Error)

	cm, _, err := f.svc.RecordPayment(initialPayment("pay_tier", 10000))
	require.NoError(t, err)
	assert.Equal(t, int64(1500), cm.MemberShareCents, "50 paid referrals resolves the ambassador rate")

	m := f.reload(t)
	assert.Equal(t, "ambassador", m.CurrentTier)
}

func TestRecordPayment_RejectsInvalidAmount(t *testing.T) {
	f := newLedgerFixture(t)

	for _, cents := range []int64{-1, 1_000_001} {
		_, _, err := f.svc.RecordPayment(initialPayment("pay_bad", cents))
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
	var count int64
	require.NoError(t, f.db.Model(&models.Commission{}).Count(&count).Error)
	assert.Zero(t, count, "nothing persisted for rejected amounts")
}

func TestRecordPayment_UnknownReferrerCode(t *testing.T) {
	f := newLedgerFixture(t)
	ev := initialPayment("pay_unknown", 4999)
	ev.ReferredBy = "NOBODY-000000"
	_, _, err := f.svc.RecordPayment(ev)
	assert.ErrorIs(t, err, repository.ErrMemberNotFound)
}

func TestRecordPayment_NoReferrer(t *testing.T) {
	f := newLedgerFixture(t)
	ev := PaymentEvent{
		PaymentID:    "pay_organic",
		MembershipID: "mem_unknown",
		AmountCents:  4999,
		PaymentType:  domain.PaymentTypeInitial,
	}
	_, _, err := f.svc.RecordPayment(ev)
	assert.ErrorIs(t, err, ErrNoReferrer)
}

func TestReversePayment_DecrementsExactly(t *testing.T) {
	f := newLedgerFixture(t)

	_, _, err := f.svc.RecordPayment(initialPayment("pay_keep", 10000))
	require.NoError(t, err)
	_, _, err = f.svc.RecordPayment(initialPayment("pay_refund", 4999))
	require.NoError(t, err)

	cm, err := f.svc.ReversePayment("pay_refund")
	require.NoError(t, err)
	assert.Equal(t, domain.CommissionStatusReversed, cm.Status)
	require.NotNil(t, cm.ReversedAt)

	m := f.reload(t)
	assert.Equal(t, int64(1000), m.LifetimeEarningsCents, "only the kept payment remains")
	assert.Equal(t, 1, m.TotalReferred)

	// Refund redelivery must not double-decrement.
	_, err = f.svc.ReversePayment("pay_refund")
	assert.ErrorIs(t, err, repository.ErrAlreadyReversed)
	m = f.reload(t)
	assert.Equal(t, int64(1000), m.LifetimeEarningsCents)
}

func TestReversePayment_UnknownPayment(t *testing.T) {
	f := newLedgerFixture(t)
	_, err := f.svc.ReversePayment("pay_missing")
	assert.ErrorIs(t, err, repository.ErrCommissionNotFound)
}

type keyRecorder struct {
	deleted []string
}

func (r *keyRecorder) Delete(_ context.Context, keys ...string) error {
	r.deleted = append(r.deleted, keys...)
	return nil
}

func TestLedger_InvalidatesReadCachesOnCommit(t *testing.T) {
	f := newLedgerFixture(t)
	require.NoError(t, f.db.Model(f.referrer).UpdateColumn("community_id", 7).Error)

	rec := &keyRecorder{}
	svc := NewLedgerService(
		repository.NewCommissionRepository(f.db),
		repository.NewMemberRepository(f.db),
		repository.NewTierRepository(f.db),
		repository.NewAuditLogRepository(f.db),
		rec, nil,
	)

	_, _, err := svc.RecordPayment(initialPayment("pay_cache", 4999))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"leaderboard:earnings:global",
		"leaderboard:referrals:global",
		"leaderboard:earnings:community:7",
		StatsCacheKey(f.referrer.ID),
	}, rec.deleted, "every key a commit can stale out gets dropped")

	rec.deleted = nil
	_, err = svc.ReversePayment("pay_cache")
	require.NoError(t, err)
	assert.Contains(t, rec.deleted, "leaderboard:earnings:community:7")
	assert.Contains(t, rec.deleted, StatsCacheKey(f.referrer.ID))
}
