package service

import (
	"errors"
	"log"
	"time"

	"referly/internal/domain"
	"referly/internal/models"
	"referly/internal/repository"
	"referly/pkg/privacy"
)

// AttributionService records referral-link clicks and resolves signups to
// the click that earned them.
type AttributionService struct {
	clickRepo  *repository.ClickRepository
	memberRepo *repository.MemberRepository
	hasher     *privacy.Hasher
}

func NewAttributionService(
	clickRepo *repository.ClickRepository,
	memberRepo *repository.MemberRepository,
	hasher *privacy.Hasher,
) *AttributionService {
	return &AttributionService{
		clickRepo:  clickRepo,
		memberRepo: memberRepo,
		hasher:     hasher,
	}
}

// TrackClick records one click against a referral code. The raw origin is
// hashed before persistence and never stored. Unknown codes are dropped
// silently; a tracking endpoint must not leak which codes exist.
func (s *AttributionService) TrackClick(code, fingerprint, rawOrigin string) error {
	if _, err := s.memberRepo.GetByReferralCode(code); err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil
		}
		return err
	}
	now := time.Now()
	return s.clickRepo.Create(&models.AttributionClick{
		ReferralCode: code,
		Fingerprint:  fingerprint,
		OriginHash:   s.hasher.HashOrigin(rawOrigin),
		CreatedAt:    now,
		ExpiresAt:    now.Add(domain.AttributionWindow),
	})
}

// SignupEvent is the inbound signup-created notification after transport
// verification.
type SignupEvent struct {
	MembershipID string
	Email        string
	Name         string
	ReferredBy   string
	SignupTime   time.Time
	CommunityID  uint
}

// ResolveSignup creates the member and, when a referral code was presented,
// marks the closest preceding open click converted. A signup with a code
// but no open click in the window is still recorded as referred: the code
// on the signup is authoritative for counting referrals, and the missing
// click is left for the reconciler to flag.
func (s *AttributionService) ResolveSignup(ev SignupEvent, saleCents int64) (*models.Member, error) {
	if ev.SignupTime.IsZero() {
		ev.SignupTime = time.Now()
	}

	origin := domain.OriginOrganic
	if ev.ReferredBy != "" {
		if _, err := s.memberRepo.GetByReferralCode(ev.ReferredBy); err == nil {
			origin = domain.OriginReferred
		} else if !errors.Is(err, repository.ErrMemberNotFound) {
			return nil, err
		}
	}

	member := &models.Member{
		UpstreamMembershipID: ev.MembershipID,
		Name:                 ev.Name,
		Email:                ev.Email,
		Role:                 domain.RoleMember,
		MemberOrigin:         origin,
		CommunityID:          ev.CommunityID,
		CreatedAt:            ev.SignupTime,
	}
	if origin == domain.OriginReferred {
		member.ReferredBy = ev.ReferredBy
	}
	if err := s.memberRepo.CreateWithCode(member); err != nil {
		return nil, err
	}

	if origin == domain.OriginReferred {
		if err := s.convertClick(ev.ReferredBy, ev.SignupTime, saleCents); err != nil {
			// Accepted policy gap, not an error: the signup stands.
			log.Printf("[attribution] no click converted for code %s: %v", ev.ReferredBy, err)
		}
	}
	return member, nil
}

func (s *AttributionService) convertClick(code string, at time.Time, valueCents int64) error {
	click, err := s.clickRepo.FindConvertible(code, at)
	if err != nil {
		return err
	}
	return s.clickRepo.MarkConverted(click.ID, at, valueCents)
}
