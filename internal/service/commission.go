package service

import (
	"errors"
	"math"

	"referly/internal/domain"
	"referly/internal/models"
)

// ErrInvalidAmount rejects sale amounts that are negative, non-finite, or
// above the hard ceiling. Validation happens before any persistence.
var ErrInvalidAmount = errors.New("invalid sale amount")

// Split is the fixed three-way division of a sale.
type Split struct {
	MemberShareCents   int64
	CreatorShareCents  int64
	PlatformShareCents int64
}

// CentsFromAmount converts a decimal sale amount (major units) to minor
// units, rejecting anything that cannot be a valid sale.
func CentsFromAmount(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return 0, ErrInvalidAmount
	}
	// Bound in float space before converting: a huge finite amount would
	// overflow the int64 conversion and slip past a post-conversion check.
	if amount*100 > float64(domain.MaxSaleCents) {
		return 0, ErrInvalidAmount
	}
	return int64(math.Round(amount * 100)), nil
}

// ValidateSaleCents applies the same hard boundary to amounts already in
// minor units.
func ValidateSaleCents(cents int64) error {
	if cents < 0 || cents > domain.MaxSaleCents {
		return ErrInvalidAmount
	}
	return nil
}

// ComputeSplit divides a sale between referrer, creator, and platform.
// The member and platform shares are rounded independently to the minor
// unit; the creator share absorbs whatever remainder rounding produced, so
// the three always sum back to the sale amount exactly.
//
// Pure function, no side effects.
func ComputeSplit(saleCents int64, memberRatePercent float64) (Split, error) {
	if err := ValidateSaleCents(saleCents); err != nil {
		return Split{}, err
	}
	member := roundShare(saleCents, memberRatePercent)
	platform := roundShare(saleCents, domain.PlatformRatePercent)
	return Split{
		MemberShareCents:   member,
		PlatformShareCents: platform,
		CreatorShareCents:  saleCents - member - platform,
	}, nil
}

func roundShare(saleCents int64, ratePercent float64) int64 {
	return int64(math.Round(float64(saleCents) * ratePercent / 100))
}

// ResolveRate picks the commission rate for a referrer: an active custom
// rate always wins; otherwise the tier with the highest threshold not
// exceeding the paid-referral count applies. Tiers must be ordered by
// ascending MinPaidReferrals, as TierRepository.ListTiers returns them.
func ResolveRate(paidReferrals int, tiers []models.CommissionTier, custom *models.CustomRate) (float64, string) {
	if custom != nil {
		return custom.RatePercent, "custom"
	}
	rate := 0.0
	name := ""
	for _, t := range tiers {
		if paidReferrals >= t.MinPaidReferrals {
			rate = t.RatePercent
			name = t.TierName
		}
	}
	return rate, name
}

// ResolveTierName is ResolveRate without the custom-rate override, for
// keeping Member.CurrentTier in step with the paid-referral count.
func ResolveTierName(paidReferrals int, tiers []models.CommissionTier) string {
	_, name := ResolveRate(paidReferrals, tiers, nil)
	return name
}
