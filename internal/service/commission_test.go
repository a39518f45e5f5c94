package service

import (
	"errors"
	"math"
	"testing"

	"referly/internal/models"
)

func defaultTiers() []models.CommissionTier {
	return []models.CommissionTier{
		{TierName: "starter", MinPaidReferrals: 0, RatePercent: 10},
		{TierName: "ambassador", MinPaidReferrals: 50, RatePercent: 15},
		{TierName: "elite", MinPaidReferrals: 100, RatePercent: 18},
	}
}

func TestComputeSplit_SumsExactly(t *testing.T) {
	cases := []struct {
		name      string
		saleCents int64
		rate      float64
		member    int64
		platform  int64
	}{
		// 49.99 at starter 10%: member 4.999 rounds to 5.00, platform
		// 9.998 rounds to 10.00, creator absorbs the remainder.
		{"typical sale 49.99 at 10%", 4999, 10, 500, 1000},
		{"whole amount", 10000, 10, 1000, 2000},
		{"one cent", 1, 15, 0, 0},
		{"zero sale", 0, 10, 0, 0},
		{"elite rate", 4999, 18, 900, 1000},
		{"custom 30%", 3333, 30, 1000, 667},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			split, err := ComputeSplit(tc.saleCents, tc.rate)
			if err != nil {
				t.Fatalf("ComputeSplit(%d, %v): %v", tc.saleCents, tc.rate, err)
			}
			if split.MemberShareCents != tc.member {
				t.Errorf("member share = %d, want %d", split.MemberShareCents, tc.member)
			}
			if split.PlatformShareCents != tc.platform {
				t.Errorf("platform share = %d, want %d", split.PlatformShareCents, tc.platform)
			}
			sum := split.MemberShareCents + split.CreatorShareCents + split.PlatformShareCents
			if sum != tc.saleCents {
				t.Errorf("shares sum to %d, want exactly %d", sum, tc.saleCents)
			}
		})
	}
}

func TestComputeSplit_SumInvariantSweep(t *testing.T) {
	// Every amount and rate combination must reconcile exactly: no
	// remainder survives the creator-share absorption.
	rates := []float64{10, 12.5, 15, 18, 20, 30}
	for cents := int64(0); cents < 2000; cents++ {
		for _, rate := range rates {
			split, err := ComputeSplit(cents, rate)
			if err != nil {
				t.Fatalf("ComputeSplit(%d, %v): %v", cents, rate, err)
			}
			if sum := split.MemberShareCents + split.CreatorShareCents + split.PlatformShareCents; sum != cents {
				t.Fatalf("cents=%d rate=%v: shares sum to %d", cents, rate, sum)
			}
		}
	}
}

func TestComputeSplit_RejectsInvalidAmounts(t *testing.T) {
	for _, cents := range []int64{-1, -4999, 1_000_001} {
		if _, err := ComputeSplit(cents, 10); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("ComputeSplit(%d) error = %v, want ErrInvalidAmount", cents, err)
		}
	}
}

func TestCentsFromAmount(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cases := map[float64]int64{
			49.99: 4999,
			0:     0,
			0.01:  1,
			100:   10000,
		}
		for amount, want := range cases {
			got, err := CentsFromAmount(amount)
			if err != nil {
				t.Fatalf("CentsFromAmount(%v): %v", amount, err)
			}
			if got != want {
				t.Errorf("CentsFromAmount(%v) = %d, want %d", amount, got, want)
			}
		}
	})

	t.Run("rejected before persistence", func(t *testing.T) {
		// The large finite amounts would wrap the int64 conversion if they
		// were converted before the bound check.
		for _, amount := range []float64{
			-0.01, math.NaN(), math.Inf(1), math.Inf(-1), 10000.01,
			9.3e16, 1e17, 1e300, math.MaxFloat64,
		} {
			if _, err := CentsFromAmount(amount); !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("CentsFromAmount(%v) error = %v, want ErrInvalidAmount", amount, err)
			}
		}
	})
}

func TestResolveRate_TierBoundaries(t *testing.T) {
	tiers := defaultTiers()
	cases := []struct {
		referrals int
		rate      float64
		tier      string
	}{
		{0, 10, "starter"},
		{49, 10, "starter"},
		{50, 15, "ambassador"},
		{99, 15, "ambassador"},
		{100, 18, "elite"},
		{5000, 18, "elite"},
	}
	for _, tc := range cases {
		rate, tier := ResolveRate(tc.referrals, tiers, nil)
		if rate != tc.rate || tier != tc.tier {
			t.Errorf("ResolveRate(%d) = %v/%q, want %v/%q", tc.referrals, rate, tier, tc.rate, tc.tier)
		}
	}
}

func TestResolveRate_CustomRateAlwaysWins(t *testing.T) {
	custom := &models.CustomRate{RatePercent: 25}
	for _, referrals := range []int{0, 49, 50, 100, 1000} {
		rate, tier := ResolveRate(referrals, defaultTiers(), custom)
		if rate != 25 {
			t.Errorf("ResolveRate(%d) with custom = %v, want 25", referrals, rate)
		}
		if tier != "custom" {
			t.Errorf("ResolveRate(%d) tier = %q, want \"custom\"", referrals, tier)
		}
	}
}
