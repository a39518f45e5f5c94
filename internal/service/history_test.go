package service

import (
	"errors"
	"testing"
	"time"

	"referly/internal/domain"
	"referly/internal/models"
)

func TestHistoryWindow(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		window      string
		wantCutoff  time.Time
		wantMonthly bool
		wantErr     bool
	}{
		{"default is 30d", "", time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC), false, false},
		{"30d", "30d", time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC), false, false},
		{"90d", "90d", time.Date(2025, 12, 15, 12, 0, 0, 0, time.UTC), false, false},
		{"1y is monthly", "1y", time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC), true, false},
		{"unknown rejected", "7d", time.Time{}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cutoff, monthly, err := HistoryWindow(tt.window, now)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownWindow) {
					t.Fatalf("HistoryWindow(%q) err = %v, want ErrUnknownWindow", tt.window, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("HistoryWindow(%q) err = %v", tt.window, err)
			}
			if !cutoff.Equal(tt.wantCutoff) {
				t.Errorf("cutoff = %v, want %v", cutoff, tt.wantCutoff)
			}
			if monthly != tt.wantMonthly {
				t.Errorf("monthly = %v, want %v", monthly, tt.wantMonthly)
			}
		})
	}
}

func TestBucketCommissions(t *testing.T) {
	at := func(day int) time.Time {
		return time.Date(2026, 3, day, 9, 0, 0, 0, time.UTC)
	}
	cm := func(day int, share int64, status string) models.Commission {
		return models.Commission{
			MemberShareCents: share,
			Status:           status,
			CreatedAt:        at(day),
		}
	}

	list := []models.Commission{
		cm(1, 500, domain.CommissionStatusPaid),
		cm(1, 300, domain.CommissionStatusPaid),
		cm(1, 700, domain.CommissionStatusReversed),
		cm(3, 250, domain.CommissionStatusPaid),
	}

	t.Run("day buckets", func(t *testing.T) {
		got := BucketCommissions(list, false)
		if len(got) != 2 {
			t.Fatalf("buckets = %d, want 2", len(got))
		}
		first := got[0]
		if first.Period != "2026-03-01" {
			t.Errorf("first period = %q, want 2026-03-01", first.Period)
		}
		if first.EarningsCents != 800 {
			t.Errorf("reversed commission counted into earnings: got %d, want 800", first.EarningsCents)
		}
		if first.CommissionCount != 3 || first.ReversedCount != 1 {
			t.Errorf("counts = %d/%d, want 3/1", first.CommissionCount, first.ReversedCount)
		}
		if got[1].Period != "2026-03-03" || got[1].EarningsCents != 250 {
			t.Errorf("second bucket = %+v", got[1])
		}
	})

	t.Run("month buckets merge days", func(t *testing.T) {
		got := BucketCommissions(list, true)
		if len(got) != 1 {
			t.Fatalf("buckets = %d, want 1", len(got))
		}
		if got[0].Period != "2026-03" || got[0].EarningsCents != 1050 || got[0].CommissionCount != 4 {
			t.Errorf("month bucket = %+v", got[0])
		}
	})

	t.Run("empty list", func(t *testing.T) {
		if got := BucketCommissions(nil, false); len(got) != 0 {
			t.Errorf("expected no buckets, got %+v", got)
		}
	})
}
