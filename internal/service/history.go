package service

import (
	"errors"
	"sort"
	"time"

	"referly/internal/domain"
	"referly/internal/models"
)

var ErrUnknownWindow = errors.New("unknown history window")

// HistoryBucket is one aggregated period of a referrer's commission
// history. Period is "2006-01-02" for day buckets, "2006-01" for months.
type HistoryBucket struct {
	Period          string `json:"period"`
	EarningsCents   int64  `json:"earnings_cents"`
	CommissionCount int    `json:"commission_count"`
	ReversedCount   int    `json:"reversed_count"`
}

// HistoryWindow resolves a query window name to its cutoff and bucket
// granularity: day buckets up to 90 days, month buckets for a year.
func HistoryWindow(name string, now time.Time) (cutoff time.Time, monthly bool, err error) {
	switch name {
	case "", "30d":
		return now.AddDate(0, 0, -30), false, nil
	case "90d":
		return now.AddDate(0, 0, -90), false, nil
	case "1y":
		return now.AddDate(-1, 0, 0), true, nil
	default:
		return time.Time{}, false, ErrUnknownWindow
	}
}

// BucketCommissions groups a commission list into period buckets. Reversed
// commissions are excluded from earnings but counted, so the history makes
// refunds visible. Grouping runs here rather than in SQL so it behaves the
// same on every backing store.
func BucketCommissions(list []models.Commission, monthly bool) []HistoryBucket {
	layout := "2006-01-02"
	if monthly {
		layout = "2006-01"
	}
	byPeriod := make(map[string]*HistoryBucket)
	for i := range list {
		cm := &list[i]
		key := cm.CreatedAt.Format(layout)
		b, ok := byPeriod[key]
		if !ok {
			b = &HistoryBucket{Period: key}
			byPeriod[key] = b
		}
		b.CommissionCount++
		if cm.Status == domain.CommissionStatusReversed {
			b.ReversedCount++
			continue
		}
		b.EarningsCents += cm.MemberShareCents
	}

	out := make([]HistoryBucket, 0, len(byPeriod))
	for _, b := range byPeriod {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}
