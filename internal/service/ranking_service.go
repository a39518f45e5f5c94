package service

import (
	"log"
	"sort"

	"referly/internal/models"
	"referly/internal/repository"
)

// RankingService maintains the ordinal rank columns on members. Ranks are
// display/eligibility state only; staleness between a ledger commit and
// the next recompute is expected and fine.
type RankingService struct {
	rankingRepo *repository.RankingRepository
}

func NewRankingService(rankingRepo *repository.RankingRepository) *RankingService {
	return &RankingService{rankingRepo: rankingRepo}
}

// RecomputeAll rebuilds every rank axis from the current aggregates and
// persists the results, capturing previous ranks as it goes.
func (s *RankingService) RecomputeAll() error {
	members, err := s.rankingRepo.ListRankable()
	if err != nil {
		return err
	}

	s.writeAxis(members, repository.AxisGlobalEarnings, func(m *models.Member) int64 {
		return m.LifetimeEarningsCents
	})
	s.writeAxis(members, repository.AxisGlobalReferrals, func(m *models.Member) int64 {
		return int64(m.TotalReferred)
	})

	// Community ranks are computed within each community independently.
	byCommunity := make(map[uint][]models.Member)
	for _, m := range members {
		byCommunity[m.CommunityID] = append(byCommunity[m.CommunityID], m)
	}
	for _, group := range byCommunity {
		s.writeAxis(group, repository.AxisCommunity, func(m *models.Member) int64 {
			return m.LifetimeEarningsCents
		})
	}
	return nil
}

func (s *RankingService) writeAxis(members []models.Member, axis repository.RankAxis, metric func(*models.Member) int64) {
	ranked := CompetitionRanks(members, metric)
	for i := range ranked {
		if err := s.rankingRepo.WriteRank(ranked[i].MemberID, axis, ranked[i].Rank); err != nil {
			log.Printf("[ranking] write %s rank for member %d: %v", axis, ranked[i].MemberID, err)
		}
	}
}

// RankedMember pairs a member with its computed competition rank.
type RankedMember struct {
	MemberID uint
	Metric   int64
	Rank     int
}

// CompetitionRanks orders members by metric descending with earlier
// createdAt winning ties, then assigns non-consecutive competition ranks:
// tied values share a rank and the next distinct value resumes at its
// positional rank, so a run can read 1,2,2,4 but never 1,2,2,3. The
// ordering and the skip are both load-bearing: reward cutoffs read these
// ranks.
func CompetitionRanks(members []models.Member, metric func(*models.Member) int64) []RankedMember {
	ordered := make([]models.Member, len(members))
	copy(ordered, members)
	sort.SliceStable(ordered, func(i, j int) bool {
		mi, mj := metric(&ordered[i]), metric(&ordered[j])
		if mi != mj {
			return mi > mj
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	out := make([]RankedMember, len(ordered))
	for i := range ordered {
		r := RankedMember{MemberID: ordered[i].ID, Metric: metric(&ordered[i])}
		if i > 0 && r.Metric == out[i-1].Metric {
			r.Rank = out[i-1].Rank
		} else {
			r.Rank = i + 1
		}
		out[i] = r
	}
	return out
}
