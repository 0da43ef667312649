package service

import (
	"math"
	"time"

	"github.com/martius-lab/comprl/internal/config"
)

// MatchQuality scores a candidate pairing: proximity on the leaderboard plus
// a bonus for accrued waiting time. It never fails and always returns a
// finite value.
//
// The kernel works on leaderboard positions rather than raw ratings so that
// top-ranked accounts still get meaningfully scored opponents instead of
// uniformly near-zero scores. Accounts without a rank (no games played) are
// assigned the lowest rank.
func MatchQuality(a, b *QueueEntry, ranks map[int64]int, now time.Time, settings config.MatchmakingSettings) float64 {
	rankA := rankOf(a.Rating.AccountID, ranks)
	rankB := rankOf(b.Rating.AccountID, ranks)

	quality := gaussKernel(rankA, rankB, settings.GaussLeaderboardSigma) +
		timeBonus(a, b, now, settings.PercentalTimeBonus)

	if math.IsNaN(quality) || math.IsInf(quality, 0) {
		return 0
	}
	return quality
}

func rankOf(accountID int64, ranks map[int64]int) int {
	if r, ok := ranks[accountID]; ok {
		return r
	}
	return len(ranks)
}

// gaussKernel is symmetric, 1 at zero rank distance and monotonically
// decreasing with distance.
func gaussKernel(rank1, rank2 int, sigma float64) float64 {
	if sigma <= 0 {
		if rank1 == rank2 {
			return 1
		}
		return 0
	}

	d := float64(rank1 - rank2)
	return math.Exp(-(d * d) / (2 * sigma * sigma))
}

// timeBonus rewards the combined waiting time of both entries. The first
// combined minute contributes nothing so that pairs below the quality
// threshold are not matched instantly.
func timeBonus(a, b *QueueEntry, now time.Time, bonusScale float64) float64 {
	combinedMinutes := a.WaitingTime(now).Minutes() + b.WaitingTime(now).Minutes()
	return bonusScale * math.Max(0, combinedMinutes-1)
}
