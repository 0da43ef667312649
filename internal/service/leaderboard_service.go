package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/martius-lab/comprl/internal/models"
)

const leaderboardKey = "comprl:leaderboard"

// RankedAccountSource lists all accounts in leaderboard order: ranking
// score (mu - sigma) descending, ties broken by account ID.
type RankedAccountSource interface {
	RankedAccounts(ctx context.Context) ([]models.Account, error)
}

// LeaderboardService computes leaderboard ranks for the match scorer and
// serves the public leaderboard. Display reads go through a redis sorted
// set that is rebuilt whenever ratings change; rank lookups for matchmaking
// always hit the account store so every tick sees fresh ratings.
type LeaderboardService struct {
	accounts RankedAccountSource
	redis    *redis.Client
	logger   *zap.Logger
}

func NewLeaderboardService(accounts RankedAccountSource, redisClient *redis.Client, logger *zap.Logger) *LeaderboardService {
	return &LeaderboardService{
		accounts: accounts,
		redis:    redisClient,
		logger:   logger,
	}
}

// Ranks returns the leaderboard position (0 = best) per account ID,
// computed fresh from the rating store.
func (s *LeaderboardService) Ranks(ctx context.Context) (map[int64]int, error) {
	accounts, err := s.accounts.RankedAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to rank accounts: %w", err)
	}

	ranks := make(map[int64]int, len(accounts))
	for i, account := range accounts {
		ranks[account.ID] = i
	}
	return ranks, nil
}

// Rebuild refreshes the cached sorted set from the account store.
func (s *LeaderboardService) Rebuild(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}

	accounts, err := s.accounts.RankedAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to load accounts: %w", err)
	}

	members := make([]redis.Z, 0, len(accounts))
	for _, account := range accounts {
		members = append(members, redis.Z{
			Score:  account.RankingScore(),
			Member: strconv.FormatInt(account.ID, 10),
		})
	}

	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, leaderboardKey)
	if len(members) > 0 {
		pipe.ZAdd(ctx, leaderboardKey, members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to rebuild leaderboard cache: %w", err)
	}

	return nil
}

// CachedRank returns an account's position from the redis cache, or false
// when the cache has no entry for it.
func (s *LeaderboardService) CachedRank(ctx context.Context, accountID int64) (int64, bool, error) {
	if s.redis == nil {
		return 0, false, nil
	}

	rank, err := s.redis.ZRevRank(ctx, leaderboardKey, strconv.FormatInt(accountID, 10)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read cached rank: %w", err)
	}

	return rank, true, nil
}

// Top returns the first n leaderboard entries.
func (s *LeaderboardService) Top(ctx context.Context, n int) ([]models.LeaderboardEntry, error) {
	accounts, err := s.accounts.RankedAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}

	if n > len(accounts) {
		n = len(accounts)
	}

	entries := make([]models.LeaderboardEntry, 0, n)
	for i := 0; i < n; i++ {
		account := accounts[i]
		entries = append(entries, models.LeaderboardEntry{
			Rank:     i + 1,
			Username: account.Username,
			Mu:       account.Mu,
			Sigma:    account.Sigma,
			Score:    account.RankingScore(),
		})
	}

	return entries, nil
}
