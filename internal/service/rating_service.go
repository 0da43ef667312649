package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/martius-lab/comprl/internal/models"
)

// AccountRatings is the persistence surface the rating service needs.
type AccountRatings interface {
	RatingByID(ctx context.Context, accountID int64) (models.RatingSnapshot, error)
	UpdateRating(ctx context.Context, accountID int64, mu, sigma float64) error
	DecayInactive(ctx context.Context, since time.Time, delta, sigmaCap float64) (int64, error)
}

// RatingService is the rating store: snapshots for matchmaking, post-match
// updates through the skill model, and the decay sweep.
type RatingService struct {
	accounts AccountRatings
	model    SkillModel
	logger   *zap.Logger
}

func NewRatingService(accounts AccountRatings, model SkillModel, logger *zap.Logger) *RatingService {
	return &RatingService{
		accounts: accounts,
		model:    model,
		logger:   logger,
	}
}

// RatingByID returns the current snapshot for an account.
func (s *RatingService) RatingByID(ctx context.Context, accountID int64) (models.RatingSnapshot, error) {
	return s.accounts.RatingByID(ctx, accountID)
}

// UpdateAfterMatch feeds a match outcome through the skill model and
// persists the new ratings. Account IDs and scores are index-aligned.
func (s *RatingService) UpdateAfterMatch(ctx context.Context, accountIDs []int64, scores []float64) ([]models.RatingSnapshot, error) {
	if len(accountIDs) != len(scores) || len(accountIDs) < 2 {
		return nil, fmt.Errorf("%w: %d accounts, %d scores", ErrInvalidInput, len(accountIDs), len(scores))
	}

	ratings := make([]Rating, len(accountIDs))
	for i, id := range accountIDs {
		snapshot, err := s.accounts.RatingByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load rating for account %d: %w", id, err)
		}
		ratings[i] = Rating{Mu: snapshot.Mu, Sigma: snapshot.Sigma}
	}

	updated := s.model.Rate(ratings, scores)

	snapshots := make([]models.RatingSnapshot, len(accountIDs))
	for i, id := range accountIDs {
		if err := s.accounts.UpdateRating(ctx, id, updated[i].Mu, updated[i].Sigma); err != nil {
			return nil, fmt.Errorf("failed to persist rating for account %d: %w", id, err)
		}

		snapshots[i] = models.RatingSnapshot{
			AccountID: id,
			Mu:        updated[i].Mu,
			Sigma:     updated[i].Sigma,
		}

		s.logger.Debug("Rating updated",
			zap.Int64("accountId", id),
			zap.Float64("mu", updated[i].Mu),
			zap.Float64("sigma", updated[i].Sigma))
	}

	return snapshots, nil
}

// DecaySweep raises sigma of accounts inactive since the given time, capped
// at sigmaCap.
func (s *RatingService) DecaySweep(ctx context.Context, since time.Time, delta, sigmaCap float64) (int64, error) {
	return s.accounts.DecayInactive(ctx, since, delta, sigmaCap)
}
