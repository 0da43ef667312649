package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/martius-lab/comprl/internal/models"
)

// memoryRatings is an in-memory AccountRatings store.
type memoryRatings struct {
	ratings map[int64]models.RatingSnapshot

	decayedSince time.Time
	decayedDelta float64
	decayedCap   float64
}

func newMemoryRatings(ids ...int64) *memoryRatings {
	m := &memoryRatings{ratings: make(map[int64]models.RatingSnapshot)}
	for _, id := range ids {
		m.ratings[id] = models.RatingSnapshot{
			AccountID: id,
			Mu:        models.DefaultMu,
			Sigma:     models.DefaultSigma,
		}
	}
	return m
}

func (m *memoryRatings) RatingByID(_ context.Context, accountID int64) (models.RatingSnapshot, error) {
	return m.ratings[accountID], nil
}

func (m *memoryRatings) UpdateRating(_ context.Context, accountID int64, mu, sigma float64) error {
	m.ratings[accountID] = models.RatingSnapshot{AccountID: accountID, Mu: mu, Sigma: sigma}
	return nil
}

func (m *memoryRatings) DecayInactive(_ context.Context, since time.Time, delta, sigmaCap float64) (int64, error) {
	m.decayedSince = since
	m.decayedDelta = delta
	m.decayedCap = sigmaCap
	return 1, nil
}

func TestUpdateAfterMatchPersists(t *testing.T) {
	store := newMemoryRatings(1, 2)
	svc := NewRatingService(store, NewGaussianSkillModel(), zap.NewNop())

	snapshots, err := svc.UpdateAfterMatch(context.Background(), []int64{1, 2}, []float64{3, 0})
	require.NoError(t, err)
	require.Len(t, snapshots, 2)

	assert.Greater(t, snapshots[0].Mu, models.DefaultMu)
	assert.Less(t, snapshots[1].Mu, models.DefaultMu)

	// the store holds the same values as the returned snapshots
	assert.Equal(t, snapshots[0], store.ratings[1])
	assert.Equal(t, snapshots[1], store.ratings[2])
}

func TestUpdateAfterMatchValidatesInput(t *testing.T) {
	svc := NewRatingService(newMemoryRatings(1), NewGaussianSkillModel(), zap.NewNop())

	_, err := svc.UpdateAfterMatch(context.Background(), []int64{1, 2}, []float64{1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UpdateAfterMatch(context.Background(), []int64{1}, []float64{1})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDecaySweepForwardsToStore(t *testing.T) {
	store := newMemoryRatings()
	svc := NewRatingService(store, NewGaussianSkillModel(), zap.NewNop())

	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	affected, err := svc.DecaySweep(context.Background(), since, 0.5, models.DefaultSigma)
	require.NoError(t, err)

	assert.Equal(t, int64(1), affected)
	assert.Equal(t, since, store.decayedSince)
	assert.Equal(t, 0.5, store.decayedDelta)
	assert.Equal(t, models.DefaultSigma, store.decayedCap)
}
