package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/martius-lab/comprl/internal/clock"
	"github.com/martius-lab/comprl/internal/config"
	"github.com/martius-lab/comprl/internal/models"
)

type fakeDecayStore struct {
	completed int

	decayCalls []struct {
		since    time.Time
		delta    float64
		sigmaCap float64
	}
}

func (s *fakeDecayStore) CountCompletedSince(context.Context, time.Time) (int, error) {
	return s.completed, nil
}

func (s *fakeDecayStore) DecayInactive(_ context.Context, since time.Time, delta, sigmaCap float64) (int64, error) {
	s.decayCalls = append(s.decayCalls, struct {
		since    time.Time
		delta    float64
		sigmaCap float64
	}{since, delta, sigmaCap})
	return 3, nil
}

func newDecayFixture(store *fakeDecayStore) (*ScoreDecayService, *clock.Mock) {
	clk := clock.NewMock(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	tunables := config.NewTunables(config.MatchmakingSettings{}, config.DecaySettings{
		Interval: time.Hour,
		Delta:    0.5,
	})
	return NewScoreDecayService(store, tunables, clk, zap.NewNop()), clk
}

func TestSweepSkipsQuietWindow(t *testing.T) {
	store := &fakeDecayStore{completed: 0}
	svc, clk := newDecayFixture(store)

	svc.Sweep(context.Background(), clk.Now(), 0.5)

	assert.Empty(t, store.decayCalls, "no completed match means nobody could have played")
}

func TestSweepDecaysInactiveAccounts(t *testing.T) {
	store := &fakeDecayStore{completed: 4}
	svc, clk := newDecayFixture(store)

	start := svc.clock.Now()
	svc.lastSweep = start
	clk.Advance(time.Hour)

	svc.Sweep(context.Background(), clk.Now(), 0.5)

	if assert.Len(t, store.decayCalls, 1) {
		call := store.decayCalls[0]
		assert.Equal(t, start, call.since, "the window starts at the previous sweep")
		assert.Equal(t, 0.5, call.delta)
		assert.Equal(t, models.DefaultSigma, call.sigmaCap, "sigma never decays past its initial value")
	}
}

func TestSweepWindowsNeverOverlap(t *testing.T) {
	store := &fakeDecayStore{completed: 1}
	svc, clk := newDecayFixture(store)

	first := svc.clock.Now()
	svc.lastSweep = first

	clk.Advance(time.Hour)
	second := clk.Now()
	svc.Sweep(context.Background(), second, 0.5)

	clk.Advance(time.Hour)
	svc.Sweep(context.Background(), clk.Now(), 0.5)

	if assert.Len(t, store.decayCalls, 2) {
		assert.Equal(t, first, store.decayCalls[0].since)
		assert.Equal(t, second, store.decayCalls[1].since, "the second window starts where the first ended")
	}
}
