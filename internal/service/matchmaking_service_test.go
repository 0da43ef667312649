package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/martius-lab/comprl/internal/clock"
	"github.com/martius-lab/comprl/internal/config"
	"github.com/martius-lab/comprl/internal/models"
)

type matchmakerFixture struct {
	service  *MatchmakingService
	queue    *WaitingQueue
	registry *PlayerRegistry
	launcher *recordingLauncher
	clock    *clock.Mock
	ranks    *stubRanks
}

func newMatchmakerFixture(t *testing.T, settings config.MatchmakingSettings, seed int64) *matchmakerFixture {
	t.Helper()

	f := &matchmakerFixture{
		queue:    NewWaitingQueue(),
		registry: NewPlayerRegistry(),
		launcher: &recordingLauncher{},
		clock:    clock.NewMock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)),
		ranks:    &stubRanks{ranks: map[int64]int{}},
	}

	f.service = NewMatchmakingService(
		f.queue,
		f.registry,
		f.ranks,
		stubRatings{},
		f.launcher,
		config.NewTunables(settings, config.DecaySettings{}),
		time.Second,
		f.clock,
		seed,
		zap.NewNop(),
	)

	return f
}

// join connects a player, assigns it the given leaderboard rank and queues
// it.
func (f *matchmakerFixture) join(t *testing.T, accountID int64, rank int, role models.AccountRole) *Player {
	t.Helper()

	p, _ := newTestPlayer(accountID, "player", role)
	f.registry.Add(p)
	f.ranks.ranks[accountID] = rank
	require.NoError(t, f.service.Enqueue(context.Background(), p))
	return p
}

func defaultSettings() config.MatchmakingSettings {
	return config.MatchmakingSettings{
		GaussLeaderboardSigma:       20.0,
		QualityThreshold:            0.3,
		PercentageMinPlayersWaiting: 0.1,
		PercentalTimeBonus:          0.1,
		MaxParallelGames:            100,
	}
}

func TestTickMatchesAdjacentRanks(t *testing.T) {
	f := newMatchmakerFixture(t, defaultSettings(), 1)
	p1 := f.join(t, 1, 0, models.RoleUser)
	p2 := f.join(t, 2, 1, models.RoleUser)

	f.service.Tick(context.Background())

	pairs := f.launcher.launched()
	require.Len(t, pairs, 1)
	assert.Equal(t, p1.ID, pairs[0][0].ID)
	assert.Equal(t, p2.ID, pairs[0][1].ID)
	assert.Equal(t, 0, f.queue.Size(), "matched players leave the queue")
}

func TestTickBelowThresholdStaysQueued(t *testing.T) {
	settings := defaultSettings()
	settings.GaussLeaderboardSigma = 2.0
	settings.QualityThreshold = 0.5

	f := newMatchmakerFixture(t, settings, 1)
	f.join(t, 1, 0, models.RoleUser)
	f.join(t, 2, 40, models.RoleUser)

	f.service.Tick(context.Background())

	assert.Empty(t, f.launcher.launched())
	assert.Equal(t, 2, f.queue.Size())
}

func TestTickTimeBonusPromotesStalePair(t *testing.T) {
	settings := defaultSettings()
	settings.GaussLeaderboardSigma = 2.0
	settings.QualityThreshold = 0.5

	f := newMatchmakerFixture(t, settings, 1)
	f.join(t, 1, 0, models.RoleUser)
	f.join(t, 2, 40, models.RoleUser)

	f.service.Tick(context.Background())
	require.Empty(t, f.launcher.launched())

	// combined waiting of 6 minutes yields a bonus of 0.5
	f.clock.Advance(3 * time.Minute)
	f.service.Tick(context.Background())

	assert.Len(t, f.launcher.launched(), 1)
}

func TestTickMinWaitingGate(t *testing.T) {
	settings := defaultSettings()
	settings.PercentageMinPlayersWaiting = 0.5

	f := newMatchmakerFixture(t, settings, 1)
	f.join(t, 1, 0, models.RoleUser)
	f.join(t, 2, 1, models.RoleUser)

	// eight more connected players that are not waiting
	for i := int64(3); i <= 10; i++ {
		p, _ := newTestPlayer(i, "idle", models.RoleUser)
		f.registry.Add(p)
	}

	// 10 connected at 50% requires 5 waiting, only 2 are
	f.service.Tick(context.Background())
	assert.Empty(t, f.launcher.launched())
}

func TestTickNeverMatchesSameAccount(t *testing.T) {
	f := newMatchmakerFixture(t, defaultSettings(), 1)

	// the same account connected twice
	p1, _ := newTestPlayer(1, "alice", models.RoleUser)
	p2, _ := newTestPlayer(1, "alice", models.RoleUser)
	f.registry.Add(p1)
	f.registry.Add(p2)
	f.ranks.ranks[1] = 0
	require.NoError(t, f.service.Enqueue(context.Background(), p1))
	require.NoError(t, f.service.Enqueue(context.Background(), p2))

	f.service.Tick(context.Background())
	assert.Empty(t, f.launcher.launched())
}

func TestTickNeverMatchesTwoBots(t *testing.T) {
	f := newMatchmakerFixture(t, defaultSettings(), 1)
	f.join(t, 1, 0, models.RoleBot)
	f.join(t, 2, 1, models.RoleBot)

	f.service.Tick(context.Background())
	assert.Empty(t, f.launcher.launched())

	// a user joining unblocks the front bot
	f.join(t, 3, 2, models.RoleUser)
	f.service.Tick(context.Background())

	pairs := f.launcher.launched()
	require.Len(t, pairs, 1)
	assert.False(t, pairs[0][0].Account.IsBot() && pairs[0][1].Account.IsBot())
}

func TestTickRespectsParallelGameLimit(t *testing.T) {
	settings := defaultSettings()
	settings.MaxParallelGames = 3

	f := newMatchmakerFixture(t, settings, 1)
	f.launcher.active = 3
	f.join(t, 1, 0, models.RoleUser)
	f.join(t, 2, 1, models.RoleUser)

	f.service.Tick(context.Background())

	assert.Empty(t, f.launcher.launched())
	assert.Equal(t, 2, f.queue.Size())
}

func TestTickFrontEntryMatchedFirst(t *testing.T) {
	f := newMatchmakerFixture(t, defaultSettings(), 1)
	front := f.join(t, 1, 0, models.RoleUser)
	f.join(t, 2, 1, models.RoleUser)
	f.join(t, 3, 2, models.RoleUser)
	f.join(t, 4, 3, models.RoleUser)

	f.service.Tick(context.Background())

	pairs := f.launcher.launched()
	require.Len(t, pairs, 2)
	assert.Equal(t, front.ID, pairs[0][0].ID, "the longest-waiting entry is served first")
}

func TestTickDeterministicUnderFixedSeed(t *testing.T) {
	run := func() [][2]int64 {
		f := newMatchmakerFixture(t, defaultSettings(), 42)
		for i := int64(1); i <= 6; i++ {
			f.join(t, i, int(i-1), models.RoleUser)
		}
		f.service.Tick(context.Background())

		var pairs [][2]int64
		for _, pair := range f.launcher.launched() {
			pairs = append(pairs, [2]int64{pair[0].Account.ID, pair[1].Account.ID})
		}
		return pairs
	}

	assert.Equal(t, run(), run())
}

func TestTickRequeuesPairOnLaunchFailure(t *testing.T) {
	f := newMatchmakerFixture(t, defaultSettings(), 1)
	f.launcher.launchErr = ErrSessionClosed

	p1 := f.join(t, 1, 0, models.RoleUser)
	p2 := f.join(t, 2, 1, models.RoleUser)
	enqueuedAt := f.clock.Now()

	f.clock.Advance(time.Minute)
	f.service.Tick(context.Background())

	// both players are back in the queue with their waiting time intact
	entries := f.service.QueueSnapshot()
	require.Len(t, entries, 2)
	ids := []uuid.UUID{entries[0].Player.ID, entries[1].Player.ID}
	assert.ElementsMatch(t, []uuid.UUID{p1.ID, p2.ID}, ids)
	for _, e := range entries {
		assert.Equal(t, enqueuedAt, e.EnqueuedAt)
	}

	// once launching works again the pair goes through
	f.launcher.launchErr = nil
	f.service.Tick(context.Background())
	assert.Len(t, f.launcher.launched(), 1)
	assert.Equal(t, 0, f.queue.Size())
}

func TestEnqueueRejectsDuplicate(t *testing.T) {
	f := newMatchmakerFixture(t, defaultSettings(), 1)
	p, _ := newTestPlayer(1, "alice", models.RoleUser)
	f.registry.Add(p)

	require.NoError(t, f.service.Enqueue(context.Background(), p))
	assert.ErrorIs(t, f.service.Enqueue(context.Background(), p), ErrAlreadyQueued)
}

func TestEnqueueSnapshotsRating(t *testing.T) {
	f := newMatchmakerFixture(t, defaultSettings(), 1)
	p, _ := newTestPlayer(7, "alice", models.RoleUser)
	f.registry.Add(p)
	require.NoError(t, f.service.Enqueue(context.Background(), p))

	entries := f.service.QueueSnapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(7), entries[0].Rating.AccountID)
	assert.Equal(t, models.DefaultMu, entries[0].Rating.Mu)
}

func TestRemoveDequeues(t *testing.T) {
	f := newMatchmakerFixture(t, defaultSettings(), 1)
	p := f.join(t, 1, 0, models.RoleUser)

	f.service.Remove(p.ID)
	assert.Equal(t, 0, f.queue.Size())
}

func TestWeightedPickDistribution(t *testing.T) {
	f := newMatchmakerFixture(t, defaultSettings(), 42)

	counts := make(map[int]int)
	for i := 0; i < 1000; i++ {
		counts[f.service.weightedPick([]float64{0.1, 0.9})]++
	}

	assert.Greater(t, counts[1], counts[0], "heavier weight is picked more often")
	assert.Greater(t, counts[0], 0, "lighter weight is still reachable")
}
