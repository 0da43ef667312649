package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, time.Second, cfg.TickInterval)
	assert.Equal(t, 10*time.Second, cfg.ActionTimeout)
	assert.Equal(t, "skip", cfg.RatingOnDisconnect)
	assert.Equal(t, 20.0, cfg.Matchmaking.GaussLeaderboardSigma)
	assert.Equal(t, 0.3, cfg.Matchmaking.QualityThreshold)
	assert.Equal(t, 0.1, cfg.Matchmaking.PercentageMinPlayersWaiting)
	assert.Equal(t, 100, cfg.Matchmaking.MaxParallelGames)
	assert.Equal(t, time.Duration(0), cfg.Decay.Interval, "decay is off by default")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MATCH_QUALITY_THRESHOLD", "0.6")
	t.Setenv("MAX_PARALLEL_GAMES", "7")
	t.Setenv("DECAY_INTERVAL_MINUTES", "90")
	t.Setenv("ACTION_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.6, cfg.Matchmaking.QualityThreshold)
	assert.Equal(t, 7, cfg.Matchmaking.MaxParallelGames)
	assert.Equal(t, 90*time.Minute, cfg.Decay.Interval)
	assert.Equal(t, 3*time.Second, cfg.ActionTimeout)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("MAX_PARALLEL_GAMES", "lots")
	t.Setenv("MATCH_QUALITY_THRESHOLD", "high")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Matchmaking.MaxParallelGames)
	assert.Equal(t, 0.3, cfg.Matchmaking.QualityThreshold)
}

func TestTunablesHotSwap(t *testing.T) {
	tunables := NewTunables(LoadMatchmakingSettings(), LoadDecaySettings())
	assert.Equal(t, 0.3, tunables.Matchmaking().QualityThreshold)

	updated := tunables.Matchmaking()
	updated.QualityThreshold = 0.8
	tunables.Update(updated, DecaySettings{Interval: time.Hour, Delta: 1.0})

	assert.Equal(t, 0.8, tunables.Matchmaking().QualityThreshold)
	assert.Equal(t, time.Hour, tunables.Decay().Interval)
	assert.Equal(t, 1.0, tunables.Decay().Delta)
}
