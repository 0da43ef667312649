package service

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/martius-lab/comprl/internal/clock"
	"github.com/martius-lab/comprl/internal/config"
	"github.com/martius-lab/comprl/internal/models"
)

// RankSource provides the current leaderboard position per account ID,
// computed fresh for each matchmaking tick.
type RankSource interface {
	Ranks(ctx context.Context) (map[int64]int, error)
}

// RatingSource provides the rating snapshot taken at enqueue time.
type RatingSource interface {
	RatingByID(ctx context.Context, accountID int64) (models.RatingSnapshot, error)
}

// SessionLauncher spawns a game session for a formed pair and reports how
// many sessions are running.
type SessionLauncher interface {
	Launch(p1, p2 *Player) error
	ActiveCount() int
}

// MatchmakingService runs the periodic match formation loop over the
// waiting queue.
type MatchmakingService struct {
	queue    *WaitingQueue
	registry *PlayerRegistry
	ranks    RankSource
	ratings  RatingSource
	sessions SessionLauncher
	tunables *config.Tunables

	interval time.Duration
	clock    clock.Clock
	rng      *rand.Rand

	logger   *zap.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

func NewMatchmakingService(
	queue *WaitingQueue,
	registry *PlayerRegistry,
	ranks RankSource,
	ratings RatingSource,
	sessions SessionLauncher,
	tunables *config.Tunables,
	interval time.Duration,
	clk clock.Clock,
	seed int64,
	logger *zap.Logger,
) *MatchmakingService {
	return &MatchmakingService{
		queue:    queue,
		registry: registry,
		ranks:    ranks,
		ratings:  ratings,
		sessions: sessions,
		tunables: tunables,
		interval: interval,
		clock:    clk,
		rng:      rand.New(rand.NewSource(seed)),
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start launches the tick loop.
func (s *MatchmakingService) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("Starting matchmaking", zap.Duration("interval", s.interval))

	s.wg.Add(1)
	go s.loop()
}

// Stop halts the tick loop and waits for the running tick to finish.
func (s *MatchmakingService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()
	s.logger.Info("Matchmaking stopped")
}

func (s *MatchmakingService) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick(context.Background())
		case <-s.stopChan:
			return
		}
	}
}

// Enqueue takes a fresh rating snapshot and puts the player into the
// waiting queue.
func (s *MatchmakingService) Enqueue(ctx context.Context, p *Player) error {
	rating, err := s.ratings.RatingByID(ctx, p.Account.ID)
	if err != nil {
		return fmt.Errorf("failed to snapshot rating: %w", err)
	}

	if !s.queue.Enqueue(p, rating, s.clock.Now()) {
		return ErrAlreadyQueued
	}

	s.logger.Info("Player queued",
		zap.String("playerId", p.ID.String()),
		zap.String("username", p.Account.Username),
		zap.String("role", string(p.Account.Role)),
		zap.Int("queueSize", s.queue.Size()))

	return nil
}

// Remove drops a player from the queue, e.g. on disconnect. No-op if the
// player is not queued.
func (s *MatchmakingService) Remove(playerID uuid.UUID) {
	if s.queue.Remove(playerID) {
		s.logger.Debug("Player removed from queue",
			zap.String("playerId", playerID.String()))
	}
}

// QueueSnapshot exposes the current queue contents for monitoring.
func (s *MatchmakingService) QueueSnapshot() []*QueueEntry {
	return s.queue.Snapshot()
}

// Tick runs one match formation pass. Entries are processed in enqueue
// order; for each unmatched entry, all later unmatched entries are scored,
// candidates below the quality threshold are discarded and one of the rest
// is sampled with probability proportional to its score. Matched pairs are
// removed atomically from the queue and handed to the session launcher.
func (s *MatchmakingService) Tick(ctx context.Context) {
	settings := s.tunables.Matchmaking()
	now := s.clock.Now()

	minWaiting := int(math.Ceil(float64(s.registry.Count()) * settings.PercentageMinPlayersWaiting))
	if s.queue.Size() < minWaiting {
		return
	}

	ranks, err := s.ranks.Ranks(ctx)
	if err != nil {
		s.logger.Error("Failed to compute leaderboard ranks", zap.Error(err))
		return
	}

	entries := s.queue.Snapshot()
	matched := make(map[uuid.UUID]bool)

	for i := 0; i < len(entries)-1; i++ {
		if s.sessions.ActiveCount() >= settings.MaxParallelGames {
			s.logger.Debug("Parallel game limit reached",
				zap.Int("limit", settings.MaxParallelGames))
			return
		}

		a := entries[i]
		if matched[a.Player.ID] {
			continue
		}

		candidates, weights := s.collectCandidates(a, entries[i+1:], matched, ranks, now, settings)
		if len(candidates) == 0 {
			// a stays queued; its time bonus keeps growing
			continue
		}

		b := candidates[s.weightedPick(weights)]

		matched[a.Player.ID] = true
		matched[b.Player.ID] = true
		s.queue.Remove(a.Player.ID)
		s.queue.Remove(b.Player.ID)

		if err := s.sessions.Launch(a.Player, b.Player); err != nil {
			// put both back with their original enqueue times so a failed
			// launch never loses players
			s.queue.Enqueue(a.Player, a.Rating, a.EnqueuedAt)
			s.queue.Enqueue(b.Player, b.Rating, b.EnqueuedAt)
			s.logger.Error("Failed to launch game session",
				zap.String("player1", a.Player.ID.String()),
				zap.String("player2", b.Player.ID.String()),
				zap.Error(err))
			continue
		}

		s.logger.Info("Players matched",
			zap.String("player1", a.Player.Account.Username),
			zap.String("player2", b.Player.Account.Username))
	}
}

func (s *MatchmakingService) collectCandidates(
	a *QueueEntry,
	later []*QueueEntry,
	matched map[uuid.UUID]bool,
	ranks map[int64]int,
	now time.Time,
	settings config.MatchmakingSettings,
) ([]*QueueEntry, []float64) {
	var candidates []*QueueEntry
	var weights []float64

	for _, b := range later {
		if matched[b.Player.ID] || !a.legalMatch(b) {
			continue
		}

		quality := MatchQuality(a, b, ranks, now, settings)
		if quality < settings.QualityThreshold {
			continue
		}

		candidates = append(candidates, b)
		weights = append(weights, quality)
	}

	return candidates, weights
}

// weightedPick samples an index with probability proportional to its
// weight. Sampling instead of taking the argmax avoids forming the same top
// pairings every tick. Equal weights resolve in candidate order, which keeps
// the output reproducible under a fixed seed.
func (s *MatchmakingService) weightedPick(weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return 0
	}

	target := s.rng.Float64() * total
	var cumulative float64
	for i, w := range weights {
		cumulative += w
		if target < cumulative {
			return i
		}
	}
	return len(weights) - 1
}
