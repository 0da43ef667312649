package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/martius-lab/comprl/internal/clock"
	"github.com/martius-lab/comprl/internal/models"
)

// RatingUpdater applies a match outcome to the participants' persistent
// ratings. Account IDs and scores are index-aligned.
type RatingUpdater interface {
	UpdateAfterMatch(ctx context.Context, accountIDs []int64, scores []float64) ([]models.RatingSnapshot, error)
}

// MatchSaver persists a finished match record durably.
type MatchSaver interface {
	Save(ctx context.Context, record *models.MatchRecord) error
}

// Archiver stores the per-game action log. Failures are logged, never
// propagated; archival is fire-and-forget.
type Archiver interface {
	SaveGameLog(gameID string, rounds [][]json.RawMessage) error
}

// LeaderboardRebuilder refreshes the cached leaderboard after ratings
// changed.
type LeaderboardRebuilder interface {
	Rebuild(ctx context.Context) error
}

// DisconnectRatingPolicy decides how a disconnected participant's rating is
// treated.
type DisconnectRatingPolicy string

const (
	// DisconnectSkip leaves ratings untouched on disconnect.
	DisconnectSkip DisconnectRatingPolicy = "skip"
	// DisconnectLoss ranks the disconnected participant last.
	DisconnectLoss DisconnectRatingPolicy = "loss"
)

// Requeue is called with each still-connected participant after its session
// finished so the matchmaker can offer it a new game.
type Requeue func(p *Player)

// GameSessionManager owns the set of active sessions: it spawns one
// goroutine per match, finalizes outcomes (rating update, persistence,
// archival) and releases the players.
type GameSessionManager struct {
	factory       GameFactory
	ratings       RatingUpdater
	matches       MatchSaver
	archive       Archiver
	leaderboard   LeaderboardRebuilder
	policy        DisconnectRatingPolicy
	actionTimeout time.Duration
	clock         clock.Clock
	logger        *zap.Logger

	requeue Requeue

	mu       sync.Mutex
	sessions map[uuid.UUID]*GameSession
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewGameSessionManager(
	factory GameFactory,
	ratings RatingUpdater,
	matches MatchSaver,
	archive Archiver,
	leaderboard LeaderboardRebuilder,
	policy DisconnectRatingPolicy,
	actionTimeout time.Duration,
	clk clock.Clock,
	logger *zap.Logger,
) *GameSessionManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &GameSessionManager{
		factory:       factory,
		ratings:       ratings,
		matches:       matches,
		archive:       archive,
		leaderboard:   leaderboard,
		policy:        policy,
		actionTimeout: actionTimeout,
		clock:         clk,
		logger:        logger,
		sessions:      make(map[uuid.UUID]*GameSession),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// SetRequeue installs the callback used to offer finished players a new
// match. Set once during wiring, before any session is launched.
func (m *GameSessionManager) SetRequeue(requeue Requeue) {
	m.requeue = requeue
}

// Launch starts a session for a freshly formed pair.
func (m *GameSessionManager) Launch(p1, p2 *Player) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrSessionClosed
	}

	logic := m.factory([]uuid.UUID{p1.ID, p2.ID})
	session := NewGameSession([]*Player{p1, p2}, logic, m.actionTimeout, m.clock, m.logger)
	m.sessions[session.ID] = session
	m.wg.Add(1)
	m.mu.Unlock()

	m.logger.Info("Game started",
		zap.String("gameId", session.ID.String()),
		zap.String("player1", p1.Account.Username),
		zap.String("player2", p2.Account.Username))

	go m.run(session)

	return nil
}

func (m *GameSessionManager) run(session *GameSession) {
	defer m.wg.Done()

	outcome := session.Run(m.ctx)

	m.mu.Lock()
	delete(m.sessions, session.ID)
	m.mu.Unlock()

	// finalization uses a fresh context: a session that already finished
	// gets to complete its persistence even during shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	m.finalize(ctx, outcome)

	if m.requeue != nil {
		for _, p := range outcome.Participants {
			if p.Connected() {
				m.requeue(p)
			}
		}
	}
}

// finalize applies the rating update, persists the match record and hands
// the action log to the archiver.
func (m *GameSessionManager) finalize(ctx context.Context, outcome *Outcome) {
	record := &outcome.Record

	if outcome.Err != nil {
		m.logger.Error("Session aborted",
			zap.String("gameId", record.GameID),
			zap.Error(outcome.Err))
	}

	if ids, scores, ok := m.ratingUpdate(record); ok {
		if _, err := m.ratings.UpdateAfterMatch(ctx, ids, scores); err != nil {
			// surfaced to the operator; the record below still holds the
			// outcome, so the update can be replayed
			m.logger.Error("Failed to update ratings",
				zap.String("gameId", record.GameID),
				zap.Error(err))
		} else if m.leaderboard != nil {
			if err := m.leaderboard.Rebuild(ctx); err != nil {
				m.logger.Warn("Failed to rebuild leaderboard", zap.Error(err))
			}
		}
	}

	if err := m.matches.Save(ctx, record); err != nil {
		m.logger.Error("Failed to persist match record",
			zap.String("gameId", record.GameID),
			zap.Error(err))
	}

	if m.archive != nil && len(outcome.ActionLog) > 0 {
		go func() {
			if err := m.archive.SaveGameLog(record.GameID, outcome.ActionLog); err != nil {
				m.logger.Error("Failed to archive game log",
					zap.String("gameId", record.GameID),
					zap.Error(err))
			}
		}()
	}
}

// ratingUpdate derives the skill-model input from a record, honoring the
// disconnect policy. The bool is false when no update should happen.
func (m *GameSessionManager) ratingUpdate(record *models.MatchRecord) ([]int64, []float64, bool) {
	ids := []int64{record.Account1ID, record.Account2ID}

	switch record.EndState {
	case models.EndStateCompleted:
		return ids, []float64{record.Score1, record.Score2}, true

	case models.EndStatePlayerDisconnected:
		if m.policy != DisconnectLoss || record.DisconnectedID == nil {
			return nil, nil, false
		}
		if *record.DisconnectedID == record.Account1ID {
			return ids, []float64{0, 1}, true
		}
		return ids, []float64{1, 0}, true

	default:
		return nil, nil, false
	}
}

// ActiveCount reports how many sessions are currently running.
func (m *GameSessionManager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// ActiveGames lists the running sessions for monitoring.
func (m *GameSessionManager) ActiveGames() map[string][]uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()

	games := make(map[string][]uuid.UUID, len(m.sessions))
	for id, session := range m.sessions {
		games[id.String()] = session.PlayerIDs()
	}
	return games
}

// Shutdown aborts in-flight sessions and waits for finalization of all of
// them, or until ctx expires.
func (m *GameSessionManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
