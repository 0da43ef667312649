package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/martius-lab/comprl/internal/clock"
	"github.com/martius-lab/comprl/internal/config"
	"github.com/martius-lab/comprl/internal/models"
)

// DecayStore is what the sweep needs from persistence: the completed-match
// count in a window and the bulk sigma update.
type DecayStore interface {
	CountCompletedSince(ctx context.Context, since time.Time) (int, error)
	DecayInactive(ctx context.Context, since time.Time, delta, sigmaCap float64) (int64, error)
}

// ScoreDecayService periodically raises the rating uncertainty of inactive
// accounts. Without it, an account with a lucky start could stop playing and
// keep its standing forever; inactive accounts slowly move down instead.
//
// Each sweep covers exactly the window since the previous sweep, so running
// the loop never double-counts activity.
type ScoreDecayService struct {
	store    DecayStore
	tunables *config.Tunables
	clock    clock.Clock
	logger   *zap.Logger

	lastSweep time.Time

	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

func NewScoreDecayService(store DecayStore, tunables *config.Tunables, clk clock.Clock, logger *zap.Logger) *ScoreDecayService {
	return &ScoreDecayService{
		store:    store,
		tunables: tunables,
		clock:    clk,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

func (s *ScoreDecayService) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.lastSweep = s.clock.Now()

	s.logger.Info("Starting score decay",
		zap.Duration("interval", s.tunables.Decay().Interval))

	s.wg.Add(1)
	go s.loop()
}

func (s *ScoreDecayService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()
	s.logger.Info("Score decay stopped")
}

// loop checks once per minute whether the (reloadable) interval has
// elapsed. This lets a SIGHUP change the interval without restarting the
// ticker.
func (s *ScoreDecayService) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			settings := s.tunables.Decay()
			if settings.Interval <= 0 {
				continue
			}

			now := s.clock.Now()
			if now.Sub(s.lastSweep) < settings.Interval {
				continue
			}

			s.Sweep(context.Background(), now, settings.Delta)

		case <-s.stopChan:
			return
		}
	}
}

// Sweep decays all accounts without a completed match in the window since
// the previous sweep. If no match at all completed in the window the sweep
// is a no-op: nobody could have played, so nobody is penalized.
func (s *ScoreDecayService) Sweep(ctx context.Context, now time.Time, delta float64) {
	since := s.lastSweep
	s.lastSweep = now

	completed, err := s.store.CountCompletedSince(ctx, since)
	if err != nil {
		s.logger.Error("Failed to count completed matches", zap.Error(err))
		return
	}

	if completed == 0 {
		s.logger.Debug("No completed matches in window, skipping decay")
		return
	}

	affected, err := s.store.DecayInactive(ctx, since, delta, models.DefaultSigma)
	if err != nil {
		s.logger.Error("Decay sweep failed", zap.Error(err))
		return
	}

	s.logger.Info("Decay sweep completed",
		zap.Time("since", since),
		zap.Float64("delta", delta),
		zap.Int64("affected", affected))
}
