package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/martius-lab/comprl/internal/clock"
	"github.com/martius-lab/comprl/internal/models"
	"github.com/martius-lab/comprl/internal/transport"
)

// SessionState is the phase a game session is in.
type SessionState string

const (
	StateStarting          SessionState = "starting"
	StateCollectingActions SessionState = "collecting_actions"
	StateApplyingUpdate    SessionState = "applying_update"
	StateFinished          SessionState = "finished"
)

// Outcome is everything a finished session produced: the immutable match
// record, the per-round action log for archival and the participants to
// release.
type Outcome struct {
	Record       models.MatchRecord
	Participants []*Player
	// ActionLog holds one entry per completed round, in participant order.
	ActionLog [][]json.RawMessage
	// Err is the internal error for aborted sessions.
	Err error
}

// GameSession drives one match from start to finished outcome. It collects
// actions round by round from both participants under a per-action timeout;
// a timeout, disconnect or invalid action ends the game immediately.
type GameSession struct {
	ID      uuid.UUID
	logic   GameLogic
	players []*Player

	actionTimeout time.Duration
	clock         clock.Clock
	logger        *zap.Logger

	state        SessionState
	startedAt    time.Time
	disconnected *uuid.UUID
	actionLog    [][]json.RawMessage
}

func NewGameSession(players []*Player, logic GameLogic, actionTimeout time.Duration, clk clock.Clock, logger *zap.Logger) *GameSession {
	id := uuid.New()
	return &GameSession{
		ID:            id,
		logic:         logic,
		players:       players,
		actionTimeout: actionTimeout,
		clock:         clk,
		logger:        logger.With(zap.String("gameId", id.String())),
		state:         StateStarting,
	}
}

func (s *GameSession) State() SessionState {
	return s.state
}

// PlayerIDs returns the participant IDs in seat order.
func (s *GameSession) PlayerIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(s.players))
	for i, p := range s.players {
		ids[i] = p.ID
	}
	return ids
}

// Run executes the session to completion and returns its outcome. It never
// blocks longer than one action timeout past ctx cancellation and never
// leaves a participant waiting beyond its own timeout.
func (s *GameSession) Run(ctx context.Context) *Outcome {
	s.startedAt = s.clock.Now()
	endState := models.EndStateCompleted
	var internalErr error

	s.notifyStart()

	for {
		s.state = StateCollectingActions
		actions, failed := s.collectActions(ctx)

		if ctx.Err() != nil {
			// server shutdown while in flight
			endState = models.EndStateAborted
			internalErr = ctx.Err()
			break
		}
		if failed != nil {
			s.disconnected = failed
			endState = models.EndStatePlayerDisconnected
			break
		}

		s.state = StateApplyingUpdate
		s.logRound(actions)

		ended, err := s.logic.Update(actions)
		if err != nil {
			s.logger.Error("Game update failed", zap.Error(err))
			endState = models.EndStateAborted
			internalErr = err
			break
		}
		if ended {
			break
		}
	}

	s.state = StateFinished
	return s.finish(endState, internalErr)
}

func (s *GameSession) notifyStart() {
	for _, p := range s.players {
		if err := p.Conn.Send(transport.Envelope{
			Type:   transport.MessageTypeGameStart,
			GameID: s.ID.String(),
		}); err != nil {
			s.logger.Debug("Failed to notify game start",
				zap.String("playerId", p.ID.String()),
				zap.Error(err))
		}
	}
}

type actionResult struct {
	playerID uuid.UUID
	msg      transport.Envelope
	err      error
}

// collectActions pushes each participant its observation and waits for all
// actions. The first timeout, disconnect, protocol violation or invalid
// action cancels the remaining waits and returns the failing participant.
func (s *GameSession) collectActions(ctx context.Context) (map[uuid.UUID]json.RawMessage, *uuid.UUID) {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan actionResult, len(s.players))

	for _, p := range s.players {
		obs := s.logic.Observation(p.ID)

		if err := p.Conn.Send(transport.Envelope{
			Type:    transport.MessageTypeRequestAction,
			GameID:  s.ID.String(),
			Payload: obs,
		}); err != nil {
			failed := p.ID
			return nil, &failed
		}

		go func(p *Player) {
			msg, err := p.Conn.Receive(waitCtx, s.actionTimeout)
			results <- actionResult{playerID: p.ID, msg: msg, err: err}
		}(p)
	}

	actions := make(map[uuid.UUID]json.RawMessage, len(s.players))
	for range s.players {
		r := <-results

		if ctx.Err() != nil {
			return nil, nil
		}

		if r.err != nil {
			s.logger.Info("Participant failed to act",
				zap.String("playerId", r.playerID.String()),
				zap.Error(r.err))
			failed := r.playerID
			return nil, &failed
		}

		if r.msg.Type != transport.MessageTypeAction {
			s.logger.Info("Protocol violation: unexpected message type",
				zap.String("playerId", r.playerID.String()),
				zap.String("type", string(r.msg.Type)))
			s.disconnectPlayer(r.playerID, "protocol violation")
			failed := r.playerID
			return nil, &failed
		}

		if !s.logic.ValidateAction(r.playerID, r.msg.Payload) {
			s.logger.Info("Invalid action",
				zap.String("playerId", r.playerID.String()))
			s.disconnectPlayer(r.playerID, "invalid action")
			failed := r.playerID
			return nil, &failed
		}

		actions[r.playerID] = r.msg.Payload
	}

	return actions, nil
}

// disconnectPlayer tells the offender why before dropping its connection.
func (s *GameSession) disconnectPlayer(playerID uuid.UUID, reason string) {
	for _, p := range s.players {
		if p.ID == playerID {
			if payload, err := json.Marshal(transport.InfoPayload{Message: reason}); err == nil {
				_ = p.Conn.Send(transport.Envelope{
					Type:    transport.MessageTypeError,
					GameID:  s.ID.String(),
					Payload: payload,
				})
			}
			p.Conn.Close(reason)
			return
		}
	}
}

func (s *GameSession) logRound(actions map[uuid.UUID]json.RawMessage) {
	round := make([]json.RawMessage, len(s.players))
	for i, p := range s.players {
		round[i] = actions[p.ID]
	}
	s.actionLog = append(s.actionLog, round)
}

// finish assembles the match record and notifies surviving participants.
func (s *GameSession) finish(endState models.EndState, internalErr error) *Outcome {
	p1, p2 := s.players[0], s.players[1]

	record := models.MatchRecord{
		GameID:      s.ID.String(),
		Account1ID:  p1.Account.ID,
		Account2ID:  p2.Account.ID,
		StartedAt:   s.startedAt,
		CompletedAt: s.clock.Now(),
		EndState:    endState,
	}

	if endState == models.EndStateCompleted {
		record.Score1 = s.logic.Score(p1.ID)
		record.Score2 = s.logic.Score(p2.ID)

		// a draw has no winner
		if s.logic.PlayerWon(p1.ID) {
			record.WinnerID = &p1.Account.ID
		} else if s.logic.PlayerWon(p2.ID) {
			record.WinnerID = &p2.Account.ID
		}
	}

	if s.disconnected != nil {
		for _, p := range s.players {
			if p.ID == *s.disconnected {
				record.DisconnectedID = &p.Account.ID
			}
		}
	}

	s.notifyEnd(endState)

	s.logger.Info("Game finished",
		zap.String("endState", string(endState)),
		zap.Duration("duration", record.CompletedAt.Sub(record.StartedAt)),
		zap.Int("rounds", len(s.actionLog)))

	return &Outcome{
		Record:       record,
		Participants: s.players,
		ActionLog:    s.actionLog,
		Err:          internalErr,
	}
}

func (s *GameSession) notifyEnd(endState models.EndState) {
	for _, p := range s.players {
		if s.disconnected != nil && p.ID == *s.disconnected {
			continue
		}

		payload := transport.GameEndPayload{}
		if endState == models.EndStateCompleted {
			payload.Won = s.logic.PlayerWon(p.ID)
			payload.Stats = s.logic.PlayerStats(p.ID)
		}

		data, err := json.Marshal(payload)
		if err != nil {
			continue
		}

		if err := p.Conn.Send(transport.Envelope{
			Type:    transport.MessageTypeGameEnd,
			GameID:  s.ID.String(),
			Payload: data,
		}); err != nil {
			s.logger.Debug("Failed to notify game end",
				zap.String("playerId", p.ID.String()),
				zap.Error(err))
		}
	}
}
