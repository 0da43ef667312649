package service

import (
	"encoding/json"

	"github.com/google/uuid"
)

// GameLogic is the pluggable per-game capability. One instance is created
// per match with the participating player IDs; different games are different
// implementations selected at startup.
//
// All methods are called from the session goroutine only and are expected to
// return quickly.
type GameLogic interface {
	// ValidateAction checks an action before it enters the round. A false
	// return aborts the game as if the participant disconnected.
	ValidateAction(participant uuid.UUID, action json.RawMessage) bool
	// Update applies one complete round of actions and reports whether
	// the game is over.
	Update(actions map[uuid.UUID]json.RawMessage) (ended bool, err error)
	// Observation returns the participant's current view of the game.
	// Observations may differ per participant.
	Observation(participant uuid.UUID) json.RawMessage
	// PlayerWon reports whether the participant won. False for everyone
	// means a draw.
	PlayerWon(participant uuid.UUID) bool
	// Score returns the participant's final score for the match record.
	Score(participant uuid.UUID) float64
	// PlayerStats returns game-specific statistics sent to the
	// participant when the game ends.
	PlayerStats(participant uuid.UUID) json.RawMessage
}

// GameFactory creates the game logic for a freshly formed match.
type GameFactory func(participants []uuid.UUID) GameLogic
