package models

import "time"

// EndState describes how a game ended.
type EndState string

const (
	// EndStateCompleted is a normal end via the game logic.
	EndStateCompleted EndState = "completed"
	// EndStatePlayerDisconnected covers disconnects, action timeouts and
	// invalid actions.
	EndStatePlayerDisconnected EndState = "player_disconnected"
	// EndStateAborted is an internal failure or server shutdown while the
	// game was in flight.
	EndStateAborted EndState = "aborted"
)

// MatchRecord is the immutable record of one finished game. GameID doubles
// as the database primary key and the archival file name.
type MatchRecord struct {
	GameID         string    `json:"gameId" db:"game_id"`
	Account1ID     int64     `json:"account1Id" db:"account1_id"`
	Account2ID     int64     `json:"account2Id" db:"account2_id"`
	Score1         float64   `json:"score1" db:"score1"`
	Score2         float64   `json:"score2" db:"score2"`
	StartedAt      time.Time `json:"startedAt" db:"started_at"`
	CompletedAt    time.Time `json:"completedAt" db:"completed_at"`
	EndState       EndState  `json:"endState" db:"end_state"`
	WinnerID       *int64    `json:"winnerId,omitempty" db:"winner_id"`
	DisconnectedID *int64    `json:"disconnectedId,omitempty" db:"disconnected_id"`
}

// LeaderboardEntry is one row of the public leaderboard.
type LeaderboardEntry struct {
	Rank     int     `json:"rank"`
	Username string  `json:"username"`
	Mu       float64 `json:"mu"`
	Sigma    float64 `json:"sigma"`
	Score    float64 `json:"score"`
}
