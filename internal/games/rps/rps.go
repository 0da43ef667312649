// Package rps is a rock-paper-scissors game used as the default game logic
// and as a reference for implementing new games against the GameLogic
// interface.
package rps

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/martius-lab/comprl/internal/service"
)

const defaultRoundsToWin = 3

type action struct {
	Move string `json:"move"`
}

type observation struct {
	Round         int     `json:"round"`
	YourScore     float64 `json:"yourScore"`
	OpponentScore float64 `json:"opponentScore"`
}

type stats struct {
	Score  float64 `json:"score"`
	Rounds int     `json:"rounds"`
}

// Game is one rock-paper-scissors match, first to roundsToWin round wins.
type Game struct {
	participants []uuid.UUID
	scores       map[uuid.UUID]float64
	round        int
	roundsToWin  float64
}

var _ service.GameLogic = (*Game)(nil)

// NewFactory returns a GameFactory producing matches that end when one side
// has won roundsToWin rounds.
func NewFactory(roundsToWin int) service.GameFactory {
	if roundsToWin <= 0 {
		roundsToWin = defaultRoundsToWin
	}
	return func(participants []uuid.UUID) service.GameLogic {
		scores := make(map[uuid.UUID]float64, len(participants))
		for _, p := range participants {
			scores[p] = 0
		}
		return &Game{
			participants: participants,
			scores:       scores,
			roundsToWin:  float64(roundsToWin),
		}
	}
}

func (g *Game) ValidateAction(_ uuid.UUID, raw json.RawMessage) bool {
	var a action
	if err := json.Unmarshal(raw, &a); err != nil {
		return false
	}
	switch a.Move {
	case "rock", "paper", "scissors":
		return true
	}
	return false
}

func (g *Game) Update(actions map[uuid.UUID]json.RawMessage) (bool, error) {
	g.round++

	p1, p2 := g.participants[0], g.participants[1]

	var a1, a2 action
	if err := json.Unmarshal(actions[p1], &a1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(actions[p2], &a2); err != nil {
		return false, err
	}

	switch beats(a1.Move, a2.Move) {
	case 1:
		g.scores[p1]++
	case -1:
		g.scores[p2]++
	}

	ended := g.scores[p1] >= g.roundsToWin || g.scores[p2] >= g.roundsToWin
	return ended, nil
}

func (g *Game) Observation(participant uuid.UUID) json.RawMessage {
	opponent := g.participants[0]
	if opponent == participant {
		opponent = g.participants[1]
	}

	data, _ := json.Marshal(observation{
		Round:         g.round,
		YourScore:     g.scores[participant],
		OpponentScore: g.scores[opponent],
	})
	return data
}

func (g *Game) PlayerWon(participant uuid.UUID) bool {
	return g.scores[participant] >= g.roundsToWin
}

func (g *Game) Score(participant uuid.UUID) float64 {
	return g.scores[participant]
}

func (g *Game) PlayerStats(participant uuid.UUID) json.RawMessage {
	data, _ := json.Marshal(stats{
		Score:  g.scores[participant],
		Rounds: g.round,
	})
	return data
}

// beats returns 1 if a beats b, -1 if b beats a, 0 on a tie.
func beats(a, b string) int {
	if a == b {
		return 0
	}
	wins := map[string]string{
		"rock":     "scissors",
		"paper":    "rock",
		"scissors": "paper",
	}
	if wins[a] == b {
		return 1
	}
	return -1
}
