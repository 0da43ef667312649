package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/martius-lab/comprl/internal/service"
)

type MonitorHandler struct {
	registry   *service.PlayerRegistry
	matchmaker *service.MatchmakingService
	sessions   *service.GameSessionManager
}

func NewMonitorHandler(
	registry *service.PlayerRegistry,
	matchmaker *service.MatchmakingService,
	sessions *service.GameSessionManager,
) *MonitorHandler {
	return &MonitorHandler{
		registry:   registry,
		matchmaker: matchmaker,
		sessions:   sessions,
	}
}

type queuedPlayer struct {
	PlayerID  string  `json:"playerId"`
	Username  string  `json:"username"`
	Mu        float64 `json:"mu"`
	Sigma     float64 `json:"sigma"`
	WaitedSec float64 `json:"waitedSeconds"`
}

type connectedPlayer struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Snapshot reports connected players, the waiting queue in order and the
// running games.
func (h *MonitorHandler) Snapshot(c *gin.Context) {
	players := h.registry.List()
	connected := make([]connectedPlayer, 0, len(players))
	for _, p := range players {
		connected = append(connected, connectedPlayer{
			PlayerID: p.ID.String(),
			Username: p.Account.Username,
			Role:     string(p.Account.Role),
		})
	}

	now := time.Now()
	entries := h.matchmaker.QueueSnapshot()
	queue := make([]queuedPlayer, 0, len(entries))
	for _, e := range entries {
		queue = append(queue, queuedPlayer{
			PlayerID:  e.Player.ID.String(),
			Username:  e.Player.Account.Username,
			Mu:        e.Rating.Mu,
			Sigma:     e.Rating.Sigma,
			WaitedSec: e.WaitingTime(now).Seconds(),
		})
	}

	games := make([]gin.H, 0)
	for gameID, playerIDs := range h.sessions.ActiveGames() {
		ids := make([]string, 0, len(playerIDs))
		for _, id := range playerIDs {
			ids = append(ids, id.String())
		}
		games = append(games, gin.H{"gameId": gameID, "players": ids})
	}

	c.JSON(http.StatusOK, gin.H{
		"connectedPlayers": connected,
		"queue":            queue,
		"activeGames":      games,
	})
}
