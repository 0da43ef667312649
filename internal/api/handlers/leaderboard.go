package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/martius-lab/comprl/internal/service"
)

const (
	defaultLeaderboardSize = 50
	maxLeaderboardSize     = 200
)

type LeaderboardHandler struct {
	leaderboard *service.LeaderboardService
}

func NewLeaderboardHandler(leaderboard *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard}
}

// Top returns the first n leaderboard entries, n capped at 200.
func (h *LeaderboardHandler) Top(c *gin.Context) {
	n := defaultLeaderboardSize
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		n = parsed
	}
	if n > maxLeaderboardSize {
		n = maxLeaderboardSize
	}

	entries, err := h.leaderboard.Top(c.Request.Context(), n)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load leaderboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// Rank returns one account's cached leaderboard position.
func (h *LeaderboardHandler) Rank(c *gin.Context) {
	accountID, err := strconv.ParseInt(c.Param("accountId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}

	rank, found, err := h.leaderboard.CachedRank(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up rank"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not ranked"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accountId": accountID,
		"rank":      rank + 1,
	})
}
