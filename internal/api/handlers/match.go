package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/martius-lab/comprl/internal/api/middleware"
	"github.com/martius-lab/comprl/internal/repository"
)

const (
	defaultMatchPageSize = 20
	maxMatchPageSize     = 100
)

type MatchHandler struct {
	matches *repository.MatchRepository
}

func NewMatchHandler(matches *repository.MatchRepository) *MatchHandler {
	return &MatchHandler{matches: matches}
}

// Get returns one finished match by game ID.
func (h *MatchHandler) Get(c *gin.Context) {
	gameID := c.Param("gameId")

	record, err := h.matches.FindByGameID(c.Request.Context(), gameID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load match"})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
		return
	}

	c.JSON(http.StatusOK, record)
}

// History lists the authenticated account's matches, newest first.
func (h *MatchHandler) History(c *gin.Context) {
	accountID := c.GetInt64(middleware.ContextAccountID)

	limit := defaultMatchPageSize
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	if limit > maxMatchPageSize {
		limit = maxMatchPageSize
	}

	offset := 0
	if raw := c.Query("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
			return
		}
		offset = parsed
	}

	records, err := h.matches.FindByAccountID(c.Request.Context(), accountID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load match history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"matches": records,
		"limit":   limit,
		"offset":  offset,
	})
}
