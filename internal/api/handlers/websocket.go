package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/martius-lab/comprl/internal/service"
	"github.com/martius-lab/comprl/internal/transport"
	"github.com/martius-lab/comprl/pkg/ratelimit"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// agents are headless clients, not browsers
		return true
	},
}

// AgentHandler terminates agent websocket connections: it authenticates the
// agent token, registers the player and hands it to the matchmaker. The
// player stays registered until its connection drops.
type AgentHandler struct {
	accounts   *service.AccountService
	registry   *service.PlayerRegistry
	matchmaker *service.MatchmakingService
	limiter    *ratelimit.Limiter
	logger     *zap.Logger
}

func NewAgentHandler(
	accounts *service.AccountService,
	registry *service.PlayerRegistry,
	matchmaker *service.MatchmakingService,
	limiter *ratelimit.Limiter,
	logger *zap.Logger,
) *AgentHandler {
	return &AgentHandler{
		accounts:   accounts,
		registry:   registry,
		matchmaker: matchmaker,
		limiter:    limiter,
		logger:     logger,
	}
}

// Connect handles GET /ws. The agent token is passed as a query parameter
// because websocket clients cannot reliably set headers.
func (h *AgentHandler) Connect(c *gin.Context) {
	if !h.limiter.Allow(c.ClientIP()) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many connection attempts"})
		return
	}

	token := c.Query("token")
	account, err := h.accounts.AuthenticateAgent(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid agent token"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			zap.String("clientIp", c.ClientIP()),
			zap.Error(err))
		return
	}

	conn := transport.NewWSConn(ws, h.logger)
	player := service.NewPlayer(account, conn)
	h.registry.Add(player)

	h.logger.Info("Agent connected",
		zap.String("playerId", player.ID.String()),
		zap.String("username", account.Username),
		zap.String("remoteAddr", conn.RemoteAddr()))

	if err := h.matchmaker.Enqueue(c.Request.Context(), player); err != nil {
		h.logger.Error("Failed to queue player",
			zap.String("playerId", player.ID.String()),
			zap.Error(err))
		h.registry.Remove(player.ID)
		conn.Close("failed to enter matchmaking")
		return
	}

	if payload, err := json.Marshal(transport.InfoPayload{Message: "waiting for opponent"}); err == nil {
		_ = conn.Send(transport.Envelope{
			Type:    transport.MessageTypeInfo,
			Payload: payload,
		})
	}

	go h.watch(player)
}

// watch releases the player once its connection drops. A player in a running
// game is not in the queue, so removing from both is always safe.
func (h *AgentHandler) watch(player *service.Player) {
	<-player.Conn.Done()

	h.matchmaker.Remove(player.ID)
	h.registry.Remove(player.ID)

	h.logger.Info("Agent disconnected",
		zap.String("playerId", player.ID.String()),
		zap.String("username", player.Account.Username))
}
