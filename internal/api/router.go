package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/martius-lab/comprl/internal/api/handlers"
	"github.com/martius-lab/comprl/internal/api/middleware"
	"github.com/martius-lab/comprl/internal/repository"
	"github.com/martius-lab/comprl/internal/service"
	"github.com/martius-lab/comprl/pkg/jwt"
	"github.com/martius-lab/comprl/pkg/ratelimit"
)

// Deps bundles everything the HTTP layer needs. All fields are required.
type Deps struct {
	Env         string
	JWTManager  *jwt.Manager
	Accounts    *service.AccountService
	Leaderboard *service.LeaderboardService
	Matches     *repository.MatchRepository
	Registry    *service.PlayerRegistry
	Matchmaker  *service.MatchmakingService
	Sessions    *service.GameSessionManager
	Limiter     *ratelimit.Limiter
	AuthLimiter *ratelimit.RedisLimiter
	Logger      *zap.Logger
}

// SetupRouter builds the gin engine with all routes attached.
func SetupRouter(deps Deps) *gin.Engine {
	if deps.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(deps.Logger))

	router.GET("/health", handlers.HealthCheck)

	authHandler := handlers.NewAuthHandler(deps.Accounts)
	leaderboardHandler := handlers.NewLeaderboardHandler(deps.Leaderboard)
	matchHandler := handlers.NewMatchHandler(deps.Matches)
	monitorHandler := handlers.NewMonitorHandler(deps.Registry, deps.Matchmaker, deps.Sessions)
	agentHandler := handlers.NewAgentHandler(deps.Accounts, deps.Registry, deps.Matchmaker, deps.Limiter, deps.Logger)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		// credential endpoints share a distributed per-IP limit
		auth.Use(middleware.RateLimit(deps.AuthLimiter, 10, time.Minute, deps.Logger))
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		leaderboard := v1.Group("/leaderboard")
		{
			leaderboard.GET("", leaderboardHandler.Top)
			leaderboard.GET("/rank/:accountId", leaderboardHandler.Rank)
		}

		matches := v1.Group("/matches")
		{
			matches.GET("/:gameId", matchHandler.Get)

			authed := matches.Group("")
			authed.Use(middleware.Auth(deps.JWTManager))
			authed.GET("", matchHandler.History)
		}

		monitor := v1.Group("/monitor")
		monitor.Use(middleware.Auth(deps.JWTManager))
		{
			monitor.GET("", monitorHandler.Snapshot)
		}
	}

	router.GET("/ws", agentHandler.Connect)

	return router
}
