package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/martius-lab/comprl/internal/api"
	"github.com/martius-lab/comprl/internal/archive"
	"github.com/martius-lab/comprl/internal/clock"
	"github.com/martius-lab/comprl/internal/config"
	"github.com/martius-lab/comprl/internal/games/rps"
	"github.com/martius-lab/comprl/internal/repository"
	"github.com/martius-lab/comprl/internal/service"
	"github.com/martius-lab/comprl/pkg/database"
	"github.com/martius-lab/comprl/pkg/jwt"
	"github.com/martius-lab/comprl/pkg/logger"
	"github.com/martius-lab/comprl/pkg/ratelimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger.Init(cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	log := logger.L()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	jwtManager := jwt.NewManager(cfg.JWTSecret, cfg.JWTExpiration)
	clk := clock.Real()
	tunables := config.NewTunables(cfg.Matchmaking, cfg.Decay)

	accountRepo := repository.NewAccountRepository(db)
	matchRepo := repository.NewMatchRepository(db)

	accountService := service.NewAccountService(accountRepo, jwtManager, cfg.RegistrationKey, log)
	ratingService := service.NewRatingService(accountRepo, service.NewGaussianSkillModel(), log)
	leaderboardService := service.NewLeaderboardService(accountRepo, redisClient, log)

	archiveWriter, err := archive.NewWriter(cfg.DataDir, log)
	if err != nil {
		logger.Fatal("Failed to set up archive directory", "error", err)
	}

	policy := service.DisconnectSkip
	if cfg.RatingOnDisconnect == string(service.DisconnectLoss) {
		policy = service.DisconnectLoss
	}

	sessionManager := service.NewGameSessionManager(
		rps.NewFactory(0),
		ratingService,
		matchRepo,
		archiveWriter,
		leaderboardService,
		policy,
		cfg.ActionTimeout,
		clk,
		log,
	)

	registry := service.NewPlayerRegistry()
	matchmaker := service.NewMatchmakingService(
		service.NewWaitingQueue(),
		registry,
		leaderboardService,
		ratingService,
		sessionManager,
		tunables,
		cfg.TickInterval,
		clk,
		time.Now().UnixNano(),
		log,
	)

	// finished players go straight back into the queue while they stay
	// connected
	sessionManager.SetRequeue(func(p *service.Player) {
		if err := matchmaker.Enqueue(context.Background(), p); err != nil {
			log.Warn("Failed to requeue player",
				zap.String("playerId", p.ID.String()),
				zap.Error(err))
		}
	})

	decayStore := struct {
		*repository.MatchRepository
		*repository.AccountRepository
	}{matchRepo, accountRepo}
	decayService := service.NewScoreDecayService(decayStore, tunables, clk, log)

	if err := leaderboardService.Rebuild(context.Background()); err != nil {
		log.Warn("Failed to prime leaderboard cache", zap.Error(err))
	}

	matchmaker.Start()
	decayService.Start()

	// SIGHUP reloads the matchmaking and decay tunables from the environment
	// (and .env) without a restart
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	go func() {
		for range reload {
			tunables.Update(config.LoadMatchmakingSettings(), config.LoadDecaySettings())
			log.Info("Tunables reloaded")
		}
	}()

	router := api.SetupRouter(api.Deps{
		Env:         cfg.Env,
		JWTManager:  jwtManager,
		Accounts:    accountService,
		Leaderboard: leaderboardService,
		Matches:     matchRepo,
		Registry:    registry,
		Matchmaker:  matchmaker,
		Sessions:    sessionManager,
		Limiter:     ratelimit.NewLimiter(10, 1),
		AuthLimiter: ratelimit.NewRedisLimiter(redisClient, "comprl:ratelimit:"),
		Logger:      log,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")

	// stop forming new matches first, then drain sessions, then close the
	// HTTP listener
	matchmaker.Stop()
	decayService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sessionManager.Shutdown(ctx); err != nil {
		logger.Error("Session drain incomplete", "error", err)
	}

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}

	logger.Info("Server stopped")
}
