package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// MatchmakingSettings are the matchmaker tunables. They can be reloaded at
// runtime via SIGHUP without restarting the server.
type MatchmakingSettings struct {
	// Sigma of the Gauss kernel applied to leaderboard rank distance.
	GaussLeaderboardSigma float64
	// Minimum quality score for a pair to be matched.
	QualityThreshold float64
	// Fraction of connected players that must be waiting before any
	// matches are formed.
	PercentageMinPlayersWaiting float64
	// Bonus per combined waiting minute beyond the first.
	PercentalTimeBonus float64
	// Cap on concurrently running games.
	MaxParallelGames int
}

// DecaySettings control the score decay sweep. Reloadable like
// MatchmakingSettings.
type DecaySettings struct {
	// Sweep interval. Zero disables decay.
	Interval time.Duration
	// Amount added to sigma of inactive accounts per sweep.
	Delta float64
}

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Database
	DatabaseURL string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JWTSecret     string
	JWTExpiration time.Duration

	// Key that has to be presented to register an account.
	RegistrationKey string

	// Directory for archived game action logs.
	DataDir string

	// Matchmaking tick interval.
	TickInterval time.Duration
	// Seconds a participant gets to answer an action request.
	ActionTimeout time.Duration

	// How a disconnected participant's rating is treated: "skip" leaves
	// ratings untouched, "loss" ranks the disconnected participant last.
	RatingOnDisconnect string

	Matchmaking MatchmakingSettings
	Decay       DecaySettings
}

func Load() (*Config, error) {
	// load .env if present
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		JWTSecret:          getEnv("JWT_SECRET", "change-me"),
		JWTExpiration:      getEnvDuration("JWT_EXPIRATION", 24*time.Hour),
		RegistrationKey:    getEnv("REGISTRATION_KEY", ""),
		DataDir:            getEnv("DATA_DIR", "data"),
		TickInterval:       getEnvDuration("MATCHMAKING_TICK_INTERVAL", time.Second),
		ActionTimeout:      getEnvDuration("ACTION_TIMEOUT", 10*time.Second),
		RatingOnDisconnect: getEnv("RATING_ON_DISCONNECT", "skip"),
		Matchmaking:        LoadMatchmakingSettings(),
		Decay:              LoadDecaySettings(),
	}

	return cfg, nil
}

// LoadMatchmakingSettings re-reads the reloadable matchmaking tunables from
// the environment.
func LoadMatchmakingSettings() MatchmakingSettings {
	return MatchmakingSettings{
		GaussLeaderboardSigma:       getEnvFloat("GAUSS_LEADERBOARD_SIGMA", 20.0),
		QualityThreshold:            getEnvFloat("MATCH_QUALITY_THRESHOLD", 0.3),
		PercentageMinPlayersWaiting: getEnvFloat("PERCENTAGE_MIN_PLAYERS_WAITING", 0.1),
		PercentalTimeBonus:          getEnvFloat("PERCENTAL_TIME_BONUS", 0.1),
		MaxParallelGames:            getEnvInt("MAX_PARALLEL_GAMES", 100),
	}
}

// LoadDecaySettings re-reads the reloadable decay tunables from the
// environment.
func LoadDecaySettings() DecaySettings {
	return DecaySettings{
		Interval: time.Duration(getEnvInt("DECAY_INTERVAL_MINUTES", 0)) * time.Minute,
		Delta:    getEnvFloat("DECAY_DELTA", 0.5),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
