package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Default rating assigned to new accounts.
const (
	DefaultMu    = 25.0
	DefaultSigma = 8.333
)

type AccountRole string

const (
	RoleUser AccountRole = "user"
	RoleBot  AccountRole = "bot"
)

// Account is a registered identity with a persistent skill rating. Ratings
// are mutated only by the post-match update and the decay sweep.
type Account struct {
	ID           int64       `json:"id" db:"user_id"`
	Username     string      `json:"username" db:"username"`
	PasswordHash string      `json:"-" db:"password_hash"`
	Token        string      `json:"-" db:"token"`
	Role         AccountRole `json:"role" db:"role"`
	Mu           float64     `json:"mu" db:"mu"`
	Sigma        float64     `json:"sigma" db:"sigma"`
	CreatedAt    time.Time   `json:"createdAt" db:"created_at"`
}

// RankingScore is the value accounts are ordered by on the leaderboard.
func (a *Account) RankingScore() float64 {
	return RankingScore(a.Mu, a.Sigma)
}

func RankingScore(mu, sigma float64) float64 {
	return mu - sigma
}

func (a *Account) IsBot() bool {
	return a.Role == RoleBot
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func (a *Account) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password))
	return err == nil
}

// RatingSnapshot is a read-only view of an account's rating at a point in
// time. Matchmaking works on snapshots taken at enqueue time.
type RatingSnapshot struct {
	AccountID int64   `json:"accountId"`
	Mu        float64 `json:"mu"`
	Sigma     float64 `json:"sigma"`
}

func (s RatingSnapshot) RankingScore() float64 {
	return RankingScore(s.Mu, s.Sigma)
}
