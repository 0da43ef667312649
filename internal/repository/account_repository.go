package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/martius-lab/comprl/internal/models"
	"github.com/martius-lab/comprl/pkg/database"
)

type AccountRepository struct {
	db *database.DB
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account with the default rating.
func (r *AccountRepository) Create(ctx context.Context, username, passwordHash, token string, role models.AccountRole) (*models.Account, error) {
	query := `
		INSERT INTO accounts (username, password_hash, token, role, mu, sigma)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING user_id, username, password_hash, token, role, mu, sigma, created_at
	`

	account := &models.Account{}
	err := r.db.QueryRowContext(ctx, query,
		username, passwordHash, token, role, models.DefaultMu, models.DefaultSigma,
	).Scan(
		&account.ID,
		&account.Username,
		&account.PasswordHash,
		&account.Token,
		&account.Role,
		&account.Mu,
		&account.Sigma,
		&account.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return account, nil
}

// FindByID returns the account or nil if it does not exist.
func (r *AccountRepository) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.findOne(ctx, "user_id = $1", id)
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	return r.findOne(ctx, "username = $1", username)
}

// FindByToken looks up an account by its agent access token.
func (r *AccountRepository) FindByToken(ctx context.Context, token string) (*models.Account, error) {
	return r.findOne(ctx, "token = $1", token)
}

func (r *AccountRepository) findOne(ctx context.Context, where string, arg interface{}) (*models.Account, error) {
	query := `
		SELECT user_id, username, password_hash, token, role, mu, sigma, created_at
		FROM accounts
		WHERE ` + where

	account := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&account.ID,
		&account.Username,
		&account.PasswordHash,
		&account.Token,
		&account.Role,
		&account.Mu,
		&account.Sigma,
		&account.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	return account, nil
}

// RatingByID returns the current rating snapshot of an account.
func (r *AccountRepository) RatingByID(ctx context.Context, id int64) (models.RatingSnapshot, error) {
	query := `SELECT mu, sigma FROM accounts WHERE user_id = $1`

	snapshot := models.RatingSnapshot{AccountID: id}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&snapshot.Mu, &snapshot.Sigma)
	if err != nil {
		return models.RatingSnapshot{}, fmt.Errorf("failed to get rating: %w", err)
	}

	return snapshot, nil
}

// UpdateRating persists a new rating pair for an account.
func (r *AccountRepository) UpdateRating(ctx context.Context, id int64, mu, sigma float64) error {
	query := `UPDATE accounts SET mu = $2, sigma = $3 WHERE user_id = $1`

	result, err := r.db.ExecContext(ctx, query, id, mu, sigma)
	if err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to update rating: account %d not found", id)
	}

	return nil
}

// RankedAccounts returns all accounts ordered by ranking score (mu - sigma)
// descending, ties broken by account ID for determinism.
func (r *AccountRepository) RankedAccounts(ctx context.Context) ([]models.Account, error) {
	query := `
		SELECT user_id, username, password_hash, token, role, mu, sigma, created_at
		FROM accounts
		ORDER BY mu - sigma DESC, user_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list ranked accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var account models.Account
		if err := rows.Scan(
			&account.ID,
			&account.Username,
			&account.PasswordHash,
			&account.Token,
			&account.Role,
			&account.Mu,
			&account.Sigma,
			&account.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

// DecayInactive raises sigma by delta (capped at sigmaCap) for every account
// without a normally completed game at or after since. Disconnected and
// aborted games are not activity; only end_state = completed counts, the same
// definition CountCompletedSince uses.
func (r *AccountRepository) DecayInactive(ctx context.Context, since time.Time, delta, sigmaCap float64) (int64, error) {
	query := `
		UPDATE accounts
		SET sigma = LEAST($2, sigma + $1)
		WHERE sigma < $2
		  AND NOT EXISTS (
		    SELECT 1 FROM games g
		    WHERE g.completed_at >= $3
		      AND g.end_state = $4
		      AND (g.account1_id = accounts.user_id OR g.account2_id = accounts.user_id)
		  )
	`

	result, err := r.db.ExecContext(ctx, query, delta, sigmaCap, since, models.EndStateCompleted)
	if err != nil {
		return 0, fmt.Errorf("failed to decay ratings: %w", err)
	}

	return result.RowsAffected()
}
