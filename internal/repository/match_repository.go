package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/martius-lab/comprl/internal/models"
	"github.com/martius-lab/comprl/pkg/database"
)

type MatchRepository struct {
	db *database.DB
}

func NewMatchRepository(db *database.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// Save inserts a finished match record. Records are immutable once written.
func (r *MatchRepository) Save(ctx context.Context, record *models.MatchRecord) error {
	query := `
		INSERT INTO games (game_id, account1_id, account2_id, score1, score2,
			started_at, completed_at, end_state, winner_id, disconnected_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.GameID,
		record.Account1ID,
		record.Account2ID,
		record.Score1,
		record.Score2,
		record.StartedAt,
		record.CompletedAt,
		record.EndState,
		record.WinnerID,
		record.DisconnectedID,
	)
	if err != nil {
		return fmt.Errorf("failed to save match record: %w", err)
	}

	return nil
}

// FindByGameID returns the record or nil if it does not exist.
func (r *MatchRepository) FindByGameID(ctx context.Context, gameID string) (*models.MatchRecord, error) {
	query := `
		SELECT game_id, account1_id, account2_id, score1, score2,
			started_at, completed_at, end_state, winner_id, disconnected_id
		FROM games
		WHERE game_id = $1
	`

	record := &models.MatchRecord{}
	err := r.db.QueryRowContext(ctx, query, gameID).Scan(
		&record.GameID,
		&record.Account1ID,
		&record.Account2ID,
		&record.Score1,
		&record.Score2,
		&record.StartedAt,
		&record.CompletedAt,
		&record.EndState,
		&record.WinnerID,
		&record.DisconnectedID,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find match record: %w", err)
	}

	return record, nil
}

// FindByAccountID lists an account's matches, newest first.
func (r *MatchRepository) FindByAccountID(ctx context.Context, accountID int64, limit, offset int) ([]*models.MatchRecord, error) {
	query := `
		SELECT game_id, account1_id, account2_id, score1, score2,
			started_at, completed_at, end_state, winner_id, disconnected_id
		FROM games
		WHERE account1_id = $1 OR account2_id = $1
		ORDER BY completed_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var records []*models.MatchRecord
	for rows.Next() {
		record := &models.MatchRecord{}
		if err := rows.Scan(
			&record.GameID,
			&record.Account1ID,
			&record.Account2ID,
			&record.Score1,
			&record.Score2,
			&record.StartedAt,
			&record.CompletedAt,
			&record.EndState,
			&record.WinnerID,
			&record.DisconnectedID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// CountCompletedSince counts games that finished normally at or after since.
func (r *MatchRepository) CountCompletedSince(ctx context.Context, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM games WHERE end_state = $1 AND completed_at >= $2`

	var count int
	err := r.db.QueryRowContext(ctx, query, models.EndStateCompleted, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed games: %w", err)
	}

	return count, nil
}
