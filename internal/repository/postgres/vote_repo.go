package postgres

import (
	"context"
	"database/sql"
	"errors"

	"warsjawa/internal/domain"
)

type voteRepository struct {
	DB *sql.DB
}

// NewVoteRepository returns a domain.VoteRepository implemented with Postgres.
func NewVoteRepository(db *sql.DB) domain.VoteRepository {
	return &voteRepository{DB: db}
}

// Put stores or updates the (mac, tagId) vote and reports whether it was new,
// changed, or a repeat of the same value.
func (r *voteRepository) Put(ctx context.Context, vote *domain.Vote) (domain.VoteOutcome, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var current bool
	err = tx.QueryRowContext(ctx,
		`SELECT is_positive FROM votes WHERE mac = $1 AND tag_id = $2 FOR UPDATE`,
		vote.Mac, vote.TagID,
	).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			`INSERT INTO votes (mac, tag_id, is_positive, voted_at) VALUES ($1, $2, $3, $4)`,
			vote.Mac, vote.TagID, vote.IsPositive, vote.VotedAt,
		)
		if err != nil {
			return 0, err
		}
		if err := tx.Commit(); err != nil {
			return 0, err
		}
		return domain.VoteCreated, nil
	case err != nil:
		return 0, err
	}

	if current == vote.IsPositive {
		return domain.VoteUnchanged, tx.Commit()
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE votes SET is_positive = $3, voted_at = $4 WHERE mac = $1 AND tag_id = $2`,
		vote.Mac, vote.TagID, vote.IsPositive, vote.VotedAt,
	)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return domain.VoteChanged, nil
}

type sellDataRepository struct {
	DB *sql.DB
}

// NewSellDataRepository returns a domain.SellDataRepository implemented with Postgres.
func NewSellDataRepository(db *sql.DB) domain.SellDataRepository {
	return &sellDataRepository{DB: db}
}

func (r *sellDataRepository) Record(ctx context.Context, mac, tagID string) error {
	query := `INSERT INTO sell_data (mac, tag_id, sold_at) VALUES ($1, $2, NOW())`
	_, err := r.DB.ExecContext(ctx, query, mac, tagID)
	return err
}
