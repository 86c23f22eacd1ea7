package postgres

import (
	"context"
	"database/sql"

	"warsjawa/internal/domain"
)

type mailErrorRepository struct {
	DB *sql.DB
}

// NewMailErrorRepository returns a domain.MailErrorRepository implemented with Postgres.
func NewMailErrorRepository(db *sql.DB) domain.MailErrorRepository {
	return &mailErrorRepository{DB: db}
}

func (r *mailErrorRepository) Record(ctx context.Context, msg *domain.OutboundMessage, sendErr error) error {
	query := `
		INSERT INTO mail_errors (recipient, sender, subject, detail, occurred_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	_, err := r.DB.ExecContext(ctx, query, msg.To, msg.From, msg.Subject, sendErr.Error())
	return err
}
