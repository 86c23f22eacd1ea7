package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"warsjawa/internal/domain"
)

type workshopRepository struct {
	DB *sql.DB
}

// NewWorkshopRepository returns a domain.WorkshopRepository implemented with Postgres.
func NewWorkshopRepository(db *sql.DB) domain.WorkshopRepository {
	return &workshopRepository{DB: db}
}

func (r *workshopRepository) Ensure(ctx context.Context, workshop *domain.Workshop) (bool, error) {
	// The email secret is written only on first insert; an existing workshop
	// keeps the one it was created with.
	query := `
		INSERT INTO workshops (workshop_id, email_secret, name, mentors, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (workshop_id) DO NOTHING
	`
	res, err := r.DB.ExecContext(ctx, query, workshop.WorkshopID, workshop.EmailSecret, workshop.Name, pq.Array(workshop.Mentors))
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

const workshopColumns = `workshop_id, email_secret, name, mentors, created_at`

func (r *workshopRepository) scanWorkshop(row *sql.Row) (*domain.Workshop, error) {
	w := &domain.Workshop{}
	err := row.Scan(&w.WorkshopID, &w.EmailSecret, &w.Name, pq.Array(&w.Mentors), &w.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrWorkshopNotFound
		}
		return nil, err
	}
	return w, nil
}

func (r *workshopRepository) GetByID(ctx context.Context, workshopID string) (*domain.Workshop, error) {
	query := `SELECT ` + workshopColumns + ` FROM workshops WHERE workshop_id = $1`
	return r.scanWorkshop(r.DB.QueryRowContext(ctx, query, workshopID))
}

func (r *workshopRepository) GetBySecret(ctx context.Context, secret string) (*domain.Workshop, error) {
	query := `SELECT ` + workshopColumns + ` FROM workshops WHERE email_secret = $1`
	return r.scanWorkshop(r.DB.QueryRowContext(ctx, query, secret))
}

// AppendEmail appends the message to the workshop log and snapshots the
// recipient set in one transaction. The workshop row is locked first, so two
// concurrent appends to the same workshop serialize and each sees the
// membership as of its own append.
func (r *workshopRepository) AppendEmail(ctx context.Context, workshopID string, msg *domain.EmailMessage) (*domain.RecipientSnapshot, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var mentors []string
	err = tx.QueryRowContext(ctx, `SELECT mentors FROM workshops WHERE workshop_id = $1 FOR UPDATE`, workshopID).
		Scan(pq.Array(&mentors))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrWorkshopNotFound
		}
		return nil, err
	}

	insert := `
		INSERT INTO workshop_emails (workshop_id, email_id, sender, subject, body_text, body_html, raw_message, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.ExecContext(ctx, insert,
		workshopID, msg.EmailID, msg.Sender, msg.Subject, msg.Text, msg.HTML, msg.RawMessage, msg.Date)
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `SELECT email FROM workshop_members WHERE workshop_id = $1 ORDER BY email`, workshopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshot := &domain.RecipientSnapshot{Mentors: mentors}
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		snapshot.Members = append(snapshot.Members, email)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (r *workshopRepository) AddMember(ctx context.Context, workshopID, email string) (bool, error) {
	query := `
		INSERT INTO workshop_members (workshop_id, email)
		VALUES ($1, $2)
		ON CONFLICT (workshop_id, email) DO NOTHING
	`
	res, err := r.DB.ExecContext(ctx, query, workshopID, email)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *workshopRepository) RemoveMember(ctx context.Context, workshopID, email string) (bool, error) {
	query := `DELETE FROM workshop_members WHERE workshop_id = $1 AND email = $2`
	res, err := r.DB.ExecContext(ctx, query, workshopID, email)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *workshopRepository) ListEmails(ctx context.Context, workshopID string) ([]*domain.EmailMessage, error) {
	query := `
		SELECT email_id, sender, subject, body_text, body_html, raw_message, received_at
		FROM workshop_emails
		WHERE workshop_id = $1
		ORDER BY seq
	`
	rows, err := r.DB.QueryContext(ctx, query, workshopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*domain.EmailMessage
	for rows.Next() {
		msg := &domain.EmailMessage{}
		var text, html, raw sql.NullString
		if err := rows.Scan(&msg.EmailID, &msg.Sender, &msg.Subject, &text, &html, &raw, &msg.Date); err != nil {
			return nil, err
		}
		msg.Text = nullableString(text)
		msg.HTML = nullableString(html)
		msg.RawMessage = nullableString(raw)
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *workshopRepository) ListByMember(ctx context.Context, email string) ([]*domain.Workshop, error) {
	query := `
		SELECT w.workshop_id, w.email_secret, w.name, w.mentors, w.created_at
		FROM workshops w
		JOIN workshop_members m ON m.workshop_id = w.workshop_id
		WHERE m.email = $1
		ORDER BY w.workshop_id
	`
	rows, err := r.DB.QueryContext(ctx, query, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workshops []*domain.Workshop
	for rows.Next() {
		w := &domain.Workshop{}
		if err := rows.Scan(&w.WorkshopID, &w.EmailSecret, &w.Name, pq.Array(&w.Mentors), &w.CreatedAt); err != nil {
			return nil, err
		}
		workshops = append(workshops, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if workshops == nil {
		workshops = []*domain.Workshop{}
	}
	return workshops, nil
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
