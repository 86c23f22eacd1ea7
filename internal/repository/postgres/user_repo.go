package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"warsjawa/internal/domain"
)

type userRepository struct {
	DB *sql.DB
}

// NewUserRepository returns a domain.UserRepository implemented with Postgres.
func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &userRepository{DB: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) (bool, error) {
	query := `
		INSERT INTO users (email, name, key, is_confirmed, is_confirmed_twice, delivered_emails, nfc_tags, deleted_nfc_tags, created_at, updated_at)
		VALUES ($1, $2, $3, FALSE, FALSE, '{}', '{}', '{}', $4, $4)
		ON CONFLICT (email) DO NOTHING
	`
	res, err := r.DB.ExecContext(ctx, query, user.Email, user.Name, user.Key, user.CreatedAt)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT email, name, key, is_confirmed, is_confirmed_twice, delivered_emails, nfc_tags, deleted_nfc_tags, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	user := &domain.User{}
	err := r.DB.QueryRowContext(ctx, query, email).Scan(
		&user.Email,
		&user.Name,
		&user.Key,
		&user.IsConfirmed,
		&user.IsConfirmedTwice,
		pq.Array(&user.DeliveredEmails),
		pq.Array(&user.NfcTags),
		pq.Array(&user.DeletedNfcTags),
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepository) RotateKey(ctx context.Context, email, name, key string) (bool, error) {
	query := `
		UPDATE users
		SET name = $2, key = $3, updated_at = NOW()
		WHERE email = $1 AND NOT is_confirmed
	`
	res, err := r.DB.ExecContext(ctx, query, email, name, key)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *userRepository) Confirm(ctx context.Context, email, key string) (bool, error) {
	// Monotone flip: a row matches at most once, ever.
	query := `
		UPDATE users
		SET is_confirmed = TRUE, updated_at = NOW()
		WHERE email = $1 AND key = $2 AND NOT is_confirmed
	`
	res, err := r.DB.ExecContext(ctx, query, email, key)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *userRepository) MarkConfirmedTwice(ctx context.Context, email string) error {
	query := `
		UPDATE users
		SET is_confirmed_twice = TRUE, updated_at = NOW()
		WHERE email = $1 AND is_confirmed
	`
	_, err := r.DB.ExecContext(ctx, query, email)
	return err
}

// MarkDelivered is the delivery ledger's conditional update. The WHERE clause
// makes the read-modify-write a single atomic statement: concurrent attempts
// for the same (email, emailID) pair serialize on the row and exactly one
// reports a modification.
func (r *userRepository) MarkDelivered(ctx context.Context, email, emailID string) (bool, error) {
	query := `
		UPDATE users
		SET delivered_emails = array_append(delivered_emails, $2), updated_at = NOW()
		WHERE email = $1 AND NOT (delivered_emails @> ARRAY[$2]::text[])
	`
	res, err := r.DB.ExecContext(ctx, query, email, emailID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *userRepository) ListContacts(ctx context.Context) ([]domain.Contact, error) {
	query := `
		SELECT name, email
		FROM users
		WHERE is_confirmed
		ORDER BY email
	`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []domain.Contact
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(&c.Name, &c.Email); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if contacts == nil {
		contacts = []domain.Contact{}
	}
	return contacts, nil
}

func (r *userRepository) ListConfirmedEmails(ctx context.Context, contains string, limit int) ([]string, error) {
	query := `
		SELECT email
		FROM users
		WHERE is_confirmed AND email LIKE '%' || $1 || '%'
		ORDER BY email
		LIMIT $2
	`
	rows, err := r.DB.QueryContext(ctx, query, contains, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return emails, nil
}

func (r *userRepository) FindByTag(ctx context.Context, tagID string) (*domain.User, error) {
	query := `
		SELECT email, name, key, is_confirmed, is_confirmed_twice, delivered_emails, nfc_tags, deleted_nfc_tags, created_at, updated_at
		FROM users
		WHERE nfc_tags @> ARRAY[$1]::text[]
		LIMIT 1
	`
	user := &domain.User{}
	err := r.DB.QueryRowContext(ctx, query, tagID).Scan(
		&user.Email,
		&user.Name,
		&user.Key,
		&user.IsConfirmed,
		&user.IsConfirmedTwice,
		pq.Array(&user.DeliveredEmails),
		pq.Array(&user.NfcTags),
		pq.Array(&user.DeletedNfcTags),
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepository) AddTag(ctx context.Context, email, tagID string) (bool, error) {
	query := `
		UPDATE users
		SET nfc_tags = array_append(nfc_tags, $2), updated_at = NOW()
		WHERE email = $1 AND NOT (nfc_tags @> ARRAY[$2]::text[])
	`
	res, err := r.DB.ExecContext(ctx, query, email, tagID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *userRepository) RetireTag(ctx context.Context, email, tagID string) error {
	query := `
		UPDATE users
		SET nfc_tags = array_remove(nfc_tags, $2),
		    deleted_nfc_tags = array_append(deleted_nfc_tags, $2),
		    updated_at = NOW()
		WHERE email = $1
	`
	_, err := r.DB.ExecContext(ctx, query, email, tagID)
	return err
}
