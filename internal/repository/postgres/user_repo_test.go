package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"warsjawa/internal/domain"
)

func TestUserRepository_MarkDelivered(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		mock       func(mock sqlmock.Sqlmock)
		wantMarked bool
		wantErr    bool
	}{
		{
			name: "first delivery marks the ledger",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE users`).
					WithArgs("jan@kowalski.com", "email-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			wantMarked: true,
		},
		{
			name: "already delivered is a zero-row no-op",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE users`).
					WithArgs("jan@kowalski.com", "email-1").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantMarked: false,
		},
		{
			name: "unknown recipient is indistinguishable from already delivered",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE users`).
					WithArgs("jan@kowalski.com", "email-1").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantMarked: false,
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE users`).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.mock(mock)

			repo := NewUserRepository(db)
			marked, err := repo.MarkDelivered(ctx, "jan@kowalski.com", "email-1")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantMarked, marked)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_Confirm(t *testing.T) {
	ctx := context.Background()

	t.Run("matching key flips the flag", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectExec(`UPDATE users`).
			WithArgs("jan@kowalski.com", "TEST_KEY").
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewUserRepository(db)
		confirmed, err := repo.Confirm(ctx, "jan@kowalski.com", "TEST_KEY")
		require.NoError(t, err)
		require.True(t, confirmed)
	})

	t.Run("already confirmed or wrong key matches nothing", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectExec(`UPDATE users`).
			WithArgs("jan@kowalski.com", "TEST_KEY").
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := NewUserRepository(db)
		confirmed, err := repo.Confirm(ctx, "jan@kowalski.com", "TEST_KEY")
		require.NoError(t, err)
		require.False(t, confirmed)
	})
}

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2014, 9, 18, 10, 32, 59, 0, time.UTC)

	t.Run("insert", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectExec(`INSERT INTO users`).
			WithArgs("jan@kowalski.com", "Jan Kowalski", "TEST_KEY", now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewUserRepository(db)
		created, err := repo.Create(ctx, domain.NewUser("jan@kowalski.com", "Jan Kowalski", "TEST_KEY", now))
		require.NoError(t, err)
		require.True(t, created)
	})

	t.Run("conflict reports not created", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectExec(`INSERT INTO users`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := NewUserRepository(db)
		created, err := repo.Create(ctx, domain.NewUser("jan@kowalski.com", "Jan", "TEST_KEY", now))
		require.NoError(t, err)
		require.False(t, created)
	})
}

func TestUserRepository_GetByEmail(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2014, 9, 18, 10, 32, 59, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		rows := sqlmock.NewRows([]string{
			"email", "name", "key", "is_confirmed", "is_confirmed_twice",
			"delivered_emails", "nfc_tags", "deleted_nfc_tags", "created_at", "updated_at",
		}).AddRow("jan@kowalski.com", "Jan Kowalski", "TEST_KEY", true, false,
			"{email-1,email-2}", "{TAG_ID}", "{}", now, now)
		mock.ExpectQuery(`SELECT (.+) FROM users`).
			WithArgs("jan@kowalski.com").
			WillReturnRows(rows)

		repo := NewUserRepository(db)
		user, err := repo.GetByEmail(ctx, "jan@kowalski.com")
		require.NoError(t, err)
		require.Equal(t, "jan@kowalski.com", user.Email)
		require.True(t, user.IsConfirmed)
		require.Equal(t, []string{"email-1", "email-2"}, user.DeliveredEmails)
		require.Equal(t, []string{"TAG_ID"}, user.NfcTags)
		require.Empty(t, user.DeletedNfcTags)
	})

	t.Run("missing", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectQuery(`SELECT (.+) FROM users`).
			WithArgs("ghost@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"email"}))

		repo := NewUserRepository(db)
		_, err = repo.GetByEmail(ctx, "ghost@example.com")
		require.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}
