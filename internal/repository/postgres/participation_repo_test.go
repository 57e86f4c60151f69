package postgres

import (
	"context"
	"database/sql"
	"testing"

	"eventhub/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestPairRepository_Add(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		newRepo  func(db *sql.DB) domain.PairRepository
		mock     func(mock sqlmock.Sqlmock)
		wantKind domain.ErrorKind
	}{
		{
			name:    "join inserts",
			newRepo: func(db *sql.DB) domain.PairRepository { return NewParticipantRepository(db) },
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO event_participants \(event_id, user_id\) VALUES \(\$1, \$2\)`).
					WithArgs("ev-1", "user-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name:    "duplicate join is a unique violation",
			newRepo: func(db *sql.DB) domain.PairRepository { return NewParticipantRepository(db) },
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO event_participants`).
					WithArgs("ev-1", "user-1").
					WillReturnError(&pq.Error{Code: "23505"})
			},
			wantKind: domain.KindUniqueViolation,
		},
		{
			name:    "interest inserts",
			newRepo: func(db *sql.DB) domain.PairRepository { return NewInterestRepository(db) },
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO event_interests`).
					WithArgs("ev-1", "user-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name:    "missing event",
			newRepo: func(db *sql.DB) domain.PairRepository { return NewInterestRepository(db) },
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO event_interests`).
					WillReturnError(&pq.Error{Code: "23503"})
			},
			wantKind: domain.KindNotFound,
		},
		{
			name:    "join of a missing event",
			newRepo: func(db *sql.DB) domain.PairRepository { return NewParticipantRepository(db) },
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO event_participants`).
					WillReturnError(&pq.Error{Code: "23503"})
			},
			wantKind: domain.KindNotFound,
		},
		{
			name:    "other insert failure",
			newRepo: func(db *sql.DB) domain.PairRepository { return NewParticipantRepository(db) },
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO event_participants`).
					WillReturnError(sql.ErrConnDone)
			},
			wantKind: domain.KindRemoteWrite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			err = tt.newRepo(db).Add(ctx, "ev-1", "user-1")
			require.NoError(t, mock.ExpectationsWereMet())
			if tt.wantKind != 0 {
				require.Equal(t, tt.wantKind, domain.KindOf(err))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestPairRepository_RemoveAbsentIsNotAnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM event_participants WHERE event_id = \$1 AND user_id = \$2`).
		WithArgs("ev-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewParticipantRepository(db).Remove(context.Background(), "ev-1", "user-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPairRepository_Reads(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM event_interests WHERE event_id = \$1 AND user_id = \$2\)`).
		WithArgs("ev-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM event_interests WHERE event_id = \$1`).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`SELECT event_id FROM event_interests WHERE user_id = \$1 ORDER BY created_at DESC`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}).AddRow("ev-2").AddRow("ev-1"))

	repo := NewInterestRepository(db)
	ok, err := repo.Exists(ctx, "ev-1", "user-1")
	require.NoError(t, err)
	require.True(t, ok)

	n, err := repo.CountByEvent(ctx, "ev-1")
	require.NoError(t, err)
	require.Equal(t, 7, n)

	ids, err := repo.ListEventIDsByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, []string{"ev-2", "ev-1"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPairRepository_ListEventIDsByUser_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT event_id FROM event_participants WHERE user_id = \$1 ORDER BY joined_at DESC`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}))

	ids, err := NewParticipantRepository(db).ListEventIDsByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, []string{}, ids)
}

func TestParticipantRepository_ListEventsByUser(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`JOIN events e ON e.id = ep.event_id`).
			WithArgs("user-1").
			WillReturnRows(sqlmock.NewRows(eventCols).AddRow(eventRow("ev-1", "org-1")...))

		got, err := NewParticipantRepository(db).ListEventsByUser(ctx, "user-1")
		require.NoError(t, err)
		require.Equal(t, []*domain.Event{wantEvent("ev-1", "org-1")}, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`FROM event_participants ep`).WillReturnError(sql.ErrConnDone)

		got, err := NewParticipantRepository(db).ListEventsByUser(ctx, "user-1")
		require.Nil(t, got)
		require.Equal(t, domain.KindRemoteRead, domain.KindOf(err))
	})
}
