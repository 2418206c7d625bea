package persistence

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteTx(t *testing.T) {
	t.Run("Commit", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM rent_call_outbox").WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectCommit()

		err = ExecuteTx(context.Background(), mock, func(tx pgx.Tx) error {
			_, err := tx.Exec(context.Background(), "DELETE FROM rent_call_outbox")
			return err
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollbackKeepsCause", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		cause := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err = ExecuteTx(context.Background(), mock, func(tx pgx.Tx) error { return cause })

		assert.ErrorIs(t, err, cause)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("BeginFails", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

		err = ExecuteTx(context.Background(), mock, func(tx pgx.Tx) error { return nil })

		assert.ErrorContains(t, err, "failed to begin transaction")
	})
}

func TestUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "rent_call_events_pkey"})

	constraint, ok := UniqueViolation(err)
	assert.True(t, ok)
	assert.Equal(t, "rent_call_events_pkey", constraint)

	_, ok = UniqueViolation(&pgconn.PgError{Code: "23503"})
	assert.False(t, ok)
	_, ok = UniqueViolation(errors.New("plain"))
	assert.False(t, ok)
}
