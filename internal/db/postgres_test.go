package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTransactionCommits(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE notes").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err = WithTransaction(context.Background(), mock, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, "UPDATE notes SET upvote_count = upvote_count + 1")
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err = WithTransaction(context.Background(), mock, func(ctx context.Context, tx pgx.Tx) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionBeginFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("no connection"))

	called := false
	err = WithTransaction(context.Background(), mock, func(ctx context.Context, tx pgx.Tx) error {
		called = true
		return nil
	})
	assert.ErrorContains(t, err, "failed to begin transaction")
	assert.False(t, called)
}
