package migrations

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsPresent(t *testing.T) {
	m := NewMigrator(nil, zerolog.Nop())
	names, err := m.Versions()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_init.sql", names[0])
}

func TestMigrateAppliesOnlyPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	files := fstest.MapFS{
		"002_more.sql": {Data: []byte("CREATE TABLE b (id INT);")},
		"001_init.sql": {Data: []byte("CREATE TABLE a (id INT);")},
		"README.md":    {Data: []byte("ignored")},
	}
	m := NewMigratorFS(mock, files, zerolog.Nop())

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	mock.ExpectQuery("SELECT EXISTS").WithArgs("001").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	mock.ExpectQuery("SELECT EXISTS").WithArgs("002").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE b").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").
		WithArgs("002", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, m.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
