package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/film-scraper/internal/film"
)

var records = []film.Record{
	{Title: "Example Film", ReleaseYear: "1999-05-01", Director: "Jane Doe", BoxOffice: "$100 million", Country: film.Unknown},
	{Title: "Titanic", ReleaseYear: "1997-12-19", Director: "James Cameron", BoxOffice: "$2.264 billion", Country: "United States"},
}

func newMockStore(t *testing.T, table string) (*FilmStore, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	store, err := NewWithConnector(Config{DSN: "postgres://films", Table: table}, func(context.Context, Config) (Pool, error) {
		return mock, nil
	}, nil)
	require.NoError(t, err)
	return store, mock
}

func TestSaveFilmsInsertsRowsInTransaction(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t, "")

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS films").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectBegin()
	for _, rec := range records {
		mock.ExpectExec("INSERT INTO films").
			WithArgs(rec.Title, rec.ReleaseYear, rec.Director, rec.BoxOffice, rec.Country).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	n, err := store.SaveFilms(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveFilmsRollsBackOnInsertError(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t, "box_office_runs")

	boom := errors.New("unique violation")
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS box_office_runs").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO box_office_runs").
		WithArgs(records[0].Title, records[0].ReleaseYear, records[0].Director, records[0].BoxOffice, records[0].Country).
		WillReturnError(boom)
	mock.ExpectRollback()

	n, err := store.SaveFilms(context.Background(), records)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `insert "Example Film"`)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveFilmsCreateTableError(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t, "")

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))

	_, err := store.SaveFilms(context.Background(), records)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create films table")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveFilmsConnectError(t *testing.T) {
	t.Parallel()

	store, err := NewWithConnector(Config{DSN: "postgres://films"}, func(context.Context, Config) (Pool, error) {
		return nil, errors.New("connect postgres: refused")
	}, nil)
	require.NoError(t, err)

	_, err = store.SaveFilms(context.Background(), records)
	require.EqualError(t, err, "connect postgres: refused")
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		cfg  Config
	}{
		{"missing dsn", Config{}},
		{"bad table", Config{DSN: "postgres://films", Table: "films; DROP TABLE films"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tc.cfg, nil)
			require.Error(t, err)
		})
	}
}
