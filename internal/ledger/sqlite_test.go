package ledger

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLStore(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS downloaded")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT link FROM downloaded")).
		WillReturnRows(sqlmock.NewRows([]string{"link"}).
			AddRow("https://www.deezer.com/track/1").
			AddRow("https://www.deezer.com/album/2"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT OR IGNORE INTO downloaded (link) VALUES (?)")).
		WithArgs("https://www.deezer.com/track/3").
		WillReturnResult(sqlmock.NewResult(3, 1))

	store, err := NewSQLStore(ctx, db)
	require.NoError(t, err)

	l, err := Open(ctx, store)
	require.NoError(t, err)
	assert.True(t, l.Contains("https://www.deezer.com/album/2"))

	// already present: no INSERT expected
	added, err := l.InsertIfAbsent(ctx, "https://www.deezer.com/track/1")
	require.NoError(t, err)
	assert.False(t, added)

	added, err = l.InsertIfAbsent(ctx, "https://www.deezer.com/track/3")
	require.NoError(t, err)
	assert.True(t, added)

	assert.NoError(t, mock.ExpectationsWereMet())
}
