package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hostrate/apiserver/types"
	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRatingRepoWithMock(t *testing.T) (*RatingRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewRatingRepository(db), mock
}

func TestRatingRepository_Create(t *testing.T) {
	repo, mock := newRatingRepoWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO ratings (host_id, rater_id, score, comment, created_at)`)).
		WithArgs(3, 1, 5, "great stay", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	rating, err := repo.Create(context.Background(), types.Rating{HostID: 3, RaterID: 1, Score: 5, Comment: "great stay"})
	require.NoError(t, err)
	assert.Equal(t, int64(11), rating.ID)
	assert.False(t, rating.CreatedAt.IsZero())
}

func TestRatingRepository_Create_UnknownHost(t *testing.T) {
	repo, mock := newRatingRepoWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO ratings`)).
		WillReturnError(&pq.Error{Code: pq.ErrorCode(pgerrcode.ForeignKeyViolation)})

	_, err := repo.Create(context.Background(), types.Rating{HostID: 404, RaterID: 1, Score: 3})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRatingRepository_Create_DBError(t *testing.T) {
	repo, mock := newRatingRepoWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO ratings`)).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), types.Rating{HostID: 1, RaterID: 2, Score: 3})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
