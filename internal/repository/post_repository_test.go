package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTime(t *testing.T) time.Time {
	t.Helper()
	return time.Now().Add(time.Hour).Truncate(time.Minute)
}

func TestClaimForPublish(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)

	mock.ExpectExec("UPDATE posts").
		WithArgs(int64(7), models.PostStatusProcessing,
			pq.Array([]string{models.PostStatusDraft, models.PostStatusScheduled, models.PostStatusFailed})).
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := repo.ClaimForPublish(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimForPublishLosesRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)

	// A concurrent claimer already moved the row to processing.
	mock.ExpectExec("UPDATE posts").
		WithArgs(int64(7), models.PostStatusProcessing,
			pq.Array([]string{models.PostStatusDraft, models.PostStatusScheduled, models.PostStatusFailed})).
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := repo.ClaimForPublish(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestMarkPublishedRequiresProcessing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)

	mock.ExpectExec("UPDATE posts").
		WithArgs(int64(3), models.PostStatusPublished, "remote-1", models.PostStatusProcessing).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.MarkPublished(context.Background(), 3, "remote-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetScheduleGuardsStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)

	at := sqlmock.AnyArg()
	mock.ExpectExec("UPDATE posts").
		WithArgs(int64(5), at, models.PostStatusScheduled,
			pq.Array([]string{models.PostStatusDraft, models.PostStatusScheduled})).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.SetSchedule(context.Background(), 5, testTime(t))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetByIDMissingPost(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM posts").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	post, err := repo.GetByID(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, post)
}
