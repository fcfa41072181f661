package service

import (
	"context"
	"testing"
	"time"

	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnalyticsService() (AnalyticsService, *fakeMetricRepo, *fakeAccountRepo, *fakePostRepo) {
	mr := &fakeMetricRepo{}
	ar := newFakeAccountRepo()
	pr := newFakePostRepo()
	return NewAnalyticsService(mr, ar, pr), mr, ar, pr
}

func TestIngestAccountMetric(t *testing.T) {
	svc, mr, ar, _ := newAnalyticsService()
	accountID := seedAccount(t, ar, 1)

	err := svc.Ingest(context.Background(), 1, &transfer.MetricIngest{
		AccountID:  accountID,
		Date:       "2026-08-30",
		MetricType: models.MetricTypeAccount,
		Views:      120,
		Likes:      14,
	})
	require.NoError(t, err)

	require.Len(t, mr.metrics, 1)
	stored := mr.metrics[0]
	assert.Equal(t, accountID, stored.AccountID)
	assert.False(t, stored.PostID.Valid)
	assert.Equal(t, int64(120), stored.Views)
}

func TestIngestPostMetricRequiresOwnedPost(t *testing.T) {
	svc, mr, ar, pr := newAnalyticsService()
	accountID := seedAccount(t, ar, 1)

	base := transfer.MetricIngest{
		AccountID:  accountID,
		Date:       "2026-08-30",
		MetricType: models.MetricTypePost,
	}

	// No post id at all.
	mi := base
	err := svc.Ingest(context.Background(), 1, &mi)
	assert.Error(t, err)

	// A post belonging to someone else.
	otherID, err := pr.Create(context.Background(), nil, &models.Post{OwnerID: 2, AccountID: accountID, Title: "t"})
	require.NoError(t, err)
	mi = base
	mi.PostID = otherID
	err = svc.Ingest(context.Background(), 1, &mi)
	assert.Error(t, err)
	assert.Empty(t, mr.metrics)

	// The owner's post goes through with post_id set.
	ownID, err := pr.Create(context.Background(), nil, &models.Post{OwnerID: 1, AccountID: accountID, Title: "t"})
	require.NoError(t, err)
	mi = base
	mi.PostID = ownID
	err = svc.Ingest(context.Background(), 1, &mi)
	require.NoError(t, err)
	require.Len(t, mr.metrics, 1)
	assert.True(t, mr.metrics[0].PostID.Valid)
	assert.Equal(t, ownID, mr.metrics[0].PostID.Int64)
}

func TestIngestValidation(t *testing.T) {
	svc, mr, ar, _ := newAnalyticsService()
	accountID := seedAccount(t, ar, 1)

	err := svc.Ingest(context.Background(), 1, nil)
	assert.Error(t, err)

	err = svc.Ingest(context.Background(), 1, &transfer.MetricIngest{
		AccountID: accountID, Date: "2026-08-30", MetricType: "weekly",
	})
	assert.Error(t, err, "unknown metric type")

	err = svc.Ingest(context.Background(), 1, &transfer.MetricIngest{
		AccountID: accountID, Date: "30/08/2026", MetricType: models.MetricTypeAccount,
	})
	assert.Error(t, err, "bad date format")

	err = svc.Ingest(context.Background(), 2, &transfer.MetricIngest{
		AccountID: accountID, Date: "2026-08-30", MetricType: models.MetricTypeAccount,
	})
	assert.Error(t, err, "foreign account")

	assert.Empty(t, mr.metrics)
}

func TestRollupNeverReturnsNilSlices(t *testing.T) {
	svc, _, _, _ := newAnalyticsService()

	end := time.Now()
	rollup, err := svc.Rollup(context.Background(), 1, 0, 0, end.AddDate(0, 0, -30), end)
	require.NoError(t, err)

	assert.Zero(t, rollup.Totals.Views)
	assert.NotNil(t, rollup.PerPlatform)
	assert.Empty(t, rollup.PerPlatform)
	assert.NotNil(t, rollup.PerDay)
	assert.Empty(t, rollup.PerDay)
}
