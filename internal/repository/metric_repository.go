package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/transfer"
)

// MetricFilter narrows rollups. OwnerID is required; AccountID and PostID are
// optional (zero means "all").
type MetricFilter struct {
	OwnerID   int64
	AccountID int64
	PostID    int64
	Start     time.Time
	End       time.Time
}

type MetricRepository interface {
	Upsert(ctx context.Context, m *models.Metric) error
	Totals(ctx context.Context, f MetricFilter) (*transfer.MetricTotals, error)
	TotalsPerPlatform(ctx context.Context, f MetricFilter) ([]*transfer.PlatformTotals, error)
	TotalsPerDay(ctx context.Context, f MetricFilter) ([]*transfer.DailyTotals, error)
}

type metricRepository struct {
	db *sql.DB
}

func NewMetricRepository(db *sql.DB) MetricRepository {
	return &metricRepository{db: db}
}

// Upsert keeps one row per (account_id, post_id, date, metric_type); the
// unique index treats NULL post_id as zero so account-level rows collide too.
func (r *metricRepository) Upsert(ctx context.Context, m *models.Metric) error {
	query := `
		INSERT INTO metrics (
			account_id, post_id, date, metric_type,
			views, likes, comments, shares, impressions, reach, engagement_rate
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (account_id, COALESCE(post_id, 0), date, metric_type)
		DO UPDATE SET
			views = EXCLUDED.views,
			likes = EXCLUDED.likes,
			comments = EXCLUDED.comments,
			shares = EXCLUDED.shares,
			impressions = EXCLUDED.impressions,
			reach = EXCLUDED.reach,
			engagement_rate = EXCLUDED.engagement_rate,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := r.db.ExecContext(ctx, query, m.AccountID, m.PostID, m.Date, m.MetricType,
		m.Views, m.Likes, m.Comments, m.Shares, m.Impressions, m.Reach, m.EngagementRate)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

const metricSums = `
	COALESCE(SUM(m.views), 0),
	COALESCE(SUM(m.likes), 0),
	COALESCE(SUM(m.comments), 0),
	COALESCE(SUM(m.shares), 0),
	COALESCE(SUM(m.impressions), 0),
	COALESCE(SUM(m.reach), 0),
	COALESCE(AVG(m.engagement_rate), 0)`

func (f MetricFilter) whereClause() (string, []interface{}) {
	where := `a.owner_id = $1 AND m.date BETWEEN $2 AND $3`
	args := []interface{}{f.OwnerID, f.Start, f.End}

	if f.AccountID != 0 {
		args = append(args, f.AccountID)
		where += fmt.Sprintf(" AND m.account_id = $%d", len(args))
	}
	if f.PostID != 0 {
		args = append(args, f.PostID)
		where += fmt.Sprintf(" AND m.post_id = $%d", len(args))
	}
	return where, args
}

func (r *metricRepository) Totals(ctx context.Context, f MetricFilter) (*transfer.MetricTotals, error) {
	where, args := f.whereClause()
	query := `SELECT ` + metricSums + `
		FROM metrics m
		JOIN accounts a ON a.id = m.account_id
		WHERE ` + where

	var t transfer.MetricTotals
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&t.Views, &t.Likes,
		&t.Comments, &t.Shares, &t.Impressions, &t.Reach, &t.EngagementRate)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return &t, nil
}

func (r *metricRepository) TotalsPerPlatform(ctx context.Context, f MetricFilter) ([]*transfer.PlatformTotals, error) {
	where, args := f.whereClause()
	query := `SELECT a.platform, ` + metricSums + `
		FROM metrics m
		JOIN accounts a ON a.id = m.account_id
		WHERE ` + where + `
		GROUP BY a.platform
		ORDER BY a.platform`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var totals []*transfer.PlatformTotals
	for rows.Next() {
		var t transfer.PlatformTotals
		err := rows.Scan(&t.Platform, &t.Views, &t.Likes, &t.Comments, &t.Shares,
			&t.Impressions, &t.Reach, &t.EngagementRate)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		totals = append(totals, &t)
	}
	return totals, rows.Err()
}

func (r *metricRepository) TotalsPerDay(ctx context.Context, f MetricFilter) ([]*transfer.DailyTotals, error) {
	where, args := f.whereClause()
	query := `SELECT m.date, ` + metricSums + `
		FROM metrics m
		JOIN accounts a ON a.id = m.account_id
		WHERE ` + where + `
		GROUP BY m.date
		ORDER BY m.date`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var totals []*transfer.DailyTotals
	for rows.Next() {
		var t transfer.DailyTotals
		var date time.Time
		err := rows.Scan(&date, &t.Views, &t.Likes, &t.Comments, &t.Shares,
			&t.Impressions, &t.Reach, &t.EngagementRate)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		t.Date = date.Format("2006-01-02")
		totals = append(totals, &t)
	}
	return totals, rows.Err()
}
