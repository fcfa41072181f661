package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/repository"
	"github.com/maheshrc27/postpilot/internal/transfer"
)

const metricDateLayout = "2006-01-02"

type AnalyticsService interface {
	Ingest(ctx context.Context, userID int64, mi *transfer.MetricIngest) error
	Rollup(ctx context.Context, userID, accountID, postID int64, start, end time.Time) (*transfer.AnalyticsRollup, error)
}

type analyticsService struct {
	mr repository.MetricRepository
	ar repository.AccountRepository
	pr repository.PostRepository
}

func NewAnalyticsService(mr repository.MetricRepository, ar repository.AccountRepository, pr repository.PostRepository) AnalyticsService {
	return &analyticsService{
		mr: mr,
		ar: ar,
		pr: pr,
	}
}

// Ingest upserts one daily metric row. Re-sending the same
// (account, post, date, type) overwrites the previous numbers.
func (s *analyticsService) Ingest(ctx context.Context, userID int64, mi *transfer.MetricIngest) error {
	if mi == nil {
		err := errors.New("metric data is nil")
		slog.Info(err.Error())
		return err
	}

	if mi.MetricType != models.MetricTypeAccount && mi.MetricType != models.MetricTypePost {
		err := fmt.Errorf("unknown metric type %q", mi.MetricType)
		slog.Info(err.Error())
		return err
	}

	date, err := time.Parse(metricDateLayout, mi.Date)
	if err != nil {
		err = fmt.Errorf("invalid date format: %w", err)
		slog.Info(err.Error())
		return err
	}

	exists, err := s.ar.CheckByOwnerID(ctx, mi.AccountID, userID)
	if err != nil {
		return err
	}
	if !exists {
		err = errors.New("account doesn't exist")
		slog.Info(err.Error())
		return err
	}

	metric := models.Metric{
		AccountID:      mi.AccountID,
		Date:           date,
		MetricType:     mi.MetricType,
		Views:          mi.Views,
		Likes:          mi.Likes,
		Comments:       mi.Comments,
		Shares:         mi.Shares,
		Impressions:    mi.Impressions,
		Reach:          mi.Reach,
		EngagementRate: mi.EngagementRate,
	}

	if mi.MetricType == models.MetricTypePost {
		if mi.PostID == 0 {
			err = errors.New("post_id is required for post metrics")
			slog.Info(err.Error())
			return err
		}
		valid, err := s.pr.CheckByOwnerID(ctx, mi.PostID, userID)
		if err != nil {
			return err
		}
		if !valid {
			err = errors.New("post doesn't exist")
			slog.Info(err.Error())
			return err
		}
		metric.PostID = sql.NullInt64{Int64: mi.PostID, Valid: true}
	}

	return s.mr.Upsert(ctx, &metric)
}

// Rollup aggregates metrics over the range. An empty range still yields a
// zeroed totals block, never an error.
func (s *analyticsService) Rollup(ctx context.Context, userID, accountID, postID int64, start, end time.Time) (*transfer.AnalyticsRollup, error) {
	filter := repository.MetricFilter{
		OwnerID:   userID,
		AccountID: accountID,
		PostID:    postID,
		Start:     start,
		End:       end,
	}

	totals, err := s.mr.Totals(ctx, filter)
	if err != nil {
		return nil, err
	}

	perPlatform, err := s.mr.TotalsPerPlatform(ctx, filter)
	if err != nil {
		return nil, err
	}

	perDay, err := s.mr.TotalsPerDay(ctx, filter)
	if err != nil {
		return nil, err
	}

	if perPlatform == nil {
		perPlatform = []*transfer.PlatformTotals{}
	}
	if perDay == nil {
		perDay = []*transfer.DailyTotals{}
	}

	return &transfer.AnalyticsRollup{
		Totals:      *totals,
		PerPlatform: perPlatform,
		PerDay:      perDay,
	}, nil
}
