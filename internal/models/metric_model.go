package models

import (
	"database/sql"
	"time"
)

// Metric is one row of the daily analytics grain. PostID is null for
// account-level rows; at most one row exists per
// (account_id, post_id, date, metric_type).
type Metric struct {
	ID             int64         `db:"id" json:"id"`
	AccountID      int64         `db:"account_id" json:"account_id"`
	PostID         sql.NullInt64 `db:"post_id" json:"post_id"`
	Date           time.Time     `db:"date" json:"date"`
	MetricType     string        `db:"metric_type" json:"metric_type"`
	Views          int64         `db:"views" json:"views"`
	Likes          int64         `db:"likes" json:"likes"`
	Comments       int64         `db:"comments" json:"comments"`
	Shares         int64         `db:"shares" json:"shares"`
	Impressions    int64         `db:"impressions" json:"impressions"`
	Reach          int64         `db:"reach" json:"reach"`
	EngagementRate float64       `db:"engagement_rate" json:"engagement_rate"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

const (
	MetricTypeAccount = "account"
	MetricTypePost    = "post"
)
