package transfer

type MetricIngest struct {
	AccountID      int64   `json:"account_id"`
	PostID         int64   `json:"post_id"`
	Date           string  `json:"date"`
	MetricType     string  `json:"metric_type"`
	Views          int64   `json:"views"`
	Likes          int64   `json:"likes"`
	Comments       int64   `json:"comments"`
	Shares         int64   `json:"shares"`
	Impressions    int64   `json:"impressions"`
	Reach          int64   `json:"reach"`
	EngagementRate float64 `json:"engagement_rate"`
}

type MetricTotals struct {
	Views          int64   `json:"views"`
	Likes          int64   `json:"likes"`
	Comments       int64   `json:"comments"`
	Shares         int64   `json:"shares"`
	Impressions    int64   `json:"impressions"`
	Reach          int64   `json:"reach"`
	EngagementRate float64 `json:"engagement_rate"`
}

type PlatformTotals struct {
	Platform string `json:"platform"`
	MetricTotals
}

type DailyTotals struct {
	Date string `json:"date"`
	MetricTotals
}

type AnalyticsRollup struct {
	Totals      MetricTotals      `json:"totals"`
	PerPlatform []*PlatformTotals `json:"per_platform"`
	PerDay      []*DailyTotals    `json:"per_day"`
}
