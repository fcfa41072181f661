package models

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

type Post struct {
	ID            int64          `db:"id" json:"id"`
	OwnerID       int64          `db:"owner_id" json:"owner_id"`
	AccountID     int64          `db:"account_id" json:"account_id"`
	Title         string         `db:"title" json:"title"`
	Description   string         `db:"description" json:"description"`
	Hashtags      pq.StringArray `db:"hashtags" json:"hashtags"`
	VideoPath     string         `db:"video_path" json:"video_path"`
	ThumbnailPath string         `db:"thumbnail_path" json:"thumbnail_path"`
	ScheduledAt   sql.NullTime   `db:"scheduled_at" json:"scheduled_at"`
	Status        string         `db:"status" json:"status"`
	RemotePostID  string         `db:"remote_post_id" json:"remote_post_id"`
	FailureReason string         `db:"failure_reason" json:"failure_reason"`
	AttemptCount  int            `db:"attempt_count" json:"attempt_count"`
	DeletedAt     sql.NullTime   `db:"deleted_at" json:"-"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

const (
	PostStatusDraft      = "draft"
	PostStatusScheduled  = "scheduled"
	PostStatusProcessing = "processing"
	PostStatusPublished  = "published"
	PostStatusFailed     = "failed"
)

// MaxHashtags caps the hashtag list on a post.
const MaxHashtags = 30

type MediaAsset struct {
	ID           int64     `db:"id" json:"id"`
	OwnerID      int64     `db:"owner_id" json:"owner_id"`
	FileName     string    `db:"file_name" json:"file_name"`
	FileType     string    `db:"file_type" json:"file_type"`
	FileSize     int64     `db:"file_size" json:"file_size"`
	FileURL      string    `db:"file_url" json:"file_url"`
	ThumbnailURL string    `db:"thumbnail_url" json:"thumbnail_url"`
	Duration     float64   `db:"duration_seconds" json:"duration_seconds"`
	Width        int       `db:"width" json:"width"`
	Height       int       `db:"height" json:"height"`
	Codec        string    `db:"codec" json:"codec"`
	FrameRate    float64   `db:"frame_rate" json:"frame_rate"`
	Bitrate      int64     `db:"bitrate" json:"bitrate"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
