package models

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

type Account struct {
	ID             int64          `db:"id" json:"id"`
	OwnerID        int64          `db:"owner_id" json:"owner_id"`
	Platform       string         `db:"platform" json:"platform"`
	PlatformUserID string         `db:"platform_user_id" json:"platform_user_id"`
	Username       string         `db:"username" json:"username"`
	DisplayName    string         `db:"display_name" json:"display_name"`
	AvatarURL      string         `db:"avatar_url" json:"avatar_url"`
	Nickname       string         `db:"nickname" json:"nickname"`
	IsDefault      bool           `db:"is_default" json:"is_default"`
	AccessToken    string         `db:"access_token" json:"-"`
	RefreshToken   string         `db:"refresh_token" json:"-"`
	TokenExpiresAt time.Time      `db:"token_expires_at" json:"token_expires_at"`
	Scopes         pq.StringArray `db:"scopes" json:"scopes"`
	Status         string         `db:"status" json:"status"`
	DeletedAt      sql.NullTime   `db:"deleted_at" json:"-"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

const (
	AccountStatusActive = "active"
	AccountStatusError  = "error"
)
