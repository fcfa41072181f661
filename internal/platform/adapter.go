package platform

import (
	"context"
	"net/http"
	"strings"
	"time"

	config "github.com/maheshrc27/postpilot/configs"
)

const (
	PlatformYoutube   = "youtube"
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
	PlatformTiktok    = "tiktok"
	PlatformThreads   = "threads"
)

// UserInfo is the platform identity returned by a code exchange.
type UserInfo struct {
	ID          string
	Username    string
	DisplayName string
	AvatarURL   string
}

// TokenGrant is the normalized result of an exchange or refresh.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scopes       []string
	User         UserInfo
}

// PublishRequest carries everything an adapter needs to create the remote
// post. VideoURL and ThumbnailURL are publicly reachable object-storage URLs.
type PublishRequest struct {
	Title        string
	Description  string
	Hashtags     []string
	VideoURL     string
	ThumbnailURL string
	AccessToken  string
	PlatformUID  string
}

// Adapter is the capability set every platform variant implements.
type Adapter interface {
	Name() string
	BuildAuthorizationURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*TokenGrant, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenGrant, error)
	Publish(ctx context.Context, req *PublishRequest) (string, error)
}

// Revoker is implemented by adapters whose platform exposes token revocation.
type Revoker interface {
	Revoke(ctx context.Context, platformUID, accessToken string) error
}

// Registry is the fixed enumeration of adapters, resolved once at startup.
type Registry struct {
	adapters map[string]Adapter
	disabled map[string]struct{}
}

func NewRegistry(cfg config.Config) *Registry {
	client := &http.Client{Timeout: 2 * time.Minute}

	r := &Registry{
		adapters: map[string]Adapter{
			PlatformYoutube:   NewYoutubeAdapter(cfg),
			PlatformFacebook:  NewFacebookAdapter(cfg, client),
			PlatformInstagram: NewInstagramAdapter(cfg, client),
			PlatformTiktok:    NewTiktokAdapter(cfg, client),
			PlatformThreads:   NewThreadsAdapter(cfg, client),
		},
		disabled: map[string]struct{}{},
	}

	for _, name := range strings.Split(cfg.DisabledPlatforms, ",") {
		if name = strings.TrimSpace(name); name != "" {
			r.disabled[name] = struct{}{}
		}
	}

	return r
}

// ForName resolves an adapter; identifiers outside the fixed set fail with
// UnsupportedPlatformError.
func (r *Registry) ForName(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, &UnsupportedPlatformError{Platform: name}
	}
	return a, nil
}

// Enabled reports whether the platform is known and not administratively
// disabled.
func (r *Registry) Enabled(name string) bool {
	if _, ok := r.adapters[name]; !ok {
		return false
	}
	_, off := r.disabled[name]
	return !off
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}
