package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/maheshrc27/postpilot/configs"
	"github.com/maheshrc27/postpilot/internal/transfer"
)

const (
	instagramAuthURL  = "https://www.instagram.com/oauth/authorize"
	instagramTokenURL = "https://api.instagram.com/oauth/access_token"
	instagramGraphURL = "https://graph.instagram.com"
)

const instagramScopes = "instagram_business_basic,instagram_business_content_publish"

type instagramAdapter struct {
	cfg    config.Config
	client *http.Client
}

func NewInstagramAdapter(cfg config.Config, client *http.Client) Adapter {
	return &instagramAdapter{cfg: cfg, client: client}
}

func (a *instagramAdapter) Name() string { return PlatformInstagram }

func (a *instagramAdapter) BuildAuthorizationURL(state string) string {
	params := url.Values{}
	params.Add("client_id", a.cfg.InstagramClientID)
	params.Add("scope", instagramScopes)
	params.Add("response_type", "code")
	params.Add("redirect_uri", a.cfg.InstagramRedirectURI)
	params.Add("state", state)

	return fmt.Sprintf("%s?%s", instagramAuthURL, params.Encode())
}

func (a *instagramAdapter) ExchangeCode(ctx context.Context, code string) (*TokenGrant, error) {
	if code == "" {
		return nil, &OAuthExchangeError{Platform: a.Name(), Err: errors.New("code is empty")}
	}

	shortLived, err := a.shortLivedToken(ctx, code)
	if err != nil {
		return nil, &OAuthExchangeError{Platform: a.Name(), Err: err}
	}

	longLived, expiresAt, err := a.longLivedToken(ctx, shortLived)
	if err != nil {
		return nil, &OAuthExchangeError{Platform: a.Name(), Err: err}
	}

	userInfo, err := a.userInfo(ctx, longLived)
	if err != nil {
		return nil, &OAuthExchangeError{Platform: a.Name(), Err: err}
	}

	// Instagram has no separate refresh token; the long-lived token refreshes
	// itself via ig_refresh_token.
	return &TokenGrant{
		AccessToken:  longLived,
		RefreshToken: longLived,
		ExpiresAt:    expiresAt,
		Scopes:       strings.Split(instagramScopes, ","),
		User: UserInfo{
			ID:          userInfo.UserID,
			Username:    userInfo.Username,
			DisplayName: userInfo.Name,
			AvatarURL:   userInfo.ProfilePicture,
		},
	}, nil
}

func (a *instagramAdapter) shortLivedToken(ctx context.Context, code string) (string, error) {
	data := url.Values{}
	data.Set("client_id", a.cfg.InstagramClientID)
	data.Set("client_secret", a.cfg.InstagramClientSecret)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", a.cfg.InstagramRedirectURI)
	data.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, "POST", instagramTokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("failed to get short-lived token: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if result.AccessToken == "" {
		return "", errors.New("no access token in Instagram response")
	}

	return result.AccessToken, nil
}

func (a *instagramAdapter) longLivedToken(ctx context.Context, shortLived string) (string, time.Time, error) {
	reqURL := fmt.Sprintf(
		"%s/access_token?grant_type=ig_exchange_token&client_secret=%s&access_token=%s",
		instagramGraphURL, a.cfg.InstagramClientSecret, shortLived,
	)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return "", time.Time{}, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", time.Time{}, fmt.Errorf("failed to get long-lived token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", time.Time{}, fmt.Errorf("error response from Instagram: %s (status code: %d)", body, resp.StatusCode)
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", time.Time{}, fmt.Errorf("failed to decode long-lived token response: %w", err)
	}

	return result.AccessToken, time.Now().Add(time.Second * time.Duration(result.ExpiresIn)), nil
}

func (a *instagramAdapter) userInfo(ctx context.Context, accessToken string) (*transfer.InstagramUserInfo, error) {
	reqURL := fmt.Sprintf(
		"%s/me?fields=id,username,name,account_type,profile_picture_url&access_token=%s",
		instagramGraphURL, accessToken,
	)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	var userInfo transfer.InstagramUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return &userInfo, nil
}

func (a *instagramAdapter) RefreshToken(ctx context.Context, refreshToken string) (*TokenGrant, error) {
	reqURL := fmt.Sprintf(
		"%s/refresh_access_token?grant_type=ig_refresh_token&access_token=%s",
		instagramGraphURL, refreshToken,
	)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, &TokenRefreshError{Platform: a.Name(), Err: err}
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &TokenRefreshError{Platform: a.Name(), Err: err}
	}
	defer resp.Body.Close()

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &TokenRefreshError{Platform: a.Name(), Err: err}
	}
	if result.AccessToken == "" {
		return nil, &TokenRefreshError{Platform: a.Name(), Err: errors.New("empty access token in refresh response")}
	}

	return &TokenGrant{
		AccessToken:  result.AccessToken,
		RefreshToken: result.AccessToken,
		ExpiresAt:    time.Now().Add(time.Second * time.Duration(result.ExpiresIn)),
	}, nil
}

func (a *instagramAdapter) Publish(ctx context.Context, req *PublishRequest) (string, error) {
	caption := req.Description
	if len(req.Hashtags) > 0 {
		caption = strings.TrimSpace(caption + "\n\n" + strings.Join(req.Hashtags, " "))
	}

	containerID, err := a.createMediaContainer(ctx, req, caption)
	if err != nil {
		return "", err
	}

	if err := a.waitForContainer(ctx, req, containerID); err != nil {
		return "", err
	}

	return a.publishContainer(ctx, req, containerID)
}

func (a *instagramAdapter) createMediaContainer(ctx context.Context, req *PublishRequest, caption string) (string, error) {
	endpoint := fmt.Sprintf("%s/v21.0/%s/media", instagramGraphURL, req.PlatformUID)

	params := url.Values{}
	params.Set("media_type", "REELS")
	params.Set("video_url", req.VideoURL)
	params.Set("caption", caption)
	params.Set("access_token", req.AccessToken)
	if req.ThumbnailURL != "" {
		params.Set("cover_url", req.ThumbnailURL)
	}

	result, err := metaGraphPost(ctx, a.client, endpoint, params)
	if err != nil {
		return "", a.publishError(err)
	}
	if result.ID == "" {
		return "", &PublishError{Platform: a.Name(), Reason: "no media container ID returned from Instagram", Retryable: false}
	}
	return result.ID, nil
}

// waitForContainer polls the container until its status_code reaches
// FINISHED. Video containers take a while to ingest a pulled URL.
func (a *instagramAdapter) waitForContainer(ctx context.Context, req *PublishRequest, containerID string) error {
	endpoint := fmt.Sprintf("%s/v21.0/%s?fields=status_code&access_token=%s",
		instagramGraphURL, containerID, req.AccessToken)

	for i := 0; i < 20; i++ {
		select {
		case <-ctx.Done():
			return &PublishError{Platform: a.Name(), Reason: ctx.Err().Error(), Retryable: true}
		case <-time.After(3 * time.Second):
		}

		httpReq, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
		if err != nil {
			return &PublishError{Platform: a.Name(), Reason: err.Error(), Retryable: false}
		}
		resp, err := a.client.Do(httpReq)
		if err != nil {
			return &PublishError{Platform: a.Name(), Reason: err.Error(), Retryable: true}
		}

		var status struct {
			StatusCode string `json:"status_code"`
		}
		err = json.NewDecoder(resp.Body).Decode(&status)
		resp.Body.Close()
		if err != nil {
			return &PublishError{Platform: a.Name(), Reason: err.Error(), Retryable: true}
		}

		switch status.StatusCode {
		case "FINISHED":
			return nil
		case "ERROR":
			return &PublishError{Platform: a.Name(), Reason: "media container processing failed", Retryable: false}
		}
	}

	return &PublishError{Platform: a.Name(), Reason: "media container never finished processing", Retryable: true}
}

func (a *instagramAdapter) publishContainer(ctx context.Context, req *PublishRequest, containerID string) (string, error) {
	endpoint := fmt.Sprintf("%s/v21.0/%s/media_publish", instagramGraphURL, req.PlatformUID)

	params := url.Values{}
	params.Set("creation_id", containerID)
	params.Set("access_token", req.AccessToken)

	result, err := metaGraphPost(ctx, a.client, endpoint, params)
	if err != nil {
		return "", a.publishError(err)
	}
	if result.ID == "" {
		return "", &PublishError{Platform: a.Name(), Reason: "no media ID returned from Instagram", Retryable: false}
	}
	return result.ID, nil
}

func (a *instagramAdapter) publishError(err error) error {
	var graphErr *metaGraphError
	if errors.As(err, &graphErr) {
		return &PublishError{
			Platform:  a.Name(),
			Reason:    graphErr.Message,
			Retryable: graphErr.Retryable(),
		}
	}
	return &PublishError{Platform: a.Name(), Reason: err.Error(), Retryable: true}
}
