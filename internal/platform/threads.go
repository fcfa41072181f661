package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/maheshrc27/postpilot/configs"
)

const (
	threadsAuthURL  = "https://threads.net/oauth/authorize"
	threadsTokenURL = "https://graph.threads.net/oauth/access_token"
	threadsGraphURL = "https://graph.threads.net/v1.0"
)

const threadsScopes = "threads_basic,threads_content_publish"

type threadsAdapter struct {
	cfg    config.Config
	client *http.Client
}

func NewThreadsAdapter(cfg config.Config, client *http.Client) Adapter {
	return &threadsAdapter{cfg: cfg, client: client}
}

func (a *threadsAdapter) Name() string { return PlatformThreads }

func (a *threadsAdapter) BuildAuthorizationURL(state string) string {
	params := url.Values{}
	params.Add("client_id", a.cfg.ThreadsClientID)
	params.Add("redirect_uri", a.cfg.ThreadsRedirectURI)
	params.Add("response_type", "code")
	params.Add("scope", threadsScopes)
	params.Add("state", state)

	return fmt.Sprintf("%s?%s", threadsAuthURL, params.Encode())
}

func (a *threadsAdapter) ExchangeCode(ctx context.Context, code string) (*TokenGrant, error) {
	if code == "" {
		return nil, &OAuthExchangeError{Platform: a.Name(), Err: errors.New("code is empty")}
	}

	data := url.Values{}
	data.Set("client_id", a.cfg.ThreadsClientID)
	data.Set("client_secret", a.cfg.ThreadsClientSecret)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", a.cfg.ThreadsRedirectURI)
	data.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, "POST", threadsTokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, &OAuthExchangeError{Platform: a.Name(), Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, &OAuthExchangeError{Platform: a.Name(), Err: err}
	}
	defer resp.Body.Close()

	var result struct {
		AccessToken string `json:"access_token"`
		UserID      int64  `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, &OAuthExchangeError{Platform: a.Name(), Err: err}
	}
	if result.AccessToken == "" {
		return nil, &OAuthExchangeError{Platform: a.Name(), Err: errors.New("no access token in Threads response")}
	}

	longLived, expiresAt, err := a.longLivedToken(ctx, result.AccessToken)
	if err != nil {
		return nil, &OAuthExchangeError{Platform: a.Name(), Err: err}
	}

	userInfo, err := a.userInfo(ctx, longLived)
	if err != nil {
		return nil, &OAuthExchangeError{Platform: a.Name(), Err: err}
	}

	return &TokenGrant{
		AccessToken:  longLived,
		RefreshToken: longLived,
		ExpiresAt:    expiresAt,
		Scopes:       strings.Split(threadsScopes, ","),
		User:         *userInfo,
	}, nil
}

func (a *threadsAdapter) longLivedToken(ctx context.Context, shortLived string) (string, time.Time, error) {
	reqURL := fmt.Sprintf(
		"https://graph.threads.net/access_token?grant_type=th_exchange_token&client_secret=%s&access_token=%s",
		a.cfg.ThreadsClientSecret, shortLived,
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

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", time.Time{}, fmt.Errorf("failed to decode long-lived token response: %w", err)
	}
	if result.AccessToken == "" {
		return "", time.Time{}, errors.New("no long-lived token in Threads response")
	}

	return result.AccessToken, time.Now().Add(time.Second * time.Duration(result.ExpiresIn)), nil
}

func (a *threadsAdapter) userInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	reqURL := fmt.Sprintf(
		"%s/me?fields=id,username,name,threads_profile_picture_url&access_token=%s",
		threadsGraphURL, accessToken,
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

	var result struct {
		ID         string `json:"id"`
		Username   string `json:"username"`
		Name       string `json:"name"`
		PictureURL string `json:"threads_profile_picture_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return &UserInfo{
		ID:          result.ID,
		Username:    result.Username,
		DisplayName: result.Name,
		AvatarURL:   result.PictureURL,
	}, nil
}

func (a *threadsAdapter) RefreshToken(ctx context.Context, refreshToken string) (*TokenGrant, error) {
	reqURL := fmt.Sprintf(
		"https://graph.threads.net/refresh_access_token?grant_type=th_refresh_token&access_token=%s",
		refreshToken,
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

// Publish creates a Threads video container, waits for ingestion, then
// publishes it. Same two-step shape as Instagram.
func (a *threadsAdapter) Publish(ctx context.Context, req *PublishRequest) (string, error) {
	text := req.Title
	if req.Description != "" {
		text = strings.TrimSpace(text + "\n\n" + req.Description)
	}
	if len(req.Hashtags) > 0 {
		text = strings.TrimSpace(text + "\n\n" + strings.Join(req.Hashtags, " "))
	}

	endpoint := fmt.Sprintf("%s/%s/threads", threadsGraphURL, url.PathEscape(req.PlatformUID))
	params := url.Values{}
	params.Set("media_type", "VIDEO")
	params.Set("video_url", req.VideoURL)
	params.Set("text", text)
	params.Set("access_token", req.AccessToken)

	container, err := metaGraphPost(ctx, a.client, endpoint, params)
	if err != nil {
		return "", a.publishError(err)
	}
	if container.ID == "" {
		return "", &PublishError{Platform: a.Name(), Reason: "no container ID returned from Threads", Retryable: false}
	}

	// Threads recommends waiting for server-side ingestion before publish.
	select {
	case <-ctx.Done():
		return "", &PublishError{Platform: a.Name(), Reason: ctx.Err().Error(), Retryable: true}
	case <-time.After(15 * time.Second):
	}

	publishEndpoint := fmt.Sprintf("%s/%s/threads_publish", threadsGraphURL, url.PathEscape(req.PlatformUID))
	publishParams := url.Values{}
	publishParams.Set("creation_id", container.ID)
	publishParams.Set("access_token", req.AccessToken)

	result, err := metaGraphPost(ctx, a.client, publishEndpoint, publishParams)
	if err != nil {
		return "", a.publishError(err)
	}
	if result.ID == "" {
		return "", &PublishError{Platform: a.Name(), Reason: "no post ID returned from Threads", Retryable: false}
	}

	return result.ID, nil
}

func (a *threadsAdapter) publishError(err error) error {
	var graphErr *metaGraphError
	if errors.As(err, &graphErr) {
		return &PublishError{Platform: a.Name(), Reason: graphErr.Message, Retryable: graphErr.Retryable()}
	}
	return &PublishError{Platform: a.Name(), Reason: err.Error(), Retryable: true}
}
