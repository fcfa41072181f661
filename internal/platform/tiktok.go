package platform

import (
	"bytes"
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
	"github.com/maheshrc27/postpilot/internal/transfer"
)

const (
	tiktokAuthURL     = "https://www.tiktok.com/v2/auth/authorize"
	tiktokTokenURL    = "https://open.tiktokapis.com/v2/oauth/token/"
	tiktokUserInfoURL = "https://open.tiktokapis.com/v2/user/info/?fields=open_id,avatar_url,display_name,username"
	tiktokVideoInit   = "https://open.tiktokapis.com/v2/post/publish/video/init/"
	tiktokCreatorInfo = "https://open.tiktokapis.com/v2/post/publish/creator_info/query/"
	tiktokRevokeURL   = "https://open-api.tiktok.com/oauth/revoke/"
)

const tiktokScopes = "user.info.basic,user.info.profile,video.publish,video.upload"

type tiktokAdapter struct {
	cfg    config.Config
	client *http.Client
}

func NewTiktokAdapter(cfg config.Config, client *http.Client) Adapter {
	return &tiktokAdapter{cfg: cfg, client: client}
}

func (a *tiktokAdapter) Name() string { return PlatformTiktok }

func (a *tiktokAdapter) BuildAuthorizationURL(state string) string {
	params := url.Values{}
	params.Add("client_key", a.cfg.TiktokClientKey)
	params.Add("scope", tiktokScopes)
	params.Add("response_type", "code")
	params.Add("redirect_uri", a.cfg.TiktokRedirectURI)
	params.Add("state", state)

	return fmt.Sprintf("%s?%s", tiktokAuthURL, params.Encode())
}

func (a *tiktokAdapter) ExchangeCode(ctx context.Context, code string) (*TokenGrant, error) {
	if code == "" {
		return nil, &OAuthExchangeError{Platform: a.Name(), Err: errors.New("code is empty")}
	}

	data := url.Values{}
	data.Set("client_key", a.cfg.TiktokClientKey)
	data.Set("client_secret", a.cfg.TiktokClientSecret)
	data.Set("code", code)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", a.cfg.TiktokRedirectURI)

	tokenResponse, err := a.tokenRequest(ctx, data)
	if err != nil {
		return nil, &OAuthExchangeError{Platform: a.Name(), Err: err}
	}

	userInfo, err := a.userInfo(ctx, tokenResponse.AccessToken)
	if err != nil {
		return nil, &OAuthExchangeError{Platform: a.Name(), Err: err}
	}

	return &TokenGrant{
		AccessToken:  tokenResponse.AccessToken,
		RefreshToken: tokenResponse.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Second * time.Duration(tokenResponse.ExpiresIn)),
		Scopes:       strings.Split(tokenResponse.Scope, ","),
		User: UserInfo{
			ID:          userInfo.Data.User.OpenID,
			Username:    userInfo.Data.User.Username,
			DisplayName: userInfo.Data.User.DisplayName,
			AvatarURL:   userInfo.Data.User.AvatarURL,
		},
	}, nil
}

func (a *tiktokAdapter) RefreshToken(ctx context.Context, refreshToken string) (*TokenGrant, error) {
	data := url.Values{}
	data.Set("client_key", a.cfg.TiktokClientKey)
	data.Set("client_secret", a.cfg.TiktokClientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	tokenResponse, err := a.tokenRequest(ctx, data)
	if err != nil {
		return nil, &TokenRefreshError{Platform: a.Name(), Err: err}
	}

	if tokenResponse.AccessToken == "" {
		return nil, &TokenRefreshError{Platform: a.Name(), Err: errors.New("empty access token in refresh response")}
	}

	return &TokenGrant{
		AccessToken:  tokenResponse.AccessToken,
		RefreshToken: tokenResponse.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Second * time.Duration(tokenResponse.ExpiresIn)),
	}, nil
}

func (a *tiktokAdapter) tokenRequest(ctx context.Context, data url.Values) (*transfer.TiktokTokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", tiktokTokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Info("TikTok token endpoint returned non-200 status")
		return nil, fmt.Errorf("TikTok token endpoint returned status %d", resp.StatusCode)
	}

	var tokenResponse transfer.TiktokTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &tokenResponse, nil
}

func (a *tiktokAdapter) userInfo(ctx context.Context, accessToken string) (*transfer.TikTokResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", tiktokUserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := a.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	var result transfer.TikTokResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return &result, nil
}

func (a *tiktokAdapter) Publish(ctx context.Context, req *PublishRequest) (string, error) {
	if err := a.queryCreatorInfo(ctx, req.AccessToken); err != nil {
		slog.Info(err.Error())
		return "", &PublishError{Platform: a.Name(), Reason: err.Error(), Retryable: true}
	}

	title := req.Title
	if len(req.Hashtags) > 0 {
		title = strings.TrimSpace(title + " " + strings.Join(req.Hashtags, " "))
	}

	uploadRequest := transfer.TiktokVideoUploadRequest{
		PostInfo: transfer.TiktokVideoPostInfo{
			Title:                 title,
			PrivacyLevel:          "PUBLIC_TO_EVERYONE",
			VideoCoverTimestampMs: 1000,
		},
		SourceInfo: transfer.TiktokVideoSourceInfo{
			Source:   "PULL_FROM_URL",
			VideoURL: req.VideoURL,
		},
	}

	jsonData, err := json.Marshal(uploadRequest)
	if err != nil {
		return "", &PublishError{Platform: a.Name(), Reason: err.Error(), Retryable: false}
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", tiktokVideoInit, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", &PublishError{Platform: a.Name(), Reason: err.Error(), Retryable: false}
	}
	httpReq.Header.Set("Authorization", "Bearer "+req.AccessToken)
	httpReq.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		slog.Info(err.Error())
		return "", &PublishError{Platform: a.Name(), Reason: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	var result transfer.TikTokUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", &PublishError{Platform: a.Name(), Reason: err.Error(), Retryable: true}
	}

	if resp.StatusCode != http.StatusOK || result.Data.PublishID == "" {
		return "", &PublishError{
			Platform:  a.Name(),
			Reason:    fmt.Sprintf("TikTok publish rejected: %s (%s)", result.Error.Message, result.Error.Code),
			Retryable: isRetryableTiktokErr(resp.StatusCode, result.Error.Code),
		}
	}

	return result.Data.PublishID, nil
}

func (a *tiktokAdapter) queryCreatorInfo(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, "POST", tiktokCreatorInfo, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("creator info query returned status %d", resp.StatusCode)
	}
	return nil
}

func (a *tiktokAdapter) Revoke(ctx context.Context, platformUID, accessToken string) error {
	params := url.Values{}
	params.Add("open_id", platformUID)
	params.Add("access_token", accessToken)

	req, err := http.NewRequestWithContext(ctx, "POST", tiktokRevokeURL, strings.NewReader(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result transfer.TiktokRevokeData
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to revoke token: %s", result.Description)
	}
	return nil
}

func isRetryableTiktokErr(status int, code string) bool {
	if status == http.StatusTooManyRequests || status >= 500 {
		return true
	}
	switch code {
	case "rate_limit_exceeded", "internal_error":
		return true
	default:
		return false
	}
}
