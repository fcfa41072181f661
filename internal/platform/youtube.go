package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	config "github.com/maheshrc27/postpilot/configs"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const googleAuthURL = "https://accounts.google.com/o/oauth2/v2/auth"

var youtubeScopes = []string{
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/youtube.upload",
}

type youtubeAdapter struct {
	cfg config.Config
}

func NewYoutubeAdapter(cfg config.Config) Adapter {
	return &youtubeAdapter{cfg: cfg}
}

func (a *youtubeAdapter) Name() string { return PlatformYoutube }

func (a *youtubeAdapter) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     a.cfg.GoogleClientID,
		ClientSecret: a.cfg.GoogleClientSecret,
		RedirectURL:  a.cfg.GoogleRedirectURI,
		Scopes:       youtubeScopes,
		Endpoint:     google.Endpoint,
	}
}

func (a *youtubeAdapter) BuildAuthorizationURL(state string) string {
	params := url.Values{}
	params.Add("client_id", a.cfg.GoogleClientID)
	params.Add("redirect_uri", a.cfg.GoogleRedirectURI)
	params.Add("response_type", "code")
	params.Add("scope", strings.Join(youtubeScopes, " "))
	params.Add("state", state)
	params.Add("access_type", "offline")
	params.Add("prompt", "consent")

	return fmt.Sprintf("%s?%s", googleAuthURL, params.Encode())
}

func (a *youtubeAdapter) ExchangeCode(ctx context.Context, code string) (*TokenGrant, error) {
	if code == "" {
		return nil, &OAuthExchangeError{Platform: a.Name(), Err: errors.New("code is empty")}
	}

	oauth2Config := a.oauthConfig()
	token, err := oauth2Config.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return nil, &OAuthExchangeError{Platform: a.Name(), Err: err}
	}

	if token.RefreshToken == "" {
		err = errors.New("refresh token is empty")
		slog.Info(err.Error())
		return nil, &OAuthExchangeError{Platform: a.Name(), Err: err}
	}

	client := oauth2Config.Client(ctx, token)
	userInfo, err := googleUserInfo(client)
	if err != nil {
		return nil, &OAuthExchangeError{Platform: a.Name(), Err: err}
	}

	return &TokenGrant{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
		Scopes:       youtubeScopes,
		User: UserInfo{
			ID:          userInfo.ID,
			Username:    userInfo.Email,
			DisplayName: userInfo.Name,
			AvatarURL:   userInfo.Picture,
		},
	}, nil
}

func (a *youtubeAdapter) RefreshToken(ctx context.Context, refreshToken string) (*TokenGrant, error) {
	tokenSource := a.oauthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	token, err := tokenSource.Token()
	if err != nil {
		slog.Info(err.Error())
		return nil, &TokenRefreshError{Platform: a.Name(), Err: err}
	}

	return &TokenGrant{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}, nil
}

func (a *youtubeAdapter) Publish(ctx context.Context, req *PublishRequest) (string, error) {
	token := &oauth2.Token{AccessToken: req.AccessToken}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	service, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		slog.Info(err.Error())
		return "", &PublishError{Platform: a.Name(), Reason: err.Error(), Retryable: true}
	}

	tempFile, err := downloadToTempFile(ctx, req.VideoURL)
	if err != nil {
		return "", &PublishError{Platform: a.Name(), Reason: err.Error(), Retryable: true}
	}
	defer os.Remove(tempFile)

	file, err := os.Open(tempFile)
	if err != nil {
		slog.Info(err.Error())
		return "", &PublishError{Platform: a.Name(), Reason: err.Error(), Retryable: true}
	}
	defer file.Close()

	description := req.Description
	if len(req.Hashtags) > 0 {
		description = strings.TrimSpace(description + "\n\n" + strings.Join(req.Hashtags, " "))
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       req.Title,
			Description: description,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: "public",
		},
	}

	call := service.Videos.Insert([]string{"snippet", "status"}, video)
	response, err := call.Media(file).Context(ctx).Do()
	if err != nil {
		slog.Info(err.Error())
		return "", &PublishError{
			Platform:  a.Name(),
			Reason:    err.Error(),
			Retryable: isRetryableGoogleErr(err),
		}
	}

	return response.Id, nil
}

func (a *youtubeAdapter) Revoke(ctx context.Context, platformUID, accessToken string) error {
	revokeURL := "https://oauth2.googleapis.com/revoke"
	payload := []byte("token=" + accessToken)

	req, err := http.NewRequestWithContext(ctx, "POST", revokeURL, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to revoke token, status code: %d", resp.StatusCode)
	}
	return nil
}

// isRetryableGoogleErr treats quota/rate-limit and server errors as
// retryable; everything else (policy rejections, bad requests, expired
// credentials) is final.
func isRetryableGoogleErr(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return true
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500:
		return true
	case apiErr.Code == http.StatusForbidden:
		for _, e := range apiErr.Errors {
			if e.Reason == "quotaExceeded" || e.Reason == "rateLimitExceeded" ||
				e.Reason == "userRateLimitExceeded" || e.Reason == "uploadLimitExceeded" {
				return true
			}
		}
		return false
	default:
		return false
	}
}

type googleUser struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func googleUserInfo(client *http.Client) (*googleUser, error) {
	userInfoURL := "https://www.googleapis.com/oauth2/v1/userinfo"

	response, err := client.Get(userInfoURL)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error fetching user info: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		slog.Info("Unexpected response status")
		return nil, fmt.Errorf("unexpected response status: %d", response.StatusCode)
	}

	var userInfo googleUser
	if err := json.NewDecoder(response.Body).Decode(&userInfo); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error decoding user info: %w", err)
	}

	return &userInfo, nil
}

func downloadToTempFile(ctx context.Context, fileURL string) (string, error) {
	tempFile, err := os.CreateTemp("", "video-*.mp4")
	if err != nil {
		return "", fmt.Errorf("error creating temporary file: %w", err)
	}
	defer tempFile.Close()

	req, err := http.NewRequestWithContext(ctx, "GET", fileURL, nil)
	if err != nil {
		return "", err
	}

	response, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error downloading video: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected response status: %d", response.StatusCode)
	}

	if _, err = io.Copy(tempFile, response.Body); err != nil {
		return "", fmt.Errorf("error saving video to temporary file: %w", err)
	}

	return tempFile.Name(), nil
}
