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
	facebookAuthURL  = "https://www.facebook.com/v18.0/dialog/oauth"
	facebookGraphURL = "https://graph.facebook.com/v18.0"
)

const facebookScopes = "pages_show_list,pages_manage_posts,publish_video"

type facebookAdapter struct {
	cfg    config.Config
	client *http.Client
}

func NewFacebookAdapter(cfg config.Config, client *http.Client) Adapter {
	return &facebookAdapter{cfg: cfg, client: client}
}

func (a *facebookAdapter) Name() string { return PlatformFacebook }

func (a *facebookAdapter) BuildAuthorizationURL(state string) string {
	params := url.Values{}
	params.Add("client_id", a.cfg.FacebookClientID)
	params.Add("redirect_uri", a.cfg.FacebookRedirectURI)
	params.Add("response_type", "code")
	params.Add("scope", facebookScopes)
	params.Add("state", state)

	return fmt.Sprintf("%s?%s", facebookAuthURL, params.Encode())
}

func (a *facebookAdapter) ExchangeCode(ctx context.Context, code string) (*TokenGrant, error) {
	if code == "" {
		return nil, &OAuthExchangeError{Platform: a.Name(), Err: errors.New("code is empty")}
	}

	tokenURL := fmt.Sprintf(
		"%s/oauth/access_token?client_id=%s&client_secret=%s&redirect_uri=%s&code=%s",
		facebookGraphURL,
		a.cfg.FacebookClientID,
		a.cfg.FacebookClientSecret,
		url.QueryEscape(a.cfg.FacebookRedirectURI),
		url.QueryEscape(code),
	)

	token, expiresAt, err := a.tokenRequest(ctx, tokenURL)
	if err != nil {
		return nil, &OAuthExchangeError{Platform: a.Name(), Err: err}
	}

	userInfo, err := a.userInfo(ctx, token)
	if err != nil {
		return nil, &OAuthExchangeError{Platform: a.Name(), Err: err}
	}

	// Facebook issues no refresh token; long-lived user tokens are renewed
	// through the fb_exchange_token grant using the current token.
	return &TokenGrant{
		AccessToken:  token,
		RefreshToken: token,
		ExpiresAt:    expiresAt,
		Scopes:       strings.Split(facebookScopes, ","),
		User:         *userInfo,
	}, nil
}

func (a *facebookAdapter) RefreshToken(ctx context.Context, refreshToken string) (*TokenGrant, error) {
	tokenURL := fmt.Sprintf(
		"%s/oauth/access_token?grant_type=fb_exchange_token&client_id=%s&client_secret=%s&fb_exchange_token=%s",
		facebookGraphURL,
		a.cfg.FacebookClientID,
		a.cfg.FacebookClientSecret,
		url.QueryEscape(refreshToken),
	)

	token, expiresAt, err := a.tokenRequest(ctx, tokenURL)
	if err != nil {
		return nil, &TokenRefreshError{Platform: a.Name(), Err: err}
	}

	return &TokenGrant{
		AccessToken:  token,
		RefreshToken: token,
		ExpiresAt:    expiresAt,
	}, nil
}

func (a *facebookAdapter) tokenRequest(ctx context.Context, tokenURL string) (string, time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", tokenURL, nil)
	if err != nil {
		return "", time.Time{}, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", time.Time{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
		Error       *metaGraphError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", time.Time{}, fmt.Errorf("failed to decode token response: %w", err)
	}
	if result.Error != nil {
		return "", time.Time{}, result.Error
	}
	if result.AccessToken == "" {
		return "", time.Time{}, errors.New("no access token in Facebook response")
	}

	expiresIn := result.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 60 * 24 * 3600 // long-lived tokens default to ~60 days
	}
	return result.AccessToken, time.Now().Add(time.Second * time.Duration(expiresIn)), nil
}

func (a *facebookAdapter) userInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	reqURL := fmt.Sprintf("%s/me?fields=id,name,picture&access_token=%s", facebookGraphURL, accessToken)

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
		ID      string `json:"id"`
		Name    string `json:"name"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return &UserInfo{
		ID:          result.ID,
		Username:    result.Name,
		DisplayName: result.Name,
		AvatarURL:   result.Picture.Data.URL,
	}, nil
}

// Publish uploads the video through the Graph videos edge, pulling from the
// object-storage URL.
func (a *facebookAdapter) Publish(ctx context.Context, req *PublishRequest) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/videos", facebookGraphURL, url.PathEscape(req.PlatformUID))

	description := req.Description
	if len(req.Hashtags) > 0 {
		description = strings.TrimSpace(description + "\n\n" + strings.Join(req.Hashtags, " "))
	}

	params := url.Values{}
	params.Set("title", req.Title)
	params.Set("description", description)
	params.Set("file_url", req.VideoURL)
	if req.ThumbnailURL != "" {
		params.Set("thumb", req.ThumbnailURL)
	}
	params.Set("access_token", req.AccessToken)

	result, err := metaGraphPost(ctx, a.client, endpoint, params)
	if err != nil {
		var graphErr *metaGraphError
		if errors.As(err, &graphErr) {
			return "", &PublishError{Platform: a.Name(), Reason: graphErr.Message, Retryable: graphErr.Retryable()}
		}
		return "", &PublishError{Platform: a.Name(), Reason: err.Error(), Retryable: true}
	}
	if result.ID == "" {
		return "", &PublishError{Platform: a.Name(), Reason: "no video ID returned from Facebook", Retryable: false}
	}

	return result.ID, nil
}
