package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	config "github.com/maheshrc27/postpilot/configs"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/platform"
	"github.com/maheshrc27/postpilot/internal/repository"
	"github.com/maheshrc27/postpilot/pkg/utils"
)

const (
	stateKeyPrefix = "oauth_state:"
	stateTTL       = 10 * time.Minute
)

type AccountService interface {
	BeginConnection(ctx context.Context, userID int64, platformName string) (string, error)
	CompleteConnection(ctx context.Context, state, code string) (*models.Account, error)
	List(ctx context.Context, userID int64) ([]*models.Account, error)
	ListExpiring(ctx context.Context, within time.Duration) ([]*models.Account, error)
	SetDefault(ctx context.Context, userID, accountID int64) error
	SetNickname(ctx context.Context, userID, accountID int64, nickname string) error
	Refresh(ctx context.Context, accountID int64) error
	ForceRefresh(ctx context.Context, userID, accountID int64) error
	Credentials(ctx context.Context, accountID int64, margin time.Duration) (*models.Account, error)
	Disconnect(ctx context.Context, userID, accountID int64) error
}

// PlatformResolver is the slice of platform.Registry the account service
// needs.
type PlatformResolver interface {
	ForName(name string) (platform.Adapter, error)
	Enabled(name string) bool
}

type accountService struct {
	cfg      config.Config
	a        repository.AccountRepository
	registry PlatformResolver
	states   StateStore
}

func NewAccountService(cfg config.Config, a repository.AccountRepository, registry PlatformResolver, states StateStore) AccountService {
	return &accountService{
		cfg:      cfg,
		a:        a,
		registry: registry,
		states:   states,
	}
}

// BeginConnection builds the authorization redirect for the platform. The
// state parameter is a signed token whose nonce is parked in Redis and
// consumed exactly once on callback.
func (s *accountService) BeginConnection(ctx context.Context, userID int64, platformName string) (string, error) {
	adapter, err := s.registry.ForName(platformName)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	if !s.registry.Enabled(platformName) {
		err = errors.New("platform is disabled")
		slog.Info(err.Error())
		return "", err
	}

	nonce, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	uid := strconv.FormatInt(userID, 10)

	if err = s.states.Put(ctx, nonce, uid, stateTTL); err != nil {
		return "", err
	}

	state, err := utils.GenerateStateToken(s.cfg.SecretKey, uid, platformName, nonce, stateTTL)
	if err != nil {
		return "", err
	}

	return adapter.BuildAuthorizationURL(state), nil
}

// CompleteConnection finishes the OAuth dance: validates and consumes the
// state, exchanges the code, and creates or reconnects the account row.
func (s *accountService) CompleteConnection(ctx context.Context, state, code string) (*models.Account, error) {
	claims, err := utils.ValidateStateToken(s.cfg.SecretKey, state)
	if err != nil {
		return nil, ErrInvalidState
	}

	// Consuming the nonce makes replayed callbacks fail even when they race.
	stored, found, err := s.states.Consume(ctx, claims.Nonce)
	if err != nil {
		return nil, err
	}
	if !found || stored != claims.UserID {
		return nil, ErrInvalidState
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		slog.Info(err.Error())
		return nil, ErrInvalidState
	}

	adapter, err := s.registry.ForName(claims.Platform)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	grant, err := adapter.ExchangeCode(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	existing, err := s.a.GetByPlatformUserID(ctx, claims.Platform, grant.User.ID)
	if err != nil {
		return nil, err
	}

	if existing != nil && existing.OwnerID != userID {
		return nil, ErrAccountConflict
	}

	accessToken, refreshToken, err := s.sealTokens(grant.AccessToken, grant.RefreshToken)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		OwnerID:        userID,
		Platform:       claims.Platform,
		PlatformUserID: grant.User.ID,
		Username:       grant.User.Username,
		DisplayName:    grant.User.DisplayName,
		AvatarURL:      grant.User.AvatarURL,
		AccessToken:    accessToken,
		RefreshToken:   refreshToken,
		TokenExpiresAt: grant.ExpiresAt,
		Scopes:         grant.Scopes,
		Status:         models.AccountStatusActive,
	}

	if existing != nil {
		// Reconnect keeps nickname and is_default from the old row.
		account.ID = existing.ID
		account.Nickname = existing.Nickname
		account.IsDefault = existing.IsDefault
		if err := s.a.UpdateOnReconnect(ctx, account); err != nil {
			return nil, err
		}
		return account, nil
	}

	count, err := s.a.CountByOwnerAndPlatform(ctx, userID, claims.Platform)
	if err != nil {
		return nil, err
	}
	account.IsDefault = count == 0

	id, err := s.a.Create(ctx, nil, account)
	if err != nil {
		return nil, err
	}
	account.ID = id

	return account, nil
}

func (s *accountService) List(ctx context.Context, userID int64) ([]*models.Account, error) {
	return s.a.ListByOwnerID(ctx, userID)
}

func (s *accountService) ListExpiring(ctx context.Context, within time.Duration) ([]*models.Account, error) {
	now := time.Now()
	return s.a.ListExpiring(ctx, now, now.Add(within))
}

func (s *accountService) SetDefault(ctx context.Context, userID, accountID int64) error {
	account, err := s.owned(ctx, userID, accountID)
	if err != nil {
		return err
	}
	return s.a.SetDefault(ctx, userID, account.Platform, accountID)
}

func (s *accountService) SetNickname(ctx context.Context, userID, accountID int64, nickname string) error {
	if _, err := s.owned(ctx, userID, accountID); err != nil {
		return err
	}
	return s.a.SetNickname(ctx, accountID, nickname)
}

// Refresh forces a token refresh regardless of remaining lifetime. Used by
// the expiry sweep and the manual refresh endpoint.
func (s *accountService) Refresh(ctx context.Context, accountID int64) error {
	account, err := s.a.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return ErrNotFound
	}

	_, err = s.refreshTokens(ctx, account)
	return err
}

// ForceRefresh is the user-facing variant of Refresh with an ownership check.
func (s *accountService) ForceRefresh(ctx context.Context, userID, accountID int64) error {
	account, err := s.owned(ctx, userID, accountID)
	if err != nil {
		return err
	}

	_, err = s.refreshTokens(ctx, account)
	return err
}

// Credentials returns the account with its access token decrypted and valid
// for at least margin. Accounts inside the margin are refreshed first; a
// refresh failure flips the account to error status and surfaces
// ErrReconnectRequired.
func (s *accountService) Credentials(ctx context.Context, accountID int64, margin time.Duration) (*models.Account, error) {
	account, err := s.a.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrNotFound
	}

	// An errored account holds credentials a failed refresh already proved
	// stale, whatever token_expires_at still claims.
	if account.Status == models.AccountStatusError {
		return nil, ErrReconnectRequired
	}

	if !account.TokenExpiresAt.IsZero() && time.Until(account.TokenExpiresAt) < margin {
		return s.refreshTokens(ctx, account)
	}

	accessToken, err := utils.Decrypt(account.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return nil, err
	}
	account.AccessToken = accessToken
	account.RefreshToken = ""

	return account, nil
}

func (s *accountService) Disconnect(ctx context.Context, userID, accountID int64) error {
	account, err := s.owned(ctx, userID, accountID)
	if err != nil {
		return err
	}

	// Revocation is best effort, the row is removed either way.
	if adapter, err := s.registry.ForName(account.Platform); err == nil {
		if revoker, ok := adapter.(platform.Revoker); ok {
			accessToken, err := utils.Decrypt(account.AccessToken, []byte(s.cfg.SecretKey))
			if err == nil {
				if err := revoker.Revoke(ctx, account.PlatformUserID, accessToken); err != nil {
					slog.Info(err.Error())
				}
			}
		}
	}

	return s.a.SoftRemove(ctx, accountID)
}

func (s *accountService) owned(ctx context.Context, userID, accountID int64) (*models.Account, error) {
	isValid, err := s.a.CheckByOwnerID(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		return nil, ErrNotFound
	}

	account, err := s.a.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrNotFound
	}
	return account, nil
}

// refreshTokens exchanges the stored refresh token for new credentials and
// persists them. The returned account carries the plaintext access token.
func (s *accountService) refreshTokens(ctx context.Context, account *models.Account) (*models.Account, error) {
	adapter, err := s.registry.ForName(account.Platform)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	refreshToken := ""
	if account.RefreshToken != "" {
		refreshToken, err = utils.Decrypt(account.RefreshToken, []byte(s.cfg.SecretKey))
		if err != nil {
			return nil, err
		}
	}

	// Instagram and Threads refresh on the access token itself.
	if refreshToken == "" {
		refreshToken, err = utils.Decrypt(account.AccessToken, []byte(s.cfg.SecretKey))
		if err != nil {
			return nil, err
		}
	}

	grant, err := adapter.RefreshToken(ctx, refreshToken)
	if err != nil {
		slog.Info(err.Error())
		if statusErr := s.a.SetStatus(ctx, account.ID, models.AccountStatusError); statusErr != nil {
			slog.Info(statusErr.Error())
		}
		return nil, ErrReconnectRequired
	}

	accessToken, newRefresh, err := s.sealTokens(grant.AccessToken, grant.RefreshToken)
	if err != nil {
		return nil, err
	}

	if err := s.a.SetToken(ctx, account.ID, accessToken, newRefresh, grant.ExpiresAt); err != nil {
		return nil, err
	}

	account.AccessToken = grant.AccessToken
	account.RefreshToken = ""
	account.TokenExpiresAt = grant.ExpiresAt
	account.Status = models.AccountStatusActive

	return account, nil
}

// sealTokens encrypts credentials for storage. An absent refresh token stays
// empty so SetToken keeps whatever is already persisted.
func (s *accountService) sealTokens(accessToken, refreshToken string) (string, string, error) {
	key := []byte(s.cfg.SecretKey)

	sealedAccess, err := utils.Encrypt([]byte(accessToken), key)
	if err != nil {
		return "", "", err
	}

	sealedRefresh := ""
	if refreshToken != "" {
		sealedRefresh, err = utils.Encrypt([]byte(refreshToken), key)
		if err != nil {
			return "", "", err
		}
	}

	return sealedAccess, sealedRefresh, nil
}
