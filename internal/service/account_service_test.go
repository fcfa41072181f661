package service

import (
	"context"
	"net/url"
	"testing"
	"time"

	config "github.com/maheshrc27/postpilot/configs"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/platform"
	"github.com/maheshrc27/postpilot/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecretKey = "0123456789abcdef0123456789abcdef"

func testServiceConfig() config.Config {
	return config.Config{SecretKey: testSecretKey}
}

func newConnectedService(adapter *fakeAdapter) (*accountService, *fakeAccountRepo, *fakeStateStore) {
	repo := newFakeAccountRepo()
	states := newFakeStateStore()
	resolver := &fakeResolver{adapters: map[string]platform.Adapter{adapter.name: adapter}, disabled: map[string]bool{}}
	svc := NewAccountService(testServiceConfig(), repo, resolver, states).(*accountService)
	return svc, repo, states
}

func tiktokGrant() *platform.TokenGrant {
	return &platform.TokenGrant{
		AccessToken:  "access-plain",
		RefreshToken: "refresh-plain",
		ExpiresAt:    time.Now().Add(24 * time.Hour),
		Scopes:       []string{"video.publish"},
		User: platform.UserInfo{
			ID:          "tt-user-1",
			Username:    "creator",
			DisplayName: "Creator",
		},
	}
}

func TestBeginConnectionBuildsAuthURL(t *testing.T) {
	adapter := &fakeAdapter{name: platform.PlatformTiktok}
	svc, _, states := newConnectedService(adapter)

	authURL, err := svc.BeginConnection(context.Background(), 1, platform.PlatformTiktok)
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)

	state := parsed.Query().Get("state")
	require.NotEmpty(t, state)

	claims, err := utils.ValidateStateToken(testSecretKey, state)
	require.NoError(t, err)
	assert.Equal(t, "1", claims.UserID)
	assert.Equal(t, platform.PlatformTiktok, claims.Platform)

	_, found, err := states.Consume(context.Background(), claims.Nonce)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestBeginConnectionUnknownPlatform(t *testing.T) {
	adapter := &fakeAdapter{name: platform.PlatformTiktok}
	svc, _, _ := newConnectedService(adapter)

	_, err := svc.BeginConnection(context.Background(), 1, "myspace")
	require.Error(t, err)
}

func TestCompleteConnectionCreatesDefaultAccount(t *testing.T) {
	adapter := &fakeAdapter{name: platform.PlatformTiktok, grant: tiktokGrant()}
	svc, repo, _ := newConnectedService(adapter)

	authURL, err := svc.BeginConnection(context.Background(), 1, platform.PlatformTiktok)
	require.NoError(t, err)
	state := queryParam(t, authURL, "state")

	account, err := svc.CompleteConnection(context.Background(), state, "auth-code")
	require.NoError(t, err)

	assert.Equal(t, int64(1), account.OwnerID)
	assert.True(t, account.IsDefault, "first account for a platform becomes default")
	assert.Equal(t, models.AccountStatusActive, account.Status)

	// Tokens must never hit the database in plaintext.
	stored, err := repo.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "access-plain", stored.AccessToken)

	decrypted, err := utils.Decrypt(stored.AccessToken, []byte(testSecretKey))
	require.NoError(t, err)
	assert.Equal(t, "access-plain", decrypted)
}

func TestCompleteConnectionSecondAccountNotDefault(t *testing.T) {
	adapter := &fakeAdapter{name: platform.PlatformTiktok, grant: tiktokGrant()}
	svc, _, _ := newConnectedService(adapter)

	authURL, _ := svc.BeginConnection(context.Background(), 1, platform.PlatformTiktok)
	first, err := svc.CompleteConnection(context.Background(), queryParam(t, authURL, "state"), "code")
	require.NoError(t, err)
	assert.True(t, first.IsDefault)

	adapter.grant = tiktokGrant()
	adapter.grant.User.ID = "tt-user-2"

	authURL, _ = svc.BeginConnection(context.Background(), 1, platform.PlatformTiktok)
	second, err := svc.CompleteConnection(context.Background(), queryParam(t, authURL, "state"), "code")
	require.NoError(t, err)
	assert.False(t, second.IsDefault)
}

func TestCompleteConnectionReplayRejected(t *testing.T) {
	adapter := &fakeAdapter{name: platform.PlatformTiktok, grant: tiktokGrant()}
	svc, _, _ := newConnectedService(adapter)

	authURL, _ := svc.BeginConnection(context.Background(), 1, platform.PlatformTiktok)
	state := queryParam(t, authURL, "state")

	_, err := svc.CompleteConnection(context.Background(), state, "code")
	require.NoError(t, err)

	_, err = svc.CompleteConnection(context.Background(), state, "code")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCompleteConnectionForgedStateRejected(t *testing.T) {
	adapter := &fakeAdapter{name: platform.PlatformTiktok, grant: tiktokGrant()}
	svc, _, _ := newConnectedService(adapter)

	forged, err := utils.GenerateStateToken("another-secret-another-secret-12", "1", platform.PlatformTiktok, "nonce", time.Minute)
	require.NoError(t, err)

	_, err = svc.CompleteConnection(context.Background(), forged, "code")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCompleteConnectionConflict(t *testing.T) {
	adapter := &fakeAdapter{name: platform.PlatformTiktok, grant: tiktokGrant()}
	svc, _, _ := newConnectedService(adapter)

	authURL, _ := svc.BeginConnection(context.Background(), 1, platform.PlatformTiktok)
	_, err := svc.CompleteConnection(context.Background(), queryParam(t, authURL, "state"), "code")
	require.NoError(t, err)

	// User 2 tries to connect the same platform identity.
	authURL, _ = svc.BeginConnection(context.Background(), 2, platform.PlatformTiktok)
	_, err = svc.CompleteConnection(context.Background(), queryParam(t, authURL, "state"), "code")
	assert.ErrorIs(t, err, ErrAccountConflict)
}

func TestCompleteConnectionReconnectKeepsNickname(t *testing.T) {
	adapter := &fakeAdapter{name: platform.PlatformTiktok, grant: tiktokGrant()}
	svc, repo, _ := newConnectedService(adapter)

	authURL, _ := svc.BeginConnection(context.Background(), 1, platform.PlatformTiktok)
	account, err := svc.CompleteConnection(context.Background(), queryParam(t, authURL, "state"), "code")
	require.NoError(t, err)

	require.NoError(t, svc.SetNickname(context.Background(), 1, account.ID, "main channel"))

	adapter.grant = tiktokGrant()
	adapter.grant.AccessToken = "access-plain-2"

	authURL, _ = svc.BeginConnection(context.Background(), 1, platform.PlatformTiktok)
	reconnected, err := svc.CompleteConnection(context.Background(), queryParam(t, authURL, "state"), "code")
	require.NoError(t, err)

	assert.Equal(t, account.ID, reconnected.ID)

	stored, err := repo.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, "main channel", stored.Nickname)
}

func TestCredentialsFreshTokenNotRefreshed(t *testing.T) {
	adapter := &fakeAdapter{name: platform.PlatformTiktok, grant: tiktokGrant()}
	svc, _, _ := newConnectedService(adapter)

	authURL, _ := svc.BeginConnection(context.Background(), 1, platform.PlatformTiktok)
	account, err := svc.CompleteConnection(context.Background(), queryParam(t, authURL, "state"), "code")
	require.NoError(t, err)

	creds, err := svc.Credentials(context.Background(), account.ID, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "access-plain", creds.AccessToken)
}

func TestCredentialsRefreshesInsideMargin(t *testing.T) {
	grant := tiktokGrant()
	grant.ExpiresAt = time.Now().Add(time.Minute)
	adapter := &fakeAdapter{
		name:  platform.PlatformTiktok,
		grant: grant,
		refreshGrant: &platform.TokenGrant{
			AccessToken:  "access-new",
			RefreshToken: "refresh-new",
			ExpiresAt:    time.Now().Add(24 * time.Hour),
		},
	}
	svc, repo, _ := newConnectedService(adapter)

	authURL, _ := svc.BeginConnection(context.Background(), 1, platform.PlatformTiktok)
	account, err := svc.CompleteConnection(context.Background(), queryParam(t, authURL, "state"), "code")
	require.NoError(t, err)

	creds, err := svc.Credentials(context.Background(), account.ID, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "access-new", creds.AccessToken)

	stored, err := repo.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	decrypted, err := utils.Decrypt(stored.AccessToken, []byte(testSecretKey))
	require.NoError(t, err)
	assert.Equal(t, "access-new", decrypted)
}

func TestCredentialsRefreshFailureFlagsAccount(t *testing.T) {
	grant := tiktokGrant()
	grant.ExpiresAt = time.Now().Add(time.Minute)
	adapter := &fakeAdapter{
		name:       platform.PlatformTiktok,
		grant:      grant,
		refreshErr: &platform.TokenRefreshError{Platform: platform.PlatformTiktok},
	}
	svc, repo, _ := newConnectedService(adapter)

	authURL, _ := svc.BeginConnection(context.Background(), 1, platform.PlatformTiktok)
	account, err := svc.CompleteConnection(context.Background(), queryParam(t, authURL, "state"), "code")
	require.NoError(t, err)

	_, err = svc.Credentials(context.Background(), account.ID, 5*time.Minute)
	assert.ErrorIs(t, err, ErrReconnectRequired)

	stored, err := repo.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccountStatusError, stored.Status)
}

func TestCredentialsErroredAccountFailsFast(t *testing.T) {
	adapter := &fakeAdapter{name: platform.PlatformTiktok, grant: tiktokGrant()}
	svc, repo, _ := newConnectedService(adapter)

	authURL, _ := svc.BeginConnection(context.Background(), 1, platform.PlatformTiktok)
	account, err := svc.CompleteConnection(context.Background(), queryParam(t, authURL, "state"), "code")
	require.NoError(t, err)

	// A failed refresh flagged the account even though the stored token
	// still looks live.
	require.NoError(t, repo.SetStatus(context.Background(), account.ID, models.AccountStatusError))

	_, err = svc.Credentials(context.Background(), account.ID, 5*time.Minute)
	assert.ErrorIs(t, err, ErrReconnectRequired)
}

func TestDisconnectRevokesAndRemoves(t *testing.T) {
	adapter := &fakeAdapter{name: platform.PlatformTiktok, grant: tiktokGrant()}
	svc, repo, _ := newConnectedService(adapter)

	authURL, _ := svc.BeginConnection(context.Background(), 1, platform.PlatformTiktok)
	account, err := svc.CompleteConnection(context.Background(), queryParam(t, authURL, "state"), "code")
	require.NoError(t, err)

	require.NoError(t, svc.Disconnect(context.Background(), 1, account.ID))
	assert.Contains(t, adapter.revoked, "tt-user-1")

	stored, err := repo.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestDisconnectForeignAccount(t *testing.T) {
	adapter := &fakeAdapter{name: platform.PlatformTiktok, grant: tiktokGrant()}
	svc, _, _ := newConnectedService(adapter)

	authURL, _ := svc.BeginConnection(context.Background(), 1, platform.PlatformTiktok)
	account, err := svc.CompleteConnection(context.Background(), queryParam(t, authURL, "state"), "code")
	require.NoError(t, err)

	err = svc.Disconnect(context.Background(), 2, account.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetDefaultSwitchesSiblings(t *testing.T) {
	adapter := &fakeAdapter{name: platform.PlatformTiktok, grant: tiktokGrant()}
	svc, repo, _ := newConnectedService(adapter)

	authURL, _ := svc.BeginConnection(context.Background(), 1, platform.PlatformTiktok)
	first, err := svc.CompleteConnection(context.Background(), queryParam(t, authURL, "state"), "code")
	require.NoError(t, err)

	adapter.grant = tiktokGrant()
	adapter.grant.User.ID = "tt-user-2"
	authURL, _ = svc.BeginConnection(context.Background(), 1, platform.PlatformTiktok)
	second, err := svc.CompleteConnection(context.Background(), queryParam(t, authURL, "state"), "code")
	require.NoError(t, err)

	require.NoError(t, svc.SetDefault(context.Background(), 1, second.ID))

	storedFirst, _ := repo.GetByID(context.Background(), first.ID)
	storedSecond, _ := repo.GetByID(context.Background(), second.ID)
	assert.False(t, storedFirst.IsDefault)
	assert.True(t, storedSecond.IsDefault)
}

func queryParam(t *testing.T, rawURL, key string) string {
	t.Helper()
	parsed, err := url.Parse(rawURL)
	require.NoError(t, err)
	value := parsed.Query().Get(key)
	require.NotEmpty(t, value)
	return value
}
