package platform

import (
	"errors"
	"net/url"
	"testing"

	config "github.com/maheshrc27/postpilot/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	return config.Config{
		GoogleClientID:        "google-client",
		GoogleClientSecret:    "google-secret",
		GoogleRedirectURI:     "https://api.example.com/auth/youtube/callback",
		FacebookClientID:      "fb-client",
		FacebookClientSecret:  "fb-secret",
		FacebookRedirectURI:   "https://api.example.com/auth/facebook/callback",
		InstagramClientID:     "ig-client",
		InstagramClientSecret: "ig-secret",
		InstagramRedirectURI:  "https://api.example.com/auth/instagram/callback",
		TiktokClientKey:       "tt-key",
		TiktokClientSecret:    "tt-secret",
		TiktokRedirectURI:     "https://api.example.com/auth/tiktok/callback",
		ThreadsClientID:       "th-client",
		ThreadsClientSecret:   "th-secret",
		ThreadsRedirectURI:    "https://api.example.com/auth/threads/callback",
	}
}

func TestRegistryForName(t *testing.T) {
	registry := NewRegistry(testConfig())

	for _, name := range []string{PlatformYoutube, PlatformFacebook, PlatformInstagram, PlatformTiktok, PlatformThreads} {
		adapter, err := registry.ForName(name)
		require.NoError(t, err)
		assert.Equal(t, name, adapter.Name())
	}
}

func TestRegistryForNameUnknown(t *testing.T) {
	registry := NewRegistry(testConfig())

	_, err := registry.ForName("myspace")
	require.Error(t, err)

	var unsupported *UnsupportedPlatformError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "myspace", unsupported.Platform)
}

func TestRegistryDisabledPlatforms(t *testing.T) {
	cfg := testConfig()
	cfg.DisabledPlatforms = "tiktok, threads"

	registry := NewRegistry(cfg)

	assert.False(t, registry.Enabled(PlatformTiktok))
	assert.False(t, registry.Enabled(PlatformThreads))
	assert.True(t, registry.Enabled(PlatformYoutube))
	assert.False(t, registry.Enabled("myspace"))

	// Disabled platforms still resolve so existing accounts keep working.
	_, err := registry.ForName(PlatformTiktok)
	assert.NoError(t, err)
}

func TestRegistryNames(t *testing.T) {
	registry := NewRegistry(testConfig())
	assert.Len(t, registry.Names(), 5)
}

func TestBuildAuthorizationURLCarriesState(t *testing.T) {
	registry := NewRegistry(testConfig())

	tests := []struct {
		platform string
		clientID string
		idParam  string
	}{
		{PlatformYoutube, "google-client", "client_id"},
		{PlatformFacebook, "fb-client", "client_id"},
		{PlatformInstagram, "ig-client", "client_id"},
		{PlatformTiktok, "tt-key", "client_key"},
		{PlatformThreads, "th-client", "client_id"},
	}

	for _, tc := range tests {
		t.Run(tc.platform, func(t *testing.T) {
			adapter, err := registry.ForName(tc.platform)
			require.NoError(t, err)

			raw := adapter.BuildAuthorizationURL("signed-state-token")
			parsed, err := url.Parse(raw)
			require.NoError(t, err)

			query := parsed.Query()
			assert.Equal(t, "signed-state-token", query.Get("state"))
			assert.Equal(t, tc.clientID, query.Get(tc.idParam))
			assert.NotEmpty(t, query.Get("redirect_uri"))
		})
	}
}

func TestYoutubeAuthorizationURLRequestsOfflineAccess(t *testing.T) {
	registry := NewRegistry(testConfig())

	adapter, err := registry.ForName(PlatformYoutube)
	require.NoError(t, err)

	parsed, err := url.Parse(adapter.BuildAuthorizationURL("state"))
	require.NoError(t, err)

	query := parsed.Query()
	assert.Equal(t, "offline", query.Get("access_type"))
	assert.Equal(t, "consent", query.Get("prompt"))
}
