package platform

import "fmt"

// UnsupportedPlatformError is returned for any platform identifier outside
// the fixed set the registry was built with.
type UnsupportedPlatformError struct {
	Platform string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform %q", e.Platform)
}

// OAuthExchangeError wraps a failed authorization-code exchange.
type OAuthExchangeError struct {
	Platform string
	Err      error
}

func (e *OAuthExchangeError) Error() string {
	return fmt.Sprintf("%s code exchange failed: %v", e.Platform, e.Err)
}

func (e *OAuthExchangeError) Unwrap() error { return e.Err }

// TokenRefreshError means the refresh token was rejected. The account must be
// marked errored and reconnected by the user; there is no automatic retry.
type TokenRefreshError struct {
	Platform string
	Err      error
}

func (e *TokenRefreshError) Error() string {
	return fmt.Sprintf("%s token refresh failed: %v", e.Platform, e.Err)
}

func (e *TokenRefreshError) Unwrap() error { return e.Err }

// PublishError carries whether the remote failure is worth retrying.
// Quota/rate-limit/server errors are retryable; policy rejections are not.
type PublishError struct {
	Platform  string
	Reason    string
	Retryable bool
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("%s publish failed: %s", e.Platform, e.Reason)
}
