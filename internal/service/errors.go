package service

import "errors"

var (
	// ErrInvalidState rejects OAuth callbacks whose state token is missing,
	// expired, forged, or already consumed.
	ErrInvalidState = errors.New("invalid or already used oauth state")

	// ErrAccountConflict signals that the platform account is already
	// connected to a different user.
	ErrAccountConflict = errors.New("account already connected to another user")

	// ErrReconnectRequired means the stored credentials cannot be refreshed
	// and the user must go through the connection flow again.
	ErrReconnectRequired = errors.New("token refresh failed, reconnect required")

	// ErrIllegalTransition rejects lifecycle moves the post state machine
	// does not allow.
	ErrIllegalTransition = errors.New("post status does not allow this operation")

	ErrNotFound = errors.New("resource not found")
)
