package services

import "errors"

// Gate rejection errors. Handlers map these to HTTP status codes and
// machine-readable response codes; the service layer never speaks HTTP.
var (
	ErrTokenRequired = errors.New("access token required")
	ErrTokenExpired  = errors.New("access token expired")
	ErrTokenInvalid  = errors.New("access token invalid")
	ErrTokenRevoked  = errors.New("access token revoked")

	ErrRefreshTokenRequired = errors.New("refresh token required")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
	ErrRefreshTokenInvalid  = errors.New("refresh token invalid")

	ErrAccountDeactivated = errors.New("account deactivated")
	ErrAccountLocked      = errors.New("account locked")
	ErrUserNotFound       = errors.New("user not found")

	ErrUpstreamTimeout     = errors.New("user store lookup timed out")
	ErrUpstreamUnavailable = errors.New("user store unavailable")

	ErrInvalidCredentials = errors.New("invalid username or password")
)
