package auth

import "errors"

var (
	// ErrInvalidCredentials indicates the identifier/password pair did not
	// match a stored account. Handlers report it identically to ErrUserNotFound
	// so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound indicates no account matches the supplied identifier.
	ErrUserNotFound = errors.New("user not found")
	// ErrTokenExpired indicates a well-formed token whose validity window has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid indicates a malformed token, a bad signature, or a token
	// of the wrong kind.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrRefreshReused indicates the presented refresh token no longer matches
	// the persisted value: it was rotated away, revoked, or forged.
	ErrRefreshReused = errors.New("refresh token expired or already used")
)
