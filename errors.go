package authgate

import "errors"

var (
	// ErrNoAccessToken is an exported constant or variable used by the authentication engine.
	ErrNoAccessToken = errors.New("no access token provided")
	// ErrInvalidAccessToken is an exported constant or variable used by the authentication engine.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrAuthenticationFailed is an exported constant or variable used by the authentication engine.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrNoRefreshToken is an exported constant or variable used by the authentication engine.
	ErrNoRefreshToken = errors.New("no refresh token provided")
	// ErrInvalidRefreshToken is an exported constant or variable used by the authentication engine.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrTokenReused is an exported constant or variable used by the authentication engine.
	ErrTokenReused = errors.New("refresh token reuse detected")
	// ErrUserNotFound is an exported constant or variable used by the authentication engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is an exported constant or variable used by the authentication engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginRateLimited is an exported constant or variable used by the authentication engine.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRefreshRateLimited is an exported constant or variable used by the authentication engine.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrIdentityRejected is an exported constant or variable used by the authentication engine.
	ErrIdentityRejected = errors.New("federated identity rejected")
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
