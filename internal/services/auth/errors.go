package auth

import "errors"

// ErrGenAccessToken is returned when we cannot create a JWT.
var ErrGenAccessToken = errors.New("failed to generate access token")

// ErrInvalidCredentials covers every sign-in failure so callers cannot
// tell a wrong password from an unknown or deactivated account.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrUserNotFound is returned when a profile lookup misses.
var ErrUserNotFound = errors.New("user not found")

// ErrUnsupportedJWTAlg is returned at boot when the configured signing
// algorithm cannot be used for token verification.
var ErrUnsupportedJWTAlg = errors.New("unsupported JWT algorithm")
