package auth

import "errors"

// Service-level failures, mapped to HTTP statuses at the handler boundary.
var (
	ErrValidation         = errors.New("missing or malformed input")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnverifiedAccount  = errors.New("email not verified")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrInvalidOrExpired   = errors.New("invalid or expired token")
	ErrUserNotFound       = errors.New("user not found")
	ErrDelivery           = errors.New("email could not be sent")
)
