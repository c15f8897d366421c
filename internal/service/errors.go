package service

import "errors"

// Domain outcomes. Messages stay generic where a specific one
// would let callers probe which emails or tokens exist.
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrInvalidOrExpired   = errors.New("invalid or expired verification token")
	ErrNotFound           = errors.New("account not found")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrMailDelivery       = errors.New("verification email could not be sent")
)
