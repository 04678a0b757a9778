package service

import "errors"

var (
	// validation
	ErrMissingFields = errors.New("missing required fields")

	// conflicts
	ErrEmailTaken      = errors.New("email already registered")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrAlreadyVerified = errors.New("user already verified")

	// auth
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrUserNotFound       = errors.New("user not found")

	// storage
	ErrPersistence = errors.New("storage failure")
)
