// Package common defines shared constants and sentinel errors used across
// the server, the admin console and their tests. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Session token errors.
	ErrNoToken      = errors.New("no token")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Account lifecycle errors.
	ErrDuplicateEmail        = errors.New("email already registered")
	ErrBadCredentials        = errors.New("invalid email or password")
	ErrNotVerified           = errors.New("email not verified")
	ErrNotApproved           = errors.New("account not approved")
	ErrAlreadyApproved       = errors.New("user already approved")
	ErrAlreadyVerified       = errors.New("user already verified")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrInvalidRole           = errors.New("invalid role")
	ErrSelfDelete            = errors.New("cannot delete your own account")
	ErrNoIDs                 = errors.New("no ids provided")

	// Collaborator errors.
	ErrEmailDispatch    = errors.New("email dispatch failed")
	ErrNoActiveSMTP     = errors.New("no active smtp configuration")
	ErrConversionFailed = errors.New("conversion failed")
	ErrRateLimited      = errors.New("too many requests")
)
