// Package common contains shared constants and sentinel errors used across
// docmark components.
package common

// AuthorizationHeaderName is the HTTP header carrying the session token.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the session token in the Authorization header.
const BearerPrefix = "Bearer "

// Roles a user can hold.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
