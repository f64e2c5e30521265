// Package models holds the API payloads the admin console reads.
package models

import "time"

// User is an account as the admin API lists it.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	IsVerified bool      `json:"isVerified"`
	IsApproved bool      `json:"isApproved"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Status is a short human label for the account lifecycle state.
func (u *User) Status() string {
	switch {
	case !u.IsVerified:
		return "unverified"
	case !u.IsApproved:
		return "pending approval"
	default:
		return "active"
	}
}

// Session is the login response.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
