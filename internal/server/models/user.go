// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account record. Token fields and the password hash never leave
// the server.
type User struct {
	ID                   string     `json:"id"`
	Email                string     `json:"email"`
	PasswordHash         string     `json:"-"`
	Name                 string     `json:"name"`
	Role                 string     `json:"role"`
	IsVerified           bool       `json:"isVerified"`
	IsApproved           bool       `json:"isApproved"`
	VerificationToken    *string    `json:"-"`
	ResetPasswordToken   *string    `json:"-"`
	ResetPasswordExpires *time.Time `json:"-"`
	CreatedAt            time.Time  `json:"createdAt"`
}

// Ref returns the short public form of the user.
func (u *User) Ref() *UserRef {
	return &UserRef{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// UserRef is embedded in responses that point at a user: the login payload,
// document authors and SMTP config creators.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}
