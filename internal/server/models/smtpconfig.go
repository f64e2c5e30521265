package models

import "time"

// SmtpConfig describes an outgoing mail server. AuthPass is write-only.
type SmtpConfig struct {
	ID        string    `json:"id"`
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	Secure    bool      `json:"secure"`
	AuthUser  string    `json:"authUser"`
	AuthPass  string    `json:"-"`
	FromEmail string    `json:"fromEmail"`
	FromName  string    `json:"fromName"`
	IsActive  bool      `json:"isActive"`
	CreatedBy *string   `json:"-"`
	Creator   *UserRef  `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
