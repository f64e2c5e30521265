package models

import "time"

const (
	ServiceOpenAI = "openai"
	ServiceGoogle = "google"
	ServiceAzure  = "azure"
	ServiceOther  = "other"
)

// KnownServices lists the values accepted in ApiKey.Service.
var KnownServices = []interface{}{ServiceOpenAI, ServiceGoogle, ServiceAzure, ServiceOther}

// ApiKey is a third-party credential managed by admins. At most one key per
// service is active.
type ApiKey struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Service   string    `json:"service"`
	Key       string    `json:"key"`
	Model     string    `json:"model"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
