package models

import "time"

// APIKeyRecord describes one accepted bearer token.
type APIKeyRecord struct {
	Token     string    `json:"token"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}
