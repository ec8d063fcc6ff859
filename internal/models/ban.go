// Package models holds the domain types shared by the repository, service and bot layers.
package models

import "time"

// BanRecord is the metadata kept for one banned sender. It is keyed by the
// ban token and refers to the sender only through the pseudonymous hash.
type BanRecord struct {
	Token     string    `json:"token"`
	UserHash  string    `json:"user_hash"`
	Reason    string    `json:"reason"`
	Intention string    `json:"intention"`
	AdminID   int64     `json:"admin_id"`
	CreatedAt time.Time `json:"created_at"`
}
