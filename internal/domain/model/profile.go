package model

import "time"

// UserProfile owns the prepaid credit balance. Identity itself lives with the
// external auth provider; the profile row is created on first authenticated
// request with the signup credit grant.
type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Credits   int       `json:"credits"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
