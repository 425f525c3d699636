// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account. Email and Username are both unique login identifiers.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
