package models

import "time"

// Token is an issued session. Rows are never deleted; LoggedOut flips to
// true on logout or when a newer login supersedes it.
type Token struct {
	ID           string
	AccessToken  string
	RefreshToken string
	UserID       string
	LoggedOut    bool
	IssuedAt     time.Time
}
