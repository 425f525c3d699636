package models

import "time"

type Namespace struct {
	ID          string
	ZRN         string
	UserID      string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
