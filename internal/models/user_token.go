package models

import "time"

// UserToken is a persisted refresh-token record. Its existence is the source
// of truth for refresh-token validity: logout deletes the row, so a refresh
// token whose signature still verifies is rejected once the row is gone.
// Rows are only created and deleted, never updated.
type UserToken struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Token     string    `json:"-" db:"token"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

// IsExpired returns true if the record has passed its absolute expiry.
func (t *UserToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}
