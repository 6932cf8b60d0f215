package models

import "time"

// PasswordReset links an email address to a single-use reset token mailed to
// that address. Token uniqueness is enforced by the store at creation.
type PasswordReset struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Token     string    `json:"-" db:"token"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
