package models

import "time"

// User is an account identity. Email is the login name and is unique; the
// password hash is bcrypt. TFASecret is empty until the user completes
// two-factor enrollment, after which it is never changed.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	TFASecret    string    `json:"-" db:"tfa_secret"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// TwoFactorEnrolled returns true once a verified TOTP secret is on record.
func (u *User) TwoFactorEnrolled() bool {
	return u.TFASecret != ""
}
