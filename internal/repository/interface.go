package repository

import (
	"context"
	"errors"

	"github.com/legido/auth-backend/internal/models"
)

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert violates a uniqueness
	// constraint (user email, reset token). The store is the arbiter for
	// concurrent creations: exactly one wins, the rest see ErrDuplicate.
	ErrDuplicate = errors.New("already exists")
)

// Store defines credential data access. Both SQL implementations push all
// serialization onto the database's uniqueness constraints; callers need no
// in-process locking.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	SetUserTFASecret(ctx context.Context, userID, secret string) error
	UpdateUserPassword(ctx context.Context, userID, passwordHash string) error

	// Refresh-token records
	CreateUserToken(ctx context.Context, token *models.UserToken) error
	GetUserToken(ctx context.Context, userID, token string) (*models.UserToken, error)
	DeleteUserTokensByToken(ctx context.Context, token string) error

	// Password resets
	CreatePasswordReset(ctx context.Context, reset *models.PasswordReset) error
	GetPasswordResetByToken(ctx context.Context, token string) (*models.PasswordReset, error)

	Ping(ctx context.Context) error
	Close() error
}
