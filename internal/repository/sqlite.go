package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/legido/auth-backend/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteRepository implements Store using SQLite
type SQLiteRepository struct {
	db *sqlx.DB
}

// NewSQLiteRepository creates a new SQLite repository
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Each in-memory connection is its own database; keep the pool at one.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	return &SQLiteRepository{db: db}, nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Ping checks database connectivity
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// RunMigrations runs database migrations
func (r *SQLiteRepository) RunMigrations(migrationSQL string) error {
	_, err := r.db.Exec(migrationSQL)
	return err
}

// User methods

func (r *SQLiteRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO users (id, email, first_name, last_name, password_hash, tfa_secret, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.TFASecret,
		user.CreatedAt,
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint") {
		return ErrDuplicate
	}
	return err
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := `SELECT * FROM users WHERE email = ?`

	err := r.db.GetContext(ctx, &user, query, email)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	query := `SELECT * FROM users WHERE id = ?`

	err := r.db.GetContext(ctx, &user, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetUserTFASecret persists a verified TOTP secret. It only fills an empty
// slot so an enrolled secret can never be overwritten.
func (r *SQLiteRepository) SetUserTFASecret(ctx context.Context, userID, secret string) error {
	query := `UPDATE users SET tfa_secret = ? WHERE id = ? AND tfa_secret = ''`
	res, err := r.db.ExecContext(ctx, query, secret, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	query := `UPDATE users SET password_hash = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, passwordHash, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Refresh-token record methods

func (r *SQLiteRepository) CreateUserToken(ctx context.Context, token *models.UserToken) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO user_tokens (id, user_id, token, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		token.ID,
		token.UserID,
		token.Token,
		token.CreatedAt,
		token.ExpiresAt,
	)
	return err
}

func (r *SQLiteRepository) GetUserToken(ctx context.Context, userID, token string) (*models.UserToken, error) {
	var record models.UserToken
	query := `SELECT * FROM user_tokens WHERE user_id = ? AND token = ? LIMIT 1`

	err := r.db.GetContext(ctx, &record, query, userID, token)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteUserTokensByToken removes every record carrying the token value.
// Deleting zero rows is not an error; logout always succeeds.
func (r *SQLiteRepository) DeleteUserTokensByToken(ctx context.Context, token string) error {
	query := `DELETE FROM user_tokens WHERE token = ?`
	_, err := r.db.ExecContext(ctx, query, token)
	return err
}

// Password reset methods

func (r *SQLiteRepository) CreatePasswordReset(ctx context.Context, reset *models.PasswordReset) error {
	if reset.ID == "" {
		reset.ID = uuid.New().String()
	}
	if reset.CreatedAt.IsZero() {
		reset.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO password_resets (id, email, token, created_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		reset.ID,
		reset.Email,
		reset.Token,
		reset.CreatedAt,
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint") {
		return ErrDuplicate
	}
	return err
}

func (r *SQLiteRepository) GetPasswordResetByToken(ctx context.Context, token string) (*models.PasswordReset, error) {
	var reset models.PasswordReset
	query := `SELECT * FROM password_resets WHERE token = ?`

	err := r.db.GetContext(ctx, &reset, query, token)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reset, nil
}
