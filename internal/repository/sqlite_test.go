package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/legido/auth-backend/internal/models"
	"github.com/legido/auth-backend/migrations"
)

func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	migrationSQL, err := migrations.FS.ReadFile("001_initial_schema.sql")
	if err != nil {
		t.Fatalf("Failed to read migrations: %v", err)
	}
	if err := repo.RunMigrations(string(migrationSQL)); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return repo
}

func newTestUser(email string) *models.User {
	return &models.User{
		Email:        email,
		FirstName:    "Alice",
		LastName:     "Smith",
		PasswordHash: "$2a$12$fakefakefakefakefakefake",
	}
}

func TestCreateUser_And_Lookups(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	user := newTestUser("alice@example.com")
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.ID == "" {
		t.Fatal("Expected CreateUser to assign an id")
	}

	byEmail, err := repo.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if byEmail.ID != user.ID || byEmail.FirstName != "Alice" {
		t.Errorf("Unexpected user: %+v", byEmail)
	}

	byID, err := repo.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if byID.Email != "alice@example.com" {
		t.Errorf("Unexpected email: %s", byID.Email)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if err := repo.CreateUser(ctx, newTestUser("alice@example.com")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	err := repo.CreateUser(ctx, newTestUser("alice@example.com"))
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if _, err := repo.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetUserByID(ctx, "missing-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

// An enrolled secret must be immutable: the update only fills an empty slot.
func TestSetUserTFASecret_OnlyOnce(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	user := newTestUser("alice@example.com")
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := repo.SetUserTFASecret(ctx, user.ID, "FIRSTSECRET"); err != nil {
		t.Fatalf("SetUserTFASecret: %v", err)
	}

	err := repo.SetUserTFASecret(ctx, user.ID, "SECONDSECRET")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected second enrollment to fail with ErrNotFound, got %v", err)
	}

	got, err := repo.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.TFASecret != "FIRSTSECRET" {
		t.Errorf("Expected original secret to survive, got %q", got.TFASecret)
	}
}

func TestUpdateUserPassword(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	user := newTestUser("alice@example.com")
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := repo.UpdateUserPassword(ctx, user.ID, "new-hash"); err != nil {
		t.Fatalf("UpdateUserPassword: %v", err)
	}
	got, _ := repo.GetUserByID(ctx, user.ID)
	if got.PasswordHash != "new-hash" {
		t.Errorf("Expected updated hash, got %q", got.PasswordHash)
	}

	if err := repo.UpdateUserPassword(ctx, "missing-id", "hash"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestUserTokens_CreateGetDelete(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	user := newTestUser("alice@example.com")
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	record := &models.UserToken{
		UserID:    user.ID,
		Token:     "refresh-jwt-value",
		ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}
	if err := repo.CreateUserToken(ctx, record); err != nil {
		t.Fatalf("CreateUserToken: %v", err)
	}

	got, err := repo.GetUserToken(ctx, user.ID, "refresh-jwt-value")
	if err != nil {
		t.Fatalf("GetUserToken: %v", err)
	}
	if got.UserID != user.ID {
		t.Errorf("Unexpected record: %+v", got)
	}
	if got.IsExpired() {
		t.Error("Expected fresh record to not be expired")
	}

	// Wrong user id must not find the record.
	if _, err := repo.GetUserToken(ctx, "other-user", "refresh-jwt-value"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for wrong user, got %v", err)
	}

	if err := repo.DeleteUserTokensByToken(ctx, "refresh-jwt-value"); err != nil {
		t.Fatalf("DeleteUserTokensByToken: %v", err)
	}
	if _, err := repo.GetUserToken(ctx, user.ID, "refresh-jwt-value"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected record gone after delete, got %v", err)
	}

	// Deleting again is not an error.
	if err := repo.DeleteUserTokensByToken(ctx, "refresh-jwt-value"); err != nil {
		t.Errorf("Expected idempotent delete, got %v", err)
	}
}

func TestPasswordResets(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	reset := &models.PasswordReset{Email: "alice@example.com", Token: "abc123xyz0"}
	if err := repo.CreatePasswordReset(ctx, reset); err != nil {
		t.Fatalf("CreatePasswordReset: %v", err)
	}

	got, err := repo.GetPasswordResetByToken(ctx, "abc123xyz0")
	if err != nil {
		t.Fatalf("GetPasswordResetByToken: %v", err)
	}
	if got.Email != "alice@example.com" {
		t.Errorf("Unexpected reset record: %+v", got)
	}

	// Token values are unique across all requests.
	dup := &models.PasswordReset{Email: "bob@example.com", Token: "abc123xyz0"}
	if err := repo.CreatePasswordReset(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate for reused token, got %v", err)
	}

	if _, err := repo.GetPasswordResetByToken(ctx, "unknown"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
