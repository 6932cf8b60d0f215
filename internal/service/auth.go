package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/legido/auth-backend/internal/auth"
	"github.com/legido/auth-backend/internal/auth/google"
	"github.com/legido/auth-backend/internal/mailer"
	"github.com/legido/auth-backend/internal/models"
	"github.com/legido/auth-backend/internal/pkg/metrics"
	"github.com/legido/auth-backend/internal/repository"
)

var (
	// ErrEmailTaken is returned when registering with an email that already has an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrPasswordMismatch is returned when password and confirmation differ.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrUserNotFound is returned when no account exists for the given email.
	ErrUserNotFound = errors.New("user not found")
	// ErrWrongPassword is returned when the password does not match the stored hash.
	ErrWrongPassword = errors.New("invalid credentials")
	// ErrUnauthorized is returned for invalid, expired, or revoked credentials.
	ErrUnauthorized = errors.New("unauthenticated")
	// ErrInvalidResetToken is returned when a reset token matches no record.
	ErrInvalidResetToken = errors.New("invalid reset token")
)

const resetTokenLength = 10

// TokenPair is a freshly issued access/refresh token set.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult is the outcome of the password stage of login. Secret and
// OTPAuthURL are set only for accounts that still have to enroll an
// authenticator; nothing is persisted until the first code verifies.
type LoginResult struct {
	UserID     string
	Secret     string
	OTPAuthURL string
}

// IdentityVerifier validates a federated ID token and extracts the profile.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*google.Identity, error)
}

// AuthService implements the authentication flows: registration, two-stage
// login with TOTP, token refresh, logout, password reset, and federated login.
type AuthService interface {
	Register(ctx context.Context, firstName, lastName, email, password, passwordConfirm string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	VerifyTwoFactor(ctx context.Context, userID, code, secret string) (*TokenPair, error)
	CurrentUser(ctx context.Context, userID string) (*models.User, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password, passwordConfirm string) error
	GoogleLogin(ctx context.Context, rawIDToken string) (*TokenPair, error)
}

type authService struct {
	store        repository.Store
	codec        *auth.TokenCodec
	totp         *auth.TOTPEngine
	mail         mailer.Mailer
	verifier     IdentityVerifier // nil when federated login is not configured
	resetURLBase string
}

func NewAuthService(store repository.Store, codec *auth.TokenCodec, totp *auth.TOTPEngine, mail mailer.Mailer, verifier IdentityVerifier, resetURLBase string) AuthService {
	return &authService{
		store:        store,
		codec:        codec,
		totp:         totp,
		mail:         mail,
		verifier:     verifier,
		resetURLBase: resetURLBase,
	}
}

func (s *authService) Register(ctx context.Context, firstName, lastName, email, password, passwordConfirm string) (*models.User, error) {
	// An existing account wins over a password mismatch when both apply.
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if password != passwordConfirm {
		return nil, ErrPasswordMismatch
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	metrics.RegistrationsTotal.Inc()
	log.Printf("[AUTH] registered user %s", user.ID)
	return user, nil
}

// Login checks the password and prepares the TOTP stage. For accounts without
// an enrolled authenticator it generates a fresh secret and provisioning URL;
// the secret is not persisted until VerifyTwoFactor accepts a code for it.
func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.LoginAttemptsTotal.WithLabelValues("password", "unknown_user").Inc()
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if auth.CheckPassword(user.PasswordHash, password) != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("password", "wrong_password").Inc()
		return nil, ErrWrongPassword
	}

	result := &LoginResult{UserID: user.ID}
	if !user.TwoFactorEnrolled() {
		secret, url, err := s.totp.GenerateSecret(user.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to generate TOTP secret: %w", err)
		}
		result.Secret = secret
		result.OTPAuthURL = url
	}

	metrics.LoginAttemptsTotal.WithLabelValues("password", "success").Inc()
	return result, nil
}

// VerifyTwoFactor completes login. Enrolled accounts are checked against the
// stored secret and any caller-supplied secret is ignored; unenrolled accounts
// are checked against the supplied secret, which is persisted on first success.
func (s *authService) VerifyTwoFactor(ctx context.Context, userID, code, secret string) (*TokenPair, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	enrolling := !user.TwoFactorEnrolled()
	if !enrolling {
		secret = user.TFASecret
	}
	if secret == "" || !s.totp.Verify(secret, code) {
		metrics.LoginAttemptsTotal.WithLabelValues("totp", "failure").Inc()
		return nil, ErrUnauthorized
	}

	if enrolling {
		if err := s.store.SetUserTFASecret(ctx, user.ID, secret); err != nil {
			// Lost the race against a concurrent enrollment; the other
			// secret won and this code no longer proves possession of it.
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrUnauthorized
			}
			return nil, fmt.Errorf("failed to store TOTP secret: %w", err)
		}
		log.Printf("[AUTH] user %s enrolled two-factor", user.ID)
	}

	pair, err := s.issueTokenPair(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	metrics.LoginAttemptsTotal.WithLabelValues("totp", "success").Inc()
	return pair, nil
}

func (s *authService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}

// Refresh exchanges a valid refresh token for a new access token. The token
// must both carry a valid signature and still have a live store record;
// logout removes the record, so a logged-out token fails here even before it
// expires.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	userID, err := s.codec.VerifyRefreshToken(refreshToken)
	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues("invalid_token").Inc()
		return "", ErrUnauthorized
	}

	record, err := s.store.GetUserToken(ctx, userID, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.TokenRefreshesTotal.WithLabelValues("revoked").Inc()
			return "", ErrUnauthorized
		}
		return "", fmt.Errorf("failed to look up refresh token: %w", err)
	}
	if record.IsExpired() {
		metrics.TokenRefreshesTotal.WithLabelValues("expired").Inc()
		return "", ErrUnauthorized
	}

	access, err := s.codec.IssueAccessToken(userID)
	if err != nil {
		return "", fmt.Errorf("failed to issue access token: %w", err)
	}
	metrics.TokenRefreshesTotal.WithLabelValues("success").Inc()
	return access, nil
}

// Logout revokes the refresh token by deleting its store records. Unknown or
// empty tokens are not an error; logout is idempotent.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.store.DeleteUserTokensByToken(ctx, refreshToken); err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return nil
}

// ForgotPassword creates a reset record and emails the reset link. Callers
// must not reveal to the client whether the email had an account.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	token, err := generateResetToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	reset := &models.PasswordReset{Email: email, Token: token}
	if err := s.store.CreatePasswordReset(ctx, reset); err != nil {
		// A 10-char random collision is vanishingly rare; one retry covers it.
		if !errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("failed to create password reset: %w", err)
		}
		if token, err = generateResetToken(); err != nil {
			return fmt.Errorf("failed to generate reset token: %w", err)
		}
		reset = &models.PasswordReset{Email: email, Token: token}
		if err := s.store.CreatePasswordReset(ctx, reset); err != nil {
			return fmt.Errorf("failed to create password reset: %w", err)
		}
	}

	link := s.resetURLBase + "/" + token
	if err := s.mail.SendPasswordReset(ctx, email, link); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	metrics.PasswordResetsTotal.WithLabelValues("requested").Inc()
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, token, password, passwordConfirm string) error {
	if password != passwordConfirm {
		return ErrPasswordMismatch
	}

	reset, err := s.store.GetPasswordResetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to look up reset token: %w", err)
	}

	user, err := s.store.GetUserByEmail(ctx, reset.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.store.UpdateUserPassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	metrics.PasswordResetsTotal.WithLabelValues("completed").Inc()
	log.Printf("[AUTH] password reset completed for user %s", user.ID)
	return nil
}

// GoogleLogin verifies a Google ID token and signs the user in, creating the
// account on first login. Federated accounts skip the TOTP stage.
func (s *authService) GoogleLogin(ctx context.Context, rawIDToken string) (*TokenPair, error) {
	if s.verifier == nil {
		return nil, ErrUnauthorized
	}

	identity, err := s.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("google", "failure").Inc()
		return nil, ErrUnauthorized
	}

	user, err := s.store.GetUserByEmail(ctx, identity.Email)
	if errors.Is(err, repository.ErrNotFound) {
		user, err = s.createFederatedUser(ctx, identity, rawIDToken)
	}
	if err != nil {
		return nil, err
	}

	pair, err := s.issueTokenPair(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	metrics.LoginAttemptsTotal.WithLabelValues("google", "success").Inc()
	return pair, nil
}

// createFederatedUser registers an account for a first-time federated login.
// The password is a bcrypt hash of the token digest, never of a value the
// user could type, so the password flow cannot be entered by guessing.
func (s *authService) createFederatedUser(ctx context.Context, identity *google.Identity, rawIDToken string) (*models.User, error) {
	digest := sha256.Sum256([]byte(rawIDToken))
	hash, err := auth.HashPassword(hex.EncodeToString(digest[:]))
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        identity.Email,
		FirstName:    identity.GivenName,
		LastName:     identity.FamilyName,
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		// Concurrent first logins for the same account: the loser re-reads.
		if errors.Is(err, repository.ErrDuplicate) {
			return s.store.GetUserByEmail(ctx, identity.Email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	metrics.RegistrationsTotal.Inc()
	log.Printf("[AUTH] registered federated user %s", user.ID)
	return user, nil
}

// issueTokenPair mints both tokens and persists the refresh token record that
// later authorizes Refresh and is deleted by Logout.
func (s *authService) issueTokenPair(ctx context.Context, userID string) (*TokenPair, error) {
	access, err := s.codec.IssueAccessToken(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	refresh, err := s.codec.IssueRefreshToken(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	record := &models.UserToken{
		UserID:    userID,
		Token:     refresh,
		ExpiresAt: time.Now().Add(s.codec.RefreshTTL()),
	}
	if err := s.store.CreateUserToken(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

const resetTokenCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

// generateResetToken returns a short random token for the emailed reset link.
func generateResetToken() (string, error) {
	b := make([]byte, resetTokenLength)
	charsetLen := big.NewInt(int64(len(resetTokenCharset)))
	for i := range b {
		n, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", err
		}
		b[i] = resetTokenCharset[n.Int64()]
	}
	return string(b), nil
}
