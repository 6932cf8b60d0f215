package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers malformed tokens, bad signatures, and tokens
	// presented with the wrong class (refresh where access is expected or
	// vice versa).
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token's expiry has passed.
	ErrExpiredToken = errors.New("token expired")
)

// Claims is the JWT payload for both token classes. Refresh distinguishes
// refresh tokens from access tokens in addition to the separate secrets.
type Claims struct {
	jwt.RegisteredClaims
	UserID  string `json:"uid"`
	Refresh bool   `json:"refresh,omitempty"` // true = refresh token
}

// TokenCodec signs and verifies access and refresh tokens. The two classes
// use distinct secrets and distinct lifetimes; both are injected at
// construction rather than read from process-wide state.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenCodec creates a codec from the configured secrets and lifetimes.
func NewTokenCodec(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*TokenCodec, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, fmt.Errorf("jwt secrets are required")
	}
	return &TokenCodec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (c *TokenCodec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccessToken returns a signed JWT access token for the user.
func (c *TokenCodec) IssueAccessToken(userID string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
			ID:        fmt.Sprintf("%d", now.UnixNano()),
		},
		UserID: userID,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(c.accessSecret)
}

// IssueRefreshToken returns a signed JWT refresh token.
func (c *TokenCodec) IssueRefreshToken(userID string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.refreshTTL)),
			ID:        fmt.Sprintf("refresh-%d", now.UnixNano()),
		},
		UserID:  userID,
		Refresh: true,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(c.refreshSecret)
}

// VerifyAccessToken validates an access token and returns the user id.
func (c *TokenCodec) VerifyAccessToken(tokenString string) (string, error) {
	claims, err := c.verify(tokenString, c.accessSecret)
	if err != nil {
		return "", err
	}
	if claims.Refresh {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

// VerifyRefreshToken validates a refresh token and returns the user id.
// No store lookup happens here; record existence is checked one layer up.
func (c *TokenCodec) VerifyRefreshToken(tokenString string) (string, error) {
	claims, err := c.verify(tokenString, c.refreshSecret)
	if err != nil {
		return "", err
	}
	if !claims.Refresh {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

func (c *TokenCodec) verify(tokenString string, secret []byte) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
