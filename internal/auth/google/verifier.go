// Package google validates Google ID tokens for the federated login flow.
// Issuer and audience checks live here; callers treat a successful
// verification as a trusted identity.
package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

const issuerURL = "https://accounts.google.com"

// ErrVerification is returned for any token that fails validation.
var ErrVerification = errors.New("google token verification failed")

// Identity is the profile extracted from a verified ID token.
type Identity struct {
	Email      string
	GivenName  string
	FamilyName string
}

// Verifier validates Google-issued ID tokens against the configured OAuth
// client id.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewVerifier performs OIDC discovery against Google and returns a Verifier
// that accepts tokens minted for clientID.
func NewVerifier(ctx context.Context, clientID string) (*Verifier, error) {
	if clientID == "" {
		return nil, fmt.Errorf("google client id is required")
	}
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	return &Verifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// Verify checks the raw ID token's signature, issuer, audience, and expiry,
// and returns the embedded profile claims.
func (v *Verifier) Verify(ctx context.Context, rawIDToken string) (*Identity, error) {
	idToken, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, ErrVerification
	}
	var claims struct {
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, ErrVerification
	}
	if claims.Email == "" {
		return nil, ErrVerification
	}
	return &Identity{
		Email:      claims.Email,
		GivenName:  claims.GivenName,
		FamilyName: claims.FamilyName,
	}, nil
}
