package auth

import (
	"fmt"

	"github.com/pquerna/otp/totp"
)

// TOTPEngine generates enrollment secrets and verifies time-based codes.
// The issuer is the name shown next to the account in authenticator apps.
type TOTPEngine struct {
	Issuer string
}

// GenerateSecret returns a fresh base32 secret and the otpauth:// provisioning
// URL binding it to the given account email. The secret is not persisted here;
// enrollment is finalized only after the first code verifies.
func (e *TOTPEngine) GenerateSecret(email string) (secret, otpauthURL string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.Issuer,
		AccountName: email,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate TOTP key: %w", err)
	}
	return key.Secret(), key.URL(), nil
}

// Verify checks a submitted code against the secret for the current 30-second
// window with the library's default skew tolerance.
func (e *TOTPEngine) Verify(secret, code string) bool {
	return totp.Validate(code, secret)
}
