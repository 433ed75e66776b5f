package service

import (
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	apperrors "github.com/allisson/btsguard/internal/errors"
)

type totpService struct {
	issuer string
}

// NewTOTPService creates a TOTP service issuing secrets under issuer.
func NewTOTPService(issuer string) TOTPService {
	return &totpService{issuer: issuer}
}

// Generate creates a 6-digit, 30-second SHA1 secret compatible with common authenticator apps.
func (t *totpService) Generate(account string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      t.issuer,
		AccountName: account,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate TOTP key")
	}
	return key.Secret(), key.URL(), nil
}

// Validate checks the code for the current 30-second window.
func (t *totpService) Validate(code, secret string) bool {
	if code == "" || secret == "" {
		return false
	}
	return totp.Validate(code, secret)
}
