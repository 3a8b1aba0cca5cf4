package auth

import (
	"time"

	"github.com/pquerna/otp/totp"

	apperrors "fyers-orb-bot/internal/errors"
)

// TOTPNow generates the current TOTP code for the headless re-login
// flow. Requires totp_secret in credentials.
func (s *Service) TOTPNow() (string, error) {
	if s.creds.TOTPSecret == "" {
		return "", apperrors.Wrap(apperrors.ErrNotAuthenticated, "totp_secret not configured")
	}
	return totp.GenerateCode(s.creds.TOTPSecret, time.Now())
}
