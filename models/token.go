package models

import "time"

type TokenPurpose string

const (
	TokenPurposeMagicLink     TokenPurpose = "magic_link"
	TokenPurposeOTP           TokenPurpose = "otp"
	TokenPurposePasswordReset TokenPurpose = "password_reset"
)

// AuthToken is a single-use credential: a magic-link token, an emailed
// one-time code, or a password reset token. Consumed tokens stay in the
// table until the expiry sweep removes them.
type AuthToken struct {
	ID         int          `json:"id"`
	UserID     int          `json:"user_id"`
	Token      string       `json:"-"`
	Purpose    TokenPurpose `json:"purpose"`
	Attempts   int          `json:"-"`
	ExpiresAt  time.Time    `json:"expires_at"`
	ConsumedAt *time.Time   `json:"consumed_at,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Session is one refresh-token grant. The access token is a signed JWT and
// is not stored.
type Session struct {
	ID           int       `json:"id"`
	UserID       int       `json:"user_id"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}
