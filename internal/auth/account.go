package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/raicesdev/bienesraices/internal/email"
	"github.com/raicesdev/bienesraices/internal/krypto"
)

// Account contains the data for a registered user of the site.
type Account struct {
	ID           uuid.UUID
	Name         string
	Email        email.Address
	PasswordHash krypto.Argon2Hash
	// Confirmed becomes true exactly once, when the confirmation token
	// is redeemed. Unconfirmed accounts cannot authenticate.
	Confirmed bool
	// PendingToken is non-nil while the account awaits email confirmation
	// or a password reset is in flight. Redeeming the token clears it.
	PendingToken *krypto.Token
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Credentials are used to authenticate an account.
type Credentials struct {
	Email    email.Address
	Password Password
}

// Registration contains the data needed to register a new account.
type Registration struct {
	Name     string
	Email    email.Address
	Password Password
}
