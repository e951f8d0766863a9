package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/raicesdev/bienesraices/internal/email"
	"github.com/raicesdev/bienesraices/internal/krypto"
)

// AccountFilter is used to filter accounts.
// Returned accounts must match all the provided fields.
// If a field is empty or nil, it's ignored.
type AccountFilter struct {
	IDs       []uuid.UUID
	Emails    []email.Address
	Tokens    []krypto.Token
	Confirmed *bool
}

// Store provides access to the account store.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)

	// FindAccounts queries outside of a transaction, suitable for reads
	// on the hot authentication path.
	FindAccounts(ctx context.Context, filter *AccountFilter) ([]Account, error)
}

// Tx is a transaction. If an error occurs on any of the methods, the
// transaction is considered to have failed and should be rolled back.
// Tx is not safe for concurrent use.
type Tx interface {
	Commit() error
	Rollback() error

	CreateAccount(a *Account) error
	UpdateAccount(a *Account) error
	FindAccounts(filter *AccountFilter) ([]Account, error)

	// RedeemConfirmToken marks the account holding token as confirmed and
	// clears the token. Both happen in a single conditional update, so two
	// requests racing to redeem the same token cannot both succeed.
	// It returns errorz.ErrNotFound if no account holds the token.
	RedeemConfirmToken(token krypto.Token, now time.Time) (Account, error)

	// RedeemResetToken overwrites the password hash of the account holding
	// token and clears the token, with the same atomicity guarantee as
	// RedeemConfirmToken.
	RedeemResetToken(token krypto.Token, hash krypto.Argon2Hash, now time.Time) (Account, error)
}
