package db

import (
	"database/sql"
	"time"

	"github.com/raicesdev/bienesraices/internal/auth"
	"github.com/raicesdev/bienesraices/internal/db"
	"github.com/raicesdev/bienesraices/internal/krypto"
)

type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// CreateAccount creates an account in the database.
// The caller is expected to have set the ID and timestamps.
func (t *Tx) CreateAccount(a *auth.Account) error {
	return insertAccount(&db.Query{}, t.tx.Exec, a)
}

// UpdateAccount updates an account in the database.
// It returns errorz.ErrNotFound if no account is found.
func (t *Tx) UpdateAccount(a *auth.Account) error {
	return updateAccount(&db.Query{}, t.tx.Exec, a)
}

// FindAccounts queries for accounts based on the provided filter.
// It returns an empty slice if no accounts are found.
func (t *Tx) FindAccounts(filter *auth.AccountFilter) ([]auth.Account, error) {
	return selectAccounts(&db.Query{}, t.tx.Query, filter)
}

// RedeemConfirmToken confirms the account holding token and clears the token
// in a single conditional update.
// It returns errorz.ErrNotFound if no account holds the token.
func (t *Tx) RedeemConfirmToken(token krypto.Token, now time.Time) (auth.Account, error) {
	return redeemToken(t.tx, token, now, func(q *db.Query) {
		q.Unsafe(`confirmed = `)
		q.Param(true)
	}, func(a *auth.Account) {
		a.Confirmed = true
	})
}

// RedeemResetToken overwrites the password hash of the account holding token
// and clears the token in a single conditional update.
// It returns errorz.ErrNotFound if no account holds the token.
func (t *Tx) RedeemResetToken(token krypto.Token, hash krypto.Argon2Hash, now time.Time) (auth.Account, error) {
	return redeemToken(t.tx, token, now, func(q *db.Query) {
		q.Unsafe(`password_hash = `)
		q.Param(hash.String())
	}, func(a *auth.Account) {
		a.PasswordHash = hash
	})
}
