package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/raicesdev/bienesraices/internal/auth"
	"github.com/raicesdev/bienesraices/internal/db"
	"github.com/raicesdev/bienesraices/internal/email"
	"github.com/raicesdev/bienesraices/internal/errorz"
	"github.com/raicesdev/bienesraices/internal/krypto"
)

type execFunc func(query string, params ...any) (sql.Result, error)
type queryFunc func(query string, params ...any) (*sql.Rows, error)

func insertAccount(q *db.Query, ef execFunc, a *auth.Account) error {
	if a.ID == uuid.Nil {
		return fmt.Errorf("zero uuid provided: %w", errorz.ErrConstraintViolated)
	}

	q.Unsafe(`INSERT INTO accounts (id, name, email, password_hash, confirmed, pending_token, created_at, updated_at) VALUES (`)
	q.Params(a.ID, a.Name, string(a.Email), a.PasswordHash.String(), a.Confirmed, tokenParam(a.PendingToken), a.CreatedAt, a.UpdatedAt)
	q.Unsafe(`)`)

	s, params := q.Get()

	_, err := ef(s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	return nil
}

func updateAccount(q *db.Query, ef execFunc, a *auth.Account) error {
	q.Unsafe(`UPDATE accounts SET `)

	q.Unsafe(`name = `)
	q.Param(a.Name)

	q.Unsafe(`, email = `)
	q.Param(string(a.Email))

	q.Unsafe(`, password_hash = `)
	q.Param(a.PasswordHash.String())

	q.Unsafe(`, confirmed = `)
	q.Param(a.Confirmed)

	q.Unsafe(`, pending_token = `)
	q.Param(tokenParam(a.PendingToken))

	q.Unsafe(`, created_at = `)
	q.Param(a.CreatedAt)

	q.Unsafe(`, updated_at = `)
	q.Param(a.UpdatedAt)

	q.Unsafe(` WHERE id = `)
	q.Param(a.ID)

	s, params := q.Get()

	result, err := ef(s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errorz.MapDBErr(err)
	}

	if rows == 0 {
		return fmt.Errorf("account not found: %w", errorz.ErrNotFound)
	}

	return nil
}

func selectAccounts(q *db.Query, qf queryFunc, f *auth.AccountFilter) ([]auth.Account, error) {
	q.Unsafe(`SELECT id, name, email, password_hash, confirmed, pending_token, created_at, updated_at FROM accounts WHERE 1=1 `)

	if len(f.IDs) > 0 {
		q.Unsafe(`AND id IN (`)
		q.Params(anySlice(f.IDs)...)
		q.Unsafe(`) `)
	}

	if len(f.Emails) > 0 {
		q.Unsafe(`AND email IN (`)
		for i, addr := range f.Emails {
			if i > 0 {
				q.Unsafe(`, `)
			}
			q.Param(string(addr))
		}
		q.Unsafe(`) `)
	}

	if len(f.Tokens) > 0 {
		q.Unsafe(`AND pending_token IN (`)
		for i, token := range f.Tokens {
			if i > 0 {
				q.Unsafe(`, `)
			}
			q.Param(token.String())
		}
		q.Unsafe(`) `)
	}

	if f.Confirmed != nil {
		q.Unsafe(`AND confirmed = `)
		q.Param(*f.Confirmed)
	}

	q.Unsafe(`ORDER BY created_at ASC, id ASC`)

	s, params := q.Get()

	rows, err := qf(s, params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]auth.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

// redeemToken consumes the pending token of the account that holds it.
//
// The set func writes the extra SET fragment, apply mirrors that change on
// the returned account. The UPDATE is conditional on the token still being
// present, so concurrent redemptions of the same token cannot both succeed.
func redeemToken(tx *sql.Tx, token krypto.Token, now time.Time, set func(q *db.Query), apply func(a *auth.Account)) (auth.Account, error) {
	accounts, err := selectAccounts(&db.Query{}, tx.Query, &auth.AccountFilter{
		Tokens: []krypto.Token{token},
	})
	if err != nil {
		return auth.Account{}, err
	}

	if len(accounts) != 1 {
		return auth.Account{}, fmt.Errorf("no account holds token: %w", errorz.ErrNotFound)
	}

	account := accounts[0]

	q := &db.Query{}
	q.Unsafe(`UPDATE accounts SET `)
	set(q)
	q.Unsafe(`, pending_token = NULL, updated_at = `)
	q.Param(now)
	q.Unsafe(` WHERE id = `)
	q.Param(account.ID)
	q.Unsafe(` AND pending_token = `)
	q.Param(token.String())

	s, params := q.Get()

	result, err := tx.Exec(s, params...)
	if err != nil {
		return auth.Account{}, errorz.MapDBErr(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return auth.Account{}, errorz.MapDBErr(err)
	}

	if rows == 0 {
		return auth.Account{}, fmt.Errorf("token already consumed: %w", errorz.ErrNotFound)
	}

	account.PendingToken = nil
	account.UpdatedAt = now
	apply(&account)

	return account, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (auth.Account, error) {
	var (
		a        auth.Account
		rawEmail string
		rawToken sql.NullString
	)

	err := row.Scan(&a.ID, &a.Name, &rawEmail, &a.PasswordHash, &a.Confirmed, &rawToken, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return auth.Account{}, errorz.MapDBErr(err)
	}

	a.Email, err = email.ParseAddress(rawEmail)
	if err != nil {
		return auth.Account{}, err
	}

	if rawToken.Valid {
		token, err := krypto.ParseToken(rawToken.String)
		if err != nil {
			return auth.Account{}, err
		}
		a.PendingToken = &token
	}

	return a, nil
}

// tokenParam maps an optional token to its hex representation or NULL.
func tokenParam(t *krypto.Token) any {
	if t == nil {
		return nil
	}
	return t.String()
}

func anySlice[T any](s []T) []any {
	out := make([]any, 0, len(s))
	for _, v := range s {
		out = append(out, v)
	}
	return out
}
