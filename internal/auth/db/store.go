package db

import (
	"context"
	"database/sql"

	"github.com/raicesdev/bienesraices/internal/auth"
	"github.com/raicesdev/bienesraices/internal/db"
)

// Store is responsible for interacting with the accounts database.
//
// It holds two connection pools: writes go through w, which is expected to
// be limited to a single connection for sqlite, reads outside a transaction
// go through r.
type Store struct {
	w *sql.DB
	r *sql.DB
}

// New creates a new Store.
func New(w, r *sql.DB) *Store {
	return &Store{
		w: w,
		r: r,
	}
}

// BeginTx starts a new write transaction.
func (s *Store) BeginTx(ctx context.Context) (auth.Tx, error) {
	tx, err := s.w.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{
		tx: tx,
	}, nil
}

// FindAccounts queries for accounts on the read pool.
// It returns an empty slice if no accounts match the filter.
func (s *Store) FindAccounts(ctx context.Context, filter *auth.AccountFilter) ([]auth.Account, error) {
	return selectAccounts(&db.Query{}, func(query string, params ...any) (*sql.Rows, error) {
		return s.r.QueryContext(ctx, query, params...)
	}, filter)
}
