package db

import (
	"context"
	"database/sql"

	"github.com/raicesdev/bienesraices/internal/db"
	"github.com/raicesdev/bienesraices/internal/property"
)

// Store is responsible for interacting with the properties database.
//
// Like the accounts store it holds two pools: writes go through w, reads
// outside a transaction go through r.
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
func (s *Store) BeginTx(ctx context.Context) (property.Tx, error) {
	tx, err := s.w.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{
		tx: tx,
	}, nil
}

// FindProperties queries for properties on the read pool.
func (s *Store) FindProperties(ctx context.Context, filter *property.Filter) ([]property.Property, error) {
	return selectProperties(&db.Query{}, func(query string, params ...any) (*sql.Rows, error) {
		return s.r.QueryContext(ctx, query, params...)
	}, filter)
}

// CountProperties counts properties matching the filter on the read pool.
func (s *Store) CountProperties(ctx context.Context, filter *property.Filter) (int, error) {
	return countProperties(&db.Query{}, func(query string, params ...any) *sql.Row {
		return s.r.QueryRowContext(ctx, query, params...)
	}, filter)
}

// FindMessages queries for messages on the read pool, sender names joined
// in, newest first.
func (s *Store) FindMessages(ctx context.Context, filter *property.MessageFilter) ([]property.Message, error) {
	return selectMessages(&db.Query{}, func(query string, params ...any) (*sql.Rows, error) {
		return s.r.QueryContext(ctx, query, params...)
	}, filter)
}

// CountMessages counts messages matching the filter on the read pool.
func (s *Store) CountMessages(ctx context.Context, filter *property.MessageFilter) (int, error) {
	return countMessages(&db.Query{}, func(query string, params ...any) *sql.Row {
		return s.r.QueryRowContext(ctx, query, params...)
	}, filter)
}
