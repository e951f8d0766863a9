package db

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/raicesdev/bienesraices/internal/db"
	"github.com/raicesdev/bienesraices/internal/property"
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

// CreateProperty creates a property in the database.
// The caller is expected to have set the ID and timestamps.
func (t *Tx) CreateProperty(p *property.Property) error {
	return insertProperty(&db.Query{}, t.tx.Exec, p)
}

// UpdateProperty updates a property in the database.
// It returns errorz.ErrNotFound if no property is found.
func (t *Tx) UpdateProperty(p *property.Property) error {
	return updateProperty(&db.Query{}, t.tx.Exec, p)
}

// DeleteProperty deletes a property and, via the schema, its messages.
// It returns errorz.ErrNotFound if no property is found.
func (t *Tx) DeleteProperty(id uuid.UUID) error {
	return deleteProperty(&db.Query{}, t.tx.Exec, id)
}

// FindProperties queries for properties based on the provided filter.
func (t *Tx) FindProperties(filter *property.Filter) ([]property.Property, error) {
	return selectProperties(&db.Query{}, t.tx.Query, filter)
}

// CreateMessage creates a message in the database.
func (t *Tx) CreateMessage(m *property.Message) error {
	return insertMessage(&db.Query{}, t.tx.Exec, m)
}
