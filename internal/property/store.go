package property

import (
	"context"

	"github.com/google/uuid"
)

// Filter is used to filter properties.
// Returned properties must match all the provided fields.
// If a field is empty or nil, it's ignored.
type Filter struct {
	IDs       []uuid.UUID
	OwnerIDs  []uuid.UUID
	Published *bool

	// Limit and Offset paginate the result. A zero Limit returns all rows.
	Limit  int
	Offset int
}

// MessageFilter is used to filter messages.
type MessageFilter struct {
	PropertyIDs []uuid.UUID
}

// Store provides access to the property store.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)

	// FindProperties and CountProperties query on the read pool, outside
	// of a transaction.
	FindProperties(ctx context.Context, filter *Filter) ([]Property, error)
	CountProperties(ctx context.Context, filter *Filter) (int, error)

	// FindMessages returns messages with the sender name joined in,
	// newest first.
	FindMessages(ctx context.Context, filter *MessageFilter) ([]Message, error)
	CountMessages(ctx context.Context, filter *MessageFilter) (int, error)
}

// Tx is a transaction. If an error occurs on any of the methods, the
// transaction is considered to have failed and should be rolled back.
// Tx is not safe for concurrent use.
type Tx interface {
	Commit() error
	Rollback() error

	CreateProperty(p *Property) error
	UpdateProperty(p *Property) error
	DeleteProperty(id uuid.UUID) error
	FindProperties(filter *Filter) ([]Property, error)

	CreateMessage(m *Message) error
}
