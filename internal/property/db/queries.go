package db

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/raicesdev/bienesraices/internal/db"
	"github.com/raicesdev/bienesraices/internal/errorz"
	"github.com/raicesdev/bienesraices/internal/property"
)

type execFunc func(query string, params ...any) (sql.Result, error)
type queryFunc func(query string, params ...any) (*sql.Rows, error)
type rowFunc func(query string, params ...any) *sql.Row

func insertProperty(q *db.Query, ef execFunc, p *property.Property) error {
	if p.ID == uuid.Nil {
		return fmt.Errorf("zero uuid provided: %w", errorz.ErrConstraintViolated)
	}

	q.Unsafe(`INSERT INTO properties (id, owner_id, title, description, category_id, price_id, rooms, parking, bathrooms, street, lat, lng, image, published, created_at, updated_at) VALUES (`)
	q.Params(p.ID, p.OwnerID, p.Title, p.Description, p.CategoryID, p.PriceID, p.Rooms, p.Parking, p.Bathrooms, p.Street, p.Lat, p.Lng, p.Image, p.Published, p.CreatedAt, p.UpdatedAt)
	q.Unsafe(`)`)

	s, params := q.Get()

	_, err := ef(s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	return nil
}

func updateProperty(q *db.Query, ef execFunc, p *property.Property) error {
	q.Unsafe(`UPDATE properties SET `)

	q.Unsafe(`title = `)
	q.Param(p.Title)

	q.Unsafe(`, description = `)
	q.Param(p.Description)

	q.Unsafe(`, category_id = `)
	q.Param(p.CategoryID)

	q.Unsafe(`, price_id = `)
	q.Param(p.PriceID)

	q.Unsafe(`, rooms = `)
	q.Param(p.Rooms)

	q.Unsafe(`, parking = `)
	q.Param(p.Parking)

	q.Unsafe(`, bathrooms = `)
	q.Param(p.Bathrooms)

	q.Unsafe(`, street = `)
	q.Param(p.Street)

	q.Unsafe(`, lat = `)
	q.Param(p.Lat)

	q.Unsafe(`, lng = `)
	q.Param(p.Lng)

	q.Unsafe(`, image = `)
	q.Param(p.Image)

	q.Unsafe(`, published = `)
	q.Param(p.Published)

	q.Unsafe(`, updated_at = `)
	q.Param(p.UpdatedAt)

	q.Unsafe(` WHERE id = `)
	q.Param(p.ID)

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
		return fmt.Errorf("property not found: %w", errorz.ErrNotFound)
	}

	return nil
}

func deleteProperty(q *db.Query, ef execFunc, id uuid.UUID) error {
	q.Unsafe(`DELETE FROM properties WHERE id = `)
	q.Param(id)

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
		return fmt.Errorf("property not found: %w", errorz.ErrNotFound)
	}

	return nil
}

func propertyFilter(q *db.Query, f *property.Filter) {
	q.Unsafe(` WHERE 1=1 `)

	if len(f.IDs) > 0 {
		q.Unsafe(`AND id IN (`)
		q.Params(anySlice(f.IDs)...)
		q.Unsafe(`) `)
	}

	if len(f.OwnerIDs) > 0 {
		q.Unsafe(`AND owner_id IN (`)
		q.Params(anySlice(f.OwnerIDs)...)
		q.Unsafe(`) `)
	}

	if f.Published != nil {
		q.Unsafe(`AND published = `)
		q.Param(*f.Published)
		q.Unsafe(` `)
	}
}

func selectProperties(q *db.Query, qf queryFunc, f *property.Filter) ([]property.Property, error) {
	q.Unsafe(`SELECT id, owner_id, title, description, category_id, price_id, rooms, parking, bathrooms, street, lat, lng, image, published, created_at, updated_at FROM properties`)
	propertyFilter(q, f)
	q.Unsafe(`ORDER BY created_at DESC, id DESC`)

	if f.Limit > 0 {
		q.Unsafe(` LIMIT `)
		q.Param(f.Limit)
		q.Unsafe(` OFFSET `)
		q.Param(f.Offset)
	}

	s, params := q.Get()

	rows, err := qf(s, params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]property.Property, 0)
	for rows.Next() {
		var p property.Property
		err := rows.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.CategoryID, &p.PriceID, &p.Rooms, &p.Parking, &p.Bathrooms, &p.Street, &p.Lat, &p.Lng, &p.Image, &p.Published, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}
		out = append(out, p)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

func countProperties(q *db.Query, rf rowFunc, f *property.Filter) (int, error) {
	q.Unsafe(`SELECT COUNT(*) FROM properties`)
	propertyFilter(q, f)

	s, params := q.Get()

	var n int
	if err := rf(s, params...).Scan(&n); err != nil {
		return 0, errorz.MapDBErr(err)
	}

	return n, nil
}

func insertMessage(q *db.Query, ef execFunc, m *property.Message) error {
	if m.ID == uuid.Nil {
		return fmt.Errorf("zero uuid provided: %w", errorz.ErrConstraintViolated)
	}

	q.Unsafe(`INSERT INTO messages (id, property_id, sender_id, body, created_at) VALUES (`)
	q.Params(m.ID, m.PropertyID, m.SenderID, m.Body, m.CreatedAt)
	q.Unsafe(`)`)

	s, params := q.Get()

	_, err := ef(s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	return nil
}

func messageFilter(q *db.Query, f *property.MessageFilter) {
	q.Unsafe(` WHERE 1=1 `)

	if len(f.PropertyIDs) > 0 {
		q.Unsafe(`AND m.property_id IN (`)
		q.Params(anySlice(f.PropertyIDs)...)
		q.Unsafe(`) `)
	}
}

func selectMessages(q *db.Query, qf queryFunc, f *property.MessageFilter) ([]property.Message, error) {
	q.Unsafe(`SELECT m.id, m.property_id, m.sender_id, m.body, m.created_at, a.name FROM messages m JOIN accounts a ON a.id = m.sender_id`)
	messageFilter(q, f)
	q.Unsafe(`ORDER BY m.created_at DESC, m.id DESC`)

	s, params := q.Get()

	rows, err := qf(s, params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]property.Message, 0)
	for rows.Next() {
		var m property.Message
		err := rows.Scan(&m.ID, &m.PropertyID, &m.SenderID, &m.Body, &m.CreatedAt, &m.SenderName)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}
		out = append(out, m)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

func countMessages(q *db.Query, rf rowFunc, f *property.MessageFilter) (int, error) {
	q.Unsafe(`SELECT COUNT(*) FROM messages m`)
	messageFilter(q, f)

	s, params := q.Get()

	var n int
	if err := rf(s, params...).Scan(&n); err != nil {
		return 0, errorz.MapDBErr(err)
	}

	return n, nil
}

func anySlice[T any](s []T) []any {
	out := make([]any, 0, len(s))
	for _, v := range s {
		out = append(out, v)
	}
	return out
}
