package property

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/raicesdev/bienesraices/internal/errorz"
)

// perPage is the number of properties shown per page on the owner overview.
const perPage = 10

// Page is one page of an owner's properties.
type Page struct {
	Properties []Property
	Number     int
	Pages      int
	Total      int
}

// HasPrev reports whether an earlier page exists.
func (p Page) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a later page exists.
func (p Page) HasNext() bool { return p.Number < p.Pages }

// Prev returns the previous page number.
func (p Page) Prev() int { return p.Number - 1 }

// Next returns the next page number.
func (p Page) Next() int { return p.Number + 1 }

// Service provides the main rules for managing property listings.
//
// All mutations are owner-checked: operating on a property that does not
// exist or belongs to someone else reports errorz.ErrNotFound, the two
// cases are indistinguishable to the caller.
type Service struct {
	store Store

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		store:   store,
		NowFunc: time.Now,
	}
}

// Create stores a new unpublished listing for the owner.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, l Listing) (Property, error) {
	now := s.NowFunc()
	p := Property{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       l.Title,
		Description: l.Description,
		CategoryID:  l.CategoryID,
		PriceID:     l.PriceID,
		Rooms:       l.Rooms,
		Parking:     l.Parking,
		Bathrooms:   l.Bathrooms,
		Street:      l.Street,
		Lat:         l.Lat,
		Lng:         l.Lng,
		Published:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.inTx(ctx, func(tx Tx) error {
		return tx.CreateProperty(&p)
	})
	if err != nil {
		return Property{}, err
	}

	return p, nil
}

// Update overwrites the editable fields of one of the owner's properties.
func (s *Service) Update(ctx context.Context, ownerID, id uuid.UUID, l Listing) error {
	return s.updateOwned(ctx, ownerID, id, func(p *Property) {
		p.Title = l.Title
		p.Description = l.Description
		p.CategoryID = l.CategoryID
		p.PriceID = l.PriceID
		p.Rooms = l.Rooms
		p.Parking = l.Parking
		p.Bathrooms = l.Bathrooms
		p.Street = l.Street
		p.Lat = l.Lat
		p.Lng = l.Lng
	})
}

// SetImage records the uploaded image filename on one of the owner's
// properties and publishes it, matching the original flow where adding the
// photo is the final step of creating a listing.
func (s *Service) SetImage(ctx context.Context, ownerID, id uuid.UUID, filename string) error {
	return s.updateOwned(ctx, ownerID, id, func(p *Property) {
		p.Image = filename
		p.Published = true
	})
}

// TogglePublished flips the publication state of one of the owner's
// properties and returns the new state.
func (s *Service) TogglePublished(ctx context.Context, ownerID, id uuid.UUID) (bool, error) {
	var published bool
	err := s.updateOwned(ctx, ownerID, id, func(p *Property) {
		p.Published = !p.Published
		published = p.Published
	})
	return published, err
}

// Delete removes one of the owner's properties and, via the schema, its
// messages.
func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return s.inTx(ctx, func(tx Tx) error {
		_, err := findOwned(tx, ownerID, id)
		if err != nil {
			return err
		}

		return tx.DeleteProperty(id)
	})
}

// OwnerPage returns one page of the owner's properties, newest first.
// Page numbers start at 1; out-of-range numbers are clamped.
func (s *Service) OwnerPage(ctx context.Context, ownerID uuid.UUID, number int) (Page, error) {
	filter := &Filter{OwnerIDs: []uuid.UUID{ownerID}}

	total, err := s.store.CountProperties(ctx, filter)
	if err != nil {
		return Page{}, err
	}

	pages := (total + perPage - 1) / perPage
	if pages < 1 {
		pages = 1
	}

	if number < 1 {
		number = 1
	}
	if number > pages {
		number = pages
	}

	filter.Limit = perPage
	filter.Offset = (number - 1) * perPage

	properties, err := s.store.FindProperties(ctx, filter)
	if err != nil {
		return Page{}, err
	}

	return Page{
		Properties: properties,
		Number:     number,
		Pages:      pages,
		Total:      total,
	}, nil
}

// Published returns all published properties for the public home page,
// newest first.
func (s *Service) Published(ctx context.Context) ([]Property, error) {
	published := true
	return s.store.FindProperties(ctx, &Filter{Published: &published})
}

// View returns a single property for display. Unpublished properties are
// only visible to their owner; everyone else gets errorz.ErrNotFound.
func (s *Service) View(ctx context.Context, id uuid.UUID, viewerID *uuid.UUID) (Property, error) {
	properties, err := s.store.FindProperties(ctx, &Filter{IDs: []uuid.UUID{id}})
	if err != nil {
		return Property{}, err
	}

	if len(properties) != 1 {
		return Property{}, fmt.Errorf("no such property: %w", errorz.ErrNotFound)
	}

	p := properties[0]
	if !p.Published && (viewerID == nil || *viewerID != p.OwnerID) {
		return Property{}, fmt.Errorf("property not published: %w", errorz.ErrNotFound)
	}

	return p, nil
}

// SendMessage stores a message from a logged-in visitor on a published
// property.
func (s *Service) SendMessage(ctx context.Context, propertyID, senderID uuid.UUID, body string) error {
	return s.inTx(ctx, func(tx Tx) error {
		properties, err := tx.FindProperties(&Filter{IDs: []uuid.UUID{propertyID}})
		if err != nil {
			return err
		}

		if len(properties) != 1 || !properties[0].Published {
			return fmt.Errorf("no such property: %w", errorz.ErrNotFound)
		}

		return tx.CreateMessage(&Message{
			ID:         uuid.New(),
			PropertyID: propertyID,
			SenderID:   senderID,
			Body:       body,
			CreatedAt:  s.NowFunc(),
		})
	})
}

// Messages returns the messages on one of the owner's properties, with
// sender names, newest first.
func (s *Service) Messages(ctx context.Context, ownerID, propertyID uuid.UUID) ([]Message, error) {
	properties, err := s.store.FindProperties(ctx, &Filter{
		IDs:      []uuid.UUID{propertyID},
		OwnerIDs: []uuid.UUID{ownerID},
	})
	if err != nil {
		return nil, err
	}

	if len(properties) != 1 {
		return nil, fmt.Errorf("no such property: %w", errorz.ErrNotFound)
	}

	return s.store.FindMessages(ctx, &MessageFilter{
		PropertyIDs: []uuid.UUID{propertyID},
	})
}

// MessageCounts returns the number of messages per property, for the owner
// overview.
func (s *Service) MessageCounts(ctx context.Context, properties []Property) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(properties))
	for _, p := range properties {
		n, err := s.store.CountMessages(ctx, &MessageFilter{
			PropertyIDs: []uuid.UUID{p.ID},
		})
		if err != nil {
			return nil, err
		}
		out[p.ID] = n
	}
	return out, nil
}

// updateOwned loads one of the owner's properties, applies mod and stores
// the result with a fresh UpdatedAt.
func (s *Service) updateOwned(ctx context.Context, ownerID, id uuid.UUID, mod func(p *Property)) error {
	return s.inTx(ctx, func(tx Tx) error {
		p, err := findOwned(tx, ownerID, id)
		if err != nil {
			return err
		}

		mod(&p)
		p.UpdatedAt = s.NowFunc()

		return tx.UpdateProperty(&p)
	})
}

func findOwned(tx Tx, ownerID, id uuid.UUID) (Property, error) {
	properties, err := tx.FindProperties(&Filter{
		IDs:      []uuid.UUID{id},
		OwnerIDs: []uuid.UUID{ownerID},
	})
	if err != nil {
		return Property{}, err
	}

	if len(properties) != 1 {
		return Property{}, fmt.Errorf("no such property: %w", errorz.ErrNotFound)
	}

	return properties[0], nil
}

func (s *Service) inTx(ctx context.Context, f func(tx Tx) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}

	err = f(tx)
	if err != nil {
		rBackErr := tx.Rollback()
		if rBackErr != nil {
			err = errors.Join(err, rBackErr)
		}
		return err
	}

	return tx.Commit()
}
