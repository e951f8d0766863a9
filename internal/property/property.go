// Package property implements the listing side of the site: properties
// owned by accounts, their publication state and the messages interested
// visitors leave on them.
package property

import (
	"time"

	"github.com/google/uuid"
)

// Property is a single real estate listing.
type Property struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Title       string
	Description string
	CategoryID  int
	PriceID     int
	Rooms       int
	Parking     int
	Bathrooms   int
	Street      string
	Lat         float64
	Lng         float64
	// Image is the filename of the uploaded photo, relative to the uploads
	// directory. Empty until one has been added.
	Image     string
	Published bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Listing is the user-editable part of a property. It is what the create
// and edit forms submit.
type Listing struct {
	Title       string
	Description string
	CategoryID  int
	PriceID     int
	Rooms       int
	Parking     int
	Bathrooms   int
	Street      string
	Lat         float64
	Lng         float64
}

// Message is a message left by a visitor on a published property.
type Message struct {
	ID         uuid.UUID
	PropertyID uuid.UUID
	SenderID   uuid.UUID
	Body       string
	CreatedAt  time.Time

	// SenderName is joined in from the sender's account when listing
	// messages for the owner.
	SenderName string
}
