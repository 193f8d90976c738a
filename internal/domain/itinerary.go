// Package domain contains the core data types for the itinerary service.
// This package has no dependencies on other internal packages and is imported
// by every layer (repo, feed, mirror, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire and display format of an itinerary date.
const DateLayout = "2006-01-02"

// Itinerary is one planned trip owned by a single Owner.
// Destination, Date, Activities and Category never change after creation;
// Favorite is the only mutable field.
type Itinerary struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Destination string    `json:"destination"`
	Date        time.Time `json:"date"`
	Activities  string    `json:"activities"`
	Category    Category  `json:"category"`
	Favorite    bool      `json:"favorite"`
	CreatedAt   time.Time `json:"created_at"` // set by the database, never by the client
}

// ItineraryInput carries the caller-supplied fields for a new itinerary.
// A zero Date means the date was not supplied.
type ItineraryInput struct {
	Destination string
	Date        time.Time
	Activities  string
	Category    Category
}

// TripInput is the alternate creation shape (start/end dates and a trip type).
// It is mapped onto an ItineraryInput before persisting.
type TripInput struct {
	Destination string
	Activities  string
	StartDate   time.Time
	EndDate     time.Time
	TripType    string
}
