// Package core holds the value types shared across the concierge pipeline:
// conversation messages, venues and promotions. These are plain data carriers
// with no behavior; the packages that produce them own their semantics.
package core

// Message is a single turn in a conversation history.
type Message struct {
	// Role is "user" or "assistant".
	Role string `json:"role"`

	// Content is the raw message text.
	Content string `json:"content"`
}

// Hours describes a venue's opening hours as opaque strings.
// Live sources often only know the opening tag, so Close may be empty.
type Hours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// Venue is a nearby point of interest returned by a location source.
// Venues are read-only records; the pipeline never mutates or persists them.
type Venue struct {
	ID       string  `json:"venue_id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Hours    Hours   `json:"hours"`

	// DistanceM is the great-circle distance in meters from the query
	// coordinates, rounded to the nearest meter. Filled by the source.
	DistanceM int `json:"distance_m"`

	// Source identifies where the venue came from ("simulated" or "live").
	Source string `json:"source"`

	// PopularItems seeds the knowledge base; only simulated venues carry it.
	PopularItems []string `json:"popular_items,omitempty"`
}

// Promotion is an active offer at a venue.
type Promotion struct {
	ID              string   `json:"promo_id"`
	VenueID         string   `json:"venue_id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	ApplicableItems []string `json:"applicable_items"`
}
