package location

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"

	"github.com/sundial-labs/concierge-go/core"
)

//go:embed venues.json
var venuesJSON []byte

//go:embed promotions.json
var promotionsJSON []byte

// DefaultSimulatedRadiusM is the simulated source's venue search radius.
const DefaultSimulatedRadiusM = 500.0

// Simulated serves venues and promotions from embedded seed data.
type Simulated struct {
	venues     []core.Venue
	promotions []core.Promotion
	radiusM    float64
}

// NewSimulated loads the embedded seed data.
func NewSimulated() (*Simulated, error) {
	var venues []core.Venue
	if err := json.Unmarshal(venuesJSON, &venues); err != nil {
		return nil, fmt.Errorf("parse embedded venues: %w", err)
	}
	var promotions []core.Promotion
	if err := json.Unmarshal(promotionsJSON, &promotions); err != nil {
		return nil, fmt.Errorf("parse embedded promotions: %w", err)
	}
	return &Simulated{
		venues:     venues,
		promotions: promotions,
		radiusM:    DefaultSimulatedRadiusM,
	}, nil
}

// NearbyVenues returns seeded venues within the radius, sorted by ascending
// distance. It never fails.
func (s *Simulated) NearbyVenues(ctx context.Context, lat, lng float64) ([]core.Venue, error) {
	var nearby []core.Venue
	for _, v := range s.venues {
		d := Distance(lat, lng, v.Lat, v.Lng)
		if d > s.radiusM {
			continue
		}
		v.DistanceM = int(math.Round(d))
		v.Source = "simulated"
		nearby = append(nearby, v)
	}
	sortByDistance(nearby)
	return nearby, nil
}

// PromotionsFor returns active promotions at the venue.
func (s *Simulated) PromotionsFor(venueID string) []core.Promotion {
	var out []core.Promotion
	for _, p := range s.promotions {
		if p.VenueID == venueID {
			out = append(out, p)
		}
	}
	return out
}

// Venues returns the full seed venue list, for knowledge-base seeding.
func (s *Simulated) Venues() []core.Venue {
	return append([]core.Venue(nil), s.venues...)
}

// Promotions returns the full seed promotion list.
func (s *Simulated) Promotions() []core.Promotion {
	return append([]core.Promotion(nil), s.promotions...)
}
