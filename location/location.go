// Package location provides nearby-venue and promotion lookup.
//
// Two sources implement the same interface: Simulated serves embedded seed
// data within a 500 m radius, Live queries the OpenStreetMap Overpass API
// within 800 m. The enricher treats the simulated source as the failure
// fallback for live mode. Both sources return venues sorted by ascending
// great-circle distance from the query coordinates.
package location

import (
	"context"
	"math"
	"sort"

	"github.com/sundial-labs/concierge-go/core"
)

// Source looks up venues near a coordinate and the promotions running at a
// venue. Sources without promotion data return an empty list.
type Source interface {
	NearbyVenues(ctx context.Context, lat, lng float64) ([]core.Venue, error)
	PromotionsFor(venueID string) []core.Promotion
}

// earthRadiusM is the mean Earth radius in meters.
const earthRadiusM = 6371000

// Distance returns the great-circle (haversine) distance in meters between
// two coordinates.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

// sortByDistance orders venues by ascending distance in place.
func sortByDistance(venues []core.Venue) {
	sort.SliceStable(venues, func(i, j int) bool {
		return venues[i].DistanceM < venues[j].DistanceM
	})
}
