package location

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/sundial-labs/concierge-go/core"
)

const (
	// DefaultOverpassURL is the public Overpass API interpreter endpoint.
	DefaultOverpassURL = "https://overpass-api.de/api/interpreter"

	// DefaultLiveRadiusM is the live source's venue search radius.
	DefaultLiveRadiusM = 800.0

	// defaultLiveLimit caps how many live venues one lookup returns.
	defaultLiveLimit = 6

	// liveCacheTTL bounds how long a lookup result is reused. Venue data
	// changes slowly; this mostly shields the public API from repeat turns.
	liveCacheTTL = 5 * time.Minute
)

// Live fetches nearby venues from the OpenStreetMap Overpass API. Results
// are cached per rounded coordinate to avoid hammering the public endpoint
// on every conversation turn. Live has no promotion data.
type Live struct {
	endpoint string
	client   *http.Client
	radiusM  float64
	limit    int
	cache    *ristretto.Cache
}

// LiveOption configures the live source.
type LiveOption func(*Live)

// WithEndpoint overrides the Overpass interpreter URL.
func WithEndpoint(endpoint string) LiveOption {
	return func(l *Live) {
		l.endpoint = endpoint
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) LiveOption {
	return func(l *Live) {
		l.client = client
	}
}

// NewLive creates a live location source.
func NewLive(opts ...LiveOption) (*Live, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1 << 12,
		MaxCost:     1 << 10,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create live venue cache: %w", err)
	}

	l := &Live{
		endpoint: DefaultOverpassURL,
		client:   &http.Client{Timeout: 20 * time.Second},
		radiusM:  DefaultLiveRadiusM,
		limit:    defaultLiveLimit,
		cache:    cache,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// overpassElement is one node in an Overpass response.
type overpassElement struct {
	ID   int64             `json:"id"`
	Lat  float64           `json:"lat"`
	Lon  float64           `json:"lon"`
	Tags map[string]string `json:"tags"`
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

// NearbyVenues queries Overpass for cafes, restaurants and related shops
// around the coordinates, sorted by ascending distance. Zero results and
// transport failures are the caller's cue to fall back to simulated data.
func (l *Live) NearbyVenues(ctx context.Context, lat, lng float64) ([]core.Venue, error) {
	// ~4 decimal places is about 11 m, plenty for cache identity.
	cacheKey := fmt.Sprintf("%.4f,%.4f", lat, lng)
	if cached, ok := l.cache.Get(cacheKey); ok {
		if venues, ok := cached.([]core.Venue); ok {
			log.Printf("[LOCATION] Live cache hit for %s (%d venues)", cacheKey, len(venues))
			return append([]core.Venue(nil), venues...), nil
		}
	}

	query := fmt.Sprintf(`[out:json][timeout:25];
(
  node["amenity"~"cafe|restaurant|fast_food"](around:%.0f,%f,%f);
  node["shop"~"coffee|convenience"](around:%.0f,%f,%f);
);
out body;`, l.radiusM, lat, lng, l.radiusM, lat, lng)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint,
		strings.NewReader(url.Values{"data": {query}}.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("overpass returned status %d", resp.StatusCode)
	}

	var parsed overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode overpass response: %w", err)
	}

	elements := parsed.Elements
	if len(elements) > l.limit {
		elements = elements[:l.limit]
	}

	var venues []core.Venue
	for _, el := range elements {
		if el.Lat == 0 && el.Lon == 0 {
			continue
		}
		name := el.Tags["name"]
		if name == "" {
			name = el.Tags["brand"]
		}
		if name == "" {
			name = "Nearby Spot"
		}
		category := el.Tags["amenity"]
		if category == "" {
			category = el.Tags["shop"]
		}
		if category == "" {
			category = "venue"
		}
		hours := core.Hours{Open: el.Tags["opening_hours"]}
		if hours.Open == "" {
			hours.Open = "Unknown"
		}

		venues = append(venues, core.Venue{
			ID:        fmt.Sprintf("live_%d", el.ID),
			Name:      name,
			Category:  category,
			Lat:       el.Lat,
			Lng:       el.Lon,
			Hours:     hours,
			DistanceM: int(math.Round(Distance(lat, lng, el.Lat, el.Lon))),
			Source:    "live",
		})
	}

	sortByDistance(venues)

	l.cache.SetWithTTL(cacheKey, venues, 1, liveCacheTTL)
	log.Printf("[LOCATION] Live lookup for %s returned %d venues", cacheKey, len(venues))
	return venues, nil
}

// PromotionsFor returns nothing; promotion data exists only in the
// simulated source.
func (l *Live) PromotionsFor(venueID string) []core.Promotion {
	return nil
}
