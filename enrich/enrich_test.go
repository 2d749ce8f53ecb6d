package enrich_test

import (
	"context"
	"errors"
	"testing"

	chromem "github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sundial-labs/concierge-go/core"
	"github.com/sundial-labs/concierge-go/enrich"
	"github.com/sundial-labs/concierge-go/identity"
	"github.com/sundial-labs/concierge-go/memory"
	"github.com/sundial-labs/concierge-go/memory/embedder/hash"
	"github.com/sundial-labs/concierge-go/profile"
)

// fakeIdentities is a static identity source for tests.
type fakeIdentities map[string]*identity.Identity

func (f fakeIdentities) LookupStatic(userID string) (*identity.Identity, bool) {
	id, ok := f[userID]
	return id, ok
}

// fakeLocation serves canned venues and promotions.
type fakeLocation struct {
	venues []core.Venue
	promos map[string][]core.Promotion
	err    error
	calls  int
}

func (f *fakeLocation) NearbyVenues(ctx context.Context, lat, lng float64) ([]core.Venue, error) {
	f.calls++
	return f.venues, f.err
}

func (f *fakeLocation) PromotionsFor(venueID string) []core.Promotion {
	return f.promos[venueID]
}

func venue(id string, distance int) core.Venue {
	return core.Venue{ID: id, Name: "Venue " + id, DistanceM: distance, Source: "simulated"}
}

type fixture struct {
	enricher *enrich.Enricher
	profiles *profile.Store
	memories *memory.Log
	sim      *fakeLocation
	live     *fakeLocation
}

func newFixture(t *testing.T, idents fakeIdentities) *fixture {
	t.Helper()

	db := chromem.NewDB()
	embedder := hash.New()
	profiles, err := profile.NewStore(db, embedder)
	require.NoError(t, err)
	memories := memory.NewLog(db, embedder)

	sim := &fakeLocation{
		venues: []core.Venue{venue("s1", 100), venue("s2", 200), venue("s3", 300), venue("s4", 400)},
		promos: map[string][]core.Promotion{
			"s1": {{ID: "p1", VenueID: "s1", Title: "Promo 1"}},
			"s2": {{ID: "p2", VenueID: "s2", Title: "Promo 2"}},
			"s4": {{ID: "p4", VenueID: "s4", Title: "Promo 4"}},
		},
	}
	live := &fakeLocation{}

	return &fixture{
		enricher: enrich.New(idents, profiles, sim, live, memories),
		profiles: profiles,
		memories: memories,
		sim:      sim,
		live:     live,
	}
}

func TestEnrichMergesIdentityAndDynamicRecord(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, fakeIdentities{
		"u1": {UserID: "u1", Name: "Alice", Phone: "555-201-3344", Email: "a@example.com"},
	})
	require.NoError(t, fx.profiles.Merge(ctx, "u1", profile.Update{AddFavoriteDrink: "latte"}))

	bundle := fx.enricher.Enrich(ctx, "u1", 40.7, -74.0, true, "coffee?")

	require.NotNil(t, bundle.Profile)
	assert.Equal(t, "Alice", bundle.Profile.Name)
	assert.Equal(t, "555-201-3344", bundle.Profile.Phone)
	assert.Equal(t, []string{"latte"}, bundle.Profile.Record.Preferences.FavoriteDrinks)
}

func TestEnrichFallsBackToSeedReadOnly(t *testing.T) {
	ctx := context.Background()
	seed := &profile.Record{LoyaltyPoints: 50}
	fx := newFixture(t, fakeIdentities{
		"u1": {UserID: "u1", Name: "Alice", Seed: seed},
	})

	bundle := fx.enricher.Enrich(ctx, "u1", 40.7, -74.0, true, "hi")

	require.NotNil(t, bundle.Profile)
	assert.Equal(t, 50, bundle.Profile.Record.LoyaltyPoints)

	// The fallback must not create a dynamic record.
	_, ok := fx.profiles.Get("u1")
	assert.False(t, ok, "seed fallback must be read-only")
}

func TestEnrichUnknownUserHasNilProfile(t *testing.T) {
	fx := newFixture(t, fakeIdentities{})

	bundle := fx.enricher.Enrich(context.Background(), "ghost", 40.7, -74.0, true, "hi")

	assert.Nil(t, bundle.Profile)
	assert.NotEmpty(t, bundle.Venues, "venues are independent of the profile")
}

func TestEnrichPromotionsCappedToFirstThreeVenues(t *testing.T) {
	fx := newFixture(t, fakeIdentities{})

	bundle := fx.enricher.Enrich(context.Background(), "u1", 40.7, -74.0, true, "promos?")

	// s4 is the 4th venue; its promotion must be excluded.
	titles := make([]string, 0, len(bundle.Promotions))
	for _, p := range bundle.Promotions {
		titles = append(titles, p.Title)
	}
	assert.Equal(t, []string{"Promo 1", "Promo 2"}, titles)
}

func TestEnrichLiveMode(t *testing.T) {
	fx := newFixture(t, fakeIdentities{})
	fx.live.venues = []core.Venue{{ID: "l1", Name: "Live Venue", DistanceM: 50, Source: "live"}}

	bundle := fx.enricher.Enrich(context.Background(), "u1", 40.7, -74.0, false, "hi")

	require.Len(t, bundle.Venues, 1)
	assert.Equal(t, "l1", bundle.Venues[0].ID)
	assert.Empty(t, bundle.Promotions, "promotions are simulated-mode only")
}

func TestEnrichLiveZeroResultsFallsBackToSimulated(t *testing.T) {
	fx := newFixture(t, fakeIdentities{})
	fx.live.venues = nil

	bundle := fx.enricher.Enrich(context.Background(), "u1", 40.7, -74.0, false, "hi")

	simulated := fx.enricher.Enrich(context.Background(), "u1", 40.7, -74.0, true, "hi")
	assert.Equal(t, simulated.Venues, bundle.Venues,
		"zero live results must yield the simulated venue list")
	assert.Equal(t, 1, fx.live.calls)
}

func TestEnrichLiveErrorFallsBackToSimulated(t *testing.T) {
	fx := newFixture(t, fakeIdentities{})
	fx.live.err = errors.New("overpass unreachable")

	bundle := fx.enricher.Enrich(context.Background(), "u1", 40.7, -74.0, false, "hi")

	assert.Len(t, bundle.Venues, 4)
	assert.Equal(t, "s1", bundle.Venues[0].ID)
}

func TestEnrichIncludesTopMemories(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, fakeIdentities{})

	for _, content := range []string{"fact one", "fact two", "fact three", "fact four"} {
		_, err := fx.memories.Append(ctx, "u1", "learned_fact", content)
		require.NoError(t, err)
	}
	_, err := fx.memories.Append(ctx, "other", "learned_fact", "other user's fact")
	require.NoError(t, err)

	bundle := fx.enricher.Enrich(ctx, "u1", 40.7, -74.0, true, "facts")

	assert.Len(t, bundle.Memories, 3, "enrichment retrieves at most 3 memories")
	assert.NotContains(t, bundle.Memories, "other user's fact")
}
