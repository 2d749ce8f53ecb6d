package profile

import (
	"context"
	"fmt"
	"testing"

	chromem "github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sundial-labs/concierge-go/memory/embedder/hash"
)

func newStore(t *testing.T, opts ...StoreOption) *Store {
	t.Helper()
	s, err := NewStore(chromem.NewDB(), hash.New(), opts...)
	require.NoError(t, err)
	return s
}

func TestMergeCreatesRecordLazily(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, ok := s.Get("u1")
	require.False(t, ok)

	require.NoError(t, s.Merge(ctx, "u1", Update{AddFavoriteDrink: "latte"}))

	rec, ok := s.Get("u1")
	require.True(t, ok)
	assert.Equal(t, []string{"latte"}, rec.Preferences.FavoriteDrinks)
}

func TestMergeIdempotentSetOperations(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Merge(ctx, "u1", Update{AddFavoriteDrink: "latte", AddDietary: "vegan"}))
	}

	rec, _ := s.Get("u1")
	assert.Equal(t, []string{"latte"}, rec.Preferences.FavoriteDrinks)
	assert.Equal(t, []string{"vegan"}, rec.Preferences.Dietary)
}

func TestMergeTemperatureLastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Merge(ctx, "u1", Update{SetTemperature: TemperatureHot}))
	require.NoError(t, s.Merge(ctx, "u1", Update{SetTemperature: TemperatureCold}))

	rec, _ := s.Get("u1")
	assert.Equal(t, TemperatureCold, rec.Preferences.PreferredTemperature)
}

func TestPurchaseHistoryCappedAtTen(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	for i := 0; i < 15; i++ {
		require.NoError(t, s.Merge(ctx, "u1", Update{AddPurchase: fmt.Sprintf("item-%d", i)}))
	}

	rec, _ := s.Get("u1")
	require.Len(t, rec.PurchaseHistory, 10)
	assert.Equal(t, "item-5", rec.PurchaseHistory[0].Item, "oldest entries are dropped")
	assert.Equal(t, "item-14", rec.PurchaseHistory[9].Item)
}

func TestLoyaltyPointsAccumulate(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Merge(ctx, "u1", Update{AddLoyaltyPoints: 10}))
	require.NoError(t, s.Merge(ctx, "u1", Update{AddLoyaltyPoints: 5}))

	rec, _ := s.Get("u1")
	assert.Equal(t, 15, rec.LoyaltyPoints)
}

func TestNegativeLoyaltyDeltaRejected(t *testing.T) {
	s := newStore(t)
	err := s.Merge(context.Background(), "u1", Update{AddLoyaltyPoints: -1})
	assert.Error(t, err)
}

func TestMergeCommutativeForIndependentKeys(t *testing.T) {
	ctx := context.Background()

	a := newStore(t)
	require.NoError(t, a.Merge(ctx, "u1", Update{AddFavoriteDrink: "latte"}))
	require.NoError(t, a.Merge(ctx, "u1", Update{AddDietary: "keto"}))

	b := newStore(t)
	require.NoError(t, b.Merge(ctx, "u1", Update{AddDietary: "keto"}))
	require.NoError(t, b.Merge(ctx, "u1", Update{AddFavoriteDrink: "latte"}))

	recA, _ := a.Get("u1")
	recB, _ := b.Get("u1")
	assert.Equal(t, recA.Preferences, recB.Preferences)
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Seed(ctx, "u1", Record{LoyaltyPoints: 42}))
	require.NoError(t, s.Seed(ctx, "u1", Record{LoyaltyPoints: 999}))

	rec, ok := s.Get("u1")
	require.True(t, ok)
	assert.Equal(t, 42, rec.LoyaltyPoints, "second seed must not overwrite")
}

func TestMergeUsesSeedSourceOnFirstWrite(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, WithSeedSource(func(userID string) (Record, bool) {
		if userID == "u1" {
			return Record{LoyaltyPoints: 100}, true
		}
		return Record{}, false
	}))

	require.NoError(t, s.Merge(ctx, "u1", Update{AddLoyaltyPoints: 5}))

	rec, _ := s.Get("u1")
	assert.Equal(t, 105, rec.LoyaltyPoints)
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.Merge(ctx, "u1", Update{AddFavoriteDrink: "latte"}))

	rec, _ := s.Get("u1")
	rec.Preferences.FavoriteDrinks[0] = "tampered"

	fresh, _ := s.Get("u1")
	assert.Equal(t, "latte", fresh.Preferences.FavoriteDrinks[0])
}

func TestSearchDocument(t *testing.T) {
	rec := Record{
		Preferences: Preferences{
			FavoriteDrinks:       []string{"latte", "matcha"},
			Dietary:              []string{"vegan"},
			PreferredTemperature: TemperatureHot,
		},
		PurchaseHistory: []Purchase{
			{Item: "a"}, {Item: "b"}, {Item: "c"}, {Item: "d"}, {Item: "e"}, {Item: "f"},
		},
		LoyaltyPoints: 7,
	}

	doc := SearchDocument(rec)

	assert.Equal(t,
		"Favorite drinks: latte, matcha. Dietary preferences: vegan. "+
			"Temperature preference: hot. Recent purchases: b, c, d, e, f. Loyalty points: 7",
		doc)
}

func TestSearchDocumentPlaceholder(t *testing.T) {
	assert.Equal(t, "No preferences set", SearchDocument(Record{}))
}

func TestFindSimilarReturnsSeededUsers(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Merge(ctx, "u1", Update{AddFavoriteDrink: "latte"}))
	require.NoError(t, s.Merge(ctx, "u2", Update{AddFavoriteDrink: "tea"}))

	users, err := s.FindSimilar(ctx, "latte drinker", 5)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.ElementsMatch(t, []string{"u1", "u2"}, users)
}
