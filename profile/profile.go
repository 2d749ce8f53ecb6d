// Package profile owns the mutable, per-user preference record and its
// chromem-backed search document mirror.
//
// The dynamic record (drinks, dietary tags, temperature, purchases, loyalty
// points) is created lazily on first write and mutated in place by Merge
// operations; it is never deleted. After every merge the store recomputes a
// deterministic text summary and persists it for similarity search.
package profile

import (
	"fmt"
	"strings"
)

// Temperature is a drink temperature preference.
type Temperature string

const (
	TemperatureUnset Temperature = ""
	TemperatureHot   Temperature = "hot"
	TemperatureCold  Temperature = "cold"
)

// Purchase is one purchase history item.
type Purchase struct {
	Item string `json:"item"`
	Date string `json:"date"`
}

// Preferences holds a user's taste preferences.
type Preferences struct {
	FavoriteDrinks       []string    `json:"favorite_drinks,omitempty"`
	Dietary              []string    `json:"dietary,omitempty"`
	PreferredTemperature Temperature `json:"preferred_temperature,omitempty"`
}

// Record is the dynamic per-user sub-record. Static identity fields (name,
// contact) are owned by the identity source, not by this package.
type Record struct {
	Preferences     Preferences `json:"preferences"`
	PurchaseHistory []Purchase  `json:"purchase_history,omitempty"`
	LoyaltyPoints   int         `json:"loyalty_points,omitempty"`
}

// maxPurchaseHistory caps the purchase history to the most recent entries.
const maxPurchaseHistory = 10

// Update is one merge request. Zero-valued fields are no-ops, so a single
// Update can carry any combination of the recognized operations.
type Update struct {
	// AddFavoriteDrink inserts a drink unless already present.
	AddFavoriteDrink string

	// AddDietary inserts a dietary tag unless already present.
	AddDietary string

	// SetTemperature overwrites the temperature preference (last write wins).
	SetTemperature Temperature

	// AddPurchase appends a purchase record, truncating to the 10 most
	// recent.
	AddPurchase string

	// AddLoyaltyPoints adds a non-negative delta to the balance.
	AddLoyaltyPoints int
}

// isZero reports whether the update carries no operation at all.
func (u Update) isZero() bool {
	return u.AddFavoriteDrink == "" && u.AddDietary == "" &&
		u.SetTemperature == TemperatureUnset && u.AddPurchase == "" &&
		u.AddLoyaltyPoints == 0
}

// apply mutates the record with every operation the update carries.
// Set-valued operations are idempotent; purchases and points accumulate.
func (r *Record) apply(u Update, today string) error {
	if u.AddLoyaltyPoints < 0 {
		return fmt.Errorf("loyalty point delta must be non-negative, got %d", u.AddLoyaltyPoints)
	}

	if u.AddFavoriteDrink != "" && !containsString(r.Preferences.FavoriteDrinks, u.AddFavoriteDrink) {
		r.Preferences.FavoriteDrinks = append(r.Preferences.FavoriteDrinks, u.AddFavoriteDrink)
	}
	if u.AddDietary != "" && !containsString(r.Preferences.Dietary, u.AddDietary) {
		r.Preferences.Dietary = append(r.Preferences.Dietary, u.AddDietary)
	}
	if u.SetTemperature != TemperatureUnset {
		r.Preferences.PreferredTemperature = u.SetTemperature
	}
	if u.AddPurchase != "" {
		r.PurchaseHistory = append(r.PurchaseHistory, Purchase{Item: u.AddPurchase, Date: today})
		if len(r.PurchaseHistory) > maxPurchaseHistory {
			r.PurchaseHistory = r.PurchaseHistory[len(r.PurchaseHistory)-maxPurchaseHistory:]
		}
	}
	r.LoyaltyPoints += u.AddLoyaltyPoints

	return nil
}

// clone returns a deep copy so callers can't alias store-internal state.
func (r Record) clone() Record {
	out := r
	out.Preferences.FavoriteDrinks = append([]string(nil), r.Preferences.FavoriteDrinks...)
	out.Preferences.Dietary = append([]string(nil), r.Preferences.Dietary...)
	out.PurchaseHistory = append([]Purchase(nil), r.PurchaseHistory...)
	return out
}

// noPreferencesDoc is stored when a record is empty, because empty documents
// are not retrievable by most similarity backends.
const noPreferencesDoc = "No preferences set"

// SearchDocument renders a record as the deterministic text summary used for
// similarity search: drinks, dietary tags, temperature, the 5 most recent
// purchases, and loyalty points.
func SearchDocument(r Record) string {
	var parts []string

	if len(r.Preferences.FavoriteDrinks) > 0 {
		parts = append(parts, "Favorite drinks: "+strings.Join(r.Preferences.FavoriteDrinks, ", "))
	}
	if len(r.Preferences.Dietary) > 0 {
		parts = append(parts, "Dietary preferences: "+strings.Join(r.Preferences.Dietary, ", "))
	}
	if r.Preferences.PreferredTemperature != TemperatureUnset {
		parts = append(parts, "Temperature preference: "+string(r.Preferences.PreferredTemperature))
	}

	if n := len(r.PurchaseHistory); n > 0 {
		recent := r.PurchaseHistory
		if n > 5 {
			recent = recent[n-5:]
		}
		items := make([]string, len(recent))
		for i, p := range recent {
			items[i] = p.Item
		}
		parts = append(parts, "Recent purchases: "+strings.Join(items, ", "))
	}

	if r.LoyaltyPoints > 0 {
		parts = append(parts, fmt.Sprintf("Loyalty points: %d", r.LoyaltyPoints))
	}

	if len(parts) == 0 {
		return noPreferencesDoc
	}
	return strings.Join(parts, ". ")
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
