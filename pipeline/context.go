package pipeline

import (
	"fmt"
	"strings"

	"github.com/sundial-labs/concierge-go/enrich"
	"github.com/sundial-labs/concierge-go/profile"
)

// venueCap and promotionCap bound how much of the bundle makes it into the
// context string; the closest and first entries win.
const (
	venueCap     = 3
	promotionCap = 3
	historyCap   = 6
)

// buildContextString flattens the enrichment bundle, knowledge snippets and
// recent history into the plain-text block the prompt template embeds.
// Empty sections are omitted entirely rather than rendered as blank lines.
func buildContextString(s *State) string {
	var sections []string

	if s.Bundle != nil && s.Bundle.Profile != nil {
		p := s.Bundle.Profile
		sections = append(sections, "Customer: "+p.Name)

		prefs := p.Record.Preferences
		if len(prefs.FavoriteDrinks) > 0 {
			sections = append(sections, "Favorite drinks: "+strings.Join(prefs.FavoriteDrinks, ", "))
		}
		if len(prefs.Dietary) > 0 {
			sections = append(sections, "Dietary preferences: "+strings.Join(prefs.Dietary, ", "))
		}
		if prefs.PreferredTemperature != profile.TemperatureUnset {
			sections = append(sections, fmt.Sprintf("Prefers: %s drinks", prefs.PreferredTemperature))
		}
		if p.Record.LoyaltyPoints > 0 {
			sections = append(sections, fmt.Sprintf("Loyalty points: %d", p.Record.LoyaltyPoints))
		}
	}

	if s.Bundle != nil && len(s.Bundle.Memories) > 0 {
		sections = append(sections, "Previous interactions: "+strings.Join(s.Bundle.Memories, "; "))
	}

	if s.Bundle != nil && len(s.Bundle.Venues) > 0 {
		venues := s.Bundle.Venues
		if len(venues) > venueCap {
			venues = venues[:venueCap]
		}
		parts := make([]string, 0, len(venues))
		for _, v := range venues {
			parts = append(parts, fmt.Sprintf("%s (%dm away, open %s-%s)",
				v.Name, v.DistanceM, v.Hours.Open, v.Hours.Close))
		}
		sections = append(sections, "Nearby stores: "+strings.Join(parts, "; "))
	}

	if s.Bundle != nil && len(s.Bundle.Promotions) > 0 {
		promos := s.Bundle.Promotions
		if len(promos) > promotionCap {
			promos = promos[:promotionCap]
		}
		titles := make([]string, 0, len(promos))
		for _, p := range promos {
			titles = append(titles, p.Title)
		}
		sections = append(sections, "Available promotions: "+strings.Join(titles, ", "))
	}

	if len(s.Snippets) > 0 {
		sections = append(sections, "Additional info: "+strings.Join(s.Snippets, " "))
	}

	if len(s.History) > 0 {
		history := s.History
		if len(history) > historyCap {
			history = history[len(history)-historyCap:]
		}
		lines := make([]string, 0, len(history)+1)
		lines = append(lines, "Recent conversation:")
		for _, m := range history {
			lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(m.Role), m.Content))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	return strings.Join(sections, "\n")
}

// enrichedPreferences extracts the preference snapshot taken at enrichment
// time, so the learner compares new facts against what generation saw.
func enrichedPreferences(b *enrich.Bundle) profile.Record {
	if b == nil || b.Profile == nil {
		return profile.Record{}
	}
	return b.Profile.Record
}
