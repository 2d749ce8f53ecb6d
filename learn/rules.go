package learn

import (
	"strings"

	"github.com/sundial-labs/concierge-go/profile"
)

// Fact classification is an explicit, ordered rule list so it stays
// deterministic and testable. Three keyword families are evaluated in fixed
// precedence: temperature, then dietary, then drinks. Within a family the
// first matching rule wins; each family contributes at most one operation,
// and independent families may all contribute to the same update.

// temperatureRule maps a cue word to a temperature preference. Cues with
// needsContext set only fire next to a drink-preference context word, so
// "hot day today" doesn't set a preference but "likes hot drinks" does.
type temperatureRule struct {
	cue          string
	needsContext bool
	temperature  profile.Temperature
}

var temperatureRules = []temperatureRule{
	{cue: "hot", needsContext: true, temperature: profile.TemperatureHot},
	{cue: "cold", needsContext: true, temperature: profile.TemperatureCold},
	{cue: "iced", needsContext: false, temperature: profile.TemperatureCold},
}

var temperatureContextWords = []string{"drink", "prefer", "like"}

var dietaryKeywords = []string{
	"vegan", "vegetarian", "gluten-free", "dairy-free", "healthy", "low-sugar", "keto",
}

var drinkKeywords = []string{
	"coffee", "latte", "cappuccino", "espresso", "tea", "smoothie", "cocoa",
	"frappuccino", "matcha", "chai", "mocha", "americano",
}

// classifyFact maps a learned fact to profile update operations. The second
// return is false when no family matched.
func classifyFact(fact string) (profile.Update, bool) {
	text := strings.ToLower(fact)
	var update profile.Update

	for _, rule := range temperatureRules {
		if !strings.Contains(text, rule.cue) {
			continue
		}
		if rule.needsContext && !containsAny(text, temperatureContextWords) {
			continue
		}
		update.SetTemperature = rule.temperature
		break
	}

	for _, keyword := range dietaryKeywords {
		if strings.Contains(text, keyword) {
			update.AddDietary = keyword
			break
		}
	}

	for _, keyword := range drinkKeywords {
		if strings.Contains(text, keyword) {
			update.AddFavoriteDrink = keyword
			break
		}
	}

	matched := update.SetTemperature != profile.TemperatureUnset ||
		update.AddDietary != "" || update.AddFavoriteDrink != ""
	return update, matched
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
