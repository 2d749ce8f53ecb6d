// Package pii provides reversible tokenization of sensitive substrings.
//
// Mask replaces detected values (phone numbers, emails, SSNs, payment cards)
// with placeholder tokens before text crosses the trust boundary to the
// generation service. Unmask restores the original values in the reply.
// Both are pure functions; the Mapping carries all state between them.
package pii

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Mapping is the bidirectional correspondence between tokens and original
// sensitive values for one pipeline invocation. Keys are tokens of the form
// "[<CATEGORY>_<N>]" with a 1-based, per-category counter; values are the
// original substrings they replaced.
type Mapping map[string]string

// detector pairs a token category with its detection pattern.
type detector struct {
	category string
	pattern  *regexp.Regexp
}

// detectors are evaluated in this fixed order so overlapping patterns resolve
// deterministically: an earlier category claims a match first (a 10-digit
// phone number is never re-read as a payment card fragment).
//
// Construction invariant: no pattern may match inside a produced token.
// Tokens are "[CATEGORY_N]" where CATEGORY is uppercase letters and N is a
// short digit run glued to an underscore. Every pattern below anchors digit
// runs on word boundaries or requires an "@", neither of which a token body
// can satisfy, so Mask is idempotent over already-masked text. The test
// suite enforces this against the token syntax directly.
var detectors = []detector{
	{"PHONE", regexp.MustCompile(`\b\d{10}\b|\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`)},
	{"EMAIL", regexp.MustCompile(`\b[\w.-]+@[\w.-]+\.\w+\b`)},
	{"SSN", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"CREDIT_CARD", regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`)},
}

// Mask replaces every detected sensitive value in text with a token and
// returns the masked text together with an extended copy of mapping.
//
// Passing the mapping returned by a previous Mask call continues each
// category's counter and reuses tokens for values already seen, so one
// mapping instance covers both the user message and the context string and
// a value appearing in both is tokenized consistently. A nil mapping starts
// a fresh one. The supplied mapping is never mutated.
func Mask(text string, mapping Mapping) (string, Mapping) {
	out := make(Mapping, len(mapping))
	for k, v := range mapping {
		out[k] = v
	}

	masked := text
	for _, d := range detectors {
		counter := categoryCount(out, d.category)

		// Scan the current masked text so values already replaced by an
		// earlier category in this call are not matched again.
		matches := d.pattern.FindAllString(masked, -1)
		for _, match := range matches {
			token, seen := tokenFor(out, match)
			if !seen {
				counter++
				token = fmt.Sprintf("[%s_%d]", d.category, counter)
				out[token] = match
			}
			// Single first-occurrence substitution per match; repeated
			// values are matched repeatedly and collapse onto one token.
			masked = strings.Replace(masked, match, token, 1)
		}
	}
	return masked, out
}

// Unmask restores original values for every token of mapping present in
// text. Tokens the generation service dropped or reordered are simply
// ignored; text without tokens passes through unchanged.
func Unmask(text string, mapping Mapping) string {
	// Sorted iteration keeps the substitution order deterministic.
	tokens := make([]string, 0, len(mapping))
	for token := range mapping {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	restored := text
	for _, token := range tokens {
		restored = strings.ReplaceAll(restored, token, mapping[token])
	}
	return restored
}

// categoryCount returns how many tokens of the given category the mapping
// already holds. Counters only ever grow, so this is the high-water mark.
func categoryCount(m Mapping, category string) int {
	prefix := "[" + category + "_"
	n := 0
	for token := range m {
		if strings.HasPrefix(token, prefix) {
			n++
		}
	}
	return n
}

// tokenFor reverse-looks-up the token already assigned to a value, across
// all categories. First occurrence wins; later sightings reuse the token.
func tokenFor(m Mapping, value string) (string, bool) {
	// Mappings are small (a handful of values per conversation turn), so a
	// linear scan beats maintaining a reverse index.
	var found string
	for token, original := range m {
		if original == value {
			if found == "" || token < found {
				found = token
			}
		}
	}
	return found, found != ""
}
