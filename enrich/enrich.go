// Package enrich composes the read-only context bundle consumed by the
// generation stage: the user's merged profile, nearby venues, active
// promotions, and relevant semantic memories.
//
// Enrichment is purely a composition of reads; it never writes to any
// store. Collaborator failures degrade to empty sub-fields instead of
// propagating, so a dead location API or memory backend costs context, not
// the reply.
package enrich

import (
	"context"
	"log"

	"github.com/sundial-labs/concierge-go/core"
	"github.com/sundial-labs/concierge-go/identity"
	"github.com/sundial-labs/concierge-go/location"
	"github.com/sundial-labs/concierge-go/memory"
	"github.com/sundial-labs/concierge-go/profile"
)

// promotionVenueCap bounds promotion lookup to the closest venues.
const promotionVenueCap = 3

// memoryTopK is how many semantic memories enrichment pulls in.
const memoryTopK = 3

// Profile is the merged customer view: static identity fields plus the
// dynamic preference record.
type Profile struct {
	ID     string
	Name   string
	Phone  string
	Email  string
	Record profile.Record
}

// Bundle is the aggregated read-only context assembled before generation.
type Bundle struct {
	Profile    *Profile
	Venues     []core.Venue
	Promotions []core.Promotion
	Memories   []string
}

// Enricher assembles bundles from its collaborators.
type Enricher struct {
	identities identity.Source
	profiles   *profile.Store
	simulated  location.Source
	live       location.Source
	memories   *memory.Log
}

// New creates an enricher. The live source may be nil when only simulated
// data is configured.
func New(identities identity.Source, profiles *profile.Store, simulated, live location.Source, memories *memory.Log) *Enricher {
	return &Enricher{
		identities: identities,
		profiles:   profiles,
		simulated:  simulated,
		live:       live,
		memories:   memories,
	}
}

// Enrich builds the context bundle for one conversation turn. The query is
// the raw user message, used to seed memory retrieval.
func (e *Enricher) Enrich(ctx context.Context, userID string, lat, lng float64, useSimulated bool, query string) *Bundle {
	bundle := &Bundle{}

	bundle.Profile = e.lookupProfile(userID)
	bundle.Venues = e.lookupVenues(ctx, lat, lng, useSimulated)

	// Promotions exist only in simulated data, for the closest venues.
	if useSimulated {
		venues := bundle.Venues
		if len(venues) > promotionVenueCap {
			venues = venues[:promotionVenueCap]
		}
		for _, v := range venues {
			bundle.Promotions = append(bundle.Promotions, e.simulated.PromotionsFor(v.ID)...)
		}
	}

	memories, err := e.memories.QueryTopK(ctx, userID, query, memoryTopK)
	if err != nil {
		log.Printf("[ENRICH] Memory retrieval failed for user=%s: %v", userID, err)
	} else {
		bundle.Memories = memories
	}

	return bundle
}

// lookupProfile merges static identity data with the dynamic record. When
// no dynamic record exists it falls back to seed preferences embedded in
// the identity source; the fallback is read-only and never written back.
func (e *Enricher) lookupProfile(userID string) *Profile {
	ident, ok := e.identities.LookupStatic(userID)
	if !ok {
		return nil
	}

	p := &Profile{
		ID:    ident.UserID,
		Name:  ident.Name,
		Phone: ident.Phone,
		Email: ident.Email,
	}

	if rec, ok := e.profiles.Get(userID); ok {
		p.Record = rec
	} else if ident.Seed != nil {
		p.Record = *ident.Seed
	}
	return p
}

// lookupVenues selects the source by mode. Live lookups that fail or come
// back empty fall back to simulated data; simulated mode has no fallback.
func (e *Enricher) lookupVenues(ctx context.Context, lat, lng float64, useSimulated bool) []core.Venue {
	if !useSimulated && e.live != nil {
		venues, err := e.live.NearbyVenues(ctx, lat, lng)
		if err != nil {
			log.Printf("[ENRICH] Live venue lookup failed, falling back to simulated: %v", err)
		} else if len(venues) > 0 {
			return venues
		} else {
			log.Printf("[ENRICH] Live venue lookup returned no results, falling back to simulated")
		}
	}

	venues, err := e.simulated.NearbyVenues(ctx, lat, lng)
	if err != nil {
		log.Printf("[ENRICH] Simulated venue lookup failed: %v", err)
		return nil
	}
	return venues
}
