package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/sundial-labs/concierge-go/memory"
)

// SeedFunc supplies an initial record for a user whose dynamic record does
// not exist yet. It is consulted once, on the user's first write.
type SeedFunc func(userID string) (Record, bool)

// Store holds the dynamic per-user records, with a search-document mirror in
// a chromem collection for similarity lookup.
//
// Each Merge call is a single read-modify-write under the store lock: read
// current, apply all operations, write once. Concurrent merges to the same
// user serialize on the lock (last writer wins at merge granularity);
// merges to different users never interfere beyond lock contention.
type Store struct {
	col      *chromem.Collection
	embedder memory.Embedder
	seed     SeedFunc
	now      func() time.Time

	mu      sync.Mutex
	records map[string]*Record
}

// StoreOption configures the store.
type StoreOption func(*Store)

// WithSeedSource lazily seeds a missing record from static identity data on
// the user's first write.
func WithSeedSource(seed SeedFunc) StoreOption {
	return func(s *Store) {
		s.seed = seed
	}
}

// NewStore creates a profile store on the given chromem database.
func NewStore(db *chromem.DB, embedder memory.Embedder, opts ...StoreOption) (*Store, error) {
	col, err := db.GetOrCreateCollection("user_profiles", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create profile collection: %w", err)
	}

	s := &Store{
		col:      col,
		embedder: embedder,
		now:      time.Now,
		records:  make(map[string]*Record),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Get returns a copy of the user's dynamic record, if one exists.
func (s *Store) Get(userID string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// Seed stores an initial record for the user unless one already exists.
// Safe to call repeatedly; only the first call per user has an effect.
func (s *Store) Seed(ctx context.Context, userID string, rec Record) error {
	s.mu.Lock()
	if _, exists := s.records[userID]; exists {
		s.mu.Unlock()
		return nil
	}
	stored := rec.clone()
	s.records[userID] = &stored
	s.mu.Unlock()

	s.persistSearchDocument(ctx, userID, stored)
	return nil
}

// Merge applies the update's operations to the user's record and persists
// the recomputed search document. A missing record is created, seeded from
// the configured seed source when available.
func (s *Store) Merge(ctx context.Context, userID string, update Update) error {
	if userID == "" {
		return fmt.Errorf("merge profile: user id is required")
	}
	if update.isZero() {
		return nil
	}

	s.mu.Lock()
	rec, ok := s.records[userID]
	if !ok {
		fresh := Record{}
		if s.seed != nil {
			if seeded, found := s.seed(userID); found {
				fresh = seeded.clone()
			}
		}
		rec = &fresh
		s.records[userID] = rec
	}
	if err := rec.apply(update, s.now().Format("2006-01-02")); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("merge profile for %s: %w", userID, err)
	}
	snapshot := rec.clone()
	s.mu.Unlock()

	s.persistSearchDocument(ctx, userID, snapshot)
	return nil
}

// FindSimilar returns up to k user IDs whose search documents are most
// similar to the query, best match first.
func (s *Store) FindSimilar(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed profile query: %w", err)
	}

	var results []chromem.Result
	for limit := k; limit >= 1; limit-- {
		results, err = s.col.QueryEmbedding(ctx, embedding, limit, nil, nil)
		if err == nil {
			break
		}
		if isInsufficientProfilesError(err) {
			if limit == 1 {
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("query profiles: %w", err)
	}

	users := make([]string, 0, len(results))
	for _, result := range results {
		users = append(users, result.Metadata["user_id"])
	}
	return users, nil
}

// persistSearchDocument mirrors the record's text summary into chromem.
// A mirror failure never fails the merge; the in-memory record is already
// updated, the search index just goes stale until the next write.
func (s *Store) persistSearchDocument(ctx context.Context, userID string, rec Record) {
	doc := SearchDocument(rec)

	embedding, err := s.embedder.Embed(ctx, doc)
	if err != nil {
		log.Printf("[PROFILE] Failed to embed search document for user=%s: %v", userID, err)
		return
	}

	recordJSON, err := json.Marshal(rec)
	if err != nil {
		log.Printf("[PROFILE] Failed to marshal record for user=%s: %v", userID, err)
		return
	}

	// Re-adding with the same ID replaces the previous document.
	err = s.col.AddDocument(ctx, chromem.Document{
		ID:        "profile_" + userID,
		Content:   doc,
		Embedding: embedding,
		Metadata: map[string]string{
			"user_id":    userID,
			"record":     string(recordJSON),
			"updated_at": s.now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		log.Printf("[PROFILE] Failed to persist search document for user=%s: %v", userID, err)
	}
}

func isInsufficientProfilesError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
