package memory

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	chromem "github.com/philippgille/chromem-go"
)

// Log is the append-only semantic memory store.
//
// Each user gets a dedicated chromem collection; queries additionally carry
// a where filter on user_id, so an entry written for user A can never be
// returned for user B.
type Log struct {
	db       *chromem.DB
	embedder Embedder

	mu          sync.RWMutex
	collections map[string]*chromem.Collection
}

// NewLog creates a memory log on the given chromem database.
func NewLog(db *chromem.DB, embedder Embedder) *Log {
	return &Log{
		db:          db,
		embedder:    embedder,
		collections: make(map[string]*chromem.Collection),
	}
}

// collectionFor returns the per-user collection, creating it on first use.
func (l *Log) collectionFor(userID string) (*chromem.Collection, error) {
	l.mu.RLock()
	col, exists := l.collections[userID]
	l.mu.RUnlock()
	if exists {
		return col, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if col, exists := l.collections[userID]; exists {
		return col, nil
	}

	col, err := l.db.GetOrCreateCollection(fmt.Sprintf("memories_%s", userID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create memory collection: %w", err)
	}
	l.collections[userID] = col
	return col, nil
}

// Append stores a new immutable entry for the user and returns it.
func (l *Log) Append(ctx context.Context, userID, category, content string) (*Entry, error) {
	if userID == "" {
		return nil, fmt.Errorf("append memory: user id is required")
	}

	col, err := l.collectionFor(userID)
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:        fmt.Sprintf("%s_%s_%s", userID, category, ulid.Make().String()),
		UserID:    userID,
		Category:  category,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	embedding, err := l.embedder.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("embed memory: %w", err)
	}

	err = col.AddDocument(ctx, chromem.Document{
		ID:        entry.ID,
		Content:   entry.Content,
		Embedding: embedding,
		Metadata: map[string]string{
			"user_id":    entry.UserID,
			"category":   entry.Category,
			"created_at": entry.CreatedAt.Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store memory: %w", err)
	}

	log.Printf("[MEMORY] Stored %s entry for user=%s", category, userID)
	return entry, nil
}

// QueryTopK returns up to k entry contents for the user, most relevant to
// the query first. Results are always restricted to the requesting user.
func (l *Log) QueryTopK(ctx context.Context, userID, query string, k int) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}

	col, err := l.collectionFor(userID)
	if err != nil {
		return nil, err
	}

	embedding, err := l.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	where := map[string]string{"user_id": userID}

	// chromem rejects nResults larger than the collection; shrink until it
	// fits rather than tracking counts ourselves.
	var results []chromem.Result
	for limit := k; limit >= 1; limit-- {
		results, err = col.QueryEmbedding(ctx, embedding, limit, where, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if limit == 1 {
				return nil, nil // collection is empty
			}
			continue
		}
		return nil, fmt.Errorf("query memories: %w", err)
	}

	contents := make([]string, 0, len(results))
	for _, result := range results {
		contents = append(contents, result.Content)
	}

	log.Printf("[MEMORY] Retrieved %d/%d memories for user=%s", len(contents), k, userID)
	return contents, nil
}

// isInsufficientDocsError reports whether the error means the collection has
// fewer documents than requested.
func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
