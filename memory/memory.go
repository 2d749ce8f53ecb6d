// Package memory provides the append-only semantic memory log for the
// concierge pipeline.
//
// Entries are immutable facts and conversation summaries distilled from past
// exchanges, namespaced by user and retrieved by vector similarity. The log
// is backed by chromem-go, an embedded pure-Go vector database, with one
// collection per user so cross-user leakage is structurally impossible.
//
// There is no update or delete operation; retention is an external
// housekeeping concern.
package memory

import (
	"context"
	"time"
)

// Entry is one immutable memory record. Created once, never mutated.
type Entry struct {
	// ID is a composite of user, category and a time-sortable ULID, unique
	// at the expected write rate of one or two entries per turn.
	ID string

	// UserID owns the entry; queries are always scoped to one owner.
	UserID string

	// Category tags the kind of memory, e.g. "learned_fact" or
	// "conversation_summary".
	Category string

	// Content is the free-text body, also the similarity search target.
	Content string

	CreatedAt time.Time
}

// Embedder converts text to vector embeddings for similarity search.
// Implementations: hash.Embedder (deterministic, no model files) for local
// use; API-based embedders for production.
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}
