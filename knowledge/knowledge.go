// Package knowledge provides the venue/promotion knowledge base consulted
// by the pipeline's retrieval stage. Documents describe venues and active
// promotions and are ranked by similarity to the raw user message.
package knowledge

import (
	"context"
	"fmt"
	"log"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	"github.com/sundial-labs/concierge-go/core"
	"github.com/sundial-labs/concierge-go/memory"
)

// Base is the chromem-backed knowledge base.
type Base struct {
	col      *chromem.Collection
	embedder memory.Embedder
}

// NewBase creates the knowledge base on the given chromem database.
func NewBase(db *chromem.DB, embedder memory.Embedder) (*Base, error) {
	col, err := db.GetOrCreateCollection("venue_knowledge", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create knowledge collection: %w", err)
	}
	return &Base{col: col, embedder: embedder}, nil
}

// Seed indexes venue and promotion documents. Idempotent: a base that
// already holds documents is left untouched.
func (b *Base) Seed(ctx context.Context, venues []core.Venue, promotions []core.Promotion) error {
	if b.col.Count() > 0 {
		return nil
	}

	var docs []chromem.Document
	for _, v := range venues {
		text := fmt.Sprintf("Store: %s. Type: %s. Hours: %s to %s.",
			v.Name, v.Category, v.Hours.Open, v.Hours.Close)
		if len(v.PopularItems) > 0 {
			text += " Popular items: " + strings.Join(v.PopularItems, ", ") + "."
		}
		doc, err := b.document("venue_"+v.ID, text, map[string]string{"type": "venue", "venue_id": v.ID})
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}
	for _, p := range promotions {
		text := fmt.Sprintf("Promotion: %s. %s. Applies to: %s.",
			p.Title, p.Description, strings.Join(p.ApplicableItems, ", "))
		doc, err := b.document("promo_"+p.ID, text, map[string]string{"type": "promotion", "venue_id": p.VenueID})
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	for _, doc := range docs {
		if err := b.col.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("seed knowledge base: %w", err)
		}
	}

	log.Printf("[KNOWLEDGE] Seeded %d documents (%d venues, %d promotions)",
		len(docs), len(venues), len(promotions))
	return nil
}

func (b *Base) document(id, text string, metadata map[string]string) (chromem.Document, error) {
	embedding, err := b.embedder.Embed(context.Background(), text)
	if err != nil {
		return chromem.Document{}, fmt.Errorf("embed knowledge document: %w", err)
	}
	return chromem.Document{ID: id, Content: text, Embedding: embedding, Metadata: metadata}, nil
}

// Retrieve returns up to k documents most relevant to the query.
func (b *Base) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}

	embedding, err := b.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed knowledge query: %w", err)
	}

	// chromem rejects nResults larger than the collection; shrink until it
	// fits.
	var results []chromem.Result
	for limit := k; limit >= 1; limit-- {
		results, err = b.col.QueryEmbedding(ctx, embedding, limit, nil, nil)
		if err == nil {
			break
		}
		if isCollectionTooSmall(err) {
			if limit == 1 {
				return nil, nil // base is empty
			}
			continue
		}
		return nil, fmt.Errorf("query knowledge base: %w", err)
	}

	snippets := make([]string, 0, len(results))
	for _, result := range results {
		snippets = append(snippets, result.Content)
	}
	return snippets, nil
}

func isCollectionTooSmall(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
