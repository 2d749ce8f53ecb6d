// Package learn implements best-effort persona learning: after a reply is
// finalized, the generation service is asked to extract at most one new
// fact about the user, which is merged into the profile store and appended
// to the memory log.
//
// Learning is deliberately fire-and-forget. Exchanges are handed to a
// bounded background queue; failures are observed only as log lines and
// never surface to the pipeline that already produced a user-visible reply.
package learn

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/sundial-labs/concierge-go/genai"
	"github.com/sundial-labs/concierge-go/memory"
	"github.com/sundial-labs/concierge-go/profile"
)

// noNewFact is the sentinel the extraction prompt asks for when the
// exchange taught us nothing.
const noNewFact = "NONE"

// factPrompt asks for at most one new insight or the sentinel.
const factPrompt = `Analyze this customer interaction and extract any NEW preferences or facts learned.
Only output if there's something genuinely new to learn. Be concise (1 sentence max).
If nothing new, output "NONE".

Customer message: %s
Bot response: %s
Current known preferences: %s

New insight (or NONE):`

// Exchange is one completed conversation turn, with the original
// (unmasked) texts and the user's preference snapshot at enrichment time.
type Exchange struct {
	UserID      string
	UserMessage string
	FinalReply  string
	Preferences profile.Record
}

// Learner extracts and persists new user facts.
type Learner struct {
	generator genai.Generator
	profiles  *profile.Store
	memories  *memory.Log
	timeout   time.Duration

	queue     chan Exchange
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewLearner creates a learner and starts its background worker. queueSize
// bounds how many exchanges may be pending; further dispatches are dropped
// (and logged) rather than blocking the response path.
func NewLearner(generator genai.Generator, profiles *profile.Store, memories *memory.Log, queueSize int) *Learner {
	if queueSize <= 0 {
		queueSize = 16
	}
	l := &Learner{
		generator: generator,
		profiles:  profiles,
		memories:  memories,
		timeout:   30 * time.Second,
		queue:     make(chan Exchange, queueSize),
	}

	l.wg.Add(1)
	go l.worker()
	return l
}

// worker drains the queue. Errors are observed here and nowhere else.
func (l *Learner) worker() {
	defer l.wg.Done()
	for ex := range l.queue {
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		if err := l.Learn(ctx, ex); err != nil {
			log.Printf("[LEARN] Persona update failed for user=%s: %v", ex.UserID, err)
		}
		cancel()
	}
}

// Dispatch enqueues an exchange for background learning without blocking.
// A full queue drops the exchange; persona learning is best-effort.
func (l *Learner) Dispatch(ex Exchange) {
	select {
	case l.queue <- ex:
	default:
		log.Printf("[LEARN] Queue full, dropping exchange for user=%s", ex.UserID)
	}
}

// Close stops accepting exchanges and waits for in-flight learning to
// finish.
func (l *Learner) Close() {
	l.closeOnce.Do(func() {
		close(l.queue)
	})
	l.wg.Wait()
}

// Learn runs one extraction synchronously. The profile merge and the two
// memory appends are independent writes: a failure in one does not roll
// back the others, and all failures are reported together so partial
// failure is never silently masked.
func (l *Learner) Learn(ctx context.Context, ex Exchange) error {
	if l.generator == nil {
		return nil // nothing to extract with; skip quietly
	}

	prompt := fmt.Sprintf(factPrompt, ex.UserMessage, ex.FinalReply, profile.SearchDocument(ex.Preferences))

	insight, err := l.generator.Generate(ctx, prompt)
	if err != nil {
		return fmt.Errorf("extract fact: %w", err)
	}

	insight = strings.TrimSpace(insight)
	if insight == "" || strings.EqualFold(insight, noNewFact) {
		log.Printf("[LEARN] No new fact for user=%s", ex.UserID)
		return nil
	}

	log.Printf("[LEARN] New fact for user=%s: %q", ex.UserID, insight)

	var errs []error

	if update, ok := classifyFact(insight); ok {
		if err := l.profiles.Merge(ctx, ex.UserID, update); err != nil {
			errs = append(errs, fmt.Errorf("merge profile: %w", err))
		}
	}

	if _, err := l.memories.Append(ctx, ex.UserID, "learned_fact", insight); err != nil {
		errs = append(errs, fmt.Errorf("append fact: %w", err))
	}

	summary := fmt.Sprintf("User asked about '%s...', recommended based on their preferences.",
		truncate(ex.UserMessage, 50))
	if _, err := l.memories.Append(ctx, ex.UserID, "conversation_summary", summary); err != nil {
		errs = append(errs, fmt.Errorf("append summary: %w", err))
	}

	return errors.Join(errs...)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
