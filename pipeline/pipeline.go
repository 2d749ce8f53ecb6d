// Package pipeline sequences the six personalization stages that turn a raw
// user message into a final reply:
//
//	1. Enrich   - profile, venues, promotions, memories
//	2. Retrieve - knowledge-base snippets relevant to the message
//	3. Mask     - build the context string, tokenize PII in message+context
//	4. Generate - call the generation service with the masked prompt
//	5. Unmask   - restore original values in the reply
//	6. Learn    - fire-and-forget persona learning
//
// Stages run strictly in order over one mutable State; each stage populates
// its own fields and only reads what earlier stages produced. Stages never
// fail the pipeline: configuration and collaborator errors degrade to
// sentinel or empty values, so a well-formed request always yields a reply.
// Only malformed input is rejected, before stage 1.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/sundial-labs/concierge-go/core"
	"github.com/sundial-labs/concierge-go/enrich"
	"github.com/sundial-labs/concierge-go/genai"
	"github.com/sundial-labs/concierge-go/knowledge"
	"github.com/sundial-labs/concierge-go/learn"
	"github.com/sundial-labs/concierge-go/pii"
)

// GenerationUnavailableReply is returned verbatim when the generation
// service is missing or unreachable. The pipeline still completes normally.
const GenerationUnavailableReply = "Error: generation service not configured"

// snippetTopK is how many knowledge snippets the retrieval stage pulls in.
const snippetTopK = 3

// promptTemplate frames the masked context and message for the generation
// service.
const promptTemplate = `You are a hyper-local concierge that recommends nearby places and products.
Your job is to tell the customer what they should do next (e.g., "Stop by X and grab Y").
Always reference the most relevant nearby store or action from the context.
Never claim that you can make, prepare, or serve items yourself - only recommend external locations.
Keep responses concise (2-3 sentences) and grounded in the provided context and history.

CUSTOMER CONTEXT & HISTORY:
%s

CUSTOMER MESSAGE: %s

Respond helpfully:`

// Request is the caller-facing input to one pipeline invocation.
type Request struct {
	UserID       string
	Message      string
	Lat          float64
	Lng          float64
	History      []core.Message
	UseSimulated bool
}

// State is the single mutable record threaded through every stage. Once a
// stage populates its fields, later stages read but never mutate them; the
// unmask stage derives FinalReply from RawReply and the mapping without
// touching either.
type State struct {
	UserID       string
	UserMessage  string
	Lat          float64
	Lng          float64
	UseSimulated bool
	History      []core.Message

	Bundle        *enrich.Bundle
	Snippets      []string
	MaskedMessage string
	MaskedContext string
	Mapping       pii.Mapping
	RawReply      string
	FinalReply    string
}

// Orchestrator owns the stage sequence and its collaborators.
type Orchestrator struct {
	enricher  *enrich.Enricher
	knowledge *knowledge.Base
	generator genai.Generator
	learner   *learn.Learner
}

// New creates an orchestrator. generator may be nil when no credentials are
// configured; the generate stage then yields the sentinel reply. learner
// may be nil to disable persona learning.
func New(enricher *enrich.Enricher, kb *knowledge.Base, generator genai.Generator, learner *learn.Learner) *Orchestrator {
	return &Orchestrator{
		enricher:  enricher,
		knowledge: kb,
		generator: generator,
		learner:   learner,
	}
}

// stage is one pipeline step. Stages do not return errors: anything short
// of malformed input degrades inside the stage.
type stage struct {
	name string
	run  func(ctx context.Context, s *State)
}

// ProcessMessage runs the full pipeline and returns the final reply text.
// The only error class that propagates is malformed input, rejected before
// the first stage runs.
func (o *Orchestrator) ProcessMessage(ctx context.Context, req Request) (string, error) {
	if err := validate(req); err != nil {
		return "", err
	}

	state := &State{
		UserID:       req.UserID,
		UserMessage:  req.Message,
		Lat:          req.Lat,
		Lng:          req.Lng,
		UseSimulated: req.UseSimulated,
		History:      req.History,
	}

	runID := uuid.New().String()[:8]
	stages := []stage{
		{"enrich", o.stageEnrich},
		{"retrieve", o.stageRetrieve},
		{"mask", o.stageMask},
		{"generate", o.stageGenerate},
		{"unmask", o.stageUnmask},
		{"learn", o.stageLearn},
	}
	for _, st := range stages {
		log.Printf("[PIPELINE] run=%s user=%s stage=%s", runID, state.UserID, st.name)
		st.run(ctx, state)
	}

	return state.FinalReply, nil
}

// validate rejects malformed input, the only failure class that aborts the
// pipeline before producing a reply.
func validate(req Request) error {
	if strings.TrimSpace(req.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return fmt.Errorf("message is required")
	}
	if req.Lat < -90 || req.Lat > 90 {
		return fmt.Errorf("latitude %g out of range [-90, 90]", req.Lat)
	}
	if req.Lng < -180 || req.Lng > 180 {
		return fmt.Errorf("longitude %g out of range [-180, 180]", req.Lng)
	}
	return nil
}

// stageEnrich populates the enrichment bundle.
func (o *Orchestrator) stageEnrich(ctx context.Context, s *State) {
	s.Bundle = o.enricher.Enrich(ctx, s.UserID, s.Lat, s.Lng, s.UseSimulated, s.UserMessage)
}

// stageRetrieve augments the bundle with knowledge-base snippets.
func (o *Orchestrator) stageRetrieve(ctx context.Context, s *State) {
	if o.knowledge == nil {
		return
	}
	snippets, err := o.knowledge.Retrieve(ctx, s.UserMessage, snippetTopK)
	if err != nil {
		log.Printf("[PIPELINE] Knowledge retrieval failed: %v", err)
		return
	}
	s.Snippets = snippets
}

// stageMask builds the context string and tokenizes PII in the message and
// the context with one shared mapping.
func (o *Orchestrator) stageMask(ctx context.Context, s *State) {
	maskedMessage, mapping := pii.Mask(s.UserMessage, nil)
	maskedContext, mapping := pii.Mask(buildContextString(s), mapping)

	s.MaskedMessage = maskedMessage
	s.MaskedContext = maskedContext
	s.Mapping = mapping
}

// stageGenerate calls the generation service with the masked prompt. A
// missing or failing service yields the sentinel reply instead of an error.
func (o *Orchestrator) stageGenerate(ctx context.Context, s *State) {
	if o.generator == nil {
		s.RawReply = GenerationUnavailableReply
		return
	}

	prompt := fmt.Sprintf(promptTemplate, s.MaskedContext, s.MaskedMessage)
	reply, err := o.generator.Generate(ctx, prompt)
	if err != nil {
		log.Printf("[PIPELINE] Generation failed: %v", err)
		s.RawReply = GenerationUnavailableReply
		return
	}
	s.RawReply = reply
}

// stageUnmask restores original values in the raw reply.
func (o *Orchestrator) stageUnmask(ctx context.Context, s *State) {
	s.FinalReply = pii.Unmask(s.RawReply, s.Mapping)
}

// stageLearn hands the finished exchange to the persona learner. The
// dispatch never blocks and never alters the finalized reply.
func (o *Orchestrator) stageLearn(ctx context.Context, s *State) {
	if o.learner == nil {
		return
	}

	o.learner.Dispatch(learn.Exchange{
		UserID:      s.UserID,
		UserMessage: s.UserMessage,
		FinalReply:  s.FinalReply,
		Preferences: enrichedPreferences(s.Bundle),
	})
}
