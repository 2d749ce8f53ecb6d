// Command concierge runs the personalization pipeline as an interactive
// chat REPL over the embedded seed data.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/chzyer/readline"
	chromem "github.com/philippgille/chromem-go"
	"github.com/spf13/cobra"

	"github.com/sundial-labs/concierge-go/config"
	"github.com/sundial-labs/concierge-go/core"
	"github.com/sundial-labs/concierge-go/enrich"
	"github.com/sundial-labs/concierge-go/genai"
	"github.com/sundial-labs/concierge-go/identity"
	"github.com/sundial-labs/concierge-go/knowledge"
	"github.com/sundial-labs/concierge-go/learn"
	"github.com/sundial-labs/concierge-go/location"
	"github.com/sundial-labs/concierge-go/memory"
	"github.com/sundial-labs/concierge-go/memory/embedder/hash"
	"github.com/sundial-labs/concierge-go/pipeline"
	"github.com/sundial-labs/concierge-go/profile"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "concierge",
		Short:        "Hyper-local personalized concierge",
		SilenceUsage: true,
	}
	root.AddCommand(newChatCmd())
	return root
}

func newChatCmd() *cobra.Command {
	var (
		userID string
		lat    float64
		lng    float64
		live   bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the concierge",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("lat") {
				lat = cfg.Lat
			}
			if !cmd.Flags().Changed("lng") {
				lng = cfg.Lng
			}
			useSimulated := cfg.UseSimulated && !live

			app, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.learner.Close()

			return runChat(cmd.Context(), app.orchestrator, userID, lat, lng, useSimulated)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "u_1001", "user identifier")
	cmd.Flags().Float64Var(&lat, "lat", 0, "query latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "query longitude")
	cmd.Flags().BoolVar(&live, "live", false, "use live venue lookups instead of seed data")
	return cmd
}

// app bundles the wired pipeline and the learner whose shutdown the caller
// owns.
type app struct {
	orchestrator *pipeline.Orchestrator
	learner      *learn.Learner
}

// buildApp wires every collaborator: one in-memory vector database shared by
// profiles, memories and the knowledge base, seed data loaded from the
// embedded files, and an optional generation client.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db := chromem.NewDB()
	embedder := hash.New()

	identities, err := identity.NewStaticSource()
	if err != nil {
		return nil, err
	}

	profiles, err := profile.NewStore(db, embedder, profile.WithSeedSource(
		func(userID string) (profile.Record, bool) {
			ident, ok := identities.LookupStatic(userID)
			if !ok || ident.Seed == nil {
				return profile.Record{}, false
			}
			return *ident.Seed, true
		}))
	if err != nil {
		return nil, err
	}
	for _, ident := range identities.All() {
		if ident.Seed == nil {
			continue
		}
		if err := profiles.Seed(ctx, ident.UserID, *ident.Seed); err != nil {
			return nil, fmt.Errorf("seed profile for %s: %w", ident.UserID, err)
		}
	}

	memories := memory.NewLog(db, embedder)

	simulated, err := location.NewSimulated()
	if err != nil {
		return nil, err
	}
	live, err := location.NewLive(location.WithEndpoint(cfg.OverpassURL))
	if err != nil {
		return nil, err
	}

	kb, err := knowledge.NewBase(db, embedder)
	if err != nil {
		return nil, err
	}
	if err := kb.Seed(ctx, simulated.Venues(), simulated.Promotions()); err != nil {
		return nil, err
	}

	var generator genai.Generator
	client, err := genai.NewClient(cfg.AnthropicAPIKey, cfg.Model, cfg.MaxTokens)
	switch {
	case errors.Is(err, genai.ErrNotConfigured):
		log.Printf("[MAIN] ANTHROPIC_API_KEY not set; replies will be degraded")
	case err != nil:
		return nil, err
	default:
		generator = client
	}

	enricher := enrich.New(identities, profiles, simulated, live, memories)
	learner := learn.NewLearner(generator, profiles, memories, cfg.LearnQueueSize)

	return &app{
		orchestrator: pipeline.New(enricher, kb, generator, learner),
		learner:      learner,
	}, nil
}

// runChat is the interactive loop. History accumulates across turns and is
// replayed into every request so the pipeline sees the whole conversation.
func runChat(ctx context.Context, orch *pipeline.Orchestrator, userID string, lat, lng float64, useSimulated bool) error {
	rl, err := readline.New("you> ")
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	fmt.Printf("Chatting as %s at (%.4f, %.4f). Type 'exit' to quit.\n", userID, lat, lng)

	var history []core.Message
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		reply, err := orch.ProcessMessage(ctx, pipeline.Request{
			UserID:       userID,
			Message:      line,
			Lat:          lat,
			Lng:          lng,
			History:      history,
			UseSimulated: useSimulated,
		})
		if err != nil {
			fmt.Println("error:", err)
			continue
		}

		fmt.Println("concierge>", reply)
		history = append(history,
			core.Message{Role: "user", Content: line},
			core.Message{Role: "assistant", Content: reply},
		)
	}
}
