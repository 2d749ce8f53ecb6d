// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config carries every runtime knob. All fields have workable defaults
// except the API key; a missing key disables generation rather than
// aborting startup.
type Config struct {
	// AnthropicAPIKey enables the generation service. Empty means the
	// pipeline runs in degraded mode with a sentinel reply.
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`

	// Model overrides the default generation model.
	Model string `env:"CONCIERGE_MODEL"`

	// MaxTokens caps the generation response length.
	MaxTokens int64 `env:"CONCIERGE_MAX_TOKENS" envDefault:"1024"`

	// OverpassURL is the live venue lookup endpoint.
	OverpassURL string `env:"CONCIERGE_OVERPASS_URL" envDefault:"https://overpass-api.de/api/interpreter"`

	// UseSimulated selects the embedded venue data over live lookups.
	UseSimulated bool `env:"CONCIERGE_USE_SIMULATED" envDefault:"true"`

	// LearnQueueSize bounds the persona learner's pending exchanges.
	LearnQueueSize int `env:"CONCIERGE_LEARN_QUEUE" envDefault:"16"`

	// Lat and Lng are the default query coordinates for the chat REPL.
	Lat float64 `env:"CONCIERGE_LAT" envDefault:"40.7128"`
	Lng float64 `env:"CONCIERGE_LNG" envDefault:"-74.0060"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; a missing file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}
