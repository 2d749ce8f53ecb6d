// Package identity provides the static identity source: name and contact
// data owned outside the pipeline, plus optional seed preferences used to
// initialize a user's dynamic profile record.
package identity

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/sundial-labs/concierge-go/profile"
)

// Identity is a user's static record. The pipeline reads it but never
// writes it.
type Identity struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Phone  string `json:"phone,omitempty"`
	Email  string `json:"email,omitempty"`

	// Seed carries any preference/purchase data embedded in the identity
	// source, used to seed the dynamic profile record or as a read-only
	// fallback when no dynamic record exists yet.
	Seed *profile.Record `json:"seed,omitempty"`
}

// Source looks up static identity data by user identifier.
type Source interface {
	LookupStatic(userID string) (*Identity, bool)
}

//go:embed users.json
var usersJSON []byte

// StaticSource serves identities from the embedded seed file.
type StaticSource struct {
	users map[string]*Identity
}

// NewStaticSource loads the embedded user records.
func NewStaticSource() (*StaticSource, error) {
	var users []*Identity
	if err := json.Unmarshal(usersJSON, &users); err != nil {
		return nil, fmt.Errorf("parse embedded users: %w", err)
	}

	byID := make(map[string]*Identity, len(users))
	for _, u := range users {
		byID[u.UserID] = u
	}
	return &StaticSource{users: byID}, nil
}

// LookupStatic returns the identity for the user, if known.
func (s *StaticSource) LookupStatic(userID string) (*Identity, bool) {
	u, ok := s.users[userID]
	return u, ok
}

// All returns every known identity, for seeding profile stores.
func (s *StaticSource) All() []*Identity {
	out := make([]*Identity, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out
}
