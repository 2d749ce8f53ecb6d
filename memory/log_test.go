package memory_test

import (
	"context"
	"testing"

	chromem "github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sundial-labs/concierge-go/memory"
	"github.com/sundial-labs/concierge-go/memory/embedder/hash"
)

func newLog(t *testing.T) *memory.Log {
	t.Helper()
	return memory.NewLog(chromem.NewDB(), hash.New())
}

func TestAppendAndQuery(t *testing.T) {
	ctx := context.Background()
	log := newLog(t)

	entry, err := log.Append(ctx, "user1", "learned_fact", "User prefers oat milk")
	require.NoError(t, err)
	assert.Equal(t, "user1", entry.UserID)
	assert.Equal(t, "learned_fact", entry.Category)
	assert.Contains(t, entry.ID, "user1_learned_fact_")
	assert.False(t, entry.CreatedAt.IsZero())

	got, err := log.QueryTopK(ctx, "user1", "milk preference", 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "User prefers oat milk", got[0])
}

func TestQueryRequestingMoreThanStored(t *testing.T) {
	ctx := context.Background()
	log := newLog(t)

	_, err := log.Append(ctx, "user1", "conversation_summary", "Asked about espresso")
	require.NoError(t, err)

	// k larger than the collection must not error, just return fewer.
	got, err := log.QueryTopK(ctx, "user1", "espresso", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestQueryEmptyLog(t *testing.T) {
	ctx := context.Background()
	log := newLog(t)

	got, err := log.QueryTopK(ctx, "nobody", "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUserIsolation(t *testing.T) {
	ctx := context.Background()
	log := newLog(t)

	_, err := log.Append(ctx, "userA", "learned_fact", "userA likes matcha")
	require.NoError(t, err)
	_, err = log.Append(ctx, "userB", "learned_fact", "userB likes mocha")
	require.NoError(t, err)

	gotA, err := log.QueryTopK(ctx, "userA", "favorite drink", 10)
	require.NoError(t, err)
	for _, content := range gotA {
		assert.NotContains(t, content, "userB", "user A must never see user B's entries")
	}
	require.Len(t, gotA, 1)
	assert.Equal(t, "userA likes matcha", gotA[0])
}

func TestAppendRequiresUser(t *testing.T) {
	_, err := newLog(t).Append(context.Background(), "", "learned_fact", "orphan")
	assert.Error(t, err)
}

func TestEntryIDsAreUnique(t *testing.T) {
	ctx := context.Background()
	log := newLog(t)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		entry, err := log.Append(ctx, "user1", "learned_fact", "same content")
		require.NoError(t, err)
		assert.False(t, seen[entry.ID], "duplicate entry id %s", entry.ID)
		seen[entry.ID] = true
	}
}
