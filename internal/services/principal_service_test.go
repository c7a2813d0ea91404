package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskshare/taskshare/internal/models"
	"github.com/taskshare/taskshare/internal/storage"
)

func newPrincipalFixture(t *testing.T) (PrincipalService, storage.Store) {
	t.Helper()
	store := storage.NewMemory()
	return NewPrincipalService(zerolog.Nop(), store), store
}

func seedPrincipal(t *testing.T, store storage.Store, id, email, name string) {
	t.Helper()
	now := time.Now()
	require.NoError(t, store.CreatePrincipal(context.Background(), &models.Principal{
		ID:        id,
		Email:     email,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}))
}

func TestSearch_ShortQuery(t *testing.T) {
	principals, store := newPrincipalFixture(t)
	seedPrincipal(t, store, "u1", "alice@example.com", "Alice")
	seedPrincipal(t, store, "u2", "bob@example.com", "Bob")

	for _, query := range []string{"", "a", " a "} {
		summaries, err := principals.Search(context.Background(), "u1", query)
		require.NoError(t, err)
		assert.Empty(t, summaries, "query %q should match nothing", query)
	}
}

func TestSearch_QueryLengthCountsRunes(t *testing.T) {
	principals, store := newPrincipalFixture(t)
	seedPrincipal(t, store, "u1", "alice@example.com", "Alice")
	seedPrincipal(t, store, "u2", "yuki@example.com", "雪子")

	// One multi-byte rune is still a single character and stays below
	// the minimum query length.
	summaries, err := principals.Search(context.Background(), "u1", "雪")
	require.NoError(t, err)
	assert.Empty(t, summaries)

	summaries, err = principals.Search(context.Background(), "u1", "雪子")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "u2", summaries[0].ID)
}

func TestSearch_CaseInsensitive(t *testing.T) {
	principals, store := newPrincipalFixture(t)
	seedPrincipal(t, store, "u1", "alice@example.com", "Alice")
	seedPrincipal(t, store, "u2", "bob@example.com", "Bob Marley")

	summaries, err := principals.Search(context.Background(), "u1", "MARLEY")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "u2", summaries[0].ID)

	summaries, err = principals.Search(context.Background(), "u1", "BOB@")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "u2", summaries[0].ID)
}

func TestSearch_ExcludesRequester(t *testing.T) {
	principals, store := newPrincipalFixture(t)
	seedPrincipal(t, store, "u1", "alice@example.com", "Alice")
	seedPrincipal(t, store, "u2", "alicia@example.com", "Alicia")

	summaries, err := principals.Search(context.Background(), "u1", "alic")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "u2", summaries[0].ID)
}

func TestSearch_LimitsResults(t *testing.T) {
	principals, store := newPrincipalFixture(t)
	for i := 0; i < 15; i++ {
		id := fmt.Sprintf("u%d", i)
		seedPrincipal(t, store, id, fmt.Sprintf("member%d@example.com", i), fmt.Sprintf("Member %d", i))
	}

	summaries, err := principals.Search(context.Background(), "requester", "member")
	require.NoError(t, err)
	assert.Len(t, summaries, 10)
}

func TestUpdateProfile(t *testing.T) {
	principals, store := newPrincipalFixture(t)
	seedPrincipal(t, store, "u1", "alice@example.com", "Alice")

	updated, err := principals.UpdateProfile(context.Background(), UpdateProfileParams{
		ActorID:   "u1",
		Name:      strPtr("Alice Cooper"),
		AvatarURL: strPtr("https://example.com/a.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice Cooper", updated.Name)
	assert.Equal(t, "https://example.com/a.png", updated.AvatarURL)

	reloaded, err := principals.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice Cooper", reloaded.Name)
}

func TestUpdateProfile_NoFields(t *testing.T) {
	principals, store := newPrincipalFixture(t)
	seedPrincipal(t, store, "u1", "alice@example.com", "Alice")

	_, err := principals.UpdateProfile(context.Background(), UpdateProfileParams{ActorID: "u1"})
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestGetByID_NotFound(t *testing.T) {
	principals, _ := newPrincipalFixture(t)

	_, err := principals.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrPrincipalNotFound)
}
