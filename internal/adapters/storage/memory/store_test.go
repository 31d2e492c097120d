package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/quester-agent/internal/domain"
)

func TestSessionStore_SaveReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	sess := domain.NewSession("trip", time.Now())
	sess.AppendMessage(domain.RoleUser, "hello", time.Now())
	require.NoError(t, store.SaveSession(ctx, sess))

	sess.AppendMessage(domain.RoleAssistant, "not saved", time.Now())

	got, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 1)

	got.Messages[0].Content = "mutated"
	again, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", again.Messages[0].Content)
}

func TestSessionStore_NotFound(t *testing.T) {
	store := NewSessionStore()

	_, err := store.GetSession(context.Background(), "session_1_missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.LatestSession(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionStore_LatestUsesCreationTime(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	older := domain.NewSession("older", base)
	older.UpdatedAt = base.Add(48 * time.Hour)
	newer := domain.NewSession("newer", base.Add(time.Hour))

	require.NoError(t, store.SaveSession(ctx, older))
	require.NoError(t, store.SaveSession(ctx, newer))

	latest, err := store.LatestSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)

	list, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
}

func TestDraftBlobs(t *testing.T) {
	ctx := context.Background()
	blobs := NewDraftBlobs()

	_, err := blobs.Get(ctx, "s1", "t1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, blobs.Put(ctx, "s1", "t2", []byte("b")))
	require.NoError(t, blobs.Put(ctx, "s1", "t1", []byte("a")))
	require.NoError(t, blobs.Put(ctx, "s2", "t9", []byte("c")))

	keys, err := blobs.Keys(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []domain.TopicID{"t1", "t2"}, keys)

	data, err := blobs.Get(ctx, "s1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))

	require.NoError(t, blobs.Delete(ctx, "s1", "t1"))
	require.NoError(t, blobs.Delete(ctx, "s1", "t1"))
	_, err = blobs.Get(ctx, "s1", "t1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
