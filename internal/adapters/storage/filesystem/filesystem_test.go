package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/quester-agent/internal/domain"
	"github.com/PabloGalante/quester-agent/internal/draftstore"
)

func TestSessionStore_SaveWritesLayout(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewSessionStore(dir)

	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	sess := domain.NewSession("Japan", at)
	sess.AppendMessage(domain.RoleUser, "I want to write about my trip to Japan.", at)
	sess.ApplyTopicUpdates(domain.TopicUpdates{CurrentTopic: &domain.TopicRef{Title: "Trip to Japan"}})
	sess.AppendMessage(domain.RoleAssistant, "Where did you go first?", at.Add(time.Second))

	require.NoError(t, store.SaveSession(ctx, sess))

	for _, name := range []string{sessionFile, conversationFile, topicsFile} {
		assert.FileExists(t, filepath.Join(dir, string(sess.ID), name))
	}

	transcript, err := os.ReadFile(filepath.Join(dir, string(sess.ID), conversationFile))
	require.NoError(t, err)
	assert.Contains(t, string(transcript), "## User (2024-05-01T09:30:00Z)\n\nI want to write about my trip to Japan.\n")
	assert.Contains(t, string(transcript), "## Quester (2024-05-01T09:30:01Z)")

	topics, err := os.ReadFile(filepath.Join(dir, string(sess.ID), topicsFile))
	require.NoError(t, err)
	assert.Contains(t, string(topics), "## Trip to Japan (Active)")

	got, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, sess.CurrentTopicID, got.CurrentTopicID)
	assert.Len(t, got.Messages, 2)
	assert.Equal(t, sess.Messages[1].TopicID, got.Messages[1].TopicID)
	assert.True(t, sess.CreatedAt.Equal(got.CreatedAt))
}

func TestSessionStore_NotFoundAndUnsafeIDs(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(t.TempDir())

	_, err := store.GetSession(ctx, "session_1_missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.GetSession(ctx, "../etc")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = store.LatestSession(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := NewSessionStore(filepath.Join(t.TempDir(), "absent")).ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSessionStore_ListSkipsBrokenAndOrdersByCreation(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewSessionStore(dir)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	first := domain.NewSession("first", base)
	first.UpdatedAt = base.Add(72 * time.Hour)
	second := domain.NewSession("second", base.Add(time.Hour))
	require.NoError(t, store.SaveSession(ctx, first))
	require.NoError(t, store.SaveSession(ctx, second))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "session_9_broken"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session_9_broken", sessionFile), []byte("{"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty_dir"), 0o755))

	list, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	latest, err := store.LatestSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}

func TestRenderTopics(t *testing.T) {
	assert.Equal(t, "# Topics\n\nNo topics yet.\n", RenderTopics(nil))

	out := RenderTopics([]domain.Topic{
		{Title: "Food", Status: domain.TopicBacklog, Questions: []string{"Favourite dish?"}, Notes: []string{"Ramen"}},
		{Title: "Budget", Status: domain.TopicCompleted},
	})
	assert.Equal(t, "# Topics\n\n"+
		"## Food (Backlog)\n\n### Questions\n\n- Favourite dish?\n\n### Notes\n\n- Ramen\n\n"+
		"\n## Budget (Completed)\n\n", out)
}

func TestDraftBlobs_WithDraftStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	blobs := NewDraftBlobs(dir)
	store := draftstore.New(blobs)

	d := domain.Draft{
		TopicID:        "topic_1",
		TopicTitle:     "Trip to Japan",
		Sections:       []domain.Section{{Title: "Itinerary", Content: "Tokyo"}},
		Completeness:   20,
		MissingAspects: []string{"Budget"},
		UpdatedAt:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, "session_1_a", d))
	assert.FileExists(t, filepath.Join(dir, "session_1_a", draftsDir, "topic_1.md"))

	got, found, err := store.Load(ctx, "session_1_a", "topic_1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, d.Sections, got.Sections)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "session_1_a", draftsDir, "topic_2.md"), []byte("## Only a body\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session_1_a", draftsDir, "notes.txt"), []byte("x"), 0o644))

	keys, err := blobs.Keys(ctx, "session_1_a")
	require.NoError(t, err)
	assert.Equal(t, []domain.TopicID{"topic_1", "topic_2"}, keys)

	_, _, err = store.Load(ctx, "session_1_a", "topic_2")
	assert.ErrorIs(t, err, domain.ErrMalformedDraft)

	list, err := store.List(ctx, "session_1_a")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.TopicID("topic_1"), list[0].TopicID)

	require.NoError(t, store.Delete(ctx, "session_1_a", "topic_1"))
	require.NoError(t, store.Delete(ctx, "session_1_a", "topic_1"))
	_, found, err = store.Load(ctx, "session_1_a", "topic_1")
	require.NoError(t, err)
	assert.False(t, found)

	keys, err = blobs.Keys(ctx, "session_1_missing")
	require.NoError(t, err)
	assert.Empty(t, keys)

	assert.ErrorIs(t, blobs.Put(ctx, "session_1_a", "../x", nil), domain.ErrInvalidInput)
}
