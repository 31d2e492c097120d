package draftstore_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/quester-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/quester-agent/internal/domain"
	"github.com/PabloGalante/quester-agent/internal/draftstore"
)

func draftFor(topic domain.TopicID, title string, at time.Time) domain.Draft {
	return domain.Draft{
		TopicID:        topic,
		TopicTitle:     title,
		Sections:       []domain.Section{{Title: "Overview", Content: "Some facts."}},
		Completeness:   30,
		MissingAspects: []string{},
		UpdatedAt:      at,
	}
}

func TestStore_LoadMissingIsNotAnError(t *testing.T) {
	store := draftstore.New(memory.NewDraftBlobs())

	_, found, err := store.Load(context.Background(), "session_1_a", "topic_none")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	store := draftstore.New(memory.NewDraftBlobs())
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, "s1", draftFor("t1", "First", at)))
	second := draftFor("t1", "Second", at.Add(time.Minute))
	second.Sections = nil
	require.NoError(t, store.Save(ctx, "s1", second))

	got, found, err := store.Load(ctx, "s1", "t1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Second", got.TopicTitle)
	assert.Empty(t, got.Sections)
}

func TestStore_SaveRequiresTopic(t *testing.T) {
	store := draftstore.New(memory.NewDraftBlobs())
	err := store.Save(context.Background(), "s1", draftFor("", "x", time.Now()))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_SaveRejectsWhatLoadCannotRead(t *testing.T) {
	ctx := context.Background()
	store := draftstore.New(memory.NewDraftBlobs())

	for _, title := range []string{"", "   "} {
		err := store.Save(ctx, "s1", draftFor("t1", title, time.Now()))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}

	_, found, err := store.Load(ctx, "s1", "t1")
	require.NoError(t, err)
	assert.False(t, found, "nothing was written")
}

func TestStore_SaveLoadReturnsNormalizedDraft(t *testing.T) {
	ctx := context.Background()
	store := draftstore.New(memory.NewDraftBlobs())
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	d := draftFor("t1", "Trip", at)
	d.Completeness = 150
	d.Sections = []domain.Section{{Title: " Lead  space", Content: "    code line\n    more\n"}}
	require.NoError(t, store.Save(ctx, "s1", d))

	got, found, err := store.Load(ctx, "s1", "t1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 100, got.Completeness)
	assert.Equal(t, []domain.Section{{Title: "Lead space", Content: "    code line\n    more"}}, got.Sections)

	want := d.Normalized()
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt))
	want.UpdatedAt, got.UpdatedAt = time.Time{}, time.Time{}
	assert.Equal(t, want, got)
}

func TestStore_TruncatedHeaderIsMalformedAndSkippedByList(t *testing.T) {
	ctx := context.Background()
	blobs := memory.NewDraftBlobs()
	store := draftstore.New(blobs)
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, "s1", draftFor("t1", "Older", at)))
	require.NoError(t, store.Save(ctx, "s1", draftFor("t2", "Broken", at)))
	require.NoError(t, store.Save(ctx, "s1", draftFor("t3", "Newer", at.Add(time.Hour))))

	raw, err := blobs.Get(ctx, "s1", "t2")
	require.NoError(t, err)
	cut := strings.Index(string(raw), "\n## ")
	require.Positive(t, cut)
	require.NoError(t, blobs.Put(ctx, "s1", "t2", raw[cut+1:]))

	_, _, err = store.Load(ctx, "s1", "t2")
	assert.ErrorIs(t, err, domain.ErrMalformedDraft)

	list, err := store.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.TopicID("t3"), list[0].TopicID)
	assert.Equal(t, domain.TopicID("t1"), list[1].TopicID)
	assert.Equal(t, 30, list[1].Completeness)
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := draftstore.New(memory.NewDraftBlobs())

	require.NoError(t, store.Save(ctx, "s1", draftFor("t1", "x", time.Now())))
	require.NoError(t, store.Delete(ctx, "s1", "t1"))
	require.NoError(t, store.Delete(ctx, "s1", "t1"))

	_, found, err := store.Load(ctx, "s1", "t1")
	require.NoError(t, err)
	assert.False(t, found)
}
