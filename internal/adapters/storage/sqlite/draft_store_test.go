package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/quester-agent/internal/domain"
)

func TestDraftBlobs(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "drafts.db")

	blobs, err := Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { blobs.Close() })

	_, err = blobs.Get(ctx, "s1", "t1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, blobs.Put(ctx, "s1", "t2", []byte("two")))
	require.NoError(t, blobs.Put(ctx, "s1", "t1", []byte("one")))
	require.NoError(t, blobs.Put(ctx, "s1", "t1", []byte("one, again")))
	require.NoError(t, blobs.Put(ctx, "s2", "t1", []byte("other session")))

	data, err := blobs.Get(ctx, "s1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "one, again", string(data))

	keys, err := blobs.Keys(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []domain.TopicID{"t1", "t2"}, keys)

	require.NoError(t, blobs.Delete(ctx, "s1", "t1"))
	require.NoError(t, blobs.Delete(ctx, "s1", "t1"))
	_, err = blobs.Get(ctx, "s1", "t1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	keys, err = blobs.Keys(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestOpenReusesExistingDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "drafts.db")

	first, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, "s1", "t1", []byte("kept")))
	require.NoError(t, first.Close())

	second, err := Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })

	data, err := second.Get(ctx, "s1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "kept", string(data))
}
