package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticCatalogSequence(t *testing.T) {
	cat := NewStatic(nil)

	songs, err := cat.GetSongSequence(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, songs, 5)

	seen := make(map[string]bool)
	for _, s := range songs {
		assert.NotEmpty(t, s.ID)
		assert.NotEmpty(t, s.Title)
		assert.NotEmpty(t, s.MediaURL)
		assert.Positive(t, s.DurationMs)
		assert.False(t, seen[s.ID], "sequence must not repeat songs")
		seen[s.ID] = true
	}
}

func TestStaticCatalogRejectsOversizedRequest(t *testing.T) {
	cat := NewStatic(nil)

	_, err := cat.GetSongSequence(context.Background(), 1000)
	assert.Error(t, err)

	_, err = cat.GetSongSequence(context.Background(), 0)
	assert.Error(t, err)
}

func TestStaticCatalogResolveMedia(t *testing.T) {
	cat := NewStatic(nil)

	url, err := cat.ResolveMedia(context.Background(), "demo-01")
	require.NoError(t, err)
	assert.Equal(t, "/media/demo-01.mp3", url)

	_, err = cat.ResolveMedia(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSongNotFound)
}
