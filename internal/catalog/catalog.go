// Package catalog supplies the song sequences that rooms play through. The
// game core only depends on the interface; the Postgres implementation backs
// production and the static one backs development and tests.
package catalog

import (
	"context"
	"errors"

	"github.com/whatthetune/blindtest/internal/models"
)

// ErrSongNotFound is returned by ResolveMedia for an unknown song id.
var ErrSongNotFound = errors.New("catalog: song not found")

// Catalog resolves songs for game rounds.
type Catalog interface {
	// GetSongSequence returns an ordered playlist of count songs. The
	// sequence is fixed by the caller at game start and never mutated.
	GetSongSequence(ctx context.Context, count int) ([]models.Song, error)

	// ResolveMedia returns the playable media locator for a song id.
	ResolveMedia(ctx context.Context, songID string) (string, error)
}
