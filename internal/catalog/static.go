package catalog

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/whatthetune/blindtest/internal/models"
)

// StaticCatalog serves a fixed in-memory song list, shuffled per request.
// Used when no DATABASE_URL is configured, and by tests.
type StaticCatalog struct {
	mu    sync.Mutex
	songs []models.Song
	rng   *rand.Rand
}

// NewStatic builds a catalog over the given songs. An empty slice falls back
// to the built-in demo list.
func NewStatic(songs []models.Song) *StaticCatalog {
	if len(songs) == 0 {
		songs = demoSongs()
	}
	return &StaticCatalog{
		songs: songs,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *StaticCatalog) GetSongSequence(ctx context.Context, count int) ([]models.Song, error) {
	if count <= 0 {
		return nil, fmt.Errorf("catalog: invalid sequence length %d", count)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if count > len(c.songs) {
		return nil, fmt.Errorf("catalog: only %d songs available, need %d", len(c.songs), count)
	}
	shuffled := make([]models.Song, len(c.songs))
	copy(shuffled, c.songs)
	c.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:count], nil
}

func (c *StaticCatalog) ResolveMedia(ctx context.Context, songID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.songs {
		if s.ID == songID {
			return s.MediaURL, nil
		}
	}
	return "", ErrSongNotFound
}

// demoSongs is the development seed playlist.
func demoSongs() []models.Song {
	titles := []struct {
		title  string
		artist string
	}{
		{"Bohemian Rhapsody", "Queen"},
		{"Billie Jean", "Michael Jackson"},
		{"Smells Like Teen Spirit", "Nirvana"},
		{"Rolling in the Deep", "Adele"},
		{"Hotel California", "Eagles"},
		{"Hey Jude", "The Beatles"},
		{"Like a Rolling Stone", "Bob Dylan"},
		{"Superstition", "Stevie Wonder"},
		{"Seven Nation Army", "The White Stripes"},
		{"Dancing Queen", "ABBA"},
		{"Wonderwall", "Oasis"},
		{"Take On Me", "a-ha"},
	}
	songs := make([]models.Song, len(titles))
	for i, t := range titles {
		id := fmt.Sprintf("demo-%02d", i+1)
		songs[i] = models.Song{
			ID:         id,
			Title:      t.title,
			Artist:     t.artist,
			MediaURL:   "/media/" + id + ".mp3",
			DurationMs: 30000,
		}
	}
	return songs
}
