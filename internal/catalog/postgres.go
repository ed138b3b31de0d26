package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/whatthetune/blindtest/internal/models"
)

// PostgresCatalog reads the song library from a `songs` table:
//
//	id TEXT PRIMARY KEY, title TEXT, artist TEXT, media_url TEXT,
//	duration_ms BIGINT
type PostgresCatalog struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a pgx pool and pings it before returning.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresCatalog, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("catalog: unable to parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("catalog: unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("catalog: db ping failed: %w", err)
	}
	return &PostgresCatalog{pool: pool}, nil
}

func (c *PostgresCatalog) GetSongSequence(ctx context.Context, count int) ([]models.Song, error) {
	if count <= 0 {
		return nil, fmt.Errorf("catalog: invalid sequence length %d", count)
	}
	q := `
		SELECT id, title, artist, media_url, duration_ms
		FROM songs
		ORDER BY random()
		LIMIT $1
	`
	rows, err := c.pool.Query(ctx, q, count)
	if err != nil {
		return nil, fmt.Errorf("catalog: song query failed: %w", err)
	}
	defer rows.Close()

	var songs []models.Song
	for rows.Next() {
		var s models.Song
		if err := rows.Scan(&s.ID, &s.Title, &s.Artist, &s.MediaURL, &s.DurationMs); err != nil {
			return nil, fmt.Errorf("catalog: song scan failed: %w", err)
		}
		songs = append(songs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: song rows failed: %w", err)
	}
	if len(songs) < count {
		return nil, fmt.Errorf("catalog: only %d songs available, need %d", len(songs), count)
	}
	return songs, nil
}

func (c *PostgresCatalog) ResolveMedia(ctx context.Context, songID string) (string, error) {
	var mediaURL string
	err := c.pool.QueryRow(ctx, `SELECT media_url FROM songs WHERE id = $1`, songID).Scan(&mediaURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrSongNotFound
	}
	if err != nil {
		return "", fmt.Errorf("catalog: media lookup failed: %w", err)
	}
	return mediaURL, nil
}

// Close releases the underlying pool.
func (c *PostgresCatalog) Close() {
	c.pool.Close()
}
