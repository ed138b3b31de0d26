// Package config holds the server's runtime knobs. Values come from flags or
// TUNE_* environment variables (bound via viper in cmd/server).
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config is populated by the cobra/viper layer before the server starts.
type Config struct {
	Bind      string
	Port      int
	PublicURL string

	SongsPerGame  int
	RoundDuration time.Duration
	Intermission  time.Duration
	MaxPlayers    int
	ChatMaxLen    int
	ChatRetention int
	RoomGrace     time.Duration

	DatabaseURL  string
	RedisAddr    string
	HistoryQueue string

	Verbose bool
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.SongsPerGame < 1 {
		return fmt.Errorf("songs-per-game must be at least 1, got %d", c.SongsPerGame)
	}
	if c.RoundDuration < time.Second {
		return errors.New("round-duration must be at least one second")
	}
	if c.MaxPlayers < 2 {
		return fmt.Errorf("max-players must be at least 2, got %d", c.MaxPlayers)
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}
