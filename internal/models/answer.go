package models

import (
	"time"

	"github.com/google/uuid"
)

// Answer is one accepted guess. At most one exists per (player, round);
// later submissions for the same round are rejected, never overwritten.
type Answer struct {
	PlayerID    uuid.UUID `json:"playerId"`
	SongID      string    `json:"songId"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	SubmittedAt time.Time `json:"submittedAt"`
	Correct     bool      `json:"isCorrect"`
	Points      int       `json:"points"`
}
