package models

import "github.com/google/uuid"

// Standing is one row of the final leaderboard. Ordering is cumulative score
// descending, ties broken by earlier join order.
type Standing struct {
	Rank     int       `json:"rank"`
	PlayerID uuid.UUID `json:"playerId"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
}
