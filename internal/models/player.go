package models

import "github.com/google/uuid"

// Player is one participant in a room. IDs are issued by the server on
// create/join; clients never pick their own id.
type Player struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Score  int       `json:"score"`
	Ready  bool      `json:"isReady"`
	IsHost bool      `json:"isHost"`
}
