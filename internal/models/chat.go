package models

import "github.com/google/uuid"

// ChatMessage is an append-only room chat entry. Ts is unix milliseconds.
type ChatMessage struct {
	ID       uuid.UUID `json:"id"`
	PlayerID uuid.UUID `json:"playerId"`
	Author   string    `json:"username"`
	Text     string    `json:"message"`
	Ts       int64     `json:"timestamp"`
}
