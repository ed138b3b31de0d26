package game

import (
	"github.com/google/uuid"

	"github.com/whatthetune/blindtest/internal/models"
)

// EventType is an enum-like type for server-to-client broadcasts.
type EventType string

const (
	EventRoomState      EventType = "room_state"      // private snapshot on attach
	EventRosterChanged  EventType = "roster_changed"  // join/leave/ready/host changes
	EventPhaseChanged   EventType = "phase_changed"   // lobby/playing/intermission/finished
	EventRoundRevealed  EventType = "round_revealed"  // correct answer + per-player deltas
	EventAnswerAccepted EventType = "answer_accepted" // private ack to the submitter
	EventAnswerProgress EventType = "answer_progress" // submitted count for the room
	EventChatAppended   EventType = "chat_appended"
	EventActionRejected EventType = "action_rejected"
	EventPong           EventType = "pong"
)

// RosterEntry is the public view of a player. Attached reports whether the
// player currently has a live channel.
type RosterEntry struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	Ready    bool      `json:"isReady"`
	IsHost   bool      `json:"isHost"`
	Attached bool      `json:"connected"`
}

// SongView is the outbound slice of a Song. Title and artist are withheld so
// the answer cannot leak before the reveal.
type SongView struct {
	ID         string `json:"id"`
	MediaURL   string `json:"audioUrl"`
	DurationMs int64  `json:"durationMs"`
}

// RoomSnapshot is the full private state sent to a newly attached channel.
type RoomSnapshot struct {
	RoomCode    string               `json:"roomCode"`
	YourID      uuid.UUID            `json:"yourId"`
	Phase       Phase                `json:"phase"`
	RoundIndex  int                  `json:"roundIndex"`
	TotalSongs  int                  `json:"totalSongs"`
	Players     []RosterEntry        `json:"players"`
	Song        *SongView            `json:"song,omitempty"`
	RemainingMs int64                `json:"remainingMs,omitempty"`
	Chat        []models.ChatMessage `json:"chat"`
	Standings   []models.Standing    `json:"standings,omitempty"`
}

// PhaseChange announces a phase transition. Song is set when entering
// playing; Standings when entering finished.
type PhaseChange struct {
	Phase      Phase             `json:"phase"`
	RoundIndex int               `json:"roundIndex"`
	TotalSongs int               `json:"totalSongs"`
	Song       *SongView         `json:"song,omitempty"`
	WindowMs   int64             `json:"windowMs,omitempty"`
	Standings  []models.Standing `json:"standings,omitempty"`
}

// ScoreDelta is one player's outcome for a finished round.
type ScoreDelta struct {
	PlayerID uuid.UUID `json:"playerId"`
	Name     string    `json:"name"`
	Correct  bool      `json:"isCorrect"`
	Points   int       `json:"points"`
	Total    int       `json:"total"`
}

// RoundReveal discloses the canonical answer once the round is over.
type RoundReveal struct {
	RoundIndex int          `json:"roundIndex"`
	Title      string       `json:"correctTitle"`
	Artist     string       `json:"correctArtist"`
	Deltas     []ScoreDelta `json:"deltas"`
}

// AnswerAck confirms receipt of a guess to the submitter without revealing
// whether it was correct.
type AnswerAck struct {
	RoundIndex int    `json:"roundIndex"`
	SongID     string `json:"songId"`
}

// AnswerProgress tells the room how many guesses are in for the round.
type AnswerProgress struct {
	Submitted int `json:"submitted"`
	Total     int `json:"total"`
}

// Rejection echoes a refused command back to its sender.
type Rejection struct {
	Kind    RejectKind `json:"errorKind"`
	Command *Command   `json:"command,omitempty"`
}

// Event is the single outbound envelope. Exactly one payload field is set,
// matching Type.
type Event struct {
	Type     EventType           `json:"type"`
	State    *RoomSnapshot       `json:"state,omitempty"`
	Players  []RosterEntry       `json:"players,omitempty"`
	Phase    *PhaseChange        `json:"phase,omitempty"`
	Reveal   *RoundReveal        `json:"reveal,omitempty"`
	Answer   *AnswerAck          `json:"answer,omitempty"`
	Progress *AnswerProgress     `json:"progress,omitempty"`
	Message  *models.ChatMessage `json:"message,omitempty"`
	Reject   *Rejection          `json:"reject,omitempty"`
}
